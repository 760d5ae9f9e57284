package watch

import (
	"context"
	"testing"
	"time"

	"github.com/Alwanly/remotebuild-client/internal/fakeserver"
	"github.com/Alwanly/remotebuild-client/pkg/jobs"
	"github.com/Alwanly/remotebuild-client/pkg/remotebuild"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_AgainstServer(t *testing.T) {
	srv := fakeserver.New(nil)
	srv.AddUser("alice", "secret")
	c, err := remotebuild.NewClient(request.Config{
		URL:   fakeserver.BaseURL,
		Token: srv.IssueToken("alice"),
	}, remotebuild.WithHTTPClient(srv.Doer()))
	require.NoError(t, err)

	added, err := c.NewAURBuild("yay").CreateJob(context.Background())
	require.NoError(t, err)
	id := added.Response.ID

	opts := fastOptions()
	opts.Interval = 5 * time.Millisecond
	opts.OnChange = func(info jobs.Info) {
		switch info.Status {
		case jobs.StatusWaiting:
			srv.SetStatus(id, jobs.StatusRunning)
		case jobs.StatusRunning:
			srv.SetStatus(id, jobs.StatusDone)
		}
	}

	info, err := Job(context.Background(), c, id, opts)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusDone, info.Status)
	assert.Equal(t, 3, srv.Calls("/job/info"))
}
