package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Alwanly/remotebuild-client/pkg/jobs"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/Alwanly/remotebuild-client/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	status jobs.Status
	err    error
}

// scripted replays steps per job and repeats the last one.
type scripted struct {
	mu    sync.Mutex
	steps map[uint32][]step
	calls map[uint32]int
}

func newScripted() *scripted {
	return &scripted{steps: make(map[uint32][]step), calls: make(map[uint32]int)}
}

func (s *scripted) JobInfo(ctx context.Context, id uint32) (request.Result[jobs.Info], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := s.steps[id]
	i := s.calls[id]
	s.calls[id]++
	if i >= len(steps) {
		i = len(steps) - 1
	}
	st := steps[i]
	if st.err != nil {
		return request.Result[jobs.Info]{}, st.err
	}
	return request.Result[jobs.Info]{Response: jobs.Info{ID: id, Status: st.status}, StatusCode: 1}, nil
}

func (s *scripted) count(id uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}

func fastOptions() Options {
	return Options{
		Interval: time.Millisecond,
		Retry: retry.Config{
			MaxRetries:     3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
			Multiplier:     2,
		},
	}
}

func TestJob_UntilTerminal(t *testing.T) {
	src := newScripted()
	src.steps[1] = []step{
		{status: jobs.StatusWaiting},
		{status: jobs.StatusWaiting},
		{status: jobs.StatusRunning},
		{status: jobs.StatusDone},
	}

	var changes []jobs.Status
	opts := fastOptions()
	opts.OnChange = func(info jobs.Info) { changes = append(changes, info.Status) }

	info, err := Job(context.Background(), src, 1, opts)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusDone, info.Status)
	assert.Equal(t, []jobs.Status{jobs.StatusWaiting, jobs.StatusRunning, jobs.StatusDone}, changes)
	assert.Equal(t, 4, src.count(1))
}

func TestJob_RetriesTransportErrors(t *testing.T) {
	src := newScripted()
	transport := &request.Error{Kind: request.KindRequest, Err: errors.New("connection refused")}
	src.steps[1] = []step{
		{err: transport},
		{err: transport},
		{status: jobs.StatusFailed},
	}

	info, err := Job(context.Background(), src, 1, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, info.Status)
	assert.Equal(t, 3, src.count(1))
}

func TestJob_ApplicationErrorStops(t *testing.T) {
	src := newScripted()
	src.steps[1] = []step{
		{status: jobs.StatusRunning},
		{err: request.ServerError("job not found")},
	}

	info, err := Job(context.Background(), src, 1, fastOptions())
	assert.ErrorIs(t, err, request.ServerError("job not found"))
	assert.Equal(t, jobs.StatusRunning, info.Status)
	assert.Equal(t, 2, src.count(1))
}

func TestJob_ContextCancel(t *testing.T) {
	src := newScripted()
	src.steps[1] = []step{{status: jobs.StatusRunning}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	info, err := Job(ctx, src, 1, fastOptions())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, jobs.StatusRunning, info.Status)
}

func TestJob_InvalidInterval(t *testing.T) {
	_, err := Job(context.Background(), newScripted(), 1, Options{})
	assert.Error(t, err)
}

func TestJobs_Concurrent(t *testing.T) {
	src := newScripted()
	src.steps[1] = []step{{status: jobs.StatusRunning}, {status: jobs.StatusDone}}
	src.steps[2] = []step{{status: jobs.StatusCancelled}}
	src.steps[3] = []step{{status: jobs.StatusPaused}, {status: jobs.StatusRunning}, {status: jobs.StatusFailed}}

	out, err := Jobs(context.Background(), src, []uint32{1, 2, 3}, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusDone, out[1].Status)
	assert.Equal(t, jobs.StatusCancelled, out[2].Status)
	assert.Equal(t, jobs.StatusFailed, out[3].Status)
}

func TestJobs_SerializesOnChange(t *testing.T) {
	src := newScripted()
	ids := []uint32{1, 2, 3, 4, 5, 6}
	for _, id := range ids {
		src.steps[id] = []step{{status: jobs.StatusRunning}, {status: jobs.StatusDone}}
	}

	// appended without a lock of its own
	var seen []uint32
	opts := fastOptions()
	opts.OnChange = func(info jobs.Info) { seen = append(seen, info.ID) }

	_, err := Jobs(context.Background(), src, ids, opts)
	require.NoError(t, err)
	assert.Len(t, seen, 2*len(ids))
}

func TestJobs_FirstFailureWins(t *testing.T) {
	src := newScripted()
	src.steps[1] = []step{{status: jobs.StatusRunning}}
	src.steps[2] = []step{{err: request.ServerError("job not found")}}

	out, err := Jobs(context.Background(), src, []uint32{1, 2}, fastOptions())
	assert.ErrorIs(t, err, request.ServerError("job not found"))
	assert.NotContains(t, out, uint32(2))
}
