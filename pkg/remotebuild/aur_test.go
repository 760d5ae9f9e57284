package remotebuild_test

import (
	"context"
	"testing"

	"github.com/Alwanly/remotebuild-client/pkg/jobs"
	"github.com/Alwanly/remotebuild-client/pkg/remotebuild"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAURBuild_Defaults(t *testing.T) {
	c, srv := newClient(t)

	res, err := c.NewAURBuild("yay").CreateJob(context.Background())
	require.NoError(t, err)

	sent, ok := srv.JobArgs(res.Response.ID)
	require.True(t, ok)
	assert.Equal(t, jobs.TypeAUR, sent.JobType)
	assert.Equal(t, jobs.UploadNone, sent.UploadType)
	assert.False(t, sent.DisableCCache)
	assert.Equal(t, map[string]string{remotebuild.ArgAURPackage: "yay"}, sent.Args)
}

func TestAURBuild_DataManager(t *testing.T) {
	c, srv := newClient(t)

	b := c.NewAURBuild("paru").
		WithoutCCache().
		WithDataManager("dm-user", "dm-token", "https://dm.example", "")
	assert.Equal(t, jobs.UploadDataManager, b.UploadType())
	assert.NotContains(t, b.Args(), remotebuild.ArgDMNamespace)

	res, err := b.CreateJob(context.Background())
	require.NoError(t, err)

	sent, _ := srv.JobArgs(res.Response.ID)
	assert.True(t, sent.DisableCCache)
	assert.Equal(t, jobs.UploadDataManager, sent.UploadType)
	assert.Equal(t, map[string]string{
		remotebuild.ArgAURPackage: "paru",
		remotebuild.ArgDMUser:     "dm-user",
		remotebuild.ArgDMToken:    "dm-token",
		remotebuild.ArgDMHost:     "https://dm.example",
	}, sent.Args)
}

func TestAURBuild_Namespace(t *testing.T) {
	c, _ := newClient(t)

	args := c.NewAURBuild("paru").WithDataManager("u", "t", "h", "team").Args()
	assert.Equal(t, "team", args[remotebuild.ArgDMNamespace])

	// Args is a copy
	args["REPO"] = "changed"
	assert.Equal(t, "paru", c.NewAURBuild("paru").Args()["REPO"])
}

func TestAURBuild_PackageFixedAtCreation(t *testing.T) {
	c, srv := newClient(t)

	b := c.NewAURBuild("yay")
	b.Args()[remotebuild.ArgAURPackage] = "two words"
	assert.Equal(t, "yay", b.Package())

	res, err := b.CreateJob(context.Background())
	require.NoError(t, err)

	sent, ok := srv.JobArgs(res.Response.ID)
	require.True(t, ok)
	assert.Equal(t, b.Package(), sent.Args[remotebuild.ArgAURPackage])
}

func TestAURBuild_Invalid(t *testing.T) {
	c, srv := newClient(t)

	_, err := c.NewAURBuild("").CreateJob(context.Background())
	assert.ErrorIs(t, err, request.ErrInvalidConfig)

	_, err = c.NewAURBuild("two words").CreateJob(context.Background())
	assert.ErrorIs(t, err, request.ErrInvalidConfig)

	_, err = c.NewAURBuild("yay").WithDataManager("", "t", "h", "").CreateJob(context.Background())
	assert.ErrorIs(t, err, request.ErrInvalidConfig)

	assert.Zero(t, srv.TotalCalls())
}
