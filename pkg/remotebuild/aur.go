package remotebuild

import (
	"context"
	"fmt"
	"maps"

	"github.com/Alwanly/remotebuild-client/pkg/jobs"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/Alwanly/remotebuild-client/pkg/validator"
)

// Job argument keys understood by AUR builds.
const (
	ArgDMToken     = "DM_Token"
	ArgDMUser      = "DM_USER"
	ArgDMHost      = "DM_HOST"
	ArgDMNamespace = "DM_NAMESPACE"
	ArgAURPackage  = "REPO"
)

type aurPackage struct {
	Name string `validate:"required,excludesall= /"`
}

type dataManagerUpload struct {
	Username string `validate:"required"`
	Token    string `validate:"required"`
	Host     string `validate:"required"`
}

// AURBuild assembles an AUR build job. Create one with Client.NewAURBuild.
type AURBuild struct {
	client        *Client
	pkg           string
	args          map[string]string
	uploadType    jobs.UploadType
	disableCCache bool
	dm            *dataManagerUpload
}

// NewAURBuild starts an AUR build job for pkg.
func (c *Client) NewAURBuild(pkg string) *AURBuild {
	return &AURBuild{
		client:     c,
		pkg:        pkg,
		args:       map[string]string{ArgAURPackage: pkg},
		uploadType: jobs.UploadNone,
	}
}

// WithoutCCache turns off ccache for the build.
func (b *AURBuild) WithoutCCache() *AURBuild {
	b.disableCCache = true
	return b
}

// WithDataManager uploads the built package to a DataManager instance. An
// empty namespace uses the server default.
func (b *AURBuild) WithDataManager(username, token, host, namespace string) *AURBuild {
	b.uploadType = jobs.UploadDataManager
	b.args[ArgDMToken] = token
	b.args[ArgDMUser] = username
	b.args[ArgDMHost] = host
	if namespace != "" {
		b.args[ArgDMNamespace] = namespace
	}
	b.dm = &dataManagerUpload{Username: username, Token: token, Host: host}
	return b
}

// Args returns a copy of the job arguments.
func (b *AURBuild) Args() map[string]string {
	return maps.Clone(b.args)
}

// Package returns the AUR package name.
func (b *AURBuild) Package() string {
	return b.pkg
}

// UploadType returns the configured upload target.
func (b *AURBuild) UploadType() jobs.UploadType {
	return b.uploadType
}

// CreateJob submits the job.
func (b *AURBuild) CreateJob(ctx context.Context) (request.Result[AddJob], error) {
	if err := validator.ValidateStruct(aurPackage{Name: b.pkg}); err != nil {
		return request.Result[AddJob]{}, &request.Error{Kind: request.KindInvalidConfig, Err: fmt.Errorf("invalid aur build: %w", err)}
	}
	if b.dm != nil {
		if err := validator.ValidateStruct(b.dm); err != nil {
			return request.Result[AddJob]{}, &request.Error{Kind: request.KindInvalidConfig, Err: fmt.Errorf("invalid datamanager upload: %w", err)}
		}
	}
	return b.client.AddJob(ctx, jobs.TypeAUR, b.uploadType, b.Args(), b.disableCCache)
}
