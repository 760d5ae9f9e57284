// Package remotebuild is a typed client for the remote build server.
//
// Every method builds one payload, attaches the session token where the
// endpoint needs it and runs a single request through pkg/request. Errors are
// *request.Error values; nothing is retried.
package remotebuild

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Alwanly/remotebuild-client/pkg/jobs"
	"github.com/Alwanly/remotebuild-client/pkg/logger"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/Alwanly/remotebuild-client/pkg/validator"
)

// Client talks to one remote build server. It holds no mutable state and is
// safe for concurrent use.
type Client struct {
	config    request.Config
	endpoints request.Endpoints
	protocol  request.Protocol
	http      request.Doer
	log       *logger.CanonicalLogger
}

// Option configures a Client.
type Option func(c *Client)

// WithHTTPClient sets the transport used for every request.
func WithHTTPClient(d request.Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithTimeout uses a dedicated *http.Client with the given timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithLogger logs requests through log under the remotebuild component.
func WithLogger(log *logger.CanonicalLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log.Component("remotebuild")
		}
	}
}

// WithEndpoints replaces the route table.
func WithEndpoints(e request.Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e
	}
}

// WithProtocol replaces the response header protocol.
func WithProtocol(p request.Protocol) Option {
	return func(c *Client) {
		c.protocol = p
	}
}

// NewClient validates cfg and returns a client for it.
func NewClient(cfg request.Config, opts ...Option) (*Client, error) {
	if err := validator.ValidateStruct(cfg); err != nil {
		return nil, &request.Error{Kind: request.KindInvalidConfig, Err: fmt.Errorf("invalid request config: %w", err)}
	}

	c := &Client{
		config:    cfg,
		endpoints: request.DefaultEndpoints,
		protocol:  request.DefaultProtocol,
		http:      http.DefaultClient,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the request config.
func (c *Client) Config() request.Config {
	return c.config
}

// WithToken returns a copy of c that authorizes with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.config.Token = token
	return &cp
}

// Auth returns the Bearer authorization built from the configured token.
func (c *Client) Auth() request.Authorization {
	return request.BearerAuth(c.config.Token)
}

func newRequest[P any](c *Client, endpoint string, payload P) *request.Request[P] {
	return request.New(c.config, endpoint, payload).
		WithClient(c.http).
		WithProtocol(c.protocol).
		WithLogger(c.log)
}

// ListJobs lists running and past jobs, at most limit of them.
func (c *Client) ListJobs(ctx context.Context, limit int32) (request.Result[ListJobs], error) {
	req := newRequest(c, c.endpoints.Jobs, ListJobsRequest{Limit: limit}).
		WithAuth(c.Auth())
	return request.ExecuteDecoding[ListJobs](ctx, req)
}

// CancelJob cancels a job.
func (c *Client) CancelJob(ctx context.Context, jobID uint32) error {
	return newRequest(c, c.endpoints.JobCancel, JobRequest{JobID: jobID}).
		WithAuth(c.Auth()).
		WithMethod(http.MethodPost).
		ExecuteVoid(ctx)
}

// JobInfo returns information about one job.
func (c *Client) JobInfo(ctx context.Context, jobID uint32) (request.Result[jobs.Info], error) {
	req := newRequest(c, c.endpoints.JobInfo, JobRequest{JobID: jobID}).
		WithAuth(c.Auth()).
		WithMethod(http.MethodGet)
	return request.ExecuteDecoding[jobs.Info](ctx, req)
}

// AddJob creates a job and returns its id and queue position.
func (c *Client) AddJob(ctx context.Context, jobType jobs.Type, uploadType jobs.UploadType, args map[string]string, disableCCache bool) (request.Result[AddJob], error) {
	req := newRequest(c, c.endpoints.JobCreate, AddJobRequest{
		JobType:       jobType,
		Args:          args,
		UploadType:    uploadType,
		DisableCCache: disableCCache,
	}).
		WithAuth(c.Auth()).
		WithMethod(http.MethodPut)
	return request.ExecuteDecoding[AddJob](ctx, req)
}

// SetJobState pauses (StatusPaused) or resumes (StatusRunning) a job. Any
// other state fails with request.ErrInvalidState without contacting the
// server.
func (c *Client) SetJobState(ctx context.Context, jobID uint32, state jobs.Status) error {
	var endpoint string
	switch state {
	case jobs.StatusPaused:
		endpoint = c.endpoints.JobPause
	case jobs.StatusRunning:
		endpoint = c.endpoints.JobResume
	default:
		return &request.Error{Kind: request.KindInvalidState, Err: fmt.Errorf("cannot set job state to %s", state)}
	}

	return newRequest(c, endpoint, JobRequest{JobID: jobID}).
		WithAuth(c.Auth()).
		WithMethod(http.MethodPut).
		ExecuteVoid(ctx)
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (request.Result[Login], error) {
	return c.credentialRequest(ctx, c.endpoints.Login, username, password)
}

// Register creates an account and returns its first session token.
func (c *Client) Register(ctx context.Context, username, password string) (request.Result[Login], error) {
	return c.credentialRequest(ctx, c.endpoints.Register, username, password)
}

func (c *Client) credentialRequest(ctx context.Context, endpoint, username, password string) (request.Result[Login], error) {
	cred := Credential{
		MachineID: c.config.MachineID,
		Username:  username,
		Password:  password,
	}
	if err := validator.ValidateStruct(cred); err != nil {
		return request.Result[Login]{}, &request.Error{Kind: request.KindInvalidConfig, Err: fmt.Errorf("invalid credential: %w", err)}
	}

	req := newRequest(c, endpoint, cred).WithMethod(http.MethodPost)
	return request.ExecuteDecoding[Login](ctx, req)
}
