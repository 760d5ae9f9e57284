// Package request sends one call to the remote build server and interprets
// the response envelope: the HTTP status, the two application headers
// (status and message) and, on success, a JSON body.
//
// A Request is built with New, adjusted with the With* methods and executed
// exactly once with ExecuteVoid or ExecuteDecoding. A second execution fails
// with KindConsumed and nothing is sent.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Alwanly/remotebuild-client/pkg/logger"
	"github.com/google/uuid"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// None is the payload type of requests without a body.
type None struct{}

// Request is a single-use call to one endpoint.
type Request[P any] struct {
	config     Config
	endpoint   string
	method     string
	auth       *Authorization
	payload    P
	hasPayload bool

	client   Doer
	protocol Protocol
	log      *logger.CanonicalLogger

	sent atomic.Bool
}

// Result is a successful application response.
type Result[U any] struct {
	Response   U
	Message    string
	StatusCode uint8
}

// New creates a GET request carrying payload as its JSON body.
func New[P any](cfg Config, endpoint string, payload P) *Request[P] {
	r := Bare[P](cfg, endpoint)
	r.payload = payload
	r.hasPayload = true
	return r
}

// Bare creates a GET request without a body.
func Bare[P any](cfg Config, endpoint string) *Request[P] {
	return &Request[P]{
		config:   cfg,
		endpoint: endpoint,
		method:   http.MethodGet,
		client:   http.DefaultClient,
		protocol: DefaultProtocol,
		log:      logger.Nop(),
	}
}

// WithAuth attaches an Authorization header. It has no effect once the
// request was executed.
func (r *Request[P]) WithAuth(auth Authorization) *Request[P] {
	if r.sent.Load() {
		return r
	}
	r.auth = &auth
	return r
}

// WithMethod overrides the HTTP method.
func (r *Request[P]) WithMethod(method string) *Request[P] {
	if r.sent.Load() {
		return r
	}
	r.method = method
	return r
}

// WithClient sets the transport. Defaults to http.DefaultClient.
func (r *Request[P]) WithClient(c Doer) *Request[P] {
	if r.sent.Load() || c == nil {
		return r
	}
	r.client = c
	return r
}

// WithProtocol replaces the envelope header names and status codes.
func (r *Request[P]) WithProtocol(p Protocol) *Request[P] {
	if r.sent.Load() {
		return r
	}
	r.protocol = p
	return r
}

// WithLogger sets the logger used for request debug output.
func (r *Request[P]) WithLogger(log *logger.CanonicalLogger) *Request[P] {
	if r.sent.Load() || log == nil {
		return r
	}
	r.log = log
	return r
}

// ExecuteVoid sends the request and discards the body.
func (r *Request[P]) ExecuteVoid(ctx context.Context) error {
	resp, msg, status, err := r.send(ctx)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if status != r.protocol.SuccessStatus {
		return ServerError(msg)
	}
	return nil
}

// ExecuteDecoding sends r and decodes a successful body into U.
func ExecuteDecoding[U any, P any](ctx context.Context, r *Request[P]) (Result[U], error) {
	var res Result[U]

	resp, msg, status, err := r.send(ctx)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()

	if status != r.protocol.SuccessStatus {
		_, _ = io.Copy(io.Discard, resp.Body)
		return res, ServerError(msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(&res.Response); err != nil {
		return Result[U]{}, &Error{Kind: KindDecode, Err: err}
	}
	res.Message = msg
	res.StatusCode = status
	return res, nil
}

// target joins the base URL and the endpoint path.
func (r *Request[P]) target() (string, error) {
	base, err := url.Parse(r.config.URL)
	if err != nil {
		return "", &Error{Kind: KindInvalidConfig, Err: fmt.Errorf("parse base url: %w", err)}
	}
	if base.Scheme == "" || base.Host == "" {
		return "", &Error{Kind: KindInvalidConfig, Err: fmt.Errorf("base url %q is not absolute", r.config.URL)}
	}
	return base.JoinPath(r.endpoint).String(), nil
}

// send performs steps shared by both entry points: it returns the open
// response together with the parsed application message and status.
func (r *Request[P]) send(ctx context.Context) (*http.Response, string, uint8, error) {
	if !r.sent.CompareAndSwap(false, true) {
		return nil, "", 0, ErrConsumed
	}

	target, err := r.target()
	if err != nil {
		return nil, "", 0, err
	}

	var body io.Reader
	var raw []byte
	if r.hasPayload {
		raw, err = json.Marshal(r.payload)
		if err != nil {
			return nil, "", 0, &Error{Kind: KindRequest, Err: fmt.Errorf("failed to marshal payload: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, "", 0, &Error{Kind: KindRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if r.hasPayload {
		req.Header.Set("Content-Type", "application/json")
		buf := raw
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	}
	if r.auth != nil {
		req.Header.Set("Authorization", r.auth.HeaderValue())
	}

	requestID := logger.GetCorrelationID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, requestID)
	log := r.log.WithRequestID(requestID)

	log.Debug("sending request",
		logger.String("method", r.method),
		logger.String(logger.FieldEndpoint, r.endpoint),
	)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		log.HTTPError(r.method, r.endpoint, 0, err)
		return nil, "", 0, &Error{Kind: KindRequest, Err: err}
	}
	log.HTTP(r.method, r.endpoint, resp.StatusCode, time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, "", 0, HTTPNotOk(resp.StatusCode)
	}

	msg, status, err := r.protocol.parse(resp.Header)
	if err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, "", 0, err
	}

	log.Debug("response envelope",
		logger.Int(logger.FieldAppStatus, int(status)),
		logger.String(logger.FieldAppMessage, msg),
	)
	return resp, msg, status, nil
}

// parse reads the application message and status headers.
func (p Protocol) parse(h http.Header) (string, uint8, error) {
	statusValues := h.Values(p.StatusHeader)
	messageValues := h.Values(p.MessageHeader)
	if len(statusValues) == 0 || len(messageValues) == 0 {
		return "", 0, &Error{Kind: KindInvalidHeaders, Err: fmt.Errorf("missing %s or %s", p.StatusHeader, p.MessageHeader)}
	}

	status, err := strconv.ParseUint(strings.TrimSpace(statusValues[0]), 10, 8)
	if err != nil {
		return "", 0, &Error{Kind: KindInvalidHeaders, Err: fmt.Errorf("parse %s: %w", p.StatusHeader, err)}
	}
	return messageValues[0], uint8(status), nil
}
