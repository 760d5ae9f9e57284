// Package fakeserver is an in-memory remote build server speaking the
// envelope protocol. Tests drive pkg/remotebuild against it without a network.
package fakeserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Alwanly/remotebuild-client/pkg/jobs"
	"github.com/Alwanly/remotebuild-client/pkg/logger"
	"github.com/Alwanly/remotebuild-client/pkg/remotebuild"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/Alwanly/remotebuild-client/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// BaseURL is the address clients should be configured with.
const BaseURL = "http://remotebuild.test"

type Server struct {
	App *fiber.App

	protocol  request.Protocol
	endpoints request.Endpoints
	log       *logger.CanonicalLogger

	mu      sync.Mutex
	users   map[string]string
	tokens  map[string]string
	jobs    map[uint32]*jobs.Info
	args    map[uint32]remotebuild.AddJobRequest
	nextID  uint32
	calls   map[string]int
	headers map[string]http.Header
}

func New(log *logger.CanonicalLogger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		protocol:  request.DefaultProtocol,
		endpoints: request.DefaultEndpoints,
		log:       log.Component("fakeserver"),
		users:     make(map[string]string),
		tokens:    make(map[string]string),
		jobs:      make(map[uint32]*jobs.Info),
		args:      make(map[uint32]remotebuild.AddJobRequest),
		nextID:    1,
		calls:     make(map[string]int),
		headers:   make(map[string]http.Header),
	}

	s.App = fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: ErrorHandler(s.log)})
	s.App.Use(RequestLogger(s.log), s.record)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	e := s.endpoints
	s.App.Post(e.Login, s.login)
	s.App.Post(e.Register, s.register)

	auth := BearerAuth(s.protocol, s.lookupToken, s.log)
	s.App.Get(e.Jobs, auth, s.listJobs)
	s.App.Get(e.JobInfo, auth, s.jobInfo)
	s.App.Put(e.JobCreate, auth, s.createJob)
	s.App.Post(e.JobCancel, auth, s.cancelJob)
	s.App.Put(e.JobPause, auth, s.setState(jobs.StatusRunning, jobs.StatusPaused, "job is not running"))
	s.App.Put(e.JobResume, auth, s.setState(jobs.StatusPaused, jobs.StatusRunning, "job is not paused"))
}

// Doer routes requests into the fiber app in-process.
func (s *Server) Doer() request.Doer {
	return appDoer{handler: s.App.Handler()}
}

type appDoer struct {
	handler fasthttp.RequestHandler
}

func (d appDoer) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	var freq fasthttp.Request
	freq.Header.SetMethod(req.Method)
	freq.SetRequestURI(req.URL.RequestURI())
	freq.Header.SetHost(req.URL.Host)
	for k, vs := range req.Header {
		for _, v := range vs {
			freq.Header.Add(k, v)
		}
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		freq.SetBody(body)
	}

	var fctx fasthttp.RequestCtx
	fctx.Init(&freq, nil, nil)
	d.handler(&fctx)

	code := fctx.Response.StatusCode()
	resp := &http.Response{
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		StatusCode:    code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header),
		Body:          io.NopCloser(bytes.NewReader(append([]byte(nil), fctx.Response.Body()...))),
		ContentLength: int64(len(fctx.Response.Body())),
		Request:       req,
	}
	fctx.Response.Header.VisitAll(func(k, v []byte) {
		resp.Header.Add(string(k), string(v))
	})
	return resp, nil
}

// AddUser registers an account.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// IssueToken returns a valid session token for username.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(username)
}

func (s *Server) issueTokenLocked(username string) string {
	token := uuid.NewString()
	s.tokens[token] = username
	return token
}

func (s *Server) lookupToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// SetStatus forces the state of a job.
func (s *Server) SetStatus(id uint32, status jobs.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		j.Status = status
		if status == jobs.StatusRunning && j.RunningSince.IsZero() {
			j.RunningSince = time.Now().UTC()
		}
	}
}

// Job returns a snapshot of a stored job.
func (s *Server) Job(id uint32) (jobs.Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return jobs.Info{}, false
	}
	return *j, true
}

// JobArgs returns the create payload a job was submitted with.
func (s *Server) JobArgs(id uint32) (remotebuild.AddJobRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.args[id]
	return a, ok
}

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls counts every request the server received.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// LastHeaders returns the request headers of the last call to path.
func (s *Server) LastHeaders(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[path].Clone()
}

func (s *Server) record(c *fiber.Ctx) error {
	h := make(http.Header)
	c.Request().Header.VisitAll(func(k, v []byte) {
		h.Add(string(k), string(v))
	})

	s.mu.Lock()
	s.calls[c.Path()]++
	s.headers[c.Path()] = h
	s.mu.Unlock()
	return c.Next()
}

func (s *Server) reply(c *fiber.Ctx, e wrapper.Envelope) error {
	logger.AddToContext(c.UserContext(),
		logger.Bool(logger.FieldSuccess, e.Success),
		logger.String(logger.FieldAppMessage, e.Message),
	)
	return wrapper.Write(c, s.protocol, e)
}

func decode[T any](c *fiber.Ctx) (T, bool) {
	var v T
	if err := json.Unmarshal(c.Body(), &v); err != nil {
		return v, false
	}
	return v, true
}

func (s *Server) login(c *fiber.Ctx) error {
	cred, ok := decode[remotebuild.Credential](c)
	if !ok {
		return s.reply(c, wrapper.ResponseFailed("invalid payload"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pass, ok := s.users[cred.Username]; !ok || pass != cred.Password {
		return s.reply(c, wrapper.ResponseFailed("invalid credentials"))
	}
	return s.reply(c, wrapper.ResponseSuccess("logged in", remotebuild.Login{Token: s.issueTokenLocked(cred.Username)}))
}

func (s *Server) register(c *fiber.Ctx) error {
	cred, ok := decode[remotebuild.Credential](c)
	if !ok || cred.Username == "" || cred.Password == "" {
		return s.reply(c, wrapper.ResponseFailed("invalid payload"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[cred.Username]; exists {
		return s.reply(c, wrapper.ResponseFailed("user already exists"))
	}
	s.users[cred.Username] = cred.Password
	return s.reply(c, wrapper.ResponseSuccess("registered", remotebuild.Login{Token: s.issueTokenLocked(cred.Username)}))
}

func (s *Server) listJobs(c *fiber.Ctx) error {
	req, ok := decode[remotebuild.ListJobsRequest](c)
	if !ok {
		return s.reply(c, wrapper.ResponseFailed("invalid payload"))
	}

	s.mu.Lock()
	ids := make([]uint32, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if req.Limit > 0 && int(req.Limit) < len(ids) {
		ids = ids[len(ids)-int(req.Limit):]
	}
	list := remotebuild.ListJobs{Jobs: make([]jobs.Info, 0, len(ids))}
	for _, id := range ids {
		list.Jobs = append(list.Jobs, *s.jobs[id])
	}
	s.mu.Unlock()

	return s.reply(c, wrapper.ResponseSuccess("jobs listed", list))
}

func (s *Server) jobInfo(c *fiber.Ctx) error {
	req, ok := decode[remotebuild.JobRequest](c)
	if !ok {
		return s.reply(c, wrapper.ResponseFailed("invalid payload"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[req.JobID]
	if !ok {
		return s.reply(c, wrapper.ResponseFailed("job not found"))
	}
	return s.reply(c, wrapper.ResponseSuccess("job info", *j))
}

func (s *Server) createJob(c *fiber.Ctx) error {
	req, ok := decode[remotebuild.AddJobRequest](c)
	if !ok {
		return s.reply(c, wrapper.ResponseFailed("invalid payload"))
	}
	if req.JobType == jobs.TypeNoBuild {
		return s.reply(c, wrapper.ResponseFailed("invalid job type"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var waiting uint32
	for _, j := range s.jobs {
		if j.Status == jobs.StatusWaiting {
			waiting++
		}
	}
	id := s.nextID
	s.nextID++
	s.jobs[id] = &jobs.Info{
		ID:           id,
		Info:         req.Args[remotebuild.ArgAURPackage],
		Position:     waiting + 1,
		BuildType:    req.JobType,
		UploadType:   req.UploadType,
		Status:       jobs.StatusWaiting,
		RunningSince: time.Unix(0, 0).UTC(),
	}
	s.args[id] = req
	return s.reply(c, wrapper.ResponseSuccess("job added", remotebuild.AddJob{ID: id, Position: waiting + 1}))
}

func (s *Server) cancelJob(c *fiber.Ctx) error {
	req, ok := decode[remotebuild.JobRequest](c)
	if !ok {
		return s.reply(c, wrapper.ResponseFailed("invalid payload"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[req.JobID]
	if !ok {
		return s.reply(c, wrapper.ResponseFailed("job not found"))
	}
	if j.Status.IsTerminal() {
		return s.reply(c, wrapper.ResponseFailed("job already finished"))
	}
	j.Status = jobs.StatusCancelled
	return s.reply(c, wrapper.ResponseSuccess("job cancelled", nil))
}

func (s *Server) setState(from, to jobs.Status, refusal string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, ok := decode[remotebuild.JobRequest](c)
		if !ok {
			return s.reply(c, wrapper.ResponseFailed("invalid payload"))
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		j, ok := s.jobs[req.JobID]
		if !ok {
			return s.reply(c, wrapper.ResponseFailed("job not found"))
		}
		if j.Status != from {
			return s.reply(c, wrapper.ResponseFailed(refusal))
		}
		j.Status = to
		return s.reply(c, wrapper.ResponseSuccess("job "+to.String(), nil))
	}
}
