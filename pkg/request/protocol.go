package request

// Protocol names the response headers carrying the application status and
// message, and the status value meaning success.
type Protocol struct {
	StatusHeader  string
	MessageHeader string
	// SuccessStatus is the only application status treated as success.
	SuccessStatus uint8
	FailureStatus uint8
}

// DefaultProtocol is the header protocol spoken by the remote build server.
var DefaultProtocol = Protocol{
	StatusHeader:  "x-response-status",
	MessageHeader: "x-response-message",
	SuccessStatus: 1,
	FailureStatus: 0,
}

// Endpoints is the server route table.
type Endpoints struct {
	Login    string
	Register string

	JobCreate string
	JobCancel string
	JobInfo   string
	Jobs      string

	JobPause  string
	JobResume string
}

// DefaultEndpoints are the routes of the remote build server.
var DefaultEndpoints = Endpoints{
	Login:     "/user/login",
	Register:  "/user/register",
	JobCreate: "/job/create",
	JobCancel: "/job/cancel",
	JobInfo:   "/job/info",
	Jobs:      "/jobs",
	JobPause:  "/job/state/pause",
	JobResume: "/job/state/resume",
}

// HeaderRequestID carries the per-call correlation id.
const HeaderRequestID = "X-Request-ID"
