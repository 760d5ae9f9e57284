package request

import "fmt"

// Config identifies the server and the caller. It is passed by value into
// every Request, so concurrent calls never share it.
type Config struct {
	// URL of the remote build server
	URL string `validate:"required,url"`
	// MachineID is the local machine id, usually from /etc/machine-id
	MachineID string
	// Username of the remote build account
	Username string
	// Token is the session token used for Bearer authorization
	Token string
}

// Scheme is an Authorization scheme.
type Scheme int

const (
	Bearer Scheme = iota
	Basic
)

func (s Scheme) String() string {
	switch s {
	case Bearer:
		return "Bearer"
	case Basic:
		return "Basic"
	}
	return fmt.Sprintf("Scheme(%d)", int(s))
}

// Authorization is rendered as a single "<scheme> <credential>" header value.
type Authorization struct {
	Scheme     Scheme
	Credential string
}

// BearerAuth builds a Bearer authorization from a session token.
func BearerAuth(token string) Authorization {
	return Authorization{Scheme: Bearer, Credential: token}
}

// HeaderValue renders the Authorization header value.
func (a Authorization) HeaderValue() string {
	return a.Scheme.String() + " " + a.Credential
}
