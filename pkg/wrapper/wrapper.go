// Package wrapper writes responses in the remote build envelope: HTTP 200,
// the application status and message headers, and an optional JSON body.
package wrapper

import (
	"fmt"

	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/gofiber/fiber/v2"
)

type Envelope struct {
	Success bool
	Message string
	Data    interface{}
}

func ResponseSuccess(message string, data interface{}) Envelope {
	return Envelope{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ResponseFailed(message string) Envelope {
	return Envelope{
		Success: false,
		Message: message,
	}
}

// Write sends e using the header names and status values of p.
func Write(c *fiber.Ctx, p request.Protocol, e Envelope) error {
	status := p.FailureStatus
	if e.Success {
		status = p.SuccessStatus
	}
	c.Set(p.StatusHeader, fmt.Sprint(status))
	c.Set(p.MessageHeader, e.Message)
	c.Status(fiber.StatusOK)
	if e.Success && e.Data != nil {
		return c.JSON(e.Data)
	}
	return nil
}
