// Package jobs holds the remote build job model and its wire encoding.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Alwanly/remotebuild-client/pkg/ordinal"
)

// Status is the lifecycle state of a job.
type Status int

const (
	StatusWaiting Status = iota
	StatusCancelled
	StatusFailed
	StatusRunning
	StatusDone
	StatusPaused
)

// Type is the kind of build a job runs.
type Type int

const (
	TypeNoBuild Type = iota
	TypeAUR
)

// UploadType selects where build artifacts go.
type UploadType int

const (
	UploadNone UploadType = iota
	UploadDataManager
)

var (
	statusTable = ordinal.NewTable("job status",
		ordinal.Entry[Status]{Variant: StatusWaiting, Ordinal: 0},
		ordinal.Entry[Status]{Variant: StatusCancelled, Ordinal: 1},
		ordinal.Entry[Status]{Variant: StatusFailed, Ordinal: 2},
		ordinal.Entry[Status]{Variant: StatusRunning, Ordinal: 3},
		ordinal.Entry[Status]{Variant: StatusDone, Ordinal: 4},
		ordinal.Entry[Status]{Variant: StatusPaused, Ordinal: 5},
	)
	typeTable = ordinal.NewTable("job type",
		ordinal.Entry[Type]{Variant: TypeNoBuild, Ordinal: 0},
		ordinal.Entry[Type]{Variant: TypeAUR, Ordinal: 1},
	)
	uploadTypeTable = ordinal.NewTable("upload type",
		ordinal.Entry[UploadType]{Variant: UploadNone, Ordinal: 0},
		ordinal.Entry[UploadType]{Variant: UploadDataManager, Ordinal: 1},
	)
)

// ParseStatus decodes a wire ordinal.
func ParseStatus(n int64) (Status, error) { return statusTable.Decode(n) }

// Ordinal returns the wire value of s.
func (s Status) Ordinal() (uint8, error) { return statusTable.Encode(s) }

func (s Status) MarshalJSON() ([]byte, error) { return statusTable.MarshalJSON(s) }

func (s *Status) UnmarshalJSON(b []byte) error {
	v, err := statusTable.UnmarshalJSON(b)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsTerminal reports whether a job in this state will never change again.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusFailed || s == StatusDone
}

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusPaused:
		return "paused"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseType decodes a wire ordinal.
func ParseType(n int64) (Type, error) { return typeTable.Decode(n) }

// Ordinal returns the wire value of t.
func (t Type) Ordinal() (uint8, error) { return typeTable.Encode(t) }

func (t Type) MarshalJSON() ([]byte, error) { return typeTable.MarshalJSON(t) }

func (t *Type) UnmarshalJSON(b []byte) error {
	v, err := typeTable.UnmarshalJSON(b)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Type) String() string {
	switch t {
	case TypeNoBuild:
		return "nobuild"
	case TypeAUR:
		return "aur"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseUploadType decodes a wire ordinal.
func ParseUploadType(n int64) (UploadType, error) { return uploadTypeTable.Decode(n) }

// Ordinal returns the wire value of u.
func (u UploadType) Ordinal() (uint8, error) { return uploadTypeTable.Encode(u) }

func (u UploadType) MarshalJSON() ([]byte, error) { return uploadTypeTable.MarshalJSON(u) }

func (u *UploadType) UnmarshalJSON(b []byte) error {
	v, err := uploadTypeTable.UnmarshalJSON(b)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

func (u UploadType) String() string {
	switch u {
	case UploadNone:
		return "none"
	case UploadDataManager:
		return "datamanager"
	}
	return fmt.Sprintf("UploadType(%d)", int(u))
}

// Info describes one job as reported by the server.
type Info struct {
	ID           uint32
	Info         string
	Position     uint32
	BuildType    Type
	UploadType   UploadType
	Status       Status
	RunningSince time.Time
	Duration     time.Duration
}

type infoWire struct {
	ID           uint32      `json:"id"`
	Info         string      `json:"info"`
	Position     uint32      `json:"pos"`
	BuildType    *Type       `json:"jobtype"`
	UploadType   *UploadType `json:"uploadtype"`
	Status       *Status     `json:"state"`
	RunningSince string      `json:"rs"`
	Duration     int64       `json:"dr"`
}

func (i *Info) UnmarshalJSON(b []byte) error {
	var w infoWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch {
	case w.Status == nil:
		return errors.New("decode job info: missing state")
	case w.BuildType == nil:
		return errors.New("decode job info: missing jobtype")
	case w.UploadType == nil:
		return errors.New("decode job info: missing uploadtype")
	}
	rs, err := time.Parse(time.RFC3339, w.RunningSince)
	if err != nil {
		return fmt.Errorf("decode running since: %w", err)
	}
	if w.Duration < 0 {
		return fmt.Errorf("decode duration: negative value %d", w.Duration)
	}
	*i = Info{
		ID:           w.ID,
		Info:         w.Info,
		Position:     w.Position,
		BuildType:    *w.BuildType,
		UploadType:   *w.UploadType,
		Status:       *w.Status,
		RunningSince: rs,
		Duration:     time.Duration(w.Duration),
	}
	return nil
}

func (i Info) MarshalJSON() ([]byte, error) {
	return json.Marshal(infoWire{
		ID:           i.ID,
		Info:         i.Info,
		Position:     i.Position,
		BuildType:    &i.BuildType,
		UploadType:   &i.UploadType,
		Status:       &i.Status,
		RunningSince: i.RunningSince.Format(time.RFC3339Nano),
		Duration:     int64(i.Duration),
	})
}
