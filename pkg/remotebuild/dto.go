package remotebuild

import "github.com/Alwanly/remotebuild-client/pkg/jobs"

// ListJobsRequest limits how many jobs the server returns.
type ListJobsRequest struct {
	Limit int32 `json:"l"`
}

// JobRequest references a job by id.
type JobRequest struct {
	JobID uint32 `json:"id"`
}

// AddJobRequest creates a new job. Args are job-type specific.
type AddJobRequest struct {
	JobType       jobs.Type         `json:"buildtype"`
	Args          map[string]string `json:"args"`
	UploadType    jobs.UploadType   `json:"uploadtype"`
	DisableCCache bool              `json:"disableccache"`
}

// Credential is sent by login and register.
type Credential struct {
	MachineID string `json:"mid"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"pass" validate:"required"`
}

// ListJobs is the body of a job listing.
type ListJobs struct {
	Jobs []jobs.Info `json:"jobs"`
}

// AddJob reports the id and queue position of a created job.
type AddJob struct {
	ID       uint32 `json:"id"`
	Position uint32 `json:"pos"`
}

// Login carries the session token issued by login and register.
type Login struct {
	Token string `json:"token"`
}
