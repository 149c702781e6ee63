package models

import "time"

// BuildStatus is the CI provider's status code for a build.
type BuildStatus int

const (
	BuildStatusNotFinished        BuildStatus = 0
	BuildStatusSuccess            BuildStatus = 1
	BuildStatusFailed             BuildStatus = 2
	BuildStatusAborted            BuildStatus = 3
	BuildStatusAbortedWithSuccess BuildStatus = 4
)

// String returns the display name of the status.
func (s BuildStatus) String() string {
	switch s {
	case BuildStatusNotFinished:
		return "not-finished"
	case BuildStatusSuccess:
		return "success"
	case BuildStatusFailed:
		return "failed"
	case BuildStatusAborted:
		return "aborted"
	case BuildStatusAbortedWithSuccess:
		return "aborted-with-success"
	default:
		return "unknown"
	}
}

// IsFinished reports whether the build reached a terminal state.
// Terminal states never revert.
func (s BuildStatus) IsFinished() bool {
	return s != BuildStatusNotFinished
}

// Build is a read-through projection of one CI run. It is never created or
// mutated locally.
type Build struct {
	Slug          string      `json:"slug"`
	Number        int         `json:"build_number"`
	Status        BuildStatus `json:"status"`
	StatusText    string      `json:"status_text"`
	Branch        string      `json:"branch"`
	Workflow      string      `json:"triggered_workflow"`
	CommitHash    string      `json:"commit_hash,omitempty"`
	CommitMessage string      `json:"commit_message,omitempty"`
	AbortReason   string      `json:"abort_reason,omitempty"`
	TriggeredBy   string      `json:"triggered_by,omitempty"`
	TriggeredAt   time.Time   `json:"triggered_at"`
	StartedAt     *time.Time  `json:"started_on_worker_at,omitempty"`
	FinishedAt    *time.Time  `json:"finished_at,omitempty"`
}

// Duration returns how long the build ran, or has been running relative to now.
// Zero when the build has not started on a worker yet.
func (b *Build) Duration(now time.Time) time.Duration {
	if b.StartedAt == nil {
		return 0
	}
	end := now
	if b.FinishedAt != nil {
		end = *b.FinishedAt
	}
	if end.Before(*b.StartedAt) {
		return 0
	}
	return end.Sub(*b.StartedAt)
}
