package application

import (
	"time"

	"studwerk/internal/common"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// ParseStatus decodes a status string strictly. Unknown values are an error,
// never coerced to a default.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted:
		return Status(value), nil
	default:
		return "", common.NewValidationError("invalid application status", map[string]string{"status": "status must be pending, accepted, rejected, or completed"})
	}
}

// JobSnapshot is the copy of job fields taken at apply time. It is never
// updated afterwards, so the application stays renderable after the job is
// edited or deleted.
type JobSnapshot struct {
	Title     string    `json:"title"`
	Pay       float64   `json:"pay"`
	Location  string    `json:"location"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Category  string    `json:"category"`
}

type Application struct {
	ID         common.UUID `json:"id"`
	JobID      common.UUID `json:"job_id"`
	StudentID  common.UUID `json:"student_id"`
	EmployerID common.UUID `json:"employer_id"`
	Status     Status      `json:"status"`
	AppliedAt  time.Time   `json:"applied_at"`
	Job        JobSnapshot `json:"job"`
}

// CanTransitionTo reports whether the status change is allowed:
// pending -> accepted/rejected, accepted -> completed. Rejected and
// completed are terminal. Withdrawal is a deletion, not a transition.
func (a Application) CanTransitionTo(next Status) bool {
	switch a.Status {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected
	case StatusAccepted:
		return next == StatusCompleted
	default:
		return false
	}
}
