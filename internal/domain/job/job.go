package job

import (
	"time"

	"studwerk/internal/common"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCompleted Status = "completed"
)

// ParseStatus decodes a status string strictly. Unknown values are an error,
// never coerced to a default.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusOpen, StatusClosed, StatusCompleted:
		return Status(value), nil
	default:
		return "", common.NewValidationError("invalid job status", map[string]string{"status": "status must be open, closed, or completed"})
	}
}

type Job struct {
	ID          common.UUID `json:"id"`
	EmployerID  common.UUID `json:"employer_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Pay         float64     `json:"pay"`
	Date        time.Time   `json:"date"`
	StartTime   string      `json:"start_time"`
	EndTime     string      `json:"end_time"`
	Category    string      `json:"category"`
	Location    string      `json:"location"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CanTransitionTo reports whether the status change is allowed. Transitions
// are monotonic: only an open job may move, and closed/completed are terminal.
func (j Job) CanTransitionTo(next Status) bool {
	if j.Status != StatusOpen {
		return false
	}
	return next == StatusClosed || next == StatusCompleted
}
