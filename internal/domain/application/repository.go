package application

import (
	"context"

	"studwerk/internal/common"
)

type Repository interface {
	Create(ctx context.Context, a Application) (*Application, error)
	GetByID(ctx context.Context, id common.UUID) (*Application, error)
	FindByJobAndStudent(ctx context.Context, jobID, studentID common.UUID) (*Application, error)
	ListByStudent(ctx context.Context, studentID common.UUID, status *Status) ([]Application, error)
	ListByJob(ctx context.Context, jobID common.UUID, status *Status) ([]Application, error)
	ListByEmployer(ctx context.Context, employerID common.UUID, status *Status) ([]Application, error)
	UpdateStatus(ctx context.Context, id common.UUID, status Status) (*Application, error)
	// UpdateStatusAll transitions every application for the job currently in
	// the from status to the to status and returns how many changed.
	UpdateStatusAll(ctx context.Context, jobID common.UUID, from, to Status) (int, error)
	Delete(ctx context.Context, id common.UUID) error
	DeleteAllForJob(ctx context.Context, jobID common.UUID) error
}
