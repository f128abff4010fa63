package job

import (
	"context"

	"studwerk/internal/common"
)

type Repository interface {
	Create(ctx context.Context, j Job) (*Job, error)
	GetByID(ctx context.Context, id common.UUID) (*Job, error)
	List(ctx context.Context, status *Status, limit int) ([]Job, error)
	ListByEmployer(ctx context.Context, employerID common.UUID, status *Status) ([]Job, error)
	Update(ctx context.Context, j Job) (*Job, error)
	UpdateStatus(ctx context.Context, id common.UUID, status Status) (*Job, error)
	Delete(ctx context.Context, id common.UUID) error
}
