package app

import (
	"context"

	"studwerk/internal/common"
	"studwerk/internal/domain/application"
	"studwerk/internal/domain/job"
	"studwerk/internal/events"
)

type JobService struct {
	jobs   job.Repository
	apps   application.Repository
	events events.Publisher
}

func NewJobService(jobs job.Repository, apps application.Repository, publisher events.Publisher) *JobService {
	return &JobService{jobs: jobs, apps: apps, events: publisher}
}

func (s *JobService) Create(ctx context.Context, j job.Job) (*job.Job, error) {
	if j.EmployerID == "" {
		return nil, common.NewError(common.CodeValidation, "employer id is required", nil)
	}
	if err := validateJobFields(j); err != nil {
		return nil, err
	}
	j.Status = job.StatusOpen
	created, err := s.jobs.Create(ctx, j)
	if err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, events.Change{Entity: events.EntityJob, ID: created.ID.String(), Action: events.ActionCreated})
	return created, nil
}

func (s *JobService) Get(ctx context.Context, id common.UUID) (*job.Job, error) {
	return s.jobs.GetByID(ctx, id)
}

func (s *JobService) List(ctx context.Context, status *job.Status, limit int) ([]job.Job, error) {
	return s.jobs.List(ctx, status, limit)
}

func (s *JobService) ListByEmployer(ctx context.Context, employerID common.UUID, status *job.Status) ([]job.Job, error) {
	return s.jobs.ListByEmployer(ctx, employerID, status)
}

// Update overwrites the editable fields of an open job. Closed and completed
// jobs can no longer be edited.
func (s *JobService) Update(ctx context.Context, employerID common.UUID, j job.Job) (*job.Job, error) {
	current, err := s.jobs.GetByID(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	if current.EmployerID != employerID {
		return nil, common.NewError(common.CodeForbidden, "job belongs to another employer", nil)
	}
	if current.Status != job.StatusOpen {
		return nil, common.NewError(common.CodeValidation, "only open jobs can be edited", nil)
	}
	if err := validateJobFields(j); err != nil {
		return nil, err
	}
	j.EmployerID = current.EmployerID
	j.Status = current.Status
	j.CreatedAt = current.CreatedAt
	updated, err := s.jobs.Update(ctx, j)
	if err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, events.Change{Entity: events.EntityJob, ID: updated.ID.String(), Action: events.ActionUpdated})
	return updated, nil
}

// SetStatus applies an employer-requested status transition. Transitions are
// monotonic; anything but open -> closed/completed is rejected.
func (s *JobService) SetStatus(ctx context.Context, employerID, jobID common.UUID, status job.Status) (*job.Job, error) {
	current, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current.EmployerID != employerID {
		return nil, common.NewError(common.CodeForbidden, "job belongs to another employer", nil)
	}
	if !current.CanTransitionTo(status) {
		return nil, common.NewError(common.CodeInvalidTransition, "job status cannot change from "+string(current.Status)+" to "+string(status), nil)
	}
	updated, err := s.jobs.UpdateStatus(ctx, jobID, status)
	if err != nil {
		return nil, err
	}
	_ = s.events.Publish(ctx, events.Change{Entity: events.EntityJob, ID: updated.ID.String(), Action: events.ActionStatusChanged})
	return updated, nil
}

// Delete removes the job and every application referencing it. The
// applications go first; a failure in either step is surfaced, never
// swallowed, so a half-cascaded job cannot pass silently.
func (s *JobService) Delete(ctx context.Context, employerID, jobID common.UUID) error {
	current, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if current.EmployerID != employerID {
		return common.NewError(common.CodeForbidden, "job belongs to another employer", nil)
	}
	if err := s.apps.DeleteAllForJob(ctx, jobID); err != nil {
		return common.NewError(common.CodePartialFailure, "failed to delete applications for job", err)
	}
	if err := s.jobs.Delete(ctx, jobID); err != nil {
		return common.NewError(common.CodePartialFailure, "applications deleted but job removal failed", err)
	}
	_ = s.events.Publish(ctx, events.Change{Entity: events.EntityJob, ID: jobID.String(), Action: events.ActionDeleted})
	return nil
}

func validateJobFields(j job.Job) error {
	fields := map[string]string{}
	if j.Title == "" {
		fields["title"] = "title is required"
	}
	if j.Description == "" {
		fields["description"] = "description is required"
	}
	if j.Pay <= 0 {
		fields["pay"] = "pay must be positive"
	}
	if j.Date.IsZero() {
		fields["date"] = "date is required"
	}
	if j.StartTime == "" {
		fields["start_time"] = "start_time is required"
	}
	if j.EndTime == "" {
		fields["end_time"] = "end_time is required"
	}
	if j.Category == "" {
		fields["category"] = "category is required"
	}
	if j.Location == "" {
		fields["location"] = "location is required"
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid job", fields)
	}
	return nil
}
