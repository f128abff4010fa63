package app

import (
	"context"

	"studwerk/internal/common"
	"studwerk/internal/domain/application"
	"studwerk/internal/domain/job"
	"studwerk/internal/events"
)

type ApplicationService struct {
	apps   application.Repository
	jobs   job.Repository
	events events.Publisher
}

func NewApplicationService(apps application.Repository, jobs job.Repository, publisher events.Publisher) *ApplicationService {
	return &ApplicationService{apps: apps, jobs: jobs, events: publisher}
}

func (s *ApplicationService) HasApplied(ctx context.Context, jobID, studentID common.UUID) (bool, error) {
	_, err := s.apps.FindByJobAndStudent(ctx, jobID, studentID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Apply creates a pending application. Guard order is fixed: the duplicate
// check runs before the job lookup, which runs before the availability
// check. The job's display fields are snapshotted into the application.
func (s *ApplicationService) Apply(ctx context.Context, jobID, studentID common.UUID) (*application.Application, error) {
	if studentID == "" {
		return nil, common.NewError(common.CodeValidation, "student id is required", nil)
	}
	applied, err := s.HasApplied(ctx, jobID, studentID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, common.NewError(common.CodeConflict, "already applied", nil)
	}
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status != job.StatusOpen {
		return nil, common.NewError(common.CodeValidation, "job is not open", nil)
	}
	a := application.Application{
		JobID:      jobID,
		StudentID:  studentID,
		EmployerID: j.EmployerID,
		Status:     application.StatusPending,
		Job: application.JobSnapshot{
			Title:     j.Title,
			Pay:       j.Pay,
			Location:  j.Location,
			Date:      j.Date,
			StartTime: j.StartTime,
			EndTime:   j.EndTime,
			Category:  j.Category,
		},
	}
	created, err := s.apps.Create(ctx, a)
	if err != nil {
		// The store's unique guard backstops the pre-check under races.
		if common.Is(err, common.CodeConflict) {
			return nil, common.NewError(common.CodeConflict, "already applied", err)
		}
		return nil, err
	}
	_ = s.events.Publish(ctx, events.Change{Entity: events.EntityApplication, ID: created.ID.String(), Action: events.ActionCreated})
	return created, nil
}

func (s *ApplicationService) Get(ctx context.Context, id common.UUID) (*application.Application, error) {
	return s.apps.GetByID(ctx, id)
}

func (s *ApplicationService) ListByStudent(ctx context.Context, studentID common.UUID, status *application.Status) ([]application.Application, error) {
	return s.apps.ListByStudent(ctx, studentID, status)
}

func (s *ApplicationService) ListByEmployer(ctx context.Context, employerID common.UUID, status *application.Status) ([]application.Application, error) {
	return s.apps.ListByEmployer(ctx, employerID, status)
}

// ListByJob returns the applications for one of the employer's jobs.
func (s *ApplicationService) ListByJob(ctx context.Context, employerID, jobID common.UUID) ([]application.Application, error) {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.EmployerID != employerID {
		return nil, common.NewError(common.CodeForbidden, "job belongs to another employer", nil)
	}
	return s.apps.ListByJob(ctx, jobID, nil)
}

// Withdraw deletes the student's own pending application.
func (s *ApplicationService) Withdraw(ctx context.Context, studentID, applicationID common.UUID) error {
	a, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if a.StudentID != studentID {
		return common.NewError(common.CodeForbidden, "application belongs to another student", nil)
	}
	if a.Status != application.StatusPending {
		return common.NewError(common.CodeInvalidTransition, "only pending applications can be withdrawn", nil)
	}
	if err := s.apps.Delete(ctx, applicationID); err != nil {
		return err
	}
	_ = s.events.Publish(ctx, events.Change{Entity: events.EntityApplication, ID: applicationID.String(), Action: events.ActionDeleted})
	return nil
}
