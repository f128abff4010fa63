package app

import (
	"context"

	"studwerk/internal/common"
	"studwerk/internal/docstore"
	"studwerk/internal/domain/application"
	"studwerk/internal/domain/job"
	"studwerk/internal/events"
	"studwerk/internal/observability"
	"studwerk/internal/repository"
)

// LifecycleService enforces the cross-entity rules between jobs and
// applications. Each operation runs as one store transaction, so a failure
// anywhere leaves no partial effects visible.
type LifecycleService struct {
	store  docstore.Store
	jobs   *repository.JobRepository
	apps   *repository.ApplicationRepository
	events events.Publisher
}

func NewLifecycleService(store docstore.Store, jobs *repository.JobRepository, apps *repository.ApplicationRepository, publisher events.Publisher) *LifecycleService {
	return &LifecycleService{store: store, jobs: jobs, apps: apps, events: publisher}
}

// Accept transitions the application to accepted and rejects every pending
// sibling for the same job in the same transaction. It fails if any sibling
// is already accepted, so a job can never end up with two accepted
// applications, even under concurrent accepts.
func (s *LifecycleService) Accept(ctx context.Context, employerID, applicationID common.UUID) (*application.Application, error) {
	var accepted *application.Application
	var rejectedSiblings int
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		apps := s.apps.InTx(tx)
		a, err := apps.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if a.EmployerID != employerID {
			return common.NewError(common.CodeForbidden, "application belongs to another employer", nil)
		}
		if !a.CanTransitionTo(application.StatusAccepted) {
			return common.NewError(common.CodeInvalidTransition, "only pending applications can be accepted", nil)
		}
		acceptedStatus := application.StatusAccepted
		siblings, err := apps.ListByJob(ctx, a.JobID, &acceptedStatus)
		if err != nil {
			return err
		}
		if len(siblings) > 0 {
			return common.NewError(common.CodeConflict, "job already has an accepted application", nil)
		}
		accepted, err = apps.UpdateStatus(ctx, applicationID, application.StatusAccepted)
		if err != nil {
			return err
		}
		rejectedSiblings, err = apps.UpdateStatusAll(ctx, a.JobID, application.StatusPending, application.StatusRejected)
		return err
	})
	if err != nil {
		observability.LifecycleOps.WithLabelValues("accept", "error").Inc()
		return nil, err
	}
	observability.LifecycleOps.WithLabelValues("accept", "ok").Inc()
	changes := []events.Change{{Entity: events.EntityApplication, ID: accepted.ID.String(), Action: events.ActionStatusChanged}}
	if rejectedSiblings > 0 {
		changes = append(changes, events.Change{Entity: events.EntityJob, ID: accepted.JobID.String(), Action: events.ActionUpdated})
	}
	_ = s.events.Publish(ctx, changes...)
	return accepted, nil
}

// Reject transitions a pending application to rejected. No cascade.
func (s *LifecycleService) Reject(ctx context.Context, employerID, applicationID common.UUID) (*application.Application, error) {
	a, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		observability.LifecycleOps.WithLabelValues("reject", "error").Inc()
		return nil, err
	}
	if a.EmployerID != employerID {
		observability.LifecycleOps.WithLabelValues("reject", "error").Inc()
		return nil, common.NewError(common.CodeForbidden, "application belongs to another employer", nil)
	}
	if !a.CanTransitionTo(application.StatusRejected) {
		observability.LifecycleOps.WithLabelValues("reject", "error").Inc()
		return nil, common.NewError(common.CodeInvalidTransition, "only pending applications can be rejected", nil)
	}
	rejected, err := s.apps.UpdateStatus(ctx, applicationID, application.StatusRejected)
	if err != nil {
		observability.LifecycleOps.WithLabelValues("reject", "error").Inc()
		return nil, err
	}
	observability.LifecycleOps.WithLabelValues("reject", "ok").Inc()
	_ = s.events.Publish(ctx, events.Change{Entity: events.EntityApplication, ID: rejected.ID.String(), Action: events.ActionStatusChanged})
	return rejected, nil
}

// Complete marks an accepted application completed and completes its job in
// the same transaction. A job-side failure rolls everything back and is
// reported as a partial failure, so the caller can tell it apart from a
// clean failure.
func (s *LifecycleService) Complete(ctx context.Context, employerID, applicationID common.UUID) (*application.Application, *job.Job, error) {
	var completedApp *application.Application
	var completedJob *job.Job
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		apps := s.apps.InTx(tx)
		jobs := s.jobs.InTx(tx)
		a, err := apps.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if a.EmployerID != employerID {
			return common.NewError(common.CodeForbidden, "application belongs to another employer", nil)
		}
		if !a.CanTransitionTo(application.StatusCompleted) {
			return common.NewError(common.CodeInvalidTransition, "only accepted applications can be completed", nil)
		}
		completedApp, err = apps.UpdateStatus(ctx, applicationID, application.StatusCompleted)
		if err != nil {
			return err
		}
		completedJob, err = jobs.UpdateStatus(ctx, a.JobID, job.StatusCompleted)
		if err != nil {
			return common.NewError(common.CodePartialFailure, "application completed but job update failed", err)
		}
		return nil
	})
	if err != nil {
		observability.LifecycleOps.WithLabelValues("complete", "error").Inc()
		return nil, nil, err
	}
	observability.LifecycleOps.WithLabelValues("complete", "ok").Inc()
	_ = s.events.Publish(ctx,
		events.Change{Entity: events.EntityApplication, ID: completedApp.ID.String(), Action: events.ActionStatusChanged},
		events.Change{Entity: events.EntityJob, ID: completedJob.ID.String(), Action: events.ActionStatusChanged},
	)
	return completedApp, completedJob, nil
}
