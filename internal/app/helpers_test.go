package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"studwerk/internal/common"
	"studwerk/internal/docstore"
	"studwerk/internal/docstore/memory"
	"studwerk/internal/domain/application"
	"studwerk/internal/domain/job"
	"studwerk/internal/events"
	"studwerk/internal/repository"
)

type capturePublisher struct {
	mu      sync.Mutex
	changes []events.Change
}

func (p *capturePublisher) Publish(ctx context.Context, changes ...events.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, changes...)
	return nil
}

type harness struct {
	store     docstore.Store
	jobs      *repository.JobRepository
	apps      *repository.ApplicationRepository
	jobSvc    *JobService
	appSvc    *ApplicationService
	lifecycle *LifecycleService
	published *capturePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, memory.New(memory.WithUniqueGuard("applications", "job_id", "student_id")))
}

func newHarnessWithStore(t *testing.T, store docstore.Store) *harness {
	t.Helper()
	jobs := repository.NewJobRepository(store)
	apps := repository.NewApplicationRepository(store)
	published := &capturePublisher{}
	return &harness{
		store:     store,
		jobs:      jobs,
		apps:      apps,
		jobSvc:    NewJobService(jobs, apps, published),
		appSvc:    NewApplicationService(apps, jobs, published),
		lifecycle: NewLifecycleService(store, jobs, apps, published),
		published: published,
	}
}

func (h *harness) createJob(t *testing.T, employerID common.UUID) *job.Job {
	t.Helper()
	created, err := h.jobSvc.Create(context.Background(), job.Job{
		EmployerID:  employerID,
		Title:       "event staff",
		Description: "help run a weekend fair",
		Pay:         13,
		Date:        time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
		StartTime:   "10:00",
		EndTime:     "18:00",
		Category:    "events",
		Location:    "Munich",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return created
}

func (h *harness) apply(t *testing.T, jobID, studentID common.UUID) *application.Application {
	t.Helper()
	created, err := h.appSvc.Apply(context.Background(), jobID, studentID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return created
}

// faultStore injects update failures into one collection, after allowing a
// number of updates through, to exercise mid-operation failures.
type faultStore struct {
	docstore.Store
	collection  string
	allowBefore int
	updates     int
}

var errInjected = errors.New("injected fault")

func (s *faultStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return s.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return fn(ctx, &faultTx{tx: tx, store: s})
	})
}

type faultTx struct {
	tx    docstore.Tx
	store *faultStore
}

func (t *faultTx) Collection(name string) docstore.Collection {
	col := t.tx.Collection(name)
	if name == t.store.collection {
		return &faultCollection{Collection: col, store: t.store}
	}
	return col
}

type faultCollection struct {
	docstore.Collection
	store *faultStore
}

func (c *faultCollection) Update(ctx context.Context, id string, fields map[string]any) error {
	c.store.updates++
	if c.store.updates > c.store.allowBefore {
		return errInjected
	}
	return c.Collection.Update(ctx, id, fields)
}
