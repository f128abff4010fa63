package app

import (
	"context"
	"sync"
	"testing"

	"studwerk/internal/common"
	"studwerk/internal/domain/application"
	"studwerk/internal/domain/job"
)

func TestApplySnapshotsJobFields(t *testing.T) {
	h := newHarness(t)
	j := h.createJob(t, common.NewUUID())
	student := common.NewUUID()

	a, err := h.appSvc.Apply(context.Background(), j.ID, student)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if a.Status != application.StatusPending {
		t.Fatalf("got status %q, want pending", a.Status)
	}
	if a.EmployerID != j.EmployerID {
		t.Fatalf("got employer %s, want %s", a.EmployerID, j.EmployerID)
	}
	if a.Job.Title != j.Title || a.Job.Pay != j.Pay || a.Job.Location != j.Location {
		t.Fatalf("snapshot %+v does not match job", a.Job)
	}
	stored, err := h.apps.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Job.Category != j.Category || stored.Job.StartTime != j.StartTime {
		t.Fatalf("stored snapshot %+v does not match job", stored.Job)
	}
}

func TestApplyTwiceConflicts(t *testing.T) {
	h := newHarness(t)
	j := h.createJob(t, common.NewUUID())
	student := common.NewUUID()
	h.apply(t, j.ID, student)

	_, err := h.appSvc.Apply(context.Background(), j.ID, student)
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestApplyClosedJob(t *testing.T) {
	h := newHarness(t)
	employer := common.NewUUID()
	j := h.createJob(t, employer)
	if _, err := h.jobSvc.SetStatus(context.Background(), employer, j.ID, job.StatusClosed); err != nil {
		t.Fatalf("close job: %v", err)
	}

	_, err := h.appSvc.Apply(context.Background(), j.ID, common.NewUUID())
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("got %v, want validation", err)
	}
}

func TestApplyMissingJob(t *testing.T) {
	h := newHarness(t)

	_, err := h.appSvc.Apply(context.Background(), common.NewUUID(), common.NewUUID())
	if !common.Is(err, common.CodeNotFound) {
		t.Fatalf("got %v, want not_found", err)
	}
}

// The duplicate check outranks everything else: a student who already applied
// gets the conflict answer even after the job closed.
func TestApplyDuplicateOutranksClosedJob(t *testing.T) {
	h := newHarness(t)
	employer := common.NewUUID()
	j := h.createJob(t, employer)
	student := common.NewUUID()
	h.apply(t, j.ID, student)
	if _, err := h.jobSvc.SetStatus(context.Background(), employer, j.ID, job.StatusClosed); err != nil {
		t.Fatalf("close job: %v", err)
	}

	_, err := h.appSvc.Apply(context.Background(), j.ID, student)
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
}

// Racing applies for one (student, job) pair must produce exactly one
// application: the pre-check can miss an in-flight sibling, so the store's
// unique guard has to catch the rest.
func TestConcurrentApplySingleApplication(t *testing.T) {
	h := newHarness(t)
	j := h.createJob(t, common.NewUUID())
	student := common.NewUUID()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.appSvc.Apply(context.Background(), j.ID, student)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !common.Is(err, common.CodeConflict) {
				t.Errorf("got %v, want conflict", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("%d applies succeeded, want exactly 1", succeeded)
	}
	items, err := h.appSvc.ListByStudent(context.Background(), student, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("student has %d applications, want 1", len(items))
	}
}

func TestHasApplied(t *testing.T) {
	h := newHarness(t)
	j := h.createJob(t, common.NewUUID())
	student := common.NewUUID()

	applied, err := h.appSvc.HasApplied(context.Background(), j.ID, student)
	if err != nil {
		t.Fatalf("has applied: %v", err)
	}
	if applied {
		t.Fatal("expected false before applying")
	}
	h.apply(t, j.ID, student)
	applied, err = h.appSvc.HasApplied(context.Background(), j.ID, student)
	if err != nil {
		t.Fatalf("has applied: %v", err)
	}
	if !applied {
		t.Fatal("expected true after applying")
	}
}

func TestWithdrawPending(t *testing.T) {
	h := newHarness(t)
	j := h.createJob(t, common.NewUUID())
	student := common.NewUUID()
	a := h.apply(t, j.ID, student)

	if err := h.appSvc.Withdraw(context.Background(), student, a.ID); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := h.apps.GetByID(context.Background(), a.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("got %v, want not_found after withdraw", err)
	}
	// The slot is free again.
	h.apply(t, j.ID, student)
}

func TestWithdrawNonPending(t *testing.T) {
	h := newHarness(t)
	employer := common.NewUUID()
	j := h.createJob(t, employer)
	student := common.NewUUID()
	a := h.apply(t, j.ID, student)
	if _, err := h.lifecycle.Accept(context.Background(), employer, a.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	err := h.appSvc.Withdraw(context.Background(), student, a.ID)
	if !common.Is(err, common.CodeInvalidTransition) {
		t.Fatalf("got %v, want invalid_transition", err)
	}
}

func TestWithdrawForbiddenForOtherStudent(t *testing.T) {
	h := newHarness(t)
	j := h.createJob(t, common.NewUUID())
	a := h.apply(t, j.ID, common.NewUUID())

	err := h.appSvc.Withdraw(context.Background(), common.NewUUID(), a.ID)
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("got %v, want forbidden", err)
	}
}

func TestListByJobOwnerOnly(t *testing.T) {
	h := newHarness(t)
	employer := common.NewUUID()
	j := h.createJob(t, employer)
	h.apply(t, j.ID, common.NewUUID())
	h.apply(t, j.ID, common.NewUUID())

	items, err := h.appSvc.ListByJob(context.Background(), employer, j.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d applications, want 2", len(items))
	}
	if _, err := h.appSvc.ListByJob(context.Background(), common.NewUUID(), j.ID); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("got %v, want forbidden", err)
	}
}

func TestListByStudentFiltersStatus(t *testing.T) {
	h := newHarness(t)
	employer := common.NewUUID()
	first := h.createJob(t, employer)
	second := h.createJob(t, employer)
	student := common.NewUUID()
	a := h.apply(t, first.ID, student)
	h.apply(t, second.ID, student)
	if _, err := h.lifecycle.Accept(context.Background(), employer, a.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	pending := application.StatusPending
	items, err := h.appSvc.ListByStudent(context.Background(), student, &pending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d pending applications, want 1", len(items))
	}
	if items[0].JobID != second.ID {
		t.Fatalf("got application for job %s, want %s", items[0].JobID, second.ID)
	}
}
