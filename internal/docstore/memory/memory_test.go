package memory

import (
	"context"
	"errors"
	"testing"

	"studwerk/internal/docstore"
)

func TestCreateAndGet(t *testing.T) {
	store := New()
	col := store.Collection("jobs")

	id, err := col.Create(context.Background(), map[string]any{"title": "barista"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}
	doc, err := col.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if doc.Data["title"] != "barista" {
		t.Fatalf("expected title barista, got %v", doc.Data["title"])
	}
}

func TestGetMissing(t *testing.T) {
	store := New()
	if _, err := store.Collection("jobs").Get(context.Background(), "nope"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	store := New()
	col := store.Collection("jobs")
	id, _ := col.Create(context.Background(), map[string]any{"title": "barista", "status": "open"})

	if err := col.Update(context.Background(), id, map[string]any{"status": "closed"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	doc, _ := col.Get(context.Background(), id)
	if doc.Data["status"] != "closed" {
		t.Fatalf("expected status closed, got %v", doc.Data["status"])
	}
	if doc.Data["title"] != "barista" {
		t.Fatal("update must not drop untouched fields")
	}
	if err := col.Update(context.Background(), "nope", map[string]any{"status": "closed"}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := New()
	col := store.Collection("jobs")
	id, _ := col.Create(context.Background(), map[string]any{"title": "barista"})

	if err := col.Delete(context.Background(), id); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, err := col.Get(context.Background(), id); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := col.Delete(context.Background(), id); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestQueryFiltersAndOrder(t *testing.T) {
	store := New()
	col := store.Collection("jobs")
	_, _ = col.Create(context.Background(), map[string]any{"status": "open", "created_at": "2026-01-01"})
	_, _ = col.Create(context.Background(), map[string]any{"status": "open", "created_at": "2026-01-03"})
	_, _ = col.Create(context.Background(), map[string]any{"status": "closed", "created_at": "2026-01-02"})

	docs, err := col.Query(context.Background(), docstore.Query{
		Filters: []docstore.Filter{{Field: "status", Value: "open"}},
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Data["created_at"] != "2026-01-03" {
		t.Fatalf("expected newest first, got %v", docs[0].Data["created_at"])
	}

	limited, err := col.Query(context.Background(), docstore.Query{OrderBy: "created_at", Desc: true, Limit: 1})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(limited) != 1 || limited[0].Data["created_at"] != "2026-01-03" {
		t.Fatalf("expected single newest doc, got %v", limited)
	}
}

func TestQueryWithoutOrderingCapability(t *testing.T) {
	store := New(WithoutOrdering())
	col := store.Collection("jobs")
	_, _ = col.Create(context.Background(), map[string]any{"created_at": "2026-01-01"})

	if _, err := col.Query(context.Background(), docstore.Query{OrderBy: "created_at"}); !errors.Is(err, docstore.ErrOrderUnsupported) {
		t.Fatalf("expected ErrOrderUnsupported, got %v", err)
	}
	if _, err := col.Query(context.Background(), docstore.Query{}); err != nil {
		t.Fatalf("unordered query must still work, got %v", err)
	}
}

func TestUniqueGuard(t *testing.T) {
	store := New(WithUniqueGuard("applications", "job_id", "student_id"))
	col := store.Collection("applications")

	if _, err := col.Create(context.Background(), map[string]any{"job_id": "j1", "student_id": "s1"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, err := col.Create(context.Background(), map[string]any{"job_id": "j1", "student_id": "s1"}); !errors.Is(err, docstore.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := col.Create(context.Background(), map[string]any{"job_id": "j1", "student_id": "s2"}); err != nil {
		t.Fatalf("different student must pass, got %v", err)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	store := New()
	col := store.Collection("jobs")
	id, _ := col.Create(context.Background(), map[string]any{"status": "open"})

	failure := errors.New("boom")
	err := store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		txCol := tx.Collection("jobs")
		if err := txCol.Update(ctx, id, map[string]any{"status": "closed"}); err != nil {
			return err
		}
		if _, err := txCol.Create(ctx, map[string]any{"status": "open"}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	doc, _ := col.Get(context.Background(), id)
	if doc.Data["status"] != "open" {
		t.Fatalf("expected rollback to open, got %v", doc.Data["status"])
	}
	docs, _ := col.Query(context.Background(), docstore.Query{})
	if len(docs) != 1 {
		t.Fatalf("expected the created doc to be rolled back, got %d docs", len(docs))
	}
}

func TestTransactionCommits(t *testing.T) {
	store := New()
	col := store.Collection("jobs")
	id, _ := col.Create(context.Background(), map[string]any{"status": "open"})

	err := store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		return tx.Collection("jobs").Update(ctx, id, map[string]any{"status": "completed"})
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	doc, _ := col.Get(context.Background(), id)
	if doc.Data["status"] != "completed" {
		t.Fatalf("expected committed status, got %v", doc.Data["status"])
	}
}
