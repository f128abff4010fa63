package repository

import (
	"context"
	"errors"
	"time"

	"studwerk/internal/common"
	"studwerk/internal/docstore"
	"studwerk/internal/domain/job"
)

const jobsCollection = "jobs"

type JobRepository struct {
	col docstore.Collection
}

func NewJobRepository(store docstore.Store) *JobRepository {
	return &JobRepository{col: store.Collection(jobsCollection)}
}

// InTx returns a view of the repository bound to the transaction.
func (r *JobRepository) InTx(tx docstore.Tx) *JobRepository {
	return &JobRepository{col: tx.Collection(jobsCollection)}
}

func (r *JobRepository) Create(ctx context.Context, j job.Job) (*job.Job, error) {
	now := time.Now().UTC()
	j.CreatedAt = now
	j.UpdatedAt = now
	id, err := r.col.Create(ctx, encodeJob(j))
	if err != nil {
		return nil, storeError(err, "job not found", "failed to create job")
	}
	j.ID = common.UUID(id)
	return &j, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id common.UUID) (*job.Job, error) {
	doc, err := r.col.Get(ctx, id.String())
	if err != nil {
		return nil, storeError(err, "job not found", "failed to load job")
	}
	j, err := decodeJob(*doc)
	if err != nil {
		if errors.Is(err, errMalformed) {
			return nil, common.NewError(common.CodeNotFound, "job not found", err)
		}
		return nil, err
	}
	return j, nil
}

func (r *JobRepository) List(ctx context.Context, status *job.Status, limit int) ([]job.Job, error) {
	q := docstore.Query{OrderBy: "created_at", Desc: true, Limit: limit}
	if status != nil {
		q.Filters = append(q.Filters, docstore.Filter{Field: "status", Value: string(*status)})
	}
	return r.list(ctx, q)
}

func (r *JobRepository) ListByEmployer(ctx context.Context, employerID common.UUID, status *job.Status) ([]job.Job, error) {
	q := docstore.Query{
		Filters: []docstore.Filter{{Field: "employer_id", Value: employerID.String()}},
		OrderBy: "created_at",
		Desc:    true,
	}
	if status != nil {
		q.Filters = append(q.Filters, docstore.Filter{Field: "status", Value: string(*status)})
	}
	return r.list(ctx, q)
}

func (r *JobRepository) list(ctx context.Context, q docstore.Query) ([]job.Job, error) {
	docs, err := queryOrdered(ctx, r.col, q)
	if err != nil {
		return nil, storeError(err, "job not found", "failed to list jobs")
	}
	var items []job.Job
	for _, doc := range docs {
		j, err := decodeJob(doc)
		if err != nil {
			if errors.Is(err, errMalformed) {
				continue
			}
			return nil, err
		}
		items = append(items, *j)
	}
	return items, nil
}

func (r *JobRepository) Update(ctx context.Context, j job.Job) (*job.Job, error) {
	j.UpdatedAt = time.Now().UTC()
	fields := encodeJob(j)
	delete(fields, "created_at")
	if err := r.col.Update(ctx, j.ID.String(), fields); err != nil {
		return nil, storeError(err, "job not found", "failed to update job")
	}
	return &j, nil
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id common.UUID, status job.Status) (*job.Job, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	fields := map[string]any{"status": string(status), "updated_at": formatTime(now)}
	if err := r.col.Update(ctx, id.String(), fields); err != nil {
		return nil, storeError(err, "job not found", "failed to update job status")
	}
	current.Status = status
	current.UpdatedAt = now
	return current, nil
}

func (r *JobRepository) Delete(ctx context.Context, id common.UUID) error {
	if err := r.col.Delete(ctx, id.String()); err != nil {
		return storeError(err, "job not found", "failed to delete job")
	}
	return nil
}

func encodeJob(j job.Job) map[string]any {
	return map[string]any{
		"employer_id": j.EmployerID.String(),
		"title":       j.Title,
		"description": j.Description,
		"pay":         j.Pay,
		"date":        formatTime(j.Date),
		"start_time":  j.StartTime,
		"end_time":    j.EndTime,
		"category":    j.Category,
		"location":    j.Location,
		"status":      string(j.Status),
		"created_at":  formatTime(j.CreatedAt),
		"updated_at":  formatTime(j.UpdatedAt),
	}
}

func decodeJob(doc docstore.Document) (*job.Job, error) {
	data := doc.Data
	employerID := stringField(data, "employer_id")
	title := stringField(data, "title")
	if employerID == "" || title == "" {
		return nil, errMalformed
	}
	status, err := job.ParseStatus(stringField(data, "status"))
	if err != nil {
		return nil, common.NewError(common.CodeDataIntegrity, "stored job has an unrecognized status", err)
	}
	return &job.Job{
		ID:          common.UUID(doc.ID),
		EmployerID:  common.UUID(employerID),
		Title:       title,
		Description: stringField(data, "description"),
		Pay:         floatField(data, "pay"),
		Date:        parseTime(stringField(data, "date")),
		StartTime:   stringField(data, "start_time"),
		EndTime:     stringField(data, "end_time"),
		Category:    stringField(data, "category"),
		Location:    stringField(data, "location"),
		Status:      status,
		CreatedAt:   parseTime(stringField(data, "created_at")),
		UpdatedAt:   parseTime(stringField(data, "updated_at")),
	}, nil
}
