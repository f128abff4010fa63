package repository

import (
	"context"
	"errors"
	"time"

	"studwerk/internal/common"
	"studwerk/internal/docstore"
	"studwerk/internal/domain/application"
)

const applicationsCollection = "applications"

type ApplicationRepository struct {
	col docstore.Collection
}

func NewApplicationRepository(store docstore.Store) *ApplicationRepository {
	return &ApplicationRepository{col: store.Collection(applicationsCollection)}
}

// InTx returns a view of the repository bound to the transaction.
func (r *ApplicationRepository) InTx(tx docstore.Tx) *ApplicationRepository {
	return &ApplicationRepository{col: tx.Collection(applicationsCollection)}
}

func (r *ApplicationRepository) Create(ctx context.Context, a application.Application) (*application.Application, error) {
	a.AppliedAt = time.Now().UTC()
	id, err := r.col.Create(ctx, encodeApplication(a))
	if err != nil {
		return nil, storeError(err, "application not found", "failed to create application")
	}
	a.ID = common.UUID(id)
	return &a, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	doc, err := r.col.Get(ctx, id.String())
	if err != nil {
		return nil, storeError(err, "application not found", "failed to load application")
	}
	a, err := decodeApplication(*doc)
	if err != nil {
		if errors.Is(err, errMalformed) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, err
	}
	return a, nil
}

func (r *ApplicationRepository) FindByJobAndStudent(ctx context.Context, jobID, studentID common.UUID) (*application.Application, error) {
	docs, err := r.col.Query(ctx, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "job_id", Value: jobID.String()},
			{Field: "student_id", Value: studentID.String()},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, storeError(err, "application not found", "failed to look up application")
	}
	if len(docs) == 0 {
		return nil, common.NewError(common.CodeNotFound, "application not found", docstore.ErrNotFound)
	}
	a, err := decodeApplication(docs[0])
	if err != nil {
		if errors.Is(err, errMalformed) {
			return nil, common.NewError(common.CodeNotFound, "application not found", err)
		}
		return nil, err
	}
	return a, nil
}

func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID common.UUID, status *application.Status) ([]application.Application, error) {
	return r.list(ctx, docstore.Filter{Field: "student_id", Value: studentID.String()}, status)
}

func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID common.UUID, status *application.Status) ([]application.Application, error) {
	return r.list(ctx, docstore.Filter{Field: "job_id", Value: jobID.String()}, status)
}

func (r *ApplicationRepository) ListByEmployer(ctx context.Context, employerID common.UUID, status *application.Status) ([]application.Application, error) {
	return r.list(ctx, docstore.Filter{Field: "employer_id", Value: employerID.String()}, status)
}

func (r *ApplicationRepository) list(ctx context.Context, scope docstore.Filter, status *application.Status) ([]application.Application, error) {
	q := docstore.Query{Filters: []docstore.Filter{scope}, OrderBy: "applied_at", Desc: true}
	if status != nil {
		q.Filters = append(q.Filters, docstore.Filter{Field: "status", Value: string(*status)})
	}
	docs, err := queryOrdered(ctx, r.col, q)
	if err != nil {
		return nil, storeError(err, "application not found", "failed to list applications")
	}
	var items []application.Application
	for _, doc := range docs {
		a, err := decodeApplication(doc)
		if err != nil {
			if errors.Is(err, errMalformed) {
				continue
			}
			return nil, err
		}
		items = append(items, *a)
	}
	return items, nil
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id common.UUID, status application.Status) (*application.Application, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.col.Update(ctx, id.String(), map[string]any{"status": string(status)}); err != nil {
		return nil, storeError(err, "application not found", "failed to update application status")
	}
	current.Status = status
	return current, nil
}

func (r *ApplicationRepository) UpdateStatusAll(ctx context.Context, jobID common.UUID, from, to application.Status) (int, error) {
	docs, err := r.col.Query(ctx, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "job_id", Value: jobID.String()},
			{Field: "status", Value: string(from)},
		},
	})
	if err != nil {
		return 0, storeError(err, "application not found", "failed to list applications")
	}
	changed := 0
	for _, doc := range docs {
		if err := r.col.Update(ctx, doc.ID, map[string]any{"status": string(to)}); err != nil {
			return changed, storeError(err, "application not found", "failed to update application status")
		}
		changed++
	}
	return changed, nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id common.UUID) error {
	if err := r.col.Delete(ctx, id.String()); err != nil {
		return storeError(err, "application not found", "failed to delete application")
	}
	return nil
}

func (r *ApplicationRepository) DeleteAllForJob(ctx context.Context, jobID common.UUID) error {
	docs, err := r.col.Query(ctx, docstore.Query{
		Filters: []docstore.Filter{{Field: "job_id", Value: jobID.String()}},
	})
	if err != nil {
		return storeError(err, "application not found", "failed to list applications")
	}
	for _, doc := range docs {
		if err := r.col.Delete(ctx, doc.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return storeError(err, "application not found", "failed to delete application")
		}
	}
	return nil
}

func encodeApplication(a application.Application) map[string]any {
	return map[string]any{
		"job_id":      a.JobID.String(),
		"student_id":  a.StudentID.String(),
		"employer_id": a.EmployerID.String(),
		"status":      string(a.Status),
		"applied_at":  formatTime(a.AppliedAt),
		"job": map[string]any{
			"title":      a.Job.Title,
			"pay":        a.Job.Pay,
			"location":   a.Job.Location,
			"date":       formatTime(a.Job.Date),
			"start_time": a.Job.StartTime,
			"end_time":   a.Job.EndTime,
			"category":   a.Job.Category,
		},
	}
}

func decodeApplication(doc docstore.Document) (*application.Application, error) {
	data := doc.Data
	jobID := stringField(data, "job_id")
	studentID := stringField(data, "student_id")
	if jobID == "" || studentID == "" {
		return nil, errMalformed
	}
	status, err := application.ParseStatus(stringField(data, "status"))
	if err != nil {
		return nil, common.NewError(common.CodeDataIntegrity, "stored application has an unrecognized status", err)
	}
	snapshot := mapField(data, "job")
	return &application.Application{
		ID:         common.UUID(doc.ID),
		JobID:      common.UUID(jobID),
		StudentID:  common.UUID(studentID),
		EmployerID: common.UUID(stringField(data, "employer_id")),
		Status:     status,
		AppliedAt:  parseTime(stringField(data, "applied_at")),
		Job: application.JobSnapshot{
			Title:     stringField(snapshot, "title"),
			Pay:       floatField(snapshot, "pay"),
			Location:  stringField(snapshot, "location"),
			Date:      parseTime(stringField(snapshot, "date")),
			StartTime: stringField(snapshot, "start_time"),
			EndTime:   stringField(snapshot, "end_time"),
			Category:  stringField(snapshot, "category"),
		},
	}, nil
}
