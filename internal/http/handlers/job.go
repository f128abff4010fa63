package handlers

import (
	"net/http"
	"strings"
	"time"

	"studwerk/internal/app"
	"studwerk/internal/common"
	"studwerk/internal/domain/job"
	"studwerk/internal/http/middleware"
	"studwerk/internal/http/response"
)

const dateLayout = "2006-01-02"

type JobHandler struct {
	jobs         *app.JobService
	defaultLimit int
	maxLimit     int
}

func NewJobHandler(jobs *app.JobService, defaultLimit, maxLimit int) *JobHandler {
	return &JobHandler{jobs: jobs, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

type jobRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Pay         float64 `json:"pay"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
}

type jobStatusRequest struct {
	Status string `json:"status"`
}

func (r jobRequest) toJob() (job.Job, error) {
	var date time.Time
	if strings.TrimSpace(r.Date) != "" {
		parsed, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return job.Job{}, common.NewValidationError("invalid request", map[string]string{"date": "date must be YYYY-MM-DD"})
		}
		date = parsed
	}
	return job.Job{
		Title:       r.Title,
		Description: r.Description,
		Pay:         r.Pay,
		Date:        date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Category:    r.Category,
		Location:    r.Location,
	}, nil
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	j, err := req.toJob()
	if err != nil {
		response.Error(w, err)
		return
	}
	j.EmployerID = actor.ID
	created, err := h.jobs.Create(r.Context(), j)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

// List is the public listing. Without an explicit status filter it shows
// open jobs only, so closed and completed postings never surface here.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	status := job.StatusOpen
	if value := strings.TrimSpace(r.URL.Query().Get("status")); value != "" {
		parsed, err := job.ParseStatus(value)
		if err != nil {
			response.Error(w, err)
			return
		}
		status = parsed
	}
	limit := parseLimit(r, h.defaultLimit, h.maxLimit)
	items, err := h.jobs.List(r.Context(), &status, limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	item, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JobHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var status *job.Status
	if value := strings.TrimSpace(r.URL.Query().Get("status")); value != "" {
		parsed, err := job.ParseStatus(value)
		if err != nil {
			response.Error(w, err)
			return
		}
		status = &parsed
	}
	items, err := h.jobs.ListByEmployer(r.Context(), actor.ID, status)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	j, err := req.toJob()
	if err != nil {
		response.Error(w, err)
		return
	}
	j.ID = id
	updated, err := h.jobs.Update(r.Context(), actor.ID, j)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *JobHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req jobStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	status, err := job.ParseStatus(req.Status)
	if err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.jobs.SetStatus(r.Context(), actor.ID, id, status)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.jobs.Delete(r.Context(), actor.ID, id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}
