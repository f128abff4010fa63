package handlers

import (
	"net/http"
	"strings"
	"time"

	"studwerk/internal/app"
	"studwerk/internal/common"
	"studwerk/internal/domain/application"
	"studwerk/internal/domain/job"
	"studwerk/internal/domain/user"
	"studwerk/internal/http/middleware"
	"studwerk/internal/http/response"
)

type ApplicationHandler struct {
	apps      *app.ApplicationService
	lifecycle *app.LifecycleService
	limiter   middleware.Limiter
}

func NewApplicationHandler(apps *app.ApplicationService, lifecycle *app.LifecycleService, limiter middleware.Limiter) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, lifecycle: lifecycle, limiter: limiter}
}

type applyRequest struct {
	JobID string `json:"job_id"`
}

func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	jobID, err := common.ParseUUID(req.JobID)
	if err != nil {
		response.Error(w, common.NewValidationError("invalid request", map[string]string{"job_id": "invalid uuid"}))
		return
	}
	if h.limiter != nil {
		key := "apply:" + jobID.String() + ":" + actor.ID.String()
		if !h.limiter.Allow(key, 3, time.Minute) {
			response.Error(w, common.NewError(common.CodeRateLimited, "apply rate limit exceeded", nil))
			return
		}
	}
	created, err := h.apps.Apply(r.Context(), jobID, actor.ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

// List returns the caller's applications: the student's own, or every
// application for the employer's jobs.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	var status *application.Status
	if value := strings.TrimSpace(r.URL.Query().Get("status")); value != "" {
		parsed, err := application.ParseStatus(value)
		if err != nil {
			response.Error(w, err)
			return
		}
		status = &parsed
	}
	var items []application.Application
	var err error
	switch actor.Role {
	case user.RoleStudent:
		items, err = h.apps.ListByStudent(r.Context(), actor.ID, status)
	case user.RoleEmployer:
		items, err = h.apps.ListByEmployer(r.Context(), actor.ID, status)
	default:
		response.Error(w, common.NewError(common.CodeForbidden, "insufficient role", nil))
		return
	}
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

// ListByJob serves GET /jobs/{id}/applications for the owning employer.
func (h *ApplicationHandler) ListByJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return
	}
	jobID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.apps.ListByJob(r.Context(), actor.ID, jobID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
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
	if err := h.apps.Withdraw(r.Context(), actor.ID, id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusNoContent, nil)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type completeResponse struct {
	Application *application.Application `json:"application"`
	Job         *job.Job                 `json:"job"`
}

// UpdateStatus dispatches the employer's decision to the lifecycle
// coordinator: accepted, rejected, or completed.
func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	status, err := application.ParseStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		response.Error(w, err)
		return
	}
	switch status {
	case application.StatusAccepted:
		updated, err := h.lifecycle.Accept(r.Context(), actor.ID, id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, updated)
	case application.StatusRejected:
		updated, err := h.lifecycle.Reject(r.Context(), actor.ID, id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, updated)
	case application.StatusCompleted:
		updatedApp, updatedJob, err := h.lifecycle.Complete(r.Context(), actor.ID, id)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, completeResponse{Application: updatedApp, Job: updatedJob})
	default:
		response.Error(w, common.NewError(common.CodeInvalidTransition, "status must be accepted, rejected, or completed", nil))
	}
}
