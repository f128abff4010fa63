package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studwerk/internal/app"
	"studwerk/internal/common"
	"studwerk/internal/docstore/memory"
	"studwerk/internal/domain/user"
	"studwerk/internal/events"
	"studwerk/internal/http/handlers"
	httpmw "studwerk/internal/http/middleware"
	"studwerk/internal/repository"
	"studwerk/internal/security"
)

type testServer struct {
	handler http.Handler
	jwt     *security.JWTProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New(memory.WithUniqueGuard("applications", "job_id", "student_id"))
	jobs := repository.NewJobRepository(store)
	apps := repository.NewApplicationRepository(store)
	publisher := events.NewLogPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	jobSvc := app.NewJobService(jobs, apps, publisher)
	appSvc := app.NewApplicationService(apps, jobs, publisher)
	lifecycle := app.NewLifecycleService(store, jobs, apps, publisher)
	jwt := security.NewJWTProvider("router-test-secret")
	handler := NewRouter(RouterDependencies{
		JobHandler:         handlers.NewJobHandler(jobSvc, 50, 200),
		ApplicationHandler: handlers.NewApplicationHandler(appSvc, lifecycle, httpmw.NewRateLimiter()),
		AuthMiddleware:     httpmw.NewAuthMiddleware(jwt),
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		RequestTimeout:     5 * time.Second,
	})
	return &testServer{handler: handler, jwt: jwt}
}

func (s *testServer) token(t *testing.T, id common.UUID, role user.Role) string {
	t.Helper()
	token, _, err := s.jwt.Generate(id, role, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

var testJobBody = map[string]any{
	"title":       "library assistant",
	"description": "sort returned books",
	"pay":         12.5,
	"date":        "2026-10-01",
	"start_time":  "09:00",
	"end_time":    "13:00",
	"category":    "campus",
	"location":    "Hamburg",
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}

func TestCreateJobRequiresToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/jobs", "", testJobBody)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}

func TestCreateJobRequiresEmployerRole(t *testing.T) {
	s := newTestServer(t)
	student := s.token(t, common.NewUUID(), user.RoleStudent)
	rec := s.do(t, http.MethodPost, "/jobs", student, testJobBody)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
}

func TestApplicationFlow(t *testing.T) {
	s := newTestServer(t)
	employerID := common.NewUUID()
	employer := s.token(t, employerID, user.RoleEmployer)
	studentID := common.NewUUID()
	student := s.token(t, studentID, user.RoleStudent)

	rec := s.do(t, http.MethodPost, "/jobs", employer, testJobBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create job: got %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, rec, &created)
	if created.Status != "open" {
		t.Fatalf("got job status %q, want open", created.Status)
	}

	rec = s.do(t, http.MethodGet, "/jobs", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list jobs: got %d", rec.Code)
	}
	var listed []struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("public listing %v does not show the job", listed)
	}

	rec = s.do(t, http.MethodPost, "/applications", student, map[string]string{"job_id": created.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("apply: got %d, body %s", rec.Code, rec.Body.String())
	}
	var applied struct {
		ID  string `json:"id"`
		Job struct {
			Title string `json:"title"`
		} `json:"job"`
	}
	decodeBody(t, rec, &applied)
	if applied.Job.Title != "library assistant" {
		t.Fatalf("snapshot title %q", applied.Job.Title)
	}

	rec = s.do(t, http.MethodPost, "/applications", student, map[string]string{"job_id": created.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate apply: got %d, want 409", rec.Code)
	}

	rec = s.do(t, http.MethodPatch, "/applications/"+applied.ID+"/status", employer, map[string]string{"status": "accepted"})
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPatch, "/applications/"+applied.ID+"/status", employer, map[string]string{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: got %d, body %s", rec.Code, rec.Body.String())
	}
	var completed struct {
		Application struct {
			Status string `json:"status"`
		} `json:"application"`
		Job struct {
			Status string `json:"status"`
		} `json:"job"`
	}
	decodeBody(t, rec, &completed)
	if completed.Application.Status != "completed" || completed.Job.Status != "completed" {
		t.Fatalf("got %+v, want both completed", completed)
	}

	// Completed jobs drop out of the public listing.
	rec = s.do(t, http.MethodGet, "/jobs", "", nil)
	decodeBody(t, rec, &listed)
	if len(listed) != 0 {
		t.Fatalf("public listing still shows %d jobs", len(listed))
	}
}

func TestApplyRateLimited(t *testing.T) {
	s := newTestServer(t)
	employer := s.token(t, common.NewUUID(), user.RoleEmployer)
	rec := s.do(t, http.MethodPost, "/jobs", employer, testJobBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create job: got %d", rec.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &created)

	studentID := common.NewUUID()
	student := s.token(t, studentID, user.RoleStudent)
	// Burn the window with conflicting retries, then expect 429.
	for i := 0; i < 3; i++ {
		s.do(t, http.MethodPost, "/applications", student, map[string]string{"job_id": created.ID})
	}
	rec = s.do(t, http.MethodPost, "/applications", student, map[string]string{"job_id": created.ID})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", rec.Code)
	}
}

func TestAcceptByWrongEmployerForbidden(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, common.NewUUID(), user.RoleEmployer)
	rec := s.do(t, http.MethodPost, "/jobs", owner, testJobBody)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &created)
	student := s.token(t, common.NewUUID(), user.RoleStudent)
	rec = s.do(t, http.MethodPost, "/applications", student, map[string]string{"job_id": created.ID})
	var applied struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &applied)

	other := s.token(t, common.NewUUID(), user.RoleEmployer)
	rec = s.do(t, http.MethodPatch, "/applications/"+applied.ID+"/status", other, map[string]string{"status": "accepted"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
}
