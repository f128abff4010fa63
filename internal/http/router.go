package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"studwerk/internal/domain/user"
	"studwerk/internal/http/handlers"
	httpmw "studwerk/internal/http/middleware"
	"studwerk/internal/observability"
)

type RouterDependencies struct {
	JobHandler         *handlers.JobHandler
	ApplicationHandler *handlers.ApplicationHandler
	AuthMiddleware     *httpmw.AuthMiddleware
	Logger             *slog.Logger
	RequestTimeout     time.Duration
}

type Router struct {
	deps RouterDependencies
}

const maxBodyBytes = 1 << 20

func NewRouter(deps RouterDependencies) http.Handler {
	return &Router{deps: deps}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := httpmw.Chain(r.baseHandler(), httpmw.RequestID, httpmw.Logging(r.deps.Logger), httpmw.BodyLimit(maxBodyBytes), httpmw.Recover, httpmw.Metrics, httpmw.Timeout(r.deps.RequestTimeout))
	handler.ServeHTTP(w, req)
}

func (r *Router) baseHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path

		switch {
		case req.Method == http.MethodGet && path == "/health":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		case req.Method == http.MethodGet && path == "/metrics":
			observability.MetricsHandler().ServeHTTP(w, req)
			return
		case req.Method == http.MethodGet && path == "/jobs":
			r.deps.JobHandler.List(w, req)
			return
		case req.Method == http.MethodGet && strings.HasPrefix(path, "/jobs/") && !strings.HasSuffix(path, "/applications"):
			r.deps.JobHandler.Get(w, req)
			return
		}

		if strings.HasPrefix(path, "/jobs") || strings.HasPrefix(path, "/applications") || strings.HasPrefix(path, "/employers") {
			protected := r.deps.AuthMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				r.handleProtected(w, req)
			}))
			protected.ServeHTTP(w, req)
			return
		}

		http.NotFound(w, req)
	})
}

func (r *Router) handleProtected(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path

	switch {
	case req.Method == http.MethodPost && path == "/jobs":
		httpmw.RequireRole(user.RoleEmployer)(http.HandlerFunc(r.deps.JobHandler.Create)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPatch && strings.HasPrefix(path, "/jobs/") && strings.HasSuffix(path, "/status"):
		httpmw.RequireRole(user.RoleEmployer)(http.HandlerFunc(r.deps.JobHandler.UpdateStatus)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPatch && strings.HasPrefix(path, "/jobs/"):
		httpmw.RequireRole(user.RoleEmployer)(http.HandlerFunc(r.deps.JobHandler.Update)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodDelete && strings.HasPrefix(path, "/jobs/"):
		httpmw.RequireRole(user.RoleEmployer)(http.HandlerFunc(r.deps.JobHandler.Delete)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/jobs/") && strings.HasSuffix(path, "/applications"):
		httpmw.RequireRole(user.RoleEmployer)(http.HandlerFunc(r.deps.ApplicationHandler.ListByJob)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/employers/jobs":
		httpmw.RequireRole(user.RoleEmployer)(http.HandlerFunc(r.deps.JobHandler.ListMine)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && path == "/applications":
		httpmw.RequireRole(user.RoleStudent)(http.HandlerFunc(r.deps.ApplicationHandler.Apply)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/applications":
		r.deps.ApplicationHandler.List(w, req)
		return
	case req.Method == http.MethodDelete && strings.HasPrefix(path, "/applications/"):
		httpmw.RequireRole(user.RoleStudent)(http.HandlerFunc(r.deps.ApplicationHandler.Withdraw)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPatch && strings.HasPrefix(path, "/applications/") && strings.HasSuffix(path, "/status"):
		httpmw.RequireRole(user.RoleEmployer)(http.HandlerFunc(r.deps.ApplicationHandler.UpdateStatus)).ServeHTTP(w, req)
		return
	}

	http.NotFound(w, req)
}
