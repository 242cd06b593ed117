package jobshandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/errs"
	"paycore/internal/platform/jobs"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Jobs  *jobs.Service
	Runs  jobs.RunRecorder
	Perms middleware.PermissionChecker
}

func NewHandler(svc *jobs.Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Jobs: svc, Runs: svc.Runs, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/runs", h.handleListRuns)
		r.With(middleware.RequirePermission(auth.PermJobsRun, h.Perms)).Post("/{jobType}/run", h.handleRun)
	})
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	runs, err := h.Runs.List(r.Context(), r.URL.Query().Get("type"), page.Limit)
	if runs == nil {
		runs = []jobs.Run{}
	}
	shared.Respond(w, r, runs, err)
}

// handleRun executes a job synchronously and records the run.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	jobType := shared.PathID(r, "jobType")
	switch jobType {
	case jobs.JobPaymentRetry:
		res, err := h.Jobs.RunNow(r.Context(), jobType, func(ctx context.Context) (any, error) {
			return h.Jobs.SweepRetries(ctx)
		})
		shared.Respond(w, r, res, err)
	default:
		shared.Respond(w, r, nil, errs.NotFound("job", jobType))
	}
}
