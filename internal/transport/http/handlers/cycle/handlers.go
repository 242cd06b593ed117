package cyclehandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/cycle"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service *cycle.Service
	Perms   middleware.PermissionChecker
}

func NewHandler(service *cycle.Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPayrollRead, h.Perms)
	run := middleware.RequirePermission(auth.PermCycleRun, h.Perms)
	approve := middleware.RequirePermission(auth.PermCycleApprove, h.Perms)

	r.Route("/cycles", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(run).Post("/", h.handleCreate)
		r.With(read).Get("/{cycleID}", h.handleGet)
		r.With(run).Post("/{cycleID}/lock-attendance", h.transition(h.Service.LockAttendance))
		r.With(run).Post("/{cycleID}/process", h.handleProcess)
		r.With(run).Post("/{cycleID}/errors/{errorID}/resolve", h.handleResolveError)
		r.With(run).Post("/{cycleID}/review", h.transition(h.Service.Review))
		r.With(run).Post("/{cycleID}/refresh-summary", h.transition(h.Service.RefreshSummary))
		r.With(approve).Post("/{cycleID}/approvals/approve", h.handleApproveLevel)
		r.With(approve).Post("/{cycleID}/approvals/reject", h.handleRejectLevel)
		r.With(run).Post("/{cycleID}/approvals/reroute", h.handleReroute)
		r.With(approve).Post("/{cycleID}/approve", h.transition(h.Service.Approve))
		r.With(middleware.RequirePermission(auth.PermPayrollApprove, h.Perms)).Post("/{cycleID}/payrolls/approve", h.handleApprovePayrolls)
		r.With(run).Post("/{cycleID}/mark-processed", h.transition(h.Service.MarkProcessed))
		r.With(run).Post("/{cycleID}/mark-disbursed", h.transition(h.Service.MarkDisbursed))
		r.With(run).Post("/{cycleID}/complete", h.transition(h.Service.Complete))
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	year := shared.QueryInt(r, "year", v)
	if err := v.Err(); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	cycles, err := h.Service.List(r.Context(), year)
	shared.Respond(w, r, cycles, err)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload cycle.CreateInput
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	c, err := h.Service.Create(r.Context(), payload, user.UserID)
	shared.RespondCreated(w, r, c, err)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Get(r.Context(), shared.PathID(r, "cycleID"))
	shared.Respond(w, r, c, err)
}

// handleProcess answers 200 with per-employee outcomes even when some
// employees failed; the failures are recorded on the cycle.
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload cycle.ProcessInput
	if err := shared.DecodeJSON(r, &payload, true); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	res, err := h.Service.Process(r.Context(), shared.PathID(r, "cycleID"), payload, user.UserID)
	shared.Respond(w, r, res, err)
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

func (h *Handler) handleResolveError(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload resolveRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	c, err := h.Service.ResolveError(r.Context(), shared.PathID(r, "cycleID"), shared.PathID(r, "errorID"), payload.Resolution, user.UserID)
	shared.Respond(w, r, c, err)
}

func (h *Handler) handleApproveLevel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload shared.DecisionRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	c, err := h.Service.ApproveLevel(r.Context(), shared.PathID(r, "cycleID"), shared.Decision(user, payload), user.UserID)
	shared.Respond(w, r, c, err)
}

func (h *Handler) handleRejectLevel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload shared.DecisionRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	c, err := h.Service.RejectLevel(r.Context(), shared.PathID(r, "cycleID"), shared.Decision(user, payload), user.UserID)
	shared.Respond(w, r, c, err)
}

func (h *Handler) handleReroute(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload shared.RerouteRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	c, err := h.Service.Reroute(r.Context(), shared.PathID(r, "cycleID"), payload.Level, payload.Role, user.UserID)
	shared.Respond(w, r, c, err)
}

func (h *Handler) handleApprovePayrolls(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload shared.DecisionRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	res, err := h.Service.ApprovePayrolls(r.Context(), shared.PathID(r, "cycleID"), shared.Decision(user, payload), user.UserID)
	shared.Respond(w, r, res, err)
}

func (h *Handler) transition(fn func(ctx context.Context, id, actorID string) (*cycle.Cycle, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}
		c, err := fn(r.Context(), shared.PathID(r, "cycleID"), user.UserID)
		shared.Respond(w, r, c, err)
	}
}
