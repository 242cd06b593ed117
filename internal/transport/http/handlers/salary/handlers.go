package salaryhandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/salary"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service *salary.Service
	Perms   middleware.PermissionChecker
}

func NewHandler(service *salary.Service, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermSalaryRead, h.Perms)
	write := middleware.RequirePermission(auth.PermSalaryWrite, h.Perms)
	approve := middleware.RequirePermission(auth.PermSalaryApprove, h.Perms)

	r.Route("/salary-structures", func(r chi.Router) {
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/{structureID}", h.handleGet)
		r.With(write).Put("/{structureID}", h.handleUpdate)
		r.With(write).Post("/{structureID}/revise", h.handleRevise)
		r.With(write).Post("/{structureID}/recompute", h.handleRecompute)
		r.With(write).Post("/{structureID}/submit", h.handleSubmit)
		r.With(approve).Post("/{structureID}/reject", h.handleReject)
		r.With(approve).Post("/{structureID}/approve", h.handleApprove)
	})
	r.With(read).Get("/employees/{employeeID}/salary-structures", h.handleHistory)
	r.With(read).Get("/employees/{employeeID}/salary-structures/active", h.handleActive)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload salary.Input
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	st, err := h.Service.Create(r.Context(), payload, user.UserID)
	shared.RespondCreated(w, r, st, err)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Get(r.Context(), shared.PathID(r, "structureID"))
	shared.Respond(w, r, st, err)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload salary.Input
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	st, err := h.Service.Update(r.Context(), shared.PathID(r, "structureID"), payload, user.UserID)
	shared.Respond(w, r, st, err)
}

func (h *Handler) handleRevise(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload salary.Input
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	st, err := h.Service.Revise(r.Context(), shared.PathID(r, "structureID"), payload, user.UserID)
	shared.RespondCreated(w, r, st, err)
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	st, err := h.Service.Recompute(r.Context(), shared.PathID(r, "structureID"), user.UserID)
	shared.Respond(w, r, st, err)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	st, err := h.Service.Submit(r.Context(), shared.PathID(r, "structureID"), user.UserID)
	shared.Respond(w, r, st, err)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload shared.ReasonRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	st, err := h.Service.Reject(r.Context(), shared.PathID(r, "structureID"), payload.Reason, user.UserID)
	shared.Respond(w, r, st, err)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	st, err := h.Service.Approve(r.Context(), shared.PathID(r, "structureID"), user.UserID)
	shared.Respond(w, r, st, err)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Service.History(r.Context(), shared.PathID(r, "employeeID"))
	shared.Respond(w, r, history, err)
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		v := shared.NewValidator()
		parsed, ok := v.Date("at", raw)
		if !ok {
			shared.Respond(w, r, nil, v.Err())
			return
		}
		at = parsed
	}
	st, err := h.Service.ActiveAt(r.Context(), shared.PathID(r, "employeeID"), at)
	shared.Respond(w, r, st, err)
}
