package audithandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/errs"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

var entityTypes = map[string]bool{
	audit.EntitySalaryStructure: true,
	audit.EntityTaxRecord:       true,
	audit.EntityPayroll:         true,
	audit.EntityCycle:           true,
	audit.EntityDisbursement:    true,
}

type Handler struct {
	Recorder *audit.Recorder
	Perms    middleware.PermissionChecker
}

func NewHandler(rec *audit.Recorder, perms middleware.PermissionChecker) *Handler {
	return &Handler{Recorder: rec, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/audit/{entityType}/{entityID}", h.handleTrail)
}

// handleTrail returns the ordered change log of one record.
func (h *Handler) handleTrail(w http.ResponseWriter, r *http.Request) {
	entityType := shared.PathID(r, "entityType")
	if !entityTypes[entityType] {
		shared.Respond(w, r, nil, errs.Invalid("entityType", "is not an audited entity"))
		return
	}
	entries, err := h.Recorder.List(r.Context(), entityType, shared.PathID(r, "entityID"))
	if err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	shared.Respond(w, r, shared.Paginate(entries, shared.ParsePagination(r, 100, 500)), nil)
}
