package taxhandler

import (
	"context"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/directory"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/tax"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

// Form16Renderer produces and serves the annual TDS certificate.
type Form16Renderer interface {
	Form16(ctx context.Context, rec *tax.Record, emp directory.Employee) (string, error)
	Open(ref string) ([]byte, error)
}

type EmployeeLookup interface {
	Get(ctx context.Context, id string) (directory.Employee, error)
}

type Handler struct {
	Service   *tax.Service
	Employees EmployeeLookup
	Documents Form16Renderer
	Perms     middleware.PermissionChecker
}

func NewHandler(service *tax.Service, employees EmployeeLookup, docs Form16Renderer, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Employees: employees, Documents: docs, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermTaxRead, h.Perms)
	write := middleware.RequirePermission(auth.PermTaxWrite, h.Perms)
	approve := middleware.RequirePermission(auth.PermTaxApprove, h.Perms)

	r.Route("/tax-records", func(r chi.Router) {
		r.With(read).Get("/", h.handleListByYear)
		r.With(write).Post("/", h.handleOpen)
		r.With(approve).Post("/tds", h.handlePostTDS)
		r.With(read).Get("/{recordID}", h.handleGet)
		r.With(read).Get("/{recordID}/comparison", h.handleCompare)
		r.With(write).Put("/{recordID}/declarations", h.handleDeclare)
		r.With(approve).Put("/{recordID}/salary", h.handleUpdateSalary)
		r.With(write).Put("/{recordID}/regime", h.handleSelectRegime)
		r.With(write).Post("/{recordID}/proofs", h.handleAddProof)
		r.With(approve).Post("/{recordID}/proofs/{proofID}/verify", h.handleVerifyProof)
		r.With(write).Post("/{recordID}/compute", h.transition(h.Service.Compute))
		r.With(write).Post("/{recordID}/submit", h.transition(h.Service.Submit))
		r.With(approve).Post("/{recordID}/review", h.transition(h.Service.StartReview))
		r.With(approve).Post("/{recordID}/approve", h.transition(h.Service.Approve))
		r.With(approve).Post("/{recordID}/complete", h.transition(h.Service.Complete))
		r.With(approve).Post("/{recordID}/form16", h.handleGenerateForm16)
		r.With(middleware.RequirePermission(auth.PermDocumentsRead, h.Perms)).Get("/{recordID}/form16", h.handleDownloadForm16)
	})
	r.With(read).Get("/employees/{employeeID}/tax-records/{financialYear}", h.handleFindActive)
}

func (h *Handler) handleListByYear(w http.ResponseWriter, r *http.Request) {
	fy := r.URL.Query().Get("financialYear")
	if fy == "" {
		shared.Respond(w, r, nil, errs.Invalid("financialYear", "is required"))
		return
	}
	records, err := h.Service.ListByYear(r.Context(), fy)
	if err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	shared.Respond(w, r, shared.Paginate(records, shared.ParsePagination(r, 100, 500)), nil)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload tax.OpenInput
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	rec, err := h.Service.Open(r.Context(), payload, user.UserID)
	shared.RespondCreated(w, r, rec, err)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), shared.PathID(r, "recordID"))
	shared.Respond(w, r, rec, err)
}

func (h *Handler) handleFindActive(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.FindActive(r.Context(), shared.PathID(r, "employeeID"), shared.PathID(r, "financialYear"))
	shared.Respond(w, r, rec, err)
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	cmp, err := h.Service.CompareRegimes(r.Context(), shared.PathID(r, "recordID"))
	shared.Respond(w, r, cmp, err)
}

func (h *Handler) handleDeclare(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload tax.Declarations
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	rec, err := h.Service.Declare(r.Context(), shared.PathID(r, "recordID"), payload, user.UserID)
	shared.Respond(w, r, rec, err)
}

func (h *Handler) handleUpdateSalary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload tax.SalaryBreakdown
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	rec, err := h.Service.UpdateSalary(r.Context(), shared.PathID(r, "recordID"), payload, user.UserID)
	shared.Respond(w, r, rec, err)
}

type regimeRequest struct {
	Regime tax.Regime `json:"regime"`
}

func (h *Handler) handleSelectRegime(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload regimeRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	rec, err := h.Service.SelectRegime(r.Context(), shared.PathID(r, "recordID"), payload.Regime, user.UserID)
	shared.Respond(w, r, rec, err)
}

func (h *Handler) handleAddProof(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload tax.ProofInput
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	rec, err := h.Service.AddProof(r.Context(), shared.PathID(r, "recordID"), payload, user.UserID)
	shared.RespondCreated(w, r, rec, err)
}

type verifyRequest struct {
	Verified bool   `json:"verified"`
	Remarks  string `json:"remarks"`
}

func (h *Handler) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload verifyRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	rec, err := h.Service.VerifyProof(r.Context(), shared.PathID(r, "recordID"), shared.PathID(r, "proofID"), payload.Verified, payload.Remarks, user.UserID)
	shared.Respond(w, r, rec, err)
}

type step func(ctx context.Context, id, actorID string) (*tax.Record, error)

func (h *Handler) transition(fn step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.RequireUser(w, r)
		if !ok {
			return
		}
		rec, err := fn(r.Context(), shared.PathID(r, "recordID"), user.UserID)
		shared.Respond(w, r, rec, err)
	}
}

type tdsRequest struct {
	EmployeeID    string         `json:"employeeId"`
	FinancialYear string         `json:"financialYear"`
	Posting       tax.TDSPosting `json:"posting"`
}

func (h *Handler) handlePostTDS(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload tdsRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID)
	v.Required("financialYear", payload.FinancialYear)
	v.Period(payload.Posting.Month, payload.Posting.Year)
	if err := v.Err(); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	rec, err := h.Service.PostMonthlyTDS(r.Context(), payload.EmployeeID, payload.FinancialYear, payload.Posting, user.UserID)
	shared.Respond(w, r, rec, err)
}

// handleGenerateForm16 renders the certificate for an approved or completed
// record and stamps the reference on it.
func (h *Handler) handleGenerateForm16(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	id := shared.PathID(r, "recordID")
	rec, err := h.Service.Get(r.Context(), id)
	if err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	if rec.Status != tax.StatusApproved && rec.Status != tax.StatusCompleted {
		shared.Respond(w, r, nil, errs.Conflict("tax record", id, string(rec.Status), "generate form 16", tax.ErrInvalidState))
		return
	}
	emp, err := h.Employees.Get(r.Context(), rec.EmployeeID)
	if err != nil {
		shared.Respond(w, r, nil, errs.Upstream("employee directory", err))
		return
	}
	ref, err := h.Documents.Form16(r.Context(), rec, emp)
	if err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	rec, err = h.Service.MarkForm16Generated(r.Context(), id, ref, user.UserID)
	shared.RespondCreated(w, r, rec, err)
}

func (h *Handler) handleDownloadForm16(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	rec, err := h.Service.Get(r.Context(), shared.PathID(r, "recordID"))
	if err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	if user.Role == auth.RoleEmployee && user.UserID != rec.EmployeeID {
		shared.Respond(w, r, nil, errs.NotFound("tax record", rec.ID))
		return
	}
	if !rec.Form16Generated || rec.Form16Ref == "" {
		shared.Respond(w, r, nil, errs.NotFound("form 16", rec.ID))
		return
	}
	shared.ServePDF(w, r, h.Documents, rec.Form16Ref, path.Base(rec.Form16Ref))
}
