package payrollhandler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/payroll"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service   *payroll.Service
	Documents shared.DocumentOpener
	Perms     middleware.PermissionChecker
}

func NewHandler(service *payroll.Service, docs shared.DocumentOpener, perms middleware.PermissionChecker) *Handler {
	return &Handler{Service: service, Documents: docs, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPayrollRead, h.Perms)
	run := middleware.RequirePermission(auth.PermPayrollRun, h.Perms)
	approve := middleware.RequirePermission(auth.PermPayrollApprove, h.Perms)

	r.Route("/payrolls", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(run).Post("/", h.handleCalculate)
		r.With(read).Get("/{payrollID}", h.handleGet)
		r.With(run).Post("/{payrollID}/recalculate", h.handleRecalculate)
		r.With(run).Put("/{payrollID}/adjustments", h.handleAdjustments)
		r.With(run).Put("/{payrollID}/cycle", h.handleAssignCycle)
		r.With(approve).Post("/{payrollID}/approvals/approve", h.handleApproveLevel)
		r.With(approve).Post("/{payrollID}/approvals/reject", h.handleRejectLevel)
		r.With(run).Post("/{payrollID}/approvals/reroute", h.handleReroute)
		r.With(approve).Post("/{payrollID}/approve", h.handleApprove)
		r.With(run).Post("/{payrollID}/cancel", h.handleCancel)
		r.With(run).Post("/{payrollID}/payslip", h.handleRegeneratePayslip)
		r.With(middleware.RequirePermission(auth.PermDocumentsRead, h.Perms)).Get("/{payrollID}/payslip", h.handleDownloadPayslip)
	})
}

// ownPayrollsOnly restricts employees to their own records.
func ownPayrollsOnly(user auth.UserContext, p *payroll.Payroll) error {
	if user.Role == auth.RoleEmployee && p.EmployeeID != user.UserID {
		return errs.NotFound("payroll", p.ID)
	}
	return nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	v := shared.NewValidator()
	f := payroll.Filter{
		Month:      shared.QueryInt(r, "month", v),
		Year:       shared.QueryInt(r, "year", v),
		CycleID:    r.URL.Query().Get("cycleId"),
		EmployeeID: r.URL.Query().Get("employeeId"),
		Status:     payroll.Status(r.URL.Query().Get("status")),
	}
	if err := v.Err(); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	if user.Role == auth.RoleEmployee {
		f.EmployeeID = user.UserID
	}
	items, err := h.Service.List(r.Context(), f)
	if err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	shared.Respond(w, r, shared.Paginate(items, shared.ParsePagination(r, 100, 500)), nil)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.Get(r.Context(), shared.PathID(r, "payrollID"))
	if err == nil {
		err = ownPayrollsOnly(user, p)
	}
	shared.Respond(w, r, p, err)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload payroll.CalculateInput
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	p, err := h.Service.Calculate(r.Context(), payload, user.UserID)
	shared.RespondCreated(w, r, p, err)
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.Recalculate(r.Context(), shared.PathID(r, "payrollID"), user.UserID)
	shared.Respond(w, r, p, err)
}

func (h *Handler) handleAdjustments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload payroll.Adjustments
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	p, err := h.Service.SetAdjustments(r.Context(), shared.PathID(r, "payrollID"), payload, user.UserID)
	shared.Respond(w, r, p, err)
}

type cycleRequest struct {
	CycleID string `json:"cycleId"`
}

func (h *Handler) handleAssignCycle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload cycleRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	p, err := h.Service.AssignCycle(r.Context(), shared.PathID(r, "payrollID"), payload.CycleID, user.UserID)
	shared.Respond(w, r, p, err)
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
	p, err := h.Service.ApproveLevel(r.Context(), shared.PathID(r, "payrollID"), shared.Decision(user, payload), user.UserID)
	shared.Respond(w, r, p, err)
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
	p, err := h.Service.RejectLevel(r.Context(), shared.PathID(r, "payrollID"), shared.Decision(user, payload), user.UserID)
	shared.Respond(w, r, p, err)
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
	p, err := h.Service.Reroute(r.Context(), shared.PathID(r, "payrollID"), payload.Level, payload.Role, user.UserID)
	shared.Respond(w, r, p, err)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.Approve(r.Context(), shared.PathID(r, "payrollID"), user.UserID)
	shared.Respond(w, r, p, err)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload shared.ReasonRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	p, err := h.Service.Cancel(r.Context(), shared.PathID(r, "payrollID"), payload.Reason, user.UserID)
	shared.Respond(w, r, p, err)
}

func (h *Handler) handleRegeneratePayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.RegeneratePayslip(r.Context(), shared.PathID(r, "payrollID"), user.UserID)
	shared.Respond(w, r, p, err)
}

func (h *Handler) handleDownloadPayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.Get(r.Context(), shared.PathID(r, "payrollID"))
	if err == nil {
		err = ownPayrollsOnly(user, p)
	}
	if err != nil {
		shared.Respond(w, r, nil, err)
		return
	}
	if p.Payslip == nil {
		shared.Respond(w, r, nil, errs.NotFound("payslip", p.ID))
		return
	}
	shared.ServePDF(w, r, h.Documents, p.Payslip.Ref, fmt.Sprintf("payslip-%d-%02d.pdf", p.Year, p.Month))
}
