package disbursementhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"paycore/internal/domain/auth"
	"paycore/internal/domain/disbursement"
	"paycore/internal/transport/http/api"
	"paycore/internal/transport/http/middleware"
	"paycore/internal/transport/http/shared"
)

type Handler struct {
	Service     *disbursement.Service
	Perms       middleware.PermissionChecker
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *disbursement.Service, perms middleware.PermissionChecker, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Perms: perms, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermDisbursementRead, h.Perms)
	run := middleware.RequirePermission(auth.PermDisbursementRun, h.Perms)
	recon := middleware.RequirePermission(auth.PermDisbursementRecon, h.Perms)

	r.Route("/disbursements", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(run).Post("/", h.handleCreate)
		r.With(read).Get("/retry-eligible", h.handleRetryEligible)
		r.With(run).Post("/batches", h.handleCreateBatch)
		r.With(run).Post("/batches/{batchID}/process", h.handleProcessBatch)
		r.With(read).Get("/{disbursementID}", h.handleGet)
		r.With(run).Post("/{disbursementID}/validate", h.handleValidate)
		r.With(run).Post("/{disbursementID}/initiate", h.handleInitiate)
		r.With(run).Post("/{disbursementID}/retry", h.handleRetry)
		r.With(run).Post("/{disbursementID}/cancel", h.handleCancel)
		r.With(recon).Post("/{disbursementID}/reconcile", h.handleReconcile)
		r.With(recon).Post("/{disbursementID}/discrepancy/resolve", h.handleResolveDiscrepancy)
		r.With(middleware.RequirePermission(auth.PermPaymentCallback, h.Perms)).Post("/{disbursementID}/status", h.handleStatusCallback)
	})
}

func masked(d *disbursement.Disbursement) disbursement.Disbursement {
	return d.Masked()
}

func maskedList(items []*disbursement.Disbursement) []disbursement.Disbursement {
	out := make([]disbursement.Disbursement, 0, len(items))
	for _, d := range items {
		out = append(out, d.Masked())
	}
	return out
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Service.List(r.Context(), disbursement.Filter{
		BatchID:    q.Get("batchId"),
		CycleID:    q.Get("cycleId"),
		EmployeeID: q.Get("employeeId"),
		Status:     disbursement.Status(q.Get("status")),
	})
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, shared.Paginate(maskedList(items), shared.ParsePagination(r, 100, 500)), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Get(r.Context(), shared.PathID(r, "disbursementID"))
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, masked(d), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload disbursement.CreateInput
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	d, err := h.Service.Create(r.Context(), payload, user.UserID)
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, masked(d), middleware.GetRequestID(r.Context()))
}

type batchRequest struct {
	CycleID string              `json:"cycleId"`
	Method  disbursement.Method `json:"method,omitempty"`
}

func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload batchRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	res, err := h.Service.CreateBatch(r.Context(), payload.CycleID, payload.Method, user.UserID)
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Created(w, res, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	batchID := shared.PathID(r, "batchID")
	h.idempotent(w, r, user, "disbursement.batch.process", batchID, func(ctx context.Context) (any, error) {
		return h.Service.ProcessBatch(ctx, batchID, user.UserID)
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	d, err := h.Service.Validate(r.Context(), shared.PathID(r, "disbursementID"), user.UserID)
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, masked(d), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	id := shared.PathID(r, "disbursementID")
	h.idempotent(w, r, user, "disbursement.initiate", id, func(ctx context.Context) (any, error) {
		d, err := h.Service.InitiatePayment(ctx, id, user.UserID)
		if err != nil {
			return nil, err
		}
		return masked(d), nil
	})
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	d, err := h.Service.RetryPayment(r.Context(), shared.PathID(r, "disbursementID"), user.UserID)
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, masked(d), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload shared.ReasonRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	d, err := h.Service.Cancel(r.Context(), shared.PathID(r, "disbursementID"), payload.Reason, user.UserID)
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, masked(d), middleware.GetRequestID(r.Context()))
}

type reconcileRequest struct {
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload reconcileRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("reference", payload.Reference)
	amount, amountOK := shared.ParseAmount(payload.Amount)
	if !amountOK {
		v.Add("amount", "must be a decimal amount")
	}
	date, _ := v.Date("date", payload.Date)
	if err := v.Err(); err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	d, err := h.Service.ReconcilePayment(r.Context(), shared.PathID(r, "disbursementID"), disbursement.StatementEntry{
		Reference: strings.TrimSpace(payload.Reference),
		Amount:    amount,
		Date:      date,
	}, user.UserID)
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, masked(d), middleware.GetRequestID(r.Context()))
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

func (h *Handler) handleResolveDiscrepancy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload resolveRequest
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	d, err := h.Service.ResolveDiscrepancy(r.Context(), shared.PathID(r, "disbursementID"), payload.Resolution, user.UserID)
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, masked(d), middleware.GetRequestID(r.Context()))
}

// handleStatusCallback receives asynchronous outcomes from the payment rail.
func (h *Handler) handleStatusCallback(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var payload disbursement.StatusUpdate
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	d, err := h.Service.UpdatePaymentStatus(r.Context(), shared.PathID(r, "disbursementID"), payload, user.UserID)
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, masked(d), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRetryEligible(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListRetryEligible(r.Context(), time.Now().UTC())
	if err != nil {
		api.FailErr(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, maskedList(items), middleware.GetRequestID(r.Context()))
}

// idempotent replays the stored response when the caller repeats an
// Idempotency-Key for the same target.
func (h *Handler) idempotent(w http.ResponseWriter, r *http.Request, user auth.UserContext, endpoint, target string, run func(context.Context) (any, error)) {
	reqID := middleware.GetRequestID(r.Context())
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	hash := middleware.RequestHash([]byte(target))
	if key != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, endpoint, key, hash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), reqID)
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "endpoint", endpoint, "err", err)
		}
		if found {
			api.Success(w, stored, reqID)
			return
		}
	}

	result, err := run(r.Context())
	if err != nil {
		api.FailErr(w, err, reqID)
		return
	}
	if key != "" && h.Idempotency != nil {
		payload, err := json.Marshal(result)
		if err != nil {
			slog.Warn("idempotency response marshal failed", "endpoint", endpoint, "err", err)
		} else if err := h.Idempotency.Save(r.Context(), user.UserID, endpoint, key, hash, payload); err != nil {
			slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err)
		}
	}
	api.Success(w, result, reqID)
}
