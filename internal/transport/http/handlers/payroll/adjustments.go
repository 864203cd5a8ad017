package payrollhandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type proposeAdjustmentPayload struct {
	EmployeeID string          `json:"employeeId" validate:"required,max=64"`
	Type       string          `json:"type" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason" validate:"required,max=500"`
}

type applyAdjustmentPayload struct {
	RunLabel string `json:"runLabel" validate:"max=64"`
}

type adjustmentResult struct {
	Adjustment payroll.Adjustment `json:"adjustment"`
	Payslip    payroll.Payslip    `json:"payslip"`
}

func adjustmentTypeNames() []string {
	names := make([]string, 0, len(payroll.AdjustmentTypes))
	for _, t := range payroll.AdjustmentTypes {
		names = append(names, string(t))
	}
	return names
}

func (h *Handler) handleProposeAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload proposeAdjustmentPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Enum("type", payload.Type, adjustmentTypeNames(), "unknown adjustment type")
	if v.Reject(w, requestID) {
		return
	}

	adj, err := h.Service.ProposeAdjustment(r.Context(), payroll.ProposeRequest{
		EmployeeID: payload.EmployeeID,
		Type:       payroll.AdjustmentType(strings.ToLower(strings.TrimSpace(payload.Type))),
		Amount:     payload.Amount,
		Reason:     payload.Reason,
		ActorID:    user.UserID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, adj, requestID)
}

func (h *Handler) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	v.Enum("status", q.Get("status"), []string{
		string(payroll.AdjustmentPending),
		string(payroll.AdjustmentApproved),
		string(payroll.AdjustmentRejected),
		string(payroll.AdjustmentApplied),
	}, "unknown adjustment status")
	if v.Reject(w, requestID) {
		return
	}
	adjustments := h.Service.ListAdjustments(r.Context(), payroll.AdjustmentFilter{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		Status:     payroll.AdjustmentStatus(q.Get("status")),
	})
	api.Success(w, page(adjustments, shared.ParsePagination(r, 50, 200)), requestID)
}

func (h *Handler) handleGetAdjustment(w http.ResponseWriter, r *http.Request) {
	adj, err := h.Service.GetAdjustment(r.Context(), chi.URLParam(r, "adjustmentID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, adj, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApproveAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	adj, err := h.Service.ApproveAdjustment(r.Context(), chi.URLParam(r, "adjustmentID"), user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, adj, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRejectAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	adj, err := h.Service.RejectAdjustment(r.Context(), chi.URLParam(r, "adjustmentID"), user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, adj, middleware.GetRequestID(r.Context()))
}

// handleApplyAdjustment accepts an empty body; the run label then defaults
// to ADJ-<today>.
func (h *Handler) handleApplyAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload applyAdjustmentPayload
	if r.ContentLength != 0 {
		if !shared.DecodeJSON(w, r, &payload, requestID) {
			return
		}
	}
	adj, p, err := h.Service.ApplyAdjustment(r.Context(), chi.URLParam(r, "adjustmentID"), payload.RunLabel, user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, adjustmentResult{Adjustment: adj, Payslip: p}, requestID)
}
