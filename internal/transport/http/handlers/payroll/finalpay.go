package payrollhandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type finalPayPayload struct {
	EmployeeID      string           `json:"employeeId" validate:"required,max=64"`
	ResignedAt      string           `json:"resignedAt" validate:"required"`
	LeaveDays       decimal.Decimal  `json:"leaveDays"`
	OvertimeHours   decimal.Decimal  `json:"overtimeHours"`
	OtherDeductions decimal.Decimal  `json:"otherDeductions"`
	LoanBalance     *decimal.Decimal `json:"loanBalance"`
}

func (h *Handler) handleComputeFinalPay(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload finalPayPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	resignedAt, _ := v.Date("resignedAt", payload.ResignedAt)
	v.NonNegative("loanBalance", payload.LoanBalance)
	if v.Reject(w, requestID) {
		return
	}

	fp, err := h.Service.ComputeFinalPay(r.Context(), payroll.FinalPayRequest{
		EmployeeID:      payload.EmployeeID,
		ResignedAt:      resignedAt,
		LeaveDays:       payload.LeaveDays,
		OvertimeHours:   payload.OvertimeHours,
		OtherDeductions: payload.OtherDeductions,
		LoanBalance:     payload.LoanBalance,
		ActorID:         user.UserID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, fp, requestID)
}

func (h *Handler) handleListFinalPays(w http.ResponseWriter, r *http.Request) {
	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	items := h.Service.ListFinalPays(r.Context(), employeeID)
	api.Success(w, page(items, shared.ParsePagination(r, 50, 200)), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetFinalPay(w http.ResponseWriter, r *http.Request) {
	fp, err := h.Service.GetFinalPay(r.Context(), chi.URLParam(r, "finalPayID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, fp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLockFinalPay(w http.ResponseWriter, r *http.Request) {
	h.finalPayTransition(w, r, h.Service.LockFinalPay)
}

func (h *Handler) handlePublishFinalPay(w http.ResponseWriter, r *http.Request) {
	h.finalPayTransition(w, r, h.Service.PublishFinalPay)
}

func (h *Handler) handleMarkFinalPayPaid(w http.ResponseWriter, r *http.Request) {
	h.finalPayTransition(w, r, h.Service.MarkFinalPayPaid)
}

func (h *Handler) finalPayTransition(w http.ResponseWriter, r *http.Request, transition func(context.Context, string, string) (payroll.FinalPay, error)) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	fp, err := transition(r.Context(), chi.URLParam(r, "finalPayID"), user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, fp, middleware.GetRequestID(r.Context()))
}
