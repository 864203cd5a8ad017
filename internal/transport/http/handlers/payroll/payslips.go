package payrollhandler

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type issuePayload struct {
	EmployeeID      string          `json:"employeeId" validate:"required,max=64"`
	PeriodStart     string          `json:"periodStart" validate:"required"`
	PeriodEnd       string          `json:"periodEnd" validate:"required"`
	Frequency       string          `json:"frequency" validate:"omitempty,oneof=monthly semi_monthly bi_weekly weekly"`
	Allowances      decimal.Decimal `json:"allowances"`
	OtherDeductions decimal.Decimal `json:"otherDeductions"`
	Notes           string          `json:"notes" validate:"max=500"`
	IssueDate       string          `json:"issueDate"`
}

type batchEntryPayload struct {
	EmployeeID      string          `json:"employeeId" validate:"required,max=64"`
	Allowances      decimal.Decimal `json:"allowances"`
	OtherDeductions decimal.Decimal `json:"otherDeductions"`
	Notes           string          `json:"notes" validate:"max=500"`
}

type batchPayload struct {
	Entries     []batchEntryPayload `json:"entries" validate:"required,min=1,max=500,dive"`
	PeriodStart string              `json:"periodStart" validate:"required"`
	PeriodEnd   string              `json:"periodEnd" validate:"required"`
	Frequency   string              `json:"frequency" validate:"omitempty,oneof=monthly semi_monthly bi_weekly weekly"`
	IssueDate   string              `json:"issueDate"`
}

type paymentPayload struct {
	Method    string `json:"method" validate:"required,max=64"`
	Reference string `json:"reference" validate:"max=128"`
}

type signPayload struct {
	// Artifact is the base64-encoded signature image or document.
	Artifact string `json:"artifact" validate:"required"`
}

func (h *Handler) handleIssuePayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload issuePayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	start, _ := v.Date("periodStart", payload.PeriodStart)
	end, _ := v.Date("periodEnd", payload.PeriodEnd)
	v.DateOrder("periodStart", start, "periodEnd", end)
	issueDate := optionalDate(v, "issueDate", payload.IssueDate)
	if v.Reject(w, requestID) {
		return
	}

	p, err := h.Service.Issue(r.Context(), payroll.IssueRequest{
		EmployeeID:      payload.EmployeeID,
		PeriodStart:     start,
		PeriodEnd:       end,
		Frequency:       payroll.Frequency(payload.Frequency),
		Allowances:      payload.Allowances,
		OtherDeductions: payload.OtherDeductions,
		Notes:           strings.TrimSpace(payload.Notes),
		IssueDate:       issueDate,
		ActorID:         user.UserID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, p, requestID)
}

func (h *Handler) handleIssueBatch(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload batchPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	start, _ := v.Date("periodStart", payload.PeriodStart)
	end, _ := v.Date("periodEnd", payload.PeriodEnd)
	v.DateOrder("periodStart", start, "periodEnd", end)
	issueDate := optionalDate(v, "issueDate", payload.IssueDate)
	if v.Reject(w, requestID) {
		return
	}

	entries := make([]payroll.BatchEntry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		entries = append(entries, payroll.BatchEntry{
			EmployeeID:      e.EmployeeID,
			Allowances:      e.Allowances,
			OtherDeductions: e.OtherDeductions,
			Notes:           strings.TrimSpace(e.Notes),
		})
	}
	result := h.Service.IssueBatch(r.Context(), payroll.BatchRequest{
		Entries:     entries,
		PeriodStart: start,
		PeriodEnd:   end,
		Frequency:   payroll.Frequency(payload.Frequency),
		IssueDate:   issueDate,
		ActorID:     user.UserID,
	})
	api.Success(w, result, requestID)
}

func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := payroll.PayslipFilter{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		Status:     payroll.PayslipStatus(q.Get("status")),
		Kind:       payroll.PayslipKind(q.Get("kind")),
	}
	v.Enum("status", q.Get("status"), []string{
		string(payroll.PayslipIssued),
		string(payroll.PayslipConfirmed),
		string(payroll.PayslipPublished),
		string(payroll.PayslipPaid),
		string(payroll.PayslipAcknowledged),
	}, "unknown payslip status")
	v.Enum("kind", q.Get("kind"), []string{string(payroll.PayslipRegular), string(payroll.PayslipCorrection)}, "unknown payslip kind")
	if raw := q.Get("issueDate"); raw != "" {
		if issued, ok := v.Date("issueDate", raw); ok {
			filter.IssueDate = &issued
		}
	}
	if v.Reject(w, requestID) {
		return
	}
	if !canSeeAll(user) {
		if user.EmployeeID == "" {
			api.Fail(w, http.StatusForbidden, "forbidden", "no employee linked to this account", requestID)
			return
		}
		filter.EmployeeID = user.EmployeeID
	}

	payslips := h.Service.ListPayslips(r.Context(), filter)
	if !canSeeAll(user) {
		visible := payslips[:0]
		for _, p := range payslips {
			if p.Status.AtLeast(payroll.PayslipPublished) {
				visible = append(visible, p)
			}
		}
		payslips = visible
	}
	api.Success(w, page(payslips, shared.ParsePagination(r, 50, 200)), requestID)
}

func (h *Handler) handleGetPayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.GetPayslip(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.payslipVisibleOrFail(w, r, user, p) {
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConfirmPayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.Confirm(r.Context(), chi.URLParam(r, "payslipID"), user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePublishPayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.Service.Publish(r.Context(), chi.URLParam(r, "payslipID"), user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload paymentPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	p, err := h.Service.RecordPayment(r.Context(), chi.URLParam(r, "payslipID"), payroll.PaymentRequest{
		Method:    payload.Method,
		Reference: payload.Reference,
	}, user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, p, requestID)
}

// handleSignPayslip lets an employee sign their own payslip. Payroll staff may attach
// a signature collected offline.
func (h *Handler) handleSignPayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload signPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	artifact, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload.Artifact))
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "artifact", Reason: "must be base64 encoded"}})
		return
	}

	payslipID := chi.URLParam(r, "payslipID")
	current, err := h.Service.GetPayslip(r.Context(), payslipID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.payslipVisibleOrFail(w, r, user, current) {
		return
	}
	p, err := h.Service.Sign(r.Context(), payslipID, artifact, user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, p, requestID)
}

func (h *Handler) handleAcknowledgePayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "forbidden", "no employee linked to this account", requestID)
		return
	}
	p, err := h.Service.Acknowledge(r.Context(), chi.URLParam(r, "payslipID"), user.EmployeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, p, requestID)
}
