package payrollhandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrpay/internal/domain/audit"
	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/notifications"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type Handler struct {
	Service    *payroll.Service
	Inbox      *notifications.Inbox
	Audit      *audit.Service
	PayslipDir string
	Logger     *zap.Logger
}

func NewHandler(svc *payroll.Service, inbox *notifications.Inbox, auditSvc *audit.Service, payslipDir string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:    svc,
		Inbox:      inbox,
		Audit:      auditSvc,
		PayslipDir: payslipDir,
		Logger:     logger.Named("payroll.http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/payslips", h.handleIssuePayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/payslips/batch", h.handleIssueBatch)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, auth.PermPayrollSelf)).Get("/payslips", h.handleListPayslips)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, auth.PermPayrollSelf)).Get("/payslips/{payslipID}", h.handleGetPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/payslips/{payslipID}/confirm", h.handleConfirmPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/payslips/{payslipID}/publish", h.handlePublishPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollRun)).Post("/payslips/{payslipID}/payment", h.handleRecordPayment)
		r.With(middleware.RequirePermission(auth.PermPayrollSelf)).Post("/payslips/{payslipID}/sign", h.handleSignPayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollSelf)).Post("/payslips/{payslipID}/acknowledge", h.handleAcknowledgePayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, auth.PermPayrollSelf)).Get("/payslips/{payslipID}/pdf", h.handleDownloadPayslip)

		r.With(middleware.RequirePermission(auth.PermPayrollRun)).Post("/runs", h.handleCreateRun)
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/runs", h.handleListRuns)
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/runs/{date}", h.handleGetRun)
		r.With(middleware.RequirePermission(auth.PermPayrollRun)).Post("/runs/{date}/validate", h.handleValidateRun)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/runs/{date}/lock", h.handleLockRun)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/runs/{date}/publish", h.handlePublishRun)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/runs/{date}/paid", h.handleMarkRunPaid)
		r.With(middleware.RequirePermission(auth.PermPayrollExport)).Get("/runs/{date}/bank-file", h.handleExportBankFile)

		r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/adjustments", h.handleProposeAdjustment)
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/adjustments", h.handleListAdjustments)
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/adjustments/{adjustmentID}", h.handleGetAdjustment)
		r.With(middleware.RequirePermission(auth.PermPayrollApprove)).Post("/adjustments/{adjustmentID}/approve", h.handleApproveAdjustment)
		r.With(middleware.RequirePermission(auth.PermPayrollApprove)).Post("/adjustments/{adjustmentID}/reject", h.handleRejectAdjustment)
		r.With(middleware.RequirePermission(auth.PermPayrollRun)).Post("/adjustments/{adjustmentID}/apply", h.handleApplyAdjustment)

		r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/final-pay", h.handleComputeFinalPay)
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/final-pay", h.handleListFinalPays)
		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/final-pay/{finalPayID}", h.handleGetFinalPay)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/final-pay/{finalPayID}/lock", h.handleLockFinalPay)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/final-pay/{finalPayID}/publish", h.handlePublishFinalPay)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/final-pay/{finalPayID}/paid", h.handleMarkFinalPayPaid)

		r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/policy", h.handleGetPolicy)
		r.With(middleware.RequirePermission(auth.PermPayrollFinalize)).Post("/policy", h.handleSetPolicy)

		r.With(middleware.RequirePermission(auth.PermPayrollSelf)).Get("/notifications", h.handleListNotifications)
		r.With(middleware.RequirePermission(auth.PermPayrollSelf)).Post("/notifications/{notificationID}/read", h.handleMarkNotificationRead)
		r.With(middleware.RequirePermission(auth.PermPayrollApprove)).Get("/audit", h.handleListAudit)
	})
}

// fail maps a payroll refusal onto its HTTP status. Anything outside the
// payroll taxonomy is a server fault.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch payroll.KindOf(err) {
	case payroll.KindValidation:
		api.Fail(w, http.StatusBadRequest, "validation_refused", err.Error(), requestID)
	case payroll.KindState:
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case payroll.KindImmutability:
		api.Fail(w, http.StatusConflict, "immutable", err.Error(), requestID)
	case payroll.KindNotFound:
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	default:
		h.Logger.Error("payroll request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestId", requestID),
			zap.Error(err),
		)
		api.Fail(w, http.StatusInternalServerError, "payroll_failed", "payroll operation failed", requestID)
	}
}

// runDate reads the {date} path parameter, writing a 400 when malformed.
func runDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := chi.URLParam(r, "date")
	date, err := time.Parse(payroll.DateLayout, raw)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{
			{Field: "date", Reason: "must be a valid date in YYYY-MM-DD format"},
		})
		return time.Time{}, false
	}
	return date, true
}

// optionalDate parses an optional YYYY-MM-DD field, recording an issue on v.
func optionalDate(v *shared.Validator, field, raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, _ := v.Date(field, raw)
	return parsed
}

// canSeeAll reports whether user reads every employee's payroll records
// rather than only their own.
func canSeeAll(user auth.UserContext) bool {
	return auth.HasPermission(user.Role, auth.PermPayrollRead)
}

func (h *Handler) ownsOrFail(w http.ResponseWriter, r *http.Request, user auth.UserContext, employeeID string) bool {
	if canSeeAll(user) || (user.EmployeeID != "" && user.EmployeeID == employeeID) {
		return true
	}
	api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
	return false
}

// payslipVisibleOrFail extends ownsOrFail: employees only see their payslips
// once published, and anything earlier reads as not found.
func (h *Handler) payslipVisibleOrFail(w http.ResponseWriter, r *http.Request, user auth.UserContext, p payroll.Payslip) bool {
	if !h.ownsOrFail(w, r, user, p.EmployeeID) {
		return false
	}
	if canSeeAll(user) || p.Status.AtLeast(payroll.PayslipPublished) {
		return true
	}
	api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", middleware.GetRequestID(r.Context()))
	return false
}

func currentUser(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
	}
	return user, ok
}

func page[T any](items []T, p shared.Pagination) api.Page {
	start, end := p.Window(len(items))
	return api.Page{Items: items[start:end], Total: len(items), Limit: p.Limit, Offset: p.Offset}
}
