package payrollhandler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrpay/internal/domain/audit"
	"hrpay/internal/domain/notifications"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type policyPayload struct {
	SemiMonthlyPolicy string `json:"semiMonthlyPolicy" validate:"required,oneof=first second both"`
}

type policyView struct {
	RuleSetVersion         string                    `json:"ruleSetVersion"`
	FormulaVersion         string                    `json:"formulaVersion"`
	DeductionTableVersion  string                    `json:"deductionTableVersion"`
	HolidayCalendarVersion string                    `json:"holidayCalendarVersion"`
	SemiMonthlyPolicy      payroll.SemiMonthlyPolicy `json:"semiMonthlyPolicy"`
	DefaultFrequency       payroll.Frequency         `json:"defaultFrequency"`
}

func newPolicyView(rules payroll.Rules) policyView {
	return policyView{
		RuleSetVersion:         rules.RuleSetVersion,
		FormulaVersion:         rules.FormulaVersion,
		DeductionTableVersion:  rules.Deductions.Version,
		HolidayCalendarVersion: rules.HolidayCalendarVersion,
		SemiMonthlyPolicy:      rules.SemiMonthlyPolicy,
		DefaultFrequency:       rules.DefaultFrequency,
	}
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	api.Success(w, newPolicyView(h.Service.Rules()), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload policyPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	if err := h.Service.SetSemiMonthlyPolicy(r.Context(), payroll.SemiMonthlyPolicy(payload.SemiMonthlyPolicy), user.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, newPolicyView(h.Service.Rules()), requestID)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	if user.EmployeeID == "" {
		api.Success(w, api.Page{Items: []notifications.Notification{}}, requestID)
		return
	}
	p := shared.ParsePagination(r, 20, 100)
	items, err := h.Inbox.List(r.Context(), user.EmployeeID, p.Limit, p.Offset)
	if err != nil {
		h.Logger.Error("list notifications failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "notifications_failed", "failed to list notifications", requestID)
		return
	}
	total, err := h.Inbox.Count(r.Context(), user.EmployeeID)
	if err != nil {
		h.Logger.Error("count notifications failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "notifications_failed", "failed to list notifications", requestID)
		return
	}
	api.Success(w, api.Page{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset}, requestID)
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	err := h.Inbox.MarkRead(r.Context(), user.EmployeeID, chi.URLParam(r, "notificationID"))
	if errors.Is(err, notifications.ErrNotificationNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "notification not found", requestID)
		return
	}
	if err != nil {
		h.Logger.Error("mark notification read failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "notifications_failed", "failed to update notification", requestID)
		return
	}
	api.Success(w, map[string]string{"status": "read"}, requestID)
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     strings.TrimSpace(q.Get("action")),
		EntityType: strings.TrimSpace(q.Get("entityType")),
		EntityID:   strings.TrimSpace(q.Get("entityId")),
		ActorUser:  strings.TrimSpace(q.Get("actorId")),
	}
	p := shared.ParsePagination(r, 50, 200)
	events, err := h.Audit.List(r.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		h.Logger.Error("list audit events failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_failed", "failed to list audit events", requestID)
		return
	}
	total, err := h.Audit.Count(r.Context(), filter)
	if err != nil {
		h.Logger.Error("count audit events failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "audit_failed", "failed to list audit events", requestID)
		return
	}
	api.Success(w, api.Page{Items: events, Total: total, Limit: p.Limit, Offset: p.Offset}, requestID)
}
