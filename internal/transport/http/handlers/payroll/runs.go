package payrollhandler

import (
	"context"
	"net/http"
	"time"

	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

type createRunPayload struct {
	Date       string   `json:"date" validate:"required"`
	PayslipIDs []string `json:"payslipIds" validate:"max=5000,dive,required"`
}

func (h *Handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	var payload createRunPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	date, _ := v.Date("date", payload.Date)
	if v.Reject(w, requestID) {
		return
	}

	run, err := h.Service.CreateDraft(r.Context(), date, payload.PayslipIDs, user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, run, requestID)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.Service.ListRuns(r.Context())
	api.Success(w, page(runs, shared.ParsePagination(r, 50, 200)), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	date, ok := runDate(w, r)
	if !ok {
		return
	}
	run, err := h.Service.GetRun(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleValidateRun(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.Service.Validate)
}

func (h *Handler) handleLockRun(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.Service.Lock)
}

func (h *Handler) handlePublishRun(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.Service.PublishRun)
}

func (h *Handler) handleMarkRunPaid(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.Service.MarkRunPaid)
}

type runTransitionFunc func(ctx context.Context, date time.Time, actorID string) (payroll.Run, error)

func (h *Handler) runTransition(w http.ResponseWriter, r *http.Request, transition runTransitionFunc) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	date, ok := runDate(w, r)
	if !ok {
		return
	}
	run, err := transition(r.Context(), date, user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}
