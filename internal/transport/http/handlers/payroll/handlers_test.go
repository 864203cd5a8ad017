package payrollhandler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hrpay/internal/domain/attendance"
	"hrpay/internal/domain/audit"
	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/directory"
	"hrpay/internal/domain/loans"
	"hrpay/internal/domain/notifications"
	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
)

var (
	officer  = auth.UserContext{UserID: "u-officer", Role: auth.RolePayrollOfficer}
	approver = auth.UserContext{UserID: "u-approver", Role: auth.RoleApprover}
	staffAna = auth.UserContext{UserID: "u-ana", EmployeeID: "e1", Role: auth.RoleEmployee}
	staffBen = auth.UserContext{UserID: "u-ben", EmployeeID: "e2", Role: auth.RoleEmployee}
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *api.Error      `json:"error"`
}

type pageOf[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type testEnv struct {
	router chi.Router
	inbox  *notifications.Inbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := directory.NewStore()
	require.NoError(t, dir.Put(payroll.Employee{
		ID:            "e1",
		Name:          "Ana Cruz",
		Email:         "ana@example.com",
		MonthlySalary: decimal.RequireFromString("22000"),
		PayFrequency:  payroll.FrequencyMonthly,
		BankAccount:   "BDO-0001",
	}))
	require.NoError(t, dir.Put(payroll.Employee{
		ID:            "e2",
		Name:          "Ben Reyes",
		Email:         "ben@example.com",
		MonthlySalary: decimal.RequireFromString("30000"),
		PayFrequency:  payroll.FrequencyMonthly,
		BankAccount:   "BPI-0002",
	}))

	inbox := notifications.NewInbox()
	auditSvc := audit.New(audit.NewMemoryStore(), nil)
	now := time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)
	svc := payroll.NewService(payroll.NewStore(), payroll.DefaultRules(), dir, attendance.NewStore(), loans.NewBook(), payroll.Options{
		Notifier: notifications.New(inbox, nil),
		Auditor:  auditSvc,
		Clock:    func() time.Time { return now },
	})

	r := chi.NewRouter()
	NewHandler(svc, inbox, auditSvc, "", nil).RegisterRoutes(r)
	return &testEnv{router: r, inbox: inbox}
}

func (e *testEnv) do(t *testing.T, user *auth.UserContext, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success, rec.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NotNil(t, env.Error, rec.Body.String())
	return env.Error.Code
}

func (e *testEnv) issue(t *testing.T, employeeID string) payroll.Payslip {
	t.Helper()
	rec := e.do(t, &officer, http.MethodPost, "/payroll/payslips", map[string]any{
		"employeeId":  employeeID,
		"periodStart": "2024-06-01",
		"periodEnd":   "2024-06-30",
		"issueDate":   "2024-06-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[payroll.Payslip](t, rec)
}

func TestPayslipLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	p := env.issue(t, "e1")
	assert.Equal(t, payroll.PayslipIssued, p.Status)
	assert.Equal(t, "20260", p.Net.String())

	rec := env.do(t, &officer, http.MethodPost, "/payroll/payslips/"+p.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, &officer, http.MethodPost, "/payroll/payslips/"+p.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, &staffAna, http.MethodGet, "/payroll/payslips/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, &staffBen, http.MethodGet, "/payroll/payslips/"+p.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, &staffAna, http.MethodGet, "/payroll/payslips/"+p.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = env.do(t, &officer, http.MethodPost, "/payroll/payslips/"+p.ID+"/payment", map[string]string{
		"method":    "bank_transfer",
		"reference": "TRX-1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, &staffAna, http.MethodPost, "/payroll/payslips/"+p.ID+"/acknowledge", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", errorCode(t, rec))

	rec = env.do(t, &staffAna, http.MethodPost, "/payroll/payslips/"+p.ID+"/sign", map[string]string{
		"artifact": base64.StdEncoding.EncodeToString([]byte("signature-image")),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	signed := decode[payroll.Payslip](t, rec)
	require.NotNil(t, signed.Signature)
	assert.NotEmpty(t, signed.Signature.Digest)

	rec = env.do(t, &staffBen, http.MethodPost, "/payroll/payslips/"+p.ID+"/acknowledge", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, &staffAna, http.MethodPost, "/payroll/payslips/"+p.ID+"/acknowledge", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, payroll.PayslipAcknowledged, decode[payroll.Payslip](t, rec).Status)

	rec = env.do(t, &staffAna, http.MethodGet, "/payroll/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[pageOf[notifications.Notification]](t, rec)
	assert.Equal(t, 4, inbox.Total)
}

func TestPayslipRefusalsMapToStatusCodes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, &officer, http.MethodPost, "/payroll/payslips", map[string]any{
		"employeeId":      "e1",
		"periodStart":     "2024-06-01",
		"periodEnd":       "2024-06-30",
		"otherDeductions": "30000",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_refused", errorCode(t, rec))
	assert.Contains(t, rec.Body.String(), "net")

	rec = env.do(t, &officer, http.MethodPost, "/payroll/payslips", map[string]any{
		"periodStart": "2024-06-01",
		"periodEnd":   "2024-06-30",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	rec = env.do(t, &officer, http.MethodPost, "/payroll/payslips", `{"employeeId":"e1","periodStart":"2024-06-30","periodEnd":"2024-06-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	p := env.issue(t, "e1")
	rec = env.do(t, &officer, http.MethodPost, "/payroll/payslips/"+p.ID+"/publish", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", errorCode(t, rec))

	rec = env.do(t, &officer, http.MethodGet, "/payroll/payslips/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, &staffAna, http.MethodPost, "/payroll/payslips", map[string]any{"employeeId": "e1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, nil, http.MethodGet, "/payroll/payslips", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/payslips/"+p.ID+"/pdf", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = env.do(t, &staffAna, http.MethodGet, "/payroll/payslips/"+p.ID+"/pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployeesSeeOnlyPublishedPayslips(t *testing.T) {
	env := newTestEnv(t)
	p := env.issue(t, "e1")

	hidden := func(stage string) {
		rec := env.do(t, &staffAna, http.MethodGet, "/payroll/payslips/"+p.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, stage)
		assert.Equal(t, "not_found", errorCode(t, rec), stage)

		rec = env.do(t, &staffAna, http.MethodGet, "/payroll/payslips", nil)
		require.Equal(t, http.StatusOK, rec.Code, stage)
		listed := decode[pageOf[payroll.Payslip]](t, rec)
		assert.Zero(t, listed.Total, stage)
		assert.Empty(t, listed.Items, stage)

		rec = env.do(t, &staffAna, http.MethodPost, "/payroll/payslips/"+p.ID+"/sign", map[string]string{
			"artifact": base64.StdEncoding.EncodeToString([]byte("signature-image")),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code, stage)
	}
	hidden("issued")

	rec := env.do(t, &officer, http.MethodPost, "/payroll/payslips/"+p.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hidden("confirmed")

	rec = env.do(t, &officer, http.MethodGet, "/payroll/payslips/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, &officer, http.MethodPost, "/payroll/payslips/"+p.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, &staffAna, http.MethodGet, "/payroll/payslips/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, &staffAna, http.MethodGet, "/payroll/payslips", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[pageOf[payroll.Payslip]](t, rec)
	require.Equal(t, 1, listed.Total)
	assert.Equal(t, payroll.PayslipPublished, listed.Items[0].Status)
}

func TestPayslipPDFNameTracksSignature(t *testing.T) {
	p := payroll.Payslip{ID: "ps-1", Status: payroll.PayslipPublished}
	unsigned := payslipPDFName(p)
	assert.Equal(t, "ps-1-published.pdf", unsigned)

	p.Signature = &payroll.Signature{Digest: "abc", SignedAt: time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)}
	signed := payslipPDFName(p)
	assert.NotEqual(t, unsigned, signed)
	assert.Equal(t, "ps-1-published-signed-1719820800.pdf", signed)

	p.Signature.SignedAt = p.Signature.SignedAt.Add(time.Hour)
	assert.NotEqual(t, signed, payslipPDFName(p))
}

func TestEmployeeListingIsScopedToSelf(t *testing.T) {
	env := newTestEnv(t)
	own := env.issue(t, "e1")
	env.issue(t, "e2")
	for _, step := range []string{"confirm", "publish"} {
		rec := env.do(t, &officer, http.MethodPost, "/payroll/payslips/"+own.ID+"/"+step, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := env.do(t, &staffAna, http.MethodGet, "/payroll/payslips?employeeId=e2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[pageOf[payroll.Payslip]](t, rec)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "e1", mine.Items[0].EmployeeID)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/payslips?issueDate=2024-06-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[pageOf[payroll.Payslip]](t, rec).Total)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/payslips?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchIssuanceReportsSkips(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, &officer, http.MethodPost, "/payroll/payslips/batch", map[string]any{
		"periodStart": "2024-06-01",
		"periodEnd":   "2024-06-30",
		"issueDate":   "2024-06-30",
		"entries": []map[string]any{
			{"employeeId": "e1"},
			{"employeeId": "ghost"},
			{"employeeId": "e2", "otherDeductions": "50000"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[payroll.BatchResult](t, rec)
	require.Len(t, result.Issued, 1)
	assert.Equal(t, "e1", result.Issued[0].EmployeeID)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "ghost", result.Skipped[0].EmployeeID)
	assert.Equal(t, "e2", result.Skipped[1].EmployeeID)
	assert.Equal(t, payroll.KindValidation, result.Skipped[1].Kind)
}

func TestRunLockAndBankFile(t *testing.T) {
	env := newTestEnv(t)
	ana := env.issue(t, "e1")
	ben := env.issue(t, "e2")

	rec := env.do(t, &officer, http.MethodPost, "/payroll/runs", map[string]any{
		"date":       "2024-06-30",
		"payslipIds": []string{ana.ID, ben.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, &officer, http.MethodPost, "/payroll/runs/2024-06-30/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, &officer, http.MethodPost, "/payroll/runs/2024-06-30/lock", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, &approver, http.MethodPost, "/payroll/runs/2024-06-30/lock", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[payroll.Run](t, rec)
	assert.True(t, run.Locked)
	require.NotNil(t, run.Snapshot)
	assert.NotEmpty(t, run.Snapshot.Digest)
	assert.Equal(t, "46930", run.TotalNet.String())

	rec = env.do(t, &approver, http.MethodPost, "/payroll/runs/2024-06-30/lock", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", errorCode(t, rec))

	rec = env.do(t, &officer, http.MethodPost, "/payroll/payslips", map[string]any{
		"employeeId":  "e1",
		"periodStart": "2024-06-01",
		"periodEnd":   "2024-06-30",
		"issueDate":   "2024-06-30",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "immutable", errorCode(t, rec))

	rec = env.do(t, &officer, http.MethodGet, "/payroll/runs/2024-06-30/bank-file", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, disbursementHeader, rows[0])
	assert.Equal(t, []string{"e1", "Ana Cruz", "BDO-0001", "20260.00"}, rows[1])
	assert.Equal(t, "Ben Reyes", rows[2][1])

	rec = env.do(t, &officer, http.MethodGet, "/payroll/runs/2024-06-30/bank-file?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	name, err := book.GetCellValue(disbursementSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Ana Cruz", name)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/runs/2024-06-30/bank-file?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/runs/2024-13-45", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/runs/2024-07-15", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdjustmentFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, &officer, http.MethodPost, "/payroll/adjustments", map[string]any{
		"employeeId": "e1",
		"type":       "allowance",
		"amount":     "500",
		"reason":     "missed meal allowance",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	adj := decode[payroll.Adjustment](t, rec)
	assert.Equal(t, payroll.AdjustmentPending, adj.Status)

	rec = env.do(t, &officer, http.MethodPost, "/payroll/adjustments/"+adj.ID+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, &officer, http.MethodPost, "/payroll/adjustments/"+adj.ID+"/apply", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, &approver, http.MethodPost, "/payroll/adjustments/"+adj.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, &officer, http.MethodPost, "/payroll/adjustments/"+adj.ID+"/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	applied := decode[adjustmentResult](t, rec)
	assert.Equal(t, payroll.AdjustmentApplied, applied.Adjustment.Status)
	assert.Equal(t, payroll.PayslipCorrection, applied.Payslip.Kind)
	assert.Equal(t, "ADJ-2024-06-30", applied.Payslip.RunLabel)
	assert.Equal(t, adj.ID, applied.Payslip.AdjustmentRef)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/adjustments?status=applied", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[pageOf[payroll.Adjustment]](t, rec).Total)

	rec = env.do(t, &officer, http.MethodPost, "/payroll/adjustments", map[string]any{
		"employeeId": "e1",
		"type":       "bonus",
		"amount":     "500",
		"reason":     "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinalPayFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{
		"employeeId": "e1",
		"resignedAt": "2024-06-15T17:00:00Z",
		"leaveDays":  "2",
	}
	rec := env.do(t, &officer, http.MethodPost, "/payroll/final-pay", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fp := decode[payroll.FinalPay](t, rec)
	assert.Equal(t, payroll.FinalPayDraft, fp.Status)

	rec = env.do(t, &officer, http.MethodPost, "/payroll/final-pay", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, &officer, http.MethodPost, "/payroll/final-pay/"+fp.ID+"/lock", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for _, step := range []string{"lock", "publish", "paid"} {
		rec = env.do(t, &approver, http.MethodPost, "/payroll/final-pay/"+fp.ID+"/"+step, nil)
		require.Equal(t, http.StatusOK, rec.Code, step+": "+rec.Body.String())
	}
	assert.Equal(t, payroll.FinalPayPaid, decode[payroll.FinalPay](t, rec).Status)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/final-pay?employeeId=e1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[pageOf[payroll.FinalPay]](t, rec).Total)

	rec = env.do(t, &officer, http.MethodPost, "/payroll/final-pay", map[string]any{
		"employeeId":  "e1",
		"resignedAt":  "2024-06-20",
		"loanBalance": "-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPolicyEndpoints(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, &approver, http.MethodPost, "/payroll/policy", map[string]string{"semiMonthlyPolicy": "second"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, payroll.SemiMonthlySecond, decode[policyView](t, rec).SemiMonthlyPolicy)

	rec = env.do(t, &approver, http.MethodPost, "/payroll/policy", map[string]string{"semiMonthlyPolicy": "never"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payroll.SemiMonthlySecond, decode[policyView](t, rec).SemiMonthlyPolicy)
}

func TestAuditTrailListing(t *testing.T) {
	env := newTestEnv(t)
	p := env.issue(t, "e1")

	rec := env.do(t, &approver, http.MethodGet, "/payroll/audit?entityId="+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	events := decode[pageOf[audit.Event]](t, rec)
	require.Equal(t, 1, events.Total)
	assert.Equal(t, "u-officer", events.Items[0].ActorID)

	rec = env.do(t, &officer, http.MethodGet, "/payroll/audit", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkNotificationRead(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.inbox.Deliver(context.Background(), notifications.Notification{
		ID:         "n-1",
		Kind:       payroll.EventPayslipPublished,
		EmployeeID: "e1",
		Title:      "Payslip published",
	}))

	rec := env.do(t, &staffBen, http.MethodPost, "/payroll/notifications/n-1/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, &staffAna, http.MethodPost, "/payroll/notifications/n-1/read", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
