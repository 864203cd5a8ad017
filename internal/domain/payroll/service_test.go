package payroll

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueMonthly(t *testing.T, f *fixture, employeeID, issueDate string) Payslip {
	t.Helper()
	p, err := f.svc.Issue(context.Background(), IssueRequest{
		EmployeeID:  employeeID,
		PeriodStart: day("2024-06-01"),
		PeriodEnd:   day("2024-06-30"),
		IssueDate:   day(issueDate),
		ActorID:     "hr-1",
	})
	require.NoError(t, err)
	return p
}

func TestIssueComputesNetFromAllComponents(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "22000", FrequencyMonthly))
	f.attendance.holidays = []Holiday{
		{Date: day("2024-06-12"), Category: HolidayRegular, Name: "Independence Day"},
		{Date: day("2024-06-17"), Category: HolidaySpecial, Name: "Special Day"},
	}
	f.attendance.status["e1|2024-06-12"] = AttendancePresent
	f.attendance.status["e1|2024-06-17"] = AttendancePresent
	f.loans.loans["e1"] = []Loan{
		{ID: "loan-1", EmployeeID: "e1", Installment: dec("1000"), Remaining: dec("600")},
		{ID: "loan-2", EmployeeID: "e1", Installment: dec("500"), Remaining: dec("5000")},
	}

	p, err := f.svc.Issue(context.Background(), IssueRequest{
		EmployeeID:      "e1",
		PeriodStart:     day("2024-06-01"),
		PeriodEnd:       day("2024-06-30"),
		Allowances:      dec("500"),
		OtherDeductions: dec("100"),
		IssueDate:       day("2024-06-30"),
		ActorID:         "hr-1",
	})
	require.NoError(t, err)

	assert.Equal(t, PayslipIssued, p.Status)
	assert.Equal(t, FrequencyMonthly, p.Frequency)
	assertAmount(t, "22000", p.Gross)
	assertAmount(t, "1", p.GovMultiplier)
	assertAmount(t, "1740", p.GovDeductions.Total())
	assertAmount(t, "1300", p.HolidayAdjustment)
	assertAmount(t, "1100", p.LoanDeduction)
	assertAmount(t, "20860", p.Net)

	want := NetPay(p.Gross, p.Allowances, p.HolidayAdjustment, p.GovDeductions, p.OtherDeductions, p.LoanDeduction)
	assert.True(t, want.Equal(p.Net))

	assert.Equal(t, 1, f.loans.calls)
	assertAmount(t, "600", f.loans.recorded["loan-1|"+p.ID])
	assertAmount(t, "500", f.loans.recorded["loan-2|"+p.ID])
	assert.Contains(t, f.auditor.actions, "payroll.payslip.issue")
}

func TestIssueSecondCutoffWithFirstOnlyPolicy(t *testing.T) {
	rules := DefaultRules()
	rules.SemiMonthlyPolicy = SemiMonthlyFirst
	f := newFixture(rules, employee("e1", "22000", FrequencySemiMonthly))

	p, err := f.svc.Issue(context.Background(), IssueRequest{
		EmployeeID:      "e1",
		PeriodStart:     day("2024-06-16"),
		PeriodEnd:       day("2024-06-30"),
		Allowances:      dec("200"),
		OtherDeductions: dec("50"),
		IssueDate:       day("2024-06-30"),
	})
	require.NoError(t, err)

	assert.Equal(t, CutoffSecond, p.Cutoff)
	assertAmount(t, "11000", p.Gross)
	assertAmount(t, "0", p.GovDeductions.SSS)
	assertAmount(t, "0", p.GovDeductions.PhilHealth)
	assertAmount(t, "0", p.GovDeductions.PagIBIG)
	assertAmount(t, "0", p.GovDeductions.Tax)
	assertAmount(t, "11150", p.Net)
}

func TestIssueRefusesNonPositiveNet(t *testing.T) {
	f := newFixture(DefaultRules(), employee("low", "400", FrequencyMonthly))
	f.loans.loans["low"] = []Loan{{ID: "loan-1", EmployeeID: "low", Installment: dec("100"), Remaining: dec("100")}}

	_, err := f.svc.Issue(context.Background(), IssueRequest{
		EmployeeID:  "low",
		PeriodStart: day("2024-06-01"),
		PeriodEnd:   day("2024-06-30"),
		IssueDate:   day("2024-06-30"),
	})
	require.ErrorIs(t, err, ErrNetNotPositive)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "net -")
	assert.Empty(t, f.svc.ListPayslips(context.Background(), PayslipFilter{}))
	assert.Zero(t, f.loans.calls)
}

func TestIssueLeavesLoansUntouchedWhenLedgerFails(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "22000", FrequencyMonthly))
	f.loans.loans["e1"] = []Loan{
		{ID: "loan-1", EmployeeID: "e1", Installment: dec("1000"), Remaining: dec("5000")},
		{ID: "loan-2", EmployeeID: "e1", Installment: dec("500"), Remaining: dec("5000")},
	}
	f.loans.failOn = "loan-2"

	_, err := f.svc.Issue(context.Background(), IssueRequest{
		EmployeeID:  "e1",
		PeriodStart: day("2024-06-01"),
		PeriodEnd:   day("2024-06-30"),
		IssueDate:   day("2024-06-30"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record loan deductions")
	assert.Empty(t, f.svc.ListPayslips(context.Background(), PayslipFilter{}))
	assert.Empty(t, f.loans.recorded)
	assertAmount(t, "5000", f.loans.loans["e1"][0].Remaining)

	f.loans.failOn = ""
	p := issueMonthly(t, f, "e1", "2024-06-30")
	assert.Len(t, f.loans.recorded, 2)
	assertAmount(t, "1000", f.loans.recorded["loan-1|"+p.ID])
	assertAmount(t, "4000", f.loans.loans["e1"][0].Remaining)
}

func TestIssueValidatesRequest(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "22000", FrequencyMonthly))
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, IssueRequest{PeriodStart: day("2024-06-01"), PeriodEnd: day("2024-06-30")})
	assert.ErrorIs(t, err, ErrEmployeeRequired)

	_, err = f.svc.Issue(ctx, IssueRequest{EmployeeID: "e1", PeriodStart: day("2024-06-30"), PeriodEnd: day("2024-06-01")})
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = f.svc.Issue(ctx, IssueRequest{EmployeeID: "e1", PeriodStart: day("2024-06-01"), PeriodEnd: day("2024-06-30"), Allowances: dec("-1")})
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = f.svc.Issue(ctx, IssueRequest{EmployeeID: "ghost", PeriodStart: day("2024-06-01"), PeriodEnd: day("2024-06-30")})
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestIssueBatchSkipsRefusedEmployees(t *testing.T) {
	f := newFixture(DefaultRules(),
		employee("a", "22000", FrequencyMonthly),
		employee("b", "18000", FrequencyMonthly),
		employee("c", "400", FrequencyMonthly),
	)

	result := f.svc.IssueBatch(context.Background(), BatchRequest{
		Entries:     []BatchEntry{{EmployeeID: "a"}, {EmployeeID: "c"}, {EmployeeID: "b"}},
		PeriodStart: day("2024-06-01"),
		PeriodEnd:   day("2024-06-30"),
		IssueDate:   day("2024-06-30"),
	})

	require.Len(t, result.Issued, 2)
	assert.Equal(t, "a", result.Issued[0].EmployeeID)
	assert.Equal(t, "b", result.Issued[1].EmployeeID)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "c", result.Skipped[0].EmployeeID)
	assert.Equal(t, "net ≤ 0", result.Skipped[0].Reason)
	assert.Equal(t, KindValidation, result.Skipped[0].Kind)

	run, err := f.svc.CreateDraft(context.Background(), day("2024-06-30"), nil, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 2, run.Count)
}

func TestIssueRefusedOnLockedDate(t *testing.T) {
	f := newFixture(DefaultRules(), employee("a", "22000", FrequencyMonthly), employee("b", "18000", FrequencyMonthly))
	ctx := context.Background()

	issueMonthly(t, f, "a", "2024-06-30")
	_, err := f.svc.CreateDraft(ctx, day("2024-06-30"), nil, "hr-1")
	require.NoError(t, err)
	_, err = f.svc.Lock(ctx, day("2024-06-30"), "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, IssueRequest{EmployeeID: "b", PeriodStart: day("2024-06-01"), PeriodEnd: day("2024-06-30"), IssueDate: day("2024-06-30")})
	require.ErrorIs(t, err, ErrDateLocked)
	assert.Equal(t, KindImmutability, KindOf(err))

	p := issueMonthly(t, f, "b", "2024-07-01")
	assert.Equal(t, day("2024-07-01"), p.IssueDate)

	run, err := f.svc.GetRun(ctx, day("2024-06-30"))
	require.NoError(t, err)
	assert.Equal(t, 1, run.Count)
}

func TestIssueJoinsUnlockedRun(t *testing.T) {
	f := newFixture(DefaultRules(), employee("a", "22000", FrequencyMonthly), employee("b", "18000", FrequencyMonthly))
	ctx := context.Background()

	first := issueMonthly(t, f, "a", "2024-06-30")
	_, err := f.svc.CreateDraft(ctx, day("2024-06-30"), nil, "hr-1")
	require.NoError(t, err)
	second := issueMonthly(t, f, "b", "2024-06-30")

	run, err := f.svc.GetRun(ctx, day("2024-06-30"))
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, run.PayslipIDs)
	assert.True(t, first.Net.Add(second.Net).Equal(run.TotalNet))
}

func TestIssueReopensValidatedRun(t *testing.T) {
	f := newFixture(DefaultRules(), employee("a", "22000", FrequencyMonthly), employee("b", "18000", FrequencyMonthly))
	ctx := context.Background()

	first := issueMonthly(t, f, "a", "2024-06-30")
	_, err := f.svc.CreateDraft(ctx, day("2024-06-30"), nil, "hr-1")
	require.NoError(t, err)
	validated, err := f.svc.Validate(ctx, day("2024-06-30"), "hr-1")
	require.NoError(t, err)
	require.Equal(t, RunValidated, validated.Status)

	second := issueMonthly(t, f, "b", "2024-06-30")
	run, err := f.svc.GetRun(ctx, day("2024-06-30"))
	require.NoError(t, err)
	assert.Equal(t, RunDraft, run.Status)
	assert.Nil(t, run.ValidatedAt)
	assert.Equal(t, []string{first.ID, second.ID}, run.PayslipIDs)

	run, err = f.svc.Validate(ctx, day("2024-06-30"), "hr-1")
	require.NoError(t, err)
	assert.Equal(t, RunValidated, run.Status)
}

func TestPayslipLifecycle(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "22000", FrequencyMonthly))
	ctx := context.Background()
	p := issueMonthly(t, f, "e1", "2024-06-30")

	p, err := f.svc.Confirm(ctx, p.ID, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, PayslipConfirmed, p.Status)
	require.NotNil(t, p.ConfirmedAt)

	p, err = f.svc.Publish(ctx, p.ID, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, PayslipPublished, p.Status)

	p, err = f.svc.RecordPayment(ctx, p.ID, PaymentRequest{Method: "bank_transfer", Reference: "TX-1"}, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, PayslipPaid, p.Status)
	assert.Equal(t, "TX-1", p.PaymentReference)

	p, err = f.svc.Sign(ctx, p.ID, []byte("signature"), "e1")
	require.NoError(t, err)
	assert.Equal(t, PayslipPaid, p.Status)
	require.NotNil(t, p.Signature)
	assert.Len(t, p.Signature.Digest, 64)

	p, err = f.svc.Acknowledge(ctx, p.ID, "e1")
	require.NoError(t, err)
	assert.Equal(t, PayslipAcknowledged, p.Status)
	require.NotNil(t, p.AcknowledgedAt)

	assert.Equal(t, []string{EventPayslipPublished, EventPayslipPaid, EventPayslipSigned, EventPayslipAcknowledged}, f.notifier.kinds())
}

func TestPayslipTransitionsRefuseOutOfOrder(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "22000", FrequencyMonthly))
	ctx := context.Background()
	p := issueMonthly(t, f, "e1", "2024-06-30")

	_, err := f.svc.Publish(ctx, p.ID, "hr-1")
	require.ErrorIs(t, err, ErrPayslipState)
	assert.Equal(t, KindState, KindOf(err))
	assert.Contains(t, err.Error(), "requires status confirmed, got issued")

	_, err = f.svc.Sign(ctx, p.ID, []byte("sig"), "e1")
	require.ErrorIs(t, err, ErrPayslipState)

	_, err = f.svc.Confirm(ctx, p.ID, "hr-1")
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, p.ID, "hr-1")
	require.ErrorIs(t, err, ErrPayslipState)

	_, err = f.svc.Publish(ctx, p.ID, "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Sign(ctx, p.ID, nil, "e1")
	require.ErrorIs(t, err, ErrSignatureRequired)

	_, err = f.svc.RecordPayment(ctx, p.ID, PaymentRequest{}, "hr-1")
	require.ErrorIs(t, err, ErrPaymentMethodRequired)

	_, err = f.svc.RecordPayment(ctx, p.ID, PaymentRequest{Method: "cash"}, "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Acknowledge(ctx, p.ID, "e1")
	require.ErrorIs(t, err, ErrNotSigned)

	_, err = f.svc.Sign(ctx, p.ID, []byte("sig"), "e1")
	require.NoError(t, err)
	_, err = f.svc.Sign(ctx, p.ID, []byte("again"), "e1")
	require.ErrorIs(t, err, ErrAlreadySigned)

	_, err = f.svc.Acknowledge(ctx, p.ID, "someone-else")
	require.ErrorIs(t, err, ErrNotPayslipOwner)

	current, err := f.svc.GetPayslip(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, PayslipPaid, current.Status)

	_, err = f.svc.Confirm(ctx, "missing", "hr-1")
	require.ErrorIs(t, err, ErrPayslipNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestConfirmRefusedInsideLockedRun(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "22000", FrequencyMonthly))
	ctx := context.Background()
	p := issueMonthly(t, f, "e1", "2024-06-30")

	_, err := f.svc.CreateDraft(ctx, day("2024-06-30"), nil, "hr-1")
	require.NoError(t, err)
	_, err = f.svc.Lock(ctx, day("2024-06-30"), "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, p.ID, "hr-1")
	require.ErrorIs(t, err, ErrPayslipRunLocked)
	assert.Equal(t, KindImmutability, KindOf(err))
}

func TestRunLifecycle(t *testing.T) {
	f := newFixture(DefaultRules(), employee("a", "22000", FrequencyMonthly), employee("b", "18000", FrequencyMonthly))
	ctx := context.Background()
	date := day("2024-06-30")
	pa := issueMonthly(t, f, "a", "2024-06-30")
	issueMonthly(t, f, "b", "2024-06-30")

	run, err := f.svc.CreateDraft(ctx, date, nil, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-30", run.ID)
	assert.Equal(t, RunDraft, run.Status)
	assert.Equal(t, 2, run.Count)

	_, err = f.svc.PublishRun(ctx, date, "hr-1")
	require.ErrorIs(t, err, ErrRunState)

	run, err = f.svc.Validate(ctx, date, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, RunValidated, run.Status)

	run, err = f.svc.Lock(ctx, date, "hr-1")
	require.NoError(t, err)
	assert.True(t, run.Locked)
	assert.Equal(t, RunLocked, run.Status)
	require.NotNil(t, run.Snapshot)
	assert.Equal(t, "ph-2024.1", run.Snapshot.DeductionTableVersion)
	assert.Equal(t, "hr-1", run.Snapshot.LockedBy)
	assert.Len(t, run.Snapshot.Digest, 64)

	run, err = f.svc.PublishRun(ctx, date, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, RunPublished, run.Status)

	current, err := f.svc.GetPayslip(ctx, pa.ID)
	require.NoError(t, err)
	assert.Equal(t, PayslipIssued, current.Status)

	run, err = f.svc.MarkRunPaid(ctx, date, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, RunPaid, run.Status)
	assert.Contains(t, f.notifier.kinds(), EventRunLocked)
}

func TestCreateDraftRefusals(t *testing.T) {
	f := newFixture(DefaultRules(), employee("a", "22000", FrequencyMonthly))
	ctx := context.Background()
	p := issueMonthly(t, f, "a", "2024-06-29")

	_, err := f.svc.CreateDraft(ctx, day("2024-06-30"), []string{p.ID}, "hr-1")
	require.ErrorIs(t, err, ErrRunPayslipMismatch)

	_, err = f.svc.CreateDraft(ctx, day("2024-06-29"), []string{p.ID}, "hr-1")
	require.NoError(t, err)

	_, err = f.svc.CreateDraft(ctx, day("2024-06-29"), nil, "hr-1")
	require.ErrorIs(t, err, ErrRunExists)
	assert.Equal(t, KindState, KindOf(err))

	_, err = f.svc.Validate(ctx, day("2024-01-01"), "hr-1")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestValidateAndLockRefuseEmptyRun(t *testing.T) {
	f := newFixture(DefaultRules())
	ctx := context.Background()

	_, err := f.svc.CreateDraft(ctx, day("2024-06-30"), nil, "hr-1")
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, day("2024-06-30"), "hr-1")
	require.ErrorIs(t, err, ErrRunEmpty)
	_, err = f.svc.Lock(ctx, day("2024-06-30"), "hr-1")
	require.ErrorIs(t, err, ErrRunEmpty)
}

func TestSecondLockKeepsSnapshot(t *testing.T) {
	f := newFixture(DefaultRules(), employee("a", "22000", FrequencyMonthly))
	ctx := context.Background()
	date := day("2024-06-30")
	issueMonthly(t, f, "a", "2024-06-30")
	_, err := f.svc.CreateDraft(ctx, date, nil, "hr-1")
	require.NoError(t, err)

	first, err := f.svc.Lock(ctx, date, "hr-1")
	require.NoError(t, err)
	firstBytes, err := json.Marshal(first.Snapshot)
	require.NoError(t, err)

	f.now = f.now.Add(3600e9)
	_, err = f.svc.Lock(ctx, date, "hr-2")
	require.ErrorIs(t, err, ErrRunAlreadyLocked)
	assert.Equal(t, KindState, KindOf(err))

	run, err := f.svc.GetRun(ctx, date)
	require.NoError(t, err)
	secondBytes, err := json.Marshal(run.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, firstBytes, secondBytes)
	assert.Equal(t, "hr-1", run.LockedBy)
}

func TestConcurrentLockHasOneWinner(t *testing.T) {
	f := newFixture(DefaultRules(), employee("a", "22000", FrequencyMonthly))
	ctx := context.Background()
	date := day("2024-06-30")
	issueMonthly(t, f, "a", "2024-06-30")
	_, err := f.svc.CreateDraft(ctx, date, nil, "hr-1")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Lock(ctx, date, "hr-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, already int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case KindOf(err) == KindState:
			already++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, already)
}

func TestExportBankFile(t *testing.T) {
	f := newFixture(DefaultRules(), employee("a", "22000", FrequencyMonthly), employee("b", "18000", FrequencySemiMonthly))
	ctx := context.Background()
	pa := issueMonthly(t, f, "a", "2024-06-30")
	first, err := f.svc.Issue(ctx, IssueRequest{EmployeeID: "b", PeriodStart: day("2024-06-01"), PeriodEnd: day("2024-06-15"), IssueDate: day("2024-06-30")})
	require.NoError(t, err)
	second, err := f.svc.Issue(ctx, IssueRequest{EmployeeID: "b", PeriodStart: day("2024-06-16"), PeriodEnd: day("2024-06-30"), IssueDate: day("2024-06-30")})
	require.NoError(t, err)

	_, err = f.svc.ExportBankFile(ctx, day("2024-06-30"))
	require.ErrorIs(t, err, ErrRunNotFound)

	_, err = f.svc.CreateDraft(ctx, day("2024-06-30"), nil, "hr-1")
	require.NoError(t, err)

	rows, err := f.svc.ExportBankFile(ctx, day("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].EmployeeID)
	assert.Equal(t, "0000-a", rows[0].BankAccount)
	assert.True(t, pa.Net.Equal(rows[0].NetAmount))
	assert.True(t, first.Net.Add(second.Net).Equal(rows[1].NetAmount))

	run, err := f.svc.GetRun(ctx, day("2024-06-30"))
	require.NoError(t, err)
	assert.Equal(t, RunDraft, run.Status)
}

func TestAdjustmentStateMachine(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "22000", FrequencyMonthly))
	ctx := context.Background()

	_, err := f.svc.ProposeAdjustment(ctx, ProposeRequest{EmployeeID: "e1", Type: "bonus", Amount: dec("100"), Reason: "x"})
	require.ErrorIs(t, err, ErrAdjustmentType)
	_, err = f.svc.ProposeAdjustment(ctx, ProposeRequest{EmployeeID: "e1", Type: AdjustmentAllowance, Amount: decimal.Zero, Reason: "x"})
	require.ErrorIs(t, err, ErrAdjustmentAmount)

	adj, err := f.svc.ProposeAdjustment(ctx, ProposeRequest{EmployeeID: "e1", Type: AdjustmentSalaryCorrection, Amount: dec("1500"), Reason: "underpaid June", ActorID: "hr-1"})
	require.NoError(t, err)
	assert.Equal(t, AdjustmentPending, adj.Status)

	_, _, err = f.svc.ApplyAdjustment(ctx, adj.ID, "", "hr-1")
	require.ErrorIs(t, err, ErrAdjustmentState)
	assert.Equal(t, KindState, KindOf(err))

	adj, err = f.svc.ApproveAdjustment(ctx, adj.ID, "mgr-1")
	require.NoError(t, err)
	assert.Equal(t, AdjustmentApproved, adj.Status)

	_, err = f.svc.RejectAdjustment(ctx, adj.ID, "mgr-1")
	require.ErrorIs(t, err, ErrAdjustmentState)
	_, err = f.svc.ApproveAdjustment(ctx, adj.ID, "mgr-1")
	require.ErrorIs(t, err, ErrAdjustmentState)

	adj, correction, err := f.svc.ApplyAdjustment(ctx, adj.ID, "", "hr-1")
	require.NoError(t, err)
	assert.Equal(t, AdjustmentApplied, adj.Status)
	assert.Equal(t, "ADJ-2024-06-30", adj.RunLabel)
	assert.Equal(t, correction.ID, adj.CorrectionPayslipID)
	assert.Equal(t, PayslipCorrection, correction.Kind)
	assert.Equal(t, adj.ID, correction.AdjustmentRef)
	assertAmount(t, "1500", correction.Net)

	_, _, err = f.svc.ApplyAdjustment(ctx, adj.ID, "", "hr-1")
	require.ErrorIs(t, err, ErrAdjustmentState)

	rejected, err := f.svc.ProposeAdjustment(ctx, ProposeRequest{EmployeeID: "e1", Type: AdjustmentDeduction, Amount: dec("-200"), Reason: "overpaid"})
	require.NoError(t, err)
	rejected, err = f.svc.RejectAdjustment(ctx, rejected.ID, "mgr-1")
	require.NoError(t, err)
	assert.Equal(t, AdjustmentRejected, rejected.Status)
	_, err = f.svc.ApproveAdjustment(ctx, rejected.ID, "mgr-1")
	require.ErrorIs(t, err, ErrAdjustmentState)
}

func TestApplyAdjustmentLeavesLockedRunUntouched(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "22000", FrequencyMonthly))
	ctx := context.Background()
	date := day("2024-06-30")
	original := issueMonthly(t, f, "e1", "2024-06-30")
	_, err := f.svc.CreateDraft(ctx, date, nil, "hr-1")
	require.NoError(t, err)
	locked, err := f.svc.Lock(ctx, date, "hr-1")
	require.NoError(t, err)

	adj, err := f.svc.ProposeAdjustment(ctx, ProposeRequest{EmployeeID: "e1", Type: AdjustmentDeduction, Amount: dec("-250"), Reason: "overpaid allowance"})
	require.NoError(t, err)
	_, err = f.svc.ApproveAdjustment(ctx, adj.ID, "mgr-1")
	require.NoError(t, err)

	_, _, err = f.svc.ApplyAdjustment(ctx, adj.ID, "2024-06-30", "hr-1")
	require.ErrorIs(t, err, ErrTargetRunLocked)
	assert.Equal(t, KindImmutability, KindOf(err))

	adj, correction, err := f.svc.ApplyAdjustment(ctx, adj.ID, "ADJ-2024-07", "hr-1")
	require.NoError(t, err)
	assert.Equal(t, "ADJ-2024-07", correction.RunLabel)
	assertAmount(t, "-250", correction.Net)
	assertAmount(t, "250", correction.OtherDeductions)

	run, err := f.svc.GetRun(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, locked.PayslipIDs, run.PayslipIDs)
	assert.True(t, locked.TotalNet.Equal(run.TotalNet))

	stored, err := f.svc.GetPayslip(ctx, original.ID)
	require.NoError(t, err)
	assert.True(t, original.Net.Equal(stored.Net))
}

func TestFinalPayKeyedByResignation(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "30000", FrequencyMonthly))
	f.loans.loans["e1"] = []Loan{{ID: "loan-1", EmployeeID: "e1", Installment: dec("1000"), Remaining: dec("2000")}}
	ctx := context.Background()
	resigned := day("2024-06-10")

	fp, err := f.svc.ComputeFinalPay(ctx, FinalPayRequest{
		EmployeeID:      "e1",
		ResignedAt:      resigned,
		LeaveDays:       dec("5"),
		OvertimeHours:   dec("8"),
		OtherDeductions: dec("500"),
		ActorID:         "hr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, FinalPayDraft, fp.Status)
	assertAmount(t, "2000", fp.LoanBalance)
	assertAmount(t, "16022.73", fp.Net)

	_, err = f.svc.ComputeFinalPay(ctx, FinalPayRequest{EmployeeID: "e1", ResignedAt: resigned})
	require.ErrorIs(t, err, ErrFinalPayExists)
	assert.Equal(t, KindState, KindOf(err))

	again, err := f.svc.ComputeFinalPay(ctx, FinalPayRequest{EmployeeID: "e1", ResignedAt: day("2025-03-31")})
	require.NoError(t, err)
	assert.NotEqual(t, fp.ID, again.ID)
	assert.Len(t, f.svc.ListFinalPays(ctx, "e1"), 2)

	_, err = f.svc.PublishFinalPay(ctx, fp.ID, "hr-1")
	require.ErrorIs(t, err, ErrFinalPayState)

	fp, err = f.svc.LockFinalPay(ctx, fp.ID, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, FinalPayLocked, fp.Status)
	fp, err = f.svc.PublishFinalPay(ctx, fp.ID, "hr-1")
	require.NoError(t, err)
	fp, err = f.svc.MarkFinalPayPaid(ctx, fp.ID, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, FinalPayPaid, fp.Status)
	assert.Contains(t, f.notifier.kinds(), EventFinalPayPublished)
}

func TestFinalPayLoanOverrideAndNegativeNet(t *testing.T) {
	f := newFixture(DefaultRules(), employee("e1", "10000", FrequencyMonthly))
	balance := dec("5000")

	fp, err := f.svc.ComputeFinalPay(context.Background(), FinalPayRequest{EmployeeID: "e1", ResignedAt: day("2024-06-01"), LoanBalance: &balance})
	require.NoError(t, err)
	assert.True(t, fp.Net.IsNegative())
}

func TestStoredMultiplierSurvivesPolicyChange(t *testing.T) {
	rules := DefaultRules()
	rules.SemiMonthlyPolicy = SemiMonthlyFirst
	f := newFixture(rules, employee("e1", "22000", FrequencySemiMonthly))
	ctx := context.Background()

	p, err := f.svc.Issue(ctx, IssueRequest{EmployeeID: "e1", PeriodStart: day("2024-06-01"), PeriodEnd: day("2024-06-15"), IssueDate: day("2024-06-15")})
	require.NoError(t, err)
	assertAmount(t, "1", p.GovMultiplier)

	require.NoError(t, f.svc.SetSemiMonthlyPolicy(ctx, SemiMonthlyBoth, "hr-1"))
	require.Error(t, f.svc.SetSemiMonthlyPolicy(ctx, "quarterly", "hr-1"))

	stored, err := f.svc.GetPayslip(ctx, p.ID)
	require.NoError(t, err)
	assertAmount(t, "1", stored.GovMultiplier)
	assertAmount(t, "1740", stored.GovDeductions.Total())

	next, err := f.svc.Issue(ctx, IssueRequest{EmployeeID: "e1", PeriodStart: day("2024-06-16"), PeriodEnd: day("2024-06-30"), IssueDate: day("2024-06-30")})
	require.NoError(t, err)
	assertAmount(t, "0.5", next.GovMultiplier)
}
