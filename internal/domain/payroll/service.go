package payroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cryptoutil "hrpay/internal/platform/crypto"
)

const (
	EventPayslipPublished    = "payslip_published"
	EventPayslipPaid         = "payslip_paid"
	EventPayslipSigned       = "payslip_signed"
	EventPayslipAcknowledged = "payslip_acknowledged"
	EventRunLocked           = "payroll_run_locked"
	EventFinalPayPublished   = "final_pay_published"
)

// Service is the single owner of payroll state. Every mutation goes through
// one of its transition methods while mu is held.
type Service struct {
	mu         sync.Mutex
	store      *Store
	rules      Rules
	directory  Directory
	attendance Attendance
	loans      LoanBook
	notifier   Notifier
	audit      Auditor
	sealer     Sealer
	counter    Counter
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

type Options struct {
	Notifier Notifier
	Auditor  Auditor
	Sealer   Sealer
	Counter  Counter
	Logger   *zap.Logger
	Clock    func() time.Time
	IDs      func() string
}

func NewService(store *Store, rules Rules, directory Directory, attendance Attendance, loans LoanBook, opts Options) *Service {
	if store == nil {
		store = NewStore()
	}
	s := &Service{
		store:      store,
		rules:      rules,
		directory:  directory,
		attendance: attendance,
		loans:      loans,
		notifier:   opts.Notifier,
		audit:      opts.Auditor,
		sealer:     opts.Sealer,
		counter:    opts.Counter,
		logger:     opts.Logger,
		now:        opts.Clock,
		newID:      opts.IDs,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.audit == nil {
		s.audit = noopAuditor{}
	}
	if s.sealer == nil {
		s.sealer, _ = cryptoutil.New("")
	}
	if s.counter == nil {
		s.counter = noopCounter{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Service) Rules() Rules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules
}

// SetSemiMonthlyPolicy changes the policy used by later issuances. Payslips
// already issued keep the multiplier stored on them.
func (s *Service) SetSemiMonthlyPolicy(ctx context.Context, policy SemiMonthlyPolicy, actorID string) error {
	if !policy.Valid() {
		return refuse("set semi-monthly policy", ErrInvalidPolicy, "policy %q is not one of first, second, both", policy)
	}
	s.mu.Lock()
	before := s.rules.SemiMonthlyPolicy
	s.rules.SemiMonthlyPolicy = policy
	s.mu.Unlock()

	s.logger.Info("semi-monthly deduction policy changed",
		zap.String("from", string(before)),
		zap.String("to", string(policy)),
		zap.String("actorId", actorID),
	)
	s.record(ctx, actorID, "payroll.policy.update", "payroll_policy", "semi_monthly", map[string]any{"policy": before}, map[string]any{"policy": policy})
	return nil
}

func (s *Service) record(ctx context.Context, actorID, action, entityType, entityID string, before, after any) {
	if err := s.audit.Record(ctx, actorID, action, entityType, entityID, before, after); err != nil {
		s.logger.Warn("audit record failed",
			zap.String("action", action),
			zap.String("entityId", entityID),
			zap.Error(err),
		)
	}
}

func (s *Service) refused(op string, err error) {
	kind := KindOf(err)
	if kind == "" {
		s.logger.Error("payroll operation failed", zap.String("op", op), zap.Error(err))
		return
	}
	s.counter.Count("refused_" + string(kind))
	s.logger.Warn("payroll operation refused",
		zap.String("op", op),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
}

func (s *Service) today() time.Time {
	return dateOnly(s.now())
}

func (s *Service) stamp() *time.Time {
	t := s.now().UTC()
	return &t
}

func runID(date time.Time) string {
	return dateOnly(date).Format(DateLayout)
}

func wrapCollaborator(op, what string, err error) error {
	return fmt.Errorf("%s: %s: %w", op, what, err)
}
