package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prestadia/prestadia-api/internal/engine"
	"github.com/prestadia/prestadia-api/internal/jobs"
	"github.com/prestadia/prestadia-api/internal/metrics"
	"github.com/prestadia/prestadia-api/internal/models"
	"github.com/prestadia/prestadia-api/internal/repository"
	"github.com/prestadia/prestadia-api/internal/statemachine"
	"github.com/prestadia/prestadia-api/pkg/logger"
)

// SchedulePreview is the result of simulating a loan before creating it.
type SchedulePreview struct {
	Installments []engine.Installment   `json:"installments"`
	Summary      engine.ScheduleSummary `json:"summary"`
}

type LoanService struct {
	repo            repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	clientRepo      repository.ClientRepository
	businessRepo    repository.BusinessRepository
	ledgerRepo      repository.LedgerRepository
	scheduleCache   *repository.ScheduleCache
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
}

func NewLoanService(
	repo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	clientRepo repository.ClientRepository,
	businessRepo repository.BusinessRepository,
	ledgerRepo repository.LedgerRepository,
	scheduleCache *repository.ScheduleCache,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
) *LoanService {
	return &LoanService{
		repo:            repo,
		installmentRepo: installmentRepo,
		clientRepo:      clientRepo,
		businessRepo:    businessRepo,
		ledgerRepo:      ledgerRepo,
		scheduleCache:   scheduleCache,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
	}
}

// FindByID gets a loan by ID
func (s *LoanService) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByIDWithSchedule gets a loan with its installments and ledger preloaded
func (s *LoanService) FindByIDWithSchedule(ctx context.Context, id uint) (*models.Loan, error) {
	return s.repo.FindByIDWithSchedule(ctx, id)
}

func (s *LoanService) List(ctx context.Context, query *repository.LoanQuery) ([]models.Loan, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *LoanService) FindByClient(ctx context.Context, clientID uint) ([]models.Loan, error) {
	return s.repo.FindByClient(ctx, clientID)
}

func (s *LoanService) GetStats(ctx context.Context, businessID uint) (*repository.LoanStats, error) {
	return s.repo.GetStats(ctx, businessID)
}

// GetLedger returns a loan's ledger entries together with the running
// balance (sum of all entries; negative while debt is outstanding).
func (s *LoanService) GetLedger(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, float64, error) {
	entries, err := s.ledgerRepo.FindByLoanID(ctx, loanID)
	if err != nil {
		return nil, 0, err
	}
	balance, err := s.ledgerRepo.CalculateBalance(ctx, loanID)
	if err != nil {
		return nil, 0, err
	}
	return entries, balance, nil
}

// PreviewSchedule simulates a schedule from loan terms without persisting
// anything. Results are cached: identical terms against the same calendar
// hit Redis instead of recomputing.
func (s *LoanService) PreviewSchedule(ctx context.Context, businessID uint, terms engine.LoanTerms) (*SchedulePreview, error) {
	business, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, ErrNotFound
	}
	cal := business.Calendar()

	key := repository.ScheduleCacheKey(terms, business.CalendarFingerprint())
	if installments, summary, ok := s.scheduleCache.Get(ctx, key); ok {
		return &SchedulePreview{Installments: installments, Summary: summary}, nil
	}

	installments, summary, err := engine.GenerateSchedule(terms, cal)
	if err != nil {
		metrics.EngineErrors.WithLabelValues(engineErrorType(err)).Inc()
		return nil, err
	}
	metrics.SchedulesGenerated.WithLabelValues(string(terms.Model), metrics.SourcePreview).Inc()

	if err := s.scheduleCache.Set(ctx, key, installments, summary); err != nil {
		// Cache failures only cost a recomputation next time.
		logger.Warn("Failed to cache schedule preview", "key", key, "error", err)
	}

	return &SchedulePreview{Installments: installments, Summary: summary}, nil
}

// PreviewDueDates projects the next count due dates for a frequency
// configuration against the business calendar.
func (s *LoanService) PreviewDueDates(ctx context.Context, businessID uint, startDate time.Time, config engine.FrequencyConfig, count int) ([]time.Time, error) {
	business, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, ErrNotFound
	}
	dates, err := engine.GenerateDueDates(startDate, config, count, business.Calendar())
	if err != nil {
		metrics.EngineErrors.WithLabelValues(engineErrorType(err)).Inc()
		return nil, err
	}
	return dates, nil
}

// Create validates the terms, generates the schedule and persists the
// loan, its installments and the disbursement ledger entry.
func (s *LoanService) Create(ctx context.Context, loan *models.Loan, actorID uint) error {
	if loan.Amount <= 0 {
		return ErrInvalidAmount
	}
	if loan.InterestRate < 0 || loan.Duration < 0 {
		return ErrInvalidTerms
	}
	// Redito is open-ended and defaults a zero duration to 12 periods;
	// the other models divide by the duration.
	if loan.Duration == 0 && loan.LendingModel != string(engine.ModelRedito) {
		return ErrInvalidTerms
	}

	business, err := s.businessRepo.FindByID(ctx, loan.BusinessID)
	if err != nil {
		return ErrNotFound
	}
	if !business.Active {
		return ErrBusinessInactive
	}

	client, err := s.clientRepo.FindByID(ctx, loan.ClientID)
	if err != nil {
		return ErrNotFound
	}
	if client.BusinessID != loan.BusinessID {
		return ErrUnauthorized
	}

	if loan.Currency == "" {
		loan.Currency = business.Currency
	}
	if loan.FirstPaymentDate.IsZero() {
		loan.FirstPaymentDate = loan.StartDate
	}
	loan.Reference = uuid.NewString()
	loan.Status = models.LoanStatusActive

	installments, summary, err := engine.GenerateSchedule(loan.EngineTerms(), business.Calendar())
	if err != nil {
		metrics.EngineErrors.WithLabelValues(engineErrorType(err)).Inc()
		var freqErr *engine.UnsupportedFrequencyError
		var modelErr *engine.UnsupportedLendingModelError
		if errors.As(err, &freqErr) || errors.As(err, &modelErr) {
			return fmt.Errorf("%w: %v", ErrInvalidTerms, err)
		}
		return err
	}
	metrics.SchedulesGenerated.WithLabelValues(loan.LendingModel, metrics.SourceLoan).Inc()

	loan.TotalInterest = summary.TotalInterest
	loan.TotalToPay = summary.TotalToPay
	loan.Duration = summary.Installments

	if err := s.repo.Create(ctx, loan); err != nil {
		return err
	}

	rows := make([]models.Installment, 0, len(installments))
	for _, inst := range installments {
		rows = append(rows, models.InstallmentFromEngine(loan.ID, inst))
	}
	if err := s.installmentRepo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("failed to persist schedule: %w", err)
	}

	// Disbursement entry: the principal leaves the business (debit).
	disbursement := &models.LoanLedgerEntry{
		LoanID:      loan.ID,
		Amount:      -loan.Amount,
		Description: fmt.Sprintf("Desembolso del préstamo %s", loan.Reference),
		EntryType:   models.EntryTypeDisbursement,
		EntryDate:   loan.StartDate,
	}
	if err := s.ledgerRepo.Create(ctx, disbursement); err != nil {
		return fmt.Errorf("failed to create disbursement entry: %w", err)
	}

	// Notify admins asynchronously
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyAdmins(ctx,
			"Nuevo préstamo",
			fmt.Sprintf("Préstamo de %.2f %s creado para %s", loan.Amount, loan.Currency, client.FullName),
			models.NotificationTypeLoanCreated)
	})

	// Audit log
	s.auditSvc.Log(ctx, actorID, "CREATE", "Loan", loan.ID,
		fmt.Sprintf("Préstamo creado para %s. Monto: %.2f, Modalidad: %s", client.FullName, loan.Amount, loan.LendingModel), "", "")

	return nil
}

func (s *LoanService) Update(ctx context.Context, loan *models.Loan) error {
	return s.repo.Update(ctx, loan)
}

// Close closes a loan once its balance is settled
func (s *LoanService) Close(ctx context.Context, id uint, actorID uint) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unpaid, err := s.installmentRepo.CountUnpaidByLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if unpaid > 0 {
		return nil, fmt.Errorf("%w: quedan %d cuotas sin pagar", ErrInvalidState, unpaid)
	}

	fsm := statemachine.NewLoanFSM(loan)
	if err := fsm.Close(ctx); err != nil {
		return nil, fmt.Errorf("cannot close loan: %w", err)
	}

	now := time.Now()
	loan.ClosedAt = &now
	if err := s.repo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyAdmins(ctx,
			"Préstamo completado",
			fmt.Sprintf("El préstamo %s ha sido pagado en su totalidad", loan.Reference),
			models.NotificationTypeLoanClosed)
	})

	s.auditSvc.Log(ctx, actorID, "CLOSE", "Loan", loan.ID,
		fmt.Sprintf("Préstamo %s cerrado", loan.Reference), "", "")

	return loan, nil
}

// Cancel voids a loan: the unpaid schedule is removed and its ledger
// entries are deleted, as if the loan had never been disbursed.
func (s *LoanService) Cancel(ctx context.Context, id uint, note string, actorID uint) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fsm := statemachine.NewLoanFSM(loan)
	if err := fsm.Cancel(ctx); err != nil {
		return nil, fmt.Errorf("cannot cancel loan: %w", err)
	}

	if note != "" {
		loan.Note = &note
	}
	if err := s.repo.Update(ctx, loan); err != nil {
		return nil, err
	}

	// Remove the untouched schedule and void the ledger. Installments
	// with payments against them stay as history.
	if err := s.installmentRepo.DeletePendingByLoan(ctx, loan.ID); err != nil {
		return nil, fmt.Errorf("failed to remove pending installments: %w", err)
	}
	if err := s.ledgerRepo.DeleteByLoanID(ctx, loan.ID); err != nil {
		return nil, fmt.Errorf("failed to void ledger entries: %w", err)
	}

	s.auditSvc.Log(ctx, actorID, "CANCEL", "Loan", loan.ID,
		fmt.Sprintf("Préstamo %s anulado. Nota: %s", loan.Reference, note), "", "")

	return loan, nil
}

// MarkDefaulted flags a loan as defaulted
func (s *LoanService) MarkDefaulted(ctx context.Context, id uint, actorID uint) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fsm := statemachine.NewLoanFSM(loan)
	if err := fsm.Default(ctx); err != nil {
		return nil, fmt.Errorf("cannot default loan: %w", err)
	}

	if err := s.repo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "DEFAULT", "Loan", loan.ID,
		fmt.Sprintf("Préstamo %s marcado en mora permanente", loan.Reference), "", "")

	return loan, nil
}

// Reopen puts a closed or defaulted loan back in active state
func (s *LoanService) Reopen(ctx context.Context, id uint, actorID uint) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fsm := statemachine.NewLoanFSM(loan)
	if err := fsm.Reopen(ctx); err != nil {
		return nil, fmt.Errorf("cannot reopen loan: %w", err)
	}

	loan.ClosedAt = nil
	if err := s.repo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "REOPEN", "Loan", loan.ID,
		fmt.Sprintf("Préstamo %s reabierto", loan.Reference), "", "")

	return loan, nil
}

// engineErrorType maps engine errors to a metric label.
func engineErrorType(err error) string {
	var freqErr *engine.UnsupportedFrequencyError
	if errors.As(err, &freqErr) {
		return "unsupported_frequency"
	}
	var modelErr *engine.UnsupportedLendingModelError
	if errors.As(err, &modelErr) {
		return "unsupported_model"
	}
	return "other"
}
