package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prestadia/prestadia-api/internal/engine"
	"github.com/prestadia/prestadia-api/internal/jobs"
	"github.com/prestadia/prestadia-api/internal/metrics"
	"github.com/prestadia/prestadia-api/internal/models"
	"github.com/prestadia/prestadia-api/internal/repository"
	"github.com/prestadia/prestadia-api/internal/statemachine"
	"github.com/prestadia/prestadia-api/pkg/logger"
)

// PaymentBreakdown reports how a posted amount was split.
type PaymentBreakdown struct {
	Installment models.InstallmentResponse `json:"installment"`
	Penalty     float64                    `json:"penalty"`
	Interest    float64                    `json:"interest"`
	Capital     float64                    `json:"capital"`
	Surplus     float64                    `json:"surplus"`
}

type PaymentService struct {
	installmentRepo repository.InstallmentRepository
	loanRepo        repository.LoanRepository
	businessRepo    repository.BusinessRepository
	ledgerRepo      repository.LedgerRepository
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
}

func NewPaymentService(
	installmentRepo repository.InstallmentRepository,
	loanRepo repository.LoanRepository,
	businessRepo repository.BusinessRepository,
	ledgerRepo repository.LedgerRepository,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
) *PaymentService {
	return &PaymentService{
		installmentRepo: installmentRepo,
		loanRepo:        loanRepo,
		businessRepo:    businessRepo,
		ledgerRepo:      ledgerRepo,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
	}
}

func (s *PaymentService) FindInstallment(ctx context.Context, id uint) (*models.Installment, error) {
	return s.installmentRepo.FindByID(ctx, id)
}

func (s *PaymentService) FindByLoan(ctx context.Context, loanID uint) ([]models.Installment, error) {
	return s.installmentRepo.FindByLoan(ctx, loanID)
}

// InstallmentLedger returns the ledger entries recorded against one
// installment: its payments, reversals and penalty accruals.
func (s *PaymentService) InstallmentLedger(ctx context.Context, installmentID uint) ([]models.LoanLedgerEntry, error) {
	return s.ledgerRepo.FindByInstallmentID(ctx, installmentID)
}

// PostPayment applies an amount against an installment. Collection order
// is penalty, then interest, then capital; any surplus stays reported in
// the breakdown for the caller to apply elsewhere.
func (s *PaymentService) PostPayment(ctx context.Context, installmentID uint, amount float64, actorID uint, ip, userAgent string) (*PaymentBreakdown, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	installment, err := s.installmentRepo.FindByID(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	loan, err := s.loanRepo.FindByID(ctx, installment.LoanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsOpen() {
		return nil, ErrLoanNotOpen
	}
	if !installment.MayApplyPayment() {
		return nil, ErrInvalidState
	}

	remaining := amount
	breakdown := &PaymentBreakdown{}

	// 1. Penalty
	penaltyDue := installment.PenaltyAmount - installment.PaidPenalty
	if penaltyDue > 0 {
		applied := min(remaining, penaltyDue)
		installment.PaidPenalty += applied
		breakdown.Penalty = applied
		remaining -= applied
	}

	// 2. Interest
	interestDue := installment.Interest - installment.PaidInterest
	if interestDue > 0 && remaining > 0 {
		applied := min(remaining, interestDue)
		installment.PaidInterest += applied
		breakdown.Interest = applied
		remaining -= applied
	}

	// 3. Capital
	capitalDue := installment.Capital - installment.PaidCapital
	if capitalDue > 0 && remaining > 0 {
		applied := min(remaining, capitalDue)
		installment.PaidCapital += applied
		breakdown.Capital = applied
		remaining -= applied
	}

	breakdown.Surplus = remaining
	applied := amount - remaining
	installment.PaidTotal += applied

	now := time.Now()
	fsm := statemachine.NewInstallmentFSM(installment)
	if installment.TotalDue() <= 0.01 {
		if err := fsm.Settle(ctx); err != nil {
			return nil, err
		}
		installment.PaidDate = &now
	} else {
		if err := fsm.ApplyPartial(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.installmentRepo.Update(ctx, installment); err != nil {
		return nil, err
	}

	// Ledger entry for the payment (credit)
	entry := &models.LoanLedgerEntry{
		LoanID:        loan.ID,
		InstallmentID: &installment.ID,
		Amount:        applied,
		Description:   fmt.Sprintf("Pago recibido - Cuota %d", installment.Number),
		EntryType:     models.EntryTypePayment,
		EntryDate:     now,
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}

	metrics.PaymentsPosted.WithLabelValues("posted").Inc()

	// Auto-close the loan once every installment is settled.
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.closeIfSettled(ctx, loan.ID)
	})

	s.auditSvc.Log(ctx, actorID, "POST_PAYMENT", "Installment", installment.ID,
		fmt.Sprintf("Pago de %.2f aplicado a la cuota %d del préstamo %s", applied, installment.Number, loan.Reference), ip, userAgent)

	breakdown.Installment = installment.ToResponse()
	return breakdown, nil
}

// UndoPayment reverts everything paid against an installment and records
// a compensating ledger entry.
func (s *PaymentService) UndoPayment(ctx context.Context, installmentID uint, actorID uint, ip, userAgent string) (*models.Installment, error) {
	installment, err := s.installmentRepo.FindByID(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if !installment.MayUndo() {
		return nil, ErrInvalidState
	}

	loan, err := s.loanRepo.FindByID(ctx, installment.LoanID)
	if err != nil {
		return nil, err
	}

	reverted := installment.PaidTotal

	fsm := statemachine.NewInstallmentFSM(installment)
	if err := fsm.Revert(ctx); err != nil {
		return nil, err
	}

	installment.PaidCapital = 0
	installment.PaidInterest = 0
	installment.PaidPenalty = 0
	installment.PaidTotal = 0
	installment.PaidDate = nil

	if err := s.installmentRepo.Update(ctx, installment); err != nil {
		return nil, err
	}

	if reverted > 0 {
		entry := &models.LoanLedgerEntry{
			LoanID:        loan.ID,
			InstallmentID: &installment.ID,
			Amount:        -reverted,
			Description:   fmt.Sprintf("Pago revertido - Cuota %d", installment.Number),
			EntryType:     models.EntryTypeAdjustment,
			EntryDate:     time.Now(),
		}
		if err := s.ledgerRepo.Create(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to create reversal entry: %w", err)
		}
	}

	// A reverted payment on a closed loan reopens it.
	if loan.Status == models.LoanStatusClosed {
		loanFSM := statemachine.NewLoanFSM(loan)
		if err := loanFSM.Reopen(ctx); err == nil {
			loan.ClosedAt = nil
			s.loanRepo.Update(ctx, loan)
		}
	}

	metrics.PaymentsPosted.WithLabelValues("reverted").Inc()

	s.auditSvc.Log(ctx, actorID, "UNDO_PAYMENT", "Installment", installment.ID,
		fmt.Sprintf("Pago de %.2f revertido en la cuota %d del préstamo %s", reverted, installment.Number, loan.Reference), ip, userAgent)

	return installment, nil
}

// PreviewPenalty computes the mora a loan owes as of now without
// persisting anything.
func (s *PaymentService) PreviewPenalty(ctx context.Context, loanID uint, now time.Time) (*engine.PenaltyResult, error) {
	loan, err := s.loanRepo.FindByIDWithSchedule(ctx, loanID)
	if err != nil {
		return nil, err
	}

	business, err := s.businessRepo.FindByID(ctx, loan.BusinessID)
	if err != nil {
		return nil, err
	}

	installments := make([]engine.Installment, 0, len(loan.Installments))
	for _, inst := range loan.Installments {
		installments = append(installments, inst.ToEngine())
	}

	result := engine.CalculatePenalty(installments, loan.EnginePenaltyConfig(), now, business.Calendar())
	return &result, nil
}

// RecalculatePenalties recomputes mora for every active loan and stores
// the result on each overdue installment. Intended to run daily.
func (s *PaymentService) RecalculatePenalties(ctx context.Context) error {
	loans, err := s.loanRepo.FindActiveLoans(ctx, 0)
	if err != nil {
		metrics.PenaltyRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("find active loans: %w", err)
	}

	now := time.Now()
	loansTouched := 0
	totalPenalty := 0.0

	for i := range loans {
		loan := &loans[i]
		config := loan.EnginePenaltyConfig()
		if config == nil {
			continue
		}

		cal := loan.Business.Calendar()
		installments := make([]engine.Installment, 0, len(loan.Installments))
		byNumber := make(map[int]*models.Installment, len(loan.Installments))
		for j := range loan.Installments {
			inst := &loan.Installments[j]
			installments = append(installments, inst.ToEngine())
			byNumber[inst.Number] = inst
		}

		result := engine.CalculatePenalty(installments, config, now, cal)
		if len(result.Breakdown) == 0 {
			continue
		}

		updates := make(map[uint]float64, len(result.Breakdown))
		for _, entry := range result.Breakdown {
			inst, ok := byNumber[entry.Number]
			if !ok || inst.PenaltyAmount == entry.Amount {
				continue
			}
			updates[inst.ID] = entry.Amount

			ledgerEntry := &models.LoanLedgerEntry{
				LoanID:        loan.ID,
				InstallmentID: &inst.ID,
				Amount:        -entry.Amount,
				Description:   fmt.Sprintf("Mora acumulada (%d períodos) - Cuota %d", entry.Periods, entry.Number),
				EntryType:     models.EntryTypePenalty,
				EntryDate:     now,
			}
			if err := s.ledgerRepo.FindOrCreateByInstallmentAndType(ctx, ledgerEntry); err != nil {
				logger.Error("Failed to update penalty ledger entry", "installment_id", inst.ID, "error", err)
			}
		}

		if len(updates) == 0 {
			continue
		}
		if err := s.installmentRepo.BatchUpdatePenalty(ctx, updates); err != nil {
			logger.Error("Failed to update penalties", "loan_id", loan.ID, "error", err)
			continue
		}

		loansTouched++
		totalPenalty += result.Total
	}

	metrics.PenaltyRuns.WithLabelValues("ok").Inc()

	if loansTouched > 0 {
		msg := fmt.Sprintf("Proceso de mora completado.\n\nPréstamos procesados: %d\nMora total calculada: %.2f", loansTouched, totalPenalty)
		s.worker.EnqueueAsync(func(ctx context.Context) error {
			return s.notificationSvc.NotifyAdmins(ctx, "Reporte Diario de Mora", msg, models.NotificationTypePenaltyApplied)
		})
	}

	logger.Info("Penalty recalculation finished", "loans", loansTouched, "total", totalPenalty)
	return nil
}

// UpdateReceiptPath attaches an uploaded receipt to an installment.
func (s *PaymentService) UpdateReceiptPath(ctx context.Context, installmentID uint, path string, actorID uint) error {
	installment, err := s.installmentRepo.FindByID(ctx, installmentID)
	if err != nil {
		return err
	}
	installment.ReceiptPath = &path
	if err := s.installmentRepo.Update(ctx, installment); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "UPLOAD_RECEIPT", "Installment", installmentID,
		fmt.Sprintf("Comprobante adjuntado a la cuota %d", installment.Number), "", "")
}

// closeIfSettled closes the loan when no unpaid installments remain.
func (s *PaymentService) closeIfSettled(ctx context.Context, loanID uint) error {
	unpaid, err := s.installmentRepo.CountUnpaidByLoan(ctx, loanID)
	if err != nil {
		return err
	}
	if unpaid > 0 {
		return nil
	}

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return err
	}
	if !loan.MayClose() {
		return nil
	}

	fsm := statemachine.NewLoanFSM(loan)
	if err := fsm.Close(ctx); err != nil {
		return err
	}
	now := time.Now()
	loan.ClosedAt = &now
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to auto-close loan: %w", err)
	}

	return s.notificationSvc.NotifyAdmins(ctx,
		"Préstamo completado",
		fmt.Sprintf("El préstamo %s ha sido pagado en su totalidad", loan.Reference),
		models.NotificationTypeLoanClosed)
}
