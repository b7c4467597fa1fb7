package services

import (
	"context"
	"testing"
	"time"

	"github.com/prestadia/prestadia-api/internal/jobs"
	"github.com/prestadia/prestadia-api/internal/models"
	"github.com/prestadia/prestadia-api/internal/repository"
	"github.com/stretchr/testify/assert"
)

// Mock InstallmentRepository (embedding to avoid implementing all methods)
type mockInstallmentRepository struct {
	repository.InstallmentRepository
	mockFindByID            func(ctx context.Context, id uint) (*models.Installment, error)
	mockUpdate              func(ctx context.Context, installment *models.Installment) error
	mockCreateBatch         func(ctx context.Context, installments []models.Installment) error
	mockCountUnpaid         func(ctx context.Context, loanID uint) (int64, error)
	mockBatchUpdatePenalty  func(ctx context.Context, updates map[uint]float64) error
	mockDeletePendingByLoan func(ctx context.Context, loanID uint) error
}

func (m *mockInstallmentRepository) DeletePendingByLoan(ctx context.Context, loanID uint) error {
	if m.mockDeletePendingByLoan != nil {
		return m.mockDeletePendingByLoan(ctx, loanID)
	}
	return nil
}

func (m *mockInstallmentRepository) CreateBatch(ctx context.Context, installments []models.Installment) error {
	if m.mockCreateBatch != nil {
		return m.mockCreateBatch(ctx, installments)
	}
	return nil
}

func (m *mockInstallmentRepository) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, nil
}

func (m *mockInstallmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, installment)
	}
	return nil
}

func (m *mockInstallmentRepository) CountUnpaidByLoan(ctx context.Context, loanID uint) (int64, error) {
	if m.mockCountUnpaid != nil {
		return m.mockCountUnpaid(ctx, loanID)
	}
	return 1, nil
}

func (m *mockInstallmentRepository) BatchUpdatePenalty(ctx context.Context, updates map[uint]float64) error {
	if m.mockBatchUpdatePenalty != nil {
		return m.mockBatchUpdatePenalty(ctx, updates)
	}
	return nil
}

// Mock LoanRepository
type mockLoanRepository struct {
	repository.LoanRepository
	mockFindByID        func(ctx context.Context, id uint) (*models.Loan, error)
	mockFindActiveLoans func(ctx context.Context, businessID uint) ([]models.Loan, error)
	mockCreate          func(ctx context.Context, loan *models.Loan) error
	mockUpdate          func(ctx context.Context, loan *models.Loan) error
}

func (m *mockLoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, loan)
	}
	return nil
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, nil
}

func (m *mockLoanRepository) FindActiveLoans(ctx context.Context, businessID uint) ([]models.Loan, error) {
	if m.mockFindActiveLoans != nil {
		return m.mockFindActiveLoans(ctx, businessID)
	}
	return nil, nil
}

func (m *mockLoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, loan)
	}
	return nil
}

// Mock LedgerRepository
type mockLedgerRepository struct {
	repository.LedgerRepository
	mockCreate              func(ctx context.Context, entry *models.LoanLedgerEntry) error
	mockFindOrCreate        func(ctx context.Context, entry *models.LoanLedgerEntry) error
	mockFindByLoanID        func(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, error)
	mockFindByInstallmentID func(ctx context.Context, installmentID uint) ([]models.LoanLedgerEntry, error)
	mockCalculateBalance    func(ctx context.Context, loanID uint) (float64, error)
	mockDeleteByLoanID      func(ctx context.Context, loanID uint) error
}

func (m *mockLedgerRepository) FindByLoanID(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, error) {
	if m.mockFindByLoanID != nil {
		return m.mockFindByLoanID(ctx, loanID)
	}
	return nil, nil
}

func (m *mockLedgerRepository) FindByInstallmentID(ctx context.Context, installmentID uint) ([]models.LoanLedgerEntry, error) {
	if m.mockFindByInstallmentID != nil {
		return m.mockFindByInstallmentID(ctx, installmentID)
	}
	return nil, nil
}

func (m *mockLedgerRepository) CalculateBalance(ctx context.Context, loanID uint) (float64, error) {
	if m.mockCalculateBalance != nil {
		return m.mockCalculateBalance(ctx, loanID)
	}
	return 0, nil
}

func (m *mockLedgerRepository) DeleteByLoanID(ctx context.Context, loanID uint) error {
	if m.mockDeleteByLoanID != nil {
		return m.mockDeleteByLoanID(ctx, loanID)
	}
	return nil
}

func (m *mockLedgerRepository) Create(ctx context.Context, entry *models.LoanLedgerEntry) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, entry)
	}
	return nil
}

func (m *mockLedgerRepository) FindOrCreateByInstallmentAndType(ctx context.Context, entry *models.LoanLedgerEntry) error {
	if m.mockFindOrCreate != nil {
		return m.mockFindOrCreate(ctx, entry)
	}
	return nil
}

// Mock UserRepository
type mockUserRepository struct {
	repository.UserRepository
	mockFindAdmins func(ctx context.Context) ([]models.User, error)
}

func (m *mockUserRepository) FindAdmins(ctx context.Context) ([]models.User, error) {
	if m.mockFindAdmins != nil {
		return m.mockFindAdmins(ctx)
	}
	return nil, nil
}

// Mock NotificationRepository
type mockNotificationRepository struct {
	repository.NotificationRepository
	mockCreate func(ctx context.Context, notification *models.Notification) error
}

func (m *mockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, notification)
	}
	return nil
}

func stringRef(s string) *string { return &s }

func TestRecalculatePenalties_FixedDaily(t *testing.T) {
	mockInstRepo := &mockInstallmentRepository{}
	mockLoanRepo := &mockLoanRepository{}
	mockLedger := &mockLedgerRepository{}
	mockUserRepo := &mockUserRepository{}
	mockNotifRepo := &mockNotificationRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	notifService := NewNotificationService(mockNotifRepo, mockUserRepo)
	service := NewPaymentService(mockInstRepo, mockLoanRepo, nil, mockLedger, notifService, NewAuditService(nil), worker)

	// An installment due 4 days ago with a 100/day penalty and no grace:
	// days due+1, due+2 and due+3 are billable (today itself is not),
	// so 3 periods at 100 each.
	now := time.Now()
	dueDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -4)

	loan := models.Loan{
		ID:                1,
		Reference:         "abc",
		BusinessID:        1,
		Status:            models.LoanStatusActive,
		PenaltyKind:       stringRef("fixed"),
		PenaltyValue:      100,
		PenaltyGraceDays:  0,
		PenaltyPeriodMode: "daily",
		PenaltyPerInstallment: true,
		PenaltyBase:       "quota",
		// Empty working days: every day counts.
		Business: models.Business{ID: 1, WorkingDays: ""},
		Installments: []models.Installment{
			{
				ID:      10,
				LoanID:  1,
				Number:  1,
				DueDate: dueDate,
				Amount:  1085,
				Status:  models.InstallmentStatusPending,
			},
		},
	}

	mockLoanRepo.mockFindActiveLoans = func(ctx context.Context, businessID uint) ([]models.Loan, error) {
		return []models.Loan{loan}, nil
	}

	batchCalled := false
	mockInstRepo.mockBatchUpdatePenalty = func(ctx context.Context, updates map[uint]float64) error {
		batchCalled = true
		assert.Len(t, updates, 1)
		assert.InDelta(t, 300.0, updates[10], 0.001)
		return nil
	}

	ledgerCalled := false
	mockLedger.mockFindOrCreate = func(ctx context.Context, entry *models.LoanLedgerEntry) error {
		ledgerCalled = true
		assert.Equal(t, uint(1), entry.LoanID)
		assert.Equal(t, uint(10), *entry.InstallmentID)
		assert.Equal(t, models.EntryTypePenalty, entry.EntryType)
		// Penalty increases debt, so the entry is negative.
		assert.InDelta(t, -300.0, entry.Amount, 0.001)
		return nil
	}

	mockUserRepo.mockFindAdmins = func(ctx context.Context) ([]models.User, error) {
		return []models.User{{ID: 99, Email: "admin@example.com"}}, nil
	}

	err := service.RecalculatePenalties(context.Background())
	assert.NoError(t, err)
	assert.True(t, batchCalled, "BatchUpdatePenalty should be called")
	assert.True(t, ledgerCalled, "penalty ledger entry should be upserted")

	// Give the async admin notification a moment to run.
	time.Sleep(100 * time.Millisecond)
}

func TestRecalculatePenalties_SkipsLoansWithoutConfig(t *testing.T) {
	mockInstRepo := &mockInstallmentRepository{}
	mockLoanRepo := &mockLoanRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	notifService := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})
	service := NewPaymentService(mockInstRepo, mockLoanRepo, nil, &mockLedgerRepository{}, notifService, NewAuditService(nil), worker)

	mockLoanRepo.mockFindActiveLoans = func(ctx context.Context, businessID uint) ([]models.Loan, error) {
		return []models.Loan{{ID: 1, Status: models.LoanStatusActive}}, nil
	}

	mockInstRepo.mockBatchUpdatePenalty = func(ctx context.Context, updates map[uint]float64) error {
		t.Fatal("no penalties should be written for loans without a penalty config")
		return nil
	}

	err := service.RecalculatePenalties(context.Background())
	assert.NoError(t, err)
}

func TestPostPayment_CollectionOrder(t *testing.T) {
	mockInstRepo := &mockInstallmentRepository{}
	mockLoanRepo := &mockLoanRepository{}
	mockLedger := &mockLedgerRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	notifService := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})
	service := NewPaymentService(mockInstRepo, mockLoanRepo, nil, mockLedger, notifService, NewAuditService(nil), worker)

	installment := &models.Installment{
		ID:            10,
		LoanID:        1,
		Number:        1,
		Amount:        1085,
		Capital:       833.33,
		Interest:      251.67,
		PenaltyAmount: 100,
		Status:        models.InstallmentStatusPending,
	}

	mockInstRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Installment, error) {
		return installment, nil
	}
	mockLoanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: 1, Reference: "abc", Status: models.LoanStatusActive}, nil
	}

	var updated *models.Installment
	mockInstRepo.mockUpdate = func(ctx context.Context, inst *models.Installment) error {
		updated = inst
		return nil
	}

	var ledgerEntry *models.LoanLedgerEntry
	mockLedger.mockCreate = func(ctx context.Context, entry *models.LoanLedgerEntry) error {
		ledgerEntry = entry
		return nil
	}

	// 500 covers the 100 penalty, the 251.67 interest and 148.33 of capital.
	breakdown, err := service.PostPayment(context.Background(), 10, 500, 1, "", "")
	assert.NoError(t, err)
	assert.InDelta(t, 100.0, breakdown.Penalty, 0.001)
	assert.InDelta(t, 251.67, breakdown.Interest, 0.001)
	assert.InDelta(t, 148.33, breakdown.Capital, 0.001)
	assert.InDelta(t, 0.0, breakdown.Surplus, 0.001)

	assert.NotNil(t, updated)
	assert.Equal(t, models.InstallmentStatusPartial, updated.Status)
	assert.InDelta(t, 500.0, updated.PaidTotal, 0.001)

	assert.NotNil(t, ledgerEntry)
	assert.Equal(t, models.EntryTypePayment, ledgerEntry.EntryType)
	assert.InDelta(t, 500.0, ledgerEntry.Amount, 0.001)
}

func TestPostPayment_SettlesInstallment(t *testing.T) {
	mockInstRepo := &mockInstallmentRepository{}
	mockLoanRepo := &mockLoanRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	notifService := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})
	service := NewPaymentService(mockInstRepo, mockLoanRepo, nil, &mockLedgerRepository{}, notifService, NewAuditService(nil), worker)

	installment := &models.Installment{
		ID:       10,
		LoanID:   1,
		Number:   1,
		Amount:   1085,
		Capital:  833.33,
		Interest: 251.67,
		Status:   models.InstallmentStatusPending,
	}

	mockInstRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Installment, error) {
		return installment, nil
	}
	mockLoanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: 1, Reference: "abc", Status: models.LoanStatusActive}, nil
	}

	breakdown, err := service.PostPayment(context.Background(), 10, 1085, 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, breakdown.Installment.Status)
	assert.NotNil(t, installment.PaidDate)

	time.Sleep(100 * time.Millisecond)
}

func TestPostPayment_RejectsClosedLoan(t *testing.T) {
	mockInstRepo := &mockInstallmentRepository{}
	mockLoanRepo := &mockLoanRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	notifService := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})
	service := NewPaymentService(mockInstRepo, mockLoanRepo, nil, &mockLedgerRepository{}, notifService, NewAuditService(nil), worker)

	mockInstRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Installment, error) {
		return &models.Installment{ID: 10, LoanID: 1, Status: models.InstallmentStatusPending}, nil
	}
	mockLoanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: 1, Status: models.LoanStatusCancelled}, nil
	}

	_, err := service.PostPayment(context.Background(), 10, 100, 1, "", "")
	assert.ErrorIs(t, err, ErrLoanNotOpen)
}

func TestUndoPayment_RevertsAndCompensates(t *testing.T) {
	mockInstRepo := &mockInstallmentRepository{}
	mockLoanRepo := &mockLoanRepository{}
	mockLedger := &mockLedgerRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	notifService := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})
	service := NewPaymentService(mockInstRepo, mockLoanRepo, nil, mockLedger, notifService, NewAuditService(nil), worker)

	paidDate := time.Now()
	installment := &models.Installment{
		ID:           10,
		LoanID:       1,
		Number:       1,
		Amount:       1085,
		Capital:      833.33,
		Interest:     251.67,
		PaidCapital:  833.33,
		PaidInterest: 251.67,
		PaidTotal:    1085,
		PaidDate:     &paidDate,
		Status:       models.InstallmentStatusPaid,
	}

	mockInstRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Installment, error) {
		return installment, nil
	}
	mockLoanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: 1, Reference: "abc", Status: models.LoanStatusActive}, nil
	}

	var ledgerEntry *models.LoanLedgerEntry
	mockLedger.mockCreate = func(ctx context.Context, entry *models.LoanLedgerEntry) error {
		ledgerEntry = entry
		return nil
	}

	reverted, err := service.UndoPayment(context.Background(), 10, 1, "", "")
	assert.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPending, reverted.Status)
	assert.Zero(t, reverted.PaidTotal)
	assert.Nil(t, reverted.PaidDate)

	assert.NotNil(t, ledgerEntry)
	assert.Equal(t, models.EntryTypeAdjustment, ledgerEntry.EntryType)
	assert.InDelta(t, -1085.0, ledgerEntry.Amount, 0.001)
}
