package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prestadia/prestadia-api/internal/jobs"
	"github.com/prestadia/prestadia-api/internal/models"
	"github.com/prestadia/prestadia-api/internal/repository"
	"github.com/stretchr/testify/assert"
)

// Mock ClientRepository
type mockClientRepository struct {
	repository.ClientRepository
	mockFindByID func(ctx context.Context, id uint) (*models.Client, error)
}

func (m *mockClientRepository) FindByID(ctx context.Context, id uint) (*models.Client, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, nil
}

// Mock BusinessRepository
type mockBusinessRepository struct {
	repository.BusinessRepository
	mockFindByID func(ctx context.Context, id uint) (*models.Business, error)
}

func (m *mockBusinessRepository) FindByID(ctx context.Context, id uint) (*models.Business, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, nil
}

func newLoanServiceForTest(
	loanRepo *mockLoanRepository,
	instRepo *mockInstallmentRepository,
	clientRepo *mockClientRepository,
	businessRepo *mockBusinessRepository,
	ledgerRepo *mockLedgerRepository,
	worker *jobs.Worker,
) *LoanService {
	notifService := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})
	return NewLoanService(loanRepo, instRepo, clientRepo, businessRepo, ledgerRepo, nil, notifService, NewAuditService(nil), worker)
}

func activeBusiness() *models.Business {
	return &models.Business{
		ID:          1,
		Name:        "Prestadia Test",
		Currency:    "HNL",
		WorkingDays: "",
		Active:      true,
	}
}

func TestCreateLoan_FixedWeekly(t *testing.T) {
	mockLoanRepo := &mockLoanRepository{}
	mockInstRepo := &mockInstallmentRepository{}
	mockClientRepo := &mockClientRepository{}
	mockBizRepo := &mockBusinessRepository{}
	mockLedger := &mockLedgerRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(mockLoanRepo, mockInstRepo, mockClientRepo, mockBizRepo, mockLedger, worker)

	mockBizRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Business, error) {
		return activeBusiness(), nil
	}
	mockClientRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Client, error) {
		return &models.Client{ID: 5, BusinessID: 1, FullName: "Juan Pérez"}, nil
	}

	mockLoanRepo.mockCreate = func(ctx context.Context, loan *models.Loan) error {
		loan.ID = 42
		return nil
	}

	var batch []models.Installment
	mockInstRepo.mockCreateBatch = func(ctx context.Context, installments []models.Installment) error {
		batch = installments
		return nil
	}

	var disbursement *models.LoanLedgerEntry
	mockLedger.mockCreate = func(ctx context.Context, entry *models.LoanLedgerEntry) error {
		disbursement = entry
		return nil
	}

	loan := &models.Loan{
		BusinessID:        1,
		ClientID:          5,
		Amount:            10000,
		InterestRate:      10,
		Duration:          12,
		LendingModel:      "fixed",
		FrequencyType:     "weekly",
		FrequencyInterval: 1,
		StartDate:         time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}

	err := service.Create(context.Background(), loan, 1)
	assert.NoError(t, err)

	assert.NotEmpty(t, loan.Reference)
	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.Equal(t, "HNL", loan.Currency)
	assert.Equal(t, loan.StartDate, loan.FirstPaymentDate)
	assert.InDelta(t, 13020.0, loan.TotalToPay, 0.001)
	assert.InDelta(t, 3020.0, loan.TotalInterest, 0.001)

	assert.Len(t, batch, 12)
	for _, inst := range batch {
		assert.Equal(t, uint(42), inst.LoanID)
		assert.InDelta(t, 1085.0, inst.Amount, 0.001)
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
	}

	assert.NotNil(t, disbursement)
	assert.Equal(t, uint(42), disbursement.LoanID)
	assert.Equal(t, models.EntryTypeDisbursement, disbursement.EntryType)
	assert.InDelta(t, -10000.0, disbursement.Amount, 0.001)

	// Give the async admin notification a moment to run.
	time.Sleep(100 * time.Millisecond)
}

func TestCreateLoan_InvalidAmount(t *testing.T) {
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(&mockLoanRepository{}, &mockInstallmentRepository{}, &mockClientRepository{}, &mockBusinessRepository{}, &mockLedgerRepository{}, worker)

	err := service.Create(context.Background(), &models.Loan{Amount: 0}, 1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreateLoan_ZeroDurationRejected(t *testing.T) {
	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(&mockLoanRepository{}, &mockInstallmentRepository{}, &mockClientRepository{}, &mockBusinessRepository{}, &mockLedgerRepository{}, worker)

	// Fixed and amortization divide by the duration; a zero would leak
	// NaN totals or an empty schedule into the persisted loan.
	for _, model := range []string{"fixed", "amortization"} {
		loan := &models.Loan{
			BusinessID:    1,
			ClientID:      5,
			Amount:        10000,
			InterestRate:  10,
			Duration:      0,
			LendingModel:  model,
			FrequencyType: "weekly",
		}
		err := service.Create(context.Background(), loan, 1)
		assert.ErrorIs(t, err, ErrInvalidTerms, model)
	}
}

func TestCreateLoan_ReditoZeroDurationDefaultsTwelve(t *testing.T) {
	mockLoanRepo := &mockLoanRepository{}
	mockInstRepo := &mockInstallmentRepository{}
	mockClientRepo := &mockClientRepository{}
	mockBizRepo := &mockBusinessRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(mockLoanRepo, mockInstRepo, mockClientRepo, mockBizRepo, &mockLedgerRepository{}, worker)

	mockBizRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Business, error) {
		return activeBusiness(), nil
	}
	mockClientRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Client, error) {
		return &models.Client{ID: 5, BusinessID: 1}, nil
	}
	mockLoanRepo.mockCreate = func(ctx context.Context, loan *models.Loan) error {
		loan.ID = 43
		return nil
	}

	var batch []models.Installment
	mockInstRepo.mockCreateBatch = func(ctx context.Context, installments []models.Installment) error {
		batch = installments
		return nil
	}

	loan := &models.Loan{
		BusinessID:        1,
		ClientID:          5,
		Amount:            10000,
		InterestRate:      10,
		Duration:          0,
		LendingModel:      "redito",
		FrequencyType:     "weekly",
		FrequencyInterval: 1,
		StartDate:         time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}

	err := service.Create(context.Background(), loan, 1)
	assert.NoError(t, err)

	assert.Len(t, batch, 12)
	assert.False(t, math.IsNaN(loan.TotalToPay))
	assert.InDelta(t, 10250.0, loan.TotalToPay, 0.001)
	assert.InDelta(t, 250.0, loan.TotalInterest, 0.001)

	time.Sleep(100 * time.Millisecond)
}

func TestCreateLoan_UnknownFrequency(t *testing.T) {
	mockBizRepo := &mockBusinessRepository{}
	mockClientRepo := &mockClientRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(&mockLoanRepository{}, &mockInstallmentRepository{}, mockClientRepo, mockBizRepo, &mockLedgerRepository{}, worker)

	mockBizRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Business, error) {
		return activeBusiness(), nil
	}
	mockClientRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Client, error) {
		return &models.Client{ID: 5, BusinessID: 1}, nil
	}

	loan := &models.Loan{
		BusinessID:    1,
		ClientID:      5,
		Amount:        10000,
		InterestRate:  10,
		Duration:      12,
		LendingModel:  "fixed",
		FrequencyType: "quarterly",
		StartDate:     time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}

	err := service.Create(context.Background(), loan, 1)
	assert.ErrorIs(t, err, ErrInvalidTerms)
}

func TestCreateLoan_ClientFromOtherBusiness(t *testing.T) {
	mockBizRepo := &mockBusinessRepository{}
	mockClientRepo := &mockClientRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(&mockLoanRepository{}, &mockInstallmentRepository{}, mockClientRepo, mockBizRepo, &mockLedgerRepository{}, worker)

	mockBizRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Business, error) {
		return activeBusiness(), nil
	}
	mockClientRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Client, error) {
		return &models.Client{ID: 5, BusinessID: 99}, nil
	}

	loan := &models.Loan{BusinessID: 1, ClientID: 5, Amount: 10000, LendingModel: "fixed", FrequencyType: "weekly"}
	err := service.Create(context.Background(), loan, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateLoan_InactiveBusiness(t *testing.T) {
	mockBizRepo := &mockBusinessRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(&mockLoanRepository{}, &mockInstallmentRepository{}, &mockClientRepository{}, mockBizRepo, &mockLedgerRepository{}, worker)

	mockBizRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Business, error) {
		biz := activeBusiness()
		biz.Active = false
		return biz, nil
	}

	loan := &models.Loan{BusinessID: 1, ClientID: 5, Amount: 10000}
	err := service.Create(context.Background(), loan, 1)
	assert.ErrorIs(t, err, ErrBusinessInactive)
}

func TestCloseLoan_RejectsUnpaidInstallments(t *testing.T) {
	mockLoanRepo := &mockLoanRepository{}
	mockInstRepo := &mockInstallmentRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(mockLoanRepo, mockInstRepo, &mockClientRepository{}, &mockBusinessRepository{}, &mockLedgerRepository{}, worker)

	mockLoanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: 1, Reference: "abc", Status: models.LoanStatusActive}, nil
	}
	mockInstRepo.mockCountUnpaid = func(ctx context.Context, loanID uint) (int64, error) {
		return 3, nil
	}

	_, err := service.Close(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCloseLoan_Settled(t *testing.T) {
	mockLoanRepo := &mockLoanRepository{}
	mockInstRepo := &mockInstallmentRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(mockLoanRepo, mockInstRepo, &mockClientRepository{}, &mockBusinessRepository{}, &mockLedgerRepository{}, worker)

	mockLoanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: 1, Reference: "abc", Status: models.LoanStatusActive}, nil
	}
	mockInstRepo.mockCountUnpaid = func(ctx context.Context, loanID uint) (int64, error) {
		return 0, nil
	}

	loan, err := service.Close(context.Background(), 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, models.LoanStatusClosed, loan.Status)
	assert.NotNil(t, loan.ClosedAt)

	time.Sleep(100 * time.Millisecond)
}

func TestCancelLoan_RemovesScheduleAndLedger(t *testing.T) {
	mockLoanRepo := &mockLoanRepository{}
	mockInstRepo := &mockInstallmentRepository{}
	mockLedger := &mockLedgerRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(mockLoanRepo, mockInstRepo, &mockClientRepository{}, &mockBusinessRepository{}, mockLedger, worker)

	mockLoanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: 1, Reference: "abc", Amount: 10000, Status: models.LoanStatusActive}, nil
	}

	var deletedInstallmentsLoan, deletedLedgerLoan uint
	mockInstRepo.mockDeletePendingByLoan = func(ctx context.Context, loanID uint) error {
		deletedInstallmentsLoan = loanID
		return nil
	}
	mockLedger.mockDeleteByLoanID = func(ctx context.Context, loanID uint) error {
		deletedLedgerLoan = loanID
		return nil
	}

	loan, err := service.Cancel(context.Background(), 1, "cliente desistió", 1)
	assert.NoError(t, err)
	assert.Equal(t, models.LoanStatusCancelled, loan.Status)
	assert.NotNil(t, loan.Note)

	assert.Equal(t, uint(1), deletedInstallmentsLoan)
	assert.Equal(t, uint(1), deletedLedgerLoan)
}

func TestGetLedger_IncludesBalance(t *testing.T) {
	mockLedger := &mockLedgerRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(&mockLoanRepository{}, &mockInstallmentRepository{}, &mockClientRepository{}, &mockBusinessRepository{}, mockLedger, worker)

	mockLedger.mockFindByLoanID = func(ctx context.Context, loanID uint) ([]models.LoanLedgerEntry, error) {
		return []models.LoanLedgerEntry{
			{LoanID: loanID, Amount: -10000, EntryType: models.EntryTypeDisbursement},
			{LoanID: loanID, Amount: 1085, EntryType: models.EntryTypePayment},
		}, nil
	}
	mockLedger.mockCalculateBalance = func(ctx context.Context, loanID uint) (float64, error) {
		return -8915, nil
	}

	entries, balance, err := service.GetLedger(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.InDelta(t, -8915.0, balance, 0.001)
}

func TestReopenLoan(t *testing.T) {
	mockLoanRepo := &mockLoanRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(mockLoanRepo, &mockInstallmentRepository{}, &mockClientRepository{}, &mockBusinessRepository{}, &mockLedgerRepository{}, worker)

	closedAt := time.Now()
	mockLoanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: 1, Reference: "abc", Status: models.LoanStatusClosed, ClosedAt: &closedAt}, nil
	}

	loan, err := service.Reopen(context.Background(), 1, 1)
	assert.NoError(t, err)
	assert.Equal(t, models.LoanStatusActive, loan.Status)
	assert.Nil(t, loan.ClosedAt)
}

func TestPreviewSchedule_UncachedComputes(t *testing.T) {
	mockBizRepo := &mockBusinessRepository{}

	worker := jobs.NewWorker(0)
	defer worker.Shutdown()

	service := newLoanServiceForTest(&mockLoanRepository{}, &mockInstallmentRepository{}, &mockClientRepository{}, mockBizRepo, &mockLedgerRepository{}, worker)

	mockBizRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Business, error) {
		return activeBusiness(), nil
	}

	loan := models.Loan{
		Amount:            10000,
		InterestRate:      10,
		Duration:          12,
		LendingModel:      "fixed",
		FrequencyType:     "weekly",
		FrequencyInterval: 1,
		StartDate:         time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		FirstPaymentDate:  time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}

	preview, err := service.PreviewSchedule(context.Background(), 1, loan.EngineTerms())
	assert.NoError(t, err)
	assert.Len(t, preview.Installments, 12)
	assert.InDelta(t, 13020.0, preview.Summary.TotalToPay, 0.001)
	assert.InDelta(t, 3020.0, preview.Summary.TotalInterest, 0.001)
}
