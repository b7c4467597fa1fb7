package services

import (
	"github.com/prestadia/prestadia-api/internal/config"
	"github.com/prestadia/prestadia-api/internal/jobs"
	"github.com/prestadia/prestadia-api/internal/repository"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	User         *UserService
	Business     *BusinessService
	Client       *ClientService
	Loan         *LoanService
	Payment      *PaymentService
	Notification *NotificationService
	Audit        *AuditService
	Job          *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, scheduleCache *repository.ScheduleCache, cfg *config.Config, db *gorm.DB) *Services {
	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	auditSvc := NewAuditService(db)

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:         NewUserService(repos.User, notificationSvc, auditSvc),
		Business:     NewBusinessService(repos.Business, auditSvc),
		Client:       NewClientService(repos.Client, repos.Loan, auditSvc),
		Loan:         NewLoanService(repos.Loan, repos.Installment, repos.Client, repos.Business, repos.Ledger, scheduleCache, notificationSvc, auditSvc, worker),
		Payment:      NewPaymentService(repos.Installment, repos.Loan, repos.Business, repos.Ledger, notificationSvc, auditSvc, worker),
		Notification: notificationSvc,
		Audit:        auditSvc,
		Job:          NewJobService(worker),
	}
}
