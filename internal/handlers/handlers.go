package handlers

import (
	"github.com/prestadia/prestadia-api/internal/services"
	"github.com/prestadia/prestadia-api/internal/storage"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Business     *BusinessHandler
	Client       *ClientHandler
	Loan         *LoanHandler
	Payment      *PaymentHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
	Job          *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, storage *storage.LocalStorage) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Auth:         NewAuthHandler(svcs.Auth),
		User:         NewUserHandler(svcs.User),
		Business:     NewBusinessHandler(svcs.Business),
		Client:       NewClientHandler(svcs.Client, svcs.Loan),
		Loan:         NewLoanHandler(svcs.Loan, svcs.Payment),
		Payment:      NewPaymentHandler(svcs.Payment, storage),
		Notification: NewNotificationHandler(svcs.Notification),
		Audit:        NewAuditHandler(svcs.Audit),
		Job:          NewJobHandler(svcs.Job),
	}
}
