package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Business     BusinessRepository
	Client       ClientRepository
	Loan         LoanRepository
	Installment  InstallmentRepository
	Ledger       LedgerRepository
	Notification NotificationRepository
	RefreshToken RefreshTokenRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Business:     NewBusinessRepository(db),
		Client:       NewClientRepository(db),
		Loan:         NewLoanRepository(db),
		Installment:  NewInstallmentRepository(db),
		Ledger:       NewLedgerRepository(db),
		Notification: NewNotificationRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
	}
}
