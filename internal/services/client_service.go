package services

import (
	"context"
	"fmt"

	"github.com/prestadia/prestadia-api/internal/models"
	"github.com/prestadia/prestadia-api/internal/repository"
)

// ClientService handles borrower-related business logic
type ClientService struct {
	repo     repository.ClientRepository
	loanRepo repository.LoanRepository
	auditSvc *AuditService
}

func NewClientService(repo repository.ClientRepository, loanRepo repository.LoanRepository, auditSvc *AuditService) *ClientService {
	return &ClientService{
		repo:     repo,
		loanRepo: loanRepo,
		auditSvc: auditSvc,
	}
}

func (s *ClientService) FindByID(ctx context.Context, id uint) (*models.Client, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ClientService) List(ctx context.Context, businessID uint, query *repository.ListQuery) ([]models.Client, int64, error) {
	return s.repo.List(ctx, businessID, query)
}

func (s *ClientService) Create(ctx context.Context, client *models.Client, actorID uint) error {
	if client.Identity != "" {
		if _, err := s.repo.FindByIdentity(ctx, client.BusinessID, client.Identity); err == nil {
			return ErrDuplicate
		}
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "CREATE", "Client", client.ID,
		fmt.Sprintf("Cliente creado: %s", client.FullName), "", "")
}

func (s *ClientService) Update(ctx context.Context, client *models.Client, actorID uint) error {
	if err := s.repo.Update(ctx, client); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "UPDATE", "Client", client.ID,
		fmt.Sprintf("Cliente actualizado: %s", client.FullName), "", "")
}

// Delete soft-deletes a client unless it still has open loans
func (s *ClientService) Delete(ctx context.Context, id uint, actorID uint) error {
	hasLoans, err := s.loanRepo.HasOpenLoans(ctx, id)
	if err != nil {
		return err
	}
	if hasLoans {
		return ErrClientHasLoans
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "DELETE", "Client", id, "Cliente eliminado (soft delete)", "", "")
}
