package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prestadia/prestadia-api/internal/models"
	"github.com/prestadia/prestadia-api/internal/repository"
)

// BusinessService handles tenant settings, including the working-day
// calendar that schedule generation and penalties depend on.
type BusinessService struct {
	repo     repository.BusinessRepository
	auditSvc *AuditService
}

func NewBusinessService(repo repository.BusinessRepository, auditSvc *AuditService) *BusinessService {
	return &BusinessService{
		repo:     repo,
		auditSvc: auditSvc,
	}
}

func (s *BusinessService) FindByID(ctx context.Context, id uint) (*models.Business, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *BusinessService) Create(ctx context.Context, business *models.Business, actorID uint) error {
	if err := s.repo.Create(ctx, business); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "CREATE", "Business", business.ID,
		fmt.Sprintf("Negocio creado: %s", business.Name), "", "")
}

func (s *BusinessService) Update(ctx context.Context, business *models.Business, actorID uint) error {
	if err := s.repo.Update(ctx, business); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "UPDATE", "Business", business.ID,
		fmt.Sprintf("Negocio actualizado: %s", business.Name), "", "")
}

// UpdateWorkingDays replaces the working weekday configuration.
func (s *BusinessService) UpdateWorkingDays(ctx context.Context, id uint, workingDays string, actorID uint) (*models.Business, error) {
	business, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	business.WorkingDays = workingDays
	if err := s.repo.Update(ctx, business); err != nil {
		return nil, err
	}
	s.auditSvc.Log(ctx, actorID, "UPDATE_CALENDAR", "Business", id,
		fmt.Sprintf("Días hábiles actualizados: %s", workingDays), "", "")
	return business, nil
}

// AddHoliday registers a non-working date for the business
func (s *BusinessService) AddHoliday(ctx context.Context, businessID uint, date time.Time, name string, actorID uint) (*models.BusinessHoliday, error) {
	holiday := &models.BusinessHoliday{
		BusinessID: businessID,
		Date:       date,
		Name:       name,
	}
	if err := s.repo.AddHoliday(ctx, holiday); err != nil {
		return nil, err
	}
	s.auditSvc.Log(ctx, actorID, "ADD_HOLIDAY", "Business", businessID,
		fmt.Sprintf("Feriado agregado: %s (%s)", name, date.Format("2006-01-02")), "", "")
	return holiday, nil
}

// RemoveHoliday deletes a holiday from the business calendar
func (s *BusinessService) RemoveHoliday(ctx context.Context, businessID, holidayID uint, actorID uint) error {
	if err := s.repo.RemoveHoliday(ctx, businessID, holidayID); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "REMOVE_HOLIDAY", "Business", businessID,
		fmt.Sprintf("Feriado eliminado: #%d", holidayID), "", "")
}

func (s *BusinessService) Holidays(ctx context.Context, businessID uint) ([]models.BusinessHoliday, error) {
	return s.repo.FindHolidays(ctx, businessID)
}
