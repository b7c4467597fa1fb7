package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/prestadia/prestadia-api/internal/engine"
)

// Business represents a tenant: a lender operating its own portfolio
// of clients and loans.
type Business struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	OwnerUserID uint    `gorm:"not null;index" json:"owner_user_id"`
	Currency    string  `gorm:"default:HNL;not null" json:"currency"`
	Plan        string  `gorm:"default:free" json:"plan"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	// WorkingDays is a comma-separated list of weekday indexes
	// (Sunday=0) the business collects on. Empty means every day.
	WorkingDays string    `gorm:"default:1,2,3,4,5,6" json:"working_days"`
	Active      bool      `gorm:"default:true;index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Owner    User              `gorm:"foreignKey:OwnerUserID" json:"-"`
	Holidays []BusinessHoliday `gorm:"foreignKey:BusinessID" json:"holidays,omitempty"`
}

// TableName specifies the table name for Business
func (Business) TableName() string {
	return "businesses"
}

// BusinessHoliday is an explicit non-working date for a business.
type BusinessHoliday struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BusinessID uint      `gorm:"not null;index" json:"business_id"`
	Date       time.Time `gorm:"type:date;not null" json:"date"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for BusinessHoliday
func (BusinessHoliday) TableName() string {
	return "business_holidays"
}

// WorkingWeekdays parses the configured weekday list. Invalid entries
// are skipped; an empty configuration means all weekdays qualify.
func (b *Business) WorkingWeekdays() []time.Weekday {
	if strings.TrimSpace(b.WorkingDays) == "" {
		return nil
	}
	var weekdays []time.Weekday
	for _, part := range strings.Split(b.WorkingDays, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			continue
		}
		weekdays = append(weekdays, time.Weekday(n))
	}
	return weekdays
}

// Calendar builds the engine calendar snapshot for this business.
// Holidays must be preloaded.
func (b *Business) Calendar() *engine.BusinessCalendar {
	holidays := make([]time.Time, 0, len(b.Holidays))
	for _, h := range b.Holidays {
		holidays = append(holidays, h.Date)
	}
	return engine.NewBusinessCalendar(b.WorkingWeekdays(), holidays)
}

// CalendarFingerprint summarizes the working-day configuration so
// cached schedules are invalidated when the calendar changes.
func (b *Business) CalendarFingerprint() string {
	parts := []string{b.WorkingDays}
	for _, h := range b.Holidays {
		parts = append(parts, h.Date.Format("2006-01-02"))
	}
	return strings.Join(parts, "|")
}

// BusinessResponse is the JSON response format for businesses
type BusinessResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Currency    string    `json:"currency"`
	Plan        string    `json:"plan"`
	WorkingDays string    `json:"working_days"`
	Active      bool      `json:"active"`
	Holidays    []string  `json:"holidays"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse converts Business to BusinessResponse
func (b *Business) ToResponse() BusinessResponse {
	resp := BusinessResponse{
		ID:          b.ID,
		Name:        b.Name,
		Currency:    b.Currency,
		Plan:        b.Plan,
		WorkingDays: b.WorkingDays,
		Active:      b.Active,
		Holidays:    []string{},
		CreatedAt:   b.CreatedAt,
	}
	for _, h := range b.Holidays {
		resp.Holidays = append(resp.Holidays, h.Date.Format("2006-01-02"))
	}
	return resp
}
