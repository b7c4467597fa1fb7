package models

import "time"

// Client represents a borrower of a business
type Client struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	BusinessID  uint       `gorm:"not null;index" json:"business_id"`
	FullName    string     `gorm:"not null" json:"full_name"`
	Identity    string     `gorm:"index" json:"identity"`
	Phone       string     `json:"phone"`
	Email       *string    `json:"email"`
	Address     *string    `json:"address"`
	Note        *string    `gorm:"type:text" json:"note"`
	Active      bool       `gorm:"default:true;index" json:"active"`
	DiscardedAt *time.Time `gorm:"index" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Associations
	Business Business `gorm:"foreignKey:BusinessID" json:"-"`
	Loans    []Loan   `gorm:"foreignKey:ClientID" json:"loans,omitempty"`
}

// TableName specifies the table name for Client
func (Client) TableName() string {
	return "clients"
}

// ClientResponse is the JSON response format for clients
type ClientResponse struct {
	ID         uint      `json:"id"`
	BusinessID uint      `json:"business_id"`
	FullName   string    `json:"full_name"`
	Identity   string    `json:"identity"`
	Phone      string    `json:"phone"`
	Email      *string   `json:"email"`
	Address    *string   `json:"address"`
	Active     bool      `json:"active"`
	LoanCount  int       `json:"loan_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToResponse converts Client to ClientResponse
func (c *Client) ToResponse() ClientResponse {
	return ClientResponse{
		ID:         c.ID,
		BusinessID: c.BusinessID,
		FullName:   c.FullName,
		Identity:   c.Identity,
		Phone:      c.Phone,
		Email:      c.Email,
		Address:    c.Address,
		Active:     c.Active,
		LoanCount:  len(c.Loans),
		CreatedAt:  c.CreatedAt,
	}
}
