package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User represents a user in the system
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	EncryptedPassword string     `gorm:"column:encrypted_password;not null" json:"-"`
	Role              string     `gorm:"default:user" json:"role"`
	FullName          string     `json:"full_name"`
	Phone             string     `json:"phone"`
	Status            string     `gorm:"default:active" json:"status"`
	Identity          string     `gorm:"uniqueIndex" json:"identity"`
	BusinessID        *uint      `gorm:"index" json:"business_id"`
	DiscardedAt       *time.Time `gorm:"index" json:"-"`
	Locale            string     `gorm:"default:es" json:"locale"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Associations
	Business      *Business      `gorm:"foreignKey:BusinessID" json:"business,omitempty"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"notifications,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Role constants
const (
	RoleAdmin     = "admin"
	RoleCollector = "collector"
	RoleUser      = "user"
)

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Locale constants
const (
	LocaleES = "es"
	LocaleEN = "en"
)

// BeforeCreate hook for setting defaults
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	if u.Locale == "" {
		u.Locale = LocaleES
	}
	return nil
}

// SetPassword hashes and stores the given plain-text password
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.EncryptedPassword = string(hashed)
	return nil
}

// CheckPassword compares a plain-text password with the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.EncryptedPassword), []byte(password)) == nil
}

// IsAdmin returns true if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsCollector returns true if user has collector role
func (u *User) IsCollector() bool {
	return u.Role == RoleCollector
}

// IsActive returns true if user status is active
func (u *User) IsActive() bool {
	return u.Status == StatusActive && u.DiscardedAt == nil
}

// IsDiscarded returns true if user is soft-deleted
func (u *User) IsDiscarded() bool {
	return u.DiscardedAt != nil
}

// UserResponse is the JSON response format for users
type UserResponse struct {
	ID         uint      `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Role       string    `json:"role"`
	Status     string    `json:"status"`
	Identity   string    `json:"identity"`
	BusinessID *uint     `json:"business_id"`
	Locale     string    `json:"locale"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Phone:      u.Phone,
		Role:       u.Role,
		Status:     u.Status,
		Identity:   u.Identity,
		BusinessID: u.BusinessID,
		Locale:     u.Locale,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
