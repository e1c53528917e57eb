package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleCustomer   = "customer"
	RoleTechnician = "technician"
	RoleAdmin      = "admin"
)

// User represents a user in the system (customer, technician or admin)
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Username       string         `gorm:"not null" json:"username"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"` // stored lower-case
	PasswordHash   string         `gorm:"not null" json:"-"`
	Role           string         `gorm:"not null;default:'customer'" json:"role"`
	Phone          string         `json:"phone,omitempty"`
	Skills         StringList     `gorm:"type:text" json:"skills,omitempty"` // technicians only
	Bio            string         `gorm:"type:text" json:"bio,omitempty"`
	Certifications string         `gorm:"type:text" json:"certifications,omitempty"`
	AvatarRef      string         `json:"-"`                             // storage key or absolute URL
	AvatarURL      string         `gorm:"-" json:"avatarUrl,omitempty"` // computed from AvatarRef
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsTechnician reports whether the user acts on the technician side (technicians and admins)
func (u User) IsTechnician() bool {
	return IsTechnicianRole(u.Role)
}

// IsTechnicianRole reports whether a role may use technician features
func IsTechnicianRole(role string) bool {
	return role == RoleTechnician || role == RoleAdmin
}

// NormalizeRole maps a claimed role onto a known role, defaulting to customer
func NormalizeRole(role string) string {
	switch role {
	case RoleTechnician, RoleAdmin:
		return role
	default:
		return RoleCustomer
	}
}
