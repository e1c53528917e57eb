package models

import (
	"time"

	"gorm.io/gorm"
)

// Repair statuses
const (
	StatusPending    = "Pending"
	StatusAssigned   = "Assigned"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

// transitions lists the statuses reachable through an update.
// Assigned is only entered by claiming a repair.
var transitions = map[string][]string{
	StatusPending:    {StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

// Repair represents a customer's repair request
type Repair struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"type:text;not null" json:"description"`
	Status       string         `gorm:"not null;default:'Pending';index:idx_repairs_status_created,priority:1" json:"status"`
	UserID       uint           `gorm:"not null;index" json:"userId"` // owning customer
	User         User           `gorm:"foreignKey:UserID" json:"user"`
	TechnicianID *uint          `gorm:"index" json:"technicianId"` // nullable, set once by a claim
	Technician   *User          `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Rating       *int           `json:"rating"` // 1..5, set once after completion
	Review       string         `gorm:"type:text" json:"review"`
	CreatedAt    time.Time      `gorm:"index:idx_repairs_status_created,priority:2" json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Repair model
func (Repair) TableName() string {
	return "repairs"
}

// IsValidStatus reports whether status is one of the repair lifecycle states
func IsValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// IsTerminalStatus reports whether no further status changes are allowed
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// CanTransition reports whether a repair may move from one status to another
func CanTransition(from, to string) bool {
	if from == to {
		return IsValidStatus(to)
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsParticipant reports whether the user is the owner or the assigned technician
func (r Repair) IsParticipant(userID uint) bool {
	return r.UserID == userID || r.IsTechnician(userID)
}

// IsTechnician reports whether the user is the assigned technician
func (r Repair) IsTechnician(userID uint) bool {
	return r.TechnicianID != nil && *r.TechnicianID == userID
}

// Counterpart returns the other participant of the repair, if there is one
func (r Repair) Counterpart(userID uint) (uint, bool) {
	switch {
	case r.UserID == userID:
		if r.TechnicianID == nil {
			return 0, false
		}
		return *r.TechnicianID, true
	case r.IsTechnician(userID):
		return r.UserID, true
	default:
		return 0, false
	}
}
