package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxMessageLength is the maximum number of characters in a message
const MaxMessageLength = 2000

// Message represents a message in a repair conversation
type Message struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RepairID   uint           `gorm:"not null;index:idx_messages_repair_created,priority:1" json:"repairId"`
	Repair     Repair         `gorm:"foreignKey:RepairID" json:"-"`
	SenderID   uint           `gorm:"not null;index:idx_messages_sender_receiver,priority:1" json:"senderId"`
	Sender     User           `gorm:"foreignKey:SenderID" json:"sender"`
	ReceiverID uint           `gorm:"not null;index:idx_messages_sender_receiver,priority:2" json:"receiverId"`
	Receiver   User           `gorm:"foreignKey:ReceiverID" json:"receiver"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	IsRead     bool           `gorm:"not null;default:false" json:"read"`
	CreatedAt  time.Time      `gorm:"index:idx_messages_repair_created,priority:2" json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
