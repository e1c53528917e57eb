package models

import "time"

// RepairSummary is the subset of a repair shown in conversation lists
type RepairSummary struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Participant is the public view of a user inside a conversation
type Participant struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ConversationSummary is one row of a user's conversation list.
// It is computed from the messages table and never persisted.
type ConversationSummary struct {
	RepairID        uint          `json:"repairId"`
	Repair          RepairSummary `json:"repair"`
	Customer        *Participant  `json:"customer"`
	Technician      *Participant  `json:"technician"`
	OtherParty      *Participant  `json:"otherParty"`
	LastMessage     string        `json:"lastMessage"`
	LastMessageTime time.Time     `json:"lastMessageTime"`
	UnreadCount     int64         `json:"unreadCount"`
}

// NewParticipant builds the public participant view of a user
func NewParticipant(u *User) *Participant {
	if u == nil || u.ID == 0 {
		return nil
	}
	return &Participant{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}
