package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/utils"
	"gorm.io/gorm"
)

// SendMessageInput is the body of a new message
type SendMessageInput struct {
	RepairID uint   `json:"repairId"`
	Content  string `json:"content"`
}

// MessageService handles repair threads and conversation summaries
type MessageService struct {
	db     *gorm.DB
	cache  ConversationCache
	images ImageService
}

// NewMessageService creates a message service
func NewMessageService(db *gorm.DB, cache ConversationCache, images ImageService) *MessageService {
	if cache == nil {
		cache = NoopConversationCache{}
	}
	if images == nil {
		images = NoopImageService{}
	}
	return &MessageService{db: db, cache: cache, images: images}
}

// Thread returns the messages of a repair oldest first and marks the
// caller's unread inbound messages as read. The returned messages carry
// their read flags as they were before marking.
func (s *MessageService) Thread(ctx context.Context, caller *Identity, repairID uint) ([]models.Message, error) {
	repair, err := s.participantRepair(ctx, caller, repairID)
	if err != nil {
		return nil, err
	}

	messages := []models.Message{}
	err = s.db.WithContext(ctx).
		Preload("Sender").Preload("Receiver").
		Where("repair_id = ?", repair.ID).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to load messages: %w", err))
	}

	if err := s.markRead(ctx, caller.UserID, repair.ID, messages); err != nil {
		return nil, err
	}

	for i := range messages {
		ResolveAvatarURL(s.images, &messages[i].Sender)
		ResolveAvatarURL(s.images, &messages[i].Receiver)
	}
	return messages, nil
}

// markRead flags the caller's inbound messages among those just returned.
// Messages that arrive after the thread was loaded stay unread.
func (s *MessageService) markRead(ctx context.Context, userID, repairID uint, messages []models.Message) error {
	var lastID uint
	for _, m := range messages {
		if m.ID > lastID {
			lastID = m.ID
		}
	}
	if lastID == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("repair_id = ? AND receiver_id = ? AND is_read = ? AND id <= ?", repairID, userID, false, lastID).
		Update("is_read", true)
	if result.Error != nil {
		return utils.Internal(fmt.Errorf("failed to mark messages read: %w", result.Error))
	}
	if result.RowsAffected > 0 {
		s.cache.Invalidate(ctx, userID)
	}
	return nil
}

// Send posts a message from the caller to the other participant of the repair
func (s *MessageService) Send(ctx context.Context, caller *Identity, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if in.RepairID == 0 || content == "" {
		return nil, utils.BadRequest("Missing required fields")
	}
	if utf8.RuneCountInString(in.Content) > models.MaxMessageLength {
		return nil, utils.BadRequest("Message too long")
	}

	repair, err := s.participantRepair(ctx, caller, in.RepairID)
	if err != nil {
		return nil, err
	}

	receiverID, ok := repair.Counterpart(caller.UserID)
	if !ok {
		return nil, utils.BadRequest("No recipient found for this repair")
	}

	msg := models.Message{
		RepairID:   repair.ID,
		SenderID:   caller.UserID,
		ReceiverID: receiverID,
		Content:    in.Content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to send message: %w", err))
	}
	s.cache.Invalidate(ctx, caller.UserID, receiverID)

	if err := s.db.WithContext(ctx).Preload("Sender").Preload("Receiver").First(&msg, msg.ID).Error; err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to load message: %w", err))
	}
	ResolveAvatarURL(s.images, &msg.Sender)
	ResolveAvatarURL(s.images, &msg.Receiver)
	return &msg, nil
}

type conversationRow struct {
	RepairID      uint
	LastMessageID uint
	Unread        int64
}

// Conversations summarizes every repair thread the caller takes part in,
// most recently active first
func (s *MessageService) Conversations(ctx context.Context, caller *Identity) ([]models.ConversationSummary, error) {
	cached, version, ok := s.cache.Get(ctx, caller.UserID)
	if ok {
		return cached, nil
	}

	summaries, err := s.aggregate(ctx, caller.UserID)
	if err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to load conversations: %w", err))
	}

	s.cache.Set(ctx, caller.UserID, version, summaries)
	return summaries, nil
}

func (s *MessageService) aggregate(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	var rows []conversationRow
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Select("repair_id, MAX(id) AS last_message_id, "+
			"SUM(CASE WHEN receiver_id = ? AND is_read = ? THEN 1 ELSE 0 END) AS unread", userID, false).
		Where("(sender_id = ? OR receiver_id = ?)", userID, userID).
		Group("repair_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := []models.ConversationSummary{}
	if len(rows) == 0 {
		return summaries, nil
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].LastMessageID > rows[j].LastMessageID
	})

	messageIDs := make([]uint, 0, len(rows))
	repairIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		messageIDs = append(messageIDs, row.LastMessageID)
		repairIDs = append(repairIDs, row.RepairID)
	}

	var lastMessages []models.Message
	if err := s.db.WithContext(ctx).Find(&lastMessages, messageIDs).Error; err != nil {
		return nil, err
	}
	messagesByID := make(map[uint]models.Message, len(lastMessages))
	for _, msg := range lastMessages {
		messagesByID[msg.ID] = msg
	}

	var repairs []models.Repair
	if err := s.db.WithContext(ctx).Preload("User").Preload("Technician").Find(&repairs, repairIDs).Error; err != nil {
		return nil, err
	}
	repairsByID := make(map[uint]*models.Repair, len(repairs))
	for i := range repairs {
		ResolveAvatarURL(s.images, &repairs[i].User)
		ResolveAvatarURL(s.images, repairs[i].Technician)
		repairsByID[repairs[i].ID] = &repairs[i]
	}

	for _, row := range rows {
		repair, ok := repairsByID[row.RepairID]
		if !ok {
			// deleted repairs drop out of the list
			continue
		}
		last := messagesByID[row.LastMessageID]

		summary := models.ConversationSummary{
			RepairID: repair.ID,
			Repair: models.RepairSummary{
				ID:     repair.ID,
				Title:  repair.Title,
				Status: repair.Status,
			},
			Customer:        models.NewParticipant(&repair.User),
			Technician:      models.NewParticipant(repair.Technician),
			LastMessage:     last.Content,
			LastMessageTime: last.CreatedAt,
			UnreadCount:     row.Unread,
		}
		if repair.UserID == userID {
			summary.OtherParty = summary.Technician
		} else {
			summary.OtherParty = summary.Customer
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTime.After(summaries[j].LastMessageTime)
	})
	return summaries, nil
}

func (s *MessageService) participantRepair(ctx context.Context, caller *Identity, repairID uint) (*models.Repair, error) {
	var repair models.Repair
	if err := s.db.WithContext(ctx).First(&repair, repairID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Repair not found")
		}
		return nil, utils.Internal(err)
	}
	if !repair.IsParticipant(caller.UserID) {
		return nil, utils.Forbidden("Forbidden")
	}
	return &repair, nil
}
