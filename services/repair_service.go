package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/utils"
	"gorm.io/gorm"
)

// ListLimit caps every repair list
const ListLimit = 50

// CreateRepairInput is the new repair request form
type CreateRepairInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateRepairInput is a partial repair update; nil fields are left unchanged
type UpdateRepairInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Rating      *int    `json:"rating"`
	Review      *string `json:"review"`
}

// RepairService handles repair requests and the technician job board
type RepairService struct {
	db     *gorm.DB
	cache  ConversationCache
	images ImageService
}

// NewRepairService creates a repair service
func NewRepairService(db *gorm.DB, cache ConversationCache, images ImageService) *RepairService {
	if cache == nil {
		cache = NoopConversationCache{}
	}
	if images == nil {
		images = NoopImageService{}
	}
	return &RepairService{db: db, cache: cache, images: images}
}

func (s *RepairService) withPeople(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("User").Preload("Technician")
}

// List returns the caller's repairs: assigned ones for technicians, owned ones
// for customers and every repair for admins
func (s *RepairService) List(ctx context.Context, caller *Identity) ([]models.Repair, error) {
	query := s.withPeople(ctx)
	switch caller.Role {
	case models.RoleAdmin:
	case models.RoleTechnician:
		query = query.Where("technician_id = ?", caller.UserID)
	default:
		query = query.Where("user_id = ?", caller.UserID)
	}

	repairs := []models.Repair{}
	if err := query.Order("created_at DESC").Order("id DESC").Limit(ListLimit).Find(&repairs).Error; err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to list repairs: %w", err))
	}
	s.resolveAvatars(repairs)
	return repairs, nil
}

// Available returns unclaimed pending repairs, newest first
func (s *RepairService) Available(ctx context.Context, caller *Identity) ([]models.Repair, error) {
	if !caller.CanWorkRepairs() {
		return nil, utils.Forbidden("Forbidden - Technician access required")
	}

	repairs := []models.Repair{}
	err := s.db.WithContext(ctx).Preload("User").
		Where("technician_id IS NULL AND status = ?", models.StatusPending).
		Order("created_at DESC").Order("id DESC").
		Limit(ListLimit).
		Find(&repairs).Error
	if err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to list available repairs: %w", err))
	}
	s.resolveAvatars(repairs)
	return repairs, nil
}

// Create opens a new pending repair owned by the caller
func (s *RepairService) Create(ctx context.Context, caller *Identity, in CreateRepairInput) (*models.Repair, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, utils.BadRequest("Missing required fields")
	}

	repair := models.Repair{
		Title:       title,
		Description: description,
		Status:      models.StatusPending,
		UserID:      caller.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&repair).Error; err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to create repair: %w", err))
	}

	slog.InfoContext(ctx, "repair created", "repair_id", repair.ID, "user_id", caller.UserID)
	return s.load(ctx, repair.ID)
}

// Get returns a repair the caller may see. Technicians may also look at
// unclaimed pending repairs before claiming them.
func (s *RepairService) Get(ctx context.Context, caller *Identity, id uint) (*models.Repair, error) {
	repair, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	visible := caller.IsAdmin() || repair.IsParticipant(caller.UserID) ||
		(caller.CanWorkRepairs() && repair.TechnicianID == nil && repair.Status == models.StatusPending)
	if !visible {
		return nil, utils.Forbidden("Forbidden")
	}
	return repair, nil
}

// Claim assigns an unclaimed pending repair to the calling technician.
// The claim is a single conditional update, so concurrent claims have one winner.
func (s *RepairService) Claim(ctx context.Context, caller *Identity, id uint) (*models.Repair, error) {
	if !caller.CanWorkRepairs() {
		return nil, utils.Forbidden("Forbidden - Technician access required")
	}

	result := s.db.WithContext(ctx).Model(&models.Repair{}).
		Where("id = ? AND technician_id IS NULL AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"technician_id": caller.UserID,
			"status":        models.StatusAssigned,
		})
	if result.Error != nil {
		return nil, utils.Internal(fmt.Errorf("failed to claim repair: %w", result.Error))
	}

	if result.RowsAffected == 0 {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.TechnicianID != nil {
			return nil, utils.BadRequest("Repair already claimed")
		}
		return nil, utils.BadRequest("Repair is no longer available")
	}

	repair, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "repair claimed", "repair_id", id, "technician_id", caller.UserID)
	s.sendClaimMessage(ctx, caller, repair)
	return repair, nil
}

func (s *RepairService) sendClaimMessage(ctx context.Context, caller *Identity, repair *models.Repair) {
	name := "A technician"
	if repair.Technician != nil && repair.Technician.Username != "" {
		name = repair.Technician.Username
	}

	content := fmt.Sprintf("%s has accepted your repair request for \"%s\". I will review the details and get back to you shortly!",
		name, repair.Title)
	msg := models.Message{
		RepairID:   repair.ID,
		SenderID:   caller.UserID,
		ReceiverID: repair.UserID,
		Content:    content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		slog.ErrorContext(ctx, "failed to send claim message", "repair_id", repair.ID, "error", err)
		return
	}
	s.cache.Invalidate(ctx, caller.UserID, repair.UserID)
}

// Update applies a partial update. Status changes follow the repair
// lifecycle and ratings may only be given once by the owner.
func (s *RepairService) Update(ctx context.Context, caller *Identity, id uint, in UpdateRepairInput) (*models.Repair, error) {
	repair, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := repair.UserID == caller.UserID
	if !isOwner && !repair.IsTechnician(caller.UserID) && !caller.IsAdmin() {
		return nil, utils.Forbidden("Forbidden")
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, utils.BadRequest("Title cannot be empty")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return nil, utils.BadRequest("Description cannot be empty")
		}
		updates["description"] = description
	}

	status := repair.Status
	if in.Status != nil && *in.Status != repair.Status {
		if !models.IsValidStatus(*in.Status) {
			return nil, utils.BadRequest("Invalid status")
		}
		if !models.CanTransition(repair.Status, *in.Status) {
			return nil, utils.BadRequest(fmt.Sprintf("Cannot change status from %s to %s", repair.Status, *in.Status))
		}
		status = *in.Status
		updates["status"] = status
	}

	if in.Review != nil && in.Rating == nil {
		return nil, utils.BadRequest("A review must be given with a rating")
	}
	if in.Rating != nil {
		if !isOwner {
			return nil, utils.Forbidden("Only the owner can rate this repair")
		}
		if *in.Rating < 1 || *in.Rating > 5 {
			return nil, utils.BadRequest("Rating must be between 1 and 5")
		}
		if status != models.StatusCompleted {
			return nil, utils.BadRequest("Can only rate completed repairs")
		}
		if repair.Rating != nil {
			return nil, utils.BadRequest("You have already rated this repair")
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			// the lifecycle check above only holds if the status is still the one we loaded
			result := tx.Model(&models.Repair{}).
				Where("id = ? AND status = ?", id, repair.Status).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return utils.BadRequest("Repair was changed by someone else, please reload and try again")
			}
		}
		if in.Rating == nil {
			return nil
		}

		rated := map[string]interface{}{"rating": *in.Rating}
		if in.Review != nil {
			rated["review"] = strings.TrimSpace(*in.Review)
		}
		result := tx.Model(&models.Repair{}).
			Where("id = ? AND rating IS NULL AND status = ?", id, models.StatusCompleted).
			Updates(rated)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return utils.BadRequest("You have already rated this repair")
		}
		return nil
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, utils.Internal(fmt.Errorf("failed to update repair: %w", err))
	}

	if _, changed := updates["status"]; changed {
		slog.InfoContext(ctx, "repair status changed", "repair_id", id, "from", repair.Status, "to", status)
	}
	if len(updates) > 0 {
		s.invalidateParticipants(ctx, repair)
	}

	return s.load(ctx, id)
}

// Delete soft-deletes a repair; only its owner or an admin may do so
func (s *RepairService) Delete(ctx context.Context, caller *Identity, id uint) error {
	repair, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if repair.UserID != caller.UserID && !caller.IsAdmin() {
		return utils.Forbidden("Forbidden")
	}

	if err := s.db.WithContext(ctx).Delete(&models.Repair{}, id).Error; err != nil {
		return utils.Internal(fmt.Errorf("failed to delete repair: %w", err))
	}

	slog.InfoContext(ctx, "repair deleted", "repair_id", id, "by", caller.UserID)
	s.invalidateParticipants(ctx, repair)
	return nil
}

func (s *RepairService) load(ctx context.Context, id uint) (*models.Repair, error) {
	var repair models.Repair
	if err := s.withPeople(ctx).First(&repair, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Repair not found")
		}
		return nil, utils.Internal(err)
	}
	ResolveAvatarURL(s.images, &repair.User)
	ResolveAvatarURL(s.images, repair.Technician)
	return &repair, nil
}

func (s *RepairService) resolveAvatars(repairs []models.Repair) {
	for i := range repairs {
		ResolveAvatarURL(s.images, &repairs[i].User)
		ResolveAvatarURL(s.images, repairs[i].Technician)
	}
}

func (s *RepairService) invalidateParticipants(ctx context.Context, repair *models.Repair) {
	ids := []uint{repair.UserID}
	if repair.TechnicianID != nil {
		ids = append(ids, *repair.TechnicianID)
	}
	s.cache.Invalidate(ctx, ids...)
}
