package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BcryptCost is the work factor for stored password hashes
const BcryptCost = 12

// inputValidator reads the same `binding` tags gin validates request bodies with
var inputValidator = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// RegisterInput is the sign-up form
type RegisterInput struct {
	Email           string   `json:"email" binding:"required,min=5,max=100"`
	Username        string   `json:"username" binding:"required,min=3,max=50"`
	Password        string   `json:"password" binding:"required,min=8,max=100"`
	ConfirmPassword string   `json:"confirmPassword" binding:"required,eqfield=Password"`
	Role            string   `json:"role"`
	Phone           string   `json:"phone"`
	Skills          []string `json:"skills"`
}

// LoginInput is the sign-in form
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput is a partial profile update; nil fields are left unchanged
type ProfileInput struct {
	Username        *string   `json:"username"`
	Email           *string   `json:"email"`
	Phone           *string   `json:"phone"`
	Bio             *string   `json:"bio"`
	Certifications  *string   `json:"certifications"`
	Skills          *[]string `json:"skills"`
	CurrentPassword string    `json:"currentPassword"`
	NewPassword     string    `json:"newPassword"`
}

// AuthResult is a signed-in user and their session token
type AuthResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AuthService handles accounts, sessions and profiles
type AuthService struct {
	db     *gorm.DB
	tokens *TokenService
	images ImageService
}

// NewAuthService creates an auth service
func NewAuthService(db *gorm.DB, tokens *TokenService, images ImageService) *AuthService {
	if images == nil {
		images = NoopImageService{}
	}
	return &AuthService{db: db, tokens: tokens, images: images}
}

// Register creates a customer or technician account and signs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if err := inputValidator.Struct(in); err != nil {
		return nil, utils.BadRequest(utils.FormatValidationError(err))
	}

	taken, err := s.emailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if taken {
		return nil, utils.BadRequest("User already exists")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         models.RoleCustomer,
	}
	if in.Role == models.RoleTechnician {
		user.Role = models.RoleTechnician
		user.Phone = strings.TrimSpace(in.Phone)
		user.Skills = cleanSkills(in.Skills)
	}
	user.AvatarRef = AvatarForNewUser(ctx, s.images, user.Username)

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// a concurrent sign-up may have won the unique index
		if taken, checkErr := s.emailTaken(ctx, in.Email, 0); checkErr == nil && taken {
			return nil, utils.BadRequest("User already exists")
		}
		return nil, utils.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return s.signIn(&user)
}

// Login verifies credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, utils.BadRequest("Missing credentials")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(in.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.Unauthorized("Invalid credentials")
		}
		return nil, utils.Internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, utils.Unauthorized("Invalid credentials")
	}

	return s.signIn(&user)
}

// GetUser loads a user with its avatar URL resolved
func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("User not found")
		}
		return nil, utils.Internal(err)
	}
	ResolveAvatarURL(s.images, &user)
	return &user, nil
}

// UpdateProfile applies a partial profile update, including an optional password change
func (s *AuthService) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return nil, utils.BadRequest("Current password required")
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
			return nil, utils.BadRequest("Current password is incorrect")
		}
		if utf8.RuneCountInString(in.NewPassword) < 8 {
			return nil, utils.BadRequest("New password must be at least 8 characters")
		}
		hash, err := hashPassword(in.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != "" && username != user.Username {
			if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
				return nil, utils.BadRequest("Username must be 3-50 characters")
			}
			user.Username = username
		}
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != "" && email != user.Email {
			if n := utf8.RuneCountInString(email); n < 5 || n > 100 {
				return nil, utils.BadRequest("Email must be 5-100 characters")
			}
			taken, err := s.emailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, utils.Internal(err)
			}
			if taken {
				return nil, utils.BadRequest("Email already in use")
			}
			user.Email = email
		}
	}

	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Certifications != nil {
		user.Certifications = *in.Certifications
	}
	if in.Skills != nil && user.Role == models.RoleTechnician {
		user.Skills = cleanSkills(*in.Skills)
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to save profile: %w", err))
	}

	ResolveAvatarURL(s.images, user)
	return user, nil
}

// UpdateAvatar uploads a new avatar and replaces the user's current one
func (s *AuthService) UpdateAvatar(ctx context.Context, id uint, fileHeader *multipart.FileHeader) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	ref, err := s.images.UploadAvatar(ctx, id, fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		var appErr *utils.AppError
		if errors.As(err, &uploadErr) || errors.As(err, &appErr) {
			return nil, err
		}
		return nil, utils.Internal(err)
	}

	previous := user.AvatarRef
	if err := s.db.WithContext(ctx).Model(user).Update("avatar_ref", ref).Error; err != nil {
		return nil, utils.Internal(fmt.Errorf("failed to save avatar: %w", err))
	}
	user.AvatarRef = ref

	// library avatars are shared, only the user's own uploads are removed
	if previous != ref && utils.IsUserAvatar(previous, id) {
		if err := s.images.DeleteImage(ctx, previous); err != nil {
			slog.WarnContext(ctx, "failed to delete previous avatar", "user_id", id, "error", err)
		}
	}

	ResolveAvatarURL(s.images, user)
	return user, nil
}

// RandomAvatarURL returns a loadable URL for a random library avatar or a generated one
func (s *AuthService) RandomAvatarURL(ctx context.Context, name string) string {
	if name == "" {
		name = "User"
	}
	ref := AvatarForNewUser(ctx, s.images, name)
	url, err := s.images.GetImageURL(ref)
	if err != nil || url == "" {
		return FallbackAvatarURL(name)
	}
	return url
}

func (s *AuthService) signIn(user *models.User) (*AuthResult, error) {
	if s.tokens == nil {
		return nil, utils.Internal(ErrMissingKey)
	}
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, utils.Internal(err)
	}
	ResolveAvatarURL(s.images, user)
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) emailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", utils.BadRequest("Password must be at most 72 bytes")
		}
		return "", utils.Internal(fmt.Errorf("failed to hash password: %w", err))
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cleanSkills(skills []string) models.StringList {
	out := models.StringList{}
	for _, skill := range skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			out = append(out, skill)
		}
	}
	return out
}
