package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/models"
	"github.com/kendall-kelly/repair-hub-api/utils"
)

// ImageService handles avatar upload, URL resolution, the random avatar library and deletion
type ImageService interface {
	// UploadAvatar validates and stores an avatar, returns the reference to persist on the user
	UploadAvatar(ctx context.Context, userID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL turns a stored reference into a URL a browser can load
	GetImageURL(ref string) (string, error)

	// RandomAvatar picks a reference from the provider's avatar library, "" when the library is empty
	RandomAvatar(ctx context.Context) (string, error)

	// DeleteImage removes a previously uploaded avatar
	DeleteImage(ctx context.Context, ref string) error
}

var fallbackColors = []string{"3b82f6", "10b981", "f59e0b", "ef4444", "8b5cf6", "ec4899"}

var imageServiceInstance ImageService = NoopImageService{}

// InitImageService builds the image service selected by IMAGE_PROVIDER
func InitImageService(ctx context.Context, cfg *config.Config) (ImageService, error) {
	var (
		svc ImageService
		err error
	)

	switch cfg.ImageProvider {
	case config.ImageProviderS3:
		var s3Service S3Interface
		s3Service, err = InitS3Service(ctx, cfg)
		if err == nil {
			svc = NewS3ImageService(s3Service, cfg.AWSAvatarPrefix)
		}
	case config.ImageProviderCloudinary:
		svc, err = NewCloudinaryImageService(cfg)
	case config.ImageProviderLocal:
		svc = NewLocalImageService(cfg.UploadDir)
	default:
		svc = NoopImageService{}
	}
	if err != nil {
		return nil, err
	}

	imageServiceInstance = svc
	return svc, nil
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// FallbackAvatarURL builds a generated initials avatar for username
func FallbackAvatarURL(username string) string {
	color := fallbackColors[rand.IntN(len(fallbackColors))]
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&size=200&background=%s&color=fff",
		url.QueryEscape(username), color)
}

// AvatarForNewUser returns a library avatar or, failing that, a generated one
func AvatarForNewUser(ctx context.Context, images ImageService, username string) string {
	if images != nil {
		ref, err := images.RandomAvatar(ctx)
		if err == nil && ref != "" {
			return ref
		}
		if err != nil {
			slog.WarnContext(ctx, "random avatar lookup failed, using generated avatar", "error", err)
		}
	}
	return FallbackAvatarURL(username)
}

// isAbsoluteURL reports whether ref is already a loadable URL rather than a storage key
func isAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "/")
}

// NoopImageService is used when no image provider is configured.
// Uploads are refused and every new user gets a generated avatar.
type NoopImageService struct{}

func (NoopImageService) UploadAvatar(context.Context, uint, *multipart.FileHeader) (string, error) {
	return "", utils.NewAppError(http.StatusBadRequest, "Avatar uploads are not enabled", utils.ErrBadRequest)
}

func (NoopImageService) GetImageURL(ref string) (string, error) {
	if isAbsoluteURL(ref) {
		return ref, nil
	}
	return "", nil
}

func (NoopImageService) RandomAvatar(context.Context) (string, error) {
	return "", nil
}

func (NoopImageService) DeleteImage(context.Context, string) error {
	return nil
}

// ResolveAvatarURL fills user.AvatarURL from its stored reference
func ResolveAvatarURL(images ImageService, user *models.User) {
	if user == nil || user.AvatarRef == "" {
		return
	}
	url, err := images.GetImageURL(user.AvatarRef)
	if err != nil {
		slog.Warn("failed to resolve avatar URL", "user_id", user.ID, "error", err)
		return
	}
	user.AvatarURL = url
}
