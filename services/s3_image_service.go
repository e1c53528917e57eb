package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"mime/multipart"
	"path"
	"strings"

	"github.com/kendall-kelly/repair-hub-api/utils"
)

// S3ImageService implements ImageService using AWS S3 for storage
type S3ImageService struct {
	s3Service S3Interface
	prefix    string
}

// NewS3ImageService stores avatars under prefix in the bucket behind s3Service
func NewS3ImageService(s3Service S3Interface, prefix string) *S3ImageService {
	return &S3ImageService{s3Service: s3Service, prefix: prefix}
}

// UploadAvatar validates and uploads an avatar to S3
func (s *S3ImageService) UploadAvatar(ctx context.Context, userID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key := s.uploadsPrefix() + utils.AvatarObjectName(userID, fileHeader.Filename)
	if err := s.s3Service.UploadFile(ctx, key, fileHeader); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return key, nil
}

func (s *S3ImageService) uploadsPrefix() string {
	return s.prefix + utils.UserUploadsDir + "/"
}

// GetImageURL presigns S3 keys; absolute URLs are returned as stored
func (s *S3ImageService) GetImageURL(ref string) (string, error) {
	if ref == "" || isAbsoluteURL(ref) {
		return ref, nil
	}

	url, err := s.s3Service.GetPresignedURL(context.Background(), ref)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}

	return url, nil
}

// RandomAvatar picks a library image stored directly under the avatar prefix.
// User uploads live in a sub-folder and are never handed out.
func (s *S3ImageService) RandomAvatar(ctx context.Context) (string, error) {
	keys, err := s.s3Service.ListKeys(ctx, s.prefix)
	if err != nil {
		return "", err
	}

	dir := strings.TrimSuffix(s.prefix, "/")
	if dir == "" {
		dir = "."
	}

	var library []string
	for _, key := range keys {
		if path.Dir(key) == dir && utils.IsAllowedImageExt(path.Ext(key)) {
			library = append(library, key)
		}
	}
	if len(library) == 0 {
		return "", nil
	}

	return library[rand.IntN(len(library))], nil
}

// DeleteImage deletes an uploaded avatar from S3; library keys are never deleted
func (s *S3ImageService) DeleteImage(ctx context.Context, ref string) error {
	if !strings.HasPrefix(ref, s.uploadsPrefix()) {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}
