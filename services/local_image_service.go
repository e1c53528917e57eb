package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/kendall-kelly/repair-hub-api/utils"
)

// URL prefixes for avatars kept on disk
const (
	LocalUploadsPath = "/uploads/"
	LocalLibraryPath = "/avatars/"
)

// LocalImageService keeps avatars on the local filesystem.
// Library images sit directly in dir, user uploads in dir/uploads.
type LocalImageService struct {
	dir string
}

// NewLocalImageService creates a local image service rooted at dir
func NewLocalImageService(dir string) *LocalImageService {
	utils.UploadDir = dir
	return &LocalImageService{dir: dir}
}

// UploadAvatar validates and writes the avatar to disk
func (s *LocalImageService) UploadAvatar(_ context.Context, userID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	name := utils.AvatarObjectName(userID, fileHeader.Filename)
	if err := utils.SaveUploadedFile(fileHeader, s.uploadsDir(), name); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return LocalUploadsPath + name, nil
}

// GetImageURL returns the reference unchanged, it is already a path on this server
func (s *LocalImageService) GetImageURL(ref string) (string, error) {
	return ref, nil
}

func (s *LocalImageService) uploadsDir() string {
	return filepath.Join(s.dir, utils.UserUploadsDir)
}

// RandomAvatar picks one of the library images, never a user upload
func (s *LocalImageService) RandomAvatar(_ context.Context) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to list avatars: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && utils.IsAllowedImageExt(filepath.Ext(entry.Name())) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}

	return LocalLibraryPath + names[rand.IntN(len(names))], nil
}

// DeleteImage removes an avatar written by UploadAvatar; library images are left alone
func (s *LocalImageService) DeleteImage(_ context.Context, ref string) error {
	name, ok := strings.CutPrefix(ref, LocalUploadsPath)
	if !ok || !utils.IsSafeFilename(name) {
		return nil
	}

	if err := os.Remove(filepath.Join(s.uploadsDir(), name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
