package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/kendall-kelly/repair-hub-api/utils"
)

// MockImageService is a mock implementation of ImageService for testing
type MockImageService struct {
	uploadedImages map[string][]byte
	library        []string
	mu             sync.RWMutex
}

// NewMockImageService creates a mock image service whose random avatar library holds library
func NewMockImageService(library ...string) *MockImageService {
	return &MockImageService{
		uploadedImages: make(map[string][]byte),
		library:        library,
	}
}

// SetAsMockForTesting sets this mock as the global image service instance for testing
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

// Put stores content under key as if it had been uploaded
func (m *MockImageService) Put(key string, content []byte) {
	m.mu.Lock()
	m.uploadedImages[key] = content
	m.mu.Unlock()
}

// UploadAvatar validates the file and keeps its content in memory
func (m *MockImageService) UploadAvatar(_ context.Context, userID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	imageKey := "avatars/uploads/" + utils.AvatarObjectName(userID, fileHeader.Filename)

	m.mu.Lock()
	m.uploadedImages[imageKey] = content
	m.mu.Unlock()

	return imageKey, nil
}

// GetImageURL returns a mock URL for stored keys; absolute URLs pass through
func (m *MockImageService) GetImageURL(ref string) (string, error) {
	if ref == "" || isAbsoluteURL(ref) {
		return ref, nil
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", ref), nil
}

// RandomAvatar returns the first library entry so tests stay deterministic
func (m *MockImageService) RandomAvatar(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.library) == 0 {
		return "", nil
	}
	return m.library[0], nil
}

// DeleteImage simulates deleting an image
func (m *MockImageService) DeleteImage(_ context.Context, ref string) error {
	m.mu.Lock()
	delete(m.uploadedImages, ref)
	m.mu.Unlock()
	return nil
}

// ImageExists checks if an image exists in mock storage
func (m *MockImageService) ImageExists(imageKey string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.uploadedImages[imageKey]
	return exists
}
