package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin/search"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/kendall-kelly/repair-hub-api/config"
	"github.com/kendall-kelly/repair-hub-api/utils"
)

// avatarTransformation crops library images to a 200px square and lets Cloudinary pick format and quality
const avatarTransformation = "c_fill,g_auto,h_200,w_200/q_auto,f_auto"

// CloudinaryImageService implements ImageService on Cloudinary.
// References are Cloudinary public IDs.
type CloudinaryImageService struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryImageService creates a Cloudinary-backed image service
func NewCloudinaryImageService(cfg *config.Config) (*CloudinaryImageService, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &CloudinaryImageService{cld: cld, folder: cfg.CloudinaryUploadFolder}, nil
}

// UploadAvatar validates the file and uploads it to the avatar folder
func (s *CloudinaryImageService) UploadAvatar(ctx context.Context, userID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	name := utils.AvatarObjectName(userID, fileHeader.Filename)
	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:    s.uploadsFolder(),
		PublicID:  strings.TrimSuffix(name, filepath.Ext(name)),
		Overwrite: api.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}

	return resp.PublicID, nil
}

func (s *CloudinaryImageService) uploadsFolder() string {
	return s.folder + "/" + utils.UserUploadsDir
}

// libraryExpression matches images directly in the avatar folder, so user uploads are excluded
func (s *CloudinaryImageService) libraryExpression() string {
	return fmt.Sprintf(`folder="%s" AND resource_type:image`, s.folder)
}

// GetImageURL builds the delivery URL for a public ID; absolute URLs pass through
func (s *CloudinaryImageService) GetImageURL(ref string) (string, error) {
	if ref == "" || isAbsoluteURL(ref) {
		return ref, nil
	}

	image, err := s.cld.Image(ref)
	if err != nil {
		return "", fmt.Errorf("failed to build image URL: %w", err)
	}
	image.Transformation = avatarTransformation

	url, err := image.String()
	if err != nil {
		return "", fmt.Errorf("failed to build image URL: %w", err)
	}
	return url, nil
}

// RandomAvatar picks one image from the avatar folder's library
func (s *CloudinaryImageService) RandomAvatar(ctx context.Context) (string, error) {
	result, err := s.cld.Admin.Search(ctx, search.Query{
		Expression: s.libraryExpression(),
		MaxResults: 100,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary search failed: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary search failed: %s", result.Error.Message)
	}
	var library []string
	for _, asset := range result.Assets {
		if !strings.HasPrefix(asset.PublicID, s.uploadsFolder()+"/") {
			library = append(library, asset.PublicID)
		}
	}
	if len(library) == 0 {
		return "", nil
	}

	picked := library[rand.IntN(len(library))]
	slog.DebugContext(ctx, "assigned library avatar", "public_id", picked)
	return picked, nil
}

// DeleteImage destroys an uploaded avatar; library images are never destroyed
func (s *CloudinaryImageService) DeleteImage(ctx context.Context, ref string) error {
	if !strings.HasPrefix(ref, s.uploadsFolder()+"/") {
		return nil
	}

	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:   ref,
		Invalidate: api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image from cloudinary: %w", err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary destroy returned result: %s", resp.Result)
	}

	return nil
}
