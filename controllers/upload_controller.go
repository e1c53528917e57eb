package controllers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/repair-hub-api/utils"
)

// GetUploadedImage handles GET /uploads/:filename - serves avatars users uploaded to the local image provider
func GetUploadedImage(c *gin.Context) {
	serveImage(c, filepath.Join(utils.UploadDir, utils.UserUploadsDir))
}

// GetLibraryAvatar handles GET /avatars/:filename - serves the shared avatar library
func GetLibraryAvatar(c *gin.Context) {
	serveImage(c, utils.UploadDir)
}

func serveImage(c *gin.Context, dir string) {
	filename := c.Param("filename")

	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Filename is required"})
		return
	}

	// Prevent directory traversal
	if !utils.IsSafeFilename(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}

	if !utils.IsAllowedImageExt(filepath.Ext(filename)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image type"})
		return
	}

	filePath := filepath.Join(dir, filename)
	if info, err := os.Stat(filePath); err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	c.Header("Content-Type", utils.ContentTypeFor(filename))
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(filePath)
}
