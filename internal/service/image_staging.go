package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"postguard/internal/models"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageStagingDir      = "/tmp/postguard/staging"
	DefaultImageMaxUploadSizeMB = 10
)

// StagedImage is an uploaded image validated and written to local disk so
// the classifier can reference it. Cleanup must be called once the check is
// done.
type StagedImage struct {
	Ref    string
	path   string
	Width  int
	Height int
	Format string
}

// Cleanup removes the staged file. Safe to call more than once.
func (s *StagedImage) Cleanup() {
	if s.path != "" {
		_ = os.Remove(s.path)
		s.path = ""
	}
}

// ImageStagingService validates uploaded image payloads and stages them for
// classification. Unreadable payloads are malformed content, never an
// internal fault.
type ImageStagingService struct {
	stagingDir         string
	maxUploadSizeBytes int64
}

// NewImageStagingService creates a staging service writing under stagingDir.
func NewImageStagingService(stagingDir string, maxUploadSizeMB int) *ImageStagingService {
	if stagingDir == "" {
		stagingDir = DefaultImageStagingDir
	}
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultImageMaxUploadSizeMB
	}
	return &ImageStagingService{
		stagingDir:         stagingDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// Stage validates the payload and writes it to a local file, returning a
// file reference the image classifier accepts.
func (s *ImageStagingService) Stage(content []byte, contentType string) (*StagedImage, error) {
	if len(content) == 0 {
		return nil, models.NewMalformedContentError("Empty image upload")
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return nil, models.NewMalformedContentError(
			fmt.Sprintf("Image too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewMalformedContentError("Unsupported image type")
	}
	if provided := normalizeContentType(contentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, detectedType) {
		return nil, models.NewMalformedContentError("Image content type mismatch")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewMalformedContentError("Unreadable image file")
	}

	path := filepath.Join(s.stagingDir, uuid.NewString()+extensionFor(format))
	if err := writeBytesToFile(path, content); err != nil {
		return nil, models.NewInternalError(err)
	}

	return &StagedImage{
		Ref:    "file://" + path,
		path:   path,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

func extensionFor(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return ".jpg"
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	case "webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
