package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"
	"os"
	"path/filepath"

	"snapfeed/internal/config"
	"snapfeed/internal/middleware"
	"snapfeed/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultImageUploadDir       = "/tmp/snapfeed/uploads/images"
	DefaultImageMaxUploadSizeMB = 10
	ThumbnailMaxSize            = 320
	ThumbnailWebPQuality        = 75
)

// MediaURLPrefix is where stored attachments are served from.
const MediaURLPrefix = "/media/i"

// AttachInput is an uploaded file to be attached to a post.
type AttachInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Attachment describes a stored image attachment.
type Attachment struct {
	Hash      string `json:"hash"`
	URL       string `json:"url"`
	ThumbURL  string `json:"thumb_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
}

// AttachmentService validates uploaded images and stores them
// content-addressed on disk, with a webp thumbnail alongside the original.
type AttachmentService struct {
	uploadDir          string
	maxUploadSizeBytes int64
}

// NewAttachmentService returns an AttachmentService configured from cfg.
func NewAttachmentService(cfg *config.Config) *AttachmentService {
	uploadDir := DefaultImageUploadDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &AttachmentService{
		uploadDir:          uploadDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// UploadDir returns the directory attachments are written to.
func (s *AttachmentService) UploadDir() string {
	return s.uploadDir
}

// Attach validates and stores the uploaded image. All failures are
// validation errors: an attachment that cannot be stored rejects the
// submitting request's payload rather than failing the process.
func (s *AttachmentService) Attach(in AttachInput) (*Attachment, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	ext, ok := imageExtensions[detectedType]
	if !ok {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	bounds := decoded.Bounds()

	sum := sha256.Sum256(in.Content)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, models.NewValidationError("Unable to store uploaded file")
	}

	original := filepath.Join(s.uploadDir, hash+ext)
	if err := os.WriteFile(original, in.Content, 0o644); err != nil {
		return nil, models.NewValidationError("Unable to store uploaded file")
	}

	if err := s.writeThumbnail(decoded, hash); err != nil {
		// The original is already durable; a missing thumbnail only degrades
		// list views, so log and continue.
		middleware.Logger.Warn("thumbnail generation failed", "hash", hash, "error", err.Error())
	}

	middleware.AttachmentBytes.Observe(float64(len(in.Content)))

	return &Attachment{
		Hash:      hash,
		URL:       fmt.Sprintf("%s/%s%s", MediaURLPrefix, hash, ext),
		ThumbURL:  fmt.Sprintf("%s/%s_thumb.webp", MediaURLPrefix, hash),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		SizeBytes: int64(len(in.Content)),
		MimeType:  detectedType,
	}, nil
}

func (s *AttachmentService) writeThumbnail(src image.Image, hash string) error {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > ThumbnailMaxSize || h > ThumbnailMaxSize {
		scale := float64(ThumbnailMaxSize) / float64(max(w, h))
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Quality: ThumbnailWebPQuality}); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(s.uploadDir, hash+"_thumb.webp"), buf.Bytes(), 0o644)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}
