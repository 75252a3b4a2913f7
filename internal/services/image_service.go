package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartbite/pkg/result"

	"github.com/sirupsen/logrus"
)

const msgUploadFailed = "Image upload failed"

// ImageUploader stores image bytes and returns a public URL.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, content []byte, publicID string) (string, error)
}

// ImageRef points at a local image. Name is the display name used to derive
// the public id; when empty the base name of Path is used.
type ImageRef struct {
	Path string
	Name string
}

// ImageService uploads local images to the image host.
type ImageService struct {
	uploader ImageUploader
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewImageService creates a new ImageService.
func NewImageService(uploader ImageUploader, logger logrus.FieldLogger) *ImageService {
	return &ImageService{uploader: uploader, logger: logger, now: time.Now}
}

// Upload reads ref and uploads it in the background. The channel delivers
// exactly one result carrying the image URL and is then closed.
func (s *ImageService) Upload(ctx context.Context, ref ImageRef) <-chan result.Result[string] {
	return result.Go(ctx, func(ctx context.Context) result.Result[string] {
		log := s.logger.WithField("path", ref.Path)

		if s.uploader == nil {
			log.Error("image uploads are not configured")
			return result.Fail[string](msgUploadFailed)
		}
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			log.WithError(err).Error("failed to read image")
			return result.Fail[string](msgUploadFailed)
		}

		name := ref.Name
		if name == "" {
			name = filepath.Base(ref.Path)
		}
		url, err := s.uploader.Upload(ctx, name, data, s.publicID(name))
		if err != nil {
			log.WithError(err).Error("failed to upload image")
			return result.Fail[string](msgUploadFailed)
		}
		if url == "" {
			return result.Fail[string](msgUploadFailed)
		}
		return result.OK("Image uploaded", url)
	})
}

// publicID is the display name without its extension, or a timestamped
// fallback when there is no usable name.
func (s *ImageService) publicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fmt.Sprintf("uploaded_image_%d", s.now().UnixMilli())
	}
	return base
}

// UploadAndWait is Upload for callers that block on the result.
func (s *ImageService) UploadAndWait(ctx context.Context, ref ImageRef) result.Result[string] {
	return <-s.Upload(ctx, ref)
}
