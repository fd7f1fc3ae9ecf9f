// Package storage stores placement media in S3-compatible object storage.
package storage

import (
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
)

// allowedContentTypes lists the accepted upload formats per media kind.
// SVG is excluded since it can carry script.
var allowedContentTypes = map[catalog.MediaType]map[string]string{
	catalog.MediaTypeImage: {
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
		"image/avif": ".avif",
	},
	catalog.MediaTypeVideo: {
		"video/mp4":       ".mp4",
		"video/webm":      ".webm",
		"video/quicktime": ".mov",
	},
}

// normalizeContentType strips parameters and lower-cases the media type
func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// checkMediaFile validates the upload and returns the file extension to store it under
func checkMediaFile(file catalog.MediaFile, kind catalog.MediaType, maxSize int64) (string, error) {
	allowed, ok := allowedContentTypes[kind]
	if !ok {
		return "", catalog.NewValidationError("Media type must be IMAGE or VIDEO")
	}
	if file.Body == nil {
		return "", catalog.NewValidationError("Media file is empty")
	}
	if maxSize > 0 && file.Size > maxSize {
		return "", catalog.NewValidationError("Media file exceeds %d bytes", maxSize)
	}
	contentType := normalizeContentType(file.ContentType)
	ext, ok := allowed[contentType]
	if !ok {
		return "", catalog.NewValidationError("Content type %q is not allowed for %s media", file.ContentType, kind)
	}
	return ext, nil
}

// objectKey builds a collision-free key such as placements/image/2026/10/<uuid>.png
func objectKey(prefix string, kind catalog.MediaType, ext string, now time.Time) string {
	return path.Join(prefix, strings.ToLower(string(kind)), now.UTC().Format("2006/01"), uuid.NewString()+ext)
}
