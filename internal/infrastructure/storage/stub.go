package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/storefront/merchandising/internal/domain/catalog"
)

// StubMediaUploader keeps uploads in memory and hands out fake CDN URLs.
// Use it for local development and tests.
type StubMediaUploader struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

// NewStubMediaUploader creates a new StubMediaUploader
func NewStubMediaUploader() *StubMediaUploader {
	return &StubMediaUploader{
		BaseURL: "https://media.example.com",
		objects: make(map[string][]byte),
	}
}

// Upload validates the file like the S3 uploader and stores it in memory
func (s *StubMediaUploader) Upload(ctx context.Context, file catalog.MediaFile, kind catalog.MediaType) (string, error) {
	ext, err := checkMediaFile(file, kind, 0)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}

	key := objectKey("stub", kind, ext, time.Now())
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()

	return strings.TrimRight(s.BaseURL, "/") + "/" + key, nil
}

// Object returns the bytes stored for a URL produced by Upload
func (s *StubMediaUploader) Object(url string) ([]byte, bool) {
	key := strings.TrimPrefix(url, strings.TrimRight(s.BaseURL, "/")+"/")
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

var _ catalog.MediaUploader = (*StubMediaUploader)(nil)
