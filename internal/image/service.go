package image

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/pixelift/service/internal/enhance"
	"github.com/pixelift/service/internal/storage"
)

// Store is the image persistence the service needs; satisfied by *Repository.
type Store interface {
	Create(ctx context.Context, img *Image) (*Image, error)
	FindByFileAndToken(ctx context.Context, filePath, token string) (*Image, error)
	ListByUser(ctx context.Context, userID string) ([]Image, error)
	ListAll(ctx context.Context) ([]Image, error)
	SoftDelete(ctx context.Context, id, userID string) error
}

// Service runs the upload-enhance-persist pipeline and the download lookup.
type Service struct {
	store    Store
	files    storage.Storage
	provider enhance.Provider
	client   *http.Client
	scale    int
	timeout  time.Duration
}

// NewService creates an image Service. client is used to fetch the enhanced
// result from the provider's output URL; pass nil for http.DefaultClient.
func NewService(store Store, files storage.Storage, provider enhance.Provider, client *http.Client, scale int, timeout time.Duration) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{
		store:    store,
		files:    files,
		provider: provider,
		client:   client,
		scale:    scale,
		timeout:  timeout,
	}
}

// Enhance stores the upload, submits it to the provider, stores the enhanced
// result, and records it with a fresh download token. It returns the relative
// download URL. There is no retry and no cleanup of the original upload on
// failure; an orphaned file is preferable to losing the user's input.
func (s *Service) Enhance(ctx context.Context, userID *string, data []byte, originalName, contentType string) (string, error) {
	storedName := generateFilename(originalName)
	if err := s.files.Save(ctx, storedName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	payload, err := enhance.PreparePayload(data)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resultURL, err := s.provider.Enhance(ctx, payload, s.scale)
	if err != nil {
		return "", fmt.Errorf("enhance: %w", err)
	}

	enhancedName := "enhanced-" + storedName
	if err := s.fetchToStorage(ctx, resultURL, enhancedName); err != nil {
		return "", err
	}

	token, err := newDownloadToken()
	if err != nil {
		return "", err
	}

	img, err := s.store.Create(ctx, &Image{
		UserID:        userID,
		Type:          TypeEnhanced,
		FilePath:      enhancedName,
		OriginalName:  originalName,
		DownloadToken: token,
	})
	if err != nil {
		return "", err
	}

	return DownloadURL(img), nil
}

// Download authorizes by exact (path, token) match and opens the stored file.
// ErrNotFound means the link is invalid; storage.ErrNotExist means the record
// exists but the file is gone from disk.
func (s *Service) Download(ctx context.Context, filePath, token string) (*Image, io.ReadCloser, error) {
	img, err := s.store.FindByFileAndToken(ctx, filePath, token)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, img.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return img, rc, nil
}

// ListMine returns the user's non-deleted images, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]Image, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListAll returns every image record, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Image, error) {
	return s.store.ListAll(ctx)
}

// SoftDelete marks the user's image as deleted; the file stays on disk.
func (s *Service) SoftDelete(ctx context.Context, id, userID string) error {
	return s.store.SoftDelete(ctx, id, userID)
}

// fetchToStorage streams the provider's result URL into storage under key.
func (s *Service) fetchToStorage(ctx context.Context, resultURL, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return fmt.Errorf("build result request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch result: unexpected status %d", resp.StatusCode)
	}

	if err := s.files.Save(ctx, key, resp.Body, resp.ContentLength, resp.Header.Get("Content-Type")); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

// DownloadURL builds the relative token-qualified link for an image record.
func DownloadURL(img *Image) string {
	return fmt.Sprintf("/api/images/download/%s?token=%s", url.PathEscape(img.FilePath), img.DownloadToken)
}

// generateFilename qualifies the original name with time and randomness so two
// uploads of the same file never collide.
func generateFilename(originalName string) string {
	suffix := make([]byte, 8)
	_, _ = rand.Read(suffix)
	base := filepath.Base(originalName)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), hex.EncodeToString(suffix), base)
}

// newDownloadToken returns 32 cryptographically random bytes, hex-encoded.
func newDownloadToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate download token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
