package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pixelift/service/internal/storage"
)

type memStore struct {
	images []Image
	nextID int
}

func (m *memStore) Create(_ context.Context, img *Image) (*Image, error) {
	m.nextID++
	stored := *img
	stored.ID = fmt.Sprintf("img-%d", m.nextID)
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	m.images = append(m.images, stored)
	return &stored, nil
}

func (m *memStore) FindByFileAndToken(_ context.Context, filePath, token string) (*Image, error) {
	for i := range m.images {
		if m.images[i].FilePath == filePath && m.images[i].DownloadToken == token {
			img := m.images[i]
			return &img, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]Image, error) {
	out := []Image{}
	for i := len(m.images) - 1; i >= 0; i-- {
		img := m.images[i]
		if img.UserID != nil && *img.UserID == userID && !img.Deleted {
			out = append(out, img)
		}
	}
	return out, nil
}

func (m *memStore) ListAll(_ context.Context) ([]Image, error) {
	out := make([]Image, 0, len(m.images))
	for i := len(m.images) - 1; i >= 0; i-- {
		out = append(out, m.images[i])
	}
	return out, nil
}

func (m *memStore) SoftDelete(_ context.Context, id, userID string) error {
	for i := range m.images {
		img := &m.images[i]
		if img.ID == id && img.UserID != nil && *img.UserID == userID {
			img.Deleted = true
			return nil
		}
	}
	return ErrNotFound
}

type fakeProvider struct {
	resultURL string
	err       error
	calls     int
	lastScale int
}

func (f *fakeProvider) Enhance(_ context.Context, _ string, scale int) (string, error) {
	f.calls++
	f.lastScale = scale
	return f.resultURL, f.err
}

func smallJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 32, 32)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// newTestService wires a Service against in-memory fakes and a result server.
func newTestService(t *testing.T, resultBody string) (*Service, *memStore, *fakeProvider) {
	t.Helper()
	files, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	resultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, resultBody)
	}))
	t.Cleanup(resultSrv.Close)

	store := &memStore{}
	provider := &fakeProvider{resultURL: resultSrv.URL + "/out.png"}
	svc := NewService(store, files, provider, resultSrv.Client(), 2, 5*time.Second)
	return svc, store, provider
}

func parseDownloadURL(t *testing.T, raw string) (filePath, token string) {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse download url %q: %v", raw, err)
	}
	const prefix = "/api/images/download/"
	if !strings.HasPrefix(u.Path, prefix) {
		t.Fatalf("download url %q missing %q prefix", raw, prefix)
	}
	return strings.TrimPrefix(u.Path, prefix), u.Query().Get("token")
}

func TestEnhance_RecordsAndReturnsTokenizedURL(t *testing.T) {
	svc, store, provider := newTestService(t, "enhanced bytes")

	downloadURL, err := svc.Enhance(context.Background(), nil, smallJPEG(t), "cat.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if provider.calls != 1 || provider.lastScale != 2 {
		t.Errorf("provider called %d times with scale %d", provider.calls, provider.lastScale)
	}

	filePath, token := parseDownloadURL(t, downloadURL)
	if !strings.HasPrefix(filePath, "enhanced-") || !strings.HasSuffix(filePath, "-cat.jpg") {
		t.Errorf("stored name %q", filePath)
	}
	if len(token) != 64 {
		t.Errorf("token %q is not 32 hex-encoded bytes", token)
	}

	if len(store.images) != 1 {
		t.Fatalf("expected one record, got %d", len(store.images))
	}
	rec := store.images[0]
	if rec.Type != TypeEnhanced || rec.FilePath != filePath || rec.OriginalName != "cat.jpg" || rec.DownloadToken != token {
		t.Errorf("record mismatch: %+v", rec)
	}

	img, rc, err := svc.Download(context.Background(), filePath, token)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "enhanced bytes" {
		t.Errorf("downloaded %q", data)
	}
	if img.OriginalName != "cat.jpg" {
		t.Errorf("original name %q", img.OriginalName)
	}
}

func TestEnhance_SameOriginalNameYieldsDistinctFilesAndTokens(t *testing.T) {
	svc, store, _ := newTestService(t, "enhanced")
	ctx := context.Background()
	data := smallJPEG(t)

	url1, err := svc.Enhance(ctx, nil, data, "cat.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("first Enhance: %v", err)
	}
	url2, err := svc.Enhance(ctx, nil, data, "cat.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("second Enhance: %v", err)
	}

	path1, token1 := parseDownloadURL(t, url1)
	path2, token2 := parseDownloadURL(t, url2)
	if path1 == path2 {
		t.Errorf("stored names collide: %q", path1)
	}
	if token1 == token2 {
		t.Errorf("download tokens collide")
	}
	if len(store.images) != 2 {
		t.Errorf("expected two records, got %d", len(store.images))
	}
}

func TestEnhance_ProviderFailureSurfaces(t *testing.T) {
	svc, store, provider := newTestService(t, "unused")
	provider.err = errors.New("model exploded")

	_, err := svc.Enhance(context.Background(), nil, smallJPEG(t), "cat.jpg", "image/jpeg")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.images) != 0 {
		t.Errorf("no record should be created on failure")
	}
}

func TestDownload_RequiresExactPathAndTokenMatch(t *testing.T) {
	svc, _, _ := newTestService(t, "enhanced")
	downloadURL, err := svc.Enhance(context.Background(), nil, smallJPEG(t), "cat.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	filePath, token := parseDownloadURL(t, downloadURL)

	cases := []struct {
		name      string
		path, tok string
	}{
		{"wrong token", filePath, strings.Repeat("ab", 32)},
		{"wrong path", "enhanced-other.jpg", token},
		{"both wrong", "enhanced-other.jpg", "nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.Download(context.Background(), tc.path, tc.tok); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestDownload_RecordWithoutFile(t *testing.T) {
	svc, store, _ := newTestService(t, "enhanced")

	if _, err := store.Create(context.Background(), &Image{
		Type:          TypeEnhanced,
		FilePath:      "enhanced-vanished.jpg",
		OriginalName:  "vanished.jpg",
		DownloadToken: strings.Repeat("cd", 32),
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	_, _, err := svc.Download(context.Background(), "enhanced-vanished.jpg", strings.Repeat("cd", 32))
	if !errors.Is(err, storage.ErrNotExist) {
		t.Fatalf("expected storage.ErrNotExist, got %v", err)
	}
}

func TestSoftDelete_OwnershipEnforced(t *testing.T) {
	svc, store, _ := newTestService(t, "enhanced")
	ctx := context.Background()
	owner := "user-1"

	rec, err := store.Create(ctx, &Image{
		UserID:        &owner,
		Type:          TypeEnhanced,
		FilePath:      "enhanced-mine.jpg",
		OriginalName:  "mine.jpg",
		DownloadToken: strings.Repeat("ef", 32),
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	if err := svc.SoftDelete(ctx, rec.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}
	if err := svc.SoftDelete(ctx, rec.ID, owner); err != nil {
		t.Fatalf("own delete: %v", err)
	}

	mine, err := svc.ListMine(ctx, owner)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("deleted image still listed: %+v", mine)
	}

	// Soft delete keeps the record visible to the admin listing.
	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 || !all[0].Deleted {
		t.Errorf("admin listing lost the record: %+v", all)
	}
}
