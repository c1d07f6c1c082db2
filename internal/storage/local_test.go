package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocal_SaveOpenRoundtrip(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "photo.jpg", strings.NewReader("picture bytes"), 13, "image/jpeg"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rc, err := store.Open(ctx, "photo.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "picture bytes" {
		t.Fatalf("content = %q", data)
	}
}

func TestLocal_OpenMissing(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := store.Open(context.Background(), "absent.jpg"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestLocal_RejectsTraversalKeys(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := store.Save(ctx, key, strings.NewReader("x"), 1, ""); err == nil {
			t.Errorf("Save accepted key %q", key)
		}
		if _, err := store.Open(ctx, key); err == nil || errors.Is(err, ErrNotExist) {
			t.Errorf("Open did not reject key %q (err=%v)", key, err)
		}
	}
}

func TestLocal_Delete(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "gone.jpg", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "gone.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, "gone.jpg"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist after delete, got %v", err)
	}
	if err := store.Delete(ctx, "gone.jpg"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("second delete: expected ErrNotExist, got %v", err)
	}
}
