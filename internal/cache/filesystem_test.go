package cache

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	want := []byte(`{"rows": 42}`)
	if err := store.Set("query:abc123", want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get("query:abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := store.Get("never-set"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreExpiry(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Millisecond)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := store.Set("short-lived", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := store.Get("short-lived"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	// The expired file is gone: a second read still misses.
	if _, err := store.Get("short-lived"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on re-read, got %v", err)
	}
}

func TestFileStoreDeleteAbsentKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := store.Delete("never-set"); err != nil {
		t.Fatalf("Delete of absent key should be a no-op, got %v", err)
	}
}

func TestFileStoreKeysWithSeparators(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	key := "querylab/results/../2026-08-23"
	if err := store.Set(key, []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q, want v", got)
	}
}
