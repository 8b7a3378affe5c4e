package library_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/avkit/player-bridge/internal/library"
)

func newLibrary(t *testing.T) *library.Library {
	t.Helper()

	uut, err := library.NewLibrary(library.Config{
		ErrWriter: io.Discard,
		OutWriter: io.Discard,
	})
	if err != nil {
		t.Fatalf("Unexpected error on library creation: %s", err)
	}
	t.Cleanup(func() { uut.Close() })

	return uut
}

func TestResolve_PassesURLsThrough(t *testing.T) {
	// given
	uut := newLibrary(t)

	// when
	resolved, err := uut.Resolve("https://example.com/stream.m3u8")

	// then
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}

	if resolved != "https://example.com/stream.m3u8" {
		t.Errorf("Expected URL %s to pass through unchanged", resolved)
	}
}

func TestResolve_FindsScannedMediaByBareReference(t *testing.T) {
	// given
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "some movie.mkv")
	err := os.WriteFile(mediaPath, []byte("not really a movie"), 0o644)
	if err != nil {
		t.Fatalf("Unexpected error preparing media file: %s", err)
	}

	err = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not media"), 0o644)
	if err != nil {
		t.Fatalf("Unexpected error preparing non-media file: %s", err)
	}

	uut := newLibrary(t)
	err = uut.AddDirectory(dir)
	if err != nil {
		t.Fatalf("Unexpected error on directory scan: %s", err)
	}

	// when
	resolved, err := uut.Resolve("some movie")

	// then
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}

	if resolved != mediaPath {
		t.Errorf("Expected path %s to equal %s", resolved, mediaPath)
	}

	// when - extensions of non-media files are not indexed.
	_, err = uut.Resolve("notes")

	// then
	if !errors.Is(err, library.ErrUnknownReference) {
		t.Errorf("Expected error %v to be ErrUnknownReference", err)
	}
}

func TestResolve_ExistingMediaPathResolvesToItself(t *testing.T) {
	// given
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip.mp4")
	err := os.WriteFile(mediaPath, []byte("clip"), 0o644)
	if err != nil {
		t.Fatalf("Unexpected error preparing media file: %s", err)
	}

	uut := newLibrary(t)

	// when - the path itself is playable even without a directory scan.
	resolved, err := uut.Resolve(mediaPath)

	// then
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}

	if resolved != mediaPath {
		t.Errorf("Expected path %s to equal %s", resolved, mediaPath)
	}
}

func TestResolve_UnknownReferenceReportsError(t *testing.T) {
	// given
	uut := newLibrary(t)

	// when
	_, err := uut.Resolve("never heard of it")

	// then
	if !errors.Is(err, library.ErrUnknownReference) {
		t.Errorf("Expected error %v to be ErrUnknownReference", err)
	}
}
