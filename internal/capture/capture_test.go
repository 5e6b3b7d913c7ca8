package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoaderDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.png")
	if err := os.WriteFile(path, encodePNG(t), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Loader{Path: path}.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Errorf("bounds = %v, want 3x2", b)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file should remain without Consume: %v", err)
	}
}

func TestLoaderFailures(t *testing.T) {
	dir := t.TempDir()
	full := encodeJPEG(t)

	truncated := filepath.Join(dir, "truncated.jpg")
	if err := os.WriteFile(truncated, full[:len(full)/2], 0644); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "garbage.jpg")
	if err := os.WriteFile(garbage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.jpg")},
		{"partially written", truncated},
		{"not an image", garbage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Loader{Path: tt.path, Consume: true}.Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if img != nil {
				t.Error("expected no image on failure")
			}
		})
	}

	// A failed decode must never consume the file.
	for _, p := range []string{truncated, garbage} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s was removed after a failed load", p)
		}
	}
}

func TestLoaderConsume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jpg")
	if err := os.WriteFile(path, encodeJPEG(t), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Loader{Path: path, Consume: true}.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("width = %d, want 64", img.Bounds().Dx())
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file to be consumed, stat err = %v", err)
	}
}

func TestRemoveStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jpg")
	if err := RemoveStale(path); err != nil {
		t.Errorf("RemoveStale on missing file: %v", err)
	}
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveStale(path); err != nil {
		t.Fatalf("RemoveStale() error = %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale capture still present")
	}
}

func TestWatcherPresent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	w, err := NewWatcher(dir, "capture.jpg", time.Second)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if w.Present() {
		t.Error("Present() = true before the file exists")
	}
	if err := os.WriteFile(w.Path(), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !w.Present() {
		t.Error("Present() = false after the file was written")
	}
}

func TestWatcherPresentIgnoresDirectory(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, "capture.jpg", time.Second)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := os.Mkdir(w.Path(), 0755); err != nil {
		t.Fatal(err)
	}
	if w.Present() {
		t.Error("Present() = true for a directory")
	}
}

func TestWatcherNextWakesOnCreate(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, "capture.jpg", time.Minute)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "capture.jpg"), []byte("x"), 0644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v, want wake on create", err)
	}
	if !w.Present() {
		t.Error("expected capture to be present after wake")
	}
}

func TestWatcherNextPollInterval(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), "capture.jpg", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	start := time.Now()
	if err := w.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Next() took %v, expected it to return on the poll interval", elapsed)
	}
}

func TestWatcherNextCancelled(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), "capture.jpg", time.Minute)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestWatcherNextLogsErrors(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), "capture.jpg", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	var logs bytes.Buffer
	w.Logger = log.New(&logs, "", 0)

	sent := make(chan struct{})
	go func() {
		w.watcher.Errors <- errors.New("queue overflow")
		close(sent)
	}()

	// The error must not end the wait; Next still returns on the poll tick.
	deadline := time.After(2 * time.Second)
	for received := false; !received; {
		if err := w.Next(context.Background()); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		select {
		case <-sent:
			received = true
		case <-deadline:
			t.Fatal("error was never received")
		default:
		}
	}
	if got := logs.String(); got != "Watcher error: queue overflow\n" {
		t.Errorf("logged %q", got)
	}
}

func TestWatcherNextClosed(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), "capture.jpg", time.Minute)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Close()

	if err := w.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Next() error = %v, want ErrClosed", err)
	}
}
