package ioutils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestUniquePath_NoCollision(t *testing.T) {
	dir := t.TempDir()
	candidate := filepath.Join(dir, "book.pdf")

	if got := UniquePath(candidate); got != candidate {
		t.Errorf("UniquePath = %q, want %q", got, candidate)
	}
}

func TestUniquePath_NumbersExhaustively(t *testing.T) {
	dir := t.TempDir()

	// Seed colliding artifacts: book.pdf, book(1).pdf, book(2).pdf.
	for _, name := range []string{"book.pdf", "book(1).pdf", "book(2).pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got := UniquePath(filepath.Join(dir, "book.pdf"))
	want := filepath.Join(dir, "book(3).pdf")
	if got != want {
		t.Errorf("UniquePath = %q, want %q", got, want)
	}
}

func TestUniquePath_MonotonicAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	candidate := filepath.Join(dir, "title")

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		got := UniquePath(candidate)
		if seen[got] {
			t.Fatalf("UniquePath returned duplicate %q", got)
		}
		seen[got] = true

		// Materialize the path so the next call must move on.
		if err := os.Mkdir(got, 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestUniquePath_Directories(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "My_Book")

	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}

	got := UniquePath(target)
	want := filepath.Join(dir, "My_Book(1)")
	if got != want {
		t.Errorf("UniquePath = %q, want %q", got, want)
	}
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageService_Validate(t *testing.T) {
	svc := NewImageService()

	format, err := svc.Validate(encodePNG(t))
	if err != nil {
		t.Fatalf("valid image rejected: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}

	if _, err := svc.Validate([]byte("not an image")); err == nil {
		t.Error("garbage bytes should not validate")
	}
}

func TestImageService_ConvertToJPEG(t *testing.T) {
	svc := NewImageService()

	out, err := svc.ConvertToJPEG(encodePNG(t))
	if err != nil {
		t.Fatalf("ConvertToJPEG: %v", err)
	}

	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("output is not valid JPEG: %v", err)
	}
}
