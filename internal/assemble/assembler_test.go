package assemble

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookfetch/internal/model"
)

func encodeJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 12, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 15), B: 80, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

func writePage(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestAssemblePDF(t *testing.T) {
	ws := t.TempDir()
	out := t.TempDir()

	page := encodeJPEG(t)
	files := []string{
		writePage(t, ws, "0.jpg", page),
		writePage(t, ws, "1.jpg", []byte("not an image")),
		writePage(t, ws, "2.jpg", page),
	}

	var warnings []string
	logf := func(format string, args ...any) {
		warnings = append(warnings, format)
	}

	book := &model.Book{Locator: "https://archive.org/details/testbook", ID: "testbook", Title: "Test Book"}
	cfg := model.DownloadConfig{OutputDir: out, Format: model.FormatPDF}

	artifact, err := NewAssembler(logf).Assemble(book, files, cfg)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if !strings.HasSuffix(artifact, "Test_Book.pdf") {
		t.Errorf("artifact = %q, want Test_Book.pdf suffix", artifact)
	}

	info, err := os.Stat(artifact)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("artifact is empty")
	}

	if len(warnings) != 1 {
		t.Errorf("warnings = %d, want 1 for the corrupt page", len(warnings))
	}
}

func TestAssemblePDFUniquePath(t *testing.T) {
	ws := t.TempDir()
	out := t.TempDir()

	if err := os.WriteFile(filepath.Join(out, "Test_Book.pdf"), []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	files := []string{writePage(t, ws, "0.jpg", encodeJPEG(t))}
	book := &model.Book{ID: "testbook", Title: "Test Book"}
	cfg := model.DownloadConfig{OutputDir: out, Format: model.FormatPDF}

	artifact, err := NewAssembler(nil).Assemble(book, files, cfg)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if !strings.HasSuffix(artifact, "Test_Book(1).pdf") {
		t.Errorf("artifact = %q, want Test_Book(1).pdf suffix", artifact)
	}
}

func TestAssembleImageSetDropsCorrupt(t *testing.T) {
	ws := t.TempDir()

	good := writePage(t, ws, "0.jpg", encodeJPEG(t))
	bad := writePage(t, ws, "1.jpg", []byte("garbage"))

	book := &model.Book{ID: "testbook", Title: "Test Book"}
	cfg := model.DownloadConfig{OutputDir: t.TempDir(), Format: model.FormatImages}

	artifact, err := NewAssembler(nil).Assemble(book, []string{good, bad}, cfg)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if artifact != ws {
		t.Errorf("artifact = %q, want workspace dir %q", artifact, ws)
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Errorf("corrupt page still present: %v", err)
	}
	if _, err := os.Stat(good); err != nil {
		t.Errorf("valid page removed: %v", err)
	}
}

func TestAssembleAllCorrupt(t *testing.T) {
	ws := t.TempDir()

	files := []string{
		writePage(t, ws, "0.jpg", []byte("nope")),
		writePage(t, ws, "1.jpg", []byte("still nope")),
	}

	book := &model.Book{ID: "testbook", Title: "Test Book"}
	cfg := model.DownloadConfig{OutputDir: t.TempDir(), Format: model.FormatPDF}

	_, err := NewAssembler(nil).Assemble(book, files, cfg)
	if !errors.Is(err, ErrAssembly) {
		t.Errorf("Assemble() error = %v, want ErrAssembly", err)
	}
}
