package config

import (
	"os"
	"path/filepath"
	"testing"

	"bookfetch/internal/model"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Workers != 10 || s.OutputFormat != "pdf" || s.BaseURL != "https://archive.org" {
		t.Errorf("defaults not applied: %+v", s)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s := DefaultSettings()
	s.Workers = 4
	s.OutputFormat = "jpg"
	s.Verbose = true

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Workers != 4 || loaded.OutputFormat != "jpg" || !loaded.Verbose {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"workers": 2}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Workers != 2 {
		t.Errorf("Workers = %d, want 2", s.Workers)
	}
	if s.OutputFormat != "pdf" {
		t.Errorf("OutputFormat = %q, want default pdf", s.OutputFormat)
	}
}

func TestToDownloadConfig(t *testing.T) {
	s := DefaultSettings()
	s.OutputDir = t.TempDir()

	cfg, err := s.ToDownloadConfig()
	if err != nil {
		t.Fatalf("ToDownloadConfig() error = %v", err)
	}
	if cfg.Format != model.FormatPDF || cfg.Workers != 10 {
		t.Errorf("unexpected config: %+v", cfg)
	}

	s.OutputFormat = "docx"
	if _, err := s.ToDownloadConfig(); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("ARCHIVE_EMAIL", "reader@example.com")
	t.Setenv("ARCHIVE_PASSWORD", "hunter2")

	creds := LoadCredentials()
	if creds.Email != "reader@example.com" || creds.Password != "hunter2" {
		t.Errorf("credentials = %+v", creds)
	}
}
