package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"bookfetch/internal/model"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	OutputDir      string `json:"output_dir"`
	Workers        int    `json:"workers"`
	Resolution     int    `json:"resolution"`
	OutputFormat   string `json:"output_format"` // pdf, jpg
	SaveMetadata   bool   `json:"save_metadata"`
	FilterSearch   bool   `json:"filter_search_restricted"`
	HistoryEnabled bool   `json:"history_enabled"`
	HistoryPath    string `json:"history_path"`
	Verbose        bool   `json:"verbose"`

	// Remote endpoint; overridable for mirrors.
	BaseURL string `json:"base_url"`
}

// Credentials are the account credentials used for access-gated books.
// They never live in the settings file.
type Credentials struct {
	Email    string
	Password string
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		OutputDir:      filepath.Join(homeDir, "Books"),
		Workers:        10,
		Resolution:     3,
		OutputFormat:   "pdf",
		SaveMetadata:   false,
		FilterSearch:   false,
		HistoryEnabled: true,
		HistoryPath:    filepath.Join(homeDir, ".bookfetch", "history.db"),
		BaseURL:        "https://archive.org",
	}
}

// Load reads settings from a JSON file. A missing file yields
// defaults, not an error.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultPath is the settings file location.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".bookfetch", "settings.json")
}

// ToDownloadConfig converts settings to a validated DownloadConfig.
func (s *Settings) ToDownloadConfig() (model.DownloadConfig, error) {
	format, err := model.ParseOutputFormat(s.OutputFormat)
	if err != nil {
		return model.DownloadConfig{}, err
	}
	return model.NewDownloadConfig(s.Resolution, s.Workers, s.OutputDir, format, s.SaveMetadata, s.Verbose)
}

// LoadCredentials reads account credentials from ARCHIVE_EMAIL and
// ARCHIVE_PASSWORD, loading a .env file first when one is present.
// Either field may be empty; callers that require authentication
// validate before use.
func LoadCredentials() Credentials {
	_ = godotenv.Load()

	return Credentials{
		Email:    os.Getenv("ARCHIVE_EMAIL"),
		Password: os.Getenv("ARCHIVE_PASSWORD"),
	}
}
