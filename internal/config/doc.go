// Package config manages persistent application settings (JSON file)
// and account credentials (environment, optionally via .env).
package config
