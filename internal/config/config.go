/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads and saves the user-editable YAML configuration and
// exposes the canvas tuning knobs. Environment variables are read-only
// overrides at runtime; the sync token lives in the OS keyring, never on disk.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	keyring "github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// CanvasConfig holds the interaction tuning knobs. The defaults were chosen
// empirically; behavior must stay correct under reasonable changes, so
// nothing in the engine hard-codes them.
type CanvasConfig struct {
	MinScale float64 `yaml:"min_scale"`
	MaxScale float64 `yaml:"max_scale"`
	// ZoomStep is the multiplicative scale change per discrete wheel tick.
	ZoomStep float64 `yaml:"zoom_step"`
	// CullPadding expands the visible region (plane units) to pre-load items
	// just outside the frame and avoid pop-in while panning.
	CullPadding float64 `yaml:"cull_padding"`
	// ProximityRadius is the spatial-neighbor radius for search, plane units.
	ProximityRadius float64 `yaml:"proximity_radius"`
	// SnapThreshold is the drag-snapping distance for alignment guides.
	SnapThreshold float64 `yaml:"snap_threshold"`
	// DragThreshold is the pointer travel (screen px) that turns a press into
	// a drag instead of a click.
	DragThreshold float64 `yaml:"drag_threshold"`
	// ClickSuppressionMs ignores the click that the host fires right after a
	// rubber-band release, so it cannot wipe the just-made selection.
	ClickSuppressionMs int `yaml:"click_suppression_ms"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the persisted user configuration.
// config_version: bump when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Canvas: CanvasConfig{
			MinScale:           0.1,
			MaxScale:           10,
			ZoomStep:           1.1,
			CullPadding:        500,
			ProximityRadius:    300,
			SnapThreshold:      6,
			DragThreshold:      4,
			ClickSuppressionMs: 150,
		},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "MC_BACKEND_URL"
	EnvBackendTimeoutMs = "MC_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "MC_TLS_INSECURE"
	EnvTelemetryOptIn   = "MC_TELEMETRY_OPT_IN"
	EnvProximityRadius  = "MC_PROXIMITY_RADIUS"
	EnvLogLevel         = "MC_LOG_LEVEL"
	EnvLogFormat        = "MC_LOG_FORMAT"
	EnvLogSource        = "MC_LOG_SOURCE"
	EnvLogFile          = "MC_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "MediaCanvas"
	keyringToken   = "sync_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// SetTokenStore replaces the keyring backend; it returns the previous one.
func SetTokenStore(s TokenStore) TokenStore {
	old := tokenStore
	tokenStore = s
	return old
}

// Path returns the per-user config file path.
func Path() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "MediaCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "MediaCanvas")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "mediacanvas")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The sync token is returned separately from keyring.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring
// (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from the file so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	if src.Canvas.MinScale > 0 {
		dst.Canvas.MinScale = src.Canvas.MinScale
	}
	if src.Canvas.MaxScale > 0 {
		dst.Canvas.MaxScale = src.Canvas.MaxScale
	}
	if src.Canvas.ZoomStep > 1 {
		dst.Canvas.ZoomStep = src.Canvas.ZoomStep
	}
	if src.Canvas.CullPadding > 0 {
		dst.Canvas.CullPadding = src.Canvas.CullPadding
	}
	if src.Canvas.ProximityRadius > 0 {
		dst.Canvas.ProximityRadius = src.Canvas.ProximityRadius
	}
	if src.Canvas.SnapThreshold > 0 {
		dst.Canvas.SnapThreshold = src.Canvas.SnapThreshold
	}
	if src.Canvas.DragThreshold > 0 {
		dst.Canvas.DragThreshold = src.Canvas.DragThreshold
	}
	if src.Canvas.ClickSuppressionMs > 0 {
		dst.Canvas.ClickSuppressionMs = src.Canvas.ClickSuppressionMs
	}

	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure

	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvProximityRadius)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Canvas.ProximityRadius = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
