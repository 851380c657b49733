/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied after the file.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type ExportConfig struct {
	Format  string `yaml:"format"`  // png | jpeg | pdf
	Quality int    `yaml:"quality"` // jpeg quality 0..100
	OutDir  string `yaml:"out_dir"`
}

type ShareConfig struct {
	BaseURL   string  `yaml:"base_url"`
	Param     string  `yaml:"param"`
	Quality   float64 `yaml:"quality"` // 0..1, jpeg quality of the shared image
	MaxLength int     `yaml:"max_length"`
}

type RenderConfig struct {
	FontDirs      []string `yaml:"font_dirs"`
	DefaultFamily string   `yaml:"default_family"`
	MaxPixels     int      `yaml:"max_pixels"`
}

type PlacementConfig struct {
	SnapThreshold float64 `yaml:"snap_threshold"` // percentage points around the center
}

type HistoryConfig struct {
	MaxStates     int `yaml:"max_states"`
	MinIntervalMs int `yaml:"min_interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Export        ExportConfig    `yaml:"export"`
	Share         ShareConfig     `yaml:"share"`
	Render        RenderConfig    `yaml:"render"`
	Placement     PlacementConfig `yaml:"placement"`
	History       HistoryConfig   `yaml:"history"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Export:        ExportConfig{Format: "png", Quality: 92, OutDir: "."},
		Share:         ShareConfig{BaseURL: "https://overlaykit.local/", Param: "img", Quality: 0.6, MaxLength: 50000},
		Render:        RenderConfig{DefaultFamily: "Go", MaxPixels: 100_000_000},
		Placement:     PlacementConfig{SnapThreshold: 2},
		History:       HistoryConfig{MaxStates: 200, MinIntervalMs: 250},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvExportFormat   = "OVK_EXPORT_FORMAT"
	EnvExportQuality  = "OVK_EXPORT_QUALITY"
	EnvExportOutDir   = "OVK_EXPORT_OUT_DIR"
	EnvShareBaseURL   = "OVK_SHARE_BASE_URL"
	EnvShareQuality   = "OVK_SHARE_QUALITY"
	EnvShareMaxLength = "OVK_SHARE_MAX_LENGTH"
	EnvFontDirs       = "OVK_FONT_DIRS" // os.PathListSeparator separated
	EnvMaxPixels      = "OVK_MAX_PIXELS"
	EnvSnapThreshold  = "OVK_SNAP_THRESHOLD"
	EnvLogLevel       = "OVK_LOG_LEVEL"
	EnvLogFormat      = "OVK_LOG_FORMAT"
	EnvLogSource      = "OVK_LOG_SOURCE"
	EnvLogFile        = "OVK_LOG_FILE"
)

var envKeys = map[string]string{
	"export.format":            EnvExportFormat,
	"export.quality":           EnvExportQuality,
	"export.out_dir":           EnvExportOutDir,
	"share.base_url":           EnvShareBaseURL,
	"share.quality":            EnvShareQuality,
	"share.max_length":         EnvShareMaxLength,
	"render.font_dirs":         EnvFontDirs,
	"render.max_pixels":        EnvMaxPixels,
	"placement.snap_threshold": EnvSnapThreshold,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "overlaykit")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "overlaykit")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "overlaykit")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "overlaykit")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present) and applies environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file is not an error;
// a malformed one is, and the defaults plus env overrides are still returned.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	var loadErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			loadErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		loadErr = fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, loadErr
}

// Save writes cfg as YAML to path, creating the parent directory.
func Save(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if f := normFormat(src.Export.Format); f != "" {
		dst.Export.Format = f
	}
	if src.Export.Quality > 0 {
		dst.Export.Quality = clampInt(src.Export.Quality, 0, 100)
	}
	if s := strings.TrimSpace(src.Export.OutDir); s != "" {
		dst.Export.OutDir = s
	}
	if s := strings.TrimSpace(src.Share.BaseURL); s != "" {
		dst.Share.BaseURL = s
	}
	if s := strings.TrimSpace(src.Share.Param); s != "" {
		dst.Share.Param = s
	}
	if src.Share.Quality > 0 {
		dst.Share.Quality = clampFloat(src.Share.Quality, 0, 1)
	}
	if src.Share.MaxLength > 0 {
		dst.Share.MaxLength = src.Share.MaxLength
	}
	if len(src.Render.FontDirs) > 0 {
		dst.Render.FontDirs = append([]string(nil), src.Render.FontDirs...)
	}
	if s := strings.TrimSpace(src.Render.DefaultFamily); s != "" {
		dst.Render.DefaultFamily = s
	}
	if src.Render.MaxPixels > 0 {
		dst.Render.MaxPixels = src.Render.MaxPixels
	}
	if src.Placement.SnapThreshold > 0 {
		dst.Placement.SnapThreshold = src.Placement.SnapThreshold
	}
	if src.History.MaxStates > 0 {
		dst.History.MaxStates = src.History.MaxStates
	}
	if src.History.MinIntervalMs > 0 {
		dst.History.MinIntervalMs = src.History.MinIntervalMs
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if f := normFormat(os.Getenv(EnvExportFormat)); f != "" {
		cfg.Export.Format = f
	}
	if n, ok := envInt(EnvExportQuality); ok {
		cfg.Export.Quality = clampInt(n, 0, 100)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportOutDir)); v != "" {
		cfg.Export.OutDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvShareBaseURL)); v != "" {
		cfg.Share.BaseURL = v
	}
	if f, ok := envFloat(EnvShareQuality); ok {
		cfg.Share.Quality = clampFloat(f, 0, 1)
	}
	if n, ok := envInt(EnvShareMaxLength); ok && n > 0 {
		cfg.Share.MaxLength = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontDirs)); v != "" {
		var dirs []string
		for _, d := range filepath.SplitList(v) {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.Render.FontDirs = dirs
	}
	if n, ok := envInt(EnvMaxPixels); ok && n > 0 {
		cfg.Render.MaxPixels = n
	}
	if f, ok := envFloat(EnvSnapThreshold); ok && f >= 0 {
		cfg.Placement.SnapThreshold = f
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the dotted yaml key is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// JPEGQuality converts the 0..1 share quality to the 1..100 scale of image/jpeg.
func (s ShareConfig) JPEGQuality() int {
	q := int(s.Quality*100 + 0.5)
	return clampInt(q, 1, 100)
}

func normFormat(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return "png"
	case "jpg", "jpeg":
		return "jpeg"
	case "pdf":
		return "pdf"
	}
	return ""
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envFloat(name string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
