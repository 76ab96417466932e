// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/jeranaias/partlib/internal/util"
)

// CurrentVersion is the configuration format written by Save.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete partlib configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Library location and file conventions
	Library LibraryConfig `toml:"library" json:"library"`

	// Cache building and query settings
	Index IndexConfig `toml:"index" json:"index"`

	// Automatic rescans on file changes
	Watch WatchConfig `toml:"watch" json:"watch"`

	// Logging output
	Log LogConfig `toml:"log" json:"log"`
}

// LibraryConfig describes the library on disk.
type LibraryConfig struct {
	Root           string   `toml:"root" json:"root" validate:"required"`
	CachePath      string   `toml:"cache_path" json:"cache_path"`
	ElementFormat  string   `toml:"element_format" json:"element_format" validate:"oneof=toml yaml"`
	IgnorePatterns []string `toml:"ignore_patterns" json:"ignore_patterns" validate:"dive,required,glob"`
	MaxElementSize int64    `toml:"max_element_size" json:"max_element_size" validate:"gte=0"`
}

// IndexConfig contains cache building and query settings.
type IndexConfig struct {
	Locales       []string `toml:"locales" json:"locales" validate:"min=1,dive,locale"`
	LoadWorkers   int      `toml:"load_workers" json:"load_workers" validate:"gte=1,lte=256"`
	SkipInvalid   bool     `toml:"skip_invalid" json:"skip_invalid"`
	BusyTimeoutMs int      `toml:"busy_timeout_ms" json:"busy_timeout_ms" validate:"gte=0"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	Enabled       bool `toml:"enabled" json:"enabled"`
	DebounceMs    int  `toml:"debounce_ms" json:"debounce_ms" validate:"gte=0"`
	MinIntervalMs int  `toml:"min_interval_ms" json:"min_interval_ms" validate:"gte=0"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `toml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" json:"format" validate:"oneof=text json"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,

		Library: LibraryConfig{
			Root:           ".",
			CachePath:      "", // <root>/.partlib/library_cache.sqlite
			ElementFormat:  "toml",
			IgnorePatterns: []string{".*"},
			MaxElementSize: 4 * 1024 * 1024,
		},

		Index: IndexConfig{
			Locales:       []string{"en_US"},
			LoadWorkers:   4,
			SkipInvalid:   false,
			BusyTimeoutMs: 5000,
		},

		Watch: WatchConfig{
			Enabled:       false,
			DebounceMs:    500,
			MinIntervalMs: 5000,
		},

		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the partlib configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".partlib"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// PARTLIB_CONFIG names an explicit file. Otherwise TOML is tried first,
// then JSON, falling back to defaults. Environment overrides are applied
// last.
func Load() (*Config, error) {
	if path := os.Getenv("PARTLIB_CONFIG"); path != "" {
		return LoadFromPath(path)
	}

	cfg := Default()
	var loadErr error

	// Try TOML first, then JSON
	loaders := []struct {
		path func() (string, error)
		load func(*Config, string) error
		kind string
	}{
		{ConfigPathTOML, LoadTOML, "TOML"},
		{ConfigPathJSON, LoadJSON, "JSON"},
	}
	for _, l := range loaders {
		path, err := l.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		if err := l.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s config: %w", l.kind, err)
			cfg = Default()
			continue
		}
		if err := cfg.finish(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finish applies environment overrides, migration, defaults and validation.
func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	if err := c.Migrate(); err != nil {
		return fmt.Errorf("config migration failed: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %v\n", path, undecoded)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// Determine file type and load accordingly
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults fills in values a file explicitly emptied.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Library.Root == "" {
		cfg.Library.Root = defaults.Library.Root
	}
	if cfg.Library.ElementFormat == "" {
		cfg.Library.ElementFormat = defaults.Library.ElementFormat
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer

	// Write header comment
	fmt.Fprintln(&buf, "# partlib configuration file")
	fmt.Fprintln(&buf, "# Generated by partlib - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// configValidate checks the struct tags of Config. Field names are
// reported by their TOML keys.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = configValidate.RegisterValidation("locale", validateLocale)
	_ = configValidate.RegisterValidation("glob", validateGlob)
}

// validateLocale accepts BCP 47 tags in either en_US or en-US spelling.
func validateLocale(fl validator.FieldLevel) bool {
	_, err := language.Parse(fl.Field().String())
	return err == nil
}

func validateGlob(fl validator.FieldLevel) bool {
	_, err := filepath.Match(fl.Field().String(), "")
	return err == nil
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make(ValidateErrors, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, ValidationError{
			Field:   fieldKey(fe.Namespace()),
			Message: validationMessage(fe),
		})
	}
	return errs
}

// fieldKey turns "Config.index.locales[0]" into "index.locales[0]".
func fieldKey(namespace string) string {
	_, key, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return key
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be set"
	case "oneof":
		return fmt.Sprintf("invalid value '%v', must be one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	case "locale":
		return fmt.Sprintf("invalid locale '%v'", fe.Value())
	case "glob":
		return fmt.Sprintf("invalid pattern '%v'", fe.Value())
	}
	return fmt.Sprintf("failed '%s' check", fe.Tag())
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// Library defaults
	if c.Library.Root == "" {
		c.Library.Root = defaults.Library.Root
	}
	if c.Library.ElementFormat == "" {
		c.Library.ElementFormat = defaults.Library.ElementFormat
	}
	if c.Library.IgnorePatterns == nil {
		c.Library.IgnorePatterns = defaults.Library.IgnorePatterns
	}
	if c.Library.MaxElementSize == 0 {
		c.Library.MaxElementSize = defaults.Library.MaxElementSize
	}

	// Index defaults
	if len(c.Index.Locales) == 0 {
		c.Index.Locales = defaults.Index.Locales
	}
	if c.Index.LoadWorkers == 0 {
		c.Index.LoadWorkers = defaults.Index.LoadWorkers
	}
	if c.Index.BusyTimeoutMs == 0 {
		c.Index.BusyTimeoutMs = defaults.Index.BusyTimeoutMs
	}

	// Watch defaults
	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = defaults.Watch.DebounceMs
	}
	if c.Watch.MinIntervalMs == 0 {
		c.Watch.MinIntervalMs = defaults.Watch.MinIntervalMs
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// Migrate handles migration from old configuration formats to new ones.
func (c *Config) Migrate() error {
	// "yml" was accepted by early versions
	if strings.EqualFold(c.Library.ElementFormat, "yml") {
		c.Library.ElementFormat = "yaml"
	}
	c.Library.ElementFormat = strings.ToLower(c.Library.ElementFormat)

	// Element files key translations as en_US, so normalize en-US spellings
	for i, loc := range c.Index.Locales {
		c.Index.Locales[i] = strings.ReplaceAll(strings.TrimSpace(loc), "-", "_")
	}

	switch strings.ToLower(c.Log.Level) {
	case "warning":
		c.Log.Level = "warn"
	default:
		c.Log.Level = strings.ToLower(c.Log.Level)
	}

	if c.Version == "" {
		c.Version = CurrentVersion
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PARTLIB_ROOT: overrides library.root
//   - PARTLIB_CACHE: overrides library.cache_path
//   - PARTLIB_LOCALES: comma separated list, overrides index.locales
//   - PARTLIB_LOG_LEVEL: overrides log.level
//   - PARTLIB_SKIP_INVALID: set to "1" or "true" to skip invalid elements
func (c *Config) ApplyEnvOverrides() {
	if root := os.Getenv("PARTLIB_ROOT"); root != "" {
		c.Library.Root = root
	}

	if cache := os.Getenv("PARTLIB_CACHE"); cache != "" {
		c.Library.CachePath = cache
	}

	if locales := os.Getenv("PARTLIB_LOCALES"); locales != "" {
		var list []string
		for _, loc := range strings.Split(locales, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				list = append(list, loc)
			}
		}
		if len(list) > 0 {
			c.Index.Locales = list
		}
	}

	if level := os.Getenv("PARTLIB_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if skip := os.Getenv("PARTLIB_SKIP_INVALID"); skip != "" {
		v, err := strconv.ParseBool(skip)
		c.Index.SkipInvalid = err == nil && v
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Library.IgnorePatterns = append([]string(nil), c.Library.IgnorePatterns...)
	clone.Index.Locales = append([]string(nil), c.Index.Locales...)
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	// Keep a later Global from replacing cfg with a loaded config
	set := false
	globalConfigOnce.Do(func() {
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
		set = true
	})
	if set {
		return
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
