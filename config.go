package sigma

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// Config is the file form of codec, frame decoder and processor
// settings.
//
//	tag_length = "bcd"
//	max_frame_length = 8192
//	strict_validation = true
//	metrics = true
//	catalog_file = "catalog.yaml"
//	log_level = "info"
//	concurrency = 8
type Config struct {
	TagLength        string `toml:"tag_length"`
	MaxFrameLength   int    `toml:"max_frame_length"`
	StrictValidation bool   `toml:"strict_validation"`
	Metrics          bool   `toml:"metrics"`
	CatalogFile      string `toml:"catalog_file"`
	LogLevel         string `toml:"log_level"`
	Concurrency      int    `toml:"concurrency"`

	dir string
}

// LoadConfig reads a TOML file. A relative catalog_file is resolved
// against the directory of path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// ParseConfig decodes TOML, fills defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	if cfg.TagLength == "" {
		cfg.TagLength = "bcd"
	}
	if cfg.MaxFrameLength == 0 {
		cfg.MaxFrameLength = DefaultMaxFrame
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig checks ranges and enumerated values.
func ValidateConfig(cfg Config) error {
	if _, err := parseTagLengthMode(cfg.TagLength); err != nil {
		return err
	}
	if cfg.MaxFrameLength < MinBodyLength || cfg.MaxFrameLength > DefaultMaxFrame {
		return fmt.Errorf("max_frame_length %d outside %d-%d", cfg.MaxFrameLength, MinBodyLength, DefaultMaxFrame)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive")
	}
	if ext := strings.ToLower(filepath.Ext(cfg.CatalogFile)); cfg.CatalogFile != "" &&
		ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("catalog_file %q: expected .yaml, .yml or .json", cfg.CatalogFile)
	}
	return nil
}

// Catalog loads the configured catalog overlay, or returns the default
// catalog when none is configured.
func (cfg Config) Catalog() (*Catalog, error) {
	if cfg.CatalogFile == "" {
		return DefaultCatalog(), nil
	}
	path := cfg.CatalogFile
	if !filepath.IsAbs(path) && cfg.dir != "" {
		path = filepath.Join(cfg.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog load failed (%s): %w", path, err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return LoadCatalogJSON(data)
	}
	return LoadCatalogYAML(data)
}

// Logger applies the configured level to base.
func (cfg Config) Logger(base zerolog.Logger) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return base
	}
	return base.Level(lvl)
}

// CodecOptions turns the config into Codec options.
func (cfg Config) CodecOptions(logger zerolog.Logger) ([]CodecOption, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	mode, err := parseTagLengthMode(cfg.TagLength)
	if err != nil {
		return nil, err
	}
	opts := []CodecOption{
		WithCatalog(catalog),
		WithTagLengthMode(mode),
		WithMaxBodyLength(cfg.MaxFrameLength),
		WithLogger(cfg.Logger(logger)),
	}
	if cfg.StrictValidation {
		opts = append(opts, WithStrictValidation())
	}
	if cfg.Metrics {
		opts = append(opts, WithMetrics())
	}
	return opts, nil
}

// FrameOptions turns the config into FrameDecoder options.
func (cfg Config) FrameOptions(logger zerolog.Logger) []FrameOption {
	opts := []FrameOption{
		WithMaxFrameLength(cfg.MaxFrameLength),
		WithFrameLogger(cfg.Logger(logger)),
	}
	if cfg.Metrics {
		opts = append(opts, WithFrameMetrics())
	}
	return opts
}

// ProcessorOptions turns the config into Processor options.
func (cfg Config) ProcessorOptions(logger zerolog.Logger) []ProcessorOption {
	return []ProcessorOption{
		WithConcurrency(cfg.Concurrency),
		WithProcessorLogger(cfg.Logger(logger)),
	}
}
