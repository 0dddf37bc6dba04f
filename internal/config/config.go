package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Defaults are terminal cells: one cell of margin and a two-cell disclosure glyph ("▸ ").
const (
	DefaultFontFamily         = "Menlo Regular"
	DefaultFontSize           = 12
	DefaultHorizontalMargin   = 1
	DefaultDisclosureDiameter = 2
	DefaultMaxElements        = 256
)

// Config is the only config file schema. It is read, never written.
type Config struct {
	FontFamily         string `toml:"font_family"`
	FontSize           int    `toml:"font_size"`
	HorizontalMargin   int    `toml:"horizontal_margin"`
	DisclosureDiameter int    `toml:"disclosure_diameter"`
	MaxElements        int    `toml:"max_elements"`
	LogPath            string `toml:"log_path"`
	LogLevel           string `toml:"log_level"`
	AltScreen          bool   `toml:"alt_screen"`
	Source             string `toml:"-"`
}

func Default() Config {
	return Config{
		FontFamily:         DefaultFontFamily,
		FontSize:           DefaultFontSize,
		HorizontalMargin:   DefaultHorizontalMargin,
		DisclosureDiameter: DefaultDisclosureDiameter,
		MaxElements:        DefaultMaxElements,
		LogLevel:           "info",
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".objconsole", "config.toml")
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return applyEnv(cfg).normalized(), nil
}

func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv("OBJCONSOLE_FONT")); env != "" {
		cfg.FontFamily = env
	}
	if env := strings.TrimSpace(os.Getenv("OBJCONSOLE_LOG_LEVEL")); env != "" {
		cfg.LogLevel = env
	}
	return cfg
}

// normalized 将非法数值回退为默认值，保证布局常量始终为正。
func (c Config) normalized() Config {
	def := Default()
	if c.FontSize <= 0 {
		c.FontSize = def.FontSize
	}
	if c.HorizontalMargin < 0 {
		c.HorizontalMargin = def.HorizontalMargin
	}
	if c.DisclosureDiameter < 0 {
		c.DisclosureDiameter = def.DisclosureDiameter
	}
	if c.MaxElements <= 0 {
		c.MaxElements = def.MaxElements
	}
	if strings.TrimSpace(c.FontFamily) == "" {
		c.FontFamily = def.FontFamily
	}
	return c
}
