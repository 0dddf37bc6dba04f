package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides.
// Unknown keys and unparsable numbers are ignored.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "font_family":
			cfg.FontFamily = val
		case "font_size":
			setInt(&cfg.FontSize, val)
		case "horizontal_margin":
			setInt(&cfg.HorizontalMargin, val)
		case "disclosure_diameter":
			setInt(&cfg.DisclosureDiameter, val)
		case "max_elements":
			setInt(&cfg.MaxElements, val)
		case "log_path":
			cfg.LogPath = val
		case "log_level":
			cfg.LogLevel = val
		case "alt_screen":
			if b, err := strconv.ParseBool(val); err == nil {
				cfg.AltScreen = b
			}
		}
	}
	return cfg.normalized()
}

func setInt(dst *int, raw string) {
	if n, err := strconv.Atoi(raw); err == nil {
		*dst = n
	}
}
