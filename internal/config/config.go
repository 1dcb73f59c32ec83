package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Cfg holds all runtime configuration loaded from environment variables.
type Cfg struct {
	DPI         int      // REDACT_DPI, raster resolution
	Languages   []string // REDACT_LANG, "+"-separated tesseract languages
	Workers     int      // REDACT_WORKERS, documents processed at once
	JPEGQuality int      // REDACT_JPEG_QUALITY, output page quality 1..100

	// Optional NER sidecar consulted when the name rules miss.
	NERURL string // REDACT_NER_URL=http://localhost:8001

	RulesPath     string // REDACT_RULES, JS variant rule file
	KeyPassphrase string // REDACT_KEY_PASSPHRASE seals the key table when set

	LogLevel slog.Level // REDACT_LOG_LEVEL=debug|info|warn|error
}

// Load reads .env (if present) then environment variables and returns Cfg.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	dpi, err := intEnv("REDACT_DPI", 200)
	if err != nil {
		return nil, err
	}
	workers, err := intEnv("REDACT_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	quality, err := intEnv("REDACT_JPEG_QUALITY", 90)
	if err != nil {
		return nil, err
	}

	lang := strings.TrimSpace(os.Getenv("REDACT_LANG"))
	if lang == "" {
		lang = "eng"
	}

	var level slog.Level
	if raw := strings.TrimSpace(os.Getenv("REDACT_LOG_LEVEL")); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("REDACT_LOG_LEVEL: %w", err)
		}
	}

	cfg := &Cfg{
		DPI:           dpi,
		Languages:     SplitLanguages(lang),
		Workers:       workers,
		JPEGQuality:   quality,
		NERURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("REDACT_NER_URL")), "/"),
		RulesPath:     strings.TrimSpace(os.Getenv("REDACT_RULES")),
		KeyPassphrase: os.Getenv("REDACT_KEY_PASSPHRASE"),
		LogLevel:      level,
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c *Cfg) Validate() error {
	if c.DPI < 36 || c.DPI > 1200 {
		return fmt.Errorf("dpi %d out of range 36..1200", c.DPI)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality %d out of range 1..100", c.JPEGQuality)
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("no OCR language configured")
	}
	return nil
}

// SplitLanguages parses tesseract's "eng+deu" notation.
func SplitLanguages(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
