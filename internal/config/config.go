package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Annotation store connection
	AnnotationStoreURL    string
	AnnotationStoreAPIKey string

	// Auth
	LecternAPIKey string

	// Layout grid
	GridColumns    int
	GridCharWidth  float64
	GridLineHeight float64
	GridViewport   float64

	// Debounce intervals
	ResizeDebounce time.Duration
	ClickDebounce  time.Duration

	// Read aloud
	TTSRate      float64
	TTSPitch     float64
	TTSVoicePref string

	// Selector generation budget
	SelectorThreshold int

	// Resource limits
	MaxResourceBytes int64
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		AnnotationStoreURL:    os.Getenv("ANNOTATION_STORE_URL"),
		AnnotationStoreAPIKey: os.Getenv("ANNOTATION_STORE_API_KEY"),

		LecternAPIKey: os.Getenv("LECTERN_API_KEY"),

		GridColumns:    envInt("GRID_COLUMNS", 80),
		GridCharWidth:  envFloat("GRID_CHAR_WIDTH", 8),
		GridLineHeight: envFloat("GRID_LINE_HEIGHT", 18),
		GridViewport:   envFloat("GRID_VIEWPORT", 0),

		ResizeDebounce: envDuration("RESIZE_DEBOUNCE", 500*time.Millisecond),
		ClickDebounce:  envDuration("CLICK_DEBOUNCE", 150*time.Millisecond),

		TTSRate:      envFloat("TTS_RATE", 1.0),
		TTSPitch:     envFloat("TTS_PITCH", 1.0),
		TTSVoicePref: os.Getenv("TTS_VOICE"),

		SelectorThreshold: envInt("SELECTOR_THRESHOLD", 1000),

		MaxResourceBytes: envInt64("MAX_RESOURCE_BYTES", 52428800), // 50MB
	}

	if cfg.GridColumns <= 0 {
		cfg.GridColumns = 80
	}
	if cfg.GridCharWidth <= 0 {
		cfg.GridCharWidth = 8
	}
	if cfg.GridLineHeight <= 0 {
		cfg.GridLineHeight = 18
	}
	if cfg.ResizeDebounce <= 0 {
		cfg.ResizeDebounce = 500 * time.Millisecond
	}
	if cfg.ClickDebounce <= 0 {
		cfg.ClickDebounce = 150 * time.Millisecond
	}
	if cfg.TTSRate <= 0 {
		cfg.TTSRate = 1.0
	}
	if cfg.TTSPitch <= 0 {
		cfg.TTSPitch = 1.0
	}
	if cfg.SelectorThreshold <= 0 {
		cfg.SelectorThreshold = 1000
	}
	if cfg.MaxResourceBytes <= 0 {
		cfg.MaxResourceBytes = 52428800
	}

	return cfg
}

func (c Config) Validate() error {
	if c.LecternAPIKey == "" {
		return fmt.Errorf("LECTERN_API_KEY is required")
	}
	if c.AnnotationStoreURL != "" && c.AnnotationStoreAPIKey == "" {
		return fmt.Errorf("ANNOTATION_STORE_API_KEY is required when ANNOTATION_STORE_URL is set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
