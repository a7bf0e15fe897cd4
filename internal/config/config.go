package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/irfansharif/pookalam/internal/palette"
	"github.com/irfansharif/pookalam/internal/stylize"
)

// PhotoBases is the POOKALAM_BASES value that derives base colours from the
// uploaded portrait.
const PhotoBases = "photo"

type Config struct {
	Size               int
	Rotation           int
	Seed               int64
	Bases              []string // hex base colours; empty selects the flower set
	UsePhotoBases      bool
	PhotoBaseCount     int
	ListenAddr         string
	MaxUploadSizeBytes int64
	MaxUploadPixels    int64 // pixel count an uploaded photo may declare
	Output             string
	DebugRuntime       bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	seed, err := getEnvSeed("POOKALAM_SEED")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Size:               getEnvInt("POOKALAM_SIZE", 600),
		Rotation:           getEnvInt("POOKALAM_ROTATION", 0),
		Seed:               seed,
		PhotoBaseCount:     getEnvInt("POOKALAM_PHOTO_BASES", palette.ShadeCount),
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		MaxUploadSizeBytes: getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 8*1024*1024),
		MaxUploadPixels:    getEnvInt64("MAX_UPLOAD_PIXELS", stylize.MaxPixels),
		Output:             getEnv("POOKALAM_OUTPUT", "onam-pookalam.png"),
		DebugRuntime:       getEnv("POOKALAM_DEBUG_RUNTIME", "") == "1",
	}

	switch bases := strings.TrimSpace(getEnv("POOKALAM_BASES", "")); {
	case strings.EqualFold(bases, PhotoBases):
		cfg.UsePhotoBases = true
	case bases != "":
		cfg.Bases = splitList(bases)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that may also have been set by command line flags.
func (cfg Config) Validate() error {
	if cfg.Size <= 0 {
		return errors.New("pookalam size must be > 0")
	}
	if cfg.MaxUploadSizeBytes <= 0 {
		return errors.New("max upload size must be > 0")
	}
	if cfg.MaxUploadPixels <= 0 {
		return errors.New("max upload pixels must be > 0")
	}
	if cfg.UsePhotoBases && cfg.PhotoBaseCount <= 0 {
		return errors.New("photo base count must be > 0")
	}
	if len(cfg.Bases) > 0 {
		if _, err := palette.ParseBases(cfg.Bases); err != nil {
			return fmt.Errorf("pookalam bases: %w", err)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvSeed reads an explicit seed; unset means time based. A malformed
// seed is an error rather than a silent fallback, so runs stay reproducible.
func getEnvSeed(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Now().Unix(), nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return n, nil
}
