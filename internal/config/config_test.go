package config

import (
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"POOKALAM_SIZE", "POOKALAM_ROTATION", "POOKALAM_SEED", "POOKALAM_BASES",
		"POOKALAM_PHOTO_BASES", "LISTEN_ADDR", "MAX_UPLOAD_SIZE_BYTES", "MAX_UPLOAD_PIXELS",
		"POOKALAM_OUTPUT", "POOKALAM_DEBUG_RUNTIME",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Size != 600 || cfg.Rotation != 0 {
		t.Fatalf("unexpected size/rotation: %d/%d", cfg.Size, cfg.Rotation)
	}
	if cfg.ListenAddr != ":8080" || cfg.Output != "onam-pookalam.png" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxUploadSizeBytes != 8*1024*1024 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadSizeBytes)
	}
	if cfg.MaxUploadPixels != 40_000_000 {
		t.Fatalf("unexpected pixel limit %d", cfg.MaxUploadPixels)
	}
	if len(cfg.Bases) != 0 || cfg.UsePhotoBases || cfg.DebugRuntime {
		t.Fatalf("unexpected bases config: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POOKALAM_SIZE", "800")
	t.Setenv("POOKALAM_ROTATION", "-3")
	t.Setenv("POOKALAM_SEED", "42")
	t.Setenv("POOKALAM_BASES", "#790922, d16908 ,")
	t.Setenv("POOKALAM_DEBUG_RUNTIME", "1")
	t.Setenv("MAX_UPLOAD_PIXELS", "1000000")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Size != 800 || cfg.Rotation != -3 || cfg.Seed != 42 || !cfg.DebugRuntime || cfg.MaxUploadPixels != 1000000 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Bases) != 2 || cfg.Bases[0] != "#790922" || cfg.Bases[1] != "d16908" {
		t.Fatalf("unexpected bases: %q", cfg.Bases)
	}
}

func TestLoadPhotoBases(t *testing.T) {
	clearEnv(t)
	t.Setenv("POOKALAM_BASES", "Photo")
	t.Setenv("POOKALAM_PHOTO_BASES", "3")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.UsePhotoBases || cfg.PhotoBaseCount != 3 || len(cfg.Bases) != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	for name, env := range map[string][2]string{
		"size":        {"POOKALAM_SIZE", "0"},
		"upload":      {"MAX_UPLOAD_SIZE_BYTES", "-1"},
		"pixels":      {"MAX_UPLOAD_PIXELS", "0"},
		"bases":       {"POOKALAM_BASES", "#12345"},
		"bases-digit": {"POOKALAM_BASES", "#79092g"},
		"seed":        {"POOKALAM_SEED", "tomorrow"},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env[0], env[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", env[0], env[1])
			}
		})
	}
}
