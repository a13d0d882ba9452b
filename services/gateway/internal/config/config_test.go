package config

import (
	"testing"
	"time"
)

func TestConfigInit_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_PORT", "AUTOSAVE_DEBOUNCE", "AUTOSAVE_MAX_WAIT", "GEMINI_MODEL", "RUN_TOPIC"} {
		t.Setenv(key, "")
	}

	cfg := ConfigInit()

	if cfg.HTTPPort != "8000" {
		t.Fatalf("unexpected http port %q", cfg.HTTPPort)
	}
	if cfg.AutosaveDebounce != 1500*time.Millisecond || cfg.AutosaveMaxWait != 10*time.Second {
		t.Fatalf("unexpected autosave timings: %v %v", cfg.AutosaveDebounce, cfg.AutosaveMaxWait)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Fatalf("unexpected model %q", cfg.GeminiModel)
	}
	if cfg.RunTopic != "runs" {
		t.Fatalf("unexpected topic %q", cfg.RunTopic)
	}
}

func TestConfigInit_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("AUTOSAVE_DEBOUNCE", "250ms")
	t.Setenv("AUTOSAVE_MAX_WAIT", "-1s")
	t.Setenv("REDIS_DB", "three")
	t.Setenv("DB_PORT", "6543")
	for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
		t.Setenv(key, "")
	}

	cfg := ConfigInit()

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.AutosaveDebounce != 250*time.Millisecond {
		t.Fatalf("unexpected debounce %v", cfg.AutosaveDebounce)
	}
	if cfg.AutosaveMaxWait != 10*time.Second {
		t.Fatalf("negative max wait should fall back, got %v", cfg.AutosaveMaxWait)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("invalid redis db should fall back, got %d", cfg.RedisDB)
	}
	if cfg.DSN() != "host=localhost port=6543 user=postgres password=admin dbname=coderoom sslmode=disable" {
		t.Fatalf("unexpected dsn %q", cfg.DSN())
	}
}
