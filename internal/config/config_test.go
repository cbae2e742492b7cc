package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	t.Parallel()

	raw := []byte(`
storage:
  driver: sqlite
  dsn: file:relay.db
providers:
  openai:
    maxWait: 45s
platforms:
  - name: LinkedIn
    version: "3"
    provider: anthropic
    instructions: Write a LinkedIn post.
`)

	cfg, err := parse(raw, defaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.DSN != "file:relay.db" {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Storage.Airtable.ContentTable != "Post Content" {
		t.Fatalf("airtable defaults lost: %+v", cfg.Storage.Airtable)
	}
	if cfg.Providers.OpenAI.MaxWait != 45*time.Second {
		t.Fatalf("unexpected max wait: %s", cfg.Providers.OpenAI.MaxWait)
	}
	if cfg.Providers.OpenAI.PollInterval != 2*time.Second {
		t.Fatalf("poll interval default lost: %s", cfg.Providers.OpenAI.PollInterval)
	}
	if len(cfg.Platforms) != 1 || cfg.Platforms[0].Name != "LinkedIn" {
		t.Fatalf("platform list should be replaced: %+v", cfg.Platforms)
	}
}

func TestParseWithoutPlatformsKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := parse([]byte("logging:\n  level: debug\n"), defaultConfig())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Platforms) != 1 || cfg.Platforms[0].Name != "X" {
		t.Fatalf("expected default platforms, got %+v", cfg.Platforms)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected level: %s", cfg.Logging.Level)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: postgres\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ENV", "cloud")
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://relay@localhost/relay")
	t.Setenv(openAIAPIKeyEnv, "sk-test")
	t.Setenv(kafkaBrokersEnv, "k1:9092, k2:9092")
	t.Setenv(s3PathStyleEnv, "true")

	cfg := Load()

	if cfg.Storage.Driver != DriverPostgres {
		t.Fatalf("unexpected driver: %s", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN != "postgres://relay@localhost/relay" {
		t.Fatalf("unexpected dsn: %s", cfg.Storage.DSN)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if !cfg.Media.S3.UsePathStyle {
		t.Fatalf("expected path style addressing")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateReportsMissingSettings(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Platforms = append(cfg.Platforms, PlatformConfig{Name: "x", Provider: ProviderCohere})

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{airtableAPIKeyEnv, airtableBaseIDEnv, openAIAPIKeyEnv, cohereAPIKeyEnv, "configured twice"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
	if strings.Count(msg, openAIAPIKeyEnv) != 1 {
		t.Fatalf("duplicate messages not collapsed: %q", msg)
	}
}

func TestPlatformInstructionsFallback(t *testing.T) {
	t.Parallel()

	x := PlatformConfig{Name: "X"}
	text, err := x.PlatformInstructions()
	if err != nil {
		t.Fatalf("instructions: %v", err)
	}
	if !strings.Contains(text, "X (formerly Twitter)") {
		t.Fatalf("expected embedded X prompt, got %q", text)
	}

	if _, err := (PlatformConfig{Name: "Mastodon"}).PlatformInstructions(); err == nil {
		t.Fatalf("expected error for platform without instructions")
	}

	inline := PlatformConfig{Name: "Mastodon", Instructions: "Write a toot."}
	if text, _ := inline.PlatformInstructions(); text != "Write a toot." {
		t.Fatalf("unexpected inline instructions: %q", text)
	}
}

func TestStructurerSchemaEmbedded(t *testing.T) {
	t.Parallel()

	schema, err := defaultConfig().StructurerSchema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(schema, `"summary"`) {
		t.Fatalf("unexpected schema: %s", schema)
	}
}
