package config

import (
	"os"
	"testing"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadConsumerDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"PGHOST":                 "db",
		"PGDATABASE":             "ops",
		"PGUSER":                 "ops",
		"PGPASSWORD":             "secret",
		"BLOCKCHAIN_UPDATES_URL": "grpc://updates:6870",
	})
	for _, k := range []string{"STARTING_HEIGHT", "START_ROLLBACK_DEPTH", "BATCH_MAX_SIZE", "BATCH_MAX_DELAY_SEC", "METRICS_PORT", "ARGUMENT_ENCODING_REGIME", "TIMESTAMP_ENCODING", "LOG_LEVEL", "LOG_FORMAT"} {
		os.Unsetenv(k)
	}

	c, err := LoadConsumer()
	if err != nil {
		t.Fatalf("LoadConsumer: %v", err)
	}
	if c.StartRollbackDepth != 1 {
		t.Errorf("StartRollbackDepth default = %d, want 1", c.StartRollbackDepth)
	}
	if c.BatchMaxSize != 256 {
		t.Errorf("BatchMaxSize default = %d, want 256", c.BatchMaxSize)
	}
	if c.ArgumentEncodingRegime != "base58" {
		t.Errorf("ArgumentEncodingRegime default = %q, want base58", c.ArgumentEncodingRegime)
	}
}

func TestLoadConsumerRejectsOversizedStartingHeight(t *testing.T) {
	setEnv(t, map[string]string{
		"PGHOST":                 "db",
		"PGDATABASE":             "ops",
		"PGUSER":                 "ops",
		"PGPASSWORD":             "secret",
		"BLOCKCHAIN_UPDATES_URL": "grpc://updates:6870",
		"STARTING_HEIGHT":        "4294967295",
	})
	if _, err := LoadConsumer(); err == nil {
		t.Fatal("expected an error for a STARTING_HEIGHT beyond the upstream's signed 32-bit range")
	}
}

func TestPostgresStringRedactsPassword(t *testing.T) {
	p := Postgres{Host: "db", Port: 5432, Database: "ops", User: "ops", Password: "super-secret"}
	s := p.String()
	if contains(s, "super-secret") {
		t.Fatalf("Postgres.String() must never include the password, got %q", s)
	}
	if !contains(s, "ops") || !contains(s, "db") {
		t.Errorf("Postgres.String() should still identify host/database/user, got %q", s)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
