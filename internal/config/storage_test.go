package config

import (
	"strings"
	"testing"
)

func TestPostgresConnectionString(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "pass word='quoted'"

	dsn := cfg.PostgresConnectionString()
	for _, want := range []string{"host=localhost", "port=5432", "user=nulland", "dbname=nulland", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
	// Special characters in the password survive quoting
	if !strings.Contains(dsn, `password='pass word=\'quoted\''`) {
		t.Errorf("DSN password not quoted: %q", dsn)
	}
}

func TestPostgresURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "p@ss/word"

	u := cfg.PostgresURL()
	if !strings.HasPrefix(u, "postgres://") {
		t.Errorf("URL = %q, want postgres:// scheme", u)
	}
	if strings.Contains(u, "p@ss/word") {
		t.Errorf("URL %q contains unescaped password", u)
	}
	if !strings.HasSuffix(u, "sslmode=disable") {
		t.Errorf("URL = %q, want sslmode query", u)
	}
}
