package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		HTTPAddr:      ":8080",
		Provider:      "gemini",
		ModelName:     "gemini-2.0-flash",
		EmbedderModel: "text-embedding-004",
		GeminiAPIKey:  "test-key-123456",
		Postgres: Postgres{
			Host:    "localhost",
			Port:    5432,
			User:    "supportbot",
			DBName:  "supportbot",
			SSLMode: "disable",
		},
		RelevanceThreshold: 1.2,
		CacheTTL:           5 * time.Minute,
		EscalationMethod:   "mock",
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPPORTBOT_GEMINI_API_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.RelevanceThreshold != 1.2 {
		t.Errorf("RelevanceThreshold = %v, want 1.2", cfg.RelevanceThreshold)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.EscalationMethod != "mock" {
		t.Errorf("EscalationMethod = %q, want mock", cfg.EscalationMethod)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want 5432", cfg.Postgres.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SUPPORTBOT_POSTGRES_PASSWORD", "sekret")
	t.Setenv("SUPPORTBOT_HTTP_ADDR", ":9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Postgres.Password != "sekret" {
		t.Errorf("Postgres.Password = %q, want sekret", cfg.Postgres.Password)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want :9999", cfg.HTTPAddr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing api key", func(c *Config) { c.GeminiAPIKey = "" }, ErrMissingAPIKey},
		{"missing postgres host", func(c *Config) { c.Postgres.Host = "" }, ErrMissingPostgres},
		{"missing postgres db", func(c *Config) { c.Postgres.DBName = "" }, ErrMissingPostgres},
		{"zero threshold", func(c *Config) { c.RelevanceThreshold = 0 }, ErrInvalidThreshold},
		{"negative threshold", func(c *Config) { c.RelevanceThreshold = -1 }, ErrInvalidThreshold},
		{"unknown escalation", func(c *Config) { c.EscalationMethod = "pigeon" }, ErrInvalidEscalation},
		{"email without smtp", func(c *Config) { c.EscalationMethod = "email" }, ErrMissingSMTP},
		{"zendesk without creds", func(c *Config) { c.EscalationMethod = "zendesk" }, ErrMissingZendesk},
		{
			"email with smtp",
			func(c *Config) {
				c.EscalationMethod = "email"
				c.SMTP = SMTP{Host: "smtp.example.com", Port: 587, From: "bot@example.com", To: "support@example.com"}
			},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresURL(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "p@ss"

	got := cfg.PostgresURL()
	if !strings.HasPrefix(got, "postgres://") {
		t.Errorf("PostgresURL() = %q, want postgres:// prefix", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Errorf("PostgresURL() = %q, want sslmode param", got)
	}
	if strings.Contains(got, "p@ss@") {
		t.Errorf("PostgresURL() = %q, password not escaped", got)
	}
}

func TestFullModelName(t *testing.T) {
	cfg := validConfig()
	if got := cfg.FullModelName(); got != "googleai/gemini-2.0-flash" {
		t.Errorf("FullModelName() = %q", got)
	}
	if got := cfg.FullEmbedderName(); got != "googleai/text-embedding-004" {
		t.Errorf("FullEmbedderName() = %q", got)
	}
}

func TestSecretMasking(t *testing.T) {
	cfg := validConfig()
	cfg.GeminiAPIKey = "super-secret-value"

	out := cfg.String()
	if strings.Contains(out, "super-secret-value") {
		t.Errorf("String() leaked the api key: %s", out)
	}
	if !strings.Contains(out, "supe****") {
		t.Errorf("String() should contain masked prefix, got %s", out)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"ab", "****"},
		{"abcd", "****"},
		{"abcdefgh", "abcd****"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
