// Package config loads and validates application configuration.
//
// Configuration comes from environment variables with the SUPPORTBOT_ prefix,
// optionally layered over a config.yaml in the working directory. Secrets are
// masked in String() and LogValue() so a dumped config never leaks keys.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors returned by Validate. Callers use errors.Is to tell
// configuration problems apart from IO problems.
var (
	ErrMissingAPIKey     = errors.New("gemini api key is required")
	ErrMissingPostgres   = errors.New("postgres connection settings are incomplete")
	ErrInvalidThreshold  = errors.New("relevance threshold must be positive")
	ErrInvalidEscalation = errors.New("escalation method must be email, zendesk or mock")
	ErrMissingSMTP       = errors.New("smtp settings are required for email escalation")
	ErrMissingZendesk    = errors.New("zendesk settings are required for zendesk escalation")
)

// Postgres holds database connection settings.
type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SMTP holds outbound mail settings for email escalation.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Zendesk holds ticket API settings for zendesk escalation.
type Zendesk struct {
	Subdomain string
	Email     string
	APIToken  string
}

// Shipping holds the order-status API settings. An empty BaseURL puts the
// shipping client in mock mode.
type Shipping struct {
	BaseURL string
	APIKey  string
}

// Brand holds the customer-facing identity of the bot.
type Brand struct {
	Name      string
	WelcomeNL string
	WelcomeEN string
	UseEmojis bool
}

// Config is the root application configuration.
type Config struct {
	HTTPAddr string

	// AI provider settings. Provider selects the genkit plugin; ModelName and
	// EmbedderModel are plugin-local names (without the provider prefix).
	Provider      string
	ModelName     string
	EmbedderModel string
	GeminiAPIKey  string

	Postgres Postgres

	// KnowledgeDir is the directory walked during ingestion.
	KnowledgeDir string
	// SessionDir is where per-session state files live.
	SessionDir string

	// RelevanceThreshold is the maximum vector distance a chunk may have to
	// be used as answer context. Larger distances are discarded.
	RelevanceThreshold float64
	// CacheTTL bounds how long a retrieval result is reused for the same
	// search query.
	CacheTTL time.Duration

	// EscalationMethod is "email", "zendesk" or "mock".
	EscalationMethod string
	SMTP             SMTP
	Zendesk          Zendesk

	Shipping Shipping
	Brand    Brand

	// AdminKey guards the reindex endpoint. Empty disables it.
	AdminKey string

	CORSOrigins []string
	TrustProxy  bool

	LogLevel string
	LogJSON  bool
}

// Load reads configuration from the environment and an optional config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("SUPPORTBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVariables(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr:      v.GetString("http_addr"),
		Provider:      v.GetString("provider"),
		ModelName:     v.GetString("model_name"),
		EmbedderModel: v.GetString("embedder_model"),
		GeminiAPIKey:  v.GetString("gemini_api_key"),
		Postgres: Postgres{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetInt("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			DBName:   v.GetString("postgres.dbname"),
			SSLMode:  v.GetString("postgres.sslmode"),
		},
		KnowledgeDir:       v.GetString("knowledge_dir"),
		SessionDir:         v.GetString("session_dir"),
		RelevanceThreshold: v.GetFloat64("relevance_threshold"),
		CacheTTL:           v.GetDuration("cache_ttl"),
		EscalationMethod:   v.GetString("escalation.method"),
		SMTP: SMTP{
			Host:     v.GetString("escalation.smtp.host"),
			Port:     v.GetInt("escalation.smtp.port"),
			Username: v.GetString("escalation.smtp.username"),
			Password: v.GetString("escalation.smtp.password"),
			From:     v.GetString("escalation.smtp.from"),
			To:       v.GetString("escalation.smtp.to"),
		},
		Zendesk: Zendesk{
			Subdomain: v.GetString("escalation.zendesk.subdomain"),
			Email:     v.GetString("escalation.zendesk.email"),
			APIToken:  v.GetString("escalation.zendesk.api_token"),
		},
		Shipping: Shipping{
			BaseURL: v.GetString("shipping.base_url"),
			APIKey:  v.GetString("shipping.api_key"),
		},
		Brand: Brand{
			Name:      v.GetString("brand.name"),
			WelcomeNL: v.GetString("brand.welcome_nl"),
			WelcomeEN: v.GetString("brand.welcome_en"),
			UseEmojis: v.GetBool("brand.use_emojis"),
		},
		AdminKey:    v.GetString("admin_key"),
		CORSOrigins: v.GetStringSlice("cors_origins"),
		TrustProxy:  v.GetBool("trust_proxy"),
		LogLevel:    v.GetString("log_level"),
		LogJSON:     v.GetBool("log_json"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("provider", "gemini")
	v.SetDefault("model_name", "gemini-2.0-flash")
	v.SetDefault("embedder_model", "text-embedding-004")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "supportbot")
	v.SetDefault("postgres.dbname", "supportbot")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("knowledge_dir", "knowledge_base")
	v.SetDefault("session_dir", "sessions")

	v.SetDefault("relevance_threshold", 1.2)
	v.SetDefault("cache_ttl", 5*time.Minute)

	v.SetDefault("escalation.method", "mock")
	v.SetDefault("escalation.smtp.port", 587)

	v.SetDefault("brand.name", "GroundCover")
	v.SetDefault("brand.use_emojis", true)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables makes nested keys reachable through flat env vars,
// e.g. SUPPORTBOT_POSTGRES_PASSWORD for postgres.password.
func bindEnvVariables(v *viper.Viper) {
	keys := []string{
		"http_addr",
		"provider", "model_name", "embedder_model", "gemini_api_key",
		"postgres.host", "postgres.port", "postgres.user",
		"postgres.password", "postgres.dbname", "postgres.sslmode",
		"knowledge_dir", "session_dir",
		"relevance_threshold", "cache_ttl",
		"escalation.method",
		"escalation.smtp.host", "escalation.smtp.port",
		"escalation.smtp.username", "escalation.smtp.password",
		"escalation.smtp.from", "escalation.smtp.to",
		"escalation.zendesk.subdomain", "escalation.zendesk.email",
		"escalation.zendesk.api_token",
		"shipping.base_url", "shipping.api_key",
		"brand.name", "brand.welcome_nl", "brand.welcome_en", "brand.use_emojis",
		"admin_key", "cors_origins", "trust_proxy",
		"log_level", "log_json",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// Validate checks the settings a running server cannot do without.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.Provider == "gemini" {
		return ErrMissingAPIKey
	}
	if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.DBName == "" {
		return ErrMissingPostgres
	}
	if c.RelevanceThreshold <= 0 {
		return ErrInvalidThreshold
	}

	switch c.EscalationMethod {
	case "email":
		if c.SMTP.Host == "" || c.SMTP.From == "" || c.SMTP.To == "" {
			return ErrMissingSMTP
		}
	case "zendesk":
		if c.Zendesk.Subdomain == "" || c.Zendesk.Email == "" || c.Zendesk.APIToken == "" {
			return ErrMissingZendesk
		}
	case "mock":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidEscalation, c.EscalationMethod)
	}

	return nil
}

// PostgresURL builds a postgres:// URL for migrations and pool creation.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:   fmt.Sprintf("%s:%d", c.Postgres.Host, c.Postgres.Port),
		Path:   c.Postgres.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.Postgres.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// FullModelName returns the provider-qualified model name genkit expects.
func (c *Config) FullModelName() string {
	switch c.Provider {
	case "gemini", "":
		return "googleai/" + c.ModelName
	default:
		return c.Provider + "/" + c.ModelName
	}
}

// FullEmbedderName returns the provider-qualified embedder name.
func (c *Config) FullEmbedderName() string {
	switch c.Provider {
	case "gemini", "":
		return "googleai/" + c.EmbedderModel
	default:
		return c.Provider + "/" + c.EmbedderModel
	}
}

// maskSecret hides all but a short prefix of a secret value.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// String renders the config with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{addr=%s provider=%s model=%s embedder=%s api_key=%s db=%s@%s:%d/%s escalation=%s}",
		c.HTTPAddr, c.Provider, c.ModelName, c.EmbedderModel,
		maskSecret(c.GeminiAPIKey),
		c.Postgres.User, c.Postgres.Host, c.Postgres.Port, c.Postgres.DBName,
		c.EscalationMethod,
	)
}

// LogValue lets slog render the config without leaking secrets.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", c.HTTPAddr),
		slog.String("provider", c.Provider),
		slog.String("model", c.ModelName),
		slog.String("embedder", c.EmbedderModel),
		slog.String("api_key", maskSecret(c.GeminiAPIKey)),
		slog.String("postgres_host", c.Postgres.Host),
		slog.String("postgres_db", c.Postgres.DBName),
		slog.String("escalation", c.EscalationMethod),
		slog.String("knowledge_dir", c.KnowledgeDir),
		slog.String("session_dir", c.SessionDir),
	)
}
