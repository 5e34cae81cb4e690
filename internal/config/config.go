package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends
const (
	StoreSQLite   = "sqlite"
	StoreSupabase = "supabase"
	StoreMemory   = "memory"
)

// Oracle providers
const (
	OracleGemini     = "gemini"
	OracleOpenRouter = "openrouter"
)

// Config holds server configuration
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	DBPath       string `env:"DB_PATH" envDefault:"game.db"`
	SupabaseURL  string `env:"SUPABASE_URL"`
	SupabaseKey  string `env:"SUPABASE_KEY"`

	OracleProvider   string        `env:"ORACLE_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiModel      string        `env:"GEMINI_MODEL"`
	OpenRouterAPIKey string        `env:"OPENROUTER_API_KEY"`
	OpenRouterModel  string        `env:"OPENROUTER_MODEL"`
	OracleTimeout    time.Duration `env:"ORACLE_TIMEOUT" envDefault:"45s"`
	Language         string        `env:"NARRATION_LANGUAGE" envDefault:"English"`

	RosterPath    string   `env:"ROSTER_PATH"`
	GameOverRules []string `env:"GAME_OVER_RULES" envSeparator:";" envDefault:"all(characters, {.hp <= 0})"`

	GMSecret      string            `env:"GM_SECRET"`
	PlayerSecrets map[string]string `env:"PLAYER_SECRETS" envSeparator:"," envKeyValSeparator:":"`
	JWTSecret     string            `env:"JWT_SECRET"`
	TokenTTL      time.Duration     `env:"TOKEN_TTL" envDefault:"12h"`

	RateLimit    float64 `env:"RATE_LIMIT" envDefault:"20"`
	RateBurst    int     `env:"RATE_BURST" envDefault:"40"`
	MaxBodyBytes int64   `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"90s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// Load reads the environment, then applies command-line overrides
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port (default: PORT or 8080)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to sqlite database (default: DB_PATH or game.db)")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "session store: sqlite|supabase|memory")
	fs.StringVar(&cfg.OracleProvider, "oracle", cfg.OracleProvider, "narration oracle: gemini|openrouter")
	fs.StringVar(&cfg.RosterPath, "roster", cfg.RosterPath, "path to a roster YAML file (default: embedded crew)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks option values that env parsing cannot
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.OracleProvider = strings.ToLower(strings.TrimSpace(c.OracleProvider))

	switch c.StoreBackend {
	case StoreSQLite, StoreMemory:
	case StoreSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("STORE_BACKEND=supabase requires SUPABASE_URL and SUPABASE_KEY")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	switch c.OracleProvider {
	case OracleGemini, OracleOpenRouter:
	default:
		return fmt.Errorf("unknown oracle provider %q", c.OracleProvider)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	return nil
}

// OracleAPIKey returns the credential of the selected provider
func (c Config) OracleAPIKey() string {
	if c.OracleProvider == OracleOpenRouter {
		return c.OpenRouterAPIKey
	}
	return c.GeminiAPIKey
}
