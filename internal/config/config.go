package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Lookup source kinds.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	LookupSource       string `mapstructure:"LOOKUP_SOURCE"`
	LookupCSVPath      string `mapstructure:"LOOKUP_CSV_PATH"`
	LookupTable        string `mapstructure:"LOOKUP_TABLE"`
	LookupGUIDColumn   string `mapstructure:"LOOKUP_GUID_COLUMN"`
	LookupSnomedColumn string `mapstructure:"LOOKUP_SNOMED_COLUMN"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	PseudoRefsetPatterns []string `mapstructure:"PSEUDO_REFSET_PATTERNS"`

	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOOKUP_SOURCE", SourceCSV)
	v.SetDefault("LOOKUP_TABLE", "snomed_lookup")
	v.SetDefault("LOOKUP_GUID_COLUMN", "CodeId")
	v.SetDefault("LOOKUP_SNOMED_COLUMN", "ConceptId")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOOKUP_SOURCE")
	v.BindEnv("LOOKUP_CSV_PATH")
	v.BindEnv("LOOKUP_TABLE")
	v.BindEnv("LOOKUP_GUID_COLUMN")
	v.BindEnv("LOOKUP_SNOMED_COLUMN")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("PSEUDO_REFSET_PATTERNS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.PseudoRefsetPatterns == nil {
		if patterns := v.GetString("PSEUDO_REFSET_PATTERNS"); patterns != "" {
			cfg.PseudoRefsetPatterns = strings.Split(patterns, ",")
		}
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active and requests are not authenticated.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run: the lookup source
// must be fully specified, and production mode must carry a JWT signing key
// so real authentication is enforced.
func (c *Config) Validate() error {
	switch c.LookupSource {
	case SourceCSV:
		if c.LookupCSVPath == "" {
			return fmt.Errorf("LOOKUP_CSV_PATH is required when LOOKUP_SOURCE is %q", SourceCSV)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when LOOKUP_SOURCE is %q", SourcePostgres)
		}
		if c.LookupTable == "" {
			return fmt.Errorf("LOOKUP_TABLE is required when LOOKUP_SOURCE is %q", SourcePostgres)
		}
	default:
		return fmt.Errorf("LOOKUP_SOURCE must be %q or %q, got %q", SourceCSV, SourcePostgres, c.LookupSource)
	}

	if c.LookupGUIDColumn == "" || c.LookupSnomedColumn == "" {
		return fmt.Errorf("LOOKUP_GUID_COLUMN and LOOKUP_SNOMED_COLUMN must both be set")
	}

	if c.IsProduction() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required in production")
	}

	return nil
}
