package config // package config loads application configuration from environment variables

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; defaults live in the struct tags.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`   // application environment (dev/test/prod)
	Port string `env:"APP_PORT" envDefault:"8080"` // HTTP port to listen on

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`               // mysql or sqlite
	DBUser     string `env:"DB_USER"`                                    // database username
	DBPass     string `env:"DB_PASS"`                                    // database password (optional)
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`             // database host address
	DBPort     string `env:"DB_PORT" envDefault:"3306"`                  // database port number
	DBName     string `env:"DB_NAME"`                                    // database name
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/slots.sqlite"` // database file when DB_DRIVER=sqlite

	JWTSecret  string `env:"JWT_SECRET,required,notEmpty"` // shared secret of the identity provider
	AdminEmail string `env:"ADMIN_EMAIL"`                  // email allowed on /v1/admin

	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`                 // empty disables payments
	Currency        string `env:"PAYMENT_CURRENCY" envDefault:"cad"` // ISO currency of deposits

	Timezone          string        `env:"APP_TIMEZONE" envDefault:"Local"`       // zone weeks are computed in
	SlotCapacity      int           `env:"SLOT_CAPACITY" envDefault:"1"`          // capacity of a fresh slot
	MinReservations   int           `env:"MIN_RESERVATIONS" envDefault:"5"`       // displayed weekly minimum
	MaxReservations   int           `env:"MAX_RESERVATIONS" envDefault:"10"`      // displayed weekly maximum
	WeekRefresh       time.Duration `env:"WEEK_REFRESH_INTERVAL" envDefault:"1m"` // how often the active week is recomputed
	WhitelistCacheTTL time.Duration `env:"WHITELIST_CACHE_TTL" envDefault:"1m"`   // Redis TTL of whitelist answers
	WeeksAhead        int           `env:"PROVISION_WEEKS_AHEAD" envDefault:"4"`  // future weeks that may be provisioned on read

	RabbitURL       string `env:"RABBITMQ_URL"`                                   // empty disables events
	ConsumerEnabled bool   `env:"RESERVATION_CONSUMER_ENABLED" envDefault:"true"` // run the log consumer in-process
	LogDir          string `env:"LOG_DIR" envDefault:"logs"`                      // where the consumer appends
}

// Load reads an optional .env file and then the process environment into
// a Config.  Values already present in the environment win over .env.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "mysql":
		if cfg.DBUser == "" || cfg.DBName == "" {
			return Config{}, fmt.Errorf("DB_USER and DB_NAME are required for mysql")
		}
	case "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.SlotCapacity < 1 {
		cfg.SlotCapacity = 1
	}
	if cfg.WeeksAhead < 0 {
		cfg.WeeksAhead = 0
	}
	if cfg.WeekRefresh <= 0 {
		cfg.WeekRefresh = time.Minute
	}
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	return cfg, nil
}

// Location resolves Timezone.  "Local" and "" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
