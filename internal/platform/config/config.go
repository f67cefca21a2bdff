package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Overland-East-Bay/club-membership-engine/internal/app/clubs"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// Engine holds the constants the engine is configured with.
type Engine struct {
	CreationFee        uint64 `env:"CLUB_CREATION_FEE"          envDefault:"100"`
	MaxYears           uint32 `env:"CLUB_MAX_YEARS"             envDefault:"100"`
	YearDurationMillis uint64 `env:"CLUB_YEAR_DURATION_MS"      envDefault:"31536000000"`
	InitialClubID      uint64 `env:"CLUB_INITIAL_ID"            envDefault:"0"`
	ExistentialDeposit uint64 `env:"LEDGER_EXISTENTIAL_DEPOSIT" envDefault:"1"`

	// Genesis lists starting free balances, e.g. "alice=1000,bob=500".
	// Accounts that already exist keep their balance.
	Genesis map[string]uint64 `env:"LEDGER_GENESIS" envKeyValSeparator:"="`
}

// Server configures the HTTP host.
type Server struct {
	Port           string        `env:"PORT"            envDefault:"8080"`
	AppEnv         string        `env:"APP_ENV"         envDefault:"development"`
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	ShutdownGrace  time.Duration `env:"SHUTDOWN_GRACE"  envDefault:"10s"`

	// AuthMode is "header" (X-Account-Id / X-System-Key) or "dev", which
	// falls back to DevAccount when no account header is sent.
	AuthMode   string `env:"AUTH_MODE"   envDefault:"header"`
	SystemKey  string `env:"SYSTEM_KEY"`
	DevAccount string `env:"DEV_ACCOUNT" envDefault:"dev-account"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

type Postgres struct {
	DatabaseURL string `env:"DATABASE_URL"`
	MaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns    int32  `env:"DB_MIN_CONNS" envDefault:"1"`
}

type Config struct {
	Engine   Engine
	Server   Server
	Postgres Postgres
}

// Load reads .env files when present, then parses the environment.
func Load() (Config, error) {
	// Missing files are fine; the process environment still applies.
	_ = godotenv.Load(".env", ".env.local")
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Clubs().Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	for id, free := range c.Engine.Genesis {
		if id == "" {
			return errors.New("LEDGER_GENESIS has an empty account id")
		}
		if free < c.Engine.ExistentialDeposit {
			return fmt.Errorf("LEDGER_GENESIS balance for %q is below the existential deposit", id)
		}
	}
	switch c.Server.StorageBackend {
	case "memory":
	case "postgres":
		if c.Postgres.DatabaseURL == "" {
			return errors.New("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (expected memory|postgres)", c.Server.StorageBackend)
	}
	switch c.Server.AuthMode {
	case "header", "dev":
	default:
		return fmt.Errorf("unknown AUTH_MODE %q (expected header|dev)", c.Server.AuthMode)
	}
	return nil
}

// Clubs returns the engine constants in domain units.
func (c Config) Clubs() clubs.Config {
	return clubs.Config{
		CreationFee:  domain.Balance(c.Engine.CreationFee),
		MaxYears:     domain.Years(c.Engine.MaxYears),
		YearDuration: domain.Moment(c.Engine.YearDurationMillis),
	}
}

func (c Config) InitialClubID() domain.ClubID { return domain.ClubID(c.Engine.InitialClubID) }

func (c Config) ExistentialDeposit() domain.Balance {
	return domain.Balance(c.Engine.ExistentialDeposit)
}

// GenesisBalances returns the starting balances in domain units.
func (c Config) GenesisBalances() map[domain.AccountID]domain.Balance {
	out := make(map[domain.AccountID]domain.Balance, len(c.Engine.Genesis))
	for id, free := range c.Engine.Genesis {
		out[domain.AccountID(id)] = domain.Balance(free)
	}
	return out
}
