package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	Catalog struct {
		BaseURL  string        `koanf:"base_url"`
		CacheTTL time.Duration `koanf:"cache_ttl"`
	} `koanf:"catalog"`

	Store struct {
		Backend     string `koanf:"backend"` // "dynamo" or "postgres"
		DynamoTable string `koanf:"dynamo_table"`
		PostgresDSN string `koanf:"postgres_dsn"`
	} `koanf:"store"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
	} `koanf:"redis"`

	Kafka struct {
		Brokers    []string `koanf:"brokers"`
		BadgeTopic string   `koanf:"badge_topic"`
	} `koanf:"kafka"`

	Identity struct {
		ProofSecret string        `koanf:"proof_secret"`
		ProofTTL    time.Duration `koanf:"proof_ttl"`
	} `koanf:"identity"`

	Geocode struct {
		BaseURL string `koanf:"base_url"`
	} `koanf:"geocode"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env overlay (dev/staging/prod). Optional for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix SNAPSHOP_, nested with __)
	// e.g. SNAPSHOP_STORE__POSTGRES_DSN, SNAPSHOP_REDIS__ADDR
	if err := k.Load(env.Provider("SNAPSHOP_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "SNAPSHOP_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url required")
	}
	switch c.Store.Backend {
	case "dynamo":
		if c.Store.DynamoTable == "" {
			return fmt.Errorf("store.dynamo_table required for the dynamo backend")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend must be dynamo or postgres")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required")
	}
	if len(c.Identity.ProofSecret) < 32 {
		return fmt.Errorf("identity.proof_secret must be at least 32 characters")
	}
	return nil
}
