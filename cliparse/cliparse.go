// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultPort         = 3318
	DefaultSiteOrigin   = "https://bus2ride.com"
	DefaultAnalyticsTTL = 60 * time.Second
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	AdminKey      string
	VoterSalt     string
	SiteOrigin    string
	AnalyticsTTL  time.Duration
	RedisURL      string
	TrafficAPIKey string
	Seed          bool
}

// fileConfig mirrors Config for the optional TOML file.
type fileConfig struct {
	Port          int    `toml:"port"`
	DatabaseURL   string `toml:"database_url"`
	DatabaseType  string `toml:"database_type"`
	AdminKey      string `toml:"admin_key"`
	VoterSalt     string `toml:"voter_salt"`
	SiteOrigin    string `toml:"site_origin"`
	AnalyticsTTL  string `toml:"analytics_ttl"`
	RedisURL      string `toml:"redis_url"`
	TrafficAPIKey string `toml:"traffic_api_key"`
	Seed          bool   `toml:"seed"`
}

// LoadEnv loads variables from a .env file into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a TOML config file.
func LoadFile(path string) (Config, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := Config{
		Port:          fc.Port,
		DatabaseURL:   fc.DatabaseURL,
		DatabaseType:  fc.DatabaseType,
		AdminKey:      fc.AdminKey,
		VoterSalt:     fc.VoterSalt,
		SiteOrigin:    fc.SiteOrigin,
		RedisURL:      fc.RedisURL,
		TrafficAPIKey: fc.TrafficAPIKey,
		Seed:          fc.Seed,
	}
	if fc.AnalyticsTTL != "" {
		ttl, err := time.ParseDuration(fc.AnalyticsTTL)
		if err != nil {
			return Config{}, fmt.Errorf("invalid analytics_ttl: %w", err)
		}
		cfg.AnalyticsTTL = ttl
	}
	return cfg, nil
}

// ParseFlags builds the config from flags, then env, then the optional
// TOML file, then defaults.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var configFile, ttl string

	fs := flag.NewFlagSet("livepolls", flag.ContinueOnError)

	fs.StringVar(&configFile, "c", "", "Path to TOML config file")

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.SiteOrigin, "origin", "", "Public site origin used in embed codes")
	fs.StringVar(&ttl, "analytics-ttl", "", "How long computed analytics are cached")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for the shared analytics cache")
	fs.BoolVar(&cfg.Seed, "seed", false, "Load demo content into an empty database")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKey, "admin-key", "", "Content admin key (prefer env)")
	fs.StringVar(&cfg.VoterSalt, "voter-salt", "", "Voter fingerprint salt (prefer env)")
	fs.StringVar(&cfg.TrafficAPIKey, "traffic-key", "", "TomTom traffic API key (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return Config{}, errors.New("invalid -analytics-ttl")
		}
		cfg.AnalyticsTTL = d
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		}
	}
	envString(&cfg.DatabaseURL, "DATABASE_URL")
	envString(&cfg.DatabaseType, "DATABASE_TYPE")
	envString(&cfg.AdminKey, "ADMIN_KEY")
	envString(&cfg.VoterSalt, "VOTER_SALT")
	envString(&cfg.SiteOrigin, "SITE_ORIGIN")
	envString(&cfg.RedisURL, "REDIS_URL")
	envString(&cfg.TrafficAPIKey, "TOMTOM_API_KEY")
	if cfg.AnalyticsTTL == 0 {
		if s := os.Getenv("ANALYTICS_TTL"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return Config{}, errors.New("invalid ANALYTICS_TTL env variable")
			}
			cfg.AnalyticsTTL = d
		}
	}
	if !cfg.Seed && os.Getenv("SEED") == "true" {
		cfg.Seed = true
	}

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		fileCfg, err := LoadFile(configFile)
		if err != nil {
			return Config{}, err
		}
		cfg = merge(cfg, fileCfg)
	}

	// Defaults
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = "sqlite"
	}
	if cfg.SiteOrigin == "" {
		cfg.SiteOrigin = DefaultSiteOrigin
	}
	if cfg.AnalyticsTTL == 0 {
		cfg.AnalyticsTTL = DefaultAnalyticsTTL
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// validate reports every missing or invalid setting at once.
func (c Config) validate() error {
	var result error
	if c.DatabaseURL == "" {
		result = multierror.Append(result, errors.New("database URL required (use -d or DATABASE_URL env)"))
	}
	if c.DatabaseType != "sqlite" && c.DatabaseType != "postgres" {
		result = multierror.Append(result, fmt.Errorf("unsupported database type %q", c.DatabaseType))
	}

	// Secrets - MUST be provided
	if c.AdminKey == "" {
		result = multierror.Append(result, errors.New("ADMIN_KEY required"))
	}
	if c.VoterSalt == "" {
		result = multierror.Append(result, errors.New("VOTER_SALT required"))
	}
	if c.AnalyticsTTL < 0 {
		result = multierror.Append(result, errors.New("analytics TTL must not be negative"))
	}
	return result
}

func envString(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// merge fills zero fields of cfg from file.
func merge(cfg, file Config) Config {
	if cfg.Port == 0 {
		cfg.Port = file.Port
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = file.DatabaseURL
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = file.DatabaseType
	}
	if cfg.AdminKey == "" {
		cfg.AdminKey = file.AdminKey
	}
	if cfg.VoterSalt == "" {
		cfg.VoterSalt = file.VoterSalt
	}
	if cfg.SiteOrigin == "" {
		cfg.SiteOrigin = file.SiteOrigin
	}
	if cfg.AnalyticsTTL == 0 {
		cfg.AnalyticsTTL = file.AnalyticsTTL
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = file.RedisURL
	}
	if cfg.TrafficAPIKey == "" {
		cfg.TrafficAPIKey = file.TrafficAPIKey
	}
	cfg.Seed = cfg.Seed || file.Seed
	return cfg
}
