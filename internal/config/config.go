// Package config assembles the runtime configuration. Sources are applied in
// increasing priority: defaults, the JSON file named by CONFIG (or -c),
// environment variables (optionally loaded from .env), command-line flags.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	SessionSecret       string        `env:"SESSION_SECRET" validate:"required"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" validate:"required"`
	SessionTTL          time.Duration `env:"SESSION_TTL" validate:"gt=0"`
	SessionRedisURL     string        `env:"SESSION_REDIS_URL" validate:"omitempty,url"`
	BcryptCost          int           `env:"BCRYPT_COST" validate:"min=4,max=31"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	ConfigFile          string        `env:"CONFIG"`
}

// jsonConfig mirrors Config in the JSON file. Durations are strings such as "10s".
type jsonConfig struct {
	RunAddr             string `json:"server_address"`
	LogLevel            string `json:"log_level"`
	DBFileName          string `json:"file_storage_path"`
	DatabaseDSN         string `json:"database_dsn"`
	DBConnectionTimeout string `json:"db_connection_timeout"`
	SessionSecret       string `json:"session_secret"`
	SessionCookieName   string `json:"session_cookie_name"`
	SessionTTL          string `json:"session_ttl"`
	SessionRedisURL     string `json:"session_redis_url"`
	BcryptCost          int    `json:"bcrypt_cost"`
	TrustedSubnet       string `json:"trusted_subnet"`
}

var defaultConfig = Config{
	RunAddr:             ":3000",
	LogLevel:            "info",
	DBFileName:          "users.json",
	DBConnectionTimeout: 10 * time.Second,
	SessionCookieName:   "session",
	SessionTTL:          24 * time.Hour,
	BcryptCost:          10,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true
	}

	return err == nil && !info.IsDir()
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("filepath", validateFilePath); err != nil {
		return err
	}

	return validate.Struct(c)
}

// parseFlags binds command-line flags to a scratch Config and reports which
// flags were given explicitly.
func parseFlags(args []string) (*Config, map[string]bool, error) {
	values := &Config{}
	flags := flag.NewFlagSet("notes", flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", "", "address and port to run server")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")
	flags.StringVar(&values.DBFileName, "f", "", "JSON file with the users store")
	flags.StringVar(&values.DatabaseDSN, "d", "", "a string with the database connection details")
	flags.StringVar(&values.SessionSecret, "s", "", "secret used to sign sessions")
	flags.StringVar(&values.SessionRedisURL, "r", "", "redis URL of the session store")
	flags.StringVar(&values.TrustedSubnet, "t", "", "CIDR allowed to read internal stats")
	flags.StringVar(&values.ConfigFile, "c", "", "JSON configuration file")
	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	return values, set, nil
}

func (c *Config) applyFlags(values *Config, set map[string]bool) {
	if set["a"] {
		c.RunAddr = values.RunAddr
	}
	if set["l"] {
		c.LogLevel = values.LogLevel
	}
	if set["f"] {
		c.DBFileName = values.DBFileName
	}
	if set["d"] {
		c.DatabaseDSN = values.DatabaseDSN
	}
	if set["s"] {
		c.SessionSecret = values.SessionSecret
	}
	if set["r"] {
		c.SessionRedisURL = values.SessionRedisURL
	}
	if set["t"] {
		c.TrustedSubnet = values.TrustedSubnet
	}
	if set["c"] {
		c.ConfigFile = values.ConfigFile
	}
}

func (c *Config) applyJSON(fileName string) error {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var values jsonConfig
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if values.RunAddr != "" {
		c.RunAddr = values.RunAddr
	}
	if values.LogLevel != "" {
		c.LogLevel = values.LogLevel
	}
	if values.DBFileName != "" {
		c.DBFileName = values.DBFileName
	}
	if values.DatabaseDSN != "" {
		c.DatabaseDSN = values.DatabaseDSN
	}
	if values.DBConnectionTimeout != "" {
		if c.DBConnectionTimeout, err = time.ParseDuration(values.DBConnectionTimeout); err != nil {
			return fmt.Errorf("parse db_connection_timeout: %w", err)
		}
	}
	if values.SessionSecret != "" {
		c.SessionSecret = values.SessionSecret
	}
	if values.SessionCookieName != "" {
		c.SessionCookieName = values.SessionCookieName
	}
	if values.SessionTTL != "" {
		if c.SessionTTL, err = time.ParseDuration(values.SessionTTL); err != nil {
			return fmt.Errorf("parse session_ttl: %w", err)
		}
	}
	if values.SessionRedisURL != "" {
		c.SessionRedisURL = values.SessionRedisURL
	}
	if values.BcryptCost != 0 {
		c.BcryptCost = values.BcryptCost
	}
	if values.TrustedSubnet != "" {
		c.TrustedSubnet = values.TrustedSubnet
	}

	return nil
}

func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	flagValues, flagsSet := &Config{}, map[string]bool{}
	if !options.disableFlagsParsing {
		var err error
		flagValues, flagsSet, err = parseFlags(os.Args[1:])
		if err != nil {
			return nil, err
		}
	}

	cfg := defaultConfig

	var envValues Config
	if err := env.Parse(&envValues); err != nil {
		return nil, err
	}

	configFile := envValues.ConfigFile
	if flagsSet["c"] {
		configFile = flagValues.ConfigFile
	}
	if configFile != "" {
		if err := cfg.applyJSON(configFile); err != nil {
			return nil, err
		}
	}

	// env.Parse leaves fields whose variable is unset untouched.
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	cfg.applyFlags(flagValues, flagsSet)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
