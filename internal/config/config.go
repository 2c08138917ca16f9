// Package config assembles the service configuration from defaults, an optional
// JSON file, environment variables (including a .env file) and command line flags.
// Later sources override earlier ones: flags > env > JSON > defaults.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	SQLitePath          string        `env:"SQLITE_PATH" validate:"omitempty,filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	AccessTokenSecret   string        `env:"ACCESS_TOKEN_SECRET" validate:"required"`
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL" validate:"gt=0"`
	RedisAddr           string        `env:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	LoginMaxAttempts    int           `env:"LOGIN_MAX_ATTEMPTS" validate:"gt=0"`
	LoginCooldown       time.Duration `env:"LOGIN_COOLDOWN" validate:"gt=0"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	ConfigFile          string        `env:"CONFIG"`
}

// jsonConfig mirrors Config for the JSON file. Durations are Go duration strings.
type jsonConfig struct {
	RunAddr             string `json:"server_address"`
	LogLevel            string `json:"log_level"`
	DatabaseDSN         string `json:"database_dsn"`
	SQLitePath          string `json:"sqlite_path"`
	DBConnectionTimeout string `json:"db_connection_timeout"`
	AccessTokenSecret   string `json:"access_token_secret"`
	AccessTokenTTL      string `json:"access_token_ttl"`
	RedisAddr           string `json:"redis_addr"`
	LoginMaxAttempts    int    `json:"login_max_attempts"`
	LoginCooldown       string `json:"login_cooldown"`
	TrustedSubnet       string `json:"trusted_subnet"`
	ShutdownTimeout     string `json:"shutdown_timeout"`
}

var defaultConfig = Config{
	RunAddr:             ":5001",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	AccessTokenTTL:      15 * time.Minute,
	LoginMaxAttempts:    5,
	LoginCooldown:       15 * time.Minute,
	ShutdownTimeout:     10 * time.Second,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing makes New ignore the command line.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs makes New parse args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Unable to load .env file: %v", err)
	}

	var fromFlags Config
	setFlags := map[string]bool{}
	if !options.disableFlagsParsing {
		var err error
		setFlags, err = parseFlags(options.args, &fromFlags)
		if err != nil {
			return nil, err
		}
	}

	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return nil, err
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := fromEnv.ConfigFile
	if setFlags["c"] {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, err
		}
		values.ConfigFile = configFile
	}

	values.applyEnv(&fromEnv)
	values.applyFlags(&fromFlags, setFlags)

	if err := validate(values); err != nil {
		return nil, err
	}

	return values, nil
}

func parseFlags(args []string, values *Config) (map[string]bool, error) {
	flagSet := flag.NewFlagSet("contactbook", flag.ContinueOnError)
	flagSet.StringVar(&values.RunAddr, "a", defaultConfig.RunAddr, "address and port to run server")
	flagSet.StringVar(&values.LogLevel, "l", defaultConfig.LogLevel, "logger level")
	flagSet.StringVar(&values.DatabaseDSN, "d", "", "a string with the PostgreSQL connection details")
	flagSet.StringVar(&values.SQLitePath, "f", "", "path of the SQLite database file")
	flagSet.StringVar(&values.AccessTokenSecret, "s", "", "access token signing secret")
	flagSet.StringVar(&values.RedisAddr, "r", "", "redis address for the login throttle")
	flagSet.StringVar(&values.TrustedSubnet, "t", "", "trusted subnet in CIDR notation")
	flagSet.StringVar(&values.ConfigFile, "c", "", "path of the JSON config file")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	setFlags := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	return setFlags, nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func (c *Config) loadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromJSON jsonConfig
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	overrideString(&c.RunAddr, fromJSON.RunAddr)
	overrideString(&c.LogLevel, fromJSON.LogLevel)
	overrideString(&c.DatabaseDSN, fromJSON.DatabaseDSN)
	overrideString(&c.SQLitePath, fromJSON.SQLitePath)
	overrideString(&c.AccessTokenSecret, fromJSON.AccessTokenSecret)
	overrideString(&c.RedisAddr, fromJSON.RedisAddr)
	overrideString(&c.TrustedSubnet, fromJSON.TrustedSubnet)
	if fromJSON.LoginMaxAttempts != 0 {
		c.LoginMaxAttempts = fromJSON.LoginMaxAttempts
	}

	durations := []struct {
		target *time.Duration
		value  string
	}{
		{&c.DBConnectionTimeout, fromJSON.DBConnectionTimeout},
		{&c.AccessTokenTTL, fromJSON.AccessTokenTTL},
		{&c.LoginCooldown, fromJSON.LoginCooldown},
		{&c.ShutdownTimeout, fromJSON.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `time.ParseDuration()` calling: %w", err)
		}
		*d.target = parsed
	}

	return nil
}

func (c *Config) applyEnv(fromEnv *Config) {
	overrideString(&c.RunAddr, fromEnv.RunAddr)
	overrideString(&c.LogLevel, fromEnv.LogLevel)
	overrideString(&c.DatabaseDSN, fromEnv.DatabaseDSN)
	overrideString(&c.SQLitePath, fromEnv.SQLitePath)
	overrideString(&c.AccessTokenSecret, fromEnv.AccessTokenSecret)
	overrideString(&c.RedisAddr, fromEnv.RedisAddr)
	overrideString(&c.TrustedSubnet, fromEnv.TrustedSubnet)

	if fromEnv.DBConnectionTimeout != 0 {
		c.DBConnectionTimeout = fromEnv.DBConnectionTimeout
	}
	if fromEnv.AccessTokenTTL != 0 {
		c.AccessTokenTTL = fromEnv.AccessTokenTTL
	}
	if fromEnv.LoginMaxAttempts != 0 {
		c.LoginMaxAttempts = fromEnv.LoginMaxAttempts
	}
	if fromEnv.LoginCooldown != 0 {
		c.LoginCooldown = fromEnv.LoginCooldown
	}
	if fromEnv.ShutdownTimeout != 0 {
		c.ShutdownTimeout = fromEnv.ShutdownTimeout
	}
}

func (c *Config) applyFlags(fromFlags *Config, setFlags map[string]bool) {
	targets := map[string]struct {
		target *string
		value  string
	}{
		"a": {&c.RunAddr, fromFlags.RunAddr},
		"l": {&c.LogLevel, fromFlags.LogLevel},
		"d": {&c.DatabaseDSN, fromFlags.DatabaseDSN},
		"f": {&c.SQLitePath, fromFlags.SQLitePath},
		"s": {&c.AccessTokenSecret, fromFlags.AccessTokenSecret},
		"r": {&c.RedisAddr, fromFlags.RedisAddr},
		"t": {&c.TrustedSubnet, fromFlags.TrustedSubnet},
	}
	for name, t := range targets {
		if setFlags[name] {
			*t.target = t.value
		}
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func validate(values *Config) error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}
