package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from defaults, then
// an optional YAML file (CONFIG_FILE), then environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Fleet    FleetConfig    `yaml:"fleet"`
	Weather  WeatherConfig  `yaml:"weather"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file path
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string `yaml:"address"` // gRPC server listen address (e.g., ":50051")
}

// HTTPConfig contains the read-only HTTP API settings. An empty address
// disables it.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // JWT signing secret
}

type FleetConfig struct {
	MaxPayloadKg  float64       `yaml:"max_payload_kg"`
	SetupMinutes  int           `yaml:"setup_minutes"`
	SweepInterval time.Duration `yaml:"sweep_interval"` // 0 disables the sweeper
}

// WeatherConfig selects the weather provider. Without an API key a static
// calm reading is used.
type WeatherConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TracingConfig struct {
	Exporter string `yaml:"exporter"` // "none" | "stdout"
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "fleet.db"},
		GRPC:     GRPCConfig{Address: ":50051"},
		HTTP:     HTTPConfig{Address: ":8080"},
		Fleet:    FleetConfig{MaxPayloadKg: 50, SetupMinutes: 10, SweepInterval: time.Minute},
		Weather:  WeatherConfig{Timeout: 3 * time.Second},
		Log:      LogConfig{Level: "info"},
		Tracing:  TracingConfig{Exporter: "none"},
	}
}

const devSecret = "dev-secret-change-me"

// Load loads configuration with CONFIG_FILE and environment overrides.
// JWT_SECRET (or auth.jwt_secret) is required.
func Load() (*Config, error) {
	return Resolve(os.Getenv("CONFIG_FILE"), false)
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return Resolve(os.Getenv("CONFIG_FILE"), true)
}

// Resolve is Load for an explicit file path. With dev set, a missing JWT
// secret falls back to a development value instead of failing.
func Resolve(path string, dev bool) (*Config, error) {
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		if !dev {
			return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
		}
		cfg.Auth.JWTSecret = devSecret
	}
	return cfg, nil
}

// LoadFrom applies the YAML file at path (if any) and the environment on top
// of defaults. It does not enforce the JWT secret.
func LoadFrom(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := ValidateYAML(path, data); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)
	cfg.GRPC.Address = getEnv("GRPC_ADDRESS", cfg.GRPC.Address)
	cfg.HTTP.Address = getEnv("HTTP_ADDRESS", cfg.HTTP.Address)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Weather.APIKey = getEnv("WEATHER_API_KEY", cfg.Weather.APIKey)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Tracing.Exporter = getEnv("TRACING", cfg.Tracing.Exporter)

	var err error
	if cfg.Fleet.MaxPayloadKg, err = getEnvFloat("MAX_PAYLOAD_KG", cfg.Fleet.MaxPayloadKg); err != nil {
		return err
	}
	if cfg.Fleet.MaxPayloadKg <= 0 {
		return fmt.Errorf("MAX_PAYLOAD_KG must be positive")
	}
	if cfg.Fleet.SetupMinutes, err = getEnvInt("SETUP_MINUTES", cfg.Fleet.SetupMinutes); err != nil {
		return err
	}
	if cfg.Fleet.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", cfg.Fleet.SweepInterval); err != nil {
		return err
	}
	if cfg.Weather.Timeout, err = getEnvDuration("WEATHER_TIMEOUT", cfg.Weather.Timeout); err != nil {
		return err
	}
	return nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %w", key, err)
		}
		return f, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, gRPC: %s, HTTP: %s, Auth: *** (masked) ***, Weather: %s, MaxPayload: %.0fkg, Sweep: %s}",
		c.Database.Path, c.GRPC.Address, c.HTTP.Address, c.weatherMode(), c.Fleet.MaxPayloadKg, c.Fleet.SweepInterval)
}

func (c *Config) weatherMode() string {
	if c.Weather.APIKey == "" {
		return "static"
	}
	return "openweather (key masked)"
}
