package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration.
type Config struct {
	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string
	InfluxTimeout  time.Duration

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Auth0Issuer   string
	Auth0Audience string

	KMAObservationURL string
	KMAForecastURL    string
	KMAAuthKey        string
	KMAStation        string
	KMAInitDays       int

	Port             string
	LogLevel         string
	LogPretty        bool
	AllowedOrigins   []string
	IPLimitPerMinute int
}

// LoadConfig loads the configuration from the environment. A .env file in
// the working directory is read first when present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		InfluxDBURL:       get("INFLUXDB_URL", ""),
		InfluxDBToken:     get("INFLUXDB_TOKEN", ""),
		InfluxDBOrg:       get("INFLUXDB_ORG", ""),
		InfluxDBBucket:    get("INFLUXDB_BUCKET", "my-bucket"),
		DatabaseURL:       get("DATABASE_URL", ""),
		RedisAddr:         get("REDIS_ADDR", ""),
		RedisPassword:     get("REDIS_PASSWORD", ""),
		Auth0Issuer:       get("AUTH0_ISSUER", ""),
		Auth0Audience:     get("AUTH0_AUDIENCE", ""),
		KMAObservationURL: get("KMA_OBS_URL", "https://apihub.kma.go.kr/api/typ01/url/kma_sfctm3.php"),
		KMAForecastURL:    get("KMA_FCT_URL", "https://apihub.kma.go.kr/api/typ01/url/fct_afs_ds.php"),
		KMAAuthKey:        get("KMA_AUTH_KEY", ""),
		KMAStation:        get("KMA_STATION", "108"),
		Port:              get("PORT", "8000"),
		LogLevel:          get("LOG_LEVEL", "info"),
	}
	if cfg.InfluxDBURL == "" || cfg.InfluxDBToken == "" || cfg.InfluxDBOrg == "" {
		return Config{}, fmt.Errorf("InfluxDB configuration is incomplete. Please set INFLUXDB_URL, INFLUXDB_TOKEN, and INFLUXDB_ORG environment variables")
	}

	var err error
	if cfg.InfluxTimeout, err = time.ParseDuration(get("INFLUXDB_TIMEOUT", "30s")); err != nil {
		return Config{}, fmt.Errorf("invalid INFLUXDB_TIMEOUT: %w", err)
	}
	// The client takes whole seconds, and zero means no timeout.
	if cfg.InfluxTimeout < time.Second {
		return Config{}, fmt.Errorf("invalid INFLUXDB_TIMEOUT %s: must be at least 1s", cfg.InfluxTimeout)
	}
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.KMAInitDays, err = strconv.Atoi(get("KMA_INIT_DAYS", "31")); err != nil || cfg.KMAInitDays < 0 {
		return Config{}, fmt.Errorf("invalid KMA_INIT_DAYS %q", get("KMA_INIT_DAYS", ""))
	}
	if cfg.IPLimitPerMinute, err = strconv.Atoi(get("IP_LIMIT_PER_MINUTE", "60")); err != nil {
		return Config{}, fmt.Errorf("invalid IP_LIMIT_PER_MINUTE: %w", err)
	}
	if cfg.LogPretty, err = strconv.ParseBool(get("LOG_PRETTY", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_PRETTY: %w", err)
	}
	for _, origin := range strings.Split(get("ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}
	return cfg, nil
}

// AuthEnabled reports whether JWT protection is configured.
func (c Config) AuthEnabled() bool {
	return c.Auth0Issuer != "" && c.Auth0Audience != ""
}
