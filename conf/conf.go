package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/scoreboard/scoreboard"
)

type Config struct {
	HTTPAddr       string   `toml:"http_addr" validate:"required"`
	Environment    string   `toml:"environment" validate:"oneof=dev prod"`
	JWTKey         string   `toml:"jwt_key" validate:"required"`
	OtelEndpoint   string   `toml:"otel_endpoint"`
	AllowedOrigins []string `toml:"allowed_origins"`

	Cache      CacheConf      `toml:"cache"`
	RunDetails RunDetailsConf `toml:"run_details"`
}

type CacheConf struct {
	Enabled   bool   `toml:"enabled"`
	Backend   string `toml:"backend" validate:"oneof=memory redis"`
	RedisAddr string `toml:"redis_addr" validate:"required_if=Backend redis"`

	// TTLs are in seconds, 0 keeps entries until evicted
	Scoreboard         bool `toml:"scoreboard"`
	ScoreboardTTL      int  `toml:"scoreboard_ttl" validate:"gte=0"`
	AdminScoreboard    bool `toml:"admin_scoreboard"`
	AdminScoreboardTTL int  `toml:"admin_scoreboard_ttl" validate:"gte=0"`
	Events             bool `toml:"events"`
	EventsTTL          int  `toml:"events_ttl" validate:"gte=0"`
}

type RunDetailsConf struct {
	Bucket string `toml:"bucket"`
	Region string `toml:"region" validate:"required_with=Bucket"`
}

// ScoreboardCacheConfig converts the toggles for the scoreboard cache.
func (c CacheConf) ScoreboardCacheConfig() scoreboard.CacheConfig {
	return scoreboard.CacheConfig{
		Enabled:            c.Enabled,
		Scoreboard:         c.Scoreboard,
		ScoreboardTTL:      time.Duration(c.ScoreboardTTL) * time.Second,
		AdminScoreboard:    c.AdminScoreboard,
		AdminScoreboardTTL: time.Duration(c.AdminScoreboardTTL) * time.Second,
		Events:             c.Events,
		EventsTTL:          time.Duration(c.EventsTTL) * time.Second,
	}
}

func defaults() Config {
	return Config{
		HTTPAddr:       ":8080",
		Environment:    "dev",
		AllowedOrigins: []string{"http://localhost:3000", "https://programme.lv", "https://www.programme.lv"},
		Cache: CacheConf{
			Enabled:            true,
			Backend:            "memory",
			Scoreboard:         true,
			ScoreboardTTL:      30,
			AdminScoreboard:    true,
			AdminScoreboardTTL: 30,
			Events:             true,
			EventsTTL:          30,
		},
	}
}

// Load reads .env if present, then the TOML file named by SCOREBOARD_CONFIG,
// then environment overrides, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	c := defaults()
	if path := os.Getenv("SCOREBOARD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		slog.Debug("loaded config file", "path", path)
	}

	if err := applyEnv(&c); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func applyEnv(c *Config) error {
	envString("HTTP_ADDR", &c.HTTPAddr)
	envString("ENVIRONMENT", &c.Environment)
	envString("JWT_KEY", &c.JWTKey)
	envString("OTEL_ENDPOINT", &c.OtelEndpoint)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = strings.Split(origins, ",")
	}

	envString("CACHE_BACKEND", &c.Cache.Backend)
	envString("REDIS_ADDR", &c.Cache.RedisAddr)
	envString("RUN_DETAILS_BUCKET", &c.RunDetails.Bucket)
	envString("AWS_REGION", &c.RunDetails.Region)

	bools := map[string]*bool{
		"CACHE_ENABLED":          &c.Cache.Enabled,
		"CACHE_SCOREBOARD":       &c.Cache.Scoreboard,
		"CACHE_ADMIN_SCOREBOARD": &c.Cache.AdminScoreboard,
		"CACHE_EVENTS":           &c.Cache.Events,
	}
	for name, dst := range bools {
		if err := envBool(name, dst); err != nil {
			return err
		}
	}

	ints := map[string]*int{
		"CACHE_SCOREBOARD_TTL":       &c.Cache.ScoreboardTTL,
		"CACHE_ADMIN_SCOREBOARD_TTL": &c.Cache.AdminScoreboardTTL,
		"CACHE_EVENTS_TTL":           &c.Cache.EventsTTL,
	}
	for name, dst := range ints {
		if err := envInt(name, dst); err != nil {
			return err
		}
	}
	return nil
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func envBool(name string, dst *bool) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	*dst = b
	return nil
}

func envInt(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", name, v, err)
	}
	*dst = n
	return nil
}
