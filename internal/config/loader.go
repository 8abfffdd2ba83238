package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys recognised by Load.
const (
	EnvConfigFile   = "EVENTPLANNER_CONFIG"
	EnvHTTPPort     = "EVENTPLANNER_HTTP_PORT"
	EnvSQLiteDSN    = "EVENTPLANNER_SQLITE_DSN"
	EnvSessionTTL   = "EVENTPLANNER_SESSION_TTL"
	EnvTimezone     = "EVENTPLANNER_TIMEZONE"
	EnvReminderTick = "EVENTPLANNER_REMINDER_TICK"
	EnvNotifyURLs   = "EVENTPLANNER_NOTIFY_URLS"
	EnvNotifyRate   = "EVENTPLANNER_NOTIFY_RATE"
	EnvLogLevel     = "EVENTPLANNER_LOG_LEVEL"
	EnvLogFile      = "EVENTPLANNER_LOG_FILE"
)

// Config captures the settings of the event planner service.
type Config struct {
	HTTPPort     int
	SQLiteDSN    string
	SessionTTL   time.Duration
	Timezone     string
	Location     *time.Location
	ReminderTick time.Duration
	NotifyURLs   []string
	NotifyRate   float64
	LogLevel     slog.Level
	LogFile      string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPPort:     3000,
		SQLiteDSN:    ":memory:",
		SessionTTL:   24 * time.Hour,
		Timezone:     "Local",
		Location:     time.Local,
		ReminderTick: time.Second,
		NotifyRate:   1,
		LogLevel:     slog.LevelInfo,
	}
}

// fileConfig mirrors the YAML file layout. Scalars are read as strings so the
// file and the environment share one parser.
type fileConfig struct {
	HTTPPort     string `yaml:"http_port"`
	SQLiteDSN    string `yaml:"sqlite_dsn"`
	SessionTTL   string `yaml:"session_ttl"`
	Timezone     string `yaml:"timezone"`
	ReminderTick string `yaml:"reminder_tick"`
	Notify       struct {
		URLs []string `yaml:"urls"`
		Rate string   `yaml:"rate"`
	} `yaml:"notify"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Load reads the optional YAML file named by EVENTPLANNER_CONFIG and then
// applies environment overrides. Every invalid key is reported in one error.
func Load() (Config, error) {
	values := make(map[string]string)

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		if err := readFile(path, values); err != nil {
			return Config{}, err
		}
	}

	for _, key := range []string{
		EnvHTTPPort, EnvSQLiteDSN, EnvSessionTTL, EnvTimezone, EnvReminderTick,
		EnvNotifyURLs, EnvNotifyRate, EnvLogLevel, EnvLogFile,
	} {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			values[key] = strings.TrimSpace(value)
		}
	}

	return parse(values)
}

func readFile(path string, values map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	for key, value := range map[string]string{
		EnvHTTPPort:     fc.HTTPPort,
		EnvSQLiteDSN:    fc.SQLiteDSN,
		EnvSessionTTL:   fc.SessionTTL,
		EnvTimezone:     fc.Timezone,
		EnvReminderTick: fc.ReminderTick,
		EnvNotifyURLs:   strings.Join(fc.Notify.URLs, ","),
		EnvNotifyRate:   fc.Notify.Rate,
		EnvLogLevel:     fc.Log.Level,
		EnvLogFile:      fc.Log.File,
	} {
		if value = strings.TrimSpace(value); value != "" {
			values[key] = value
		}
	}
	return nil
}

func parse(values map[string]string) (Config, error) {
	cfg := Default()
	invalid := make([]string, 0, 2)

	if v, ok := values[EnvHTTPPort]; ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}

	if v, ok := values[EnvSQLiteDSN]; ok {
		cfg.SQLiteDSN = v
	}

	if v, ok := values[EnvSessionTTL]; ok {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, EnvSessionTTL)
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if v, ok := values[EnvTimezone]; ok {
		loc, err := time.LoadLocation(v)
		if err != nil {
			invalid = append(invalid, EnvTimezone)
		} else {
			cfg.Timezone = v
			cfg.Location = loc
		}
	}

	if v, ok := values[EnvReminderTick]; ok {
		tick, err := time.ParseDuration(v)
		if err != nil || tick < time.Second {
			invalid = append(invalid, EnvReminderTick)
		} else {
			cfg.ReminderTick = tick
		}
	}

	if v, ok := values[EnvNotifyURLs]; ok {
		for _, raw := range strings.Split(v, ",") {
			if raw = strings.TrimSpace(raw); raw != "" {
				cfg.NotifyURLs = append(cfg.NotifyURLs, raw)
			}
		}
	}

	if v, ok := values[EnvNotifyRate]; ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate <= 0 {
			invalid = append(invalid, EnvNotifyRate)
		} else {
			cfg.NotifyRate = rate
		}
	}

	if v, ok := values[EnvLogLevel]; ok {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, EnvLogLevel)
		} else {
			cfg.LogLevel = level
		}
	}

	if v, ok := values[EnvLogFile]; ok {
		cfg.LogFile = v
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidValue, strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// ErrInvalidValue is wrapped by Load when a setting cannot be parsed.
var ErrInvalidValue = errors.New("config: invalid values")
