package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	ReportInterval time.Duration
	ReportTime     string // HH:MM, daily summary
	ReminderPoll   time.Duration
	LogLevel       string
	MetricsAddr    string
	AllowedChats   []int64
	Location       *time.Location
	SeedFile       string
}

// Load reads configuration from a .env file (if any) and environment variables with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		TelegramToken:  get("TELEGRAM_TOKEN"),
		DatabaseURL:    get("DATABASE_URL"),
		ReportInterval: parseInterval(get("REPORT_INTERVAL_HOURS")),
		ReportTime:     get("REPORT_TIME"),
		LogLevel:       get("LOG_LEVEL"),
		MetricsAddr:    get("METRICS_ADDR"),
		SeedFile:       get("SEED_FILE"),
		Location:       time.Local,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_planner.db"
	}
	if cfg.ReportTime == "" {
		cfg.ReportTime = "08:00"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SeedFile == "" {
		cfg.SeedFile = "planner.toml"
	}

	cfg.ReminderPoll = time.Minute
	if raw := get("REMINDER_POLL_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return cfg, fmt.Errorf("REMINDER_POLL_SECONDS must be a positive number, got %q", raw)
		}
		cfg.ReminderPoll = time.Duration(secs) * time.Second
	}

	if name := get("TZ_NAME"); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return cfg, fmt.Errorf("TZ_NAME: %w", err)
		}
		cfg.Location = loc
	}

	chats, err := parseChatIDs(get("ALLOWED_CHAT_IDS"))
	if err != nil {
		return cfg, err
	}
	cfg.AllowedChats = chats

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

// ChatAllowed reports whether the chat may use the planner. An empty allowlist admits everyone.
func (c Config) ChatAllowed(chatID int64) bool {
	if len(c.AllowedChats) == 0 {
		return true
	}
	for _, id := range c.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseChatIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_CHAT_IDS: invalid chat id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
