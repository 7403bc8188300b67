package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultAPIURL   = "http://127.0.0.1:8000/api/v1"
	DefaultPageSize = 5
)

type Config struct {
	APIURL   string
	PageSize int
	Dir      string // credentials live here
	LogFile  string
	LogLevel slog.Level
	Theme    string
	Debug    bool
}

// Load reads TODO_* environment variables, falling back to defaults.
func Load() (*Config, error) {
	size, err := strconv.Atoi(os.Getenv("TODO_PAGE_SIZE"))
	if err != nil || size <= 0 {
		size = DefaultPageSize
	}

	api := strings.TrimRight(strings.TrimSpace(os.Getenv("TODO_API_URL")), "/")
	if api == "" {
		api = DefaultAPIURL
	}

	dir := strings.TrimSpace(os.Getenv("TODO_CONFIG_DIR"))
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("home: %w", err)
		}
		dir = filepath.Join(home, ".todo")
	}

	level := slog.LevelInfo
	if s := strings.TrimSpace(os.Getenv("TODO_LOG_LEVEL")); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("TODO_LOG_LEVEL: %w", err)
		}
	}

	theme := os.Getenv("TODO_THEME")
	if theme == "" {
		theme = "classic"
	}

	return &Config{
		APIURL:   api,
		PageSize: size,
		Dir:      dir,
		LogFile:  os.Getenv("TODO_LOG_FILE"),
		LogLevel: level,
		Theme:    theme,
	}, nil
}

// Logger builds the process logger. Without a log file everything is
// discarded: the TUI owns the terminal.
func (c *Config) Logger() (*slog.Logger, io.Closer, error) {
	level := c.LogLevel
	if c.Debug {
		level = slog.LevelDebug
	}
	path := c.LogFile
	if path == "" && c.Debug {
		path = filepath.Join(c.Dir, "debug.log")
	}
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
