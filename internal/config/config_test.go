package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TODO_API_URL", "TODO_PAGE_SIZE", "TODO_LOG_LEVEL", "TODO_THEME", "TODO_LOG_FILE"} {
		t.Setenv(k, "")
	}
	t.Setenv("TODO_CONFIG_DIR", "/tmp/todo-cfg")

	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.APIURL != DefaultAPIURL || c.PageSize != DefaultPageSize || c.Theme != "classic" {
		t.Fatalf("config = %+v", c)
	}
	if c.Dir != "/tmp/todo-cfg" || c.LogLevel != slog.LevelInfo {
		t.Fatalf("config = %+v", c)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TODO_API_URL", " https://todo.example.com/api/v1/ ")
	t.Setenv("TODO_PAGE_SIZE", "20")
	t.Setenv("TODO_LOG_LEVEL", "debug")
	t.Setenv("TODO_THEME", "neon")

	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.APIURL != "https://todo.example.com/api/v1" || c.PageSize != 20 || c.Theme != "neon" || c.LogLevel != slog.LevelDebug {
		t.Fatalf("config = %+v", c)
	}

	t.Setenv("TODO_PAGE_SIZE", "-3")
	if c, _ := Load(); c.PageSize != DefaultPageSize {
		t.Fatalf("negative page size accepted: %d", c.PageSize)
	}

	t.Setenv("TODO_LOG_LEVEL", "loud")
	if _, err := Load(); err == nil {
		t.Fatal("bad log level accepted")
	}
}

func TestDebugLoggerWritesFile(t *testing.T) {
	c := &Config{Dir: t.TempDir(), Debug: true}
	logger, closer, err := c.Logger()
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello", slog.String("k", "v"))
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(c.Dir, "debug.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(b) == 0 {
		t.Fatal("debug log is empty")
	}
}
