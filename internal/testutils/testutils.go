package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	"github.com/nfrund/rxbus/internal/app"
	"github.com/nfrund/rxbus/internal/config"
)

// ConfigForTests loads the .env.test file at the module root into the test's
// environment and returns the resulting validated config.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()

	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			break
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}

	env, err := godotenv.Read(filepath.Join(path, ".env.test"))
	if err != nil {
		t.Fatalf("failed to load .env.test file: %v", err)
	}
	for key, value := range env {
		t.Setenv(key, value)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("invalid test configuration: %v", err)
	}
	return cfg
}

// AppForTests builds an App on the given backend from the test configuration.
// The app is closed when the test ends.
func AppForTests(t *testing.T, backend string) *app.App {
	t.Helper()

	cfg := ConfigForTests(t)
	cfg.Backend = backend

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}
