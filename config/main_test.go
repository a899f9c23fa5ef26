package config

import (
	"fmt"
	"os"
	"testing"
)

// TestMain pins GO_ENV to test. An explicit non-test value aborts the run.
func TestMain(m *testing.M) {
	switch env := os.Getenv("GO_ENV"); env {
	case "":
		_ = os.Setenv("GO_ENV", EnvTest)
	case EnvTest:
	default:
		fmt.Fprintf(os.Stderr, "config tests need GO_ENV=%s, got %q\n", EnvTest, env)
		os.Exit(1)
	}

	os.Exit(m.Run())
}
