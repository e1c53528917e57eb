package config

import (
	"fmt"
	"os"
	"testing"
)

// TestMain refuses to run against anything but a test environment,
// since the database tests migrate and truncate tables
func TestMain(m *testing.M) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		_ = os.Setenv("GO_ENV", "test")
		env = "test"
	}
	if env != "test" {
		fmt.Fprintf(os.Stderr, "refusing to run config tests with GO_ENV=%q, use GO_ENV=test\n", env)
		os.Exit(1)
	}

	os.Exit(m.Run())
}
