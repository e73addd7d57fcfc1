// Package setup activates the shutdown coordinator for a Go test binary.
//
// Call Main from TestMain so every test session installs the signal and fault listeners before any test runs:
//
//	func TestMain(m *testing.M) {
//		setup.Main(m)
//	}
package setup

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"

	shutdown "github.com/meshapi/harness-shutdown"
)

// Runner runs a test session and returns its exit code. *testing.M implements it.
type Runner interface {
	Run() int
}

var (
	loadCoordinator = shutdown.LoadDefault

	sessionOnce sync.Once
	sessionID   ulid.ULID
)

// SessionID identifies the current test session in the logs.
func SessionID() string {
	sessionOnce.Do(func() {
		sessionID = ulid.Make()
	})

	return sessionID.String()
}

// GlobalSetup makes sure the process-wide coordinator is built and its listeners installed, then logs a readiness
// line. Listeners are only registered once no matter how often it is called; ctx bounds how long the signal listeners
// stay subscribed. An error means the session must not start.
func GlobalSetup(ctx context.Context) error {
	c, err := loadCoordinator()
	if err != nil {
		return fmt.Errorf("global test setup: %w", err)
	}

	c.Install(ctx)

	if logger := c.Logger(); logger != nil {
		logger.Info("Global test setup complete", "session", SessionID(), "timeout", c.Timeout())
	}

	return nil
}

// Run performs the global setup, runs the session and reports its ordinary exit to the coordinator. It returns the
// status code the process should exit with.
func Run(m Runner) int {
	if err := GlobalSetup(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return shutdown.ExitForced
	}

	code := m.Run()

	if c, _ := loadCoordinator(); c != nil {
		c.HandleExit(code)
	}

	return code
}

// Main is the TestMain entry point: it runs the session through Run and exits with its status code.
func Main(m *testing.M) {
	os.Exit(Run(m))
}
