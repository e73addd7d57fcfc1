package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	shutdown "github.com/meshapi/harness-shutdown"
)

func TestConfigCommand(t *testing.T) {
	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "shutdown.yaml")
	g.Expect(os.WriteFile(path, []byte("timeout: 1500ms\nlog:\n  format: json\n"), 0o600)).To(Succeed())

	out := &bytes.Buffer{}
	app := App()
	app.Writer = out

	g.Expect(app.Run([]string{"harness-shutdown", "--config", path, "config"})).To(Succeed())
	g.Expect(out.String()).To(Equal("timeout: 1.5s\nlog:\n  level: info\n  format: json\n"))
}

func TestConfigCommandInvalid(t *testing.T) {
	g := NewWithT(t)

	t.Setenv("HARNESS_SHUTDOWN_LOG_FORMAT", "xml")

	app := App()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{"harness-shutdown", "config"})
	g.Expect(err).To(MatchError(ContainSubstring(`unknown log format "xml"`)))
}

func TestAddTeardown(t *testing.T) {
	run := func(hang, fail bool) (int, string) {
		buf := &bytes.Buffer{}
		codes := make(chan int, 1)
		c := shutdown.New(
			shutdown.WithoutSignals(),
			shutdown.WithTimeout(50*time.Millisecond),
			shutdown.WithLogger(shutdown.NewLogger(buf, "info", false)),
			shutdown.WithExitFunc(func(code int) { codes <- code }),
		)
		addTeardown(c, hang, fail)
		c.Trigger(shutdown.EventTerminate)

		return <-codes, buf.String()
	}

	t.Run("Clean", func(t *testing.T) {
		g := NewWithT(t)
		code, logs := run(false, false)
		g.Expect(code).To(Equal(shutdown.ExitClean))
		g.Expect(logs).To(ContainSubstring("Cleanup complete"))
	})

	t.Run("Hang", func(t *testing.T) {
		g := NewWithT(t)
		code, logs := run(true, false)
		g.Expect(code).To(Equal(shutdown.ExitForced))
		g.Expect(logs).To(ContainSubstring("Cleanup timeout exceeded"))
	})

	t.Run("Fail", func(t *testing.T) {
		g := NewWithT(t)
		code, logs := run(false, true)
		g.Expect(code).To(Equal(shutdown.ExitForced))
		g.Expect(logs).To(ContainSubstring("simulated teardown failure"))
	})
}

func TestWaitReturnsOnCancel(t *testing.T) {
	g := NewWithT(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &bytes.Buffer{}
	app := App()
	app.Writer = out
	app.ErrWriter = &bytes.Buffer{}

	g.Expect(app.RunContext(ctx, []string{"harness-shutdown", "wait", "--timeout", "100ms"})).To(Succeed())
	g.Expect(out.String()).To(ContainSubstring("waiting for a termination signal"))
}
