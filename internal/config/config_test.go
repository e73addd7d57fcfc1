package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/meshapi/harness-shutdown/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	g := NewWithT(t)

	cfg, err := config.Load(config.WithEnvPrefix("HARNESS_SHUTDOWN_DEFAULTS_TEST_"))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(cfg.Timeout).To(Equal(5 * time.Second))
	g.Expect(cfg.Log.Level).To(Equal("info"))
	g.Expect(cfg.Log.Format).To(Equal(config.FormatText))
	g.Expect(cfg.Log.JSON()).To(BeFalse())
}

func TestLoadEnvOverrides(t *testing.T) {
	g := NewWithT(t)

	t.Setenv("HARNESS_SHUTDOWN_TIMEOUT", "750ms")
	t.Setenv("HARNESS_SHUTDOWN_LOG_LEVEL", "debug")
	t.Setenv("HARNESS_SHUTDOWN_LOG_FORMAT", "json")

	cfg, err := config.Load()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(cfg.Timeout).To(Equal(750 * time.Millisecond))
	g.Expect(cfg.Log.Level).To(Equal("debug"))
	g.Expect(cfg.Log.JSON()).To(BeTrue())
}

func TestLoadFileThenEnv(t *testing.T) {
	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "shutdown.yaml")
	g.Expect(os.WriteFile(path, []byte("timeout: 2s\nlog:\n  level: warn\n"), 0o600)).To(Succeed())

	t.Setenv("HARNESS_SHUTDOWN_LOG_LEVEL", "error")

	cfg, err := config.Load(config.WithConfigFile(path))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(cfg.Timeout).To(Equal(2 * time.Second))
	g.Expect(cfg.Log.Level).To(Equal("error"))
	g.Expect(cfg.Log.Format).To(Equal(config.FormatText))
}

func TestLoadMissingFile(t *testing.T) {
	g := NewWithT(t)

	_, err := config.Load(config.WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
	g.Expect(err).To(MatchError(ContainSubstring("load file")))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		Name    string
		Config  config.Config
		WantErr string
	}{
		{
			Name:   "Valid",
			Config: config.Config{Timeout: time.Second, Log: config.LogConfig{Level: "info", Format: "text"}},
		},
		{
			Name:    "ZeroTimeout",
			Config:  config.Config{Log: config.LogConfig{Level: "info", Format: "text"}},
			WantErr: "timeout must be positive",
		},
		{
			Name:    "UnknownLevel",
			Config:  config.Config{Timeout: time.Second, Log: config.LogConfig{Level: "loud", Format: "text"}},
			WantErr: `unknown log level "loud"`,
		},
		{
			Name:    "UnknownFormat",
			Config:  config.Config{Timeout: time.Second, Log: config.LogConfig{Level: "info", Format: "xml"}},
			WantErr: `unknown log format "xml"`,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.Name, func(t *testing.T) {
			g := NewWithT(t)

			err := tt.Config.Validate()
			if tt.WantErr == "" {
				g.Expect(err).ToNot(HaveOccurred())
				return
			}
			g.Expect(err).To(MatchError(ContainSubstring(tt.WantErr)))
		})
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	g := NewWithT(t)

	t.Setenv("HARNESS_SHUTDOWN_TIMEOUT", "-1s")

	_, err := config.Load()
	g.Expect(err).To(MatchError(ContainSubstring("invalid config")))
}
