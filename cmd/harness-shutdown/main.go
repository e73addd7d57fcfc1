// Command harness-shutdown installs the shutdown coordinator in a standalone process so operators can check how
// a test harness reacts to termination signals and which status code it leaves with.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	shutdown "github.com/meshapi/harness-shutdown"
	"github.com/meshapi/harness-shutdown/internal/config"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(shutdown.ExitForced)
	}
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:  "harness-shutdown",
		Usage: "exercise the test harness shutdown sequence",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"HARNESS_SHUTDOWN_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			waitCommand(),
			configCommand(),
		},
	}
}

func waitCommand() *cli.Command {
	return &cli.Command{
		Name:  "wait",
		Usage: "install the listeners and block until a termination event ends the process",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "cleanup watchdog, overrides the configuration",
			},
			&cli.BoolFlag{
				Name:  "hang",
				Usage: "make the cleanup body never complete",
			},
			&cli.BoolFlag{
				Name:  "fail",
				Usage: "make the cleanup body return an error",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			timeout := cfg.Timeout
			if c.IsSet("timeout") {
				timeout = c.Duration("timeout")
			}

			coordinator := shutdown.New(
				shutdown.WithTimeout(timeout),
				shutdown.WithLogger(shutdown.NewLogger(c.App.ErrWriter, cfg.Log.Level, cfg.Log.JSON())),
			)
			addTeardown(coordinator, c.Bool("hang"), c.Bool("fail"))

			coordinator.Install(c.Context)
			fmt.Fprintf(c.App.Writer, "waiting for a termination signal (pid %d)\n", os.Getpid())

			// the coordinator exits the process; this only returns when the app context is cancelled.
			<-c.Context.Done()
			return nil
		},
	}
}

func addTeardown(coordinator *shutdown.Coordinator, hang, fail bool) {
	switch {
	case hang:
		coordinator.AddSequence(shutdown.HandlerFuncWithName("hang", func(ctx context.Context) {
			<-ctx.Done()
		}))
	case fail:
		coordinator.AddSequence(shutdown.HandlerFuncWithName("fail", func() error {
			return errors.New("simulated teardown failure")
		}))
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "print the effective configuration",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			return printConfig(c.App.Writer, cfg)
		},
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	var opts []config.Option
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}

	return config.Load(opts...)
}

type printedConfig struct {
	Timeout string `yaml:"timeout"`
	Log     struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func printConfig(w io.Writer, cfg config.Config) error {
	out := printedConfig{Timeout: cfg.Timeout.Round(time.Millisecond).String()}
	out.Log.Level = cfg.Log.Level
	out.Log.Format = cfg.Log.Format

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return enc.Close()
}
