package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/internal/loadtest"
	"github.com/Checker-Finance/secrets-gateway/pkg/logger"
)

const (
	flagBackendURL  = "backend-url"
	flagURL         = "url"
	flagVUs         = "vus"
	flagIterations  = "iterations"
	flagPace        = "pace"
	flagDuration    = "duration"
	flagMaxDuration = "max-duration"
	flagLogLevel    = "log-level"
)

const defaultBackendURL = "http://localhost:3000"

func secretHandler(c *cli.Context) error {
	scenario, thresholds := loadtest.SecretScenario(strings.TrimRight(c.String(flagBackendURL), "/"))
	if c.IsSet(flagVUs) {
		scenario.VUs = c.Int(flagVUs)
	}
	if c.IsSet(flagIterations) {
		scenario.Iterations = c.Int(flagIterations)
	}
	if c.IsSet(flagPace) {
		scenario.Pace = c.Duration(flagPace)
	}
	if c.IsSet(flagMaxDuration) {
		scenario.MaxDuration = c.Duration(flagMaxDuration)
	}
	return run(c, scenario, thresholds)
}

func smokeHandler(c *cli.Context) error {
	scenario, thresholds := loadtest.SmokeScenario(c.String(flagURL))
	if c.IsSet(flagDuration) {
		scenario.Duration = c.Duration(flagDuration)
		scenario.MaxDuration = scenario.Duration
	}
	if c.IsSet(flagPace) {
		scenario.Pace = c.Duration(flagPace)
	}
	return run(c, scenario, thresholds)
}

func run(c *cli.Context, scenario loadtest.Scenario, thresholds loadtest.Thresholds) error {
	logger.Init("keeper-loadtest", "dev", c.String(flagLogLevel))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := loadtest.NewRunner(logger.L(), nil).Run(ctx, scenario)
	if err != nil {
		return cli.Exit(fmt.Sprintf("scenario %s failed: %v", scenario.Name, err), 1)
	}

	fmt.Fprintf(c.App.Writer, "scenario: %s (%s)\n", scenario.Name, scenario.URL)
	report.Render(c.App.Writer, thresholds)

	if violations := report.Check(thresholds); len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(c.App.ErrWriter, "threshold violated: %s\n", v)
		}
		return cli.Exit("thresholds violated", 1)
	}
	return nil
}

func buildCLI() *cli.App {
	app := cli.NewApp()
	app.Name = "keeper-loadtest"
	app.Usage = "load and smoke scenarios for the keeper-adapter"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagLogLevel,
			Value:   "warn",
			Usage:   "log level for run progress",
			EnvVars: []string{"LOG_LEVEL"},
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:  "secret",
			Usage: "hit /keeper/get-secret with concurrent virtual users and check quota thresholds",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagBackendURL,
					Value:   defaultBackendURL,
					Usage:   "base URL of the keeper-adapter",
					EnvVars: []string{"BACKEND_URL"},
				},
				&cli.IntFlag{Name: flagVUs, Usage: "virtual users (default 3)"},
				&cli.IntFlag{Name: flagIterations, Usage: "iterations per virtual user (default 2)"},
				&cli.DurationFlag{Name: flagPace, Usage: "minimum gap between requests of one user (default 5s)"},
				&cli.DurationFlag{Name: flagMaxDuration, Usage: "upper bound for the whole run (default 60s)"},
			},
			Action: secretHandler,
		},
		{
			Name:  "smoke",
			Usage: "single virtual user polling a URL and expecting 200",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagURL,
					Value:   defaultBackendURL + "/health",
					Usage:   "URL to poll",
					EnvVars: []string{"SMOKE_URL"},
				},
				&cli.DurationFlag{Name: flagDuration, Usage: "run time (default 10s)"},
				&cli.DurationFlag{Name: flagPace, Usage: "gap between requests (default 1s)"},
			},
			Action: smokeHandler,
		},
	}
	return app
}

func main() {
	if err := buildCLI().RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
