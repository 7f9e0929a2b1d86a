/*
main.go - Application entry point

PURPOSE:
  Command-line front end of the household obligations engine. Loads
  configuration, opens the SQLite store and runs one of the subcommands.

COMMANDS:
  serve     HTTP API plus the reminder scheduler, graceful shutdown
  summary   Print the dashboard summary, alerts and utility insights
  seed      Replace the database contents with a demo scenario

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, TOML file, environment, flags)
  2. Initialize logger and SQLite store
  3. Seed utility services on first start
  4. Start the reminder scheduler
  5. Start the HTTP server with graceful shutdown

GLOBAL FLAGS:
  --db         SQLite database path (":memory:" for an in-memory database)
  --port       HTTP server port
  --log-level  debug, info, warn, error
  --config     TOML household file (same as CONFIG_FILE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, waiting for a running plan
  4. Close database connection

EXAMPLES:
  # Serve a file database
  ./server serve --db=./data/gastos.db

  # Load the demo household and look at it
  ./server seed --scenario=household
  ./server summary --now=2024-03-10

ENVIRONMENT:
  PORT, DB_PATH, LOG_LEVEL, LOG_FORMAT, CORS_ORIGINS, CONFIG_FILE,
  REMINDER_SCHEDULE, REMINDER_HORIZON_DAYS, TREND_MONTHS, ALERT_LIMIT

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - api/scheduler.go: Reminder planning
  - report/render.go: Terminal summary
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iag-lol/gastosanuales-app/api"
	"github.com/iag-lol/gastosanuales-app/config"
	"github.com/iag-lol/gastosanuales-app/debts"
	"github.com/iag-lol/gastosanuales-app/factory"
	"github.com/iag-lol/gastosanuales-app/finance"
	"github.com/iag-lol/gastosanuales-app/logging"
	"github.com/iag-lol/gastosanuales-app/report"
	"github.com/iag-lol/gastosanuales-app/store"
	"github.com/iag-lol/gastosanuales-app/store/sqlite"
	"github.com/iag-lol/gastosanuales-app/utilities"
)

var (
	flagDB       string
	flagPort     string
	flagLogLevel string
	flagConfig   string

	flagNow      string
	flagScenario string
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Household obligations and utilities tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reminder scheduler",
	RunE:  runServe,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print totals, alerts and utility insights",
	RunE:  runSummary,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the database contents with a demo scenario",
	RunE:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default from DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "HTTP server port (default from PORT)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML household file (default from CONFIG_FILE)")

	summaryCmd.Flags().StringVar(&flagNow, "now", "", "Reference date YYYY-MM-DD (default today)")
	seedCmd.Flags().StringVar(&flagNow, "now", "", "Reference date YYYY-MM-DD (default today)")
	seedCmd.Flags().StringVar(&flagScenario, "scenario", "household", "Scenario to load: household, debt-payoff, empty")

	rootCmd.AddCommand(serveCmd, summaryCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies the command-line overrides.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		os.Setenv("CONFIG_FILE", flagConfig)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagPort != "" {
		cfg.Port = flagPort
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func referenceTime() (time.Time, error) {
	if flagNow == "" {
		return time.Now().UTC(), nil
	}
	t, err := finance.ParseDate(flagNow)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now: %w", err)
	}
	return t, nil
}

func settings(cfg *config.Config) api.Settings {
	return api.Settings{
		TrendMonths:     cfg.TrendMonths,
		AlertLimit:      cfg.AlertLimit,
		ReminderHorizon: cfg.ReminderHorizon,
	}
}

// servicePresets converts the TOML presets to factory input. A preset with
// a rate prices its unconfirmed readings automatically.
func servicePresets(presets []config.ServicePreset) []factory.ServiceJSON {
	out := make([]factory.ServiceJSON, 0, len(presets))
	for _, p := range presets {
		sj := factory.ServiceJSON{
			Name:         p.Name,
			Kind:         p.Kind,
			Unit:         p.Unit,
			RatePerUnit:  finance.Amount(p.Rate),
			AutoEstimate: strings.TrimSpace(p.Rate) != "",
		}
		if strings.TrimSpace(p.Budget) != "" {
			budget := finance.Amount(p.Budget)
			sj.GoalMonthlyBudget = &budget
		}
		out = append(out, sj)
	}
	return out
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Initialize store
	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer st.Close()

	// Initialize handler
	handler := api.NewHandler(st, log, settings(cfg))

	// Seed services on first start
	created, err := handler.EnsureServices(cmd.Context(), servicePresets(cfg.Household.Services))
	if err != nil {
		log.WithError(err).Warn("failed to seed utility services")
	} else if created > 0 {
		log.WithField("count", created).Info("utility services created")
	}

	scheduler, err := api.NewReminderScheduler(st, log, cfg.ReminderSchedule, cfg.ReminderHorizon)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr": cfg.Addr(),
			"db":   cfg.DBPath,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Wait for interrupt signal or a failed listener
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// =============================================================================
// SUMMARY
// =============================================================================

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	now, err := referenceTime()
	if err != nil {
		return err
	}

	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	var (
		obligations  []debts.Obligation
		services     []utilities.Service
		measurements []utilities.Measurement
	)
	ctx := cmd.Context()
	from := finance.MonthOf(now).PreviousMonth().Start

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		obligations, err = st.ListObligations(gctx, store.ObligationFilter{})
		return err
	})
	g.Go(func() (err error) {
		services, err = st.ListServices(gctx)
		return err
	})
	g.Go(func() (err error) {
		measurements, err = st.ListMeasurements(gctx, store.MeasurementFilter{From: &from})
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	r := report.Build(cfg.Household.Name, obligations, services, measurements, now, cfg.AlertLimit)
	fmt.Fprint(cmd.OutOrStdout(), report.Render(r))
	return nil
}

// =============================================================================
// SEED
// =============================================================================

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	now, err := referenceTime()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	handler := api.NewHandler(st, log, settings(cfg))
	if err := handler.LoadScenarioByID(cmd.Context(), flagScenario, now); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"scenario": flagScenario,
		"db":       cfg.DBPath,
	}).Info("scenario loaded")
	return nil
}
