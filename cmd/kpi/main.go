package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresuchdata/controltower/backend-go/internal/app"
	"github.com/andresuchdata/controltower/backend-go/internal/config"
	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/controltower/backend-go/internal/scheduler"
	"github.com/andresuchdata/controltower/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

func newTenantFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "tenant",
		Aliases:  []string{"t"},
		Usage:    "Tenant id to run",
		Required: required,
	}
}

func newDateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "date",
		Aliases: []string{"d"},
		Usage:   "As-of date in YYYY-MM-DD format (defaults to today in ENGINE_TIMEZONE)",
	}
}

func initApp(c *cli.Context) error {
	cfg := config.Load()
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	if c.IsSet("db-url") {
		cfg.Database.URL = c.String("db-url")
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	c.App.Metadata[appKeyName] = application
	return nil
}

const appKeyName = "app"

func closeApp(c *cli.Context) error {
	if application, ok := c.App.Metadata[appKeyName].(*app.App); ok && application != nil {
		application.Close()
	}
	return nil
}

func fromContext(c *cli.Context) *app.App {
	application, _ := c.App.Metadata[appKeyName].(*app.App)
	return application
}

func main() {
	cliApp := &cli.App{
		Name:     "kpi",
		Usage:    "Compute inventory KPI snapshots",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Before: initApp,
		After:  closeApp,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the KPI engine for one tenant",
				Flags: []cli.Flag{newTenantFlag(true), newDateFlag()},
				Action: func(c *cli.Context) error {
					result, err := fromContext(c).Service.Run(c.Context, domain.RunRequest{
						TenantID: c.String("tenant"),
						AsOfDate: c.String("date"),
					})
					printResult(result)
					return err
				},
			},
			{
				Name:  "run-all",
				Usage: "Run the KPI engine for every configured or discovered tenant",
				Flags: []cli.Flag{newDateFlag()},
				Action: func(c *cli.Context) error {
					sched, err := fromContext(c).Scheduler()
					if err != nil {
						return err
					}
					results, err := sched.RunOnce(c.Context, c.String("date"))
					for _, r := range results {
						printResult(r)
					}
					return err
				},
			},
			{
				Name:  "migrate",
				Usage: "Create the KPI output tables and run ledger",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "with-inputs",
						Usage: "Also create the input tables (development databases)",
					},
				},
				Action: func(c *cli.Context) error {
					return migrate(c, fromContext(c).DB)
				},
			},
			{
				Name:  "schedule",
				Usage: "Run the KPI engine on SCHEDULER_CRON until interrupted",
				Action: func(c *cli.Context) error {
					sched, err := fromContext(c).Scheduler()
					if err != nil {
						return err
					}
					return runScheduler(c, sched)
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("kpi command failed")
		os.Exit(1)
	}
}

func migrate(c *cli.Context, db *postgres.DB) error {
	if db == nil {
		return errors.New("database is not initialized")
	}
	if err := db.Migrate(c.Context, c.Bool("with-inputs")); err != nil {
		return err
	}
	logger.Log.Info().Bool("with_inputs", c.Bool("with-inputs")).Msg("kpi schema migrated")
	return nil
}

func runScheduler(c *cli.Context, sched *scheduler.Scheduler) error {
	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-c.Context.Done():
	}

	sched.Stop(c.Context)
	return nil
}

func printResult(r domain.RunResult) {
	fmt.Printf("%s %s status=%s idi=%d scs=%d chi=%d gap=%d degraded=%t\n",
		r.TenantID, r.Date, r.Status(), r.IDIRows, r.SCSRows, r.CHIRows, r.GapRows, r.Degraded)
	for _, e := range r.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}
