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

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/export"
	"github.com/hanko-field/ordersim/internal/handlers"
	"github.com/hanko-field/ordersim/internal/platform/config"
	"github.com/hanko-field/ordersim/internal/platform/observability"
	"github.com/hanko-field/ordersim/internal/services"
)

const (
	dateLayout      = "2006-01-02"
	shutdownTimeout = 10 * time.Second
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "simulate one dataset run and write it to the output directory",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "seed", Usage: "random seed; 0 derives one from the clock"},
			&cli.IntFlag{Name: "skus", Usage: "number of SKUs in the catalog"},
			&cli.IntFlag{Name: "months", Usage: "number of simulated months"},
			&cli.StringFlag{Name: "end-date", Usage: "last simulated day (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output directory"},
			&cli.StringSliceFlag{Name: "formats", Usage: "artifact formats: csv, daily, xlsx"},
			&cli.BoolFlag{Name: "smooth", Usage: "smooth the daily training series"},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := applyGenerateFlags(c, &rt.cfg); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if err := rt.cfg.Simulation.Validate(); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	svc, _, err := rt.buildDatasetService(c.Context)
	if err != nil {
		return err
	}

	run, err := svc.GenerateDataset(c.Context, services.GenerateDatasetCommand{
		Settings:  rt.cfg.Simulation,
		OutputDir: rt.cfg.Output.Dir,
		Smooth:    rt.cfg.Output.SmoothDaily,
	})
	if err != nil && run.Manifest.RunID == "" {
		return fmt.Errorf("generate dataset: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "run %s (seed %d) %s..%s\n", run.RunID, run.Manifest.Seed, run.Manifest.StartDate, run.Manifest.EndDate)
	fmt.Fprint(out, export.NewSummary(run.Result.Orders).Format(rt.cfg.Output.Locale))
	for _, artifact := range run.Artifacts {
		location := artifact.Path
		if artifact.URI != "" {
			location = artifact.URI
		}
		fmt.Fprintf(out, "  %-8s %s\n", artifact.Format, location)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("local output written; distribution failed: %v", err), 3)
	}
	return nil
}

func applyGenerateFlags(c *cli.Context, cfg *config.Config) error {
	sim := &cfg.Simulation
	if c.IsSet("seed") {
		sim.Seed = c.Int64("seed")
	}
	if c.IsSet("skus") {
		sim.NumberOfSKUs = c.Int("skus")
	}
	if c.IsSet("months") {
		sim.NumberOfMonths = c.Int("months")
	}
	if c.IsSet("end-date") {
		end, err := time.Parse(dateLayout, strings.TrimSpace(c.String("end-date")))
		if err != nil {
			return fmt.Errorf("--end-date must be formatted as YYYY-MM-DD")
		}
		sim.EndDate = end
	}
	if c.IsSet("output") {
		cfg.Output.Dir = c.String("output")
	}
	if c.IsSet("formats") {
		var formats []string
		for _, value := range c.StringSlice("formats") {
			for _, part := range strings.Split(value, ",") {
				if part = strings.TrimSpace(part); part != "" {
					formats = append(formats, part)
				}
			}
		}
		cfg.Output.Formats = formats
	}
	if c.IsSet("smooth") {
		cfg.Output.SmoothDaily = c.Bool("smooth")
	}
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP trigger for dataset generation",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address, overrides ORDERSIM_HTTP_ADDR"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.cfg
	if addr := strings.TrimSpace(c.String("addr")); addr != "" {
		cfg.Server.Addr = addr
	}

	svc, out, err := rt.buildDatasetService(c.Context)
	if err != nil {
		return err
	}

	datasetHandlers, err := handlers.NewDatasetHandlers(handlers.DatasetHandlersDeps{
		Service:  svc,
		Settings: cfg.Simulation,
		Smooth:   cfg.Output.SmoothDaily,
		Locale:   cfg.Output.Locale,
	})
	if err != nil {
		return err
	}
	referenceHandlers, err := handlers.NewReferenceHandlers(svc, cfg.Simulation.NumberOfSKUs, cfg.Simulation.Seed, nil)
	if err != nil {
		return err
	}

	healthOpts := []handlers.HealthOption{
		handlers.WithHealthVersion(version),
		handlers.WithReadinessCheck("output_dir", func(context.Context) error {
			return checkWritable(cfg.Output.Dir)
		}),
	}
	if out.firestore != nil {
		provider := out.firestore
		healthOpts = append(healthOpts, handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			_, err := provider.Client(ctx)
			return err
		}))
	}

	logger := rt.logger
	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(nil),
			observability.RequestLoggerMiddleware(logger.Named("http")),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithDatasetRoutes(datasetHandlers.Routes),
		handlers.WithReferenceRoutes(referenceHandlers.Routes),
	)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	serveErr := make(chan error, 1)
	go func() {
		serverLogger.Info("ordersim listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-shutdown:
		logger.Info("shutdown signal received; draining requests")
	case <-c.Context.Done():
		logger.Info("context cancelled; draining requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func holidaysCommand() *cli.Command {
	return &cli.Command{
		Name:  "holidays",
		Usage: "list the holidays the simulation applies",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "year", Usage: "calendar year; defaults to the current year"},
			&cli.StringFlag{Name: "country", Value: "US", Usage: "holiday calendar country"},
		},
		Action: runHolidays,
	}
}

func runHolidays(c *cli.Context) error {
	year := c.Int("year")
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	provider, err := calendar.NewHolidayProvider(c.String("country"), nil)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	set, err := provider.Holidays(c.Context, from, to)
	if err != nil {
		return err
	}
	for _, holiday := range set.List() {
		if holiday.Date.Year() != year {
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s  %s\n", holiday.Date.Format(dateLayout), holiday.Name)
	}
	return nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".readyz-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
