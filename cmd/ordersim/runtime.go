package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/export"
	"github.com/hanko-field/ordersim/internal/platform/config"
	pfirestore "github.com/hanko-field/ordersim/internal/platform/firestore"
	"github.com/hanko-field/ordersim/internal/platform/jobs"
	"github.com/hanko-field/ordersim/internal/platform/observability"
	"github.com/hanko-field/ordersim/internal/platform/secrets"
	"github.com/hanko-field/ordersim/internal/platform/storage"
	"github.com/hanko-field/ordersim/internal/services"
)

const closeTimeout = 5 * time.Second

// runtime holds the loaded configuration and the process logger shared by every command.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	close  []func()
}

func (r *runtime) onClose(fn func()) {
	r.close = append(r.close, fn)
}

// Close releases resources in reverse acquisition order.
func (r *runtime) Close() {
	for i := len(r.close) - 1; i >= 0; i-- {
		r.close[i]()
	}
	_ = r.logger.Sync()
}

func loadRuntime(c *cli.Context) (*runtime, error) {
	ctx := c.Context
	envOpts := []config.Option{config.WithEnvFile(c.String("env-file"))}

	envValues, err := config.EnvironmentValues(envOpts...)
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	level := c.String("log-level")
	if level == "" {
		level = envValues["ORDERSIM_LOG_LEVEL"]
	}
	baseLogger, err := observability.NewLogger(level)
	if err != nil {
		return nil, fmt.Errorf("initialise logger: %w", err)
	}
	logger := baseLogger.Named("ordersim")
	rt := &runtime{logger: logger}

	resolver, err := newSecretResolver(ctx, logger, envValues)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	rt.onClose(func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret resolver close error", zap.Error(err))
		}
	})

	opts := append(envOpts, config.WithSecretResolver(resolver))
	if path := strings.TrimSpace(c.String("config")); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Error("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		rt.Close()
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	for _, diag := range cfg.Diagnostics {
		logger.Warn("configuration diagnostic",
			zap.String("source", diag.Source),
			zap.String("field", diag.Field),
			zap.String("detail", diag.Message),
		)
	}
	rt.cfg = cfg
	return rt, nil
}

func newSecretResolver(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Resolver, error) {
	project := strings.TrimSpace(env["ORDERSIM_SECRETS_PROJECT_ID"])
	if project == "" {
		project = strings.TrimSpace(env["ORDERSIM_GCP_PROJECT_ID"])
	}
	opts := []secrets.Option{
		secrets.WithLogger(logger),
		secrets.WithProject(project),
	}
	if path := strings.TrimSpace(env["ORDERSIM_SECRETS_FALLBACK_FILE"]); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	if project == "" {
		opts = append(opts, secrets.WithOffline())
	}
	resolver, err := secrets.NewResolver(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise secret resolver: %w", err)
	}
	return resolver, nil
}

// sinks are the optional remote destinations of a run.
type sinks struct {
	uploader  services.ArtifactUploader
	runs      services.RunRepository
	publisher services.DatasetPublisher
	firestore *pfirestore.Provider
}

func (r *runtime) buildSinks(ctx context.Context) (sinks, error) {
	var out sinks
	cfg := r.cfg

	if cfg.Storage.Enabled() {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return out, fmt.Errorf("initialise storage client: %w", err)
		}
		r.onClose(func() {
			if err := client.Close(); err != nil {
				r.logger.Warn("storage close error", zap.Error(err))
			}
		})
		store, err := storage.NewGCSStore(client)
		if err != nil {
			return out, err
		}
		uploader, err := storage.NewDatasetUploader(storage.DatasetUploaderOptions{
			Store:        store,
			Bucket:       cfg.Storage.Bucket,
			Prefix:       cfg.Storage.Prefix,
			MirrorLatest: cfg.Storage.MirrorLatest,
			Logger:       r.logger,
		})
		if err != nil {
			return out, err
		}
		out.uploader = uploader
	}

	if cfg.PubSub.Enabled() {
		client, err := pubsub.NewClient(ctx, cfg.GCP.ProjectID)
		if err != nil {
			return out, fmt.Errorf("initialise pubsub client: %w", err)
		}
		publisher, err := jobs.NewPubSubDatasetPublisher(client.Topic(cfg.PubSub.Topic))
		if err != nil {
			_ = client.Close()
			return out, err
		}
		r.onClose(func() {
			publisher.Stop()
			if err := client.Close(); err != nil {
				r.logger.Warn("pubsub close error", zap.Error(err))
			}
		})
		out.publisher = publisher
	}

	if cfg.Firestore.Enabled() {
		provider := pfirestore.NewProvider(cfg.Firestore)
		r.onClose(func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if err := provider.Close(closeCtx); err != nil {
				r.logger.Warn("firestore close error", zap.Error(err))
			}
		})
		repo, err := pfirestore.NewRunRepository(provider)
		if err != nil {
			return out, err
		}
		out.runs = repo
		out.firestore = provider
	}
	return out, nil
}

func (r *runtime) buildDatasetService(ctx context.Context) (*services.DatasetService, sinks, error) {
	cfg := r.cfg
	out, err := r.buildSinks(ctx)
	if err != nil {
		return nil, out, err
	}

	writer, err := export.NewFileWriter(export.FileWriterOptions{
		Formats: cfg.Output.Formats,
		Locale:  cfg.Output.Locale,
		Logger:  r.logger,
	})
	if err != nil {
		return nil, out, err
	}
	holidays, err := calendar.NewHolidayProvider(cfg.Holidays.Country, cfg.Holidays.Extra)
	if err != nil {
		return nil, out, err
	}

	deps := services.DatasetServiceDeps{
		Writer:    writer,
		Holidays:  holidays,
		Uploader:  out.uploader,
		Runs:      out.runs,
		Publisher: out.publisher,
		Observer:  observability.NewRunTelemetry(observability.WithTelemetryLogger(r.logger)),
		OutputDir: cfg.Output.Dir,
		Logger:    observability.ServiceLogger(r.logger.Named("services")),
	}
	if key := cfg.Signing.Key; key != "" {
		signer, err := export.NewHMACSigner([]byte(key))
		if err != nil {
			return nil, out, err
		}
		deps.Signer = signer
	}

	svc, err := services.NewDatasetService(deps)
	if err != nil {
		return nil, out, err
	}
	r.logger.Info("dataset service ready",
		zap.String("outputDir", cfg.Output.Dir),
		zap.Strings("formats", writer.Formats()),
		zap.Bool("upload", out.uploader != nil),
		zap.Bool("publish", out.publisher != nil),
		zap.Bool("registry", out.runs != nil),
		zap.Bool("signing", deps.Signer != nil),
	)
	return svc, out, nil
}
