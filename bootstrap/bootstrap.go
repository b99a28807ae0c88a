// Package bootstrap wires a Pipeline from configuration.
//
// Both the Lambda binary and `posters invoke` build their pipeline here,
// so a local run exercises exactly the production wiring.
package bootstrap

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/pithecene-io/posters/awsx"
	"github.com/pithecene-io/posters/config"
	"github.com/pithecene-io/posters/generation"
	"github.com/pithecene-io/posters/ledger"
	"github.com/pithecene-io/posters/log"
	"github.com/pithecene-io/posters/metrics"
	"github.com/pithecene-io/posters/notify"
	"github.com/pithecene-io/posters/notify/redis"
	"github.com/pithecene-io/posters/notify/webhook"
	"github.com/pithecene-io/posters/pipeline"
	"github.com/pithecene-io/posters/publish"
)

// App is a wired pipeline plus the resources it owns.
type App struct {
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Collector

	closers []func() error
}

// Close releases notifier and ledger resources. Safe to call once.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// Build creates the AWS clients, stages and side effects described by cfg.
// AWS configuration is loaded once, here, and reused by every invocation.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Storage.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Storage.Region))
	}
	clients := awsx.NewClients(storageS3Config(cfg), cfg.Model.Region, loadOpts...)

	// Fail at cold start, not on the first request.
	awsCfg, err := clients.Config(ctx)
	if err != nil {
		return nil, err
	}
	if err := awsx.RequireRegion(awsCfg); err != nil {
		return nil, err
	}

	bedrock, err := clients.Bedrock(ctx)
	if err != nil {
		return nil, err
	}
	s3Client, err := clients.S3(ctx)
	if err != nil {
		return nil, err
	}

	gen, err := generation.NewGenerator(bedrock, generation.Config{
		ModelID:     cfg.Model.ID,
		GuardrailID: cfg.Guardrail.ID,
	})
	if err != nil {
		return nil, err
	}

	pub, err := publish.NewS3Publisher(s3Client, publish.Config{
		Bucket:      cfg.Storage.Bucket,
		ContentType: cfg.Storage.ContentType,
	})
	if err != nil {
		return nil, err
	}

	app := &App{
		Metrics: metrics.NewCollector(gen.ModelID(), pub.Bucket(), cfg.Ledger.Backend, notifyType(cfg.Notify)),
	}
	pcfg := pipeline.Config{
		Generator: gen,
		Publisher: pub,
		Metrics:   app.Metrics,
		Logger:    logger,
		ModelID:   gen.ModelID(),
	}

	rec, err := NewLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		pcfg.Ledger = rec
		app.closers = append(app.closers, rec.Close)
	}

	n, err := NewNotifier(cfg.Notify)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if n != nil {
		pcfg.Notifier = n
		app.closers = append(app.closers, n.Close)
	}

	app.Pipeline, err = pipeline.New(pcfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	logger.Info("pipeline ready", map[string]any{
		"bucket":         pub.Bucket(),
		"model_id":       gen.ModelID(),
		"ledger_backend": cfg.Ledger.Backend,
		"notify_type":    notifyType(cfg.Notify),
		"guardrail_set":  cfg.Guardrail.ID != "",
	})
	return app, nil
}

// NewLedger opens the configured ledger. Returns nil when the ledger is
// disabled.
func NewLedger(ctx context.Context, cfg *config.Config) (*ledger.Recorder, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerNone, "":
		return nil, nil
	case config.LedgerFS:
		return ledger.NewFS(cfg.Ledger.Dataset, cfg.Ledger.Path)
	case config.LedgerS3:
		// The ledger may live in another region than the poster bucket.
		s3cfg := storageS3Config(cfg)
		s3cfg.Region = cfg.Ledger.Region
		return ledger.NewS3(ctx, cfg.Ledger.Dataset, cfg.Ledger.Path, s3cfg)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

// NewNotifier creates the configured notifier. Returns nil when
// notifications are disabled.
func NewNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	retries := 0
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case config.NotifyNone:
		return nil, nil
	case config.NotifyWebhook:
		n, err := webhook.New(webhook.Config{
			URL:      cfg.URL,
			Headers:  cfg.Headers,
			Encoding: cfg.Encoding,
			Timeout:  cfg.Timeout.Duration,
			Retries:  retries,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	case config.NotifyRedis:
		n, err := redis.New(redis.Config{
			URL:      cfg.URL,
			Channel:  cfg.Channel,
			Encoding: cfg.Encoding,
			Timeout:  cfg.Timeout.Duration,
			Retries:  retries,
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown notify type %q", cfg.Type)
	}
}

func storageS3Config(cfg *config.Config) awsx.S3Config {
	return awsx.S3Config{
		Region:       cfg.Storage.Region,
		Endpoint:     cfg.Storage.Endpoint,
		UsePathStyle: cfg.Storage.S3PathStyle,
	}
}

func notifyType(cfg config.NotifyConfig) string {
	if cfg.Type == config.NotifyNone {
		return "none"
	}
	return cfg.Type
}
