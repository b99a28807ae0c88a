// Package pipeline runs one poster request end to end.
//
// Stages run strictly in order and the first failure short-circuits:
//
//	classify -> normalize -> validate -> generate -> publish
//
// After a successful publish the pipeline records the poster in the
// ledger and sends a notification. Both are optional and best-effort:
// their failures are logged and counted but never change the response.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"github.com/pithecene-io/posters/ingress"
	"github.com/pithecene-io/posters/log"
	"github.com/pithecene-io/posters/metrics"
	"github.com/pithecene-io/posters/notify"
	"github.com/pithecene-io/posters/types"
)

// ImageGenerator turns a validated request into raw image bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, req *types.NormalizedRequest, logger *log.Logger) ([]byte, error)
}

// ArtifactPublisher persists image bytes and returns a retrieval handle.
type ArtifactPublisher interface {
	Publish(ctx context.Context, data []byte, logger *log.Logger) (*types.PublishedArtifact, error)
}

// Recorder appends published posters to the ledger.
type Recorder interface {
	Record(ctx context.Context, rec *types.PosterRecord) error
}

// Config wires a Pipeline. Generator and Publisher are required.
type Config struct {
	Generator ImageGenerator
	Publisher ArtifactPublisher
	// Ledger is optional; nil disables recording.
	Ledger Recorder
	// Notifier is optional; nil disables notifications.
	Notifier notify.Notifier
	// Metrics is optional; a nil collector ignores all increments.
	Metrics *metrics.Collector
	// Logger is the base logger (default: no-op).
	Logger *log.Logger
	// ModelID is reported in ledger rows and notifications.
	ModelID string
}

// Pipeline executes poster requests. It holds no per-request state and
// may serve any number of sequential invocations.
type Pipeline struct {
	generator ImageGenerator
	publisher ArtifactPublisher
	ledger    Recorder
	notifier  notify.Notifier
	metrics   *metrics.Collector
	logger    *log.Logger
	modelID   string
}

// New creates a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Generator == nil {
		return nil, errors.New("pipeline: generator is required")
	}
	if cfg.Publisher == nil {
		return nil, errors.New("pipeline: publisher is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &Pipeline{
		generator: cfg.Generator,
		publisher: cfg.Publisher,
		ledger:    cfg.Ledger,
		notifier:  cfg.Notifier,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		modelID:   cfg.ModelID,
	}, nil
}

// Handle is the Lambda entry point. It never returns an error: every
// failure, panics included, becomes a structured load balancer response.
func (p *Pipeline) Handle(ctx context.Context, event map[string]any) (events.ALBTargetGroupResponse, error) {
	result := p.Invoke(ctx, event, InvocationMetaFrom(ctx))
	return Response(result), nil
}

// Invoke runs one raw event through the pipeline under the given identity.
// A nil meta is read from ctx.
func (p *Pipeline) Invoke(ctx context.Context, event map[string]any, meta *types.InvocationMeta) (result *types.PipelineResult) {
	if meta == nil {
		meta = InvocationMetaFrom(ctx)
	}
	logger := p.logger.ForInvocation(meta)
	p.metrics.IncInvocation()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("unexpected error", map[string]any{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			result = types.Failure(types.FailureInternal, fmt.Sprintf("Internal error: %v", r))
			p.metrics.IncFailed(string(result.Kind))
		}
		logger.Info("invocation metrics", p.metrics.Snapshot().Fields())
	}()

	logger.Debug("received event", map[string]any{"event": event})

	trigger := ingress.Classify(event)
	logger = logger.With("trigger", string(trigger.Kind))

	result = p.Run(ctx, trigger, meta, logger)
	if result.OK() {
		p.metrics.IncSucceeded()
	} else {
		p.metrics.IncFailed(string(result.Kind))
	}
	return result
}

// Run executes the stages for a classified trigger.
func (p *Pipeline) Run(ctx context.Context, trigger *types.Trigger, meta *types.InvocationMeta, logger *log.Logger) *types.PipelineResult {
	req, err := ingress.Normalize(trigger)
	if err != nil {
		return p.fail(logger, "normalize", err)
	}

	if err := Validate(req); err != nil {
		return p.fail(logger, "validate", err)
	}

	logger.Info("generating poster", map[string]any{
		"prompt_length": len(req.Prompt),
	})

	image, err := p.generator.Generate(ctx, req, logger)
	if err != nil {
		return p.fail(logger, "generate", err)
	}
	p.metrics.AddImage(len(image))

	art, err := p.publisher.Publish(ctx, image, logger)
	if err != nil {
		return p.fail(logger, "publish", err)
	}

	p.recordPoster(ctx, logger, req, art, meta)
	p.sendNotification(ctx, logger, art, meta)

	logger.Info("poster published", map[string]any{
		"bucket":     art.Bucket,
		"key":        art.Key,
		"size_bytes": art.SizeBytes,
	})
	return types.Success(art)
}

// fail logs the full error and converts it into a failed result. Errors
// outside the taxonomy become internal errors carrying their own text.
func (p *Pipeline) fail(logger *log.Logger, stage string, err error) *types.PipelineResult {
	kind := types.KindOf(err)
	message := types.MessageOf(err)
	if kind == types.FailureInternal {
		message = "Internal error: " + err.Error()
	}

	fields := map[string]any{
		"stage": stage,
		"kind":  string(kind),
		"error": err.Error(),
	}
	if kind == types.FailureMalformedInput || kind == types.FailureMissingPrompt {
		logger.Warn("request rejected", fields)
	} else {
		logger.Error("request failed", fields)
	}
	return types.Failure(kind, message)
}

func (p *Pipeline) recordPoster(ctx context.Context, logger *log.Logger, req *types.NormalizedRequest, art *types.PublishedArtifact, meta *types.InvocationMeta) {
	if p.ledger == nil {
		return
	}
	rec := types.NewPosterRecord(req, art, p.modelID, meta.InvocationID)
	if err := p.ledger.Record(ctx, rec); err != nil {
		p.metrics.IncLedgerWriteFailure()
		logger.Warn("ledger write failed", map[string]any{
			"key":   art.Key,
			"error": err.Error(),
		})
		return
	}
	p.metrics.IncLedgerWriteSuccess()
}

func (p *Pipeline) sendNotification(ctx context.Context, logger *log.Logger, art *types.PublishedArtifact, meta *types.InvocationMeta) {
	if p.notifier == nil {
		return
	}
	event := notify.NewPosterPublishedEvent(meta.InvocationID, p.modelID, art)
	if err := p.notifier.Notify(ctx, event); err != nil {
		p.metrics.IncNotifyFailure()
		logger.Warn("notification failed", map[string]any{
			"key":   art.Key,
			"error": err.Error(),
		})
		return
	}
	p.metrics.IncNotifySuccess()
}

// InvocationMetaFrom reads the invocation identity from the Lambda context.
// Outside Lambda a random ID is generated.
func InvocationMetaFrom(ctx context.Context) *types.InvocationMeta {
	meta := &types.InvocationMeta{
		FunctionName:    lambdacontext.FunctionName,
		FunctionVersion: lambdacontext.FunctionVersion,
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		meta.InvocationID = lc.AwsRequestID
	} else {
		meta.InvocationID = uuid.NewString()
	}
	return meta
}
