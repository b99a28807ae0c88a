package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/posters/bootstrap"
	"github.com/pithecene-io/posters/cli/render"
	"github.com/pithecene-io/posters/config"
	"github.com/pithecene-io/posters/pipeline"
	"github.com/pithecene-io/posters/types"
)

// InvokeResponse is the response for the invoke command.
type InvokeResponse struct {
	InvocationID string `json:"invocation_id"`
	Trigger      string `json:"trigger"`
	Status       string `json:"status"`
	StatusCode   int    `json:"status_code"`
	URL          string `json:"url,omitempty"`
	Key          string `json:"key,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	Kind         string `json:"kind,omitempty"`
	Message      string `json:"message,omitempty"`
}

// TableFields lays out the response for table output, outcome first.
func (r *InvokeResponse) TableFields() []render.Field {
	size := ""
	if r.SizeBytes > 0 {
		size = render.FormatSize(r.SizeBytes)
	}
	return []render.Field{
		{Name: "status", Value: r.Status},
		{Name: "status_code", Value: strconv.Itoa(r.StatusCode)},
		{Name: "url", Value: r.URL},
		{Name: "key", Value: r.Key},
		{Name: "size", Value: size},
		{Name: "kind", Value: r.Kind},
		{Name: "message", Value: r.Message},
		{Name: "trigger", Value: r.Trigger},
		{Name: "invocation_id", Value: r.InvocationID},
	}
}

// InvokeCommand returns the invoke command.
// It runs the production pipeline in-process against real AWS services,
// feeding it a synthesized trigger event.
func InvokeCommand() *cli.Command {
	return &cli.Command{
		Name:      "invoke",
		Usage:     "Run the pipeline locally with a synthesized trigger",
		ArgsUsage: "<prompt...>",
		Flags: append(ConfiguredFlags(),
			&cli.StringFlag{
				Name:  "shape",
				Usage: "Trigger shape: alb, gateway, direct",
				Value: "alb",
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "Model seed (omitted unless set)",
			},
		),
		Action: invokeAction,
	}
}

func invokeAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for invoke command", 1)
	}

	kind, err := ParseShape(c.String("shape"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	var seed *int
	if c.IsSet("seed") {
		v := c.Int("seed")
		seed = &v
	}

	// A blank prompt is sent on purpose: the pipeline owns validation.
	event, err := ExampleEvent(kind, joinArgs(c.Args().Slice()), seed)
	if err != nil {
		return err
	}

	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logger, sugar, err := commandLogger(cfg, "invoke", os.Stderr)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logger.Sync()
	sugar.Infof("config resolved: bucket=%s model=%s ledger=%s notify=%q",
		cfg.Storage.Bucket, cfg.Model.ID, cfg.Ledger.Backend, cfg.Notify.Type)

	started := time.Now()
	app, err := bootstrap.Build(c.Context, cfg, logger)
	if err != nil {
		sugar.Errorf("pipeline setup failed: %v", err)
		return cli.Exit(fmt.Sprintf("build pipeline: %v", err), 1)
	}
	sugar.Debugf("pipeline built in %s", time.Since(started).Round(time.Millisecond))
	defer func() {
		if err := app.Close(); err != nil {
			sugar.Warnf("close pipeline: %v", err)
		}
	}()

	resp := InvokeEvent(c.Context, app.Pipeline, kind, event, uuid.NewString())
	if err := r.Render(resp); err != nil {
		return err
	}
	if resp.Status != string(types.ResultOK) {
		return cli.Exit("", 1)
	}
	return nil
}

// InvokeEvent runs one event through p under invocationID and flattens
// the result for rendering.
func InvokeEvent(ctx context.Context, p *pipeline.Pipeline, kind types.TriggerKind, event map[string]any, invocationID string) *InvokeResponse {
	result := p.Invoke(ctx, event, &types.InvocationMeta{InvocationID: invocationID})

	resp := &InvokeResponse{
		InvocationID: invocationID,
		Trigger:      string(kind),
		Status:       string(result.Status),
		StatusCode:   pipeline.StatusCode(result),
		URL:          result.URL,
		Kind:         string(result.Kind),
		Message:      result.Message,
	}
	if result.Artifact != nil {
		resp.Key = result.Artifact.Key
		resp.SizeBytes = result.Artifact.SizeBytes
	}
	return resp
}
