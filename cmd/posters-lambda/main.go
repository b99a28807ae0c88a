// Package main is the Lambda entrypoint for the poster pipeline.
//
// Configuration comes from $POSTERS_CONFIG (optional YAML file) and
// $GUARDRAIL_ID. AWS clients are built once per execution environment
// and reused across invocations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/pithecene-io/posters/bootstrap"
	"github.com/pithecene-io/posters/config"
	"github.com/pithecene-io/posters/iox"
	"github.com/pithecene-io/posters/log"
)

func main() {
	app, logger, err := setup(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "posters: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer iox.DiscardErr(app.Close)

	lambda.Start(app.Pipeline.Handle)
}

func setup(ctx context.Context) (*bootstrap.App, *log.Logger, error) {
	cfg, err := config.Resolve("")
	if err != nil {
		return nil, nil, err
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := log.NewLogger(level)

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("pipeline setup failed", map[string]any{"error": err.Error()})
		return nil, nil, err
	}
	return app, logger, nil
}
