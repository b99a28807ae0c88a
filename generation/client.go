// Package generation invokes the Bedrock text-to-image model.
//
// One request is one blocking InvokeModel round trip. Failures are
// surfaced immediately as generation errors; retry policy belongs to the
// caller.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/pithecene-io/posters/log"
	"github.com/pithecene-io/posters/types"
)

const contentTypeJSON = "application/json"

// ModelInvoker is the subset of the Bedrock Runtime client used here.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config configures a Generator.
type Config struct {
	// ModelID is the Bedrock model ID (default: Titan Image Generator v2).
	ModelID string
	// GuardrailID is a configured content-safety guardrail. It is logged
	// and never sent: image generation models reject guardrail parameters.
	GuardrailID string
}

// Generator produces raw image bytes from a normalized request.
type Generator struct {
	invoker ModelInvoker
	config  Config
}

// NewGenerator creates a Generator backed by invoker.
func NewGenerator(invoker ModelInvoker, cfg Config) (*Generator, error) {
	if invoker == nil {
		return nil, errors.New("generation: model invoker is required")
	}
	if cfg.ModelID == "" {
		cfg.ModelID = types.DefaultModelID
	}
	return &Generator{invoker: invoker, config: cfg}, nil
}

// ModelID returns the configured model ID.
func (g *Generator) ModelID() string {
	return g.config.ModelID
}

// Generate invokes the model once and returns the decoded first image.
// All failures are returned as types.ErrGeneration errors.
func (g *Generator) Generate(ctx context.Context, req *types.NormalizedRequest, logger *log.Logger) ([]byte, error) {
	cfg := NewConfig(req.Options)

	body, err := encodeRequest(req.Prompt, cfg)
	if err != nil {
		return nil, types.GenerationError("encode", "Bedrock error: "+err.Error(), err)
	}

	if g.config.GuardrailID != "" {
		logger.Info("guardrail configured but not applied to image generation", map[string]any{
			"guardrail_id": g.config.GuardrailID,
			"model_id":     g.config.ModelID,
		})
	}

	// GuardrailIdentifier and GuardrailVersion stay unset on purpose.
	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.config.ModelID),
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
		Body:        body,
	}

	out, err := g.invoker.InvokeModel(ctx, input)
	if err != nil {
		fields := map[string]any{
			"model_id": g.config.ModelID,
			"error":    err.Error(),
		}
		if code := apiErrorCode(err); code != "" {
			fields["error_code"] = code
		}
		logger.Error("model invocation failed", fields)
		return nil, types.GenerationError("invoke", "Bedrock error: "+err.Error(), err)
	}

	image, err := decodeResponse(out.Body)
	if err != nil {
		logger.Error("error parsing model response", map[string]any{
			"model_id":      g.config.ModelID,
			"error":         err.Error(),
			"response_size": len(out.Body),
		})
		return nil, types.GenerationError("decode",
			fmt.Sprintf("Error parsing Bedrock response: %v", err), err)
	}

	logger.Info("image generated", map[string]any{
		"model_id":   g.config.ModelID,
		"size_bytes": len(image),
	})
	return image, nil
}

// apiErrorCode returns the service error code of err, if it carries one.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
