// Package ingress turns raw Lambda events into normalized requests.
//
// Three trigger shapes are accepted: direct invocation, API Gateway style
// events, and Application Load Balancer events. Only the load balancer
// shape carries its body as a string that needs decoding.
package ingress

import (
	"encoding/json"
	"fmt"

	"github.com/pithecene-io/posters/types"
)

// Event field names.
const (
	fieldRequestContext = "requestContext"
	fieldELB            = "elb"
	fieldBody           = "body"
	fieldPrompt         = "prompt"
)

// Classify tags a raw event with its trigger kind.
// An event with requestContext.elb is a load balancer event; any other
// event with a requestContext is a gateway event; the rest are direct.
func Classify(event map[string]any) *types.Trigger {
	if event == nil {
		event = map[string]any{}
	}

	rc, hasRC := event[fieldRequestContext].(map[string]any)
	if hasRC {
		if _, ok := rc[fieldELB]; ok {
			body, _ := event[fieldBody].(string)
			return &types.Trigger{
				Kind:    types.TriggerLoadBalancer,
				Payload: event,
				Body:    body,
			}
		}
		return &types.Trigger{Kind: types.TriggerGateway, Payload: event}
	}
	return &types.Trigger{Kind: types.TriggerDirect, Payload: event}
}

// normalizer is the per-kind normalization function.
type normalizer func(*types.Trigger) (*types.NormalizedRequest, error)

var normalizers = map[types.TriggerKind]normalizer{
	types.TriggerDirect:       normalizePayload,
	types.TriggerGateway:      normalizePayload,
	types.TriggerLoadBalancer: normalizeLoadBalancer,
}

// Normalize produces a NormalizedRequest from a trigger.
// The prompt is not validated here beyond its type.
func Normalize(trigger *types.Trigger) (*types.NormalizedRequest, error) {
	if trigger == nil {
		return nil, types.MalformedInput("missing trigger", nil)
	}
	if !trigger.Kind.IsValid() {
		return nil, types.MalformedInput(
			fmt.Sprintf("unsupported trigger kind %q", trigger.Kind), nil)
	}
	return normalizers[trigger.Kind](trigger)
}

// normalizePayload treats the payload itself as the request body.
func normalizePayload(trigger *types.Trigger) (*types.NormalizedRequest, error) {
	return fromMapping(trigger.Payload, trigger.Payload)
}

// normalizeLoadBalancer decodes the string body. A prompt missing from the
// body falls back to a top-level prompt on the raw event; options always
// come from a decoded body, never from the event envelope.
func normalizeLoadBalancer(trigger *types.Trigger) (*types.NormalizedRequest, error) {
	if trigger.Body == "" {
		return fromMapping(trigger.Payload, trigger.Payload)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(trigger.Body), &body); err != nil {
		return nil, types.MalformedInput("Invalid JSON in request body", err)
	}
	// A JSON null body decodes without error into a nil map.
	if body == nil {
		return nil, types.MalformedInput("Invalid JSON in request body", nil)
	}

	if _, ok := body[fieldPrompt]; ok {
		return fromMapping(body, body)
	}
	return fromMapping(trigger.Payload, body)
}

// fromMapping reads the prompt from promptSrc and the options from
// optionSrc. A prompt key in optionSrc is never an option.
func fromMapping(promptSrc, optionSrc map[string]any) (*types.NormalizedRequest, error) {
	req := &types.NormalizedRequest{Options: map[string]any{}}

	raw, ok := promptSrc[fieldPrompt]
	if ok && raw != nil {
		prompt, isString := raw.(string)
		if !isString {
			return nil, types.MalformedInput("prompt must be a string", nil)
		}
		req.Prompt = prompt
	}

	for k, v := range optionSrc {
		if k == fieldPrompt {
			continue
		}
		req.Options[k] = v
	}
	return req, nil
}
