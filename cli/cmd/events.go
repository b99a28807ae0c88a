package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/posters/cli/render"
	"github.com/pithecene-io/posters/types"
)

// Example event constants.
const (
	examplePrompt         = "A beautiful sunset over mountains"
	exampleTargetGroupARN = "arn:aws:elasticloadbalancing:us-east-1:123456789012:targetgroup/my-targets/73e2d6bc24d8c067"
	exampleHost           = "my-alb-1234567890.us-east-1.elb.amazonaws.com"
)

// ExampleEventsResponse is the response for the events command.
// Each entry is the raw event as the function receives it.
type ExampleEventsResponse struct {
	Direct       map[string]any `json:"direct" yaml:"direct"`
	Gateway      map[string]any `json:"gateway" yaml:"gateway"`
	LoadBalancer map[string]any `json:"load_balancer" yaml:"load_balancer"`
}

// ExampleEvent builds a raw event of the given trigger kind carrying
// prompt and, when non-nil, a seed option.
func ExampleEvent(kind types.TriggerKind, prompt string, seed *int) (map[string]any, error) {
	payload := map[string]any{"prompt": prompt}
	if seed != nil {
		payload[types.OptionSeed] = *seed
	}

	switch kind {
	case types.TriggerDirect:
		return payload, nil

	case types.TriggerGateway:
		payload["requestContext"] = map[string]any{
			"requestId": "c6af9ac6-7b61-11e6-9a41-93e8deadbeef",
			"stage":     "prod",
		}
		return payload, nil

	case types.TriggerLoadBalancer:
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req := events.ALBTargetGroupRequest{
			HTTPMethod: "POST",
			Path:       "/",
			Headers: map[string]string{
				"accept":          "application/json",
				"content-type":    "application/json",
				"host":            exampleHost,
				"user-agent":      "posters-cli/" + types.Version,
				"x-amzn-trace-id": "Root=1-67890abc-def1-2345-6789-abcdef123456",
			},
			RequestContext: events.ALBTargetGroupRequestContext{
				ELB: events.ELBContext{TargetGroupArn: exampleTargetGroupARN},
			},
			Body:            string(body),
			IsBase64Encoded: false,
		}
		return toEventMap(req)

	default:
		return nil, fmt.Errorf("unknown trigger shape %q (must be direct, gateway, or load_balancer)", kind)
	}
}

// ParseShape maps a --shape value onto a trigger kind.
func ParseShape(s string) (types.TriggerKind, error) {
	switch s {
	case "", "alb", "load_balancer":
		return types.TriggerLoadBalancer, nil
	case "gateway", "apigw":
		return types.TriggerGateway, nil
	case "direct":
		return types.TriggerDirect, nil
	default:
		return "", fmt.Errorf("unknown shape %q (must be alb, gateway, or direct)", s)
	}
}

// toEventMap round-trips v through JSON so the result matches what the
// Lambda runtime hands the handler.
func toEventMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// EventsCommand returns the events command.
func EventsCommand() *cli.Command {
	return &cli.Command{
		Name:      "events",
		Usage:     "Print example trigger events the function accepts",
		ArgsUsage: "[prompt...]",
		Flags:     ReadOnlyFlags(),
		Action:    eventsAction,
	}
}

func eventsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for events command", 1)
	}

	prompt := joinArgs(c.Args().Slice())
	if prompt == "" {
		prompt = examplePrompt
	}

	resp, err := exampleEvents(prompt)
	if err != nil {
		return err
	}

	// Nested event maps are unreadable as a table.
	if r.Format() == render.FormatTable {
		r = render.NewRendererWithWriter(render.FormatJSON, true, c.App.Writer)
	}
	return r.Render(resp)
}

func exampleEvents(prompt string) (*ExampleEventsResponse, error) {
	resp := &ExampleEventsResponse{}
	var err error
	if resp.Direct, err = ExampleEvent(types.TriggerDirect, prompt, nil); err != nil {
		return nil, err
	}
	if resp.Gateway, err = ExampleEvent(types.TriggerGateway, prompt, nil); err != nil {
		return nil, err
	}
	if resp.LoadBalancer, err = ExampleEvent(types.TriggerLoadBalancer, prompt, nil); err != nil {
		return nil, err
	}
	return resp, nil
}
