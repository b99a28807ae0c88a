// Package types defines core domain types for the poster pipeline.
//
//nolint:revive // types is a common Go package naming convention
package types

// TriggerKind discriminates the event source that invoked the pipeline.
type TriggerKind string

const (
	// TriggerDirect is a direct Lambda invocation (SDK, console, CLI).
	TriggerDirect TriggerKind = "direct"
	// TriggerGateway is an API Gateway style event.
	TriggerGateway TriggerKind = "gateway"
	// TriggerLoadBalancer is an Application Load Balancer target group event.
	// Its body arrives as a raw string and must be parsed.
	TriggerLoadBalancer TriggerKind = "load_balancer"
)

// Trigger is the tagged form of a raw invocation event.
// Constructed once per invocation and read-only afterwards.
type Trigger struct {
	// Kind is the event source.
	Kind TriggerKind
	// Payload is the raw event mapping.
	Payload map[string]any
	// Body is the string-encoded request body (load_balancer only).
	Body string
}

// IsValid reports whether the trigger kind is one of the known kinds.
func (k TriggerKind) IsValid() bool {
	switch k {
	case TriggerDirect, TriggerGateway, TriggerLoadBalancer:
		return true
	default:
		return false
	}
}
