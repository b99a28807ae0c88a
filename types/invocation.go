package types

import "errors"

// InvocationMeta identifies one pipeline invocation for logging.
type InvocationMeta struct {
	// InvocationID is the Lambda request ID, or a generated ID for local runs.
	InvocationID string
	// FunctionName is the Lambda function name (empty for local runs).
	FunctionName string
	// FunctionVersion is the Lambda function version (empty for local runs).
	FunctionVersion string
}

// Validate checks that the invocation has an identity.
func (m *InvocationMeta) Validate() error {
	if m == nil || m.InvocationID == "" {
		return errors.New("invocation_id is required")
	}
	return nil
}
