package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/pithecene-io/posters/types"
)

const contentTypeJSON = "application/json"

// StatusCode maps a result onto its HTTP status: 200 on success, 400 for
// caller mistakes, 500 for everything else.
func StatusCode(r *types.PipelineResult) int {
	if r.OK() {
		return http.StatusOK
	}
	switch r.Kind {
	case types.FailureMalformedInput, types.FailureMissingPrompt:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// StatusDescription returns the load balancer status line for code,
// e.g. "400 Bad Request".
func StatusDescription(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}

// Response renders a result as a load balancer response.
// Success bodies are the bare URL; failure bodies are {"error": message}.
func Response(r *types.PipelineResult) events.ALBTargetGroupResponse {
	code := StatusCode(r)
	body := r.URL
	if !r.OK() {
		body = errorBody(r.Message)
	}
	return events.ALBTargetGroupResponse{
		StatusCode:        code,
		StatusDescription: StatusDescription(code),
		Headers:           map[string]string{"Content-Type": contentTypeJSON},
		Body:              body,
		IsBase64Encoded:   false,
	}
}

// errorBody encodes {"error": message} without HTML escaping, so error
// text with <, > or & reaches the caller verbatim.
func errorBody(message string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string{"error": message}); err != nil {
		return `{"error":"internal error"}`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
