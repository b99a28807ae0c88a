package types

import "time"

// ResultStatus is the terminal status of a pipeline run.
type ResultStatus string

const (
	// ResultOK indicates the artifact was published.
	ResultOK ResultStatus = "ok"
	// ResultFailed indicates a stage failed.
	ResultFailed ResultStatus = "failed"
)

// FailureKind names a failure class of the pipeline.
type FailureKind string

const (
	FailureMalformedInput FailureKind = "malformed_input"
	FailureMissingPrompt  FailureKind = "missing_prompt"
	FailureGeneration     FailureKind = "generation_error"
	FailurePublish        FailureKind = "publish_error"
	// FailureInternal covers anything outside the taxonomy (panics, bugs).
	FailureInternal FailureKind = "internal_error"
)

// PipelineResult is the terminal value of a pipeline run.
// Exactly one of the success fields (URL, Expiry) or the failure fields
// (Kind, Message) is meaningful, selected by Status.
type PipelineResult struct {
	Status ResultStatus `json:"status"`

	URL      string             `json:"url,omitempty"`
	Expiry   time.Duration      `json:"expiry,omitempty"`
	Artifact *PublishedArtifact `json:"artifact,omitempty"`

	Kind    FailureKind `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Success builds a successful result for a published artifact.
func Success(a *PublishedArtifact) *PipelineResult {
	return &PipelineResult{
		Status:   ResultOK,
		URL:      a.URL,
		Expiry:   a.Expiry,
		Artifact: a,
	}
}

// Failure builds a failed result.
func Failure(kind FailureKind, message string) *PipelineResult {
	return &PipelineResult{
		Status:  ResultFailed,
		Kind:    kind,
		Message: message,
	}
}

// OK reports whether the result is a success.
func (r *PipelineResult) OK() bool {
	return r != nil && r.Status == ResultOK
}
