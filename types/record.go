package types

import "time"

// RecordKindPoster discriminates poster rows in the ledger dataset.
const RecordKindPoster = "poster"

// RecordDayLayout is the format of a record's day partition.
const RecordDayLayout = "2006-01-02"

// PosterRecord is one ledger row describing a published poster.
type PosterRecord struct {
	RecordKind   string `json:"record_kind"`
	Day          string `json:"day"`
	Key          string `json:"key"`
	Bucket       string `json:"bucket"`
	Prompt       string `json:"prompt"`
	Seed         any    `json:"seed,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	ModelID      string `json:"model_id"`
	InvocationID string `json:"invocation_id"`
	CreatedAt    string `json:"created_at"`
}

// NewPosterRecord builds the ledger row for a published artifact.
// Day and CreatedAt are derived from the artifact's UTC creation time.
func NewPosterRecord(req *NormalizedRequest, art *PublishedArtifact, modelID, invocationID string) *PosterRecord {
	created := art.CreatedAt.UTC()
	rec := &PosterRecord{
		RecordKind:   RecordKindPoster,
		Day:          created.Format(RecordDayLayout),
		Key:          art.Key,
		Bucket:       art.Bucket,
		SizeBytes:    art.SizeBytes,
		ModelID:      modelID,
		InvocationID: invocationID,
		CreatedAt:    created.Format(time.RFC3339),
	}
	if req != nil {
		rec.Prompt = req.Prompt
		if seed, ok := req.Option(OptionSeed); ok {
			rec.Seed = seed
		}
	}
	return rec
}
