package types

import "time"

// ArtifactKeyPrefix is the fixed prefix of every stored poster key.
const ArtifactKeyPrefix = "posterName"

// ArtifactKeyLayout is the timestamp layout appended to ArtifactKeyPrefix.
// Second precision: two artifacts in the same second share a key.
const ArtifactKeyLayout = "2006-01-02-15-04-05"

// RetrievalExpiry is the validity of a presigned retrieval URL.
const RetrievalExpiry = 3600 * time.Second

// Artifact is a generated image awaiting persistence.
type Artifact struct {
	Key         string
	Data        []byte
	ContentType string
	CreatedAt   time.Time
}

// ArtifactKey returns the storage key for an artifact created at t.
func ArtifactKey(t time.Time) string {
	return ArtifactKeyPrefix + t.Format(ArtifactKeyLayout)
}

// PublishedArtifact describes a persisted artifact and its retrieval handle.
type PublishedArtifact struct {
	Bucket    string        `json:"bucket"`
	Key       string        `json:"key"`
	URL       string        `json:"url"`
	Expiry    time.Duration `json:"expiry"`
	SizeBytes int64         `json:"size_bytes"`
	CreatedAt time.Time     `json:"created_at"`
}
