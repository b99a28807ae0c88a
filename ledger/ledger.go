// Package ledger records published posters in a lode dataset.
//
// Each successful publish appends one PosterRecord. Records are stored as
// JSONL under a Hive layout partitioned by day, so a day's posters can be
// located from manifest paths without reading every snapshot.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/pithecene-io/posters/awsx"
	"github.com/pithecene-io/posters/types"
)

// ErrEmptyRecord is returned when a record lacks its key or day.
var ErrEmptyRecord = errors.New("ledger record requires key and day")

// Recorder appends poster records to a lode dataset and reads them back.
type Recorder struct {
	dataset lode.Dataset
	name    string

	mu sync.Mutex // serializes writes; lode snapshots are append-ordered
}

// NewDataset creates the poster dataset on the given store factory.
// Use lode.NewMemoryFactory() for testing.
func NewDataset(name string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(name),
		factory,
		lode.WithHiveLayout("day"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// New creates a Recorder with a custom store factory.
func New(name string, factory lode.StoreFactory) (*Recorder, error) {
	ds, err := NewDataset(name, factory)
	if err != nil {
		return nil, fmt.Errorf("ledger: create dataset %q: %w", name, err)
	}
	return &Recorder{dataset: ds, name: name}, nil
}

// NewFS creates a Recorder with filesystem storage rooted at root.
func NewFS(name, root string) (*Recorder, error) {
	return New(name, lode.NewFSFactory(root))
}

// NewS3 creates a Recorder with S3 storage. path is "bucket" or
// "bucket/prefix". Uses the AWS SDK default credential chain.
func NewS3(ctx context.Context, name, path string, s3cfg awsx.S3Config) (*Recorder, error) {
	bucket, prefix := awsx.ParseS3Path(path)
	if bucket == "" {
		return nil, errors.New("ledger: S3 bucket is required")
	}

	client, err := awsx.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	factory := func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: bucket,
			Prefix: prefix,
		})
	}
	return New(name, factory)
}

// Name returns the dataset name.
func (r *Recorder) Name() string { return r.name }

// Record appends one poster record.
func (r *Recorder) Record(ctx context.Context, rec *types.PosterRecord) error {
	if rec == nil || rec.Key == "" || rec.Day == "" {
		return ErrEmptyRecord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.dataset.Write(ctx, []any{toRecordMap(rec)}, lode.Metadata{}); err != nil {
		return fmt.Errorf("ledger: write %s: %w", rec.Key, err)
	}
	return nil
}

// List returns the poster records for day, or for every day when day is
// empty, ordered by creation time then key.
func (r *Recorder) List(ctx context.Context, day string) ([]types.PosterRecord, error) {
	snapshots, err := r.dataset.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: list snapshots: %w", err)
	}

	seen := make(map[string]struct{})
	var out []types.PosterRecord
	for _, snap := range snapshots {
		if !snapshotHasDay(snap, day) {
			continue
		}

		data, err := r.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, fmt.Errorf("ledger: read snapshot %s: %w", snap.ID, err)
		}

		// Manifest paths are a coarse filter; record fields decide.
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok || m["record_kind"] != types.RecordKindPoster {
				continue
			}
			rec := fromRecordMap(m)
			if day != "" && rec.Day != day {
				continue
			}
			id := rec.InvocationID + "|" + rec.Key + "|" + rec.CreatedAt
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// Close releases recorder resources.
func (r *Recorder) Close() error {
	return nil
}

func toRecordMap(rec *types.PosterRecord) map[string]any {
	m := map[string]any{
		"record_kind":   types.RecordKindPoster,
		"day":           rec.Day,
		"key":           rec.Key,
		"bucket":        rec.Bucket,
		"prompt":        rec.Prompt,
		"size_bytes":    rec.SizeBytes,
		"model_id":      rec.ModelID,
		"invocation_id": rec.InvocationID,
		"created_at":    rec.CreatedAt,
	}
	if rec.Seed != nil {
		m["seed"] = rec.Seed
	}
	return m
}

func fromRecordMap(m map[string]any) types.PosterRecord {
	return types.PosterRecord{
		RecordKind:   toString(m["record_kind"]),
		Day:          toString(m["day"]),
		Key:          toString(m["key"]),
		Bucket:       toString(m["bucket"]),
		Prompt:       toString(m["prompt"]),
		Seed:         m["seed"],
		SizeBytes:    toInt64(m["size_bytes"]),
		ModelID:      toString(m["model_id"]),
		InvocationID: toString(m["invocation_id"]),
		CreatedAt:    toString(m["created_at"]),
	}
}

// snapshotHasDay reports whether any manifest file sits in the day=<day>
// partition. An empty day matches everything.
func snapshotHasDay(snap *lode.Snapshot, day string) bool {
	if day == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, "day", day) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks if a Hive-partitioned path contains an exact
// key=value segment, so day=2026-03-1 does not match day=2026-03-14.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}
