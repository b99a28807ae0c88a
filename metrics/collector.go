// Package metrics provides invocation counters for the poster pipeline.
//
// The Collector lives for the life of the process. A warm Lambda container
// serves many invocations, so counters are cumulative across them and the
// snapshot logged after each invocation shows the running totals.
// It is a leaf package with no internal dependencies.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Invocation lifecycle
	Invocations int64
	Succeeded   int64
	Failed      int64
	// FailedByKind is keyed by failure kind (e.g. "missing_prompt").
	FailedByKind map[string]int64

	// Generation
	ImagesGenerated int64
	BytesGenerated  int64

	// Side effects
	LedgerWriteSuccess int64
	LedgerWriteFailure int64
	NotifySuccess      int64
	NotifyFailure      int64

	// Dimensions (informational, set at construction)
	ModelID       string
	Bucket        string
	LedgerBackend string
	NotifyType    string
}

// Collector accumulates counters across invocations.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	invocations  int64
	succeeded    int64
	failed       int64
	failedByKind map[string]int64

	imagesGenerated int64
	bytesGenerated  int64

	ledgerWriteSuccess int64
	ledgerWriteFailure int64
	notifySuccess      int64
	notifyFailure      int64

	modelID       string
	bucket        string
	ledgerBackend string
	notifyType    string
}

// NewCollector creates a Collector with dimension labels.
// ledgerBackend and notifyType are "none" when the side effect is disabled.
func NewCollector(modelID, bucket, ledgerBackend, notifyType string) *Collector {
	return &Collector{
		failedByKind:  make(map[string]int64),
		modelID:       modelID,
		bucket:        bucket,
		ledgerBackend: ledgerBackend,
		notifyType:    notifyType,
	}
}

// --- Invocation lifecycle ---

// IncInvocation records an invocation start.
func (c *Collector) IncInvocation() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.invocations++
	c.mu.Unlock()
}

// IncSucceeded records an invocation that returned a URL.
func (c *Collector) IncSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.succeeded++
	c.mu.Unlock()
}

// IncFailed records a failed invocation under its failure kind.
func (c *Collector) IncFailed(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.failed++
	c.failedByKind[kind]++
	c.mu.Unlock()
}

// --- Generation ---

// AddImage records one generated image of n bytes.
func (c *Collector) AddImage(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.imagesGenerated++
	c.bytesGenerated += int64(n)
	c.mu.Unlock()
}

// --- Side effects ---

// IncLedgerWriteSuccess records a successful ledger append.
func (c *Collector) IncLedgerWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ledgerWriteSuccess++
	c.mu.Unlock()
}

// IncLedgerWriteFailure records a failed ledger append.
func (c *Collector) IncLedgerWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ledgerWriteFailure++
	c.mu.Unlock()
}

// IncNotifySuccess records a delivered notification.
func (c *Collector) IncNotifySuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifySuccess++
	c.mu.Unlock()
}

// IncNotifyFailure records a notification that could not be delivered.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifyFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.failedByKind))
	for k, v := range c.failedByKind {
		byKind[k] = v
	}

	return Snapshot{
		Invocations:  c.invocations,
		Succeeded:    c.succeeded,
		Failed:       c.failed,
		FailedByKind: byKind,

		ImagesGenerated: c.imagesGenerated,
		BytesGenerated:  c.bytesGenerated,

		LedgerWriteSuccess: c.ledgerWriteSuccess,
		LedgerWriteFailure: c.ledgerWriteFailure,
		NotifySuccess:      c.notifySuccess,
		NotifyFailure:      c.notifyFailure,

		ModelID:       c.modelID,
		Bucket:        c.bucket,
		LedgerBackend: c.ledgerBackend,
		NotifyType:    c.notifyType,
	}
}

// Fields flattens the snapshot into log fields.
func (s Snapshot) Fields() map[string]any {
	return map[string]any{
		"invocations_total":          s.Invocations,
		"invocations_succeeded":      s.Succeeded,
		"invocations_failed":         s.Failed,
		"failed_by_kind":             s.FailedByKind,
		"images_generated_total":     s.ImagesGenerated,
		"bytes_generated_total":      s.BytesGenerated,
		"ledger_write_success_total": s.LedgerWriteSuccess,
		"ledger_write_failure_total": s.LedgerWriteFailure,
		"notify_success_total":       s.NotifySuccess,
		"notify_failure_total":       s.NotifyFailure,
		"model_id":                   s.ModelID,
		"bucket":                     s.Bucket,
		"ledger_backend":             s.LedgerBackend,
		"notify_type":                s.NotifyType,
	}
}
