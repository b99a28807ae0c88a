package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/posters/generation"
	"github.com/pithecene-io/posters/log"
	"github.com/pithecene-io/posters/metrics"
	"github.com/pithecene-io/posters/notify"
	"github.com/pithecene-io/posters/publish"
	"github.com/pithecene-io/posters/types"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\nposter-bytes")
	fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
)

// --- fakes ---

type fakeInvoker struct {
	calls []*bedrockruntime.InvokeModelInput
	body  []byte
	err   error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

type fakePutter struct {
	keys []string
	data [][]byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.keys = append(f.keys, aws.ToString(in.Key))
	f.data = append(f.data, data)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct {
	calls int
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.calls++
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &v4.PresignedHTTPRequest{
		URL: "https://" + aws.ToString(in.Bucket) + ".s3.amazonaws.com/" + aws.ToString(in.Key) +
			"?X-Amz-Expires=" + opts.Expires.String(),
		Method: http.MethodGet,
	}, nil
}

type panicGenerator struct{}

func (panicGenerator) Generate(context.Context, *types.NormalizedRequest, *log.Logger) ([]byte, error) {
	panic("model client exploded")
}

type plainErrorPublisher struct{}

func (plainErrorPublisher) Publish(context.Context, []byte, *log.Logger) (*types.PublishedArtifact, error) {
	return nil, errors.New("disk on fire")
}

type fakeRecorder struct {
	records []*types.PosterRecord
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, rec *types.PosterRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

type fakeNotifier struct {
	events []*notify.PosterPublishedEvent
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, e *notify.PosterPublishedEvent) error {
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeNotifier) Close() error { return nil }

// --- harness ---

type harness struct {
	invoker   *fakeInvoker
	putter    *fakePutter
	presigner *fakePresigner
	ledger    *fakeRecorder
	notifier  *fakeNotifier
	metrics   *metrics.Collector
	pipeline  *Pipeline
}

func imagesBody(t *testing.T, images ...string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"images": images})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func newHarness(t *testing.T, guardrailID string) *harness {
	t.Helper()
	h := &harness{
		invoker:   &fakeInvoker{body: imagesBody(t, base64.StdEncoding.EncodeToString(pngBytes))},
		putter:    &fakePutter{},
		presigner: &fakePresigner{},
		ledger:    &fakeRecorder{},
		notifier:  &fakeNotifier{},
		metrics:   metrics.NewCollector(types.DefaultModelID, "posters", "fs", "webhook"),
	}

	gen, err := generation.NewGenerator(h.invoker, generation.Config{GuardrailID: guardrailID})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	pub, err := publish.NewPublisher(h.putter, h.presigner, publish.Config{
		Bucket: "posters",
		Now:    func() time.Time { return fixedTime },
	})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	h.pipeline, err = New(Config{
		Generator: gen,
		Publisher: pub,
		Ledger:    h.ledger,
		Notifier:  h.notifier,
		Metrics:   h.metrics,
		ModelID:   gen.ModelID(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func albEvent(t *testing.T, body string) map[string]any {
	t.Helper()
	req := events.ALBTargetGroupRequest{
		HTTPMethod: "POST",
		Path:       "/",
		RequestContext: events.ALBTargetGroupRequestContext{
			ELB: events.ELBContext{TargetGroupArn: "arn:aws:elasticloadbalancing:us-east-1:123456789012:targetgroup/posters/1"},
		},
		Body: body,
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func errorMessage(t *testing.T, resp events.ALBTargetGroupResponse) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("failure body %q is not JSON: %v", resp.Body, err)
	}
	return body["error"]
}

func lambdaCtx(t *testing.T, requestID string) context.Context {
	t.Helper()
	return lambdacontext.NewContext(t.Context(), &lambdacontext.LambdaContext{AwsRequestID: requestID})
}

// --- tests ---

func TestHandle_EndToEnd(t *testing.T) {
	h := newHarness(t, "")

	resp, err := h.pipeline.Handle(lambdaCtx(t, "req-1"), albEvent(t, `{"prompt":"A red circle"}`))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
	}
	if resp.StatusDescription != "200 OK" {
		t.Errorf("status description = %q", resp.StatusDescription)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("Content-Type = %q", resp.Headers["Content-Type"])
	}
	if resp.IsBase64Encoded {
		t.Error("IsBase64Encoded should be false")
	}
	wantURL := "https://posters.s3.amazonaws.com/posterName2026-03-14-09-26-53?X-Amz-Expires=1h0m0s"
	if resp.Body != wantURL {
		t.Errorf("body = %q, want bare URL %q", resp.Body, wantURL)
	}

	if len(h.invoker.calls) != 1 {
		t.Errorf("InvokeModel calls = %d, want 1", len(h.invoker.calls))
	}
	var sent map[string]any
	if err := json.Unmarshal(h.invoker.calls[0].Body, &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	params, _ := sent["textToImageParams"].(map[string]any)
	if params["text"] != "A red circle" {
		t.Errorf("prompt sent = %v", params["text"])
	}
}

func TestHandle_DecodedBytesReachPublisher(t *testing.T) {
	h := newHarness(t, "")

	resp, _ := h.pipeline.Handle(t.Context(), map[string]any{"prompt": "A red circle"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
	}
	if len(h.putter.data) != 1 {
		t.Fatalf("PutObject calls = %d, want 1", len(h.putter.data))
	}
	if !bytes.Equal(h.putter.data[0], pngBytes) {
		t.Errorf("stored bytes = %q, want %q", h.putter.data[0], pngBytes)
	}
	if h.putter.keys[0] != "posterName2026-03-14-09-26-53" {
		t.Errorf("key = %q", h.putter.keys[0])
	}
}

func TestHandle_MalformedBodyRejectedBeforeModel(t *testing.T) {
	h := newHarness(t, "")

	resp, _ := h.pipeline.Handle(t.Context(), albEvent(t, "not-json{"))

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if resp.StatusDescription != "400 Bad Request" {
		t.Errorf("status description = %q", resp.StatusDescription)
	}
	if got := errorMessage(t, resp); got != "Invalid JSON in request body" {
		t.Errorf("error = %q", got)
	}
	if len(h.invoker.calls) != 0 {
		t.Errorf("InvokeModel calls = %d, want 0", len(h.invoker.calls))
	}
}

func TestHandle_BlankPromptRejectedForAllShapes(t *testing.T) {
	gateway := func(prompt string) map[string]any {
		return map[string]any{"prompt": prompt, "requestContext": map[string]any{"stage": "prod"}}
	}

	tests := []struct {
		name  string
		event func(t *testing.T) map[string]any
	}{
		{"direct missing", func(*testing.T) map[string]any { return map[string]any{} }},
		{"direct empty", func(*testing.T) map[string]any { return map[string]any{"prompt": ""} }},
		{"direct whitespace", func(*testing.T) map[string]any { return map[string]any{"prompt": " \t\n "} }},
		{"gateway whitespace", func(*testing.T) map[string]any { return gateway("   ") }},
		{"load balancer whitespace", func(t *testing.T) map[string]any { return albEvent(t, `{"prompt":"   "}`) }},
		{"load balancer no prompt", func(t *testing.T) map[string]any { return albEvent(t, `{"seed":7}`) }},
		{"load balancer empty body", func(t *testing.T) map[string]any { return albEvent(t, "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")

			resp, _ := h.pipeline.Handle(t.Context(), tt.event(t))

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", resp.StatusCode, resp.Body)
			}
			if got := errorMessage(t, resp); got != "Prompt is required" {
				t.Errorf("error = %q, want Prompt is required", got)
			}
			if len(h.invoker.calls) != 0 {
				t.Errorf("InvokeModel calls = %d, want 0", len(h.invoker.calls))
			}
		})
	}
}

func TestHandle_EmptyImagesSkipsPublish(t *testing.T) {
	h := newHarness(t, "")
	h.invoker.body = []byte(`{"images": []}`)

	resp, _ := h.pipeline.Handle(t.Context(), map[string]any{"prompt": "A red circle"})

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if resp.StatusDescription != "500 Internal Server Error" {
		t.Errorf("status description = %q", resp.StatusDescription)
	}
	if got := errorMessage(t, resp); !strings.Contains(got, "no image found in response") {
		t.Errorf("error = %q", got)
	}
	if len(h.putter.data) != 0 {
		t.Errorf("PutObject calls = %d, want 0", len(h.putter.data))
	}
}

func TestHandle_ModelFailure(t *testing.T) {
	h := newHarness(t, "")
	h.invoker.err = &smithy.GenericAPIError{Code: "ValidationException", Message: "bad input"}

	resp, _ := h.pipeline.Handle(t.Context(), map[string]any{"prompt": "A red circle"})

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if got := errorMessage(t, resp); !strings.HasPrefix(got, "Bedrock error: ") {
		t.Errorf("error = %q, want Bedrock error prefix", got)
	}
	if len(h.invoker.calls) != 1 {
		t.Errorf("InvokeModel calls = %d, want exactly 1", len(h.invoker.calls))
	}
	if len(h.putter.data) != 0 {
		t.Error("publisher must not run after a model failure")
	}
}

func TestHandle_WriteFailureSkipsPresign(t *testing.T) {
	h := newHarness(t, "")
	h.putter.err = &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}

	resp, _ := h.pipeline.Handle(t.Context(), map[string]any{"prompt": "A red circle"})

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if got := errorMessage(t, resp); !strings.HasPrefix(got, "S3 error: ") {
		t.Errorf("error = %q, want S3 error prefix", got)
	}
	if h.presigner.calls != 0 {
		t.Errorf("presign calls = %d, want 0", h.presigner.calls)
	}
	if len(h.ledger.records) != 0 || len(h.notifier.events) != 0 {
		t.Error("side effects must not run after a failed publish")
	}
}

func TestHandle_GuardrailNeverSent(t *testing.T) {
	for _, id := range []string{"", "gr-abc123"} {
		h := newHarness(t, id)

		resp, _ := h.pipeline.Handle(t.Context(), map[string]any{"prompt": "A red circle"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("guardrail %q: status = %d", id, resp.StatusCode)
		}

		in := h.invoker.calls[0]
		if in.GuardrailIdentifier != nil || in.GuardrailVersion != nil {
			t.Errorf("guardrail %q: guardrail fields set on request", id)
		}
		if bytes.Contains(bytes.ToLower(in.Body), []byte("guardrail")) {
			t.Errorf("guardrail %q: body mentions guardrail: %s", id, in.Body)
		}
	}
}

func TestHandle_PanicBecomesInternalError(t *testing.T) {
	pub, err := publish.NewPublisher(&fakePutter{}, &fakePresigner{}, publish.Config{Bucket: "posters"})
	if err != nil {
		t.Fatal(err)
	}
	collector := metrics.NewCollector("m", "posters", "none", "none")
	p, err := New(Config{Generator: panicGenerator{}, Publisher: pub, Metrics: collector})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Handle(t.Context(), map[string]any{"prompt": "A red circle"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if got := errorMessage(t, resp); got != "Internal error: model client exploded" {
		t.Errorf("error = %q", got)
	}
	if s := collector.Snapshot(); s.FailedByKind["internal_error"] != 1 {
		t.Errorf("FailedByKind = %v", s.FailedByKind)
	}
}

func TestHandle_UnclassifiedErrorBecomesInternalError(t *testing.T) {
	h := newHarness(t, "")
	gen, _ := generation.NewGenerator(h.invoker, generation.Config{})
	p, err := New(Config{Generator: gen, Publisher: plainErrorPublisher{}})
	if err != nil {
		t.Fatal(err)
	}

	resp, _ := p.Handle(t.Context(), map[string]any{"prompt": "A red circle"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if got := errorMessage(t, resp); got != "Internal error: disk on fire" {
		t.Errorf("error = %q", got)
	}
}

func TestHandle_SideEffects(t *testing.T) {
	h := newHarness(t, "")

	resp, _ := h.pipeline.Handle(lambdaCtx(t, "req-42"), map[string]any{"prompt": "A red circle", "seed": float64(7)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
	}

	if len(h.ledger.records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(h.ledger.records))
	}
	rec := h.ledger.records[0]
	if rec.Key != "posterName2026-03-14-09-26-53" || rec.Day != "2026-03-14" {
		t.Errorf("record location = %s (%s)", rec.Key, rec.Day)
	}
	if rec.Prompt != "A red circle" || rec.Seed != float64(7) {
		t.Errorf("record request = %q seed %v", rec.Prompt, rec.Seed)
	}
	if rec.InvocationID != "req-42" || rec.ModelID != types.DefaultModelID {
		t.Errorf("record identity = %s / %s", rec.InvocationID, rec.ModelID)
	}
	if rec.SizeBytes != int64(len(pngBytes)) {
		t.Errorf("record size = %d", rec.SizeBytes)
	}

	if len(h.notifier.events) != 1 {
		t.Fatalf("notifications = %d, want 1", len(h.notifier.events))
	}
	if e := h.notifier.events[0]; e.URL != resp.Body || e.InvocationID != "req-42" {
		t.Errorf("event = %+v", e)
	}

	s := h.metrics.Snapshot()
	if s.Invocations != 1 || s.Succeeded != 1 || s.LedgerWriteSuccess != 1 || s.NotifySuccess != 1 {
		t.Errorf("metrics = %+v", s)
	}
	if s.BytesGenerated != int64(len(pngBytes)) {
		t.Errorf("BytesGenerated = %d", s.BytesGenerated)
	}
}

func TestHandle_SideEffectFailuresAreNonFatal(t *testing.T) {
	h := newHarness(t, "")
	h.ledger.err = errors.New("ledger unavailable")
	h.notifier.err = errors.New("webhook down")

	resp, _ := h.pipeline.Handle(t.Context(), map[string]any{"prompt": "A red circle"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite side-effect failures", resp.StatusCode)
	}

	s := h.metrics.Snapshot()
	if s.LedgerWriteFailure != 1 || s.NotifyFailure != 1 {
		t.Errorf("failures = ledger %d notify %d, want 1/1", s.LedgerWriteFailure, s.NotifyFailure)
	}
}

func TestHandle_LogsInvocationContext(t *testing.T) {
	var buf bytes.Buffer
	gen, _ := generation.NewGenerator(&fakeInvoker{body: []byte(`{"images":[]}`)}, generation.Config{})
	pub, _ := publish.NewPublisher(&fakePutter{}, &fakePresigner{}, publish.Config{Bucket: "posters"})
	p, err := New(Config{
		Generator: gen,
		Publisher: pub,
		Logger:    log.NewLoggerWithWriter(zapcore.DebugLevel, &buf),
	})
	if err != nil {
		t.Fatal(err)
	}

	_, _ = p.Handle(lambdaCtx(t, "req-log"), map[string]any{"prompt": "A red circle"})

	var sawEvent, sawFailure bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		if entry["invocation_id"] != "req-log" {
			t.Errorf("entry %q missing invocation_id", entry["message"])
		}
		switch entry["message"] {
		case "received event":
			sawEvent = true
		case "request failed":
			sawFailure = true
			fields, _ := entry["fields"].(map[string]any)
			if fields["kind"] != "generation_error" {
				t.Errorf("kind = %v", fields["kind"])
			}
		}
	}
	if !sawEvent {
		t.Error("event was not logged at debug level")
	}
	if !sawFailure {
		t.Error("failure was not logged")
	}
}

func TestInvocationMetaFrom_Fallback(t *testing.T) {
	a := InvocationMetaFrom(t.Context())
	b := InvocationMetaFrom(t.Context())
	if a.InvocationID == "" || a.InvocationID == b.InvocationID {
		t.Errorf("fallback IDs = %q, %q; want distinct non-empty", a.InvocationID, b.InvocationID)
	}
}

func TestNew_RequiresStages(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without generator")
	}
	if _, err := New(Config{Generator: panicGenerator{}}); err == nil {
		t.Error("expected error without publisher")
	}
}
