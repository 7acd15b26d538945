package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "deckhistory_service_") {
		t.Fatalf("unexpected generated name %q", rec.Name())
	}
	ctx := context.Background()
	rec.Observe(ctx, "deck_map", true, 2*time.Millisecond)
	rec.Observe(ctx, "deck_map", false, 4*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	stats, ok := snap.Operations["deck_map"]
	if !ok || len(snap.Operations) != 1 {
		t.Fatalf("unexpected operations: %+v", snap.Operations)
	}
	if stats.Count != 2 || stats.Errors != 1 || stats.TotalMS != 6 || stats.MaxMS != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	published := expvar.Get(rec.Name())
	if published == nil {
		t.Fatalf("recorder not published")
	}
	var decoded ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(published.String()), &decoded); err != nil {
		t.Fatalf("decode expvar: %v", err)
	}
	if decoded.Operations["deck_map"].Count != 2 {
		t.Fatalf("unexpected published snapshot: %+v", decoded)
	}
}

func TestJSONTracerNestsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	ctx, outer := tracer.Start(context.Background(), "import_analysis")
	_, inner := tracer.Start(ctx, "append_commands")
	inner.End(errors.New("boom"))
	inner.End(nil)
	outer.End(nil)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %+v", entries)
	}
	if entries[0].Operation != "append_commands" || entries[0].Status != "error" || entries[0].Error != "boom" {
		t.Fatalf("unexpected inner span: %+v", entries[0])
	}
	if entries[0].ParentID != entries[1].SpanID || entries[1].ParentID != 0 {
		t.Fatalf("expected inner span to point at outer: %+v", entries)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", lines)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "labware_stack", true, 10*time.Millisecond)
	rec.Observe(ctx, "labware_stack", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("labware_stack", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("labware_stack", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations, "deckhistory_service_operation_duration_seconds"); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}

	again, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	again.Observe(ctx, "labware_stack", true, time.Millisecond)
	if got := testutil.ToFloat64(rec.results.WithLabelValues("labware_stack", "success")); got != 2 {
		t.Fatalf("expected shared collectors, got %v", got)
	}
}

func TestNopObservability(t *testing.T) {
	NopMetrics().Observe(context.Background(), "x", true, time.Second)
	ctx, span := NopTracer().Start(context.Background(), "x")
	if ctx == nil {
		t.Fatalf("expected context")
	}
	span.End(nil)
}
