package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, SpanDocument)
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("pages", 3)
	span.SetError(nil)
	span.Finish()
}

func TestSlogAdapterWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l = l.With(String("id", "0001"))
	l.Info("document done", Int("pages", 3), Duration("took", 2*time.Second), Error("err", errors.New("boom")))
	out := buf.String()
	for _, want := range []string{"document done", "id=0001", "pages=3", "took=2s", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line %q missing %q", out, want)
		}
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger for nil")
	}
	l := NewSlog(nil)
	if OrNop(l) != l {
		t.Fatalf("non-nil logger should pass through")
	}
}
