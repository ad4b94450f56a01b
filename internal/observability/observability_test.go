package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"garbage", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			l := NewLogger(tc.level, "json")
			if l == nil {
				t.Fatal("nil logger")
			}
			if !l.Core().Enabled(tc.want) {
				t.Fatalf("level %v not enabled", tc.want)
			}
			if tc.want > zapcore.DebugLevel && l.Core().Enabled(tc.want-1) {
				t.Fatalf("level below %v unexpectedly enabled", tc.want)
			}
		})
	}
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	if l := NewLogger("info", "console"); l == nil {
		t.Fatal("nil logger")
	}
}

func TestMetricsRegisterAndCount(t *testing.T) {
	before := testutil.ToFloat64(PredictionsTotal.WithLabelValues("career", "COMPLETE"))
	PredictionsTotal.WithLabelValues("career", "COMPLETE").Inc()
	after := testutil.ToFloat64(PredictionsTotal.WithLabelValues("career", "COMPLETE"))
	if after != before+1 {
		t.Fatalf("counter did not increment: %v -> %v", before, after)
	}

	LLMCallsTotal.WithLabelValues("goal").Add(3)
	if got := testutil.ToFloat64(LLMCallsTotal.WithLabelValues("goal")); got < 3 {
		t.Fatalf("llm calls counter = %v, want >= 3", got)
	}
}

func TestSetupTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "mirror-test", "")
	if err != nil {
		t.Fatalf("SetupTracing: %v", err)
	}
	if shutdown == nil {
		t.Fatal("nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}
