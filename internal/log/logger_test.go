package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBuffered(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level}), Component: ComponentStore})
	return l, &buf
}

func TestLoggerStampsComponent(t *testing.T) {
	l, buf := newBuffered(slog.LevelDebug)
	l.Warn("read failed", FieldKey, "budgets")
	out := buf.String()
	if !strings.Contains(out, "component=store") || !strings.Contains(out, "key=budgets") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentLedger).Info("fetched")
	if strings.Count(buf.String(), "component=") != 1 || !strings.Contains(buf.String(), "component=ledger") {
		t.Fatalf("expected a single ledger component: %s", buf.String())
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	l, buf := newBuffered(slog.LevelWarn)
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	l, _ := newBuffered(slog.LevelInfo)
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected the stored logger")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %q", got.Component())
	}
}

func TestLogFieldsArgs(t *testing.T) {
	args := NewFields().
		WithOperation(OpCreate).
		WithError(errors.New("boom")).
		WithError(nil).
		WithKey("settings").
		Args()
	want := []any{FieldError, "boom", FieldKey, "settings", FieldOperation, OpCreate}
	if len(args) != len(want) {
		t.Fatalf("unexpected args: %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d = %v, want %v", i, args[i], want[i])
		}
	}
}
