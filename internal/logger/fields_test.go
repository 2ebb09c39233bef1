package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	enriched := WithFields(zap.New(core), zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["foo"]; got != "bar" {
		t.Fatalf("expected field to be bar, got %q", got)
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
	enriched.Info("another log")
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", " ").Info("request")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider field, got %v", ctx)
	}
	if _, ok := ctx[FieldModel]; ok {
		t.Fatalf("expected empty model to be omitted, got %v", ctx)
	}
}

func TestQueryFields(t *testing.T) {
	fields := QueryFields("Karnataka", "Low", "")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != FieldState || fields[1].Key != FieldIncomeLevel {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestNew(t *testing.T) {
	for _, opts := range []Options{{}, {JSON: true, Debug: true, OutputPaths: []string{"stderr"}}} {
		log, err := New(opts)
		if err != nil {
			t.Fatalf("unexpected error for %+v: %v", opts, err)
		}
		if got := log.Core().Enabled(zapcore.DebugLevel); got != opts.Debug {
			t.Fatalf("expected debug enabled=%v, got %v", opts.Debug, got)
		}
	}
}
