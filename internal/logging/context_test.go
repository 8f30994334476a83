package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core).With(zap.String("request_id", "rid-1"))

	ctx := ContextWithLogger(context.Background(), logger)
	FromContext(ctx).Info("order_shipped")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "rid-1" {
		t.Fatalf("request_id=%v", got)
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected global logger fallback")
	}
	if ContextWithLogger(context.Background(), nil) == nil {
		t.Fatal("nil logger must keep the context")
	}
}
