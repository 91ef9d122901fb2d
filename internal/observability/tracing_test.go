package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracing_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing("fleetd-test", "stdout", &buf)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "fleet.Dispatch")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "fleet.Dispatch") {
		t.Fatalf("span not exported: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "fleetd-test") {
		t.Fatalf("service name missing from resource")
	}
}

func TestInitTracing_NoneAndUnknown(t *testing.T) {
	shutdown, err := InitTracing("fleetd-test", "none", nil)
	if err != nil {
		t.Fatalf("InitTracing none: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := InitTracing("fleetd-test", "jaeger", nil); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
