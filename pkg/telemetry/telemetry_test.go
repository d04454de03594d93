package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"mercator-hq/epsilon/pkg/config"
)

func TestNew(t *testing.T) {
	cfg := config.Default().Telemetry
	var buf bytes.Buffer

	tel, err := New(&cfg, Options{Writer: &buf, Secrets: []string{"hunter22"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	if tel.Logger() == nil || tel.Metrics() == nil || tel.Tracer() == nil || tel.Health() == nil {
		t.Fatal("Expected every component to be built")
	}
	if tel.Tracer().Enabled() {
		t.Error("Expected tracing disabled by default")
	}
	if !tel.Metrics().Enabled() {
		t.Error("Expected metrics enabled by default")
	}

	tel.Logger().Info("reset attempted", "credential", "hunter22")
	if strings.Contains(buf.String(), "hunter22") {
		t.Errorf("Expected secret to be masked, got %s", buf.String())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Error("Expected error for nil config")
	}

	cfg := config.Default().Telemetry
	cfg.Logging.Level = "loud"
	if _, err := New(&cfg, Options{}); err == nil {
		t.Error("Expected error for invalid log level")
	}
}
