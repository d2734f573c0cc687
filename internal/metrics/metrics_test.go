package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotentAndRecordersCount(t *testing.T) {
	Register()
	Register()

	var rec Recorder
	rec.CommandStarted("metrics-test")
	rec.CommandFinished("metrics-test", "completed")
	rec.Tick(2 * time.Millisecond)
	rec.BindingTriggered("lift-up")
	rec.RoutineBuilt("metrics-test", "right", true)

	if got := testutil.ToFloat64(commandsStarted.WithLabelValues("metrics-test")); got != 1 {
		t.Fatalf("expected 1 started command, got %v", got)
	}
	if got := testutil.ToFloat64(commandsFinished.WithLabelValues("metrics-test", "completed")); got != 1 {
		t.Fatalf("expected 1 finished command, got %v", got)
	}
	if got := testutil.ToFloat64(routinesBuilt.WithLabelValues("metrics-test", "right", "true")); got != 1 {
		t.Fatalf("expected 1 mirrored build, got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	var rec Recorder
	rec.BindingTriggered("grabber-toggle")

	srv := httptest.NewServer(Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), `fieldbot_teleop_binding_triggers_total{key="grabber-toggle"}`) {
		t.Fatalf("expected binding counter in exposition, got:\n%s", body)
	}
}
