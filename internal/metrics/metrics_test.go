package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(func() int { return 3 })

	m.Calculations.Inc()
	m.Calculations.Inc()
	m.Saved(SaveCreated)
	m.Saved(SaveFailed)
	m.Saved(SaveFailed)
	m.Refused("save")
	m.Exports.Inc()

	if got := testutil.ToFloat64(m.Calculations); got != 2 {
		t.Fatalf("calculations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Saves.WithLabelValues(SaveFailed)); got != 2 {
		t.Fatalf("failed saves = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.GatedRefusals.WithLabelValues("save")); got != 1 {
		t.Fatalf("refusals = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.OpenSessions); got != 3 {
		t.Fatalf("open sessions = %v, want 3", got)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New(nil)
	m.Exports.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"hydropack_document_exports_total 1", "hydropack_open_sessions 0"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
