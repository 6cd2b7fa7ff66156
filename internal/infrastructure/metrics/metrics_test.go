package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Replayed("invite_lenders")
	m.Replayed("invite_lenders")
	m.LedgerOp("approve_payment")

	if got := testutil.ToFloat64(m.Replays.WithLabelValues("invite_lenders")); got != 2 {
		t.Fatalf("replays = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LedgerOps.WithLabelValues("approve_payment")); got != 1 {
		t.Fatalf("ledger ops = %v, want 1", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.HTTPRequests.WithLabelValues("GET", "/health", "200").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"lendledger_http_requests_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Fatalf("%s missing from exposition", want)
		}
	}
}

func TestNewIsolated(t *testing.T) {
	// two instances must not collide on a shared registry
	New()
	New()
}
