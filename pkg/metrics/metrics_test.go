package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var testCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "listpager_metrics_test_total",
	Help: "Counter used by the metrics package tests",
})

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestFamilies(t *testing.T) {
	testCounter.Inc()

	names, err := Families()
	if err != nil {
		t.Fatalf("Families() error = %v", err)
	}

	found := false
	for _, name := range names {
		if !strings.HasPrefix(name, Namespace) {
			t.Errorf("Families() returned foreign metric %q", name)
		}
		if name == "listpager_metrics_test_total" {
			found = true
		}
	}
	if !found {
		t.Errorf("Families() = %v, want listpager_metrics_test_total", names)
	}
}

func TestHandler(t *testing.T) {
	testCounter.Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "listpager_metrics_test_total") {
		t.Error("exposition should contain listpager_metrics_test_total")
	}
}
