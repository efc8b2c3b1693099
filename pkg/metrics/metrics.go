// Package metrics exposes the Prometheus registry used by listpager.
// Metrics are defined in their owning packages (paging, client, ratelimit,
// session) and registered via promauto; this package gathers them for the
// /metrics endpoint and documents them.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by listpager.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Namespace prefixes every listpager metric name.
const Namespace = "listpager_"

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Families returns the names of the listpager metric families that have
// been observed at least once.
func Families() ([]string, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), Namespace) {
			names = append(names, mf.GetName())
		}
	}
	return names, nil
}

// Metrics Documentation
//
// Engine Metrics (pkg/paging):
//   - listpager_fetches_total{screen, kind, outcome} (Counter): Fetches by outcome
//     (applied, failed, session_invalidated, superseded, discarded)
//   - listpager_fetch_duration_seconds{screen, kind} (Histogram): Fetch duration
//   - listpager_intents_rejected_total{screen, intent} (Counter): Intents refused
//     by the mutual exclusion rules
//
// Session Metrics (pkg/session):
//   - listpager_session_invalidations_total{origin} (Counter): Episodes by origin (local, remote)
//   - listpager_session_duplicate_notifications_total (Counter): Suppressed repeat notifications
//
// Rate Limit Metrics (pkg/ratelimit):
//   - listpager_rate_limit_remaining (Gauge): Requests left in the current window
//   - listpager_rate_limit_blocks_total (Counter): Requests blocked at the critical threshold
//   - listpager_rate_limit_throttles_total (Counter): Requests delayed at the warning threshold
//
// Request Metrics (pkg/client):
//   - listpager_client_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - listpager_client_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - listpager_client_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - listpager_client_retries_total{error_class} (Counter): Retry attempts by error class
//   - listpager_client_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - listpager_client_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Share of fetches thrown away because a newer intent superseded them
//   sum(rate(listpager_fetches_total{outcome="superseded"}[5m])) /
//   sum(rate(listpager_fetches_total[5m]))
//
//   # Failed load-more fetches per screen
//   sum by (screen) (rate(listpager_fetches_total{kind="load_more",outcome="failed"}[5m]))
//
//   # P95 first-page latency
//   histogram_quantile(0.95, rate(listpager_fetch_duration_seconds_bucket{kind="full_screen"}[5m]))
//
//   # Rate limit budget
//   listpager_rate_limit_remaining < 10
