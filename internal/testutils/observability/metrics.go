/*
Package observability provides observability implementations for tests.
*/
package observability

import (
	"testing"

	testlogr "github.com/photon-ccm/photon/internal/testutils/logger"
	"github.com/photon-ccm/photon/observability"
)

/*
NOPObservability creates observability implementation where everything is no-op.
Use it for tests for which it absolutely doesn't make sense to create any logs, traces or metrics.
*/
func NOPObservability() *observability.Otel {
	return observability.NOP()
}

/*
Default creates observability with no-op metrics and tracing but logging
into the test log.
*/
func Default(t testing.TB) *observability.Otel {
	return observability.NOP().WithLogger(testlogr.New(t))
}

/*
Prometheus creates observability with Prometheus metrics exporter so that
tests can scrape and check the metrics.
*/
func Prometheus(t testing.TB) *observability.Otel {
	t.Helper()
	obs, err := observability.New("prometheus", "", testlogr.New(t))
	if err != nil {
		t.Fatalf("creating observability: %v", err)
	}
	t.Cleanup(func() {
		if err := obs.Shutdown(); err != nil {
			t.Errorf("observability shutdown: %v", err)
		}
	})
	return obs
}
