package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveMutation(t *testing.T) {
	before := testutil.ToFloat64(mutationsTotal.WithLabelValues("reparent", ResultRejected))
	ObserveMutation("reparent", ResultRejected, time.Millisecond)
	after := testutil.ToFloat64(mutationsTotal.WithLabelValues("reparent", ResultRejected))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestGauges(t *testing.T) {
	SetRegistrySize(12)
	if got := testutil.ToFloat64(registryEntities); got != 12 {
		t.Errorf("registry gauge = %v", got)
	}
	SetIntegrityFlagged(3)
	if got := testutil.ToFloat64(integrityFlagged); got != 3 {
		t.Errorf("flagged gauge = %v", got)
	}
}
