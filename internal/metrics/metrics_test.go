package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"accession/internal/metrics"
)

func TestRecordInsertionIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(metrics.Insertions.WithLabelValues("inserted"))
	metrics.RecordInsertion("inserted", 0.01)
	after := testutil.ToFloat64(metrics.Insertions.WithLabelValues("inserted"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordInsertionFailureLabelsKind(t *testing.T) {
	before := testutil.ToFloat64(metrics.InsertionFailures.WithLabelValues("validation"))
	metrics.RecordInsertionFailure("validation", 0.01)
	after := testutil.ToFloat64(metrics.InsertionFailures.WithLabelValues("validation"))
	if after-before != 1 {
		t.Fatalf("expected failure counter to increase by 1, got %v", after-before)
	}
}
