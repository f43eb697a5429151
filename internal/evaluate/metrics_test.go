package evaluate

import (
	"math"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		matched, expect bool
		want            Bucket
	}{
		{true, true, TP},
		{true, false, FP},
		{false, true, FN},
		{false, false, TN},
	}
	for _, tt := range tests {
		if got := Classify(tt.matched, tt.expect); got != tt.want {
			t.Errorf("Classify(%v, %v) = %s, want %s", tt.matched, tt.expect, got, tt.want)
		}
	}
}

func TestComputeMetrics(t *testing.T) {
	tests := []struct {
		name       string
		tp, fp, fn int
		want       Metrics
	}{
		{"nothing", 0, 0, 0, Metrics{}},
		{"only misses", 0, 0, 5, Metrics{}},
		{"only false alarms", 0, 3, 0, Metrics{}},
		{"perfect", 4, 0, 0, Metrics{Precision: 1, Recall: 1, F1: 1}},
		{"mixed", 3, 1, 2, Metrics{Precision: 0.75, Recall: 0.6, F1: 2 * 0.75 * 0.6 / 1.35}},
	}

	for _, tt := range tests {
		got := ComputeMetrics(tt.tp, tt.fp, tt.fn)
		if !near(got.Precision, tt.want.Precision) || !near(got.Recall, tt.want.Recall) || !near(got.F1, tt.want.F1) {
			t.Errorf("%s: ComputeMetrics(%d, %d, %d) = %+v, want %+v", tt.name, tt.tp, tt.fp, tt.fn, got, tt.want)
		}
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
