package evaluate

// Bucket is the confusion-matrix cell of one case.
type Bucket string

const (
	TP Bucket = "TP"
	TN Bucket = "TN"
	FP Bucket = "FP"
	FN Bucket = "FN"
)

// Classify buckets a case from whether a finding matched and whether the
// case is the vulnerable variant.
func Classify(matched, expect bool) Bucket {
	switch {
	case matched && expect:
		return TP
	case matched && !expect:
		return FP
	case !matched && expect:
		return FN
	default:
		return TN
	}
}

// Metrics are the derived scores. A zero denominator gives 0.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

func ComputeMetrics(tp, fp, fn int) Metrics {
	var m Metrics
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
