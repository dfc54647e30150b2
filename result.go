package mshoot

import "gonum.org/v1/gonum/mat"

// Result is the durable output of one training call. It is not modified
// after being returned; FitIterative reads accepted results to seed the
// next round.
type Result struct {
	// MinLoss is the loss at the returned parameter vector.
	MinLoss float64
	// P holds the trained shared model parameters.
	P []float64
	// PTrue echoes Config.PTrue when given (diagnostics only).
	PTrue []float64
	// PLabels echoes Config.PLabels when given.
	PLabels []string
	// Predictions holds one trajectory per segment, aligned with Ranges.
	Predictions []*mat.Dense
	// Ranges is the segmentation the call trained against.
	Ranges []Range
	// LossHistory records the loss at every optimizer iteration, append-only.
	LossHistory []float64
	// ParamErrHistory records the squared parameter error per iteration;
	// empty unless Config.PTrue was given.
	ParamErrHistory []float64

	// seriesCounts records segments per original series; set only by
	// FitIndependent.
	seriesCounts []int
}

// PredictionsBySeries regroups the flat segment predictions of an
// independent multi-series fit into one ordered list per original series,
// using the per-series segment counts recorded during concatenation.
// It returns nil for single-series fits.
func (r *Result) PredictionsBySeries() [][]*mat.Dense {
	if r.seriesCounts == nil {
		return nil
	}
	out := make([][]*mat.Dense, len(r.seriesCounts))
	off := 0
	for i, n := range r.seriesCounts {
		out[i] = r.Predictions[off : off+n]
		off += n
	}
	return out
}
