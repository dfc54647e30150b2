package mshoot

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SimulateFunc integrates the model from u0 over the given sampling times
// using the shared parameters p, returning the predicted trajectory with
// one row per state variable and one column per sampling time. Any
// returned error marks the simulation as failed; the evaluator converts
// failures to +Inf loss rather than aborting the run.
type SimulateFunc func(u0, p, tsteps []float64) (*mat.Dense, error)

// LossFunc scores a prediction against the matching observed slice.
// icWeight is the extra emphasis put on the first time point.
type LossFunc func(data, pred mat.Matrix, icWeight float64) float64

// MSELoss is the default loss: mean squared error over all points plus
// icWeight times the mean squared error over the first time point only.
// Mismatched shapes score +Inf.
func MSELoss(data, pred mat.Matrix, icWeight float64) float64 {
	r, c := data.Dims()
	pr, pc := pred.Dims()
	if r != pr || c != pc || r == 0 || c == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := data.At(i, j) - pred.At(i, j)
			sum += d * d
		}
	}
	loss := sum / float64(r*c)

	if icWeight != 0 {
		var ic float64
		for i := 0; i < r; i++ {
			d := data.At(i, 0) - pred.At(i, 0)
			ic += d * d
		}
		loss += icWeight * ic / float64(r)
	}
	return loss
}

// lossPath tags which loss form a training call uses. It is resolved once
// per call from the segment count, never re-derived mid-run.
type lossPath int

const (
	pathSingle    lossPath = iota // one segment, plain data-fit loss
	pathSegmented                 // several segments plus continuity penalty
)

// evaluator computes the training loss for a fixed segmentation and
// parameter layout. It owns no mutable state, so one value serves all
// optimizer stages of a call.
type evaluator struct {
	model      SimulateFunc
	lossFn     LossFunc
	data       *mat.Dense
	tsteps     []float64
	ranges     []Range
	lay        layout
	continuity float64
	icWeight   float64
	path       lossPath
}

// eval decomposes x into per-segment initial conditions and shared
// parameters, simulates every segment and sums the data-fit loss plus the
// continuity penalty between adjacent segments. The predictions are
// returned alongside the loss so callers can inspect them without
// re-simulating.
//
// A failed segment simulation makes the total loss +Inf immediately; the
// returned predictions then hold nil for the failed and the remaining
// segments. The optimizer sees the infinite loss and keeps exploring.
func (e *evaluator) eval(x []float64) (float64, []*mat.Dense) {
	u0s, p := e.lay.split(x)
	preds := make([]*mat.Dense, len(e.ranges))
	dataRows, _ := e.data.Dims()

	var total float64
	for i, rg := range e.ranges {
		u0 := u0s[i*e.lay.dim : (i+1)*e.lay.dim]
		pred, err := e.model(u0, p, e.tsteps[rg.First:rg.Last+1])
		if err != nil || pred == nil {
			return math.Inf(1), preds
		}
		if r, c := pred.Dims(); r != e.lay.dim || c != rg.Len() {
			return math.Inf(1), preds
		}
		preds[i] = pred

		slice := e.data.Slice(0, dataRows, rg.First, rg.Last+1)
		total += e.lossFn(slice, pred, e.icWeight)

		// Boundary mismatch against the next segment's initial condition.
		if e.path == pathSegmented && e.continuity > 0 && i+1 < len(e.ranges) {
			next := u0s[(i+1)*e.lay.dim : (i+2)*e.lay.dim]
			last := rg.Len() - 1
			for d := 0; d < e.lay.dim; d++ {
				diff := pred.At(d, last) - next[d]
				total += e.continuity * diff * diff
			}
		}
	}

	if math.IsNaN(total) {
		return math.Inf(1), preds
	}
	return total, preds
}
