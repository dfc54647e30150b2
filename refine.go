package mshoot

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RefineStage describes one round of iterative refinement: a target group
// size and an optional optimizer schedule overriding the Trainer's.
type RefineStage struct {
	GroupSize  int     // zero → whole series in one segment; else ≥ 2
	Optimizers []Stage // nil → the Trainer's schedule
}

// FitIterative repeats training over the given stages, typically with
// increasing group sizes. Each round builds its ranges, warm-starts the
// segment initial conditions from the previous accepted round's
// predictions and continues from its trained parameters. The first round
// is seeded by a synthetic result whose prediction is the raw data over a
// single whole-series range.
//
// A round is accepted when its loss improves on the previous accepted
// minimum, or when it is already below the threshold; the first rejection
// ends the run without attempting further stages. All accepted results are
// returned in order.
//
// Independent multi-series input is not supported here; refine each series
// separately or use FitIndependent for a single joint fit.
func (t *Trainer) FitIterative(ctx context.Context, data *mat.Dense, tsteps, p0 []float64, stages []RefineStage) ([]*Result, error) {
	if err := validateSeries(data, tsteps); err != nil {
		return nil, err
	}
	rows, cols := data.Dims()
	if rows != t.dim {
		return nil, fmt.Errorf("%w: data has %d rows, state dimension is %d",
			ErrDimensionMismatch, rows, t.dim)
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: no refinement stages", ErrInvalidConfig)
	}
	for i, rs := range stages {
		if rs.GroupSize < 0 || rs.GroupSize == 1 {
			return nil, fmt.Errorf("%w: stage %d group size %d, want 0 or >= 2",
				ErrInvalidConfig, i, rs.GroupSize)
		}
		for j, st := range rs.Optimizers {
			if st.Optimizer == nil {
				return nil, fmt.Errorf("%w: stage %d schedule entry %d has nil optimizer",
					ErrInvalidConfig, i, j)
			}
			if st.MaxIters <= 0 {
				return nil, fmt.Errorf("%w: stage %d schedule entry %d has iteration budget %d, want > 0",
					ErrInvalidConfig, i, j, st.MaxIters)
			}
		}
	}

	// Synthetic zero-th result: the raw data standing in as a whole-series
	// prediction, used only to bootstrap the first warm start.
	prev := &Result{
		P:           p0,
		Predictions: []*mat.Dense{data},
		Ranges:      []Range{{First: 0, Last: cols - 1}},
	}
	prevMin := math.Inf(1)

	var accepted []*Result
	for i, rs := range stages {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}

		gs := rs.GroupSize
		if gs == 0 {
			gs = cols + 1
		}
		ranges := BuildRanges(gs, cols)
		u0s, err := icsFromPrevious(prev.Predictions, prev.Ranges, ranges, t.dim)
		if err != nil {
			return accepted, err
		}

		sched := rs.Optimizers
		if sched == nil {
			sched = t.stages
		}
		res, err := t.fit(ctx, data, tsteps, prev.P, u0s, ranges, t.continuity, sched)
		if err != nil {
			return accepted, err
		}

		if res.MinLoss >= prevMin && res.MinLoss >= t.threshold {
			if t.verbose {
				fmt.Fprintf(t.logw, "mshoot: refinement stopped at stage %d (group size %d): loss %.6g did not improve on %.6g\n",
					i, gs, res.MinLoss, prevMin)
			}
			break
		}
		accepted = append(accepted, res)
		prev = res
		prevMin = res.MinLoss
	}
	return accepted, nil
}
