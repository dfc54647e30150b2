package mshoot

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitIndependent trains shared parameters against several independent time
// series at once. Each series is segmented on its own, the segments are
// stitched into one virtual series with globally shifted ranges, and the
// continuity penalty is disabled for the whole call: unrelated series must
// never be penalized for disagreeing at their stitch boundary. That
// override is internal and cannot be reached from the configuration.
//
// Segment initial conditions are derived from the data, so every series
// must measure the state directly (Dim rows). Use
// Result.PredictionsBySeries to regroup the flat segment predictions.
func (t *Trainer) FitIndependent(ctx context.Context, series []*mat.Dense, tsteps [][]float64, p0 []float64) (*Result, error) {
	data, ranges, flat, counts, err := t.concatSeries(series, tsteps)
	if err != nil {
		return nil, err
	}
	u0s, err := icsFromData(data, ranges, t.dim, t.clampICs)
	if err != nil {
		return nil, err
	}

	// continuity forced to zero for independent series.
	res, err := t.fit(ctx, data, flat, p0, u0s, ranges, 0, t.stages)
	if res != nil {
		res.seriesCounts = counts
	}
	return res, err
}

// concatSeries stitches independent series into one virtual series:
// per-series ranges shifted by the cumulative length of the preceding
// series, observations and time stamps concatenated along the time axis.
// It also returns the number of segments contributed by each series.
func (t *Trainer) concatSeries(series []*mat.Dense, tsteps [][]float64) (*mat.Dense, []Range, []float64, []int, error) {
	if len(series) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("%w: no series given", ErrShapeMismatch)
	}
	if len(series) != len(tsteps) {
		return nil, nil, nil, nil, fmt.Errorf("%w: %d series but %d time vectors",
			ErrShapeMismatch, len(series), len(tsteps))
	}

	rows, _ := series[0].Dims()
	total := 0
	for i, s := range series {
		r, c := s.Dims()
		if r != rows {
			return nil, nil, nil, nil, fmt.Errorf("%w: series %d has %d rows, series 0 has %d",
				ErrShapeMismatch, i, r, rows)
		}
		if c == 0 || c != len(tsteps[i]) {
			return nil, nil, nil, nil, fmt.Errorf("%w: series %d has %d columns but %d time stamps",
				ErrShapeMismatch, i, c, len(tsteps[i]))
		}
		total += c
	}

	var (
		data   = mat.NewDense(rows, total, nil)
		flat   = make([]float64, 0, total)
		counts = make([]int, len(series))
		ranges []Range
		off    int
	)
	col := make([]float64, rows)
	for i, s := range series {
		_, c := s.Dims()
		for j := 0; j < c; j++ {
			mat.Col(col, j, s)
			data.SetCol(off+j, col)
		}
		sr := BuildRanges(t.resolveGroupSize(c), c)
		for _, rg := range sr {
			ranges = append(ranges, rg.shift(off))
		}
		counts[i] = len(sr)
		flat = append(flat, tsteps[i]...)
		off += c
	}
	return data, ranges, flat, counts, nil
}
