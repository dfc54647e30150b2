package mshoot

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// icFloor replaces negative data-derived initial conditions when
// Config.NonNegativeICs is set, keeping positivity-assuming solvers away
// from zero crossings.
const icFloor = 1e-3

// icsFromData derives one initial condition per segment from the observed
// column at the segment's first index. The data must measure the state
// directly (one row per state variable); otherwise initial conditions
// cannot be derived automatically.
func icsFromData(data *mat.Dense, ranges []Range, dim int, clamp bool) ([]float64, error) {
	rows, _ := data.Dims()
	if rows != dim {
		return nil, fmt.Errorf("%w: data has %d rows, state dimension is %d",
			ErrDimensionMismatch, rows, dim)
	}

	u0s := make([]float64, 0, dim*len(ranges))
	col := make([]float64, dim)
	for _, rg := range ranges {
		mat.Col(col, rg.First, data)
		for _, v := range col {
			if clamp && v < 0 {
				v = icFloor
			}
			u0s = append(u0s, v)
		}
	}
	return u0s, nil
}

// icsFromPrevious warm-starts each new segment from the prediction of the
// previous round's segment covering its first index.
//
// At a boundary index shared by two previous segments the later segment
// wins (previous ranges are searched last to first): its prediction at
// that index treats the index as its own start, making it the locally more
// accurate estimate of the state there.
func icsFromPrevious(prevPreds []*mat.Dense, prevRanges, newRanges []Range, dim int) ([]float64, error) {
	if len(prevPreds) != len(prevRanges) {
		return nil, fmt.Errorf("%w: %d previous predictions for %d previous ranges",
			ErrShapeMismatch, len(prevPreds), len(prevRanges))
	}

	u0s := make([]float64, 0, dim*len(newRanges))
	col := make([]float64, dim)
	for _, rg := range newRanges {
		found := false
		for j := len(prevRanges) - 1; j >= 0; j-- {
			if !prevRanges[j].Contains(rg.First) {
				continue
			}
			pred := prevPreds[j]
			if pred == nil {
				return nil, fmt.Errorf("mshoot: previous segment %d has no prediction", j)
			}
			if r, c := pred.Dims(); r != dim || c != prevRanges[j].Len() {
				return nil, fmt.Errorf("mshoot: previous segment %d prediction has shape (%d, %d), want (%d, %d)",
					j, r, c, dim, prevRanges[j].Len())
			}
			mat.Col(col, rg.First-prevRanges[j].First, pred)
			u0s = append(u0s, col...)
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("mshoot: no previous segment covers index %d", rg.First)
		}
	}
	return u0s, nil
}
