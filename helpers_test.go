package mshoot

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/vboussange/mshoot/optimizer"
)

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %g, want %g", name, got, want)
	}
}

// rowData builds a dim × steps matrix from row-major values.
func rowData(rows, cols int, vals []float64) *mat.Dense {
	return mat.NewDense(rows, cols, vals)
}

// unitSteps returns n time stamps 0, 1, ..., n-1.
func unitSteps(n int) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i)
	}
	return ts
}

// constModel holds each segment at its initial condition: column j of the
// prediction equals u0.
func constModel() SimulateFunc {
	return func(u0, p, tsteps []float64) (*mat.Dense, error) {
		out := mat.NewDense(len(u0), len(tsteps), nil)
		for j := range tsteps {
			out.SetCol(j, u0)
		}
		return out, nil
	}
}

// flatParamModel predicts the constant p[0] everywhere, ignoring the
// initial condition. Loss then depends on the shared parameter only.
func flatParamModel(dim int) SimulateFunc {
	return func(u0, p, tsteps []float64) (*mat.Dense, error) {
		out := mat.NewDense(dim, len(tsteps), nil)
		for i := 0; i < dim; i++ {
			for j := range tsteps {
				out.Set(i, j, p[0])
			}
		}
		return out, nil
	}
}

// countingOptimizer evaluates the objective and fires the callback once
// per iteration without moving the parameters.
type countingOptimizer struct {
	runs int
}

func (c *countingOptimizer) Minimize(obj optimizer.Objective, x0 []float64, maxIters int, cb optimizer.Callback) []float64 {
	c.runs++
	x := append([]float64(nil), x0...)
	for i := 0; i < maxIters; i++ {
		loss, preds := obj(x)
		if cb != nil && cb(x, loss, preds) {
			break
		}
	}
	return x
}

// scriptedOptimizer overwrites the parameter vector with fixed values:
// every initial condition becomes setIC and the shared block becomes setP.
// It records the x0 it was handed so tests can inspect warm starts.
type scriptedOptimizer struct {
	setIC float64
	setP  []float64
	calls int
	gotX0 []float64
}

func (s *scriptedOptimizer) Minimize(obj optimizer.Objective, x0 []float64, maxIters int, cb optimizer.Callback) []float64 {
	s.calls++
	s.gotX0 = append([]float64(nil), x0...)

	x := append([]float64(nil), x0...)
	nIC := len(x) - len(s.setP)
	for i := 0; i < nIC; i++ {
		x[i] = s.setIC
	}
	copy(x[nIC:], s.setP)

	loss, preds := obj(x)
	if cb != nil {
		cb(x, loss, preds)
	}
	return x
}

// singleStage wraps one optimizer into a schedule.
func singleStage(o optimizer.Optimizer, iters int) []Stage {
	return []Stage{{Optimizer: o, MaxIters: iters}}
}
