package optimizer

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Objective evaluates the loss at x. The returned predictions are a side
// channel for diagnostics; minimizers only act on the scalar loss.
type Objective func(x []float64) (loss float64, preds []*mat.Dense)

// Callback is invoked once per iteration with the current point, its loss
// and the predictions produced while evaluating it. Returning true requests
// that the minimizer stop immediately.
type Callback func(x []float64, loss float64, preds []*mat.Dense) (stop bool)

// Optimizer minimizes an objective starting from x0 for at most maxIters
// iterations and returns the best point found. x0 is not modified.
type Optimizer interface {
	Minimize(obj Objective, x0 []float64, maxIters int, cb Callback) []float64
}

// scalar strips the prediction side channel from an objective.
func scalar(obj Objective) func([]float64) float64 {
	return func(x []float64) float64 {
		loss, _ := obj(x)
		return loss
	}
}

// gradient writes the central-difference gradient of obj at x into dst.
func gradient(dst []float64, obj Objective, x []float64) {
	fd.Gradient(dst, scalar(obj), x, &fd.Settings{Formula: fd.Central})
}
