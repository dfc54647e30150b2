package optimizer

import "math"

// Adam implements the Adam optimizer with bias correction.
//
// Update rule:
//
//	m[i] = β1·m[i] + (1-β1)·g[i]
//	v[i] = β2·v[i] + (1-β2)·g[i]²
//	m̂[i] = m[i] / (1 - β1^t)
//	v̂[i] = v[i] / (1 - β2^t)
//	w[i] = w[i] - lr · m̂[i] / (√v̂[i] + ε)
//
// Non-finite gradient components are skipped, so an objective that returns
// +Inf in an infeasible region stalls the affected step instead of
// poisoning the moment estimates.
type Adam struct {
	lr           float64
	beta1, beta2 float64
	eps          float64
	m, v         []float64
	step         int

	// Schedule, if non-nil, drives the learning rate during Minimize.
	Schedule *CosineAnnealing
}

// NewAdam creates an Adam optimizer with the given learning rate.
// A non-positive rate defaults to 0.01. Uses standard defaults:
// β1=0.9, β2=0.999, ε=1e-8.
func NewAdam(lr float64) *Adam {
	if lr <= 0 {
		lr = 0.01
	}
	return &Adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
	}
}

// Update applies one Adam step and returns the updated parameters.
// The input slice is not modified.
func (a *Adam) Update(params, grads []float64) []float64 {
	if len(a.m) != len(params) {
		a.m = make([]float64, len(params))
		a.v = make([]float64, len(params))
		a.step = 0
	}
	a.step++

	out := append([]float64(nil), params...)
	for i, g := range grads {
		if g == 0 || math.IsNaN(g) || math.IsInf(g, 0) {
			continue
		}

		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g

		mHat := a.m[i] / (1 - math.Pow(a.beta1, float64(a.step)))
		vHat := a.v[i] / (1 - math.Pow(a.beta2, float64(a.step)))

		out[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}

	return out
}

// SetLR updates the learning rate (used by CosineAnnealing).
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// Minimize runs up to maxIters Adam steps from x0 using central-difference
// gradients. Moment estimates and the schedule are reset at entry, so one
// Adam value can serve several training stages.
func (a *Adam) Minimize(obj Objective, x0 []float64, maxIters int, cb Callback) []float64 {
	a.m = make([]float64, len(x0))
	a.v = make([]float64, len(x0))
	a.step = 0
	if a.Schedule != nil {
		a.Schedule.Reset()
	}

	x := append([]float64(nil), x0...)
	grad := make([]float64, len(x0))

	for it := 0; it < maxIters; it++ {
		loss, preds := obj(x)
		if cb != nil && cb(x, loss, preds) {
			break
		}

		if a.Schedule != nil {
			a.SetLR(a.Schedule.LR())
			a.Schedule.Step()
		}

		gradient(grad, obj, x)
		x = a.Update(x, grad)
	}

	return x
}

// CosineAnnealing implements the cosine annealing learning rate schedule.
//
//	lr_t = 0.5 * lr_max * (1 + cos(π * t / T_max))
type CosineAnnealing struct {
	lrMax float64
	tMax  int
	t     int
}

// NewCosineAnnealing creates a cosine annealing scheduler.
func NewCosineAnnealing(lrMax float64, tMax int) *CosineAnnealing {
	return &CosineAnnealing{
		lrMax: lrMax,
		tMax:  tMax,
	}
}

// LR returns the current learning rate.
func (ca *CosineAnnealing) LR() float64 {
	return 0.5 * ca.lrMax * (1 + math.Cos(math.Pi*float64(ca.t)/float64(ca.tMax)))
}

// Step advances the schedule by one step and returns the new learning rate.
func (ca *CosineAnnealing) Step() float64 {
	ca.t++
	return ca.LR()
}

// Reset rewinds the schedule to its initial step.
func (ca *CosineAnnealing) Reset() {
	ca.t = 0
}

var _ Optimizer = (*Adam)(nil)
