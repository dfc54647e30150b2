// Package ode provides a minimal fixed-step Runge-Kutta integrator for
// driving mshoot models. It is a convenience for examples and tests; any
// solver producing a state × time matrix can serve as a model backend.
package ode

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Func is the right-hand side of the system y' = f(t, y).
// It writes the derivative of y at time t into dy. Parameters of the
// model are captured by the closure.
type Func func(t float64, y, dy []float64)

var (
	// ErrUnstable is returned when the solution leaves the finite domain.
	ErrUnstable = errors.New("ode: solution diverged (NaN or Inf state)")

	// ErrEmptyTimes is returned when no sampling times are given.
	ErrEmptyTimes = errors.New("ode: no sampling times given")
)

// RK4 integrates y' = f(t, y) from y0 with the classical fourth-order
// Runge-Kutta method, sampling the solution at tsteps. Each interval
// between consecutive sampling times is split into substeps internal
// steps (substeps < 1 is treated as 1).
//
// The result has one row per state variable and one column per sampling
// time; column 0 is y0. A non-finite state aborts integration with
// ErrUnstable.
func RK4(f Func, y0, tsteps []float64, substeps int) (*mat.Dense, error) {
	if len(tsteps) == 0 {
		return nil, ErrEmptyTimes
	}
	if substeps < 1 {
		substeps = 1
	}

	dim := len(y0)
	out := mat.NewDense(dim, len(tsteps), nil)
	out.SetCol(0, y0)

	y := append([]float64(nil), y0...)
	step := rk4Scratch(dim)

	for j := 1; j < len(tsteps); j++ {
		t := tsteps[j-1]
		h := (tsteps[j] - t) / float64(substeps)

		for s := 0; s < substeps; s++ {
			step.advance(f, t, h, y)
			t += h
		}

		for _, v := range y {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w at t = %g", ErrUnstable, tsteps[j])
			}
		}
		out.SetCol(j, y)
	}

	return out, nil
}

// scratch holds the per-step work buffers so one allocation serves the
// whole integration.
type scratch struct {
	k1, k2, k3, k4, tmp []float64
}

func rk4Scratch(dim int) *scratch {
	return &scratch{
		k1:  make([]float64, dim),
		k2:  make([]float64, dim),
		k3:  make([]float64, dim),
		k4:  make([]float64, dim),
		tmp: make([]float64, dim),
	}
}

// advance performs one RK4 step of size h at time t, updating y in place.
func (s *scratch) advance(f Func, t, h float64, y []float64) {
	f(t, y, s.k1)

	for i := range y {
		s.tmp[i] = y[i] + 0.5*h*s.k1[i]
	}
	f(t+0.5*h, s.tmp, s.k2)

	for i := range y {
		s.tmp[i] = y[i] + 0.5*h*s.k2[i]
	}
	f(t+0.5*h, s.tmp, s.k3)

	for i := range y {
		s.tmp[i] = y[i] + h*s.k3[i]
	}
	f(t+h, s.tmp, s.k4)

	for i := range y {
		y[i] += h / 6 * (s.k1[i] + 2*s.k2[i] + 2*s.k3[i] + s.k4[i])
	}
}
