// Package mshoot fits unknown ODE parameters and unmeasured initial
// conditions to time-series data by minibatched multiple shooting.
//
// A long trajectory fit is split into short overlapping shooting segments.
// Each segment carries its own initial condition while all segments share
// the global model parameters; a continuity penalty keeps adjacent
// segments consistent at their shared boundary index. The decomposition
// eases the optimization landscape compared to fitting the whole
// trajectory at once.
//
// The ODE solver is a caller-supplied [SimulateFunc]; the bundled
// mshoot/ode package provides a minimal fixed-step integrator. Optimizers
// live in mshoot/optimizer.
//
// Basic usage:
//
//	model := func(u0, p, tsteps []float64) (*mat.Dense, error) {
//	    rhs := func(t float64, y, dy []float64) {
//	        dy[0] = -p[0] * y[0]
//	    }
//	    return ode.RK4(rhs, u0, tsteps, 10)
//	}
//
//	t, err := mshoot.New(model, mshoot.Config{Dim: 1, GroupSize: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := t.Fit(context.Background(), data, tsteps, []float64{0.1})
//
// [Trainer.FitIterative] repeats training over a sequence of group sizes,
// re-seeding each round's initial conditions from the previous round's
// predictions. [Trainer.FitIndependent] fits shared parameters against
// several unrelated series at once.
package mshoot
