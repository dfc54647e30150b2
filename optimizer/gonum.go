package optimizer

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// Method selects a gonum.org/v1/gonum/optimize minimization method.
type Method int

const (
	MethodBFGS Method = iota
	MethodLBFGS
	MethodNelderMead
	MethodGradientDescent
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodBFGS:
		return "BFGS"
	case MethodLBFGS:
		return "L-BFGS"
	case MethodNelderMead:
		return "Nelder-Mead"
	case MethodGradientDescent:
		return "GradientDescent"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

func (m Method) gonumMethod() optimize.Method {
	switch m {
	case MethodBFGS:
		return &optimize.BFGS{}
	case MethodLBFGS:
		return &optimize.LBFGS{}
	case MethodNelderMead:
		return &optimize.NelderMead{}
	case MethodGradientDescent:
		return &optimize.GradientDescent{}
	default:
		return &optimize.BFGS{}
	}
}

// Gonum adapts a gonum optimize.Method to the Optimizer interface.
// Gradient-based methods use central-difference gradients; Nelder-Mead
// runs derivative-free. The per-iteration callback fires on each major
// iteration of the underlying method.
type Gonum struct {
	method Method
}

// NewGonum creates an adapter for the given method.
func NewGonum(m Method) *Gonum {
	return &Gonum{method: m}
}

// errStopRequested aborts optimize.Minimize from inside the recorder when
// the callback asks for early termination.
var errStopRequested = errors.New("optimizer: early stop requested")

// recorder forwards major iterations to a Callback and remembers the last
// visited point in case the underlying method discards its result on error.
type recorder struct {
	obj   Objective
	cb    Callback
	lastX []float64
}

func (r *recorder) Init() error { return nil }

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op&optimize.MajorIteration == 0 {
		return nil
	}
	r.lastX = append(r.lastX[:0], loc.X...)
	if r.cb == nil {
		return nil
	}
	loss, preds := r.obj(loc.X)
	if r.cb(loc.X, loss, preds) {
		return errStopRequested
	}
	return nil
}

// Minimize runs the configured method for at most maxIters major iterations.
func (g *Gonum) Minimize(obj Objective, x0 []float64, maxIters int, cb Callback) []float64 {
	problem := optimize.Problem{Func: scalar(obj)}
	if g.method != MethodNelderMead {
		problem.Grad = func(grad, x []float64) {
			gradient(grad, obj, x)
		}
	}

	rec := &recorder{obj: obj, cb: cb}
	settings := &optimize.Settings{
		MajorIterations: maxIters,
		Recorder:        rec,
	}

	x := append([]float64(nil), x0...)
	result, err := optimize.Minimize(problem, x, settings, g.method.gonumMethod())

	// Early stop and method-internal failures (e.g. a linesearch hitting an
	// infinite plateau) both fall back to the last point the method visited.
	if result != nil && len(result.X) > 0 {
		return result.X
	}
	if errors.Is(err, errStopRequested) && rec.lastX != nil {
		return rec.lastX
	}
	if rec.lastX != nil {
		return rec.lastX
	}
	return x
}

var _ Optimizer = (*Gonum)(nil)
