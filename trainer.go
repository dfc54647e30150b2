package mshoot

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/vboussange/mshoot/optimizer"
)

// Stage pairs an optimizer with its iteration budget. A training schedule
// is an ordered list of stages; each stage starts from the previous
// stage's final parameter vector and runs for up to MaxIters iterations
// whether or not the previous stage converged.
type Stage struct {
	Optimizer optimizer.Optimizer
	MaxIters  int
}

// DefaultOptimizers returns the default training schedule: 1000 Adam
// iterations at rate 0.01 followed by 200 BFGS iterations.
func DefaultOptimizers() []Stage {
	return []Stage{
		{Optimizer: optimizer.NewAdam(0.01), MaxIters: 1000},
		{Optimizer: optimizer.NewGonum(optimizer.MethodBFGS), MaxIters: 200},
	}
}

// DiagnosticFunc receives training progress every Config.InfoPerIts
// iterations: the parameter-error history, the current shared parameters,
// the loss history, the current per-segment predictions and the ranges.
// Side effects only; it cannot influence the optimization.
type DiagnosticFunc func(paramErrs, p, losses []float64, preds []*mat.Dense, ranges []Range)

// Config configures a Trainer.
// Zero values produce sensible defaults; see field comments.
type Config struct {
	Dim            int       `json:"dim"`              // state dimension, required
	GroupSize      int       `json:"group_size"`       // zero → whole series in one segment; else ≥ 2
	ContinuityTerm float64   `json:"continuity_term"`  // zero → 1; boundary-mismatch penalty weight
	ICTerm         float64   `json:"ic_term"`          // zero → 1; first-point emphasis of the default loss
	Threshold      float64   `json:"threshold"`        // zero → 1e-16; early-stop loss floor
	InfoPerIts     int       `json:"info_per_its"`     // zero → 50; progress report cadence
	Verbose        bool      `json:"verbose"`          // zero false → silent
	NonNegativeICs bool      `json:"non_negative_ics"` // clamp negative data-derived ICs to 1e-3
	PTrue          []float64 `json:"p_true,omitempty"` // ground-truth parameters, enables error tracking
	PLabels        []string  `json:"p_labels,omitempty"`

	Optimizers []Stage        `json:"-"` // nil → DefaultOptimizers()
	Loss       LossFunc       `json:"-"` // nil → MSELoss
	Diagnostic DiagnosticFunc `json:"-"`
	LogWriter  io.Writer      `json:"-"` // nil → os.Stdout
}

// Trainer fits ODE model parameters and per-segment initial conditions to
// time-series data by multiple shooting.
type Trainer struct {
	model      SimulateFunc
	dim        int
	groupSize  int
	continuity float64
	icTerm     float64
	threshold  float64
	infoPerIts int
	verbose    bool
	clampICs   bool
	pTrue      []float64
	pLabels    []string
	stages     []Stage
	lossFn     LossFunc
	diagnostic DiagnosticFunc
	logw       io.Writer
}

// New creates a Trainer for the given model from the config.
// Zero-value fields are filled with defaults; invalid values return an
// error wrapping ErrInvalidConfig.
func New(model SimulateFunc, cfg Config) (*Trainer, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidConfig)
	}
	if cfg.Dim <= 0 {
		return nil, fmt.Errorf("%w: state dimension %d, want > 0", ErrInvalidConfig, cfg.Dim)
	}
	if cfg.GroupSize < 0 || cfg.GroupSize == 1 {
		return nil, fmt.Errorf("%w: group size %d, want 0 or >= 2", ErrInvalidConfig, cfg.GroupSize)
	}
	if cfg.ContinuityTerm < 0 {
		return nil, fmt.Errorf("%w: continuity term %g, want >= 0", ErrInvalidConfig, cfg.ContinuityTerm)
	}
	if cfg.ICTerm < 0 {
		return nil, fmt.Errorf("%w: ic term %g, want >= 0", ErrInvalidConfig, cfg.ICTerm)
	}
	if cfg.Threshold < 0 {
		return nil, fmt.Errorf("%w: threshold %g, want >= 0", ErrInvalidConfig, cfg.Threshold)
	}
	for i, st := range cfg.Optimizers {
		if st.Optimizer == nil {
			return nil, fmt.Errorf("%w: stage %d has nil optimizer", ErrInvalidConfig, i)
		}
		if st.MaxIters <= 0 {
			return nil, fmt.Errorf("%w: stage %d has iteration budget %d, want > 0", ErrInvalidConfig, i, st.MaxIters)
		}
	}

	t := &Trainer{
		model:      model,
		dim:        cfg.Dim,
		groupSize:  cfg.GroupSize,
		continuity: cfg.ContinuityTerm,
		icTerm:     cfg.ICTerm,
		threshold:  cfg.Threshold,
		infoPerIts: cfg.InfoPerIts,
		verbose:    cfg.Verbose,
		clampICs:   cfg.NonNegativeICs,
		pTrue:      cfg.PTrue,
		pLabels:    cfg.PLabels,
		stages:     cfg.Optimizers,
		lossFn:     cfg.Loss,
		diagnostic: cfg.Diagnostic,
		logw:       cfg.LogWriter,
	}
	if t.continuity == 0 {
		t.continuity = 1
	}
	if t.icTerm == 0 {
		t.icTerm = 1
	}
	if t.threshold == 0 {
		t.threshold = 1e-16
	}
	if t.infoPerIts == 0 {
		t.infoPerIts = 50
	}
	if t.stages == nil {
		t.stages = DefaultOptimizers()
	}
	if t.lossFn == nil {
		t.lossFn = MSELoss
	}
	if t.logw == nil {
		t.logw = os.Stdout
	}
	return t, nil
}

// resolveGroupSize maps the zero config value to "one segment for the
// whole series".
func (t *Trainer) resolveGroupSize(datasize int) int {
	if t.groupSize == 0 {
		return datasize + 1
	}
	return t.groupSize
}

func validateSeries(data *mat.Dense, tsteps []float64) error {
	_, c := data.Dims()
	if c == 0 || c != len(tsteps) {
		return fmt.Errorf("%w: data has %d columns but %d time stamps", ErrShapeMismatch, c, len(tsteps))
	}
	return nil
}

// Fit trains the shared parameters starting from p0, deriving each
// segment's initial condition from the data column at the segment's first
// index. The data must measure the state directly (Dim rows); use
// FitWithICs when the observations are derived quantities.
//
// The context is checked between optimizer stages; on cancellation the
// result reflects the parameters reached so far.
func (t *Trainer) Fit(ctx context.Context, data *mat.Dense, tsteps, p0 []float64) (*Result, error) {
	if err := validateSeries(data, tsteps); err != nil {
		return nil, err
	}
	_, cols := data.Dims()
	ranges := BuildRanges(t.resolveGroupSize(cols), cols)
	u0s, err := icsFromData(data, ranges, t.dim, t.clampICs)
	if err != nil {
		return nil, err
	}
	return t.fit(ctx, data, tsteps, p0, u0s, ranges, t.continuity, t.stages)
}

// FitWithICs trains with caller-supplied segment initial conditions.
// u0s must have one column per segment (Dim × number of segments, with
// segments given by BuildRanges over the configured group size).
func (t *Trainer) FitWithICs(ctx context.Context, data *mat.Dense, tsteps, p0 []float64, u0s *mat.Dense) (*Result, error) {
	if err := validateSeries(data, tsteps); err != nil {
		return nil, err
	}
	_, cols := data.Dims()
	ranges := BuildRanges(t.resolveGroupSize(cols), cols)

	r, c := u0s.Dims()
	if r != t.dim || c != len(ranges) {
		return nil, fmt.Errorf("%w: initial conditions have shape (%d, %d), want (%d, %d)",
			ErrShapeMismatch, r, c, t.dim, len(ranges))
	}
	flat := make([]float64, 0, r*c)
	col := make([]float64, r)
	for s := 0; s < c; s++ {
		mat.Col(col, s, u0s)
		flat = append(flat, col...)
	}
	return t.fit(ctx, data, tsteps, p0, flat, ranges, t.continuity, t.stages)
}

// runState tracks the orchestration state of one training call.
type runState int

const (
	runNotStarted runState = iota
	runRunning
	runCompleted
	runEarlyStopped
)

// history is the mutable per-call training record. It is exclusively owned
// by the fit in progress; no two calls share one.
type history struct {
	losses    []float64
	paramErrs []float64
	iter      int
}

// fit runs the staged optimizer schedule over the flattened parameter
// vector for a fixed segmentation. continuity is passed explicitly so that
// independent-series fits can force it to zero without touching the
// configured value.
func (t *Trainer) fit(ctx context.Context, data *mat.Dense, tsteps, p0, u0s []float64, ranges []Range, continuity float64, stages []Stage) (*Result, error) {
	if t.pTrue != nil && len(t.pTrue) != len(p0) {
		return nil, fmt.Errorf("%w: %d true parameters given for %d model parameters",
			ErrShapeMismatch, len(t.pTrue), len(p0))
	}
	lay := layout{dim: t.dim, nSeg: len(ranges), nParams: len(p0)}
	path := pathSegmented
	if len(ranges) == 1 {
		path = pathSingle
	}
	ev := &evaluator{
		model:      t.model,
		lossFn:     t.lossFn,
		data:       data,
		tsteps:     tsteps,
		ranges:     ranges,
		lay:        lay,
		continuity: continuity,
		icWeight:   t.icTerm,
		path:       path,
	}

	x := make([]float64, 0, lay.total())
	x = append(x, u0s...)
	x = append(x, p0...)

	hist := &history{}
	state := runNotStarted

	cb := func(cur []float64, loss float64, preds []*mat.Dense) bool {
		hist.iter++
		hist.losses = append(hist.losses, loss)
		if t.pTrue != nil {
			_, p := lay.split(cur)
			d := floats.Distance(p, t.pTrue, 2)
			hist.paramErrs = append(hist.paramErrs, d*d)
		}
		if (hist.iter-1)%t.infoPerIts == 0 {
			t.report(hist, cur, lay, loss, preds, ranges)
		}
		if loss < t.threshold {
			state = runEarlyStopped
			return true
		}
		return false
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return t.finish(ev, x, lay, hist), err
		}
		state = runRunning
		x = st.Optimizer.Minimize(ev.eval, x, st.MaxIters, cb)
		if state == runEarlyStopped {
			break
		}
	}
	if state != runEarlyStopped {
		state = runCompleted
	}

	res := t.finish(ev, x, lay, hist)
	if t.verbose {
		if state == runEarlyStopped {
			fmt.Fprintf(t.logw, "mshoot: early stop after %d iterations, loss %.6g < threshold %.6g\n",
				hist.iter, res.MinLoss, t.threshold)
		} else {
			fmt.Fprintf(t.logw, "mshoot: finished after %d iterations, loss %.6g\n", hist.iter, res.MinLoss)
		}
	}
	return res, nil
}

// finish re-evaluates the loss at the final vector so the returned
// predictions are consistent with the reported minimum; the optimizer's
// last callback may reflect an intermediate point.
func (t *Trainer) finish(ev *evaluator, x []float64, lay layout, hist *history) *Result {
	loss, preds := ev.eval(x)
	_, p := lay.split(x)
	return &Result{
		MinLoss:         loss,
		P:               append([]float64(nil), p...),
		PTrue:           t.pTrue,
		PLabels:         t.pLabels,
		Predictions:     preds,
		Ranges:          ev.ranges,
		LossHistory:     hist.losses,
		ParamErrHistory: hist.paramErrs,
	}
}

// report logs progress and invokes the user diagnostic. Side effects only.
func (t *Trainer) report(hist *history, x []float64, lay layout, loss float64, preds []*mat.Dense, ranges []Range) {
	_, p := lay.split(x)
	if t.verbose {
		fmt.Fprintf(t.logw, "it: %d, loss: %.6g", hist.iter-1, loss)
		if med, err := stats.Median(hist.losses); err == nil {
			fmt.Fprintf(t.logw, ", median loss: %.6g", med)
		}
		if n := len(hist.paramErrs); n > 0 {
			fmt.Fprintf(t.logw, ", param err²: %.6g", hist.paramErrs[n-1])
		}
		fmt.Fprintln(t.logw)
		for i, lab := range t.pLabels {
			if i < len(p) {
				fmt.Fprintf(t.logw, "  %s = %.6g\n", lab, p[i])
			}
		}
	}
	if t.diagnostic != nil {
		t.diagnostic(hist.paramErrs, p, hist.losses, preds, ranges)
	}
}
