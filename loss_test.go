package mshoot

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMSELoss(t *testing.T) {
	data := rowData(2, 2, []float64{1, 2, 3, 4})
	pred := rowData(2, 2, []float64{0, 0, 0, 0})

	// mse = (1+4+9+16)/4 = 7.5, ic = (1+9)/2 = 5.
	assertFloat(t, "plain mse", MSELoss(data, pred, 0), 7.5)
	assertFloat(t, "mse with ic emphasis", MSELoss(data, pred, 2), 17.5)
}

func TestMSELossPerfectFit(t *testing.T) {
	data := rowData(1, 3, []float64{1, 2, 3})
	pred := rowData(1, 3, []float64{1, 2, 3})
	assertFloat(t, "zero loss", MSELoss(data, pred, 5), 0)
}

func TestMSELossShapeMismatch(t *testing.T) {
	data := rowData(1, 3, []float64{1, 2, 3})
	pred := rowData(1, 2, []float64{1, 2})
	if got := MSELoss(data, pred, 0); !math.IsInf(got, 1) {
		t.Errorf("loss = %g, want +Inf for mismatched shapes", got)
	}
}

func newTestEvaluator(data *mat.Dense, ranges []Range, dim, nParams int, continuity float64, path lossPath) *evaluator {
	return &evaluator{
		model:      constModel(),
		lossFn:     MSELoss,
		data:       data,
		tsteps:     unitSteps(func() int { _, c := data.Dims(); return c }()),
		ranges:     ranges,
		lay:        layout{dim: dim, nSeg: len(ranges), nParams: nParams},
		continuity: continuity,
		icWeight:   1,
		path:       path,
	}
}

func TestEvaluatorSegmentedLoss(t *testing.T) {
	// data [1 1 1 5 5], segments [0,2] and [2,4], constant model.
	// x = [u0_0=1, u0_1=3]: segment 0 fits exactly; segment 1 predicts 3
	// against [1 5 5]: mse = (4+4+4)/3 = 4, ic emphasis (1-3)² = 4.
	// Continuity: (1-3)² per boundary.
	data := rowData(1, 5, []float64{1, 1, 1, 5, 5})
	ranges := []Range{{0, 2}, {2, 4}}

	ev := newTestEvaluator(data, ranges, 1, 0, 2, pathSegmented)
	loss, preds := ev.eval([]float64{1, 3})
	assertFloat(t, "segmented loss", loss, 4+4+2*4)

	if len(preds) != 2 || preds[0] == nil || preds[1] == nil {
		t.Fatalf("expected 2 predictions, got %v", preds)
	}
	if r, c := preds[1].Dims(); r != 1 || c != 3 {
		t.Errorf("segment prediction dims = (%d, %d), want (1, 3)", r, c)
	}
}

func TestEvaluatorContinuityDisabled(t *testing.T) {
	data := rowData(1, 5, []float64{1, 1, 1, 5, 5})
	ranges := []Range{{0, 2}, {2, 4}}

	ev := newTestEvaluator(data, ranges, 1, 0, 0, pathSegmented)
	loss, _ := ev.eval([]float64{1, 3})
	assertFloat(t, "loss without continuity", loss, 8)
}

func TestEvaluatorSinglePathIgnoresContinuity(t *testing.T) {
	data := rowData(1, 3, []float64{2, 2, 2})
	ranges := []Range{{0, 2}}

	ev := newTestEvaluator(data, ranges, 1, 0, 10, pathSingle)
	loss, _ := ev.eval([]float64{2})
	assertFloat(t, "single path loss", loss, 0)
}

func TestEvaluatorSimulationFailureIsInfinite(t *testing.T) {
	data := rowData(1, 5, []float64{1, 1, 1, 1, 1})
	ranges := []Range{{0, 2}, {2, 4}}

	boom := errors.New("solver blew up")
	calls := 0
	model := func(u0, p, tsteps []float64) (*mat.Dense, error) {
		calls++
		if calls > 1 {
			return nil, boom
		}
		out := mat.NewDense(1, len(tsteps), nil)
		for j := range tsteps {
			out.Set(0, j, u0[0])
		}
		return out, nil
	}

	ev := newTestEvaluator(data, ranges, 1, 0, 1, pathSegmented)
	ev.model = model
	loss, preds := ev.eval([]float64{1, 1})
	if !math.IsInf(loss, 1) {
		t.Errorf("loss = %g, want +Inf after segment failure", loss)
	}
	if preds[1] != nil {
		t.Errorf("failed segment should have nil prediction, got %v", preds[1])
	}
}

func TestEvaluatorNaNBecomesInfinite(t *testing.T) {
	data := rowData(1, 3, []float64{1, 1, 1})
	model := func(u0, p, tsteps []float64) (*mat.Dense, error) {
		out := mat.NewDense(1, len(tsteps), nil)
		out.Set(0, 1, math.NaN())
		return out, nil
	}

	ev := newTestEvaluator(data, []Range{{0, 2}}, 1, 0, 0, pathSingle)
	ev.model = model
	loss, _ := ev.eval([]float64{1})
	if !math.IsInf(loss, 1) {
		t.Errorf("loss = %g, want +Inf for NaN prediction", loss)
	}
}

func TestEvaluatorWrongPredictionShape(t *testing.T) {
	data := rowData(1, 3, []float64{1, 1, 1})
	model := func(u0, p, tsteps []float64) (*mat.Dense, error) {
		return mat.NewDense(1, 1, []float64{1}), nil
	}

	ev := newTestEvaluator(data, []Range{{0, 2}}, 1, 0, 0, pathSingle)
	ev.model = model
	loss, _ := ev.eval([]float64{1})
	if !math.IsInf(loss, 1) {
		t.Errorf("loss = %g, want +Inf for truncated prediction", loss)
	}
}

func TestFitSurvivesFailingModel(t *testing.T) {
	// The optimizer keeps running on an infinite loss; the call neither
	// errors nor aborts.
	model := func(u0, p, tsteps []float64) (*mat.Dense, error) {
		return nil, errors.New("always fails")
	}
	co := &countingOptimizer{}
	tr, err := New(model, Config{Dim: 1, GroupSize: 3, Optimizers: singleStage(co, 4)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data := rowData(1, 5, []float64{1, 1, 1, 1, 1})
	res, err := tr.Fit(context.Background(), data, unitSteps(5), []float64{0.5})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !math.IsInf(res.MinLoss, 1) {
		t.Errorf("MinLoss = %g, want +Inf", res.MinLoss)
	}
	if len(res.LossHistory) != 4 {
		t.Errorf("loss history length = %d, want 4 (run must not abort)", len(res.LossHistory))
	}
}
