// Package optimizer provides the gradient-based minimizers used by the
// mshoot training schedule.
//
// Two implementations are included:
//
//   - [Adam] performs first-order stochastic gradient descent with bias
//     correction and an optional [CosineAnnealing] learning rate schedule.
//     Gradients are computed by numerical central differences.
//
//   - [Gonum] adapts the quasi-Newton and derivative-free methods of
//     gonum.org/v1/gonum/optimize (BFGS, L-BFGS, Nelder-Mead, gradient
//     descent) to the [Optimizer] interface.
//
// Both operate on an [Objective] closure that returns the scalar loss
// together with the per-segment model predictions, so callers can observe
// predictions during training without re-simulating. A [Callback] invoked
// once per iteration may request early termination by returning true.
package optimizer
