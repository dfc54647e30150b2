package mshoot

import "errors"

// Sentinel errors for the mshoot package.
// Use errors.Is to check: errors.Is(err, mshoot.ErrShapeMismatch)
var (
	ErrShapeMismatch     = errors.New("mshoot: mismatched series shapes")
	ErrDimensionMismatch = errors.New("mshoot: data dimension does not match state dimension; supply initial conditions explicitly")
	ErrInvalidConfig     = errors.New("mshoot: invalid configuration")
)
