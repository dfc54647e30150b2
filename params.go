package mshoot

// layout fixes the flattened parameter vector convention for one training
// call: dim·nSeg segment initial conditions followed by nParams shared
// model parameters. It is re-derived whenever the segmentation changes.
type layout struct {
	dim, nSeg, nParams int
}

// total returns the length of a vector obeying the layout.
func (l layout) total() int { return l.dim*l.nSeg + l.nParams }

// split returns views of the initial-condition block and the shared
// parameter block of x.
func (l layout) split(x []float64) (u0s, p []float64) {
	return x[:l.dim*l.nSeg], x[l.dim*l.nSeg:]
}
