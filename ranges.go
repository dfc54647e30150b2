package mshoot

// Range is an inclusive, contiguous span of 0-based time-step indices.
type Range struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int { return r.Last - r.First + 1 }

// Contains reports whether index i lies inside the range.
func (r Range) Contains(i int) bool { return i >= r.First && i <= r.Last }

// shift translates the range by off indices.
func (r Range) shift(off int) Range { return Range{First: r.First + off, Last: r.Last + off} }

// BuildRanges splits a time axis of datasize steps into ordered shooting
// segments of groupSize indices each. Every segment after the first starts
// at the previous segment's last index, so consecutive segments share
// exactly one boundary index; the trailing segment may be shorter. When
// groupSize-1 >= datasize the whole axis fits in one segment and no
// segmentation happens.
//
// datasize must be positive and groupSize at least 2 below the single
// segment threshold; Trainer validates its configuration accordingly.
func BuildRanges(groupSize, datasize int) []Range {
	if groupSize-1 >= datasize {
		return []Range{{First: 0, Last: datasize - 1}}
	}

	ranges := make([]Range, 0, 1+(datasize-2)/(groupSize-1))
	for first := 0; first < datasize-1; first += groupSize - 1 {
		last := first + groupSize - 1
		if last > datasize-1 {
			last = datasize - 1
		}
		ranges = append(ranges, Range{First: first, Last: last})
	}
	return ranges
}
