package tracker

// Region is a detected window and its confidence
type Region struct {
	Rect       Rect
	Confidence float64
	// Connections is the number of overlapping detections suppressed by it
	Connections int
}

// NonMaximalSuppression reduces a set of overlapping detections to the
// detections which are local maxima of confidence
type NonMaximalSuppression struct {
	// connectOverlap is the overlap at which two regions are neighbours
	connectOverlap float64
	// maximum marks the regions still considered local maxima
	maximum []bool
	// connections counts the neighbours of each region
	connections []int
}

// NewNonMaximalSuppression returns a suppressor connecting regions with an
// overlap of at least connectOverlap
func NewNonMaximalSuppression(connectOverlap float64) *NonMaximalSuppression {
	return &NonMaximalSuppression{
		connectOverlap: connectOverlap,
	}
}

// Process appends to out every region of in which has a higher confidence
// than all of its neighbours and returns the extended slice
func (n *NonMaximalSuppression) Process(in []Region, out []Region) []Region {

	if cap(n.maximum) < len(in) {
		n.maximum = make([]bool, len(in))
		n.connections = make([]int, len(in))
	}

	n.maximum = n.maximum[:len(in)]
	n.connections = n.connections[:len(in)]

	for i := range n.maximum {
		n.maximum[i] = true
		n.connections[i] = 0
	}

	for i := range in {
		ri := in[i].Rect.Float()

		for j := i + 1; j < len(in); j++ {

			if ri.Overlap(in[j].Rect.Float()) < n.connectOverlap {
				continue
			}

			n.connections[i]++
			n.connections[j]++

			switch {
			case in[i].Confidence > in[j].Confidence:
				n.maximum[j] = false
			case in[i].Confidence < in[j].Confidence:
				n.maximum[i] = false
			default:
				n.maximum[i] = false
				n.maximum[j] = false
			}
		}
	}

	for i, r := range in {
		if !n.maximum[i] {
			continue
		}

		out = append(out, Region{
			Rect:        r.Rect,
			Confidence:  r.Confidence,
			Connections: n.connections[i],
		})
	}

	return out
}
