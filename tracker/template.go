package tracker

import (
	"math"

	"github.com/swdee/go-tld/imgproc"
	"gonum.org/v1/gonum/floats"
)

const (
	// templateWidth is the number of samples along each side of a template
	templateWidth = 15
	// duplicateDistance is the distance below which a new template is
	// considered a copy of an existing one
	duplicateDistance = 0.05
	// flatStd is the standard deviation at or below which a template is
	// treated as having no variation
	flatStd = 1e-9
)

// NccDescriptor is a mean subtracted grid of intensity samples of a window
type NccDescriptor struct {
	// Value holds templateWidth*templateWidth zero mean samples in row order
	Value []float64
	// Std is the standard deviation of the samples
	Std float64
}

// TemplateMatching holds positive and negative example templates of the
// target and scores windows by their similarity to each
type TemplateMatching struct {
	img       *imgproc.Gray
	positives []*NccDescriptor
	negatives []*NccDescriptor
	pool      *recordPool[NccDescriptor]
	// query is scratch storage for the descriptor of scored windows
	query *NccDescriptor
}

func newNccDescriptor() *NccDescriptor {
	return &NccDescriptor{
		Value: make([]float64, templateWidth*templateWidth),
	}
}

// NewTemplateMatching returns a template matcher with no examples
func NewTemplateMatching() *TemplateMatching {
	return &TemplateMatching{
		pool:  newRecordPool(newNccDescriptor, nil),
		query: newNccDescriptor(),
	}
}

// SetImage sets the image windows are sampled from
func (t *TemplateMatching) SetImage(img *imgproc.Gray) {
	t.img = img
}

// Reset discards all templates.  Their buffers are kept for reuse
func (t *TemplateMatching) Reset() {

	for _, d := range t.positives {
		t.pool.Put(d)
	}

	for _, d := range t.negatives {
		t.pool.Put(d)
	}

	t.positives = t.positives[:0]
	t.negatives = t.negatives[:0]
}

// Positives returns the number of positive templates
func (t *TemplateMatching) Positives() int {
	return len(t.positives)
}

// Negatives returns the number of negative templates
func (t *TemplateMatching) Negatives() int {
	return len(t.negatives)
}

// ComputeNccDescriptor samples a templateWidth square grid spread evenly over
// r into desc
func (t *TemplateMatching) ComputeNccDescriptor(r Rect, desc *NccDescriptor) {

	dx := float64(r.Width()-1) / (templateWidth - 1)
	dy := float64(r.Height()-1) / (templateWidth - 1)

	i := 0

	for y := 0; y < templateWidth; y++ {
		sy := float64(r.Y0) + float64(y)*dy

		for x := 0; x < templateWidth; x++ {
			desc.Value[i] = t.img.Bilinear(float64(r.X0)+float64(x)*dx, sy)
			i++
		}
	}

	n := float64(len(desc.Value))
	floats.AddConst(-floats.Sum(desc.Value)/n, desc.Value)
	desc.Std = math.Sqrt(floats.Dot(desc.Value, desc.Value) / n)
}

// Ncc returns the normalised cross correlation of two descriptors in the
// range [-1,1].  A descriptor without variation has zero similarity to
// everything
func Ncc(a, b *NccDescriptor) float64 {

	if a.Std <= flatStd || b.Std <= flatStd {
		return 0
	}

	n := float64(len(a.Value))

	return floats.Dot(a.Value, b.Value) / (n * a.Std * b.Std)
}

// distance returns 1 - 0.5*(maxNCC+1) where maxNCC is the best match of
// query in set.  An empty set is at distance 1
func distance(query *NccDescriptor, set []*NccDescriptor) float64 {

	best := -1.0

	for _, d := range set {
		if ncc := Ncc(query, d); ncc > best {
			best = ncc
		}
	}

	return 1 - 0.5*(best+1)
}

// ComputeConfidence scores window r in the range [0,1], higher values are more
// like the positive templates
func (t *TemplateMatching) ComputeConfidence(r Rect) float64 {

	t.ComputeNccDescriptor(r, t.query)

	if t.query.Std <= flatStd {
		return 0
	}

	return t.confidence(t.query)
}

func (t *TemplateMatching) confidence(desc *NccDescriptor) float64 {

	switch {
	case len(t.positives) > 0 && len(t.negatives) > 0:
		distP := distance(desc, t.positives)
		distN := distance(desc, t.negatives)

		if distP+distN == 0 {
			return 0
		}

		return distN / (distN + distP)

	case len(t.positives) > 0:
		return 1 - distance(desc, t.positives)

	case len(t.negatives) > 0:
		return distance(desc, t.negatives)
	}

	return 0
}

// AddDescriptor adds the template of window r to the positive or negative
// set.  Templates without variation and near duplicates are discarded, for
// negatives that includes templates close to a positive one.  Returns true
// if the template was stored
func (t *TemplateMatching) AddDescriptor(positive bool, r Rect) bool {

	desc := t.pool.Get()
	t.ComputeNccDescriptor(r, desc)

	if desc.Std <= flatStd {
		t.pool.Put(desc)
		return false
	}

	if positive {
		if distance(desc, t.positives) < duplicateDistance {
			t.pool.Put(desc)
			return false
		}

		t.positives = append(t.positives, desc)
		return true
	}

	if distance(desc, t.negatives) < duplicateDistance ||
		distance(desc, t.positives) < duplicateDistance {
		t.pool.Put(desc)
		return false
	}

	t.negatives = append(t.negatives, desc)
	return true
}
