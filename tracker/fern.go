package tracker

import (
	"math/rand"

	"github.com/swdee/go-tld/imgproc"
)

// renormalizeLimit is the accumulated count at which fern counters are halved
const renormalizeLimit = 0x0fffffff

// fern is a set of pixel comparisons.  Point coordinates are fractions of the
// window width and height in the range [0,1]
type fern struct {
	a []imgproc.Point
	b []imgproc.Point
}

// FernFeature holds the number of times a fern value was observed on the
// target and on the background
type FernFeature struct {
	NumP int32
	NumN int32
	// Posterior is NumP/(NumP+NumN) as of the last increment
	Posterior float64
}

func (f *FernFeature) incrementP() {
	f.NumP++
	f.computePosterior()
}

func (f *FernFeature) incrementN() {
	f.NumN++
	f.computePosterior()
}

func (f *FernFeature) computePosterior() {
	f.Posterior = float64(f.NumP) / float64(f.NumP+f.NumN)
}

// halve divides a counter by two rounding up so an observed count never
// drops to zero
func halve(v int32) int32 {
	return v - v/2
}

// FernClassifier is an ensemble of random ferns along with the positive and
// negative statistics learned for each fern value
type FernClassifier struct {
	img   *imgproc.Gray
	ferns []fern
	// features maps each fern value to its learned statistics, one map per fern
	features []map[uint32]*FernFeature
	pool     *recordPool[FernFeature]
	rnd      *rand.Rand
	// numLearnNoisy is the number of extra noisy samples learned per
	// positive update
	numLearnNoisy int
	// noise is the amplitude of the intensity noise of noisy samples
	noise float64
}

// NewFernClassifier creates numFerns random ferns of fernSize comparisons
// each using a PRNG seeded with seed
func NewFernClassifier(seed int64, numFerns, fernSize, numLearnNoisy int,
	noise float64) *FernClassifier {

	f := &FernClassifier{
		ferns:    make([]fern, numFerns),
		features: make([]map[uint32]*FernFeature, numFerns),
		pool: newRecordPool(
			func() *FernFeature { return &FernFeature{} },
			func(ff *FernFeature) { *ff = FernFeature{} },
		),
		rnd:           rand.New(rand.NewSource(seed)),
		numLearnNoisy: numLearnNoisy,
		noise:         noise,
	}

	for i := range f.ferns {
		fn := fern{
			a: make([]imgproc.Point, fernSize),
			b: make([]imgproc.Point, fernSize),
		}

		for j := 0; j < fernSize; j++ {
			fn.a[j] = imgproc.Point{X: f.rnd.Float64(), Y: f.rnd.Float64()}
			fn.b[j] = imgproc.Point{X: f.rnd.Float64(), Y: f.rnd.Float64()}
		}

		f.ferns[i] = fn
		f.features[i] = make(map[uint32]*FernFeature)
	}

	return f
}

// SetImage sets the image windows are sampled from
func (f *FernClassifier) SetImage(img *imgproc.Gray) {
	f.img = img
}

// NumFerns returns the number of ferns in the ensemble
func (f *FernClassifier) NumFerns() int {
	return len(f.ferns)
}

// Reset discards everything learned, the ferns themselves are kept
func (f *FernClassifier) Reset() {
	for _, m := range f.features {
		for value, feat := range m {
			f.pool.Put(feat)
			delete(m, value)
		}
	}
}

// samplePoint converts a fractional fern coordinate to image coordinates
// inside r
func samplePoint(r Rect, p imgproc.Point) (float64, float64) {
	return float64(r.X0) + p.X*float64(r.Width()-1),
		float64(r.Y0) + p.Y*float64(r.Height()-1)
}

// computeFernValue returns the fern value of window r.  Bit i is set when
// sample a[i] is darker than sample b[i], the first comparison is the most
// significant bit
func (f *FernClassifier) computeFernValue(r Rect, fn *fern) uint32 {

	var value uint32

	for i := range fn.a {
		ax, ay := samplePoint(r, fn.a[i])
		bx, by := samplePoint(r, fn.b[i])

		value <<= 1

		if f.img.Bilinear(ax, ay) < f.img.Bilinear(bx, by) {
			value |= 1
		}
	}

	return value
}

// computeFernValueNoisy is computeFernValue with uniform noise added to each
// intensity sample
func (f *FernClassifier) computeFernValueNoisy(r Rect, fn *fern) uint32 {

	var value uint32

	for i := range fn.a {
		ax, ay := samplePoint(r, fn.a[i])
		bx, by := samplePoint(r, fn.b[i])

		va := f.img.Bilinear(ax, ay) + f.noise*(2*f.rnd.Float64()-1)
		vb := f.img.Bilinear(bx, by) + f.noise*(2*f.rnd.Float64()-1)

		value <<= 1

		if va < vb {
			value |= 1
		}
	}

	return value
}

// lookupOrCreate returns the feature of a fern value, creating it if the value
// has not been seen before
func (f *FernClassifier) lookupOrCreate(fernIdx int, value uint32) *FernFeature {

	feat, ok := f.features[fernIdx][value]

	if !ok {
		feat = f.pool.Get()
		f.features[fernIdx][value] = feat
	}

	return feat
}

func (f *FernClassifier) increment(fernIdx int, value uint32, positive bool) {
	feat := f.lookupOrCreate(fernIdx, value)

	if positive {
		feat.incrementP()
	} else {
		feat.incrementN()
	}
}

// UpdateFerns learns the fern values of window r as a positive or negative
// example
func (f *FernClassifier) UpdateFerns(positive bool, r Rect) {
	for i := range f.ferns {
		f.increment(i, f.computeFernValue(r, &f.ferns[i]), positive)
	}
}

// UpdateFernsNoisy learns window r and then numLearnNoisy more samples of it
// computed with intensity noise
func (f *FernClassifier) UpdateFernsNoisy(positive bool, r Rect) {

	f.UpdateFerns(positive, r)

	for n := 0; n < f.numLearnNoisy; n++ {
		for i := range f.ferns {
			f.increment(i, f.computeFernValueNoisy(r, &f.ferns[i]), positive)
		}
	}
}

// PerformTest reports whether the average posterior of window r over all
// ferns exceeds 0.5.  Values never observed contribute zero
func (f *FernClassifier) PerformTest(r Rect) bool {

	var sum float64
	half := len(f.ferns) / 2

	for i := range f.ferns {

		if i == half && half > 0 && sum <= 0 {
			// the remaining ferns can at most bring the average to 0.5
			return false
		}

		if feat, ok := f.features[i][f.computeFernValue(r, &f.ferns[i])]; ok {
			sum += feat.Posterior
		}
	}

	return sum/float64(len(f.ferns)) > 0.5
}

// LookupPN returns the sum over all ferns of the positive and negative counts
// of the values of window r
func (f *FernClassifier) LookupPN(r Rect) (sumP, sumN int64) {

	for i := range f.ferns {
		if feat, ok := f.features[i][f.computeFernValue(r, &f.ferns[i])]; ok {
			sumP += int64(feat.NumP)
			sumN += int64(feat.NumN)
		}
	}

	return sumP, sumN
}

// RenormalizeP halves every positive counter.  Posteriors are left as they
// were, the next increment of a feature recomputes its own
func (f *FernClassifier) RenormalizeP() {
	for _, m := range f.features {
		for _, feat := range m {
			feat.NumP = halve(feat.NumP)
		}
	}
}

// RenormalizeN halves every negative counter
func (f *FernClassifier) RenormalizeN() {
	for _, m := range f.features {
		for _, feat := range m {
			feat.NumN = halve(feat.NumN)
		}
	}
}

// Features returns the number of fern values with learned statistics
func (f *FernClassifier) Features() int {

	n := 0

	for _, m := range f.features {
		n += len(m)
	}

	return n
}
