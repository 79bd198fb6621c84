// Package robust estimates motion models from noisy point correspondences
package robust

import (
	"math"
	"math/rand"
	"sort"

	"github.com/swdee/go-tld/imgproc"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// AssociatedPair is a point observed in the previous frame and its location
// in the current frame
type AssociatedPair struct {
	Prev imgproc.Point
	Curr imgproc.Point
}

// ScaleTranslate is a 2D motion model with uniform scale and translation,
// p' = p*Scale + (Tx,Ty)
type ScaleTranslate struct {
	Scale float64
	Tx    float64
	Ty    float64
}

// Apply transforms p by the model
func (m ScaleTranslate) Apply(p imgproc.Point) imgproc.Point {
	return imgproc.Point{
		X: p.X*m.Scale + m.Tx,
		Y: p.Y*m.Scale + m.Ty,
	}
}

// residual2 returns the squared transfer error of a pair under the model
func (m ScaleTranslate) residual2(pair AssociatedPair) float64 {
	return m.Apply(pair.Prev).Distance2(pair.Curr)
}

// minimumPairs is the size of a minimal sample for ScaleTranslate
const minimumPairs = 2

// LeastMedianSquares fits a ScaleTranslate model by repeatedly estimating it
// from random minimal samples and keeping the hypothesis whose median
// squared residual is smallest
type LeastMedianSquares struct {
	// iterations is the number of random hypotheses evaluated
	iterations int
	rnd        *rand.Rand
	// residuals is scratch storage for the per pair errors
	residuals []float64
	// inliers holds the pairs used in the refinement step
	inliers []AssociatedPair
}

// NewLeastMedianSquares returns an estimator that evaluates iterations
// hypotheses drawn from a PRNG seeded with seed
func NewLeastMedianSquares(seed int64, iterations int) *LeastMedianSquares {
	return &LeastMedianSquares{
		iterations: max(iterations, 1),
		rnd:        rand.New(rand.NewSource(seed)),
	}
}

// Process estimates the motion model from pairs.  It returns false when
// fewer than two pairs are supplied or every sample was degenerate
func (l *LeastMedianSquares) Process(pairs []AssociatedPair) (ScaleTranslate, bool) {

	if len(pairs) < minimumPairs {
		return ScaleTranslate{}, false
	}

	best := ScaleTranslate{}
	bestMedian := math.Inf(1)

	if cap(l.residuals) < len(pairs) {
		l.residuals = make([]float64, len(pairs))
	}

	l.residuals = l.residuals[:len(pairs)]

	for iter := 0; iter < l.iterations; iter++ {

		i := l.rnd.Intn(len(pairs))
		j := l.rnd.Intn(len(pairs) - 1)

		if j >= i {
			j++
		}

		model, ok := fitMinimal(pairs[i], pairs[j])

		if !ok {
			continue
		}

		median := l.medianResidual(model, pairs)

		if median < bestMedian {
			bestMedian = median
			best = model
		}
	}

	if math.IsInf(bestMedian, 1) {
		return ScaleTranslate{}, false
	}

	return l.refine(best, bestMedian, pairs), true
}

// medianResidual returns the median squared residual of pairs under model
func (l *LeastMedianSquares) medianResidual(model ScaleTranslate,
	pairs []AssociatedPair) float64 {

	for k, pair := range pairs {
		l.residuals[k] = model.residual2(pair)
	}

	sort.Float64s(l.residuals)

	return stat.Quantile(0.5, stat.Empirical, l.residuals, nil)
}

// refine re-estimates the model by linear least squares over the pairs that
// agree with the best hypothesis
func (l *LeastMedianSquares) refine(model ScaleTranslate, median float64,
	pairs []AssociatedPair) ScaleTranslate {

	// robust standard deviation estimate from Rousseeuw and Leroy
	n := float64(len(pairs))
	sigma := 1.4826 * (1 + 5/math.Max(n-minimumPairs, 1)) * math.Sqrt(median)
	thresh := math.Max(6.25*sigma*sigma, 1e-8)

	l.inliers = l.inliers[:0]

	for _, pair := range pairs {
		if model.residual2(pair) <= thresh {
			l.inliers = append(l.inliers, pair)
		}
	}

	if len(l.inliers) < minimumPairs {
		return model
	}

	refined, ok := fitLeastSquares(l.inliers)

	if !ok {
		return model
	}

	return refined
}

// fitMinimal solves the model exactly from two correspondences
func fitMinimal(a, b AssociatedPair) (ScaleTranslate, bool) {

	dPrev := a.Prev.Distance2(b.Prev)

	if dPrev < 1e-12 {
		return ScaleTranslate{}, false
	}

	scale := math.Sqrt(a.Curr.Distance2(b.Curr) / dPrev)

	return ScaleTranslate{
		Scale: scale,
		Tx:    (a.Curr.X + b.Curr.X - scale*(a.Prev.X+b.Prev.X)) / 2,
		Ty:    (a.Curr.Y + b.Curr.Y - scale*(a.Prev.Y+b.Prev.Y)) / 2,
	}, true
}

// fitLeastSquares solves the over determined linear system
//
//	[x 1 0] [s ]   [x']
//	[y 0 1] [tx] = [y']
//	        [ty]
//
// stacked for every pair
func fitLeastSquares(pairs []AssociatedPair) (ScaleTranslate, bool) {

	rows := 2 * len(pairs)
	a := mat.NewDense(rows, 3, nil)
	b := mat.NewVecDense(rows, nil)

	for i, pair := range pairs {
		a.Set(2*i, 0, pair.Prev.X)
		a.Set(2*i, 1, 1)
		b.SetVec(2*i, pair.Curr.X)

		a.Set(2*i+1, 0, pair.Prev.Y)
		a.Set(2*i+1, 2, 1)
		b.SetVec(2*i+1, pair.Curr.Y)
	}

	var x mat.VecDense

	if err := x.SolveVec(a, b); err != nil {
		return ScaleTranslate{}, false
	}

	model := ScaleTranslate{
		Scale: x.AtVec(0),
		Tx:    x.AtVec(1),
		Ty:    x.AtVec(2),
	}

	if math.IsNaN(model.Scale) || model.Scale <= 0 {
		return ScaleTranslate{}, false
	}

	return model, true
}
