// Package pca reduces high-dimensional feature vectors onto a smaller
// trained basis so comparisons stay cheap.
//
// The eigenpairs of the covariance matrix are extracted with power
// iteration plus deflation. That method is biased when eigenvalues are
// close in magnitude, which is acceptable here: the basis feeds retrieval,
// not exact spectral analysis.
package pca

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNotTrained is returned by Transform before a successful Train.
	ErrNotTrained = errors.New("pca: not trained")

	// ErrDimensionMismatch is returned when a vector's length does not
	// match the trained dimension.
	ErrDimensionMismatch = errors.New("pca: dimension mismatch")

	// ErrInsufficientData is returned when Train receives fewer than
	// MinTrainingVectors vectors.
	ErrInsufficientData = errors.New("pca: insufficient training data")
)

// MinTrainingVectors is the documented minimum batch size for Train.
const MinTrainingVectors = 5

const (
	convergenceTol     = 1e-6
	maxPowerIterations = 100
	stdDevGuard        = 1e-10
)

// Options controls preprocessing and the trained basis size.
type Options struct {
	// Components is the target dimension k. Values <= 0 or above the
	// input dimension are clamped to the input dimension.
	Components int

	// Normalize rescales each dimension to unit range before training.
	Normalize bool

	// Standardize divides each dimension by its standard deviation,
	// guarded against near-zero deviations.
	Standardize bool

	// Seed drives the random initialization of power iteration. Zero
	// selects a fixed default so runs are reproducible.
	Seed int64
}

// Reducer is a PCA dimensionality reducer. It is created untrained,
// trained once from a batch of vectors and then used for Transform calls
// until explicitly retrained. Not safe for concurrent mutation.
type Reducer struct {
	opts Options

	trained    bool
	dim        int
	mean       []float64
	rangeScale []float64 // nil unless Normalize
	stdScale   []float64 // nil unless Standardize

	components  [][]float64 // k rows of length dim
	eigenvalues []float64
}

// NewReducer returns an untrained reducer.
func NewReducer(opts Options) *Reducer {
	return &Reducer{opts: opts}
}

// Trained reports whether Train has completed successfully.
func (r *Reducer) Trained() bool { return r.trained }

// Dim returns the trained input dimension, or 0 if untrained.
func (r *Reducer) Dim() int { return r.dim }

// Components returns the number of trained basis vectors.
func (r *Reducer) Components() int { return len(r.components) }

// Eigenvalues returns the eigenvalues of the trained basis, ordered by
// descending magnitude.
func (r *Reducer) Eigenvalues() []float64 {
	out := make([]float64, len(r.eigenvalues))
	copy(out, r.eigenvalues)
	return out
}

// Train fits the transform from a batch of vectors. Fewer than
// MinTrainingVectors vectors or inconsistent dimensions leave the reducer
// untrained. Retraining replaces the previous basis entirely.
func (r *Reducer) Train(vectors [][]float64) error {
	if len(vectors) < MinTrainingVectors {
		return ErrInsufficientData
	}
	dim := len(vectors[0])
	if dim == 0 {
		return ErrDimensionMismatch
	}
	for _, v := range vectors {
		if len(v) != dim {
			return ErrDimensionMismatch
		}
	}

	n := len(vectors)
	k := r.opts.Components
	if k <= 0 || k > dim {
		k = dim
	}

	// Per-dimension statistics via gonum; the column buffer is reused.
	mean := make([]float64, dim)
	col := make([]float64, n)
	var rangeScale, stdScale []float64
	if r.opts.Normalize {
		rangeScale = make([]float64, dim)
	}
	if r.opts.Standardize {
		stdScale = make([]float64, dim)
	}
	for j := 0; j < dim; j++ {
		for i, v := range vectors {
			col[i] = v[j]
		}
		mean[j] = stat.Mean(col, nil)
		if rangeScale != nil {
			lo, hi := col[0], col[0]
			for _, v := range col {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			if span := hi - lo; span > stdDevGuard {
				rangeScale[j] = 1 / span
			} else {
				rangeScale[j] = 1
			}
		}
		if stdScale != nil {
			if sd := stat.StdDev(col, nil); sd > stdDevGuard {
				stdScale[j] = 1 / sd
			} else {
				stdScale[j] = 1
			}
		}
	}

	// Preprocess into an n x dim matrix: center, then scale.
	data := make([]float64, n*dim)
	for i, v := range vectors {
		for j := 0; j < dim; j++ {
			x := v[j] - mean[j]
			if rangeScale != nil {
				x *= rangeScale[j]
			}
			if stdScale != nil {
				x *= stdScale[j]
			}
			data[i*dim+j] = x
		}
	}
	x := mat.NewDense(n, dim, data)

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	eigenvalues, components := topEigenpairs(&cov, k, r.opts.Seed)

	r.trained = true
	r.dim = dim
	r.mean = mean
	r.rangeScale = rangeScale
	r.stdScale = stdScale
	r.components = components
	r.eigenvalues = eigenvalues
	return nil
}

// Transform projects a vector through the trained basis.
func (r *Reducer) Transform(vector []float64) ([]float64, error) {
	if !r.trained {
		return nil, ErrNotTrained
	}
	if len(vector) != r.dim {
		return nil, ErrDimensionMismatch
	}

	centered := make([]float64, r.dim)
	for j := range vector {
		x := vector[j] - r.mean[j]
		if r.rangeScale != nil {
			x *= r.rangeScale[j]
		}
		if r.stdScale != nil {
			x *= r.stdScale[j]
		}
		centered[j] = x
	}

	out := make([]float64, len(r.components))
	for i, comp := range r.components {
		var dot float64
		for j := range comp {
			dot += comp[j] * centered[j]
		}
		out[i] = dot
	}
	return out, nil
}

// TransformBatch projects several vectors; it fails on the first invalid
// vector.
func (r *Reducer) TransformBatch(vectors [][]float64) ([][]float64, error) {
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		reduced, err := r.Transform(v)
		if err != nil {
			return nil, err
		}
		out[i] = reduced
	}
	return out, nil
}

type eigenpair struct {
	value  float64
	vector []float64
}

// topEigenpairs extracts k eigenpairs of the symmetric matrix with power
// iteration, deflating each found pair before extracting the next. Pairs
// are returned sorted by descending |eigenvalue|.
func topEigenpairs(cov *mat.SymDense, k int, seed int64) ([]float64, [][]float64) {
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	dim := cov.SymmetricDim()
	work := mat.NewDense(dim, dim, nil)
	work.Copy(cov)

	pairs := make([]eigenpair, 0, k)
	for c := 0; c < k; c++ {
		v := randomUnitVector(dim, rng)

		for iter := 0; iter < maxPowerIterations; iter++ {
			next := mat.NewVecDense(dim, nil)
			next.MulVec(work, v)

			norm := mat.Norm(next, 2)
			if norm < stdDevGuard {
				// Matrix fully deflated; remaining eigenvalues are zero.
				break
			}
			next.ScaleVec(1/norm, next)

			var delta float64
			for i := 0; i < dim; i++ {
				if d := math.Abs(next.AtVec(i) - v.AtVec(i)); d > delta {
					delta = d
				}
			}
			v = next
			if delta < convergenceTol {
				break
			}
		}

		// Eigenvalue as the ratio (A v)_j / v_j at the dominant component.
		av := mat.NewVecDense(dim, nil)
		av.MulVec(work, v)
		j := 0
		for i := 1; i < dim; i++ {
			if math.Abs(v.AtVec(i)) > math.Abs(v.AtVec(j)) {
				j = i
			}
		}
		var lambda float64
		if math.Abs(v.AtVec(j)) > stdDevGuard {
			lambda = av.AtVec(j) / v.AtVec(j)
		}

		vec := make([]float64, dim)
		for i := 0; i < dim; i++ {
			vec[i] = v.AtVec(i)
		}
		pairs = append(pairs, eigenpair{value: lambda, vector: vec})

		// Deflate: A -= lambda * v * v^T.
		var outer mat.Dense
		outer.Outer(lambda, v, v)
		work.Sub(work, &outer)
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].value) > math.Abs(pairs[j].value)
	})

	values := make([]float64, len(pairs))
	vectors := make([][]float64, len(pairs))
	for i, p := range pairs {
		values[i] = p.value
		vectors[i] = p.vector
	}
	return values, vectors
}

func randomUnitVector(dim int, rng *rand.Rand) *mat.VecDense {
	v := mat.NewVecDense(dim, nil)
	for {
		for i := 0; i < dim; i++ {
			v.SetVec(i, rng.Float64()*2-1)
		}
		if norm := mat.Norm(v, 2); norm > stdDevGuard {
			v.ScaleVec(1/norm, v)
			return v
		}
	}
}
