package epinet

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// sampleCumulative returns the smallest i such that c[i] > u*c[len(c)-1],
// given a non-decreasing array c and u in [0,1). Used both for state
// selection (cum_move, cum_inf) and for picking an agent proportional to
// a per-agent weight, per spec.md §4.1.
func sampleCumulative(c []float64, u float64) (int, bool) {
	if len(c) == 0 {
		return 0, false
	}
	target := u * c[len(c)-1]
	i := sort.Search(len(c), func(i int) bool { return c[i] > target })
	if i >= len(c) {
		return 0, false
	}
	return i, true
}

// searchCumulativeRaw returns the smallest i such that c[i] > target,
// given a non-decreasing array c. Unlike sampleCumulative it does not
// rescale target by c's last element: the Gillespie engine's cum_move
// and cum_inf searches compare against an already-absolute target
// (spec.md §4.5 steps "Let target ← Σ_move·U₂" / "Let target ←
// U₂·Λ−Σ_move"), not a [0,1) fraction.
func searchCumulativeRaw(c []float64, target float64) (int, bool) {
	if len(c) == 0 {
		return 0, false
	}
	i := sort.Search(len(c), func(i int) bool { return c[i] > target })
	if i >= len(c) {
		return 0, false
	}
	return i, true
}

// jointMatrix is a nonnegative square matrix normalized (conceptually) to
// sum to 1, used for age-pair selection in the work/other edge generator.
type jointMatrix struct {
	rows    [][]float64 // raw nonnegative weights
	rowCum  [][]float64 // per-row cumulative sums
	rowTot  []float64   // per-row totals
	colCum  []float64   // cumulative of row totals
	colTot  float64     // sum of all entries
	numRows int
}

// newJointMatrix builds cumulative search structures over m once, during
// initialization, so sample never reconstructs them in the hot
// loop (per spec.md §9's "Weighted random choice" note).
func newJointMatrix(m [][]float64) (*jointMatrix, error) {
	n := len(m)
	jm := &jointMatrix{
		rows:    m,
		rowCum:  make([][]float64, n),
		rowTot:  make([]float64, n),
		colCum:  make([]float64, n),
		numRows: n,
	}
	running := 0.0
	for i, row := range m {
		cum := make([]float64, len(row))
		rowSum := 0.0
		for j, v := range row {
			if v < 0 {
				return nil, ErrInvalidDistribution
			}
			rowSum += v
			cum[j] = rowSum
		}
		jm.rowCum[i] = cum
		jm.rowTot[i] = rowSum
		running += rowSum
		jm.colCum[i] = running
	}
	jm.colTot = running
	if jm.colTot <= 0 {
		return nil, ErrInvalidDistribution
	}
	return jm, nil
}

// sample draws (i,j) with probability M[i,j]/ΣM using two
// independent uniforms and a two-dimensional cumulative search, per
// spec.md §4.1.
func (jm *jointMatrix) sample(u1, u2 float64) (i, j int, ok bool) {
	i, ok = sampleCumulative(jm.colCum, u1)
	if !ok {
		return 0, 0, false
	}
	row := jm.rowCum[i]
	if len(row) == 0 || jm.rowTot[i] <= 0 {
		return 0, 0, false
	}
	j, ok = sampleCumulative(row, u2)
	return i, j, ok
}

// cumulativeWeights builds a prefix-sum array over w, for use with
// sampleCumulative. Household placement pre-builds one for the size
// histogram and one per household size's age row, once, during
// initialization.
func cumulativeWeights(w []float64) []float64 {
	out := make([]float64, len(w))
	running := 0.0
	for i, v := range w {
		running += v
		out[i] = running
	}
	return out
}

// rngSource bundles the draws the engine needs: uniforms for
// cumulative-rate search and Gillespie timing, an exponential for the
// Δt draw, and helpers layered on math/rand for indices that aren't
// naturally expressed as a distuv draw (shuffles, uniform-int picks).
type rngSource struct {
	r   *rand.Rand
	u01 distuv.Uniform
}

// newRNGSource seeds a private RNG stream, per spec.md §6's
// "fully reproducible given identical inputs" requirement.
func newRNGSource(seed int64) *rngSource {
	r := rand.New(rand.NewSource(seed))
	return &rngSource{
		r:   r,
		u01: distuv.Uniform{Min: 0, Max: 1, Src: r},
	}
}

// Uniform01 draws U ~ Uniform[0,1).
func (s *rngSource) Uniform01() float64 {
	return s.u01.Rand()
}

// Uniform01Open draws U from the open interval (0,1), used by the
// per-agent weight draws in agent.go where a zero would make -ln(U)
// diverge. (The Δt draw goes through Exponential instead.)
func (s *rngSource) Uniform01Open() float64 {
	u := s.u01.Rand()
	for u == 0 {
		u = s.u01.Rand()
	}
	return 1 - u
}

// Exponential draws Δt ~ Exponential(rate), i.e. -ln(U)/rate, using the
// library's exponential distribution rather than hand-rolling the
// transform, per SPEC_FULL.md §11.
func (s *rngSource) Exponential(rate float64) float64 {
	return distuv.Exponential{Rate: rate, Src: s.r}.Rand()
}

// IntN draws a uniform integer in [0,n).
func (s *rngSource) IntN(n int) int {
	return s.r.Intn(n)
}

// Bernoulli reports true with probability p.
func (s *rngSource) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return distuv.Bernoulli{P: p, Src: s.r}.Rand() == 1
}

// Perm returns a random permutation of [0,n).
func (s *rngSource) Perm(n int) []int {
	return s.r.Perm(n)
}
