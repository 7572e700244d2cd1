package epinet

import "github.com/pkg/errors"

// HouseholdDistribution holds the household joint distribution inputs
// to placement (spec.md §4.2): a size histogram h[1..Kmax] and a
// conditional age distribution A[k][a] for each size k.
type HouseholdDistribution struct {
	SizeWeights []float64   // h[k], indexed 0..Kmax-1 for size k=1..Kmax
	AgeWeights  [][]float64 // A[k][a], indexed [k-1][a]
}

// MaxSize returns Kmax.
func (d *HouseholdDistribution) MaxSize() int {
	return len(d.SizeWeights)
}

// householdSampler pre-builds the cumulative search structures for
// household placement once, per spec.md §9's "do not reconstruct them"
// rule, and is reused across every household drawn during construction.
type householdSampler struct {
	sizeCum []float64   // cumulative over SizeWeights
	ageCum  [][]float64 // per size k-1, cumulative over AgeWeights[k-1]
}

// newHouseholdSampler validates and pre-builds cumulative arrays for d.
func newHouseholdSampler(d *HouseholdDistribution) (*householdSampler, error) {
	if len(d.SizeWeights) == 0 {
		return nil, errors.Wrap(ErrInvalidDistribution, "household size distribution is empty")
	}
	sizeCum := cumulativeWeights(d.SizeWeights)
	if sizeCum[len(sizeCum)-1] <= 0 {
		return nil, errors.Wrap(ErrInvalidDistribution, "household size distribution sums to zero")
	}

	ageCum := make([][]float64, len(d.AgeWeights))
	for k, weights := range d.AgeWeights {
		cum := cumulativeWeights(weights)
		if len(cum) == 0 || cum[len(cum)-1] <= 0 {
			return nil, errors.Wrapf(ErrInvalidDistribution, "household age distribution for size %d sums to zero", k+1)
		}
		ageCum[k] = cum
	}
	return &householdSampler{sizeCum: sizeCum, ageCum: ageCum}, nil
}

// drawSize samples a household size k (1-indexed).
func (hs *householdSampler) drawSize(rng *rngSource) int {
	i, ok := sampleCumulative(hs.sizeCum, rng.Uniform01())
	if !ok {
		i = len(hs.sizeCum) - 1
	}
	return i + 1
}

// drawAge samples an age bucket for a member of a size-k household.
func (hs *householdSampler) drawAge(rng *rngSource, size int) int {
	cum := hs.ageCum[size-1]
	i, ok := sampleCumulative(cum, rng.Uniform01())
	if !ok {
		i = len(cum) - 1
	}
	return i
}

// PlaceHouseholds builds households over a fresh population of exactly
// n agents, per spec.md §4.2: draws sizes and ages from dist, places
// each household at the next catalog coordinate, and fully connects
// every member pair with a household edge at rate 0. The last household
// is truncated so exactly n agents are created. Returns the population
// and the adjacency store seeded with household cliques.
func PlaceHouseholds(n int, numAges int, dist *HouseholdDistribution, coords *CoordinateCatalog, rng *rngSource) (*Population, *RaggedAdjacency, error) {
	hs, err := newHouseholdSampler(dist)
	if err != nil {
		return nil, nil, err
	}
	if n > coords.Len() {
		return nil, nil, errors.Wrapf(ErrInsufficientCoordinates, "population %d exceeds %d catalog coordinates", n, coords.Len())
	}

	pop := NewPopulation(n, numAges)
	adj := NewRaggedAdjacency(n)

	nextAgent := 0
	nextCoord := 0
	for nextAgent < n {
		drawnSize := hs.drawSize(rng)
		size := drawnSize
		if nextAgent+size > n {
			size = n - nextAgent
		}
		if nextCoord >= coords.Len() {
			return nil, nil, errors.Wrap(ErrInsufficientCoordinates, "ran out of household coordinates")
		}
		loc := coords.At(nextCoord)
		nextCoord++

		members := make([]int, size)
		for i := 0; i < size; i++ {
			id := nextAgent + i
			age := hs.drawAge(rng, drawnSize)
			pop.Agents[id].Coord = loc
			pop.assignAge(id, age)
			members[i] = id
		}
		for i := 0; i < size; i++ {
			for j := i + 1; j < size; j++ {
				adj.AddBiEdge(members[i], members[j], EdgeHousehold)
			}
		}
		nextAgent += size
	}
	return pop, adj, nil
}
