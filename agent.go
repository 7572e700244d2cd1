package epinet

import "math"

// StateSusceptible is the sentinel disease-state value for an agent
// that has never been infected, per spec.md §3.
const StateSusceptible = int32(-1)

// Agent is one individual in the population, per spec.md §3. Age and
// coordinate are immutable after placement; ConnectionWeight and
// InfectionWeight are sampled once at initialization; State is the only
// field the Gillespie engine mutates during a run.
type Agent struct {
	AgeBucket        int
	Coord            Coordinate
	ConnectionWeight float64
	InfectionWeight  float64
	State            int32
}

// IsSusceptible reports whether the agent has never been infected.
func (a *Agent) IsSusceptible() bool {
	return a.State == StateSusceptible
}

// sampleConnectionWeight draws an agent's extroversion bias: with
// probability sigmaMu a heavier-tailed draw, otherwise a flat value.
// Grounded on original_source/src/simulation_v1.py's
// initialize_connections_and_rates.
func sampleConnectionWeight(rng *rngSource, sigmaMu float64) float64 {
	if rng.Uniform01() < sigmaMu {
		return 0.1 - math.Log(rng.Uniform01Open())
	}
	return 1.1
}

// sampleInfectionWeight draws an agent's per-edge emission rate while
// infectious: with probability sigmaBeta an exponential-tailed draw
// scaled by beta, otherwise the flat rate beta. Grounded on the same
// source as sampleConnectionWeight.
func sampleInfectionWeight(rng *rngSource, beta, sigmaBeta float64) float64 {
	if rng.Uniform01() < sigmaBeta {
		return -math.Log(rng.Uniform01Open()) * beta
	}
	return beta
}

// Population owns the dense agent table and the per-age-bucket indices
// built during placement (spec.md §4.2's counter_ages /
// agents_in_age_group outputs).
type Population struct {
	Agents       []Agent
	AgeCounts    []int
	AgeBuckets   [][]int32 // agent indices by age bucket
	NumAgeBuckets int
}

// NewPopulation allocates an empty population of size n with numAges
// age buckets.
func NewPopulation(n, numAges int) *Population {
	return &Population{
		Agents:        make([]Agent, n),
		AgeCounts:     make([]int, numAges),
		AgeBuckets:    make([][]int32, numAges),
		NumAgeBuckets: numAges,
	}
}

// assignAge records agent id's age bucket in the census and per-age
// index lists.
func (p *Population) assignAge(id, age int) {
	p.Agents[id].AgeBucket = age
	p.AgeCounts[age]++
	p.AgeBuckets[age] = append(p.AgeBuckets[age], int32(id))
}

// N returns the population size.
func (p *Population) N() int {
	return len(p.Agents)
}
