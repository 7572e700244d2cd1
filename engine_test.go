package epinet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func starPopulation() (*Population, *RaggedAdjacency) {
	pop := NewPopulation(3, 1)
	for i := range pop.Agents {
		pop.Agents[i].State = StateSusceptible
	}
	pop.Agents[0].ConnectionWeight, pop.Agents[0].InfectionWeight = 1, 2
	pop.Agents[1].ConnectionWeight, pop.Agents[1].InfectionWeight = 3, 1
	pop.Agents[2].ConnectionWeight, pop.Agents[2].InfectionWeight = 5, 1

	adj := NewRaggedAdjacency(3)
	adj.AddBiEdge(0, 1, EdgeOther)
	adj.AddBiEdge(0, 2, EdgeOther)
	return pop, adj
}

func TestActivateEdgesForNewlyInfectiousSumsRates(t *testing.T) {
	pop, adj := starPopulation()
	e := NewEngine(pop, adj, 0, 1, 0, 0.1, 1)

	total := e.activateEdgesForNewlyInfectious(0)
	assert.InDelta(t, 4, total, 1e-9) // agent 0's own infection_weight (2) on each of its 2 edges

	rate, ok := adj.RateTo(0, 1)
	require.True(t, ok)
	assert.InDelta(t, 2, rate, 1e-9)

	rate, ok = adj.RateTo(0, 2)
	require.True(t, ok)
	assert.InDelta(t, 2, rate, 1e-9)
}

func TestActivateEdgesSkipsNonSusceptibleNeighbors(t *testing.T) {
	pop, adj := starPopulation()
	pop.Agents[1].State = 0 // already infected, not a valid target
	e := NewEngine(pop, adj, 0, 1, 0, 0.1, 1)

	total := e.activateEdgesForNewlyInfectious(0)
	assert.InDelta(t, 2, total, 1e-9) // only the edge to agent 2 counts, at agent 0's infection_weight

	rate, _ := adj.RateTo(0, 1)
	assert.Equal(t, float32(0), float32(rate))
}

func TestNeutralizeIncomingEdgesZeroesReciprocalsAndRates(t *testing.T) {
	pop, _ := starPopulation()
	// Both 0 and 2 are infectious and have an active edge pointing at 1.
	adj2 := NewRaggedAdjacency(3)
	adj2.AddBiEdge(0, 1, EdgeOther)
	adj2.AddBiEdge(2, 1, EdgeOther)
	e := NewEngine(pop, adj2, 0, 1, 0, 0.1, 1)

	adj2.SetRateTo(0, 1, 4)
	adj2.SetRateTo(2, 1, 7)
	e.Rates.perAgentInfSum[0] = 4
	e.Rates.perAgentInfSum[2] = 7
	e.Rates.sigmaInf = 11
	pop.Agents[0].State = 0
	pop.Agents[2].State = 0

	e.neutralizeIncomingEdges(1)

	r, _ := adj2.RateTo(0, 1)
	assert.Equal(t, 0.0, r)
	r, _ = adj2.RateTo(2, 1)
	assert.Equal(t, 0.0, r)
	assert.InDelta(t, 0.0, e.Rates.perAgentInfSum[0], 1e-9)
	assert.InDelta(t, 0.0, e.Rates.perAgentInfSum[2], 1e-9)
	assert.InDelta(t, 0.0, e.Rates.sigmaInf, 1e-9)
}

func TestSeedAgentPlacesAndActivates(t *testing.T) {
	pop, adj := starPopulation()
	e := NewEngine(pop, adj, 0, 1, 0, 0.1, 1)

	e.SeedAgent(0, 0)
	assert.Equal(t, int32(0), pop.Agents[0].State)
	assert.True(t, e.Compartments[0].Contains(0))
	assert.InDelta(t, 0.1, e.Rates.sigmaMove, 1e-9) // one agent dwelling in state 0
	assert.InDelta(t, 4, e.Rates.sigmaInf, 1e-9)    // edges activated immediately (infectiousStart==0)
}

func TestEngineEmitsSeriesAtNTSCadenceAndFinalOnTermination(t *testing.T) {
	pop, adj := starPopulation()
	e := NewEngine(pop, adj, 0, 1, 0, 0.1, 1)
	e.term = terminationCheck{lambdaFloor: 1e-4, saturationMargin: 1, maxSteps: 10_000}
	e.NTS = 0.01
	series := NewMemorySeriesRecorder()
	e.Series = series

	e.SeedAgent(0, 0)
	outcome, err := e.Run()
	require.NoError(t, err)
	assert.NotEqual(t, OutcomeRunning, outcome)

	require.NotEmpty(t, series.Counts)
	lastClock := -1.0
	for _, row := range series.Counts {
		assert.Greater(t, row.Clock, lastClock)
		lastClock = row.Clock
		sum := 0
		for _, n := range row.Counts {
			sum += n
		}
		assert.LessOrEqual(t, sum, pop.N())
	}
	assert.Len(t, series.Final.States, pop.N())
}

func TestEngineRunTerminatesAndConservesPopulation(t *testing.T) {
	pop := uniformTestPopulation(60, 3)
	for i := range pop.Agents {
		pop.Agents[i].State = StateSusceptible
		pop.Agents[i].ConnectionWeight = 1
		pop.Agents[i].InfectionWeight = 0.8
	}
	adj := NewRaggedAdjacency(60)
	cfg := &NetworkBuildConfig{
		TargetMeanDegree: 4,
		AgeMatrixWork:    [][]float64{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
		AgeMatrixOther:   [][]float64{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
		WorkFraction:     0.5,
		Rho:              0,
		RhoScale:         1,
		EpsilonRho:       1.0,
	}
	rng := newRNGSource(99)
	require.NoError(t, BuildWorkOtherEdges(adj, pop, cfg, rng))

	e := NewEngine(pop, adj, 1, 2, 0.5, 0.5, 123)
	e.term = terminationCheck{lambdaFloor: 1e-4, saturationMargin: 2, maxSteps: 2_000_000}
	require.NoError(t, Seed(e, SeedConfig{Mode: SeedRandom, Count: 3}))

	outcome, err := e.Run()
	require.NoError(t, err)
	assert.NotEqual(t, OutcomeRunning, outcome)

	total := 0
	for _, c := range e.Compartments {
		total += c.Len()
	}
	assert.LessOrEqual(t, total, pop.N())
	assert.GreaterOrEqual(t, total, 3)
}

func TestEngineStepErrorsWhenLambdaIsZero(t *testing.T) {
	pop, adj := starPopulation()
	e := NewEngine(pop, adj, 0, 1, 0, 0.1, 1)
	// Nothing seeded: Σ_move == Σ_inf == 0.
	err := e.Step()
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestEngineOutcomeCompletedOnSaturation(t *testing.T) {
	pop, adj := starPopulation()
	e := NewEngine(pop, adj, 0, 1, 0, 0.1, 1)
	e.term = terminationCheck{lambdaFloor: 1e-4, saturationMargin: 10, maxSteps: 10}
	e.Compartments[e.RecoveredState].Add(0)
	e.Compartments[e.RecoveredState].Add(1)
	e.Compartments[e.RecoveredState].Add(2)
	// N=3, recoveredCount=3 > N-10 == -7
	assert.Equal(t, OutcomeCompleted, e.Outcome())
}
