package epinet

import "math"

// Engine holds everything a single simulation run needs: the
// population, the adjacency store, the cumulative-rate bookkeeping, and
// one compartment per disease state. An Engine is never shared between
// goroutines; spec.md §5 assigns one goroutine per run and the engine
// carries its own private RNG stream to make that safe.
type Engine struct {
	Pop *Population
	Adj *RaggedAdjacency

	Rates        *rateState
	Compartments []*compartment // indexed by state, 0..RecoveredState

	RNG *rngSource

	NumExposed      int
	NumInfectious   int
	InfectiousStart int
	RecoveredState  int

	Clock     float64
	StepCount int

	term     terminationCheck
	Recorder Recorder // optional; nil means no event trace is kept

	Series   SeriesRecorder // optional; nil means no aggregate output is kept
	NTS      float64        // sampling interval in simulated days; <= 0 disables emission
	lastTick int
}

// NewEngine builds an engine over an already-constructed population and
// adjacency store. No agents are seeded; call SeedAgent (directly or via
// seeding.go's Seed) before Run.
func NewEngine(pop *Population, adj *RaggedAdjacency, numExposed, numInfectious int, lambdaE, lambdaI float64, seed int64) *Engine {
	recoveredState := numExposed + numInfectious
	compartments := make([]*compartment, recoveredState+1)
	for i := range compartments {
		compartments[i] = newCompartment()
	}
	return &Engine{
		Pop:             pop,
		Adj:             adj,
		Rates:           newRateState(pop.N(), numExposed, numInfectious, lambdaE, lambdaI),
		Compartments:    compartments,
		RNG:             newRNGSource(seed),
		NumExposed:      numExposed,
		NumInfectious:   numInfectious,
		InfectiousStart: numExposed,
		RecoveredState:  recoveredState,
		term:            defaultTerminationCheck(),
		lastTick:        -1,
	}
}

// SeedAgent places agentID directly into disease state `state` (0-based,
// must be < RecoveredState) at initialization time: it is not yet a
// member of any compartment, and its prior state must be susceptible.
// If state falls in the infectious range, outgoing edges to susceptible
// neighbors are activated immediately, per spec.md §4.4.
func (e *Engine) SeedAgent(agentID, state int) {
	e.Rates.enterState(state)
	e.Compartments[state].Add(agentID)
	e.Pop.Agents[agentID].State = int32(state)
	if state >= e.InfectiousStart {
		total := e.activateEdgesForNewlyInfectious(agentID)
		e.Rates.activateInfectious(agentID, total)
		// activateInfectious credits cum_inf from InfectiousStart onward;
		// an agent seeded past the first infectious substage is counted
		// from its own state onward instead.
		for s := e.InfectiousStart; s < state; s++ {
			e.Rates.cumInf[s] -= total
		}
	}
}

// activateEdgesForNewlyInfectious sets the per-edge rate on every
// outgoing edge from agentID to a still-susceptible neighbor, per
// spec.md §3: the per-edge rate equals the infecting agent's own
// infection_weight while the edge is active. connection_weight never
// enters here; network construction (network_build.go) does not read it
// either, since it draws endpoints uniformly within an age bucket.
// Returns the sum of the newly-activated rates.
func (e *Engine) activateEdgesForNewlyInfectious(agentID int) float64 {
	total := 0.0
	neighbors := e.Adj.Neighbors(agentID)
	rate := e.Pop.Agents[agentID].InfectionWeight
	for pos := range neighbors {
		nb := neighbors[pos].Neighbor
		if !e.Pop.Agents[nb].IsSusceptible() {
			continue
		}
		e.Adj.SetRateAt(agentID, int32(pos), rate)
		total += rate
	}
	return total
}

// isolateNonHouseholdEdges zeroes agentID's outgoing edges to every
// neighbor except ones tagged household, so household transmission
// survives an intervention that otherwise isolates the agent (spec.md
// §4.6). currentState is the agent's current compartment, needed to
// locate the right cum_inf suffix to correct.
func (e *Engine) isolateNonHouseholdEdges(agentID, currentState int) {
	neighbors := e.Adj.Neighbors(agentID)
	total := 0.0
	for pos := range neighbors {
		if neighbors[pos].Tag == EdgeHousehold || neighbors[pos].Rate == 0 {
			continue
		}
		total += float64(neighbors[pos].Rate)
		e.Adj.SetRateAt(agentID, int32(pos), 0)
	}
	if total > 0 {
		e.Rates.removeEdgeRate(agentID, total, currentState)
	}
}

// deactivateEdgesForRecovered zeroes every outgoing edge rate of an
// agent that just recovered. Rates.recoverAgent has already removed the
// aggregate contribution from Σ_inf/cum_inf; this keeps the adjacency
// store's per-edge rates consistent with that.
func (e *Engine) deactivateEdgesForRecovered(agentID int) {
	neighbors := e.Adj.Neighbors(agentID)
	for pos := range neighbors {
		if neighbors[pos].Rate != 0 {
			e.Adj.SetRateAt(agentID, int32(pos), 0)
		}
	}
}

// neutralizeIncomingEdges implements invariant (I5): once targetID has
// just been infected, every other infectious agent's edge into it must
// stop contributing to Σ_inf, since targetID is no longer a valid
// infection target. This sweeps targetID's own neighbor list to find
// the reciprocal direction of each edge (grounded on
// original_source/src/simulation_v1.py's "step_cousin" repair, which
// walks the same reciprocal list after an infection event rather than
// scanning the whole population).
func (e *Engine) neutralizeIncomingEdges(targetID int) {
	for _, ee := range e.Adj.Neighbors(targetID) {
		neighbor := int(ee.Neighbor)
		rate, ok := e.Adj.RateTo(neighbor, targetID)
		if !ok || rate == 0 {
			continue
		}
		e.Adj.SetRateTo(neighbor, targetID, 0)
		state := int(e.Pop.Agents[neighbor].State)
		e.Rates.removeEdgeRate(neighbor, rate, state)
	}
}

// sampleWeightedAgentInState picks an agent from compartment s with
// probability proportional to its per_agent_inf_sum, given withinTarget
// in [0, cumInf[s]-cumInf[s-1]). Returns the agent id and the running
// weight total consumed by agents before it, so the caller can derive
// the leftover target for the edge-level draw.
func (e *Engine) sampleWeightedAgentInState(s int, withinTarget float64) (agentID int, consumedBefore float64, ok bool) {
	running := 0.0
	for _, id := range e.Compartments[s].Members() {
		w := e.Rates.perAgentInfSum[id]
		next := running + w
		if next > withinTarget {
			return int(id), running, true
		}
		running = next
	}
	return 0, running, false
}

// sampleWeightedEdge picks an outgoing edge of agentID proportional to
// its Rate, given leftover in [0, per_agent_inf_sum[agentID]).
func (e *Engine) sampleWeightedEdge(agentID int, leftover float64) (neighborID int, ok bool) {
	running := 0.0
	for _, ee := range e.Adj.Neighbors(agentID) {
		if ee.Rate == 0 {
			continue
		}
		running += float64(ee.Rate)
		if running > leftover {
			return int(ee.Neighbor), true
		}
	}
	return 0, false
}

// Step advances the engine by exactly one Gillespie event, per spec.md
// §4.5: draw Δt ~ Exponential(Λ), draw a uniform to select a
// state-progression or infection event weighted by cum_move/cum_inf,
// then a uniformly- or weighted-random target, and apply the
// corresponding bookkeeping update. Callers should check termination
// via Outcome before calling Step; Step itself does not check it.
func (e *Engine) Step() error {
	if err := e.Rates.clampOrFail(); err != nil {
		return err
	}
	lambda := e.Rates.Lambda()
	if lambda <= 0 {
		return errorsWrapInvariant("Λ", lambda)
	}

	e.Clock += e.RNG.Exponential(lambda)
	target := e.RNG.Uniform01() * lambda

	var stepErr error
	if target < e.Rates.sigmaMove {
		stepErr = e.stepMove(target)
	} else {
		stepErr = e.stepInfection(target - e.Rates.sigmaMove)
	}
	if stepErr != nil {
		return stepErr
	}
	return e.emitSeriesIfDue()
}

// emitSeriesIfDue implements spec.md §4.5's "Sampling output": whenever
// the clock crosses the next multiple of NTS since the last emission,
// append one fixed-width compartment-count row; every tenth tick also
// appends a full per-agent snapshot. A no-op when no SeriesRecorder is
// attached or NTS is non-positive.
func (e *Engine) emitSeriesIfDue() error {
	if e.Series == nil || e.NTS <= 0 {
		return nil
	}
	tick := int(math.Floor(e.Clock / e.NTS))
	if tick <= e.lastTick {
		return nil
	}
	e.lastTick = tick
	if err := e.Series.RecordCounts(CompartmentCounts{Clock: e.Clock, Counts: e.compartmentCounts()}); err != nil {
		return err
	}
	if tick%10 == 0 {
		if err := e.Series.RecordSnapshot(e.snapshot()); err != nil {
			return err
		}
	}
	return nil
}

// compartmentCounts returns the current fixed-width count vector, one
// entry per state 0..RecoveredState.
func (e *Engine) compartmentCounts() []int {
	counts := make([]int, e.RecoveredState+1)
	for s, c := range e.Compartments {
		counts[s] = c.Len()
	}
	return counts
}

// snapshot captures every agent's current disease state.
func (e *Engine) snapshot() Snapshot {
	states := make([]int32, e.Pop.N())
	for i := range e.Pop.Agents {
		states[i] = e.Pop.Agents[i].State
	}
	return Snapshot{Clock: e.Clock, States: states}
}

// stepMove applies a state-progression event: an agent in some state s
// advances to s+1.
func (e *Engine) stepMove(target float64) error {
	s, ok := searchCumulativeRaw(e.Rates.cumMove, target)
	if !ok {
		return errorsWrapInvariant("cum_move search", target)
	}
	if e.Compartments[s].Len() == 0 {
		return errorsWrapInvariant("cum_move compartment", float64(s))
	}
	agentID := e.Compartments[s].RandomMember(e.RNG)

	newState := e.Rates.progressState(agentID, s)
	e.Compartments[s].Remove(agentID)
	e.Compartments[newState].Add(agentID)
	e.Pop.Agents[agentID].State = int32(newState)

	switch {
	case newState == e.InfectiousStart:
		total := e.activateEdgesForNewlyInfectious(agentID)
		e.Rates.activateInfectious(agentID, total)
	case newState == e.RecoveredState:
		e.Rates.recoverAgent(agentID)
		e.deactivateEdgesForRecovered(agentID)
	}

	e.StepCount++
	if e.Recorder != nil {
		if err := e.Recorder.RecordEvent(EventRecord{Step: e.StepCount, Clock: e.Clock, Kind: "move", AgentID: agentID, State: int32(newState)}); err != nil {
			return err
		}
	}
	return nil
}

// stepInfection applies an infection event: a susceptible neighbor of
// some infectious agent becomes newly infected, entering state 0.
func (e *Engine) stepInfection(target float64) error {
	s, ok := searchCumulativeRaw(e.Rates.cumInf, target)
	if !ok {
		return errorsWrapInvariant("cum_inf search", target)
	}
	prevCum := 0.0
	if s > 0 {
		prevCum = e.Rates.cumInf[s-1]
	}
	withinTarget := target - prevCum

	agentID, consumedBefore, ok := e.sampleWeightedAgentInState(s, withinTarget)
	if !ok {
		return errorsWrapInvariant("cum_inf agent search", withinTarget)
	}
	leftover := withinTarget - consumedBefore

	neighborID, ok := e.sampleWeightedEdge(agentID, leftover)
	if !ok {
		return errorsWrapInvariant("cum_inf edge search", leftover)
	}

	e.Rates.enterState(0)
	e.Compartments[0].Add(neighborID)
	e.Pop.Agents[neighborID].State = 0
	if e.InfectiousStart == 0 {
		total := e.activateEdgesForNewlyInfectious(neighborID)
		e.Rates.activateInfectious(neighborID, total)
	}
	e.neutralizeIncomingEdges(neighborID)

	e.StepCount++
	if e.Recorder != nil {
		if err := e.Recorder.RecordEvent(EventRecord{Step: e.StepCount, Clock: e.Clock, Kind: "infection", AgentID: neighborID, State: 0}); err != nil {
			return err
		}
	}
	return nil
}

// Outcome reports the engine's current termination status without
// advancing it.
func (e *Engine) Outcome() Outcome {
	return e.term.evaluate(e.Compartments[e.RecoveredState].Len(), e.Pop.N(), e.StepCount, e.Rates.Lambda(), e.Clock)
}

// Run drives the engine forward one event at a time until a termination
// condition is met, returning the resulting Outcome. An optional set of
// interventions is checked once per event via their own cadence. On
// termination, if a SeriesRecorder is attached, the per-agent final
// state vector required by spec.md §6 is emitted before returning.
func (e *Engine) Run(interventions ...Intervention) (Outcome, error) {
	for {
		if outcome := e.Outcome(); outcome != OutcomeRunning {
			if e.Series != nil {
				if err := e.Series.RecordFinal(e.snapshot()); err != nil {
					return outcome, err
				}
			}
			return outcome, nil
		}
		if err := e.Step(); err != nil {
			return OutcomeRunning, err
		}
		for _, iv := range interventions {
			if err := iv.Apply(e); err != nil {
				return OutcomeRunning, err
			}
		}
	}
}
