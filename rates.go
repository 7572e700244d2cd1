package epinet

// rateState bundles the cumulative-rate bookkeeping described in
// spec.md §3's "Global rate state" and §9's "Cumulative-rate
// bookkeeping" note: Σ_move, Σ_inf, cum_move, cum_inf, and
// per_agent_inf_sum, kept atomically consistent (within the single
// simulation thread) by every mutator below. A linear array suffices
// for cum_move/cum_inf because the number of disease states is tiny;
// a Fenwick tree is a valid optimization the spec explicitly does not
// require.
//
// States are numbered 0..numExposed-1 (non-infectious exposed
// substages), numExposed..recoveredState-1 (infectious substages), and
// recoveredState itself (terminal). cum_move/cum_inf span
// 0..recoveredState inclusive.
type rateState struct {
	infectiousStart int
	recoveredState  int

	moveRate []float64 // per-state dwell exit rate, length recoveredState+1
	cumMove  []float64 // prefix sums of state-progression rate, same length
	cumInf   []float64 // prefix sums of infection emission rate, same length

	sigmaMove float64
	sigmaInf  float64

	perAgentInfSum []float64 // length N; nonzero only while infectious
}

// newRateState allocates rate bookkeeping for n agents with the given
// substage counts and per-substage dwell rates.
func newRateState(n, numExposed, numInfectious int, lambdaE, lambdaI float64) *rateState {
	recoveredState := numExposed + numInfectious
	numStates := recoveredState + 1

	moveRate := make([]float64, numStates)
	for s := 0; s < numExposed; s++ {
		moveRate[s] = lambdaE
	}
	for s := numExposed; s < recoveredState; s++ {
		moveRate[s] = lambdaI
	}
	// moveRate[recoveredState] stays 0: recovered is terminal.

	return &rateState{
		infectiousStart: numExposed,
		recoveredState:  recoveredState,
		moveRate:        moveRate,
		cumMove:         make([]float64, numStates),
		cumInf:          make([]float64, numStates),
		perAgentInfSum:  make([]float64, n),
	}
}

// addToSuffix adds delta to cum[from:], the "suffix add" operation that
// keeps a prefix-sum array consistent when a per-state total changes at
// state `from` and above.
func addToSuffix(cum []float64, from int, delta float64) {
	if delta == 0 {
		return
	}
	for i := from; i < len(cum); i++ {
		cum[i] += delta
	}
}

// Lambda returns Σ_move + Σ_inf, the total event rate.
func (rs *rateState) Lambda() float64 {
	return rs.sigmaMove + rs.sigmaInf
}

// enterState accounts for an agent newly entering `state` with no prior
// tracked state (initial seeding, or the susceptible->state-0 infection
// transition): cum_move[state:] += moveRate[state], Σ_move likewise.
func (rs *rateState) enterState(state int) {
	addToSuffix(rs.cumMove, state, rs.moveRate[state])
	rs.sigmaMove += rs.moveRate[state]
}

// progressState moves the bookkeeping for one agent from state s to
// s+1. Both the state_now single-index correction and the state_after
// suffix correction are applied, per spec.md §4.5's "Update Σ_move and
// cum_move by −move_rate[s] + move_rate[s+1]". cum_inf's matching
// correction is a single-index subtraction at s rather than a suffix op,
// by a telescoping argument: moving an
// agent along contiguous infectious substages nets to one index because
// the suffix contributions from entering and (eventually) leaving
// cancel at every index strictly between.
func (rs *rateState) progressState(agentID, s int) (newState int) {
	newState = s + 1
	delta := rs.moveRate[newState] - rs.moveRate[s]
	rs.cumMove[s] -= rs.moveRate[s]
	addToSuffix(rs.cumMove, newState, delta)
	rs.sigmaMove += delta

	rs.cumInf[s] -= rs.perAgentInfSum[agentID]
	return newState
}

// activateInfectious accounts for an agent crossing into its first
// infectious substage: totalRate (the sum of newly-activated per-edge
// rates) is added to per_agent_inf_sum, Σ_inf, and cum_inf from
// infectiousStart onward, per spec.md §4.5.
func (rs *rateState) activateInfectious(agentID int, totalRate float64) {
	if totalRate == 0 {
		return
	}
	rs.perAgentInfSum[agentID] += totalRate
	rs.sigmaInf += totalRate
	addToSuffix(rs.cumInf, rs.infectiousStart, totalRate)
}

// recoverAgent accounts for an agent transitioning into the recovered
// state: its remaining per_agent_inf_sum is removed from Σ_inf and
// cum_inf from recoveredState onward.
func (rs *rateState) recoverAgent(agentID int) {
	r := rs.perAgentInfSum[agentID]
	if r == 0 {
		return
	}
	rs.sigmaInf -= r
	addToSuffix(rs.cumInf, rs.recoveredState, -r)
	rs.perAgentInfSum[agentID] = 0
}

// removeEdgeRate accounts for a single outgoing edge of an infectious
// agent being neutralized (its susceptible endpoint became infected, or
// an intervention closed it), per invariant (I5). currentState is the
// agent's current compartment.
func (rs *rateState) removeEdgeRate(agentID int, rate float64, currentState int) {
	if rate == 0 {
		return
	}
	rs.sigmaInf -= rate
	rs.perAgentInfSum[agentID] -= rate
	addToSuffix(rs.cumInf, currentState, -rate)
}

// clampOrFail clamps small negative numerical drift in Σ_move/Σ_inf to
// 0 per spec.md §4.5, or reports a fatal invariant violation for a
// larger negative excursion.
func (rs *rateState) clampOrFail() error {
	move, ok := clampRate(rs.sigmaMove)
	if !ok {
		return errorsWrapInvariant("Σ_move", rs.sigmaMove)
	}
	rs.sigmaMove = move

	inf, ok := clampRate(rs.sigmaInf)
	if !ok {
		return errorsWrapInvariant("Σ_inf", rs.sigmaInf)
	}
	rs.sigmaInf = inf
	return nil
}
