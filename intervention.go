package epinet

// Intervention is a pluggable hook checked once per Gillespie event,
// mirroring the teacher's StopCondition.Check split between a
// predicate and its effect, but generalized from "should the run stop"
// to "should the run state change". Interventions never advance the
// simulation clock themselves; they react to the clock Step already
// advanced.
type Intervention interface {
	Apply(e *Engine) error
}

// TentTesting implements spec.md §4.6's optional extension: a periodic,
// partial-coverage testing campaign that finds and isolates infectious
// agents without altering their underlying disease progression. An
// isolated agent keeps moving through its exposed/infectious substages
// on schedule; only its non-household outgoing transmission is cut —
// household edges stay active, since a positive test isolates an agent
// from the outside world, not from the people it already lives with.
// Grounded on the teacher's StopCondition cadence-check shape
// (stop_condition.go).
type TentTesting struct {
	TestInterval float64 // clock time between test rounds
	TestFraction float64 // fraction of the population sampled per round
	Sensitivity  float64 // probability an infectious, sampled agent is caught

	nextTestClock float64
	quarantined   map[int32]bool
}

// Apply runs at most one test round per call, only once e.Clock has
// reached the next scheduled round.
func (t *TentTesting) Apply(e *Engine) error {
	if e.Clock < t.nextTestClock {
		return nil
	}
	t.nextTestClock += t.TestInterval
	if t.quarantined == nil {
		t.quarantined = make(map[int32]bool)
	}

	n := e.Pop.N()
	sampleSize := int(float64(n) * t.TestFraction)
	for k := 0; k < sampleSize; k++ {
		id := int32(e.RNG.IntN(n))
		if t.quarantined[id] {
			continue
		}
		state := e.Pop.Agents[id].State
		if state < int32(e.InfectiousStart) || state >= int32(e.RecoveredState) {
			continue
		}
		if !e.RNG.Bernoulli(t.Sensitivity) {
			continue
		}

		e.isolateNonHouseholdEdges(int(id), int(state))
		t.quarantined[id] = true
	}
	return nil
}
