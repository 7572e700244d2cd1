package epinet

import (
	"math"

	"github.com/pkg/errors"
)

// SeedMode selects how initial infections are distributed across the
// population, per spec.md §4.4.
type SeedMode int

const (
	// SeedRandom scatters seed infections uniformly across the whole
	// population, independent of the contact network.
	SeedRandom SeedMode = iota
	// SeedCluster picks one anchor agent, then accepts additional
	// candidates with probability that decays with geographic distance
	// from the anchor, modeling an outbreak that starts in one locale
	// rather than arriving simultaneously and independently everywhere.
	// Grounded on original_source/src/simulation_v1.py's
	// make_initial_infections, which seeds a single index case and
	// grows outward from it.
	SeedCluster
)

// SeedConfig parameterizes initial infection seeding. RhoSeed/RhoScale
// are only consulted by SeedCluster.
type SeedConfig struct {
	Mode  SeedMode
	Count int

	// RhoSeed is the distance-decay rate in the SeedCluster acceptance
	// kernel exp(−RhoSeed·distance/RhoScale), per spec.md §4.4.
	RhoSeed float64
	// RhoScale is the characteristic distance (km) in that kernel.
	RhoScale float64
}

// Seed places cfg.Count agents according to cfg.Mode. Each seeded
// agent's initial substate is drawn uniformly from the non-infectious
// exposed range {0..NumExposed-1} (or forced to 0 when NumExposed is 0,
// meaning state 0 is itself the first infectious substage), per
// spec.md §4.4: "Seeds are always placed in non-infectious substates to
// avoid spurious infections at t=0." Must be called before Run, and
// before any other mutation of the engine's disease state.
func Seed(e *Engine, cfg SeedConfig) error {
	if cfg.Count <= 0 {
		return errors.Errorf("seed count must be positive, got %d", cfg.Count)
	}
	if cfg.Count > e.Pop.N() {
		return errors.Errorf("seed count %d exceeds population %d", cfg.Count, e.Pop.N())
	}
	switch cfg.Mode {
	case SeedRandom:
		return seedRandom(e, cfg)
	case SeedCluster:
		return seedCluster(e, cfg)
	default:
		return errors.Errorf("unknown seed mode %d", cfg.Mode)
	}
}

// randomSeedState draws a uniformly-random non-infectious exposed
// substate for one newly-seeded agent (original_source/src/
// simulation_v1.py: new_state = np.random.randint(0, N_infectious_states),
// i.e. a draw over the stages strictly before infectiousness).
func randomSeedState(e *Engine) int {
	if e.NumExposed <= 0 {
		return 0
	}
	return e.RNG.IntN(e.NumExposed)
}

// seedRandom draws cfg.Count distinct agents uniformly via a random
// permutation and seeds each independently with its own drawn substate.
func seedRandom(e *Engine, cfg SeedConfig) error {
	perm := e.RNG.Perm(e.Pop.N())
	for _, id := range perm[:cfg.Count] {
		e.SeedAgent(id, randomSeedState(e))
	}
	return nil
}

// seedCluster picks one random anchor, then sweeps the rest of the
// population in random order, accepting each candidate b with
// probability exp(−RhoSeed·distance(anchor,b)/RhoScale), per spec.md
// §4.4's "seeded cluster" variant — a geographic distance kernel, not a
// contact-network traversal. If fewer than cfg.Count candidates are
// accepted in one pass (a cold kernel, or a small/sparse population),
// the remaining slots are filled from whatever is left over, in the
// same random order, so Count is always honored.
func seedCluster(e *Engine, cfg SeedConfig) error {
	n := e.Pop.N()
	perm := e.RNG.Perm(n)

	anchor := int32(perm[0])
	anchorCoord := e.Pop.Agents[anchor].Coord
	chosen := make(map[int32]bool, cfg.Count)
	chosen[anchor] = true
	order := []int32{anchor}

	for _, p := range perm[1:] {
		if len(order) >= cfg.Count {
			break
		}
		candidate := int32(p)
		d := Distance(anchorCoord, e.Pop.Agents[candidate].Coord)
		accept := cfg.RhoScale <= 0 || e.RNG.Uniform01() < math.Exp(-cfg.RhoSeed*d/cfg.RhoScale)
		if !accept {
			continue
		}
		chosen[candidate] = true
		order = append(order, candidate)
	}

	if len(order) < cfg.Count {
		for _, p := range perm {
			if len(order) >= cfg.Count {
				break
			}
			candidate := int32(p)
			if !chosen[candidate] {
				chosen[candidate] = true
				order = append(order, candidate)
			}
		}
	}

	for _, id := range order[:cfg.Count] {
		e.SeedAgent(int(id), randomSeedState(e))
	}
	return nil
}
