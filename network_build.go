package epinet

import "math"

// minRhoEff is the floor applied to the work algorithm's shrinking
// distance-decay parameter, resolving the Open Question in spec.md §9
// ("no lower bound in the source... a reasonable implementation caps
// rho_eff below at a small positive value").
const minRhoEff = 1e-6

// workShrinkFactor is the per-rejection multiplicative decay applied to
// rho_eff in the work algorithm, per spec.md §4.3 step 4.
const workShrinkFactor = 0.9995

// maxEdgeAttemptMultiplier bounds the total number of accept/reject
// attempts at maxEdgeAttemptMultiplier * (target edges + 1) before a run is
// declared saturated (spec.md §7's NetworkSaturation).
const maxEdgeAttemptMultiplier = 2000

// NetworkBuildConfig holds the work/other edge generator's inputs, per
// spec.md §4.3.
type NetworkBuildConfig struct {
	TargetMeanDegree float64 // μ
	AgeMatrixWork    [][]float64
	AgeMatrixOther   [][]float64
	WorkFraction     float64 // φ
	Rho              float64
	RhoScale         float64
	EpsilonRho       float64
}

// BuildWorkOtherEdges adds non-household edges to adj until the total
// edge count reaches ceil(mu*N/2), per spec.md §4.3. pop supplies the
// per-age-bucket agent lists and coordinates used for endpoint draws.
func BuildWorkOtherEdges(adj *RaggedAdjacency, pop *Population, cfg *NetworkBuildConfig, rng *rngSource) error {
	work, err := newJointMatrix(cfg.AgeMatrixWork)
	if err != nil {
		return err
	}
	other, err := newJointMatrix(cfg.AgeMatrixOther)
	if err != nil {
		return err
	}

	n := pop.N()
	targetEdges := int(math.Ceil(cfg.TargetMeanDegree * float64(n) / 2))
	currentEdges := adj.TotalEdges() / 2

	attempts := 0
	maxAttempts := maxEdgeAttemptMultiplier * (targetEdges + 1)

	for currentEdges < targetEdges {
		attempts++
		if attempts > maxAttempts {
			return ErrNetworkSaturation
		}

		useWork := rng.Uniform01() < cfg.WorkFraction
		jm := other
		tag := EdgeOther
		if useWork {
			jm = work
			tag = EdgeWork
		}

		i, j, ok := jm.sample(rng.Uniform01(), rng.Uniform01())
		if !ok {
			continue
		}
		if len(pop.AgeBuckets[i]) == 0 || len(pop.AgeBuckets[j]) == 0 {
			continue
		}

		rhoEff := 0.0
		if rng.Uniform01() >= cfg.EpsilonRho {
			rhoEff = cfg.Rho
		}

		var a, b int
		var accepted bool
		if useWork {
			a, b, accepted = drawWorkEdge(pop, i, j, rhoEff, cfg.RhoScale, rng)
		} else {
			a, b, accepted = drawOtherEdge(pop, i, j, rhoEff, cfg.RhoScale, rng)
		}
		if !accepted {
			continue
		}
		if a == b {
			continue
		}
		if added := adj.AddBiEdge(a, b, tag); added {
			currentEdges++
		}
	}
	return nil
}

// drawOtherEdge implements spec.md §4.3's "other" algorithm: a single
// memoryless, isotropic accept/reject draw of (a,b) from age buckets
// (i,j). Grounded on original_source/src/simulation_v1.py's
// update_node_connections used via run_algo_2.
func drawOtherEdge(pop *Population, i, j int, rhoEff, rhoScale float64, rng *rngSource) (a, b int, ok bool) {
	bucketI := pop.AgeBuckets[i]
	bucketJ := pop.AgeBuckets[j]
	a = int(bucketI[rng.IntN(len(bucketI))])
	b = int(bucketJ[rng.IntN(len(bucketJ))])
	if a == b {
		return a, b, false
	}
	if rhoEff == 0 {
		return a, b, true
	}
	d := Distance(pop.Agents[a].Coord, pop.Agents[b].Coord)
	accept := math.Exp(-rhoEff*d/rhoScale) > rng.Uniform01()
	return a, b, accept
}

// drawWorkEdge implements spec.md §4.3's "work" algorithm: draw anchor
// a once from age bucket i, then repeatedly draw candidates b from age
// bucket j, shrinking rho_eff by workShrinkFactor on every rejection
// (clamped at minRhoEff) until one is accepted or maxTries candidates
// have been drawn, in which case ok is false. This concentrates work
// edges spatially around a's anchor location without precomputing
// workplaces. Grounded on
// original_source/src/simulation_v1.py's run_algo_1.
func drawWorkEdge(pop *Population, i, j int, rhoEff, rhoScale float64, rng *rngSource) (a, b int, ok bool) {
	bucketI := pop.AgeBuckets[i]
	bucketJ := pop.AgeBuckets[j]
	a = int(bucketI[rng.IntN(len(bucketI))])

	const maxTries = 200000
	for try := 0; try < maxTries; try++ {
		b = int(bucketJ[rng.IntN(len(bucketJ))])
		if a == b {
			rhoEff = math.Max(rhoEff*workShrinkFactor, minRhoEff)
			continue
		}
		if rhoEff == 0 {
			return a, b, true
		}
		d := Distance(pop.Agents[a].Coord, pop.Agents[b].Coord)
		if math.Exp(-rhoEff*d/rhoScale) > rng.Uniform01() {
			return a, b, true
		}
		rhoEff = math.Max(rhoEff*workShrinkFactor, minRhoEff)
	}
	return a, b, false
}
