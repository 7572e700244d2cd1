package epinet

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// TentTestingConfig is the TOML-decodable form of an optional
// TentTesting intervention, per spec.md §4.6.
type TentTestingConfig struct {
	TestInterval float64 `toml:"test_interval"`
	TestFraction float64 `toml:"test_fraction"`
	Sensitivity  float64 `toml:"sensitivity"`
}

// Config is the full TOML-decodable description of one run, per
// spec.md §6's external interface. Grounded on the teacher's
// evoepi_config.go: a flat, validated struct decoded wholesale by
// BurntSushi/toml, with defaults applied in Validate rather than via
// struct tags: a zero num_infectious becomes 4 and a zero nts becomes
// 0.1. num_exposed has no default, since 0 (no exposed substages) is a
// valid setting.
type Config struct {
	Seed            int64  `toml:"seed"`
	PopulationSize  int    `toml:"population_size"`
	NumAgeBuckets   int    `toml:"num_age_buckets"`
	CoordinatesPath string `toml:"coordinates_path"`

	HouseholdSizeWeights []float64   `toml:"household_size_weights"`
	HouseholdAgeWeights  [][]float64 `toml:"household_age_weights"`

	TargetMeanDegree float64     `toml:"target_mean_degree"`
	AgeMatrixWork    [][]float64 `toml:"age_matrix_work"`
	AgeMatrixOther   [][]float64 `toml:"age_matrix_other"`
	WorkFraction     float64     `toml:"work_fraction"`
	Rho              float64     `toml:"rho"`
	RhoScale         float64     `toml:"rho_scale"`
	EpsilonRho       float64     `toml:"epsilon_rho"`

	SigmaMu   float64 `toml:"sigma_mu"`
	Beta      float64 `toml:"beta"`
	SigmaBeta float64 `toml:"sigma_beta"`

	NumExposed    int     `toml:"num_exposed"`
	NumInfectious int     `toml:"num_infectious"`
	LambdaE       float64 `toml:"lambda_e"`
	LambdaI       float64 `toml:"lambda_i"`

	SeedMode  string  `toml:"seed_mode"`
	SeedCount int     `toml:"seed_count"`
	RhoSeed   float64 `toml:"rho_seed"`

	NTS    float64 `toml:"nts"`
	DayMax float64 `toml:"day_max"`

	TentTesting *TentTestingConfig `toml:"tent_testing"`
}

// LoadConfig decodes and validates a TOML config file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validating config %s", path)
	}
	return &cfg, nil
}

// Validate checks the structural invariants Build relies on: matrix
// shapes agree with NumAgeBuckets, every probability-like field is in
// range, and the disease-state layout is well formed. It first fills the
// num_infectious and nts defaults described on Config.
func (c *Config) Validate() error {
	if c.NumInfectious == 0 {
		c.NumInfectious = 4
	}
	if c.NTS == 0 {
		c.NTS = 0.1
	}
	if c.PopulationSize <= 0 {
		return errors.New("population_size must be positive")
	}
	if c.NumAgeBuckets <= 0 {
		return errors.New("num_age_buckets must be positive")
	}
	if len(c.HouseholdSizeWeights) == 0 {
		return errors.Wrap(ErrInvalidDistribution, "household_size_weights is empty")
	}
	if len(c.HouseholdAgeWeights) != len(c.HouseholdSizeWeights) {
		return errors.New("household_age_weights must have one row per household size")
	}
	for k, row := range c.HouseholdAgeWeights {
		if len(row) != c.NumAgeBuckets {
			return errors.Errorf("household_age_weights[%d] has %d entries, want %d", k, len(row), c.NumAgeBuckets)
		}
	}
	if len(c.AgeMatrixWork) != c.NumAgeBuckets || len(c.AgeMatrixOther) != c.NumAgeBuckets {
		return errors.New("age_matrix_work/age_matrix_other must be num_age_buckets square")
	}
	for i := range c.AgeMatrixWork {
		if len(c.AgeMatrixWork[i]) != c.NumAgeBuckets || len(c.AgeMatrixOther[i]) != c.NumAgeBuckets {
			return errors.Errorf("age matrix row %d is not num_age_buckets wide", i)
		}
	}
	if c.WorkFraction < 0 || c.WorkFraction > 1 {
		return errors.New("work_fraction must be in [0,1]")
	}
	if c.EpsilonRho < 0 || c.EpsilonRho > 1 {
		return errors.New("epsilon_rho must be in [0,1]")
	}
	if c.NumExposed < 0 {
		return errors.New("num_exposed must be >= 0")
	}
	if c.NumInfectious < 1 {
		return errors.New("num_infectious must be >= 1")
	}
	if c.LambdaE < 0 || c.LambdaI <= 0 {
		return errors.New("lambda_e must be >= 0 and lambda_i must be > 0")
	}
	if c.SeedCount <= 0 || c.SeedCount > c.PopulationSize {
		return errors.Errorf("seed_count %d must be in (0, population_size]", c.SeedCount)
	}
	if c.SeedMode != "random" && c.SeedMode != "cluster" {
		return errors.Errorf("seed_mode must be \"random\" or \"cluster\", got %q", c.SeedMode)
	}
	if c.NTS <= 0 {
		return errors.New("nts must be positive")
	}
	if c.DayMax < 0 {
		return errors.New("day_max must be >= 0 (0 disables the simulated-time cap)")
	}
	if c.TentTesting != nil {
		tt := c.TentTesting
		if tt.TestInterval <= 0 {
			return errors.New("tent_testing.test_interval must be positive")
		}
		if tt.TestFraction < 0 || tt.TestFraction > 1 {
			return errors.New("tent_testing.test_fraction must be in [0,1]")
		}
		if tt.Sensitivity < 0 || tt.Sensitivity > 1 {
			return errors.New("tent_testing.sensitivity must be in [0,1]")
		}
	}
	return nil
}

// deriveSeed mixes a base seed with a small integer salt to produce an
// independent-looking stream seed, so network construction and the
// simulation's event draws don't replay the same RNG stream under one
// configured seed.
func deriveSeed(base int64, salt int64) int64 {
	const mix = 0x9E3779B97F4A7C15
	return base ^ (salt * mix)
}

// Build constructs a fully wired Engine (and any configured
// interventions) from c: loads coordinates, places households, samples
// per-agent weights, builds the work/other edge layer, and seeds
// initial infections. The returned engine is ready for Run.
func (c *Config) Build() (*Engine, []Intervention, error) {
	coords, err := LoadCoordinateCatalog(c.CoordinatesPath)
	if err != nil {
		return nil, nil, err
	}
	return c.BuildWithCatalog(coords)
}

// BuildWithCatalog is Build, but reuses an already-loaded coordinate
// catalog instead of reading CoordinatesPath again. RunMany uses this to
// share one read-only catalog across every run in a batch, per spec.md
// §5.
func (c *Config) BuildWithCatalog(coords *CoordinateCatalog) (*Engine, []Intervention, error) {
	constructionRNG := newRNGSource(c.Seed)
	dist := &HouseholdDistribution{SizeWeights: c.HouseholdSizeWeights, AgeWeights: c.HouseholdAgeWeights}

	pop, adj, err := PlaceHouseholds(c.PopulationSize, c.NumAgeBuckets, dist, coords, constructionRNG)
	if err != nil {
		return nil, nil, err
	}

	for i := range pop.Agents {
		pop.Agents[i].ConnectionWeight = sampleConnectionWeight(constructionRNG, c.SigmaMu)
		pop.Agents[i].InfectionWeight = sampleInfectionWeight(constructionRNG, c.Beta, c.SigmaBeta)
		pop.Agents[i].State = StateSusceptible
	}

	netCfg := &NetworkBuildConfig{
		TargetMeanDegree: c.TargetMeanDegree,
		AgeMatrixWork:    c.AgeMatrixWork,
		AgeMatrixOther:   c.AgeMatrixOther,
		WorkFraction:     c.WorkFraction,
		Rho:              c.Rho,
		RhoScale:         c.RhoScale,
		EpsilonRho:       c.EpsilonRho,
	}
	if err := BuildWorkOtherEdges(adj, pop, netCfg, constructionRNG); err != nil {
		return nil, nil, err
	}

	engine := NewEngine(pop, adj, c.NumExposed, c.NumInfectious, c.LambdaE, c.LambdaI, deriveSeed(c.Seed, 1))
	engine.NTS = c.NTS
	engine.term.dayMax = c.DayMax

	seedMode := SeedRandom
	if c.SeedMode == "cluster" {
		seedMode = SeedCluster
	}
	seedCfg := SeedConfig{Mode: seedMode, Count: c.SeedCount, RhoSeed: c.RhoSeed, RhoScale: c.RhoScale}
	if err := Seed(engine, seedCfg); err != nil {
		return nil, nil, err
	}

	var interventions []Intervention
	if c.TentTesting != nil {
		interventions = append(interventions, &TentTesting{
			TestInterval: c.TentTesting.TestInterval,
			TestFraction: c.TentTesting.TestFraction,
			Sensitivity:  c.TentTesting.Sensitivity,
		})
	}

	return engine, interventions, nil
}
