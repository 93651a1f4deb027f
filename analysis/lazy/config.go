package lazy

import (
	"os"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Search orders of the driver worklist.
const (
	SearchDFS = "dfs"
	SearchBFS = "bfs"
)

// Backing stores of the entailment cache.
const (
	CacheNone = "none"
	CacheMap  = "map"
	CacheLRU  = "lru"
)

// Config configures a run of the engine.
type Config struct {
	// Restrict interpolants to the scope of the innermost open call.
	WellScopedPredicates bool `yaml:"well-scoped-predicates"`
	ForcedCovering       bool `yaml:"forced-covering"`
	// Maximum number of forced covering candidates tried per state.
	ForcedCoveringCandidates int `yaml:"forced-covering-candidates"`
	// Maximum relative id distance between a state and a forced covering candidate.
	ForcedCoveringDistance float64 `yaml:"forced-covering-distance"`
	// Stop counterexample analysis at the shortest infeasible prefix.
	ShortestTrace       bool   `yaml:"shortest-trace"`
	EntailmentCache     string `yaml:"entailment-cache"`
	EntailmentCacheSize int    `yaml:"entailment-cache-size"`
	BitwiseAxioms       bool   `yaml:"bitwise-axioms"`
	// File receiving the path formula of a feasible counterexample.
	FeasiblePathDump string `yaml:"feasible-path-dump"`
	// Directory receiving every interpolation query.
	QueryDumpDir string `yaml:"query-dump-dir"`
	IntWidth     uint   `yaml:"int-width"`
	Search       string `yaml:"search"`
	// Bound on the number of expanded states. Zero is unbounded.
	MaxSteps  int    `yaml:"max-steps"`
	Locations string `yaml:"locations"`
}

func DefaultConfig() Config {
	return Config{
		ForcedCoveringCandidates: 4,
		ForcedCoveringDistance:   0.5,
		EntailmentCache:          CacheLRU,
		EntailmentCacheSize:      4096,
		IntWidth:                 16,
		Search:                   SearchDFS,
		Locations:                cfa.CallStackLocations,
	}
}

// LoadConfig reads a YAML configuration file. Missing fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading configuration")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing configuration %s", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Search {
	case SearchDFS, SearchBFS:
	default:
		return errors.Errorf("unknown search order %q", c.Search)
	}
	switch c.EntailmentCache {
	case CacheNone, CacheMap, CacheLRU:
	default:
		return errors.Errorf("unknown entailment cache %q", c.EntailmentCache)
	}
	switch c.Locations {
	case cfa.CallStackLocations, cfa.SummaryLocations:
	default:
		return errors.Errorf("unknown location manager %q", c.Locations)
	}
	if c.EntailmentCache == CacheLRU && c.EntailmentCacheSize <= 0 {
		return errors.Errorf("entailment cache size must be positive, got %d", c.EntailmentCacheSize)
	}
	if c.ForcedCoveringCandidates < 0 {
		return errors.Errorf("negative forced covering candidate count %d", c.ForcedCoveringCandidates)
	}
	if c.ForcedCoveringDistance < 0 || c.ForcedCoveringDistance > 1 {
		return errors.Errorf("forced covering distance %v is not in [0, 1]", c.ForcedCoveringDistance)
	}
	if c.IntWidth == 0 || c.IntWidth > 64 {
		return errors.Errorf("integer width %d is not in [1, 64]", c.IntWidth)
	}
	if c.MaxSteps < 0 {
		return errors.Errorf("negative step bound %d", c.MaxSteps)
	}
	return nil
}
