package lazy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/analysis/smt"
	tu "github.com/cs-au-dk/golazy/testutil"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Keeps a diverging run from hanging the test suite.
const testStepBound = 5000

func verify(t *testing.T, res tu.LoadResult, cfg Config) Result {
	t.Helper()
	fm := formula.NewManager(cfg.IntWidth)
	c := tu.ExampleCFA(t, fm, res, tu.DefaultBuildOptions)
	locs, err := cfa.NewLocationManager(cfg.Locations, c)
	require.NoError(t, err)
	solver, err := smt.NewSolver(fm, smt.Options{BitwiseAxioms: cfg.BitwiseAxioms})
	require.NoError(t, err)

	result, err := Run(context.Background(), c, locs, fm, solver, cfg)
	require.NoError(t, err)
	return result
}

func TestVerdicts(t *testing.T) {
	configs := []struct {
		name   string
		update func(*Config)
	}{
		{"callstack", func(*Config) {}},
		{"summary", func(cfg *Config) { cfg.Locations = cfa.SummaryLocations }},
		{"forced-covering", func(cfg *Config) { cfg.ForcedCovering = true }},
		{"bfs", func(cfg *Config) { cfg.Search = SearchBFS }},
		{"well-scoped", func(cfg *Config) {
			cfg.WellScopedPredicates = true
			cfg.ShortestTrace = true
		}},
		{"well-scoped-forced-covering", func(cfg *Config) {
			cfg.WellScopedPredicates = true
			cfg.ForcedCovering = true
		}},
	}

	examples := tu.ListExamples(t, "../..")
	require.NotEmpty(t, examples)

	for _, config := range configs {
		t.Run(config.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxSteps = testStepBound
			config.update(&cfg)

			var out bytes.Buffer
			for _, name := range examples {
				loadRes := tu.LoadExamplePackage(t, "../..", name)
				result := verify(t, loadRes, cfg)

				expected := tu.MakeNotesManager(t, loadRes).
					ExpectedVerdict(t, cfg.Locations == cfa.SummaryLocations)
				if string(result.Verdict) != expected {
					t.Errorf("%s: expected %s, got %s (%s)", name, expected, string(result.Verdict), result.Reason)
				}
				if result.Verdict == Unsafe {
					assert.True(t, result.Trace.Error().IsError(), "%s: trace does not end in an error location", name)
				}
				t.Logf("%s: %s\n%v", name, string(result.Verdict), result.Stats)

				fmt.Fprintf(&out, "%s: %s\n", name, string(result.Verdict))
			}
			goldie.New(t).Assert(t, t.Name(), out.Bytes())
		})
	}
}

func TestRunCancelled(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Verdict)
	assert.Equal(t, context.Canceled.Error(), res.Reason)
	assert.Equal(t, 0, res.Stats.Steps)
}

func TestRunStepBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 1
	e, _ := newTestEngine(t, guardSrc, cfg)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Verdict)
	assert.Equal(t, 1, res.Stats.Steps)
}

func TestRunGuards(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Safe, res.Verdict)
	assert.Positive(t, res.Stats.Transfer.Refinements)

	// Error states left in the tree were refuted.
	for _, s := range res.ART.States() {
		if s.IsError() {
			assert.True(t, s.IsFalse(), "%v", s.Describe())
		}
	}

	e, _ = newTestEngine(t, reachableSrc, DefaultConfig())
	res, err = e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Unsafe, res.Verdict)
	require.NotNil(t, res.Trace)
	assert.Contains(t, res.Trace.String(), "error location")
}

func TestARTToDot(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.ART.ToDot().WriteDot(&buf))
	out := buf.String()
	assert.Contains(t, out, `digraph "art"`)
	assert.Contains(t, out, "s0")
}

func TestNewEngineErrors(t *testing.T) {
	fm := formula.NewManager(8)
	c := tu.BuildCFA(t, fm, guardSrc, "main", tu.DefaultBuildOptions)
	locs, _ := cfa.NewLocationManager(cfa.CallStackLocations, c)
	solver, err := smt.NewSolver(fm, smt.Options{})
	require.NoError(t, err)

	// The formula manager is narrower than the default width.
	_, err = NewEngine(c, locs, fm, solver, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.IntWidth = 8
	cfg.Search = "random"
	_, err = NewEngine(c, locs, fm, solver, cfg)
	assert.Error(t, err)

	_, err = NewEngine(nil, locs, fm, solver, DefaultConfig())
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "golazy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
forced-covering: true
forced-covering-candidates: 2
search: bfs
entailment-cache: map
locations: summary
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	want := DefaultConfig()
	want.ForcedCovering = true
	want.ForcedCoveringCandidates = 2
	want.Search = SearchBFS
	want.EntailmentCache = CacheMap
	want.Locations = cfa.SummaryLocations
	assert.Equal(t, want, cfg)

	require.NoError(t, os.WriteFile(path, []byte("int-width: 128\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("search: [dfs\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for name, update := range map[string]func(*Config){
		"cache":      func(c *Config) { c.EntailmentCache = "disk" },
		"cache size": func(c *Config) { c.EntailmentCacheSize = 0 },
		"locations":  func(c *Config) { c.Locations = "explicit" },
		"candidates": func(c *Config) { c.ForcedCoveringCandidates = -1 },
		"distance":   func(c *Config) { c.ForcedCoveringDistance = 2 },
		"width":      func(c *Config) { c.IntWidth = 0 },
		"steps":      func(c *Config) { c.MaxSteps = -3 },
	} {
		cfg := DefaultConfig()
		update(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
