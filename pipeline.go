package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/analysis/lazy"
	"github.com/cs-au-dk/golazy/analysis/smt"
	"github.com/cs-au-dk/golazy/pkgutil"
	"github.com/cs-au-dk/golazy/utils"
	"github.com/cs-au-dk/golazy/utils/dot"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
)

// pipeline is a wrapper around the verification pipeline.
type pipeline struct {
	prog  *ssa.Program
	mains []*ssa.Package
}

// config loads the engine configuration. Flags given explicitly on the
// command line override the values of the configuration file. The flag
// defaults agree with lazy.DefaultConfig.
func (p pipeline) config() (lazy.Config, error) {
	cfg := lazy.DefaultConfig()
	if file := opts.ConfigFile(); file != "" {
		var err error
		if cfg, err = lazy.LoadConfig(file); err != nil {
			return cfg, err
		}
	}

	set := opts.IsSet
	if set("int-width") {
		cfg.IntWidth = opts.IntWidth()
	}
	if set("max-steps") {
		cfg.MaxSteps = opts.MaxSteps()
	}
	if set("forced-covering-candidates") {
		cfg.ForcedCoveringCandidates = opts.ForcedCoveringCandidates()
	}
	if set("forced-covering-distance") {
		cfg.ForcedCoveringDistance = opts.ForcedCoveringDistance()
	}
	if set("search") {
		cfg.Search = opts.Search()
	}
	if set("locations") {
		cfg.Locations = opts.Locations()
	}
	if set("entailment-cache") {
		cfg.EntailmentCache = opts.EntailmentCache()
	}
	if set("dump-feasible") {
		cfg.FeasiblePathDump = opts.FeasiblePathDump()
	}
	if set("dump-queries") {
		cfg.QueryDumpDir = opts.QueryDumpDir()
	}
	if set("well-scoped") {
		cfg.WellScopedPredicates = opts.WellScoped()
	}
	if set("forced-covering") {
		cfg.ForcedCovering = opts.ForcedCovering()
	}
	if set("shortest-trace") {
		cfg.ShortestTrace = opts.ShortestTrace()
	}
	if set("bitwise-axioms") {
		cfg.BitwiseAxioms = opts.BitwiseAxioms()
	}

	return cfg, cfg.Validate()
}

// automaton finds the entry function and constructs its control flow automaton.
func (p pipeline) automaton(width uint) (*cfa.CFA, *formula.Manager, error) {
	entry, err := pkgutil.FindFunction(p.prog, p.mains, opts.Function())
	if err != nil {
		return nil, nil, err
	}

	fmt.Println()
	log.Println("Constructing CFA for", entry, "...")
	fm := formula.NewManager(width)
	c, err := cfa.Build(fm, entry, cfa.BuildOptions{
		ErrorFuncs:   opts.ErrorFuncs(),
		PanicIsError: opts.PanicIsError(),
		Compress:     opts.Compress(),
	})
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed constructing CFA")
	}
	log.Printf("CFA done: %d locations, %d edges, %d error locations\n",
		len(c.Nodes()), len(c.Edges()), len(c.ErrorNodes()))
	fmt.Println()

	opts.OnVerbose(func() {
		c.Fprint(log.Writer())
	})

	return c, fm, nil
}

// verify runs the lazy abstraction engine on the automaton. Internal errors
// raised by the engine are reported as errors.
func (p pipeline) verify(ctx context.Context, c *cfa.CFA, fm *formula.Manager, cfg lazy.Config) (res lazy.Result, err error) {
	locs, err := cfa.NewLocationManager(cfg.Locations, c)
	if err != nil {
		return res, err
	}
	solver, err := smt.NewSolver(fm, smt.Options{
		IntWidth:      cfg.IntWidth,
		BitwiseAxioms: cfg.BitwiseAxioms,
	})
	if err != nil {
		return res, err
	}

	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(error); ok && errors.Is(perr, lazy.ErrInternal) {
				res, err = lazy.Result{Verdict: lazy.Unknown, Reason: perr.Error()}, perr
				return
			}
			panic(r)
		}
	}()

	log.Println("Running lazy abstraction...")
	if opts.Metrics() {
		defer utils.TimeTrack(time.Now(), "Verification")
	}
	res, err = lazy.Run(ctx, c, locs, fm, solver, cfg)
	log.Println("Lazy abstraction done")
	return
}

// renderART exports the final reachability tree when requested.
func (p pipeline) renderART(res lazy.Result) {
	if res.ART == nil {
		return
	}
	switch {
	case opts.ArtOut() != "":
		dg := res.ART.ToDot()
		var buf bytes.Buffer
		if err := dg.WriteDot(&buf); err != nil {
			log.Println("Failed writing ART:", err)
			return
		}
		out, err := dot.DotToImage(opts.ArtOut(), opts.OutputFormat(), buf.Bytes())
		if err != nil {
			log.Println("Failed rendering ART:", err)
			return
		}
		log.Println("ART written to", out)
	case opts.Visualize():
		res.ART.ToDot().ShowDot()
	}
}
