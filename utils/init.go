package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	intWidth        uint
	maxSteps        uint
	fcCandidates    uint
	fcDistance      float64
	function        string
	outputFormat    string
	gopath          string
	modulePath      string
	task            string
	configFile      string
	search          string
	locations       string
	entailmentCache string
	errorFuncs      string
	feasibleDump    string
	queryDumpDir    string
	artOut          string
	wellScoped      bool
	forcedCovering  bool
	shortestTrace   bool
	bitwiseAxioms   bool
	noPanicError    bool
	noCompress      bool
	metrics         bool
	noColorize      bool
	verbose         bool
	visualize       bool
}

const (
	_VERIFY = iota
	_CFA_TO_DOT
	_PRINT_CFA
)

func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var task = []struct{ flag, explanation string }{{
	"verify",
	"Check whether an error location (error function call or panic) is reachable from the entry function",
}, {
	"cfa-to-dot",
	"Render the control-flow automaton of the entry function and its callees",
}, {
	"print-cfa",
	"Print the edges of the control-flow automaton with their operations",
}}

var opts = &options{}

// setFlags records the flags explicitly provided on the command line.
var setFlags = map[string]bool{}

type optInterface struct{}

type taskInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) GoPath() string {
	return opts.gopath
}
func (optInterface) ModulePath() string {
	return opts.modulePath
}
func (optInterface) ConfigFile() string {
	return opts.configFile
}
func (optInterface) IntWidth() uint {
	return opts.intWidth
}
func (optInterface) MaxSteps() int {
	return int(opts.maxSteps)
}
func (optInterface) ForcedCoveringCandidates() int {
	return int(opts.fcCandidates)
}
func (optInterface) ForcedCoveringDistance() float64 {
	return opts.fcDistance
}
func (optInterface) Search() string {
	return opts.search
}
func (optInterface) Locations() string {
	return opts.locations
}
func (optInterface) EntailmentCache() string {
	return opts.entailmentCache
}
func (optInterface) FeasiblePathDump() string {
	return opts.feasibleDump
}
func (optInterface) QueryDumpDir() string {
	return opts.queryDumpDir
}
func (optInterface) ArtOut() string {
	return opts.artOut
}
func (optInterface) WellScoped() bool {
	return opts.wellScoped
}
func (optInterface) ForcedCovering() bool {
	return opts.forcedCovering
}
func (optInterface) ShortestTrace() bool {
	return opts.shortestTrace
}
func (optInterface) BitwiseAxioms() bool {
	return opts.bitwiseAxioms
}
func (optInterface) PanicIsError() bool {
	return !opts.noPanicError
}
func (optInterface) Compress() bool {
	return !opts.noCompress
}
func (optInterface) Metrics() bool {
	return opts.metrics
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) Visualize() bool {
	return opts.visualize
}

// ErrorFuncs lists the names of functions whose call sites are error locations.
func (optInterface) ErrorFuncs() (res []string) {
	for _, name := range strings.Split(opts.errorFuncs, ",") {
		if name = strings.TrimSpace(name); name != "" {
			res = append(res, name)
		}
	}
	return
}

// IsSet reports whether the flag with the given name was provided explicitly.
// Flag values override configuration file values only when set.
func (optInterface) IsSet(name string) bool {
	return setFlags[name]
}

func (optInterface) Task() taskInterface {
	return taskInterface{}
}
func (taskInterface) IsVerify() bool {
	return opts.task == task[_VERIFY].flag
}
func (taskInterface) IsCfaToDot() bool {
	return opts.task == task[_CFA_TO_DOT].flag
}
func (taskInterface) IsPrintCfa() bool {
	return opts.task == task[_PRINT_CFA].flag
}

func init() {
	taskFlag := "\n"
	for _, task := range task {
		taskFlag += task.flag + " -- " + task.explanation + "\n"
	}
	taskFlag += "\n"

	flag.StringVar(&(opts.function), "fun", "main", "entry function of the verification task.\n"+
		"- Function names need not be fully qualified w.r.t. package name. The function is looked up "+
		"in the main package first, and then across all loaded packages.\n")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format [svg | png | jpg | ...]")
	flag.StringVar(&(opts.gopath), "gopath", "examples", "specify GOPATH to be used for packages.Load")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `specify a path to a directory containing a Go module.
- If provided this will make our code loading tools (that piggyback on Go's tools) run
in "module-aware" mode (GO111MODULE=on).`)
	flag.StringVar(&(opts.task), "task", task[_VERIFY].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.StringVar(&(opts.configFile), "config", "", "YAML file with engine configuration. Explicit flags take precedence.")
	flag.StringVar(&(opts.search), "search", "dfs", "worklist order of the reachability search [dfs | bfs]")
	flag.StringVar(&(opts.locations), "locations", "callstack", "location manager [callstack | summary]:\n"+
		"- callstack: calls are inlined on demand and matched against an explicit call stack\n"+
		"- summary: calls are crossed through summary edges that havoc the result\n")
	flag.StringVar(&(opts.entailmentCache), "entailment-cache", "lru", "backing store of the entailment cache [none | map | lru]")
	flag.StringVar(&(opts.errorFuncs), "error-func", "reachError", "comma separated names of functions whose calls are error locations")
	flag.StringVar(&(opts.feasibleDump), "dump-feasible", "", "file to which the path formula of a feasible counterexample is written")
	flag.StringVar(&(opts.queryDumpDir), "dump-queries", "", "directory to which every interpolation query is written")
	flag.StringVar(&(opts.artOut), "art-out", "", "render the final abstract reachability tree to this file (without extension)")
	flag.UintVar(&(opts.intWidth), "int-width", 16, "bit width of integer values")
	flag.UintVar(&(opts.maxSteps), "max-steps", 0, "bound on the number of expanded states (0 is unbounded)")
	flag.UintVar(&(opts.fcCandidates), "forced-covering-candidates", 4, "maximum number of candidates tried for forced covering")
	flag.Float64Var(&(opts.fcDistance), "forced-covering-distance", 0.5, "maximum relative id distance of forced covering candidates")
	flag.BoolVar(&(opts.wellScoped), "well-scoped", false, "restrict interpolants to the scope of the innermost open call")
	flag.BoolVar(&(opts.forcedCovering), "forced-covering", false, "enable forced covering")
	flag.BoolVar(&(opts.shortestTrace), "shortest-trace", false, "stop counterexample analysis at the shortest infeasible prefix")
	flag.BoolVar(&(opts.bitwiseAxioms), "bitwise-axioms", false, "encode bitwise operators exactly instead of as uninterpreted functions")
	flag.BoolVar(&(opts.noPanicError), "no-panic-error", false, "do not treat panics as error locations")
	flag.BoolVar(&(opts.noCompress), "no-compress", false, "disable compression of straight-line CFA chains")
	flag.BoolVar(&(opts.metrics), "metrics", false, "print engine statistics")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.visualize), "visualize", false, "enable visualization via XDot")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	validTask := false
	for _, task := range task {
		if task.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}

	if Opts().Task().IsCfaToDot() {
		opts.noColorize = true
	}
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}
