package testutil

import (
	"bytes"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/pkgutil"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

// LoadResult contains relevant information obtained after loading a Go program.
type LoadResult struct {
	// MainPkg is the package focused by the analysis.
	MainPkg *packages.Package
	// Prog is the SSA representation of the entire program.
	Prog *ssa.Program
	// Mains denotes all the packages that can act as entry points.
	Mains []*ssa.Package
}

// Entry finds the entry function with the given name.
func (res LoadResult) Entry(t *testing.T, name string) *ssa.Function {
	t.Helper()
	fun, err := pkgutil.FindFunction(res.Prog, res.Mains, name)
	if err != nil {
		t.Fatal(err)
	}
	return fun
}

// LoadExampleAsPackages loads an example package to be used for a test.
func LoadExampleAsPackages(t *testing.T, pathToRoot string, pkg string) []*packages.Package {
	t.Helper()
	// Invoking the package tools is slow because it uses `go list` under the hood.
	// If the package doesn't have imports we can take a fast path by loading the
	// code manually and parsing it ourselves.
	srcDir := pathToRoot + "/examples/src/" + pkg
	if entries, err := os.ReadDir(srcDir); err == nil {
		if len(entries) == 1 {
			entry := entries[0]
			if !entry.IsDir() && entry.Name() == "main.go" {
				if content, err := os.ReadFile(srcDir + "/main.go"); err == nil &&
					// Assert no imports
					!bytes.Contains(content, []byte("import")) {
					return LoadSourceAsPackages(t, pkg, string(content))
				}
			}
		}
	}

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{GoPath: pathToRoot + "/examples"}, pkg)
	if err != nil {
		t.Fatal(err)
	}

	if len(pkgs) != 1 {
		t.Fatal("Example contains more than just a main package?")
	}
	return pkgs
}

func LoadExamplePackage(t *testing.T, pathToRoot string, pkg string) LoadResult {
	t.Helper()
	return LoadResultFromPackages(t, LoadExampleAsPackages(t, pathToRoot, pkg))
}

func LoadResultFromPackages(t *testing.T, pkgs []*packages.Package) (res LoadResult) {
	t.Helper()
	res.MainPkg = pkgs[0]

	var err error
	if res.Prog, res.Mains, err = pkgutil.BuildProgram(pkgs); err != nil {
		t.Fatal(err)
	}
	return
}

// LoadSourceAsPackages type checks a single-file main package.
func LoadSourceAsPackages(t *testing.T, importPath string, content string) []*packages.Package {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(
		fset,
		"main.go",
		content,
		parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	files := []*ast.File{file}

	// First argument is package path, the second is name.
	pkg := types.NewPackage(importPath, "main")
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Instances:  make(map[*ast.Ident]types.Instance),
		Scopes:     make(map[ast.Node]*types.Scope),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	if err := types.NewChecker(
		&types.Config{Importer: importer.Default()},
		fset, pkg, info).Files(files); err != nil {
		t.Fatal(err)
	}

	// If the package does not have imports we can take a fast path.
	if len(pkg.Imports()) == 0 {
		return []*packages.Package{{
			ID:        "pkg-loaded-from-src",
			Name:      pkg.Name(),
			PkgPath:   pkg.Path(),
			Types:     pkg,
			Fset:      fset,
			Syntax:    files,
			TypesInfo: info,
		}}
	}

	// Otherwise we need to invoke the packages tool that can import code for
	// dependencies.
	pkgs, err := pkgutil.LoadPackagesFromSource(content)
	if err != nil {
		t.Fatal(err)
	}
	return pkgs
}

// DefaultBuildOptions are the automaton construction options used in tests.
var DefaultBuildOptions = cfa.BuildOptions{
	ErrorFuncs:   []string{"reachError"},
	PanicIsError: true,
	Compress:     true,
}

// BuildCFA constructs the automaton of the entry function of a single-file
// main package given as source.
func BuildCFA(t *testing.T, fm *formula.Manager, src string, entry string, opts cfa.BuildOptions) *cfa.CFA {
	t.Helper()
	pkg, err := pkgutil.BuildSource(src)
	if err != nil {
		t.Fatal(err)
	}
	fun := pkg.Func(entry)
	if fun == nil {
		t.Fatalf("function %s not found", entry)
	}
	c, err := cfa.Build(fm, fun, opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// ExampleCFA constructs the automaton of the main function of an example package.
func ExampleCFA(t *testing.T, fm *formula.Manager, res LoadResult, opts cfa.BuildOptions) *cfa.CFA {
	t.Helper()
	c, err := cfa.Build(fm, res.Entry(t, "main"), opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// ListExamples lists the example packages consisting of a single main.go file.
func ListExamples(t *testing.T, pathToRoot string) (res []string) {
	t.Helper()
	path := filepath.Join(pathToRoot, "examples/src")
	entries, err := os.ReadDir(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(path, entry.Name()))
		if err == nil && len(files) == 1 && files[0].Name() == "main.go" {
			res = append(res, entry.Name())
		}
	}
	sort.Strings(res)
	return
}
