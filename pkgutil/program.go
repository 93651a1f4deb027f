package pkgutil

import (
	"go/types"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// BuildProgram constructs the SSA form of the loaded packages and their
// dependencies, and returns it together with the main packages.
func BuildProgram(pkgs []*packages.Package) (*ssa.Program, []*ssa.Package, error) {
	prog, spkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	for i, p := range spkgs {
		if p == nil {
			return nil, nil, errors.Errorf("package %s contains errors", pkgs[i].PkgPath)
		}
	}
	prog.Build()
	return prog, ssautil.MainPackages(prog.AllPackages()), nil
}

// CheckPkgInGoroot checks whether a package is declared in GOROOT.
func CheckPkgInGoroot(pkg *types.Package) bool {
	path := filepath.Join(runtime.GOROOT(), "src", pkg.Path())
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return true
	}
	return false
}

// CheckInGoroot is true iff. the function is in a package declared in GOROOT.
func CheckInGoroot(fun *ssa.Function) bool {
	return fun != nil && fun.Pkg != nil &&
		CheckPkgInGoroot(fun.Pkg.Pkg)
}

// GetMain determines what is the main package as follows:
// 1. Take the package with the most members
// 2. Skip the package suffixed with .test
func GetMain(mains []*ssa.Package) (main *ssa.Package) {
	for _, mp := range mains {
		if strings.HasSuffix(mp.String(), ".test") {
			continue
		}
		if main == nil || len(main.Members) < len(mp.Members) {
			main = mp
		}
	}
	return
}

// FindFunction looks up the entry function of a verification task. The name
// is either a package-level function of the main package, a qualified name
// "pkg.fun" where pkg is the last element of a package path, or a function
// of any loaded package outside GOROOT.
func FindFunction(prog *ssa.Program, mains []*ssa.Package, name string) (*ssa.Function, error) {
	qual, short := "", name
	if i := strings.LastIndex(name, "."); i >= 0 {
		qual, short = name[:i], name[i+1:]
	}

	if qual == "" {
		if main := GetMain(mains); main != nil {
			if fun := main.Func(short); fun != nil {
				return fun, nil
			}
		}
	}

	pkgs := prog.AllPackages()
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Pkg.Path() < pkgs[j].Pkg.Path() })

	var found []*ssa.Function
	for _, pkg := range pkgs {
		if CheckPkgInGoroot(pkg.Pkg) {
			continue
		}
		if qual != "" && pkg.Pkg.Path() != qual && !strings.HasSuffix(pkg.Pkg.Path(), "/"+qual) {
			continue
		}
		if fun := pkg.Func(short); fun != nil {
			found = append(found, fun)
		}
	}

	switch len(found) {
	case 0:
		return nil, errors.Errorf("function %s not found", name)
	case 1:
		return found[0], nil
	}
	return nil, errors.Errorf("function name %s is ambiguous (%d candidates)", name, len(found))
}
