package pkgutil

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// BuildSource type-checks a single-file main package given as source and
// builds its SSA form. Imports are resolved from export data, so it does not
// need to invoke the go tool.
func BuildSource(src string) (*ssa.Package, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(err, "parsing source")
	}

	pkg := types.NewPackage("main", "main")
	conf := &types.Config{Importer: importer.Default()}
	spkg, _, err := ssautil.BuildPackage(conf, fset, pkg, []*ast.File{file}, ssa.InstantiateGenerics)
	if err != nil {
		return nil, errors.Wrap(err, "building SSA")
	}
	return spkg, nil
}
