package formula

import (
	"strings"

	"github.com/cs-au-dk/golazy/utils"
	"github.com/fatih/color"
)

var colorize = struct {
	Op    func(...interface{}) string
	Var   func(...interface{}) string
	Const func(...interface{}) string
}{
	Op: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
	Var: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
	Const: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiWhite).SprintFunc())(is...)
	},
}

// Pretty prints the term with colorized operators, variables and constants.
func (t *Term) Pretty() string {
	var sb strings.Builder
	t.write(&sb, printer{
		op:       colorize.Op,
		variable: colorize.Var,
		constant: colorize.Const,
	})
	return sb.String()
}
