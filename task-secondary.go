package main

import (
	"bytes"
	"log"
	"os"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/utils/dot"
)

// secondaryTask checks whether a task other than verification was provided,
// and executes it. It reports whether a task was executed.
func (pl pipeline) secondaryTask(c *cfa.CFA) bool {
	switch {
	// cfa-to-dot : renders the control flow automaton of the entry function.
	case task.IsCfaToDot():
		dg := c.ToDot()
		if opts.Visualize() {
			dg.ShowDot()
			return true
		}

		var buf bytes.Buffer
		if err := dg.WriteDot(&buf); err != nil {
			log.Fatalln(err)
		}
		out, err := dot.DotToImage("", opts.OutputFormat(), buf.Bytes())
		if err != nil {
			log.Fatalln("Failed rendering CFA:", err)
		}
		log.Println("CFA written to", out)
		return true
	// print-cfa : prints every function of the automaton with its edges.
	case task.IsPrintCfa():
		if err := c.Fprint(os.Stdout); err != nil {
			log.Fatalln(err)
		}
		return true
	}
	return false
}
