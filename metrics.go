package main

import (
	"fmt"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/lazy"
)

// gatherMetrics prints the engine statistics of a run together with the
// locations of the automaton reached by the final tree.
func gatherMetrics(res lazy.Result, c *cfa.CFA) {
	if !opts.Metrics() || res.Stats == nil {
		return
	}

	msg := "================ Results =====================\n\n"
	msg += "Verdict: " + res.Verdict.String() + "\n"
	if res.Reason != "" {
		msg += "Reason: " + res.Reason + "\n"
	}
	msg += res.Stats.String() + "\n\n"

	covered := make(map[*cfa.Node]struct{})
	covering := 0
	if res.ART != nil {
		for _, s := range res.ART.States() {
			if s.IsFalse() {
				continue
			}
			covered[s.Location()] = struct{}{}
			if s.IsCovered() {
				covering++
			}
		}
		msg += "ART states: " + fmt.Sprint(res.ART.Size()) + ", covered: " + fmt.Sprint(covering) + "\n"
	}

	all := c.Nodes()
	msg += "Locations reached: " + fmt.Sprint(len(covered)) + "/" + fmt.Sprint(len(all)) + "\n"

	errs := c.ErrorNodes()
	msg += "Error locations reached: "
	reached := 0
	for _, n := range errs {
		if _, ok := covered[n]; ok {
			reached++
		}
	}
	msg += fmt.Sprint(reached) + "/" + fmt.Sprint(len(errs)) + "\n"

	opts.OnVerbose(func() {
		notCovered := ""
		for _, n := range all {
			if _, ok := covered[n]; !ok {
				notCovered += "  " + n.Describe() + "\n"
			}
		}
		if notCovered != "" {
			msg += "Not reached: {\n" + notCovered + "}\n"
		}
	})
	msg += "================ Results ====================="
	fmt.Println(msg)
}
