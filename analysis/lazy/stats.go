package lazy

import (
	"fmt"
	"strings"
	"time"
)

type (
	// RefinerStats records the interaction of the refiner with the prover.
	RefinerStats struct {
		Calls          int
		Spurious       int
		Feasible       int
		ForceCoverings int
		TotalTime      time.Duration
		PeakTime       time.Duration
	}

	// StopStats records coverage checks.
	StopStats struct {
		Checks    int
		CacheHits int
		Coverings int
	}

	// TransferStats records the work of the transfer relation.
	TransferStats struct {
		Successors     int
		Closed         int
		ForcedCovered  int
		ForcedAttempts int
		Refinements    int
		Detached       int
		Requeued       int
	}

	// Stats aggregates the statistics of a run. A nil *Stats discards everything.
	Stats struct {
		Refiner  RefinerStats
		Stop     StopStats
		Transfer TransferStats
		Steps    int
		Time     time.Duration
	}
)

// Enabled checks whether statistics are collected.
func (s *Stats) Enabled() bool {
	return s != nil
}

func (s *Stats) solverCall(kind string, d time.Duration) {
	if s == nil {
		return
	}
	r := &s.Refiner
	r.Calls++
	r.TotalTime += d
	if d > r.PeakTime {
		r.PeakTime = d
	}
	switch kind {
	case "spurious":
		r.Spurious++
	case "feasible":
		r.Feasible++
	case "force":
		r.ForceCoverings++
	}
}

func (s *Stats) entailment(hit bool) {
	if s == nil {
		return
	}
	s.Stop.Checks++
	if hit {
		s.Stop.CacheHits++
	}
}

func (s *Stats) covering() {
	if s != nil {
		s.Stop.Coverings++
	}
}

func (s *Stats) transfer(update func(*TransferStats)) {
	if s != nil {
		update(&s.Transfer)
	}
}

func (s *Stats) String() string {
	if s == nil {
		return "no statistics"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Steps: %d (%s)\n", s.Steps, s.Time)
	fmt.Fprintf(&sb, "Refiner: %d calls, %d spurious, %d feasible, %d forced covering queries\n",
		s.Refiner.Calls, s.Refiner.Spurious, s.Refiner.Feasible, s.Refiner.ForceCoverings)
	fmt.Fprintf(&sb, "  solver time: %s total, %s peak\n", s.Refiner.TotalTime, s.Refiner.PeakTime)
	fmt.Fprintf(&sb, "Stop: %d entailment checks, %d cache hits, %d coverings\n",
		s.Stop.Checks, s.Stop.CacheHits, s.Stop.Coverings)
	t := s.Transfer
	fmt.Fprintf(&sb, "Transfer: %d successors, %d closed, %d/%d forced coverings, %d refinements\n",
		t.Successors, t.Closed, t.ForcedCovered, t.ForcedAttempts, t.Refinements)
	fmt.Fprintf(&sb, "  %d states detached, %d requeued", t.Detached, t.Requeued)
	return sb.String()
}
