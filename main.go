package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/cs-au-dk/golazy/analysis/lazy"
	"github.com/cs-au-dk/golazy/pkgutil"
	"github.com/cs-au-dk/golazy/utils"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

// Exit codes of the verification task.
const (
	exitSafe = iota
	exitUnsafe
	exitUnknown
	exitFailure
)

func main() {
	utils.ParseArgs()
	path := utils.MakePath()

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:     opts.GoPath(),
		ModulePath: opts.ModulePath(),
	}, path)
	if err != nil {
		log.Println("Failed pkgutil.LoadPackages")
		log.Println(err)
		os.Exit(exitFailure)
	}

	prog, mains, err := pkgutil.BuildProgram(pkgs)
	if err != nil {
		log.Println("Failed building SSA")
		log.Println(err)
		os.Exit(exitFailure)
	}

	pl := pipeline{prog: prog, mains: mains}

	cfg, err := pl.config()
	if err != nil {
		log.Println(err)
		os.Exit(exitFailure)
	}
	c, fm, err := pl.automaton(cfg.IntWidth)
	if err != nil {
		log.Println(err)
		os.Exit(exitFailure)
	}

	if pl.secondaryTask(c) {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	res, err := pl.verify(ctx, c, fm, cfg)
	stop()
	if err != nil {
		if errors.Is(err, lazy.ErrInternal) {
			log.Println(color.HiRedString("Internal error"))
		}
		log.Println(err)
		os.Exit(exitFailure)
	}

	fmt.Println("Verdict:", res.Verdict)
	switch res.Verdict {
	case lazy.Unsafe:
		if res.Trace != nil {
			fmt.Println(res.Trace)
		}
	case lazy.Unknown:
		fmt.Println("Reason:", res.Reason)
	}

	pl.renderART(res)
	gatherMetrics(res, c)

	switch res.Verdict {
	case lazy.Safe:
		os.Exit(exitSafe)
	case lazy.Unsafe:
		os.Exit(exitUnsafe)
	default:
		os.Exit(exitUnknown)
	}
}
