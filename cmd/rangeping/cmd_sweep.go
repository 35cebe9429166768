package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func runSweep(args []string) int {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	g := addGlobalFlags(fs)
	ra := addRangeFlags(fs)
	probeArgs := fs.String("args", "", "probe arguments; {addr} marks where the address goes")
	save := fs.Bool("save", false, "append the results to the site's history")
	fresh := fs.Bool("fresh", false, "with -save, start the history over")
	quiet := fs.Bool("quiet", false, "no per-address progress lines")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	defer a.Close()

	id, spec, mask, siteArgs, err := ra.resolve(a.sites)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	if *probeArgs == "" {
		*probeArgs = siteArgs
	}

	sess := a.engine.NewSession()
	entry, err := sess.ResolveRange(ctx, id, spec, mask)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Sweeping %s (%d hosts)\n", entry.Range.CIDR(), entry.HostCount)

	run, err := sess.Sweep(ctx, *probeArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	n := 0
	for res := range run.Outcomes() {
		n++
		if !*quiet {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", n, run.Total(), res.Address, res.Outcome)
		}
	}
	if err := run.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "sweep interrupted after %d of %d hosts\n", run.Len(), run.Total())
	}

	summary, err := sess.Summarize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	fmt.Print(summary)

	if *save {
		ok, err := sess.PersistResults(*fresh)
		switch {
		case err != nil:
			a.logger.Error("save history", zap.Error(err))
			return 1
		case !ok:
			fmt.Fprintln(os.Stderr, "results not saved: no -id or -site given")
		default:
			fmt.Fprintf(os.Stderr, "Results saved for %s\n", id)
		}
	}
	if run.Err() != nil {
		return 130
	}
	return 0
}
