package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/HerbHall/rangeping/internal/addrrange"
	"github.com/HerbHall/rangeping/internal/rangecache"
)

func runRange(args []string) int {
	fs := flag.NewFlagSet("range", flag.ExitOnError)
	g := addGlobalFlags(fs)
	ra := addRangeFlags(fs)
	overwrite := fs.Bool("overwrite", false, "replace the cached range for -id")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	a, err := newApp(ctx, g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	defer a.Close()

	id, spec, mask, _, err := ra.resolve(a.sites)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}

	var e rangecache.Entry
	if *overwrite {
		r, perr := addrrange.Parse(spec, mask)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "rangeping: %v\n", perr)
			return 1
		}
		if _, err := a.engine.Cache().Save(ctx, id, r, true); err != nil {
			fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
			return 1
		}
		e = rangecache.Entry{Identifier: id, Range: r, HostCount: r.HostCount()}
	} else {
		e, err = a.engine.NewSession().ResolveRange(ctx, id, spec, mask)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
			return 1
		}
	}

	if e.Identifier != "" {
		fmt.Printf("id:      %s\n", e.Identifier)
	}
	fmt.Printf("network: %s\n", e.Range.Addr())
	fmt.Printf("mask:    %s\n", e.Range.Netmask())
	fmt.Printf("cidr:    %s\n", e.Range.CIDR())
	fmt.Printf("hosts:   %d\n", e.HostCount)
	return 0
}
