package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	g := addGlobalFlags(fs)
	id := fs.String("id", "", "site identifier; empty lists sites with history")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := newApp(context.Background(), g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	defer a.Close()

	hist := a.engine.History()
	if *id == "" {
		ids, err := hist.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
			return 1
		}
		for _, s := range ids {
			fmt.Println(s)
		}
		return 0
	}

	tbl, err := hist.Load(*id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rangeping: %v\n", err)
		return 1
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, rec := range tbl.Records() {
		fmt.Fprintln(tw, strings.Join(rec, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}
