package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/HerbHall/rangeping/internal/backup"
	"github.com/HerbHall/rangeping/internal/config"
)

func runRestore(args []string) int {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	g := addGlobalFlags(fs)
	input := fs.String("input", "", "backup archive to restore (required)")
	dataDir := fs.String("data-dir", "", "restore everything into this directory instead of the configured locations")
	force := fs.Bool("force", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *input == "" {
		fmt.Fprintln(os.Stderr, "error: -input is required")
		fs.Usage()
		return 2
	}

	var targets backup.Targets
	if *dataDir != "" {
		targets = backup.FlatTargets(*dataDir)
	} else {
		cfg, err := config.Load(*g.config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
			return 1
		}
		settings, err := cfg.Settings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
			return 1
		}
		targets = backup.TargetsFor(settings, cfg.ConfigFile())
	}

	files, err := backup.Restore(context.Background(), *input, targets, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
		return 1
	}
	for _, f := range files {
		fmt.Println(f)
	}
	fmt.Printf("Restore complete: %d files restored\n", len(files))
	return 0
}
