package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/rangeping/internal/backup"
	"github.com/HerbHall/rangeping/internal/config"
)

func runBackup(args []string) int {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	g := addGlobalFlags(fs)
	output := fs.String("output", "", "output file path (default: rangeping-backup-{timestamp}.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*g.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		return 1
	}
	settings, err := cfg.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		return 1
	}

	if *output == "" {
		*output = fmt.Sprintf("rangeping-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
	}

	ctx := context.Background()
	if err := backup.Backup(ctx, settings.Cache.Path, settings.History.Dir, cfg.ConfigFile(), *output); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		return 1
	}
	fmt.Printf("Backup created: %s\n", *output)
	return 0
}
