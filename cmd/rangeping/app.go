package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HerbHall/rangeping/internal/config"
	"github.com/HerbHall/rangeping/internal/history"
	"github.com/HerbHall/rangeping/internal/probe"
	"github.com/HerbHall/rangeping/internal/rangecache"
	"github.com/HerbHall/rangeping/internal/rangeping"
	"github.com/HerbHall/rangeping/internal/sites"
	"github.com/HerbHall/rangeping/internal/store"
	"github.com/HerbHall/rangeping/internal/sweep"
)

// globalFlags are accepted by every command.
type globalFlags struct {
	config *string
	debug  *bool
}

func addGlobalFlags(fs *flag.FlagSet) globalFlags {
	return globalFlags{
		config: fs.String("config", "", "path to configuration file (default ./rangeping.yaml if present)"),
		debug:  fs.Bool("debug", false, "human-readable debug logging"),
	}
}

// app is the wiring shared by the commands.
type app struct {
	settings config.Settings
	logger   *zap.Logger
	store    *store.SQLiteStore
	engine   *rangeping.Engine
	sites    *sites.Inventory
	registry *prometheus.Registry
}

func newApp(ctx context.Context, g globalFlags) (*app, error) {
	cfg, err := config.Load(*g.config)
	if err != nil {
		return nil, err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(settings.Log.Level, *g.debug)
	if err != nil {
		return nil, err
	}
	if f := cfg.ConfigFile(); f != "" {
		logger.Debug("configuration loaded", zap.String("file", f))
	}

	for _, dir := range []string{settings.DataDir, filepath.Dir(settings.Cache.Path)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := store.New(settings.Cache.Path)
	if err != nil {
		return nil, err
	}
	kv, err := rangecache.NewSQLiteKV(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	var inv *sites.Inventory
	if settings.Sites.Path != "" {
		inv, err = sites.Load(settings.Sites.Path)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Debug("site inventory loaded", zap.Int("sites", len(inv.Sites)))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sweepOpts := []sweep.Option{sweep.WithMetrics(sweep.NewMetrics(reg))}
	if settings.Probe.Rate > 0 {
		sweepOpts = append(sweepOpts, sweep.WithRateLimit(settings.Probe.Rate))
	}

	engine := rangeping.NewEngine(
		rangecache.New(kv, logger.Named("rangecache")),
		history.NewStore(settings.History.Dir, logger.Named("history")),
		probers(settings.Probe, logger),
		logger,
		rangeping.WithSweepOptions(sweepOpts...),
	)

	return &app{
		settings: settings,
		logger:   logger,
		store:    db,
		engine:   engine,
		sites:    inv,
		registry: reg,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// probers builds probes for the configured backend. Per-sweep args only
// apply to the command backend.
func probers(p config.ProbeSettings, logger *zap.Logger) rangeping.ProberFactory {
	return func(args string) probe.Prober {
		if p.Backend == config.BackendICMP {
			if args != "" {
				logger.Warn("probe args ignored by icmp backend", zap.String("args", args))
			}
			return probe.NewICMPProber(p.Timeout, p.Count)
		}
		if args == "" {
			args = p.Args
		}
		return probe.NewCommandProber(p.Command, args, p.Timeout)
	}
}

func newLogger(level string, debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// rangeArgs are the flags naming a block, directly or through a site.
type rangeArgs struct {
	site    *string
	id      *string
	address *string
	mask    *string
}

func addRangeFlags(fs *flag.FlagSet) rangeArgs {
	return rangeArgs{
		site:    fs.String("site", "", "site from the inventory (sets -id and the block)"),
		id:      fs.String("id", "", "identifier to cache the range and history under"),
		address: fs.String("address", "", "network address, or a CIDR block when -mask is empty"),
		mask:    fs.String("mask", "", "dotted subnet mask, e.g. 255.255.255.0"),
	}
}

// resolve returns identifier, block spec, mask and the site's probe args.
func (r rangeArgs) resolve(inv *sites.Inventory) (id, spec, mask, args string, err error) {
	id, spec, mask = *r.id, *r.address, *r.mask
	if *r.site == "" {
		return id, spec, mask, "", nil
	}
	site, err := inv.Lookup(*r.site)
	if err != nil {
		return "", "", "", "", err
	}
	if id == "" {
		id = *r.site
	}
	spec, mask = site.Spec()
	return id, spec, mask, site.ProbeArgs, nil
}
