// Command cldriver hammers a concurrent set with random operations from
// several goroutines and logs a record around every operation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/metailurini/lazylist/driver"
)

type options struct {
	configPath  string
	maxItem     int
	threads     int
	ops         int
	strategy    string
	mix         string
	partitioned bool
	seed        int64
	format      string
	logLevel    string
}

func parseFlags(args []string, stderr io.Writer) (options, map[string]bool, error) {
	def := driver.DefaultConfig()
	var o options
	fs := flag.NewFlagSet("cldriver", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "JSON workload file; flags override its values")
	fs.IntVar(&o.maxItem, "max-item", def.MaxItem, "largest item a worker draws")
	fs.IntVar(&o.threads, "threads", def.Threads, "number of workers")
	fs.IntVar(&o.ops, "ops", def.OpsPerThread, "operations per worker")
	fs.StringVar(&o.strategy, "strategy", def.Strategy, "set implementation: lock-coupling or lock-free")
	fs.StringVar(&o.mix, "mix", def.Mix, "operation mix: uniform or read-heavy")
	fs.BoolVar(&o.partitioned, "partitioned", def.Partitioned, "give workers disjoint ranges and verify against a sequential model")
	fs.Int64Var(&o.seed, "seed", def.Seed, "random seed, 0 for time based")
	fs.StringVar(&o.format, "format", def.Format, "record format: csv, text or json")
	fs.StringVar(&o.logLevel, "log-level", "info", "diagnostic log level")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

func buildConfig(o options, set map[string]bool) (driver.Config, error) {
	cfg := driver.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = driver.LoadConfig(o.configPath); err != nil {
			return driver.Config{}, err
		}
	}
	if set["max-item"] {
		cfg.MaxItem = o.maxItem
	}
	if set["threads"] {
		cfg.Threads = o.threads
	}
	if set["ops"] {
		cfg.OpsPerThread = o.ops
	}
	if set["strategy"] {
		cfg.Strategy = o.strategy
	}
	if set["mix"] {
		cfg.Mix = o.mix
	}
	if set["partitioned"] {
		cfg.Partitioned = o.partitioned
	}
	if set["seed"] {
		cfg.Seed = o.seed
	}
	if set["format"] {
		cfg.Format = o.format
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	diag := log.New()
	diag.SetOutput(stderr)
	diag.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	diag.SetLevel(level)

	cfg, err := buildConfig(o, set)
	if err != nil {
		return err
	}
	records, err := driver.NewRecordLogger(stdout, cfg.Format)
	if err != nil {
		return err
	}

	report, err := driver.Run(ctx, cfg, records, log.NewEntry(diag))
	if report != nil {
		diag.WithFields(log.Fields{
			"strategy":   report.Strategy,
			"elapsed":    report.Elapsed,
			"ops":        report.Ops,
			"effective":  report.Effective,
			"len":        report.Len,
			"retries":    report.Stats.ValidationFailures + report.Stats.CASRetries,
			"snips":      report.Stats.Snips,
			"abandoned":  report.Stats.ReplaceAbandoned,
			"mismatches": report.Mismatches,
		}).Info("run finished")
		diag.WithField("items", fmt.Sprint(report.Snapshot)).Debug("final set")
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.WithError(err).Error("cldriver failed")
		stop()
		os.Exit(1)
	}
}
