package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactivecache/internal/config"
	"github.com/vango-dev/reactivecache/internal/errors"
	"github.com/vango-dev/reactivecache/internal/workload"
	"github.com/vango-dev/reactivecache/pkg/reactive"
)

func benchCmd(flags *globalFlags) *cobra.Command {
	var (
		names      []string
		iterations int
		writes     int
		chain      int
		fanOut     int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the built-in workloads",
		Long: `Run workloads repeatedly and report their timings and engine counters.

Sizes come from the bench section of the config file; flags override them.

Examples:
  reactivecache bench
  reactivecache bench -w chain -w fanout --writes=10000
  reactivecache bench --config=reactivecache.yaml -n 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for flag, v := range map[string]int{"iterations": iterations, "writes": writes, "chain": chain, "fanout": fanOut} {
				if v < 0 {
					return errors.New("E201").
						WithDetail(fmt.Sprintf("--%s is %d; it must not be negative.", flag, v))
				}
			}

			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			overrideInt(&cfg.Bench.Iterations, iterations)
			overrideInt(&cfg.Bench.Writes, writes)
			overrideInt(&cfg.Bench.ChainLength, chain)
			overrideInt(&cfg.Bench.FanOut, fanOut)

			selected := workload.All()
			if len(names) > 0 {
				selected = selected[:0]
				for _, name := range names {
					w, err := workload.Get(name)
					if err != nil {
						return err
					}
					selected = append(selected, w)
				}
			}

			out := cmd.OutOrStdout()
			reports := make([]benchReport, 0, len(selected))
			for _, w := range selected {
				report, err := benchWorkload(w, cfg, logger)
				if err != nil {
					return err
				}
				reports = append(reports, report)
			}
			printReports(out, reports)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&names, "workload", "w", nil, "Workloads to run (default: all)")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "Iterations per workload (default from config)")
	cmd.Flags().IntVar(&writes, "writes", 0, "Writes per iteration (default from config)")
	cmd.Flags().IntVar(&chain, "chain", 0, "Chain length (default from config)")
	cmd.Flags().IntVar(&fanOut, "fanout", 0, "Fan-out width (default from config)")

	return cmd
}

func overrideInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func benchParams(b config.BenchConfig) workload.Params {
	return workload.Params{
		ChainLength: b.ChainLength,
		FanOut:      b.FanOut,
		Writes:      b.Writes,
	}
}

// benchReport aggregates the iterations of one workload.
type benchReport struct {
	name       string
	iterations int
	min, max   time.Duration
	total      time.Duration
	last       reactive.Stats
}

func (r benchReport) mean() time.Duration {
	if r.iterations == 0 {
		return 0
	}
	return r.total / time.Duration(r.iterations)
}

func benchWorkload(w workload.Workload, cfg *config.Config, logger *slog.Logger) (benchReport, error) {
	report := benchReport{name: w.Name}
	for i := 0; i < cfg.Bench.Iterations; i++ {
		res, err := workload.Execute(w, benchParams(cfg.Bench), logger, reactive.WithCacheCapacity(cfg.Cache.Capacity))
		if err != nil {
			return report, err
		}
		logger.Debug("iteration done", "workload", res.Name, "iteration", i, "duration", res.Duration)
		if report.iterations == 0 || res.Duration < report.min {
			report.min = res.Duration
		}
		if res.Duration > report.max {
			report.max = res.Duration
		}
		report.total += res.Duration
		report.iterations++
		report.last = res.Stats
	}
	return report, nil
}

func printReports(w io.Writer, reports []benchReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKLOAD\tRUNS\tMIN\tMEAN\tMAX\tCOMPUTES\tHITS\tMISSES\tEVICTIONS\tREPLAYS")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.name, r.iterations, r.min, r.mean(), r.max,
			r.last.MemoComputes, r.last.CacheHits, r.last.CacheMisses,
			r.last.CacheEvictions, r.last.Replays)
	}
	tw.Flush()
}
