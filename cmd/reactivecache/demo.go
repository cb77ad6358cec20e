package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactivecache/internal/workload"
	"github.com/vango-dev/reactivecache/pkg/reactive"
)

func demoCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo [workload]",
		Short: "Run one workload and explain what the engine did",
		Long: `Run a single workload, logging each step, then print the engine counters.

Without an argument the reference scenario runs: A=10, B=5, C=A+B, D=C*2,
then A=20, then a reaction watching D.

Examples:
  reactivecache demo
  reactivecache demo diamond --log-level=debug`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "scenario"
			if len(args) == 1 {
				name = args[0]
			}
			return runDemo(cmd, flags, name)
		},
	}
	return cmd
}

func runDemo(cmd *cobra.Command, flags *globalFlags, name string) error {
	out := cmd.OutOrStdout()
	cfg, logger, err := flags.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	w, err := workload.Get(name)
	if err != nil {
		return err
	}

	info(out, "%s: %s", w.Name, w.Description)
	res, err := workload.Execute(w, benchParams(cfg.Bench), logger, reactive.WithCacheCapacity(cfg.Cache.Capacity))
	if err != nil {
		return err
	}

	success(out, "%s passed in %s", w.Name, res.Duration)
	fmt.Fprintln(out)
	printStats(out, res.Stats)
	return nil
}

// printStats writes the engine counters as an aligned two-column table.
func printStats(w io.Writer, st reactive.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		name  string
		value any
	}{
		{"cell reads", st.CellReads},
		{"writes (changed)", st.WritesChanged},
		{"writes (unchanged)", st.WritesUnchanged},
		{"forced invalidations", st.ForcedInvalidate},
		{"memo computations", st.MemoComputes},
		{"invalidations", st.Invalidations},
		{"cache hits", st.CacheHits},
		{"cache misses", st.CacheMisses},
		{"cache bypasses", st.CacheBypasses},
		{"cache evictions", st.CacheEvictions},
		{"collecting runs", st.CollectingRuns},
		{"replays", st.Replays},
		{"pruned references", st.Pruned},
		{"cache sweeps", st.Sweeps},
		{"cache entries", fmt.Sprintf("%d/%d", st.CacheEntries, st.CacheCapacity)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s\t%v\n", r.name, r.value)
	}
	tw.Flush()
}
