package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactivecache/internal/config"
	"github.com/vango-dev/reactivecache/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┌─┐┌─┐┌─┐┌┬┐┬┬  ┬┌─┐
  ├┬┘├┤ ├─┤│   │ │└┐┌┘├┤
  ┴└─└─┘┴ ┴└─┘ ┴ ┴ └┘ └─┘ cache
`

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "reactivecache",
		Short: "Run and inspect a fine-grained reactive engine",
		Long: `reactivecache drives a single-threaded reactive engine made of
cells, memoized computations and reactions.

  • demo: walk through the reference scenario step by step
  • bench: time the built-in workloads
  • serve: run a live workload behind an HTTP and WebSocket inspector`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				errors.DisableColors()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file (.json, .yaml, .yml or .toml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (overrides config)")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		demoCmd(flags),
		benchCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)

	return rootCmd
}

// load reads the config file (if any), applies flag overrides, validates
// the result and builds the logger.
func (f *globalFlags) load(logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg := config.New()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Logger(logOut), nil
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
