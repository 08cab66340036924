// Package cli holds the cobra commands of the extractor binary.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mamaar/extractor/internal/app"
	"github.com/mamaar/extractor/internal/config"
)

// globals are the persistent flags shared by every command.
type globals struct {
	configFile string
	verbose    bool
}

// NewRootCommand builds the extractor command tree.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "extractor",
		Short: "Find extract-method opportunities in Go code",
		Long: `extractor mines methods and types for runs of statements that share
the same variables, turns them into candidate methods with inferred
signatures, and ranks them by how much they improve cohesion.

Targets are written Type.Method, Type (every method of the type) or
Function.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configFile, "config", "", "config file (default .extractor.yaml in the working or home directory)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(newMineCommand(g))
	root.AddCommand(newTableCommand(g))
	root.AddCommand(newWatchCommand(g))
	root.AddCommand(newMCPCommand(g))
	root.AddCommand(newVersionCommand())
	return root
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"verbose":     "verbose",
	"tolerance":   "tolerance",
	"workers":     "workers",
	"format":      "output.format",
	"limit":       "output.limit",
	"diff":        "output.diff",
	"color":       "output.color",
	"name":        "naming.enabled",
	"model":       "naming.model",
	"evaluate":    "evaluate.enabled",
	"cross-class": "evaluate.cross_class",
	"debounce":    "watch.debounce",
}

// loadConfig reads the configuration with cmd's flags layered on top.
func loadConfig(cmd *cobra.Command, g *globals) (*config.Config, error) {
	loader := config.NewLoader(".", g.configFile)
	v := loader.Viper()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return nil, bindErr
	}
	return loader.Load()
}

// setup loads the configuration and builds the logger and miner for one
// command invocation.
func setup(cmd *cobra.Command, g *globals) (*config.Config, *slog.Logger, *app.Miner, error) {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	miner, err := app.NewMiner(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, miner, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// dirAndTarget splits "[dir] target" arguments.
func dirAndTarget(args []string) (string, string) {
	if len(args) == 1 {
		return ".", args[0]
	}
	return args[0], args[1]
}

func addMiningFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.Flags()
	f.Int("tolerance", d.Tolerance, "lines a synthesized candidate may drift from its opportunity")
	f.Int("workers", d.Workers, "concurrent placement trials")
	f.Bool("name", d.Naming.Enabled, "ask a model to name candidates")
	f.String("model", d.Naming.Model, "model used for naming")
	f.Bool("evaluate", d.Evaluate.Enabled, "evaluate where each candidate should live")
	f.Bool("cross-class", d.Evaluate.CrossClass, "try moving candidates to other types")
}

func addOutputFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.Flags()
	f.StringP("format", "f", d.Output.Format, "output format: text, json or yaml")
	f.IntP("limit", "n", d.Output.Limit, "show at most this many candidates (0 for all)")
	f.Bool("diff", d.Output.Diff, "show the residual diff of each candidate")
	f.Bool("color", d.Output.Color, "colorize text output")
}
