package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"computegen/internal"
	"computegen/internal/config"
	"computegen/internal/logger"
)

var (
	configPath string
	// settings is built by the root command before any subcommand runs.
	settings *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "computegen",
	Short: "Generate Rhino compute clients from the RhinoCommon source",
	Long: `Reads the RhinoCommon C# source, builds a model of
its public classes and writes compute client proxies for JavaScript, Python,
.NET and Go, plus reStructuredText reference pages.

Without a subcommand computegen runs generate.

Examples:
  computegen --source rhino3dm/src/dotnet          # every target into ./dist
  computegen generate --target python --clean      # python only, fresh output
  computegen dump --format json                    # print the extracted model
  computegen fetch && computegen watch             # clone the source, then regenerate on change`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runGenerate,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to "+config.FileName+" (default: looked up from the working directory)")
	flags.StringP("source", "s", "", "Root of the RhinoCommon source tree")
	flags.StringP("dist", "o", "", "Output directory")
	flags.StringSlice("target", nil, "Code targets: javascript, python, dotnet, go")
	flags.StringSlice("doc-target", nil, "Documentation targets: javascript, python")
	flags.StringSlice("pattern", nil, "Class name substrings that get documentation")
	flags.StringSlice("code-pattern", nil, "Class name substrings that get client code (default: every class)")
	flags.String("compute-url", "", "Compute server URL baked into the clients")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.Bool("log-json", false, "Log JSON to stderr")

	generateFlags(rootCmd)
	rootCmd.AddCommand(generateCmd, checkCmd, dumpCmd, watchCmd, fetchCmd)
}

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"source":       "source",
	"dist":         "dist",
	"target":       "targets",
	"doc-target":   "doc_targets",
	"pattern":      "patterns",
	"code-pattern": "code_patterns",
	"compute-url":  "client.compute_url",
	"log-level":    "log.level",
	"log-json":     "log.json",
}

func setup(cmd *cobra.Command, _ []string) error {
	v, err := config.New(configPath)
	if err != nil {
		return err
	}
	for flag, key := range flagKeys {
		// a missing flag is a typo in flagKeys
		internal.PanicOnError(v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)))
	}
	settings = v

	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	cobra.OnFinalize(stop)
	cmd.SetContext(ctx)
	return nil
}
