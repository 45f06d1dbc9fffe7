package main

import (
	"context"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"computegen/internal/config"
	"computegen/internal/errors"
	"computegen/internal/generation"
	"computegen/internal/logger"
	"computegen/internal/metadata"
)

var (
	generateClean bool
	generateYes   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Extract the source model and write every configured client and doc set",
	RunE:  runGenerate,
}

func init() {
	generateFlags(generateCmd)
}

func generateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&generateClean, "clean", false, "Remove everything in the output directory first")
	cmd.Flags().BoolVarP(&generateYes, "yes", "y", false, "Clean without asking")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(settings)
	if err != nil {
		return err
	}
	if generateClean {
		if err := clearOutputDir(cfg.Dist, generateYes); err != nil {
			return err
		}
	}

	start := time.Now()
	results, diagnostics, err := generate(cmd.Context(), cfg, cfg.Dist)
	if err != nil {
		return err
	}
	if failed := printSummary(results, diagnostics); failed > 0 {
		return errors.Newf("%d of %d jobs failed", failed, len(results))
	}
	pterm.Success.Printfln("Done in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func extractOptions(cfg *config.Config) metadata.Options {
	return metadata.Options{
		ExcludeAttributes:      cfg.Extract.ExcludeAttributes,
		ExcludeGlobs:           cfg.Extract.ExcludeGlobs,
		DropExpressionDefaults: cfg.Extract.DropExpressionDefaults,
		KeepOpaque:             cfg.Extract.KeepOpaque,
	}
}

func clientOptions(cfg *config.Config) generation.Options {
	return generation.Options{
		Version:    cfg.Client.Version,
		ComputeURL: cfg.Client.ComputeURL,
		GoPackage:  cfg.Client.GoPackage,
	}
}

func parseTargets(names []string) ([]generation.Target, error) {
	targets := make([]generation.Target, 0, len(names))
	for _, name := range names {
		target, err := generation.ParseTarget(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func extract(ctx context.Context, cfg *config.Config) (*metadata.Registry, []metadata.Diagnostic, error) {
	reg, diagnostics, err := metadata.Extract(ctx, cfg.Source, extractOptions(cfg))
	if err != nil {
		return nil, diagnostics, err
	}
	logger.Named("extract").Infow("source model ready", "classes", reg.Len(), "diagnostics", len(diagnostics))
	return reg, diagnostics, nil
}

// generate runs one full pass: extraction, then every job below dist.
// Per-job failures are in the results; err is set only when nothing could run.
func generate(ctx context.Context, cfg *config.Config, dist string) ([]generation.Result, []metadata.Diagnostic, error) {
	targets, err := parseTargets(cfg.Targets)
	if err != nil {
		return nil, nil, err
	}
	docTargets, err := parseTargets(cfg.DocTargets)
	if err != nil {
		return nil, nil, err
	}

	reg, diagnostics, err := extract(ctx, cfg)
	if err != nil {
		return nil, diagnostics, err
	}
	jobs := generation.DefaultJobs(dist, targets, docTargets)
	return generation.Run(ctx, reg, jobs, cfg.CodePatterns, cfg.Patterns, clientOptions(cfg)), diagnostics, nil
}

// printSummary prints one line per job and returns how many failed.
func printSummary(results []generation.Result, diagnostics []metadata.Diagnostic) int {
	if len(diagnostics) > 0 {
		pterm.Warning.Printfln("%d source problems, affected files were skipped (see log)", len(diagnostics))
	}
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			pterm.Error.Printfln("%s: %v", result.Job, result.Err)
			continue
		}
		pterm.Success.Printfln("%s: %d files in %s", result.Job, len(result.Files), result.Job.Dir)
	}
	return failed
}

// clearOutputDir empties path before a clean run, asking first unless silent.
func clearOutputDir(path string, silent bool) error {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.IOWrap(err, "reading", path)
	}
	if len(entries) == 0 {
		return nil
	}

	if !silent {
		agreed, err := pterm.DefaultInteractiveConfirm.
			WithDefaultValue(false).
			Show("Output directory " + path + " is not empty. Remove everything in it?")
		if err != nil {
			return err
		}
		if !agreed {
			return errors.Configurationf("explicit agreement to clean %s was not given", path)
		}
	}

	pterm.Info.Printfln("Cleaning %s", path)
	return errors.IOWrap(os.RemoveAll(path), "removing", path)
}
