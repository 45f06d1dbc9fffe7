package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"computegen/internal/config"
	"computegen/internal/errors"
	"computegen/internal/generation"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the clients in the output directory are up to date",
	Long: `Generates every target into a temporary directory and compares the files
with the output directory.

Exit codes:
  0 - clients are up to date
  1 - clients are out of date (stale files listed) or generation failed`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(settings)
	if err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp("", "computegen-check-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tempDir)

	results, diagnostics, err := generate(cmd.Context(), cfg, tempDir)
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Err != nil {
			printSummary(results, diagnostics)
			return errors.New("generation failed, nothing to compare")
		}
	}

	stale, err := compareOutputs(tempDir, cfg.Dist, results)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		pterm.Success.Println("Clients are up to date")
		return nil
	}

	pterm.Error.Printfln("%d files are out of date:", len(stale))
	for _, rel := range stale {
		pterm.Printfln("  - %s", rel)
	}
	return errors.WithHint(errors.New("clients are out of date"), "run `computegen generate`")
}

// compareOutputs lists, relative to generated, every file of results whose
// counterpart below existing is missing or different.
func compareOutputs(generated, existing string, results []generation.Result) ([]string, error) {
	var stale []string
	for _, result := range results {
		for _, path := range result.Files {
			rel, err := filepath.Rel(generated, path)
			if err != nil {
				return nil, errors.Wrapf(err, "relating %s to %s", path, generated)
			}
			want, err := os.ReadFile(path)
			if err != nil {
				return nil, errors.Wrapf(err, "reading %s", path)
			}
			have, err := os.ReadFile(filepath.Join(existing, rel))
			if err != nil || !bytes.Equal(want, have) {
				stale = append(stale, filepath.ToSlash(rel))
			}
		}
	}
	sort.Strings(stale)
	return stale, nil
}
