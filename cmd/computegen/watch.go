package main

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"computegen/internal/config"
	"computegen/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Generate, then generate again whenever a source file changes",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(settings)
	if err != nil {
		return err
	}
	w, err := watch.New(watch.Config{
		Root:     cfg.Source,
		Excludes: cfg.Extract.ExcludeGlobs,
		Debounce: cfg.Watch.Debounce,
	})
	if err != nil {
		return err
	}

	rebuild := func(ctx context.Context, changed []string) {
		if len(changed) > 0 {
			pterm.Info.Printfln("%d source files changed, regenerating", len(changed))
		}
		results, diagnostics, err := generate(ctx, cfg, cfg.Dist)
		if err != nil {
			pterm.Error.Println(err.Error())
			return
		}
		printSummary(results, diagnostics)
	}

	ctx := cmd.Context()
	rebuild(ctx, nil)
	pterm.Info.Printfln("Watching %s, press Ctrl-C to stop", cfg.Source)
	return w.Run(ctx, rebuild)
}
