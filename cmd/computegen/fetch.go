package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"computegen/internal"
	"computegen/internal/config"
	"computegen/internal/metadata"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Clone the reference source into the cache directory",
	Long: `Makes a shallow clone of repo.url at repo.ref into repo.cache. The ref
"latest" picks the highest version tag. A checkout of the same ref is reused.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("url", "", "Repository to clone")
	fetchCmd.Flags().String("ref", "", "Tag or branch, or latest for the highest version tag")
	fetchCmd.Flags().String("cache", "", "Directory that receives the checkout")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	for flag, key := range map[string]string{"url": "repo.url", "ref": "repo.ref", "cache": "repo.cache"} {
		internal.PanicOnError(settings.BindPFlag(key, cmd.Flags().Lookup(flag)))
	}
	// no source tree exists yet, so the config is not validated
	cfg, err := config.Decode(settings)
	if err != nil {
		return err
	}

	spinner, _ := pterm.DefaultSpinner.Start("Fetching " + cfg.Repo.URL + " at " + cfg.Repo.Ref)
	ref, err := metadata.FetchSource(cmd.Context(), cfg.Repo.URL, cfg.Repo.Ref, cfg.Repo.Cache)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return err
	}
	if spinner != nil {
		spinner.Success("Fetched " + ref + " into " + cfg.Repo.Cache)
	}
	pterm.Info.Printfln("Generate with: computegen --source %s", cfg.Repo.Cache)
	return nil
}
