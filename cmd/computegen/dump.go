package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"computegen/internal/config"
	"computegen/internal/errors"
	"computegen/internal/metadata"
)

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the extracted source model",
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "yaml", "Output format: yaml or json")
}

// modelDump is what dump prints: the classes in registry order and the
// problems found on the way.
type modelDump struct {
	Classes     []*metadata.ClassDescriptor `yaml:"classes" json:"classes"`
	Diagnostics []string                    `yaml:"diagnostics,omitempty" json:"diagnostics,omitempty"`
}

func newModelDump(reg *metadata.Registry, diagnostics []metadata.Diagnostic) modelDump {
	dump := modelDump{Classes: reg.Classes()}
	for _, d := range diagnostics {
		dump.Diagnostics = append(dump.Diagnostics, d.String())
	}
	return dump
}

func runDump(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(settings)
	if err != nil {
		return err
	}
	reg, diagnostics, err := extract(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return writeModel(cmd.OutOrStdout(), dumpFormat, newModelDump(reg, diagnostics))
}

func writeModel(w io.Writer, format string, dump modelDump) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(dump); err != nil {
			return errors.Wrap(err, "encoding model")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(dump), "encoding model")
	default:
		return errors.WithHint(errors.Configurationf("unknown dump format %q", format), "use yaml or json")
	}
}
