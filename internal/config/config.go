// Package config loads computegen settings from computegen.toml, the
// environment (COMPUTEGEN_*) and command-line flags.
package config

import "time"

// Config is the full run configuration.
type Config struct {
	// Source is the root of the RhinoCommon source tree
	Source string `mapstructure:"source"`
	// Dist is the directory that receives every generated client
	Dist string `mapstructure:"dist"`

	// Patterns select the classes that get documentation pages
	Patterns []string `mapstructure:"patterns"`
	// CodePatterns restrict code generation; empty means every class
	CodePatterns []string `mapstructure:"code_patterns"`

	Targets    []string `mapstructure:"targets"`
	DocTargets []string `mapstructure:"doc_targets"`

	Extract ExtractConfig `mapstructure:"extract"`
	Client  ClientConfig  `mapstructure:"client"`
	Log     LogConfig     `mapstructure:"log"`
	Repo    RepoConfig    `mapstructure:"repo"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// ExtractConfig controls how the source tree is read.
type ExtractConfig struct {
	ExcludeAttributes      []string `mapstructure:"exclude_attributes"`
	ExcludeGlobs           []string `mapstructure:"exclude_globs"`
	DropExpressionDefaults bool     `mapstructure:"drop_expression_defaults"`
	KeepOpaque             bool     `mapstructure:"keep_opaque"`
}

// ClientConfig holds values baked into the generated clients.
type ClientConfig struct {
	Version    string `mapstructure:"version"`
	ComputeURL string `mapstructure:"compute_url"`
	GoPackage  string `mapstructure:"go_package"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// RepoConfig describes where `computegen fetch` clones the reference source from.
type RepoConfig struct {
	URL   string `mapstructure:"url"`
	Ref   string `mapstructure:"ref"`
	Cache string `mapstructure:"cache"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}
