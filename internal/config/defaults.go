package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultPatterns is the curated set of classes that get reference docs.
var DefaultPatterns = []string{
	".AreaMassProperties",
	".BezierCurve",
	".Brep", ".BrepFace",
	".Curve", ".Extrusion", ".GeometryBase", ".Intersection", ".Mesh",
	".NurbsCurve", ".NurbsSurface", ".SubD", ".Surface",
	".VolumeMassProperties",
}

// CodeTargets and DocTargets name the emitters a config may ask for.
var (
	CodeTargets = []string{"javascript", "python", "dotnet", "go"}
	DocTargets  = []string{"javascript", "python"}
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source", "")
	v.SetDefault("dist", "dist")
	v.SetDefault("patterns", DefaultPatterns)
	v.SetDefault("code_patterns", []string{})
	v.SetDefault("targets", CodeTargets)
	v.SetDefault("doc_targets", DocTargets)

	v.SetDefault("extract.exclude_attributes", []string{"ComputeIgnore", "Obsolete"})
	v.SetDefault("extract.exclude_globs", []string{"**/obj/**", "**/bin/**", "**/*.Designer.cs"})
	v.SetDefault("extract.drop_expression_defaults", true)
	v.SetDefault("extract.keep_opaque", false)

	v.SetDefault("client.version", "0.12.0")
	v.SetDefault("client.compute_url", "https://compute.rhino3d.com/")
	v.SetDefault("client.go_package", "rhinocompute")

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("repo.url", "https://github.com/mcneel/rhino3dm.git")
	v.SetDefault("repo.ref", "latest")
	v.SetDefault("repo.cache", ".computegen/source")

	v.SetDefault("watch.debounce", 500*time.Millisecond)
}
