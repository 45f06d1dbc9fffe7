package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"computegen/internal/config"
	"computegen/internal/errors"
	"computegen/internal/generation"
	"computegen/internal/metadata"
)

const fixtureSource = `namespace Rhino.Geometry
{
  /// <summary>Represents a curve.</summary>
  public class Curve : GeometryBase
  {
    /// <summary>Gets the length of the curve.</summary>
    public double GetLength() { return 0.0; }

    public Curve[] Offset(double distance, bool loose = false) { return null; }

    public bool IsClosed => false;
  }
}
`

func TestMain(m *testing.M) {
	pterm.DisableOutput()
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	source := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(source, "Curve.cs"), []byte(fixtureSource), 0o644))
	return &config.Config{
		Source:     source,
		Dist:       t.TempDir(),
		Patterns:   []string{".Curve"},
		Targets:    config.CodeTargets,
		DocTargets: config.DocTargets,
		Extract: config.ExtractConfig{
			ExcludeAttributes:      []string{"ComputeIgnore"},
			DropExpressionDefaults: true,
		},
		Client: config.ClientConfig{Version: "0.1.0", ComputeURL: "http://localhost:8081/", GoPackage: "rhinocompute"},
	}
}

func TestGenerate(t *testing.T) {
	cfg := testConfig(t)

	results, diagnostics, err := generate(context.Background(), cfg, cfg.Dist)
	require.NoError(t, err)
	assert.Empty(t, diagnostics)
	require.Len(t, results, 6)
	for _, result := range results {
		assert.NoError(t, result.Err, result.Job.String())
		assert.NotEmpty(t, result.Files, result.Job.String())
	}
	assert.Zero(t, printSummary(results, diagnostics))

	assert.FileExists(t, filepath.Join(cfg.Dist, "javascript", generation.JavaScriptFile))
	assert.FileExists(t, filepath.Join(cfg.Dist, "python", generation.PythonPackage, "Curve.py"))
	assert.FileExists(t, filepath.Join(cfg.Dist, "dotnet", generation.DotNetFile))
	assert.FileExists(t, filepath.Join(cfg.Dist, "go", "rhinocompute", "rhinocompute.go"))
	assert.FileExists(t, filepath.Join(cfg.Dist, "javascript", "docs", "Curve.rst"))
	assert.FileExists(t, filepath.Join(cfg.Dist, "python", "docs", "index.rst"))

	// the bool default read from the source reaches the rendered signatures
	js, err := os.ReadFile(filepath.Join(cfg.Dist, "javascript", generation.JavaScriptFile))
	require.NoError(t, err)
	assert.Contains(t, string(js), "offset : function(thisCurve, distance, loose=false, multiple=false) {")
	py, err := os.ReadFile(filepath.Join(cfg.Dist, "python", generation.PythonPackage, "Curve.py"))
	require.NoError(t, err)
	assert.Contains(t, string(py), "def Offset(thisCurve, distance, loose=False, multiple=False):")
	cs, err := os.ReadFile(filepath.Join(cfg.Dist, "dotnet", generation.DotNetFile))
	require.NoError(t, err)
	assert.Contains(t, string(cs), "double distance, bool loose = false)")

	stale, err := compareOutputs(cfg.Dist, cfg.Dist, results)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestGenerateMissingSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = filepath.Join(t.TempDir(), "missing")

	_, _, err := generate(context.Background(), cfg, cfg.Dist)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestCheckFindsStaleFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Targets = []string{"javascript", "python"}
	cfg.DocTargets = nil

	results, _, err := generate(context.Background(), cfg, cfg.Dist)
	require.NoError(t, err)

	fresh := t.TempDir()
	fresher, _, err := generate(context.Background(), cfg, fresh)
	require.NoError(t, err)
	stale, err := compareOutputs(fresh, cfg.Dist, fresher)
	require.NoError(t, err)
	assert.Empty(t, stale)

	require.NoError(t, os.WriteFile(results[0].Files[0], []byte("// edited"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(cfg.Dist, "python", generation.PythonPackage, "Util.py")))

	stale, err = compareOutputs(fresh, cfg.Dist, fresher)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"javascript/" + generation.JavaScriptFile,
		"python/" + generation.PythonPackage + "/Util.py",
	}, stale)
}

func TestParseTargets(t *testing.T) {
	targets, err := parseTargets([]string{"go", "python"})
	require.NoError(t, err)
	assert.Equal(t, []generation.Target{generation.Go, generation.Python}, targets)

	_, err = parseTargets([]string{"cobol"})
	assert.True(t, errors.IsConfiguration(err))
}

func TestPrintSummaryCountsFailures(t *testing.T) {
	results := []generation.Result{
		{Job: generation.Job{Target: generation.Go}},
		{Job: generation.Job{Target: generation.Python}, Err: errors.Modelf("Curve.cs: no rendering")},
		{Job: generation.Job{Target: generation.Python, Docs: true}, Err: errors.New("disk full")},
	}
	assert.Equal(t, 2, printSummary(results, nil))
}

func TestWriteModel(t *testing.T) {
	reg, err := metadata.NewRegistry(&metadata.ClassDescriptor{
		Name: "Rhino.Geometry.Curve",
		Methods: []metadata.MethodDescriptor{{
			Name: "Offset",
			Params: []metadata.ParameterDescriptor{{
				Name:    "loose",
				Type:    metadata.PrimitiveOf(metadata.Bool, "bool"),
				Default: &metadata.Literal{Kind: metadata.LiteralBool, Text: "false"},
			}},
			Returns: metadata.ClassOf("Curve"),
		}},
	})
	require.NoError(t, err)
	dump := newModelDump(reg, []metadata.Diagnostic{{File: "Broken.cs", Message: "syntax error"}})

	var yamlOut bytes.Buffer
	require.NoError(t, writeModel(&yamlOut, "yaml", dump))
	assert.Contains(t, yamlOut.String(), "- name: Rhino.Geometry.Curve")
	assert.Contains(t, yamlOut.String(), "returns: Curve")
	assert.Contains(t, yamlOut.String(), "direction: in")
	assert.Contains(t, yamlOut.String(), "Broken.cs: syntax error")

	var jsonOut bytes.Buffer
	require.NoError(t, writeModel(&jsonOut, "json", dump))
	assert.Contains(t, jsonOut.String(), `"name": "Rhino.Geometry.Curve"`)
	assert.Contains(t, jsonOut.String(), `"returns": "Curve"`)
	assert.Contains(t, jsonOut.String(), `"default": "false"`)

	err = writeModel(&bytes.Buffer{}, "xml", dump)
	assert.True(t, errors.IsConfiguration(err))
}

func TestClearOutputDir(t *testing.T) {
	assert.NoError(t, clearOutputDir(filepath.Join(t.TempDir(), "missing"), true))

	empty := t.TempDir()
	assert.NoError(t, clearOutputDir(empty, false), "an empty directory needs no confirmation")
	assert.DirExists(t, empty)

	full := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(full, "old.js"), []byte("x"), 0o644))
	require.NoError(t, clearOutputDir(full, true))
	assert.NoDirExists(t, full)

	file := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	err := clearOutputDir(file, true)
	require.Error(t, err)
	assert.True(t, errors.IsIO(err))
	assert.Contains(t, err.Error(), "reading "+file)
}
