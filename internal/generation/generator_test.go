package generation

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"computegen/internal/errors"
	"computegen/internal/metadata"
)

func double() metadata.TypeRef { return metadata.PrimitiveOf(metadata.Double, "double") }
func boolean() metadata.TypeRef { return metadata.PrimitiveOf(metadata.Bool, "bool") }

// curveClass is built fresh per test because NewRegistry assigns overloads in place.
func curveClass() *metadata.ClassDescriptor {
	return &metadata.ClassDescriptor{
		Name:    "Rhino.Geometry.Curve",
		Base:    "GeometryBase",
		Summary: "Represents a curve.",
		File:    "Curve.cs",
		Methods: []metadata.MethodDescriptor{
			{Name: "GetLength", Returns: double(), Summary: "Gets the length of the curve.", ReturnsDoc: "The length."},
			{
				Name: "Offset",
				Params: []metadata.ParameterDescriptor{
					{Name: "plane", Type: metadata.ClassOf("Plane")},
					{Name: "distance", Type: double(), Doc: "Offset distance."},
					{Name: "tolerance", Type: double(), Default: &metadata.Literal{Kind: metadata.LiteralNumber, Text: "0.01"}},
				},
				Returns: metadata.ArrayOf(metadata.ClassOf("Curve")),
			},
			{
				Name: "Offset",
				Params: []metadata.ParameterDescriptor{
					{Name: "distance", Type: double()},
					{Name: "loose", Type: boolean(), Default: &metadata.Literal{Kind: metadata.LiteralBool, Text: "false"}},
				},
				Returns: metadata.ArrayOf(metadata.ClassOf("Curve")),
			},
			{
				Name: "ClosestPoint",
				Params: []metadata.ParameterDescriptor{
					{Name: "testPoint", Type: metadata.ClassOf("Point3d")},
					{Name: "t", Type: double(), Direction: metadata.Out, Doc: "Parameter of the closest point."},
				},
				Returns: boolean(),
			},
		},
		Properties: []metadata.PropertyDescriptor{
			{Name: "IsClosed", Type: boolean(), CanRead: true, Summary: "Whether the curve is closed."},
		},
	}
}

func curveRegistry(t *testing.T, extra ...*metadata.ClassDescriptor) *metadata.Registry {
	t.Helper()
	reg, err := metadata.NewRegistry(append([]*metadata.ClassDescriptor{curveClass()}, extra...)...)
	require.NoError(t, err)
	return reg
}

var testOptions = Options{Version: "1.2.3", ComputeURL: "http://localhost:8081"}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestParseTarget(t *testing.T) {
	for _, name := range []string{"javascript", "python", "dotnet", "go", " Python "} {
		_, err := ParseTarget(name)
		assert.NoError(t, err, name)
	}

	_, err := ParseTarget("ruby")
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, "0.0.0", opts.Version)
	assert.Equal(t, "https://compute.rhino3d.com/", opts.ComputeURL)
	assert.Equal(t, "rhinocompute", opts.GoPackage)

	assert.Equal(t, "http://localhost:8081/", testOptions.withDefaults().ComputeURL)
}

func TestEmitJavaScript(t *testing.T) {
	dir := t.TempDir()
	files, err := Emit(JavaScript, curveRegistry(t), dir, nil, testOptions)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, JavaScriptFile)}, files)

	js := readOutput(t, files[0])
	assert.Contains(t, js, `version: "1.2.3"`)
	assert.Contains(t, js, `url: "http://localhost:8081/"`)
	assert.Contains(t, js, "    Curve : {\n")
	assert.Contains(t, js, "getLength : function(thisCurve, multiple=false) {")
	assert.Contains(t, js, `let url="rhino/geometry/curve/getlength-curve";`)
	assert.Contains(t, js, "offset : function(thisCurve, plane, distance, tolerance=0.01, multiple=false) {")
	assert.Contains(t, js, `let url="rhino/geometry/curve/offset-curve_plane_double_double";`)
	assert.Contains(t, js, "offset1 : function(thisCurve, distance, loose=false, multiple=false) {")
	assert.Contains(t, js, `let url="rhino/geometry/curve/offset-curve_double_bool";`)
	assert.Contains(t, js, "let args = RhinoCompute.zipArgs(multiple, thisCurve, testPoint);")
	assert.Contains(t, js, "getIsClosed : function(thisCurve, multiple=false) {")
	assert.Contains(t, js, "module.exports = RhinoCompute;")
}

func TestEmitPython(t *testing.T) {
	dir := t.TempDir()
	files, err := Emit(Python, curveRegistry(t), dir, nil, testOptions)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, PythonPackage, "Curve.py"),
		filepath.Join(dir, PythonPackage, "__init__.py"),
		filepath.Join(dir, PythonPackage, "Util.py"),
	}, files)

	module := readOutput(t, filepath.Join(dir, PythonPackage, "Curve.py"))
	assert.Contains(t, module, "def GetLength(thisCurve, multiple=False):")
	assert.Contains(t, module, "def Offset(thisCurve, plane, distance, tolerance=0.01, multiple=False):")
	assert.Contains(t, module, "def Offset1(thisCurve, distance, loose=False, multiple=False):")
	assert.Contains(t, module, "def ClosestPoint(thisCurve, testPoint, multiple=False):")
	assert.Contains(t, module, "def GetIsClosed(thisCurve, multiple=False):")
	assert.Contains(t, module, `url = "rhino/geometry/curve/closestpoint-curve_point3d"`)
	assert.Contains(t, module, "if multiple: args = list(zip(thisCurve, testPoint))")
	assert.Contains(t, module, "if not multiple: response = tuple(response)")
	assert.Contains(t, module, "response = Util.DecodeToCommonObject(response)")
	assert.Contains(t, module, "thisCurve (rhino3dm.Curve): The Curve to call Offset on.")
	assert.Contains(t, module, "distance (float): Offset distance.")
	assert.Contains(t, module, "tuple[bool, float]: (rc, t)")

	init := readOutput(t, filepath.Join(dir, PythonPackage, "__init__.py"))
	assert.Contains(t, init, "from . import Util\nfrom . import Curve\n")

	util := readOutput(t, filepath.Join(dir, PythonPackage, "Util.py"))
	assert.Contains(t, util, `__version__ = "1.2.3"`)
	assert.Contains(t, util, `url = "http://localhost:8081/"`)
}

func TestEmitPythonEscapesDocstrings(t *testing.T) {
	mesh := &metadata.ClassDescriptor{
		Name: "Rhino.Geometry.Mesh",
		File: "Mesh.cs",
		Methods: []metadata.MethodDescriptor{{
			Name:     "Load",
			IsStatic: true,
			Params: []metadata.ParameterDescriptor{{
				Name: "scale",
				Type: double(),
				Doc:  `Factor, see """units""".`,
			}},
			Returns:    double(),
			Summary:    `Reads C:\temp\mesh.3dm.`,
			ReturnsDoc: `Ends with a quote "`,
		}},
	}
	dir := t.TempDir()
	_, err := Emit(Python, curveRegistry(t, mesh), dir, nil, testOptions)
	require.NoError(t, err)

	module := readOutput(t, filepath.Join(dir, PythonPackage, "Mesh.py"))
	assert.Contains(t, module, `    Reads C:\\temp\\mesh.3dm.`+"\n")
	assert.Contains(t, module, `scale (float): Factor, see \"\"\"units\"\"\".`+"\n")
	assert.Contains(t, module, `float: Ends with a quote "`+"\n")
	assert.NotContains(t, module, `"""units`)
}

func TestEmitDotNet(t *testing.T) {
	dir := t.TempDir()
	files, err := Emit(DotNet, curveRegistry(t), dir, nil, testOptions)
	require.NoError(t, err)
	require.Len(t, files, 1)

	cs := readOutput(t, files[0])
	assert.Contains(t, cs, "using Rhino.Geometry;\n")
	assert.Contains(t, cs, "public static class CurveCompute")
	assert.Contains(t, cs, "public static double GetLength(this Rhino.Geometry.Curve thisCurve)")
	assert.Contains(t, cs, "public static Curve[] Offset(this Rhino.Geometry.Curve thisCurve, Plane plane, double distance, double tolerance = 0.01)")
	assert.Contains(t, cs, "public static Curve[] Offset(this Rhino.Geometry.Curve thisCurve, double distance, bool loose = false)")
	assert.Contains(t, cs, `return ComputeServer.Post<Curve[]>("rhino/geometry/curve/offset-curve_double_bool", thisCurve, distance, loose);`)
	assert.Contains(t, cs, "public static bool ClosestPoint(this Rhino.Geometry.Curve thisCurve, Point3d testPoint, out double t)")
	assert.Contains(t, cs, `var results = ComputeServer.PostMultiple("rhino/geometry/curve/closestpoint-curve_point3d", thisCurve, testPoint);`)
	assert.Contains(t, cs, "t = ComputeServer.Result<double>(results, 1);")
	assert.Contains(t, cs, "return ComputeServer.Result<bool>(results, 0);")
	assert.NotContains(t, cs, "Offset1")
}

func TestEmitGo(t *testing.T) {
	dir := t.TempDir()
	files, err := Emit(Go, curveRegistry(t), dir, nil, testOptions)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "rhinocompute", "rhinocompute.go")}, files)

	src := readOutput(t, files[0])
	assert.Contains(t, src, "// Code generated by computegen. DO NOT EDIT.")
	assert.Contains(t, src, "package rhinocompute")
	assert.Contains(t, src, `DefaultURL = "http://localhost:8081/"`)
	assert.Regexp(t, regexp.MustCompile(`Curve\s+= CommonObject`), src)
	assert.Regexp(t, regexp.MustCompile(`Point3d\s+= json\.RawMessage`), src)
	assert.Contains(t, src, "func (c *Client) CurveGetLength(ctx context.Context, thisCurve Curve) (float64, error) {")
	assert.Contains(t, src, "func (c *Client) CurveOffset1(ctx context.Context, thisCurve Curve, distance float64, loose bool) ([]Curve, error) {")
	assert.Contains(t, src, "func (c *Client) CurveClosestPoint(ctx context.Context, thisCurve Curve, testPoint Point3d) (bool, float64, error) {")
	assert.Contains(t, src, `err := c.Call(ctx, "rhino/geometry/curve/closestpoint-curve_point3d", []any{thisCurve, testPoint}, &r0, &r1)`)
	assert.Contains(t, src, "return r0, r1, err")
}

func TestEmitGoPackageOption(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions
	opts.GoPackage = "compute"
	files, err := Emit(Go, curveRegistry(t), dir, nil, opts)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "compute", "compute.go")}, files)
	assert.Contains(t, readOutput(t, files[0]), "package compute")
}

func TestEmitIsDeterministic(t *testing.T) {
	reg := curveRegistry(t)
	for _, target := range Targets {
		t.Run(string(target), func(t *testing.T) {
			first, second := t.TempDir(), t.TempDir()
			a, err := Emit(target, reg, first, nil, testOptions)
			require.NoError(t, err)
			b, err := Emit(target, reg, second, nil, testOptions)
			require.NoError(t, err)
			require.Len(t, b, len(a))
			for i := range a {
				rel, err := filepath.Rel(first, a[i])
				require.NoError(t, err)
				assert.Equal(t, readOutput(t, a[i]), readOutput(t, filepath.Join(second, rel)), rel)
			}
		})
	}
}

func TestEmitSelectsClasses(t *testing.T) {
	reg := curveRegistry(t, &metadata.ClassDescriptor{
		Name: "Rhino.Geometry.Mesh",
		Methods: []metadata.MethodDescriptor{
			{Name: "Volume", Returns: double()},
		},
	})

	dir := t.TempDir()
	files, err := Emit(JavaScript, reg, dir, []string{".Mesh"}, testOptions)
	require.NoError(t, err)
	js := readOutput(t, files[0])
	assert.Contains(t, js, "    Mesh : {\n")
	assert.NotContains(t, js, "Curve : {")

	files, err = Emit(JavaScript, reg, t.TempDir(), nil, testOptions)
	require.NoError(t, err)
	js = readOutput(t, files[0])
	assert.Contains(t, js, "    Mesh : {\n")
	assert.Contains(t, js, "    Curve : {\n")
}

func TestEmitUnrenderableMember(t *testing.T) {
	opaque := &metadata.ClassDescriptor{
		Name: "Rhino.Geometry.Mesh",
		File: "Mesh.cs",
		Methods: []metadata.MethodDescriptor{
			{
				Name:    "Split",
				Params:  []metadata.ParameterDescriptor{{Name: "callback", Type: metadata.OpaqueOf("Func<int, bool>")}},
				Returns: boolean(),
			},
		},
	}
	expression := &metadata.ClassDescriptor{
		Name: "Rhino.Geometry.Brep",
		File: "Brep.cs",
		Methods: []metadata.MethodDescriptor{
			{
				Name: "Trim",
				Params: []metadata.ParameterDescriptor{{
					Name:    "plane",
					Type:    metadata.ClassOf("Plane"),
					Default: &metadata.Literal{Kind: metadata.LiteralExpression, Text: "Plane.WorldXY"},
				}},
				Returns: boolean(),
			},
		},
	}

	for _, c := range []*metadata.ClassDescriptor{opaque, expression} {
		for _, target := range Targets {
			t.Run(c.Name+"/"+string(target), func(t *testing.T) {
				reg, err := metadata.NewRegistry(curveClass(), c)
				require.NoError(t, err)

				dir := filepath.Join(t.TempDir(), "out")
				files, err := Emit(target, reg, dir, nil, testOptions)
				require.Error(t, err)
				assert.True(t, errors.IsModel(err))
				assert.Contains(t, err.Error(), c.File)
				assert.Empty(t, files)
				assert.NoDirExists(t, dir)
			})
		}
	}
}

func TestEmitAmbiguousShortNames(t *testing.T) {
	reg, err := metadata.NewRegistry(
		&metadata.ClassDescriptor{Name: "Rhino.Geometry.Light", Methods: []metadata.MethodDescriptor{{Name: "Dim", Returns: double()}}},
		&metadata.ClassDescriptor{Name: "Rhino.Render.Light", Methods: []metadata.MethodDescriptor{{Name: "Dim", Returns: double()}}},
	)
	require.NoError(t, err)

	files, err := Emit(Go, reg, t.TempDir(), nil, testOptions)
	require.NoError(t, err)
	src := readOutput(t, files[0])
	assert.Contains(t, src, "RhinoGeometryLightDim(")
	assert.Contains(t, src, "RhinoRenderLightDim(")

	files, err = Emit(Python, reg, t.TempDir(), nil, testOptions)
	require.NoError(t, err)
	assert.Contains(t, files, filepath.Join(filepath.Dir(files[0]), "RhinoGeometryLight.py"))
}

func TestRunIsolatesFailures(t *testing.T) {
	bad := &metadata.ClassDescriptor{
		Name: "Rhino.Geometry.Mesh",
		File: "Mesh.cs",
		Methods: []metadata.MethodDescriptor{
			{Name: "Weld", Params: []metadata.ParameterDescriptor{{Name: "cb", Type: metadata.OpaqueOf("Action")}}, Returns: boolean()},
		},
	}
	reg := curveRegistry(t, bad)

	dist := t.TempDir()
	jobs := DefaultJobs(dist, Targets, DocVariants)
	require.Len(t, jobs, 6)

	// code targets see every class, docs only the curve
	results := Run(context.Background(), reg, jobs, nil, []string{".Curve"}, testOptions)
	require.Len(t, results, len(jobs))
	for i, result := range results {
		assert.Equal(t, jobs[i], result.Job)
		if result.Job.Docs {
			assert.NoError(t, result.Err, result.Job.String())
			assert.NotEmpty(t, result.Files)
			continue
		}
		require.Error(t, result.Err, result.Job.String())
		assert.True(t, errors.IsModel(result.Err))
	}
	assert.FileExists(t, filepath.Join(dist, "python", "docs", "Curve.rst"))

	results = Run(context.Background(), reg, jobs, []string{".Curve"}, []string{".Curve"}, testOptions)
	for _, result := range results {
		assert.NoError(t, result.Err, result.Job.String())
	}
	assert.FileExists(t, filepath.Join(dist, "javascript", JavaScriptFile))
	assert.FileExists(t, filepath.Join(dist, "go", "rhinocompute", "rhinocompute.go"))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dist := t.TempDir()
	results := Run(ctx, curveRegistry(t), DefaultJobs(dist, []Target{JavaScript}, nil), nil, nil, testOptions)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dist, "javascript", JavaScriptFile))
}

func TestDefaultJobs(t *testing.T) {
	jobs := DefaultJobs("dist", []Target{Go}, []Target{Python})
	assert.Equal(t, []Job{
		{Target: Go, Dir: filepath.Join("dist", "go")},
		{Target: Python, Docs: true, Dir: filepath.Join("dist", "python", "docs")},
	}, jobs)
	assert.Equal(t, "python docs", jobs[1].String())
}

func TestWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	require.NoError(t, writeFile(path, []byte("first")))
	require.NoError(t, writeFile(path, []byte("second")))
	assert.Equal(t, "second", readOutput(t, path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := writeFile(filepath.Join(blocker, "out.txt"), []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsIO(err))
}
