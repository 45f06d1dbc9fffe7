package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"computegen/internal/metadata"
)

func TestOverloadName(t *testing.T) {
	assert.Equal(t, "Offset", overloadName("Offset", 0))
	assert.Equal(t, "Offset1", overloadName("Offset", 1))
	assert.Equal(t, "Offset12", overloadName("Offset", 12))
}

func TestCaseHelpers(t *testing.T) {
	assert.Equal(t, "getLength", lowerFirst("GetLength"))
	assert.Equal(t, "", lowerFirst(""))
	assert.Equal(t, "Mesh", upperFirst("mesh"))
}

func TestClassIdents(t *testing.T) {
	classes := []*metadata.ClassDescriptor{
		{Name: "Rhino.Geometry.Curve"},
		{Name: "Rhino.Geometry.Light"},
		{Name: "Rhino.Render.Light"},
		{Name: "Rhino.Geometry.Mesh.Weld"},
	}
	assert.Equal(t, map[string]string{
		"Rhino.Geometry.Curve":     "Curve",
		"Rhino.Geometry.Light":     "RhinoGeometryLight",
		"Rhino.Render.Light":       "RhinoRenderLight",
		"Rhino.Geometry.Mesh.Weld": "Weld",
	}, classIdents(classes))
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		name     string
		reserved map[string]bool
		want     string
	}{
		{"@class", jsReserved, "class_"},
		{"@base", pyReserved, "base"},
		{"from", pyReserved, "from_"},
		{"url", jsReserved, "url_"},
		{"multiple", pyReserved, "multiple_"},
		{"distance", jsReserved, "distance"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeName(tt.name, tt.reserved), tt.name)
	}

	assert.Equal(t, "type_", goParamName("type"))
	assert.Equal(t, "ctx_", goParamName("ctx"))
	assert.Equal(t, "r0_", goParamName("r0"))
	assert.Equal(t, "radius", goParamName("radius"))

	assert.Equal(t, "@object", csName("@object"))
	assert.Equal(t, "@params", csName("params"))
	assert.Equal(t, "results_", csName("results"))
}

func TestFirstTrailingDefault(t *testing.T) {
	def := &metadata.Literal{Kind: metadata.LiteralBool, Text: "true"}
	tests := []struct {
		name   string
		inputs []metadata.ParameterDescriptor
		want   int
	}{
		{"none", nil, 0},
		{"no defaults", []metadata.ParameterDescriptor{{Name: "a"}, {Name: "b"}}, 2},
		{"trailing run", []metadata.ParameterDescriptor{{Name: "a"}, {Name: "b", Default: def}, {Name: "c", Default: def}}, 1},
		{"interrupted", []metadata.ParameterDescriptor{{Name: "a", Default: def}, {Name: "b"}, {Name: "c", Default: def}}, 2},
		{"params array ends run", []metadata.ParameterDescriptor{{Name: "a", Default: def}, {Name: "b", IsParams: true, Default: def}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstTrailingDefault(tt.inputs))
		})
	}
}

func TestRenderInputsValidatesLeadingDefaults(t *testing.T) {
	c := &metadata.ClassDescriptor{Name: "Rhino.Geometry.Curve", File: "Curve.cs"}
	m := metadata.MethodDescriptor{
		Name:     "Trim",
		IsStatic: true,
		Params: []metadata.ParameterDescriptor{
			{Name: "a", Type: double(), Default: &metadata.Literal{Kind: metadata.LiteralExpression, Text: "Math.PI"}},
			{Name: "b", Type: double()},
		},
		Returns: metadata.VoidType,
	}

	_, err := renderInputs(JavaScript, jsTypes, metadata.NewCall(c, m), jsName)
	assert.Error(t, err)

	m.Params[0].Default = &metadata.Literal{Kind: metadata.LiteralNumber, Text: "1"}
	params, err := renderInputs(JavaScript, jsTypes, metadata.NewCall(c, m), jsName)
	assert.NoError(t, err)
	assert.Empty(t, params[0].DefaultVal, "a default before a required input is not rendered")
}

func TestTypeTables(t *testing.T) {
	uint32Type := metadata.PrimitiveOf(metadata.Int, "uint")
	list := metadata.EnumerableOf("IEnumerable", metadata.ClassOf("Point3d"))
	nullable := metadata.NullableOf(metadata.PrimitiveOf(metadata.Float, "float"))

	tests := []struct {
		table typeTable
		in    metadata.TypeRef
		want  string
	}{
		{jsTypes, uint32Type, "number"},
		{jsTypes, list, "rhino3dm.Point3d[]"},
		{pyTypes, list, "list[rhino3dm.Point3d]"},
		{pyTypes, nullable, "float | None"},
		{csTypes, uint32Type, "uint"},
		{csTypes, list, "IEnumerable<Point3d>"},
		{csTypes, nullable, "float?"},
	}
	for _, tt := range tests {
		got, err := tt.table.render(tt.in)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	got, err := csTypes.literal(metadata.Literal{Kind: metadata.LiteralNumber, Text: "0.5"}, nullable)
	assert.NoError(t, err)
	assert.Equal(t, "0.5f", got)

	_, err = pyTypes.render(metadata.OpaqueOf("Span<int>"))
	assert.Error(t, err)
}
