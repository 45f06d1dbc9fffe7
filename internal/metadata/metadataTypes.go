package metadata

import (
	"encoding/json"
	"slices"
	"strings"
)

// TypeKind tags the closed set of type shapes the descriptor model knows.
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindClass
	KindArray
	KindNullable
	// KindOpaque keeps source text the extractor could not model; no emitter renders it.
	KindOpaque
)

func (k TypeKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindClass:
		return "class"
	case KindArray:
		return "array"
	case KindNullable:
		return "nullable"
	default:
		return "opaque"
	}
}

// Primitive is the normalized kind of a built-in type.
type Primitive string

const (
	Bool   Primitive = "bool"
	Int    Primitive = "int"
	Long   Primitive = "long"
	Double Primitive = "double"
	Float  Primitive = "float"
	String Primitive = "string"
	Guid   Primitive = "guid"
	Object Primitive = "object"
	Void   Primitive = "void"
)

// TypeRef describes a parameter, return or property type.
type TypeRef struct {
	Kind TypeKind
	// Primitive is set for KindPrimitive.
	Primitive Primitive
	// Name is the spelling in source: the keyword for primitives ("uint"),
	// the class name for KindClass, the container for a generic array
	// ("IEnumerable", empty for T[]) and the raw text for KindOpaque.
	Name string
	// Elem is the element type of KindArray and KindNullable.
	Elem *TypeRef
}

func PrimitiveOf(p Primitive, spelling string) TypeRef {
	if spelling == "" {
		spelling = string(p)
	}
	return TypeRef{Kind: KindPrimitive, Primitive: p, Name: spelling}
}

func ClassOf(name string) TypeRef {
	return TypeRef{Kind: KindClass, Name: name}
}

func ArrayOf(elem TypeRef) TypeRef {
	return TypeRef{Kind: KindArray, Elem: &elem}
}

// EnumerableOf is an array spelled as a generic container such as IEnumerable<T>.
func EnumerableOf(container string, elem TypeRef) TypeRef {
	return TypeRef{Kind: KindArray, Name: container, Elem: &elem}
}

func NullableOf(elem TypeRef) TypeRef {
	return TypeRef{Kind: KindNullable, Elem: &elem}
}

func OpaqueOf(text string) TypeRef {
	return TypeRef{Kind: KindOpaque, Name: text}
}

// VoidType is the return type of methods without a result.
var VoidType = PrimitiveOf(Void, "void")

func (t TypeRef) IsVoid() bool {
	return t.Kind == KindPrimitive && t.Primitive == Void
}

// IsClass reports whether t is a class reference, looking through nullability.
func (t TypeRef) IsClass() bool {
	switch t.Kind {
	case KindClass:
		return true
	case KindNullable:
		return t.Elem.IsClass()
	default:
		return false
	}
}

// ContainsClass reports whether a class reference appears anywhere in t.
func (t TypeRef) ContainsClass() bool {
	switch t.Kind {
	case KindClass:
		return true
	case KindArray, KindNullable:
		return t.Elem.ContainsClass()
	default:
		return false
	}
}

// FindOpaque returns the first opaque component of t.
func (t TypeRef) FindOpaque() (TypeRef, bool) {
	switch t.Kind {
	case KindOpaque:
		return t, true
	case KindArray, KindNullable:
		return t.Elem.FindOpaque()
	default:
		return TypeRef{}, false
	}
}

// ShortName is the class name without its namespace.
func (t TypeRef) ShortName() string {
	return ShortName(t.Name)
}

// String renders t the way C# source spells it.
func (t TypeRef) String() string {
	switch t.Kind {
	case KindPrimitive, KindClass, KindOpaque:
		return t.Name
	case KindArray:
		if t.Name != "" {
			return t.Name + "<" + t.Elem.String() + ">"
		}
		return t.Elem.String() + "[]"
	case KindNullable:
		return t.Elem.String() + "?"
	default:
		return t.Name
	}
}

// MarshalYAML renders type references inline in model dumps.
func (t TypeRef) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

func (t TypeRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Token is the endpoint spelling of t: lowercased short name, one "array"
// per array level, nullability dropped.
func (t TypeRef) Token() string {
	switch t.Kind {
	case KindArray:
		return t.Elem.Token() + "array"
	case KindNullable:
		return t.Elem.Token()
	default:
		return strings.ToLower(ShortName(t.Name))
	}
}

// LiteralKind classifies a default value.
type LiteralKind int

const (
	LiteralBool LiteralKind = iota
	LiteralNumber
	LiteralString
	LiteralNull
	// LiteralExpression is any default that is not a plain literal (Plane.WorldXY, default(T)).
	LiteralExpression
)

// Literal is a parameter default value.
// Text holds "true"/"false", a normalized number, the unquoted string, or the raw expression.
type Literal struct {
	Kind LiteralKind
	Text string
}

func (l Literal) IsRepresentable() bool {
	return l.Kind != LiteralExpression
}

func (l Literal) MarshalYAML() (interface{}, error) {
	if l.Kind == LiteralString {
		return `"` + l.Text + `"`, nil
	}
	return l.Text, nil
}

func (l Literal) MarshalJSON() ([]byte, error) {
	value, _ := l.MarshalYAML()
	return json.Marshal(value)
}

// Direction says whether a parameter carries a value in, out, or both.
type Direction int

const (
	In Direction = iota
	Out
	Ref
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case Ref:
		return "ref"
	default:
		return "in"
	}
}

func (d Direction) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// IsOutput reports whether the parameter produces a value for the caller.
func (d Direction) IsOutput() bool {
	return d == Out || d == Ref
}

type ParameterDescriptor struct {
	Name      string    `yaml:"name" json:"name"`
	Type      TypeRef   `yaml:"type" json:"type"`
	Default   *Literal  `yaml:"default,omitempty" json:"default,omitempty"`
	Direction Direction `yaml:"direction" json:"direction"`
	IsParams  bool      `yaml:"params,omitempty" json:"params,omitempty"`
	Doc       string    `yaml:"doc,omitempty" json:"doc,omitempty"`
}

func (p ParameterDescriptor) HasDefault() bool {
	return p.Default != nil
}

type MethodDescriptor struct {
	Name       string                `yaml:"name" json:"name"`
	IsStatic   bool                  `yaml:"static" json:"static"`
	Overload   int                   `yaml:"overload" json:"overload"`
	Params     []ParameterDescriptor `yaml:"params,omitempty" json:"params,omitempty"`
	Returns    TypeRef               `yaml:"returns" json:"returns"`
	Summary    string                `yaml:"summary,omitempty" json:"summary,omitempty"`
	ReturnsDoc string                `yaml:"returns_doc,omitempty" json:"returns_doc,omitempty"`
	Line       int                   `yaml:"line,omitempty" json:"line,omitempty"`
}

// Signature is the erased signature used to detect identical overloads.
func (m MethodDescriptor) Signature() string {
	parts := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		s := p.Type.String()
		if p.Direction != In {
			s = p.Direction.String() + " " + s
		}
		parts = append(parts, s)
	}
	prefix := ""
	if m.IsStatic {
		prefix = "static "
	}
	return prefix + m.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Inputs returns the parameters serialized to the endpoint, in order.
func (m MethodDescriptor) Inputs() []ParameterDescriptor {
	inputs := make([]ParameterDescriptor, 0, len(m.Params))
	for _, p := range m.Params {
		if p.Direction != Out {
			inputs = append(inputs, p)
		}
	}
	return inputs
}

// Outputs returns the out and ref parameters, in declaration order.
func (m MethodDescriptor) Outputs() []ParameterDescriptor {
	var outputs []ParameterDescriptor
	for _, p := range m.Params {
		if p.Direction.IsOutput() {
			outputs = append(outputs, p)
		}
	}
	return outputs
}

// Result is one value of a lowered multi-value return.
type Result struct {
	Name    string
	Type    TypeRef
	Doc     string
	Primary bool
}

// Results lowers out/ref parameters into an ordered result list: the
// declared return value first (absent for void), then every output
// parameter in declaration order.
func (m MethodDescriptor) Results() []Result {
	var results []Result
	if !m.Returns.IsVoid() {
		results = append(results, Result{Name: "rc", Type: m.Returns, Doc: m.ReturnsDoc, Primary: true})
	}
	for _, p := range m.Outputs() {
		results = append(results, Result{Name: p.Name, Type: p.Type, Doc: p.Doc})
	}
	return results
}

type PropertyDescriptor struct {
	Name     string  `yaml:"name" json:"name"`
	Type     TypeRef `yaml:"type" json:"type"`
	IsStatic bool    `yaml:"static" json:"static"`
	CanRead  bool    `yaml:"read" json:"read"`
	CanWrite bool    `yaml:"write" json:"write"`
	Summary  string  `yaml:"summary,omitempty" json:"summary,omitempty"`
	Line     int     `yaml:"line,omitempty" json:"line,omitempty"`
}

type ClassDescriptor struct {
	Name       string               `yaml:"name" json:"name"`
	Base       string               `yaml:"base,omitempty" json:"base,omitempty"`
	IsStatic   bool                 `yaml:"static,omitempty" json:"static,omitempty"`
	Methods    []MethodDescriptor   `yaml:"methods,omitempty" json:"methods,omitempty"`
	Properties []PropertyDescriptor `yaml:"properties,omitempty" json:"properties,omitempty"`
	Summary    string               `yaml:"summary,omitempty" json:"summary,omitempty"`
	File       string               `yaml:"file,omitempty" json:"file,omitempty"`
}

// clone copies c deeply enough that assigning overloads or dropping members
// on the copy leaves c alone.
func (c *ClassDescriptor) clone() *ClassDescriptor {
	copied := *c
	copied.Methods = slices.Clone(c.Methods)
	copied.Properties = slices.Clone(c.Properties)
	return &copied
}

func (c *ClassDescriptor) ShortName() string {
	return ShortName(c.Name)
}

// Namespace is the qualified name without the class short name.
func (c *ClassDescriptor) Namespace() string {
	if i := strings.LastIndex(c.Name, "."); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

// ShortName strips the namespace from a qualified name.
func ShortName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
