// Package metadata reads the RhinoCommon C# source and describes its public API.
package metadata

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	"go.uber.org/zap"

	"computegen/internal/errors"
	"computegen/internal/logger"
)

// Options control which declarations the reader keeps.
type Options struct {
	// ExcludeAttributes opt a class or member out of client generation.
	// Names match with or without the "Attribute" suffix.
	ExcludeAttributes []string
	// ExcludeGlobs skip source files, matched against "/"+relative path.
	ExcludeGlobs []string
	// DropExpressionDefaults turns non-literal defaults into required parameters.
	DropExpressionDefaults bool
	// KeepOpaque keeps members whose types the model cannot describe.
	KeepOpaque bool
}

// SourceReader turns C# source files into class descriptors.
type SourceReader struct {
	parser       *sitter.Parser
	opts         Options
	excludeAttrs map[string]bool
	log          *zap.SugaredLogger
}

// The map of C# built-in type spellings to primitive kinds
var builtInTypes = map[string]Primitive{
	"bool":    Bool,
	"Boolean": Bool,
	"byte":    Int,
	"sbyte":   Int,
	"short":   Int,
	"ushort":  Int,
	"int":     Int,
	"uint":    Int,
	"Int16":   Int,
	"Int32":   Int,
	"UInt32":  Int,
	"long":    Long,
	"ulong":   Long,
	"Int64":   Long,
	"UInt64":  Long,
	"float":   Float,
	"Single":  Float,
	"double":  Double,
	"Double":  Double,
	"decimal": Double,
	"char":    String,
	"string":  String,
	"String":  String,
	"Guid":    Guid,
	"object":  Object,
	"Object":  Object,
	"void":    Void,
}

// Generic containers that are sent over the wire as plain arrays
var enumerableTypes = map[string]bool{
	"IEnumerable":         true,
	"IList":               true,
	"List":                true,
	"ICollection":         true,
	"IReadOnlyList":       true,
	"IReadOnlyCollection": true,
}

var modifierKeywords = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"static": true, "abstract": true, "virtual": true, "override": true,
	"sealed": true, "partial": true, "extern": true, "unsafe": true,
	"readonly": true, "new": true,
}

// NewReader creates a reader with a C# parser.
func NewReader(opts Options) (*SourceReader, error) {
	parser := sitter.NewParser()
	if err := parser.SetLanguage(sitter.NewLanguage(csharp.Language())); err != nil {
		parser.Close()
		return nil, errors.Wrap(err, "loading C# grammar")
	}

	excludeAttrs := make(map[string]bool, len(opts.ExcludeAttributes))
	for _, name := range opts.ExcludeAttributes {
		excludeAttrs[strings.TrimSuffix(name, "Attribute")] = true
	}

	return &SourceReader{
		parser:       parser,
		opts:         opts,
		excludeAttrs: excludeAttrs,
		log:          logger.Named("extract"),
	}, nil
}

func (reader *SourceReader) Close() {
	reader.parser.Close()
}

// ParseError locates the first syntax error of a skipped file.
type ParseError struct {
	File string
	Line int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: syntax error", e.File, e.Line)
}

// fileState collects what one file contributes.
type fileState struct {
	path    string
	src     []byte
	classes []*ClassDescriptor
}

// ReadFile parses one source file. A file with syntax errors contributes
// nothing and yields an ErrParse error naming the first bad line.
func (reader *SourceReader) ReadFile(path string, src []byte) ([]*ClassDescriptor, error) {
	src = trimBOM(src)
	tree := reader.parser.Parse(src, nil)
	if tree == nil {
		return nil, errors.Parsef("%s: parser returned no tree", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		parseErr := &ParseError{File: path}
		if bad := firstError(root); bad != nil {
			parseErr.Line = int(bad.StartPosition().Row) + 1
		}
		return nil, errors.Mark(parseErr, errors.ErrParse)
	}

	st := &fileState{path: path, src: src}
	reader.walkScope(root, "", st)
	return st.classes, nil
}

func trimBOM(src []byte) []byte {
	if len(src) >= 3 && src[0] == 0xEF && src[1] == 0xBB && src[2] == 0xBF {
		return src[3:]
	}
	return src
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}

// walkScope visits namespace-level declarations.
func (reader *SourceReader) walkScope(node *sitter.Node, ns string, st *fileState) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "namespace_declaration":
			name := nodeText(child.ChildByFieldName("name"), st.src)
			if body := fieldOrKind(child, "body", "declaration_list"); body != nil {
				reader.walkScope(body, joinName(ns, name), st)
			}
		case "file_scoped_namespace_declaration":
			// applies to the rest of the file whether the grammar nests
			// the following declarations or leaves them as siblings
			ns = joinName(ns, nodeText(child.ChildByFieldName("name"), st.src))
			reader.walkScope(child, ns, st)
		case "class_declaration":
			reader.readClass(child, ns, st)
		default:
			if isScopeContainer(child.Kind()) {
				reader.walkScope(child, ns, st)
			}
		}
	}
}

func isScopeContainer(kind string) bool {
	return kind == "declaration_list" || strings.HasPrefix(kind, "preproc_")
}

func (reader *SourceReader) readClass(node *sitter.Node, outer string, st *fileState) {
	short := nodeText(node.ChildByFieldName("name"), st.src)
	name := joinName(outer, short)
	line := int(node.StartPosition().Row) + 1

	mods := modifiers(node, st.src)
	if !mods["public"] {
		return
	}
	if hasChildOfKind(node, "type_parameter_list") {
		reader.log.Debugw("skipping generic class", "class", name, "file", st.path, "line", line)
		return
	}
	doc := reader.docFor(node, st.src)
	if doc.Exclude || reader.excluded(node, st.src) {
		reader.log.Debugw("class opted out", "class", name, "file", st.path)
		return
	}

	class := &ClassDescriptor{
		Name:     name,
		Base:     baseClass(node, st.src),
		IsStatic: mods["static"],
		Summary:  doc.Summary,
		File:     st.path,
	}
	st.classes = append(st.classes, class)

	if body := fieldOrKind(node, "body", "declaration_list"); body != nil {
		reader.readMembers(body, class, st)
	}
}

func (reader *SourceReader) readMembers(node *sitter.Node, class *ClassDescriptor, st *fileState) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "method_declaration":
			if m, ok := reader.readMethod(child, class, st); ok {
				class.Methods = append(class.Methods, m)
			}
		case "property_declaration":
			if p, ok := reader.readProperty(child, class, st); ok {
				class.Properties = append(class.Properties, p)
			}
		case "class_declaration":
			reader.readClass(child, class.Name, st)
		default:
			if isScopeContainer(child.Kind()) {
				reader.readMembers(child, class, st)
			}
		}
	}
}

func (reader *SourceReader) readMethod(node *sitter.Node, class *ClassDescriptor, st *fileState) (MethodDescriptor, bool) {
	name := nodeText(node.ChildByFieldName("name"), st.src)
	line := int(node.StartPosition().Row) + 1
	mods := modifiers(node, st.src)
	if !mods["public"] || hasChildOfKind(node, "explicit_interface_specifier") {
		return MethodDescriptor{}, false
	}
	if node.ChildByFieldName("type_parameters") != nil || hasChildOfKind(node, "type_parameter_list") {
		reader.log.Debugw("skipping generic method", "class", class.Name, "method", name, "line", line)
		return MethodDescriptor{}, false
	}

	doc := reader.docFor(node, st.src)
	if doc.Exclude || reader.excluded(node, st.src) {
		return MethodDescriptor{}, false
	}

	method := MethodDescriptor{
		Name:       name,
		IsStatic:   mods["static"] || class.IsStatic,
		Returns:    reader.typeOf(fieldOrKind(node, "returns", ""), st.src),
		Summary:    doc.Summary,
		ReturnsDoc: doc.Returns,
		Line:       line,
	}
	if method.Returns.Kind == KindPrimitive && method.Returns.Name == "" {
		method.Returns = reader.typeOf(node.ChildByFieldName("type"), st.src)
	}

	if params := fieldOrKind(node, "parameters", "parameter_list"); params != nil {
		for i := uint(0); i < params.NamedChildCount(); i++ {
			child := params.NamedChild(i)
			if child.Kind() != "parameter" && child.Kind() != "parameter_array" {
				continue
			}
			param := reader.readParameter(child, st)
			param.Doc = doc.Params[param.Name]
			method.Params = append(method.Params, param)
		}
	}

	if !reader.opts.KeepOpaque {
		if opaque, found := methodOpaque(method); found {
			reader.log.Debugw("skipping method with unmodeled type",
				"class", class.Name, "method", name, "type", opaque.Name, "file", st.path, "line", line)
			return MethodDescriptor{}, false
		}
	}
	return method, true
}

func methodOpaque(m MethodDescriptor) (TypeRef, bool) {
	if t, ok := m.Returns.FindOpaque(); ok {
		return t, true
	}
	for _, p := range m.Params {
		if t, ok := p.Type.FindOpaque(); ok {
			return t, true
		}
	}
	return TypeRef{}, false
}

func (reader *SourceReader) readParameter(node *sitter.Node, st *fileState) ParameterDescriptor {
	param := ParameterDescriptor{
		Name:     nodeText(node.ChildByFieldName("name"), st.src),
		Type:     reader.typeOf(node.ChildByFieldName("type"), st.src),
		IsParams: node.Kind() == "parameter_array",
	}

	var value *sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		keyword := child.Kind()
		if keyword == "parameter_modifier" || keyword == "modifier" {
			keyword = nodeText(child, st.src)
		}
		switch keyword {
		case "out":
			param.Direction = Out
		case "ref":
			param.Direction = Ref
		case "params":
			param.IsParams = true
		case "=":
			// the default is the named child following the token
			value = nextNamedSibling(node, i+1)
		case "equals_value_clause":
			value = child.NamedChild(0)
		}
	}
	if value != nil {
		lit := literalOf(value, st.src)
		if lit.IsRepresentable() || !reader.opts.DropExpressionDefaults {
			param.Default = &lit
		}
	}
	return param
}

func nextNamedSibling(parent *sitter.Node, from uint) *sitter.Node {
	for i := from; i < parent.ChildCount(); i++ {
		if child := parent.Child(i); child.IsNamed() {
			return child
		}
	}
	return nil
}

func (reader *SourceReader) readProperty(node *sitter.Node, class *ClassDescriptor, st *fileState) (PropertyDescriptor, bool) {
	name := nodeText(node.ChildByFieldName("name"), st.src)
	mods := modifiers(node, st.src)
	if !mods["public"] || hasChildOfKind(node, "explicit_interface_specifier") {
		return PropertyDescriptor{}, false
	}
	doc := reader.docFor(node, st.src)
	if doc.Exclude || reader.excluded(node, st.src) {
		return PropertyDescriptor{}, false
	}

	prop := PropertyDescriptor{
		Name:     name,
		Type:     reader.typeOf(node.ChildByFieldName("type"), st.src),
		IsStatic: mods["static"] || class.IsStatic,
		Summary:  doc.Summary,
		Line:     int(node.StartPosition().Row) + 1,
	}

	accessors := fieldOrKind(node, "accessors", "accessor_list")
	if accessors == nil {
		// expression-bodied: get only
		prop.CanRead = true
	} else {
		for i := uint(0); i < accessors.NamedChildCount(); i++ {
			accessor := accessors.NamedChild(i)
			if accessor.Kind() != "accessor_declaration" {
				continue
			}
			accessorMods := modifiers(accessor, st.src)
			if accessorMods["private"] || accessorMods["protected"] || accessorMods["internal"] {
				continue
			}
			switch accessorKeyword(accessor, st.src) {
			case "get":
				prop.CanRead = true
			case "set":
				prop.CanWrite = true
			}
		}
	}

	if _, found := prop.Type.FindOpaque(); found && !reader.opts.KeepOpaque {
		reader.log.Debugw("skipping property with unmodeled type", "class", class.Name, "property", name)
		return PropertyDescriptor{}, false
	}
	if !prop.CanRead && !prop.CanWrite {
		return PropertyDescriptor{}, false
	}
	return prop, true
}

func accessorKeyword(node *sitter.Node, src []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return nodeText(name, src)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		switch kind := node.Child(i).Kind(); kind {
		case "get", "set", "init":
			return kind
		}
	}
	return ""
}

// typeOf maps a type node onto the descriptor model.
func (reader *SourceReader) typeOf(node *sitter.Node, src []byte) TypeRef {
	if node == nil {
		return TypeRef{Kind: KindPrimitive}
	}
	text := nodeText(node, src)

	switch node.Kind() {
	case "predefined_type", "identifier":
		if p, ok := builtInTypes[text]; ok {
			return PrimitiveOf(p, text)
		}
		return ClassOf(text)
	case "qualified_name", "alias_qualified_name":
		last := node.ChildByFieldName("name")
		if last == nil && node.NamedChildCount() > 0 {
			last = node.NamedChild(node.NamedChildCount() - 1)
		}
		if last != nil && last.Kind() == "generic_name" {
			return reader.typeOf(last, src)
		}
		if p, ok := builtInTypes[ShortName(text)]; ok {
			return PrimitiveOf(p, ShortName(text))
		}
		return ClassOf(text)
	case "generic_name":
		return reader.genericType(node, src)
	case "array_type":
		rank := nodeText(node.ChildByFieldName("rank"), src)
		if strings.Contains(rank, ",") {
			return OpaqueOf(text)
		}
		return ArrayOf(reader.typeOf(node.ChildByFieldName("type"), src))
	case "nullable_type":
		return NullableOf(reader.typeOf(node.ChildByFieldName("type"), src))
	default:
		return OpaqueOf(text)
	}
}

func (reader *SourceReader) genericType(node *sitter.Node, src []byte) TypeRef {
	var name string
	var args []*sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			name = nodeText(child, src)
		case "type_argument_list":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				args = append(args, child.NamedChild(j))
			}
		}
	}

	if len(args) == 1 {
		elem := reader.typeOf(args[0], src)
		if enumerableTypes[name] {
			return EnumerableOf(name, elem)
		}
		if name == "Nullable" {
			return NullableOf(elem)
		}
	}
	return OpaqueOf(nodeText(node, src))
}

// literalOf classifies a default value expression.
func literalOf(node *sitter.Node, src []byte) Literal {
	text := nodeText(node, src)
	switch node.Kind() {
	case "boolean_literal":
		return Literal{Kind: LiteralBool, Text: text}
	case "integer_literal", "real_literal":
		return Literal{Kind: LiteralNumber, Text: normalizeNumber(text)}
	case "null_literal":
		return Literal{Kind: LiteralNull, Text: "null"}
	case "string_literal":
		if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) >= 2 {
			return Literal{Kind: LiteralString, Text: text[1 : len(text)-1]}
		}
	case "prefix_unary_expression":
		operand := node.NamedChild(0)
		if operand != nil && (operand.Kind() == "integer_literal" || operand.Kind() == "real_literal") {
			sign := strings.TrimSpace(strings.TrimSuffix(text, nodeText(operand, src)))
			if sign == "-" || sign == "+" {
				return Literal{Kind: LiteralNumber, Text: strings.TrimPrefix(sign, "+") + normalizeNumber(nodeText(operand, src))}
			}
		}
	}
	return Literal{Kind: LiteralExpression, Text: text}
}

// normalizeNumber drops digit separators and C# type suffixes.
func normalizeNumber(text string) string {
	text = strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0b") {
		return strings.TrimRight(text, "uUlL")
	}
	text = strings.TrimRight(text, "fFdDmMuUlL")
	if strings.HasPrefix(text, ".") {
		text = "0" + text
	}
	return text
}

// excluded reports whether one of the declaration's attributes opts it out.
func (reader *SourceReader) excluded(node *sitter.Node, src []byte) bool {
	for _, name := range attributeNames(node, src) {
		if reader.excludeAttrs[strings.TrimSuffix(ShortName(name), "Attribute")] {
			return true
		}
	}
	return false
}

func attributeNames(node *sitter.Node, src []byte) []string {
	var names []string
	for i := uint(0); i < node.NamedChildCount(); i++ {
		list := node.NamedChild(i)
		if list.Kind() != "attribute_list" {
			continue
		}
		for j := uint(0); j < list.NamedChildCount(); j++ {
			attr := list.NamedChild(j)
			if attr.Kind() != "attribute" {
				continue
			}
			name := attr.ChildByFieldName("name")
			if name == nil {
				name = attr.NamedChild(0)
			}
			names = append(names, nodeText(name, src))
		}
	}
	return names
}

// modifiers collects modifier keywords whether the grammar wraps them in
// "modifier" nodes or leaves them as bare tokens.
func modifiers(node *sitter.Node, src []byte) map[string]bool {
	mods := make(map[string]bool)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch {
		case child.Kind() == "modifier":
			mods[nodeText(child, src)] = true
		case !child.IsNamed() && modifierKeywords[child.Kind()]:
			mods[child.Kind()] = true
		}
	}
	return mods
}

// baseClass picks the first entry of the base list that does not look like an interface.
func baseClass(node *sitter.Node, src []byte) string {
	var bases *sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child.Kind() == "base_list" {
			bases = child
			break
		}
	}
	if bases == nil {
		return ""
	}
	for i := uint(0); i < bases.NamedChildCount(); i++ {
		name := nodeText(bases.NamedChild(i), src)
		if i := strings.IndexAny(name, "<("); i >= 0 {
			name = name[:i]
		}
		if !looksLikeInterface(ShortName(name)) {
			return name
		}
	}
	return ""
}

func looksLikeInterface(name string) bool {
	return len(name) > 1 && name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z'
}

func hasChildOfKind(node *sitter.Node, kind string) bool {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if node.NamedChild(i).Kind() == kind {
			return true
		}
	}
	return false
}

// fieldOrKind returns the named field, falling back to the first child of
// the given kind for grammar versions without the field.
func fieldOrKind(node *sitter.Node, field, kind string) *sitter.Node {
	if child := node.ChildByFieldName(field); child != nil {
		return child
	}
	if kind == "" {
		return nil
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}

func nodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(src)
}

func joinName(outer, name string) string {
	if outer == "" {
		return name
	}
	return outer + "." + name
}
