package generation

import (
	"computegen/internal/errors"
	"computegen/internal/metadata"
)

// typeTable maps the descriptor type model onto one target's vocabulary.
// Every rule a target has lives in its table; anything a table cannot
// render is a model error for that target.
type typeTable struct {
	primitives map[metadata.Primitive]string
	// sourceSpelling keeps the primitive keyword the reference source used (uint, Int32).
	sourceSpelling bool
	class          func(t metadata.TypeRef) string
	array          func(t metadata.TypeRef, elem string) string
	nullable       func(elem string) string
	literals       map[metadata.LiteralKind]func(l metadata.Literal, t metadata.TypeRef) string
}

func (table typeTable) render(t metadata.TypeRef) (string, error) {
	switch t.Kind {
	case metadata.KindPrimitive:
		name, ok := table.primitives[t.Primitive]
		if !ok {
			return "", errors.Newf("no rendering for primitive %q", t.Primitive)
		}
		if table.sourceSpelling && t.Name != "" {
			return t.Name, nil
		}
		return name, nil
	case metadata.KindClass:
		return table.class(t), nil
	case metadata.KindArray:
		elem, err := table.render(*t.Elem)
		if err != nil {
			return "", err
		}
		return table.array(t, elem), nil
	case metadata.KindNullable:
		elem, err := table.render(*t.Elem)
		if err != nil {
			return "", err
		}
		return table.nullable(elem), nil
	default:
		return "", errors.Newf("no rendering for type %q", t.Name)
	}
}

// literal renders a default value; expressions have no rule in any target.
func (table typeTable) literal(l metadata.Literal, t metadata.TypeRef) (string, error) {
	format, ok := table.literals[l.Kind]
	if !ok {
		return "", errors.Newf("default value %q is not a literal", l.Text)
	}
	return format(l, t), nil
}

func quoted(l metadata.Literal, _ metadata.TypeRef) string {
	return `"` + l.Text + `"`
}

func verbatim(l metadata.Literal, _ metadata.TypeRef) string {
	return l.Text
}

func constant(text string) func(metadata.Literal, metadata.TypeRef) string {
	return func(metadata.Literal, metadata.TypeRef) string { return text }
}

func rhino3dmClass(t metadata.TypeRef) string {
	return "rhino3dm." + t.ShortName()
}

var jsTypes = typeTable{
	primitives: map[metadata.Primitive]string{
		metadata.Bool:   "boolean",
		metadata.Int:    "number",
		metadata.Long:   "number",
		metadata.Double: "number",
		metadata.Float:  "number",
		metadata.String: "string",
		metadata.Guid:   "string",
		metadata.Object: "object",
	},
	class:    rhino3dmClass,
	array:    func(_ metadata.TypeRef, elem string) string { return elem + "[]" },
	nullable: func(elem string) string { return elem + "|null" },
	literals: map[metadata.LiteralKind]func(metadata.Literal, metadata.TypeRef) string{
		metadata.LiteralBool:   verbatim,
		metadata.LiteralNumber: verbatim,
		metadata.LiteralString: quoted,
		metadata.LiteralNull:   constant("null"),
	},
}

var pyTypes = typeTable{
	primitives: map[metadata.Primitive]string{
		metadata.Bool:   "bool",
		metadata.Int:    "int",
		metadata.Long:   "int",
		metadata.Double: "float",
		metadata.Float:  "float",
		metadata.String: "str",
		metadata.Guid:   "str",
		metadata.Object: "object",
	},
	class:    rhino3dmClass,
	array:    func(_ metadata.TypeRef, elem string) string { return "list[" + elem + "]" },
	nullable: func(elem string) string { return elem + " | None" },
	literals: map[metadata.LiteralKind]func(metadata.Literal, metadata.TypeRef) string{
		metadata.LiteralBool: func(l metadata.Literal, _ metadata.TypeRef) string {
			if l.Text == "true" {
				return "True"
			}
			return "False"
		},
		metadata.LiteralNumber: verbatim,
		metadata.LiteralString: quoted,
		metadata.LiteralNull:   constant("None"),
	},
}

var csTypes = typeTable{
	primitives: map[metadata.Primitive]string{
		metadata.Bool:   "bool",
		metadata.Int:    "int",
		metadata.Long:   "long",
		metadata.Double: "double",
		metadata.Float:  "float",
		metadata.String: "string",
		metadata.Guid:   "Guid",
		metadata.Object: "object",
	},
	sourceSpelling: true,
	class:          func(t metadata.TypeRef) string { return t.Name },
	array: func(t metadata.TypeRef, elem string) string {
		if t.Name != "" {
			return t.Name + "<" + elem + ">"
		}
		return elem + "[]"
	},
	nullable: func(elem string) string { return elem + "?" },
	literals: map[metadata.LiteralKind]func(metadata.Literal, metadata.TypeRef) string{
		metadata.LiteralBool: verbatim,
		metadata.LiteralNumber: func(l metadata.Literal, t metadata.TypeRef) string {
			if t.Kind == metadata.KindNullable {
				t = *t.Elem
			}
			if t.Kind == metadata.KindPrimitive && t.Primitive == metadata.Float {
				return l.Text + "f"
			}
			return l.Text
		},
		metadata.LiteralString: quoted,
		metadata.LiteralNull:   constant("null"),
	},
}

// goPrimitives is the go target's table; its renderer builds jennifer code
// instead of strings.
var goPrimitives = map[metadata.Primitive]string{
	metadata.Bool:   "bool",
	metadata.Int:    "int32",
	metadata.Long:   "int64",
	metadata.Double: "float64",
	metadata.Float:  "float32",
	metadata.String: "string",
	metadata.Guid:   "string",
	metadata.Object: "any",
}

// memberError ties a rendering failure to the member and source file it came from.
func memberError(target Target, c *metadata.ClassDescriptor, member string, err error) error {
	return errors.Mark(
		errors.Wrapf(err, "%s: %s.%s has no %s rendering", c.File, c.Name, member, target),
		errors.ErrModel)
}

// renderedParam is an input with its target type and default.
type renderedParam struct {
	metadata.ParameterDescriptor
	Ident      string
	TypeName   string
	DefaultVal string
}

// renderInputs renders the inputs of call with table, naming them through
// rename. Defaults are kept for the trailing run of defaulted inputs only.
func renderInputs(target Target, table typeTable, call metadata.Call, rename func(string) string) ([]renderedParam, error) {
	params := make([]renderedParam, len(call.Inputs))
	firstDefault := firstTrailingDefault(call.Inputs)
	for i, p := range call.Inputs {
		typeName, err := table.render(p.Type)
		if err != nil {
			return nil, memberError(target, call.Class, call.Method.Name, errors.Wrapf(err, "parameter %s", p.Name))
		}
		params[i] = renderedParam{ParameterDescriptor: p, Ident: rename(p.Name), TypeName: typeName}
		if p.Default == nil {
			continue
		}
		// every default must be representable, rendered or not
		value, err := table.literal(*p.Default, p.Type)
		if err != nil {
			return nil, memberError(target, call.Class, call.Method.Name, errors.Wrapf(err, "parameter %s", p.Name))
		}
		if i >= firstDefault {
			params[i].DefaultVal = value
		}
	}
	return params, nil
}

// renderedResult is a lowered result with its target type.
type renderedResult struct {
	metadata.Result
	TypeName string
}

func renderResults(target Target, table typeTable, call metadata.Call) ([]renderedResult, error) {
	results := make([]renderedResult, len(call.Results))
	for i, r := range call.Results {
		typeName, err := table.render(r.Type)
		if err != nil {
			return nil, memberError(target, call.Class, call.Method.Name, errors.Wrapf(err, "result %s", r.Name))
		}
		results[i] = renderedResult{Result: r, TypeName: typeName}
	}
	return results, nil
}
