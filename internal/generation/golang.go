package generation

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"

	"computegen/internal/errors"
	"computegen/internal/metadata"
)

// goRuntimeNames are declared by the runtime part of the generated package.
var goRuntimeNames = reservedSet("Client", "CommonObject", "NewClient", "Version", "DefaultURL")

// goAliases collects the class types referenced by the generated functions.
// Classes of the registry travel as rhino3dm objects; any other referenced
// type (structs such as Point3d) is passed through as raw JSON.
type goAliases struct {
	registry *metadata.Registry
	common   map[string]bool
}

func (aliases *goAliases) ident(t metadata.TypeRef, from *metadata.ClassDescriptor) string {
	name := upperFirst(t.ShortName())
	if goRuntimeNames[name] {
		name += "Value"
	}
	isClass := false
	if aliases.registry != nil {
		_, isClass = aliases.registry.Resolve(t.Name, from)
	}
	aliases.common[name] = aliases.common[name] || isClass
	return name
}

func (aliases *goAliases) typeOf(t metadata.TypeRef, from *metadata.ClassDescriptor) (*jen.Statement, error) {
	switch t.Kind {
	case metadata.KindPrimitive:
		name, ok := goPrimitives[t.Primitive]
		if !ok {
			return nil, errors.Newf("no rendering for primitive %q", t.Primitive)
		}
		if name == "any" {
			return jen.Any(), nil
		}
		return jen.Id(name), nil
	case metadata.KindClass:
		return jen.Id(aliases.ident(t, from)), nil
	case metadata.KindArray:
		elem, err := aliases.typeOf(*t.Elem, from)
		if err != nil {
			return nil, err
		}
		return jen.Index().Add(elem), nil
	case metadata.KindNullable:
		elem, err := aliases.typeOf(*t.Elem, from)
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(elem), nil
	default:
		return nil, errors.Newf("no rendering for type %q", t.Name)
	}
}

func (generator *Generator) generateGo() error {
	pkg := generator.Options.GoPackage
	aliases := &goAliases{registry: generator.registry, common: make(map[string]bool)}

	// functions first, so the aliases they use are known
	functions := jen.Null()
	idents := classIdents(generator.Classes)
	seen := make(map[string]bool)
	for _, c := range generator.Classes {
		for _, call := range metadata.Calls(c) {
			name := idents[c.Name] + upperFirst(overloadName(call.Method.Name, call.Method.Overload))
			if seen[name] {
				return memberError(Go, c, call.Method.Name, errors.Newf("function name %s is taken", name))
			}
			seen[name] = true
			if err := writeGoCall(functions, aliases, call, name); err != nil {
				return err
			}
		}
	}

	file := jen.NewFile(pkg)
	file.HeaderComment("Code generated by computegen. DO NOT EDIT.")
	file.PackageComment(fmt.Sprintf("Package %s calls Rhino geometry functions on a compute server.", pkg))
	writeGoRuntime(file, generator.Options)
	writeGoAliases(file, aliases)
	file.Add(functions)

	var buf bytes.Buffer
	if err := file.Render(&buf); err != nil {
		return errors.Wrap(err, "formatting go client")
	}
	generator.addFile(path.Join(pkg, pkg+".go"), buf.Bytes())
	return nil
}

func writeGoRuntime(file *jen.File, opts Options) {
	file.Comment("Version is the version of the generator run that wrote this client.")
	file.Const().Id("Version").Op("=").Lit(opts.Version)
	file.Comment("DefaultURL is the compute server NewClient talks to.")
	file.Const().Id("DefaultURL").Op("=").Lit(opts.ComputeURL)
	file.Line()

	file.Comment("CommonObject is the rhino3dm JSON encoding of a geometry object.")
	file.Type().Id("CommonObject").Struct(
		jen.Id("Version").Int().Tag(map[string]string{"json": "version"}),
		jen.Id("Archive3dm").Int().Tag(map[string]string{"json": "archive3dm"}),
		jen.Id("OpenNURBS").Int().Tag(map[string]string{"json": "opennurbs"}),
		jen.Id("Data").String().Tag(map[string]string{"json": "data"}),
	)
	file.Line()

	file.Comment("Client posts calls to a compute server.")
	file.Type().Id("Client").Struct(
		jen.Id("URL").String(),
		jen.Id("AuthToken").String(),
		jen.Id("APIKey").String(),
		jen.Id("HTTPClient").Op("*").Qual("net/http", "Client"),
	)
	file.Line()

	file.Func().Id("NewClient").Params().Op("*").Id("Client").Block(
		jen.Return(jen.Op("&").Id("Client").Values(jen.Dict{
			jen.Id("URL"):        jen.Id("DefaultURL"),
			jen.Id("HTTPClient"): jen.Qual("net/http", "DefaultClient"),
		})),
	)
	file.Line()

	httpStatus := jen.Id("resp").Dot("StatusCode")
	file.Comment("Call posts args to endpoint and decodes the response into results: the")
	file.Comment("value itself for one result, a JSON array in result order for several.")
	file.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Call").Params(
		jen.Id("ctx").Qual("context", "Context"),
		jen.Id("endpoint").String(),
		jen.Id("args").Index().Any(),
		jen.Id("results").Op("...").Any(),
	).Error().Block(
		jen.List(jen.Id("body"), jen.Err()).Op(":=").Qual("encoding/json", "Marshal").Call(jen.Id("args")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.List(jen.Id("req"), jen.Err()).Op(":=").Qual("net/http", "NewRequestWithContext").Call(
			jen.Id("ctx"), jen.Qual("net/http", "MethodPost"), jen.Id("c").Dot("URL").Op("+").Id("endpoint"),
			jen.Qual("bytes", "NewReader").Call(jen.Id("body")),
		),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.Id("req").Dot("Header").Dot("Set").Call(jen.Lit("Content-Type"), jen.Lit("application/json")),
		jen.Id("req").Dot("Header").Dot("Set").Call(jen.Lit("User-Agent"), jen.Lit("compute.rhino3d.go/").Op("+").Id("Version")),
		jen.If(jen.Id("c").Dot("AuthToken").Op("!=").Lit("")).Block(
			jen.Id("req").Dot("Header").Dot("Set").Call(jen.Lit("Authorization"), jen.Lit("Bearer ").Op("+").Id("c").Dot("AuthToken")),
		),
		jen.If(jen.Id("c").Dot("APIKey").Op("!=").Lit("")).Block(
			jen.Id("req").Dot("Header").Dot("Set").Call(jen.Lit("RhinoComputeKey"), jen.Id("c").Dot("APIKey")),
		),
		jen.Line(),
		jen.Id("httpClient").Op(":=").Id("c").Dot("HTTPClient"),
		jen.If(jen.Id("httpClient").Op("==").Nil()).Block(
			jen.Id("httpClient").Op("=").Qual("net/http", "DefaultClient"),
		),
		jen.List(jen.Id("resp"), jen.Err()).Op(":=").Id("httpClient").Dot("Do").Call(jen.Id("req")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.Defer().Id("resp").Dot("Body").Dot("Close").Call(),
		jen.List(jen.Id("payload"), jen.Err()).Op(":=").Qual("io", "ReadAll").Call(jen.Id("resp").Dot("Body")),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.If(httpStatus.Op(">=").Lit(300)).Block(
			jen.Return(jen.Qual("fmt", "Errorf").Call(
				jen.Lit("%s: %s: %s"), jen.Id("endpoint"), jen.Id("resp").Dot("Status"),
				jen.Qual("bytes", "TrimSpace").Call(jen.Id("payload")),
			)),
		),
		jen.Line(),
		jen.Switch(jen.Len(jen.Id("results"))).Block(
			jen.Case(jen.Lit(0)).Block(jen.Return(jen.Nil())),
			jen.Case(jen.Lit(1)).Block(
				jen.Return(jen.Qual("encoding/json", "Unmarshal").Call(jen.Id("payload"), jen.Id("results").Index(jen.Lit(0)))),
			),
		),
		jen.Var().Id("values").Index().Qual("encoding/json", "RawMessage"),
		jen.If(
			jen.Err().Op(":=").Qual("encoding/json", "Unmarshal").Call(jen.Id("payload"), jen.Op("&").Id("values")),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Err())),
		jen.If(jen.Len(jen.Id("values")).Op("!=").Len(jen.Id("results"))).Block(
			jen.Return(jen.Qual("fmt", "Errorf").Call(
				jen.Lit("%s: expected %d results, got %d"), jen.Id("endpoint"), jen.Len(jen.Id("results")), jen.Len(jen.Id("values")),
			)),
		),
		jen.For(jen.List(jen.Id("i"), jen.Id("value")).Op(":=").Range().Id("values")).Block(
			jen.If(
				jen.Err().Op(":=").Qual("encoding/json", "Unmarshal").Call(jen.Id("value"), jen.Id("results").Index(jen.Id("i"))),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())),
		),
		jen.Return(jen.Nil()),
	)
	file.Line()
}

func writeGoAliases(file *jen.File, aliases *goAliases) {
	names := make([]string, 0, len(aliases.common))
	for name := range aliases.common {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return
	}

	file.Type().DefsFunc(func(g *jen.Group) {
		for _, name := range names {
			if aliases.common[name] {
				g.Id(name).Op("=").Id("CommonObject")
			} else {
				g.Id(name).Op("=").Qual("encoding/json", "RawMessage")
			}
		}
	})
	file.Line()
}

// writeGoCall renders one function; out and ref parameters become extra
// return values ahead of the error.
func writeGoCall(out *jen.Statement, aliases *goAliases, call metadata.Call, name string) error {
	params := make([]jen.Code, 0, len(call.Inputs)+1)
	params = append(params, jen.Id("ctx").Qual("context", "Context"))
	args := make([]jen.Code, 0, len(call.Inputs))
	for _, p := range call.Inputs {
		if p.Default != nil && !p.Default.IsRepresentable() {
			return memberError(Go, call.Class, call.Method.Name,
				errors.Newf("parameter %s: default value %q is not a literal", p.Name, p.Default.Text))
		}
		typ, err := aliases.typeOf(p.Type, call.Class)
		if err != nil {
			return memberError(Go, call.Class, call.Method.Name, errors.Wrapf(err, "parameter %s", p.Name))
		}
		ident := goParamName(p.Name)
		params = append(params, jen.Id(ident).Add(typ))
		args = append(args, jen.Id(ident))
	}

	returns := make([]jen.Code, 0, len(call.Results)+1)
	locals := make([]jen.Code, 0, len(call.Results))
	pointers := make([]jen.Code, 0, len(call.Results))
	values := make([]jen.Code, 0, len(call.Results)+1)
	for i, r := range call.Results {
		typ, err := aliases.typeOf(r.Type, call.Class)
		if err != nil {
			return memberError(Go, call.Class, call.Method.Name, errors.Wrapf(err, "result %s", r.Name))
		}
		local := fmt.Sprintf("r%d", i)
		returns = append(returns, typ.Clone())
		locals = append(locals, jen.Id(local).Add(typ))
		pointers = append(pointers, jen.Op("&").Id(local))
		values = append(values, jen.Id(local))
	}
	returns = append(returns, jen.Error())
	values = append(values, jen.Err())

	callArgs := append([]jen.Code{jen.Id("ctx"), jen.Lit(call.Endpoint), jen.Index().Any().Values(args...)}, pointers...)
	invoke := jen.Id("c").Dot("Call").Call(callArgs...)

	var body []jen.Code
	if len(call.Results) == 0 {
		body = []jen.Code{jen.Return(invoke)}
	} else {
		body = []jen.Code{
			jen.Var().Defs(locals...),
			jen.Err().Op(":=").Add(invoke),
			jen.Return(values...),
		}
	}

	out.Comment(fmt.Sprintf("%s calls %s.%s on the compute server.", name, call.Class.Name, call.Method.Name)).Line()
	for _, line := range docLines(call.Method.Summary) {
		if strings.TrimSpace(line) != "" {
			out.Comment(line).Line()
		}
	}
	out.Func().Params(jen.Id("c").Op("*").Id("Client")).Id(name).Params(params...).Params(returns...).Block(body...).Line().Line()
	return nil
}
