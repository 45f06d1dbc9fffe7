package generation

import (
	"fmt"
	"path/filepath"
	"strings"

	"computegen/internal/errors"
	"computegen/internal/metadata"
)

// docVariant holds what differs between the documented targets.
type docVariant struct {
	target   Target
	title    string
	module   func(ident string) string
	function func(ident string, call metadata.Call) string
	types    typeTable
	rename   func(string) string
	falseLit string
	trueLit  string
}

var docVariants = map[Target]docVariant{
	JavaScript: {
		target: JavaScript,
		title:  "compute.rhino3d.js",
		module: func(string) string { return ".. js:module:: RhinoCompute" },
		function: func(ident string, call metadata.Call) string {
			return ".. js:function:: RhinoCompute." + ident + "." + lowerFirst(overloadName(call.Method.Name, call.Method.Overload))
		},
		types:    jsTypes,
		rename:   jsName,
		falseLit: "false",
		trueLit:  "true",
	},
	Python: {
		target: Python,
		title:  PythonPackage,
		module: func(ident string) string { return ".. py:module:: " + PythonPackage + "." + ident },
		function: func(_ string, call metadata.Call) string {
			return ".. py:function:: " + overloadName(call.Method.Name, call.Method.Overload)
		},
		types:    pyTypes,
		rename:   pyName,
		falseLit: "False",
		trueLit:  "True",
	},
}

// EmitDocs writes one reStructuredText page per class plus an index.rst
// into outputDir. Pages describe signatures only; nothing about endpoints.
func EmitDocs(variant Target, classes []*metadata.ClassDescriptor, outputDir string) ([]string, error) {
	v, ok := docVariants[variant]
	if !ok {
		return nil, errors.Configurationf("no documentation variant for target %q", variant)
	}

	var files []renderedFile
	idents := classIdents(classes)
	for _, c := range classes {
		page, err := v.page(c, idents[c.Name])
		if err != nil {
			return nil, err
		}
		files = append(files, renderedFile{path: filepath.Join(outputDir, idents[c.Name]+".rst"), content: page})
	}
	files = append(files, renderedFile{path: filepath.Join(outputDir, "index.rst"), content: v.index(classes, idents)})

	written := make([]string, 0, len(files))
	for _, f := range files {
		if err := writeFile(f.path, f.content); err != nil {
			return written, err
		}
		written = append(written, f.path)
	}
	return written, nil
}

func heading(sb *strings.Builder, text string, underline byte) {
	sb.WriteString(text + "\n")
	sb.WriteString(strings.Repeat(string(underline), len(text)) + "\n\n")
}

func (v docVariant) index(classes []*metadata.ClassDescriptor, idents map[string]string) []byte {
	var sb strings.Builder
	heading(&sb, v.title, '=')
	sb.WriteString(".. toctree::\n   :maxdepth: 1\n   :caption: Classes\n\n")
	for _, c := range classes {
		sb.WriteString("   " + idents[c.Name] + "\n")
	}
	return []byte(sb.String())
}

func (v docVariant) page(c *metadata.ClassDescriptor, ident string) ([]byte, error) {
	var sb strings.Builder
	heading(&sb, ident, '=')
	sb.WriteString(v.module(ident) + "\n\n")
	for _, line := range docLines(c.Summary) {
		sb.WriteString(line + "\n")
	}
	if c.Summary != "" {
		sb.WriteString("\n")
	}
	if c.Base != "" {
		fmt.Fprintf(&sb, "Derives from ``%s``.\n\n", c.Base)
	}

	if len(c.Properties) > 0 {
		heading(&sb, "Properties", '-')
		for _, p := range c.Properties {
			typeName, err := v.types.render(p.Type)
			if err != nil {
				return nil, memberError(v.target, c, p.Name, err)
			}
			fmt.Fprintf(&sb, "* ``%s`` (%s): %s\n", p.Name, typeName, mutability(p))
		}
		sb.WriteString("\n")
	}

	calls := metadata.Calls(c)
	if len(calls) > 0 {
		heading(&sb, "Functions", '-')
	}
	for _, call := range calls {
		if err := v.writeCall(&sb, ident, call); err != nil {
			return nil, err
		}
	}
	return []byte(sb.String()), nil
}

func mutability(p metadata.PropertyDescriptor) string {
	kind := "read only"
	switch {
	case p.CanRead && p.CanWrite:
		kind = "read/write"
	case p.CanWrite:
		kind = "write only"
	}
	if p.IsStatic {
		kind = "static, " + kind
	}
	return kind
}

func (v docVariant) writeCall(sb *strings.Builder, ident string, call metadata.Call) error {
	params, err := renderInputs(v.target, v.types, call, v.rename)
	if err != nil {
		return err
	}
	results, err := renderResults(v.target, v.types, call)
	if err != nil {
		return err
	}

	signature := make([]string, 0, len(params)+1)
	for _, p := range params {
		if p.DefaultVal != "" {
			signature = append(signature, p.Ident+"="+p.DefaultVal)
		} else {
			signature = append(signature, p.Ident)
		}
	}
	signature = append(signature, "multiple="+v.falseLit)
	fmt.Fprintf(sb, "%s(%s)\n\n", v.function(ident, call), strings.Join(signature, ", "))

	for _, line := range docLines(call.Method.Summary) {
		writeIndented(sb, "   ", line)
	}
	if call.Method.Summary != "" {
		sb.WriteString("\n")
	}

	for _, p := range params {
		doc := paramDoc(call, p.ParameterDescriptor)
		fmt.Fprintf(sb, "   :param %s %s: %s\n", p.TypeName, p.Ident, strings.ReplaceAll(doc, "\n", " "))
	}
	fmt.Fprintf(sb, "   :param bool multiple: (default %s) If %s, all parameters are expected as lists of equal length and input will be batch processed\n",
		v.falseLit, v.trueLit)

	switch len(results) {
	case 0:
	case 1:
		fmt.Fprintf(sb, "\n   :return: %s\n", strings.ReplaceAll(results[0].Doc, "\n", " "))
		fmt.Fprintf(sb, "   :rtype: %s\n", results[0].TypeName)
	default:
		names := make([]string, len(results))
		types := make([]string, len(results))
		for i, r := range results {
			names[i] = r.Name
			types[i] = r.TypeName
		}
		fmt.Fprintf(sb, "\n   :return: (%s)\n", strings.Join(names, ", "))
		fmt.Fprintf(sb, "   :rtype: [%s]\n", strings.Join(types, ", "))
	}
	sb.WriteString("\n")
	return nil
}
