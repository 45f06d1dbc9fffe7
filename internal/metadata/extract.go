package metadata

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"computegen/internal/errors"
)

// Diagnostic is a recoverable problem found while extracting.
type Diagnostic struct {
	File    string
	Line    int
	Message string
	Err     error
}

func (d Diagnostic) String() string {
	return d.File + ": " + d.Message
}

// Extract reads every C# file under root into a registry. A missing root is
// a configuration error; a file that fails to parse only produces a
// diagnostic and contributes nothing.
func Extract(ctx context.Context, root string, opts Options) (*Registry, []Diagnostic, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, errors.WithHint(
			errors.Configurationf("source root %s does not exist", root),
			"point --source at the RhinoCommon checkout, or run `computegen fetch`")
	}
	if !info.IsDir() {
		return nil, nil, errors.Configurationf("source root %s is not a directory", root)
	}

	excludes, err := compileGlobs(opts.ExcludeGlobs)
	if err != nil {
		return nil, nil, err
	}

	reader, err := NewReader(opts)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	builder := newRegistryBuilder()
	var diagnostics []Diagnostic
	report := func(d Diagnostic) {
		diagnostics = append(diagnostics, d)
		reader.log.Warnw(d.Message, "file", d.File, "line", d.Line)
	}

	// WalkDir visits in lexical order, which keeps the registry order stable
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if walkErr != nil {
			report(Diagnostic{File: rel, Message: walkErr.Error(), Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(excludes, "/"+rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".cs") {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			report(Diagnostic{File: rel, Message: "unreadable source file", Err: err})
			return nil
		}
		classes, err := reader.ReadFile(rel, src)
		if err != nil {
			diag := Diagnostic{File: rel, Message: err.Error(), Err: err}
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				diag.Line = parseErr.Line
			}
			report(diag)
			return nil
		}
		for _, c := range classes {
			for _, diag := range builder.add(c) {
				report(diag)
			}
		}
		return nil
	})
	if err != nil {
		return nil, diagnostics, errors.Wrap(err, "walking source tree")
	}

	reg, clashes := builder.build()
	for _, diag := range clashes {
		report(diag)
	}
	return reg, diagnostics, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "invalid exclude glob %q", pattern), errors.ErrConfiguration)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// registryBuilder merges partial class declarations and drops members that
// repeat an existing signature (usually the two arms of an #if).
type registryBuilder struct {
	reg        *Registry
	signatures map[string]map[string]bool
	properties map[string]map[string]bool
}

func newRegistryBuilder() *registryBuilder {
	return &registryBuilder{
		reg:        newRegistry(),
		signatures: make(map[string]map[string]bool),
		properties: make(map[string]map[string]bool),
	}
}

func (b *registryBuilder) add(c *ClassDescriptor) []Diagnostic {
	existing, ok := b.reg.classes[c.Name]
	if !ok {
		existing = &ClassDescriptor{Name: c.Name, Base: c.Base, IsStatic: c.IsStatic, Summary: c.Summary, File: c.File}
		b.reg.insert(existing)
		b.signatures[c.Name] = make(map[string]bool)
		b.properties[c.Name] = make(map[string]bool)
	} else {
		if existing.Base == "" {
			existing.Base = c.Base
		}
		if existing.Summary == "" {
			existing.Summary = c.Summary
		}
		existing.IsStatic = existing.IsStatic || c.IsStatic
	}

	var diagnostics []Diagnostic
	for _, m := range c.Methods {
		sig := m.Signature()
		if b.signatures[c.Name][sig] {
			diagnostics = append(diagnostics, Diagnostic{
				File:    c.File,
				Line:    m.Line,
				Message: "duplicate overload " + c.Name + "." + sig + " ignored",
			})
			continue
		}
		b.signatures[c.Name][sig] = true
		existing.Methods = append(existing.Methods, m)
	}
	for _, p := range c.Properties {
		if b.properties[c.Name][p.Name] {
			continue
		}
		b.properties[c.Name][p.Name] = true
		existing.Properties = append(existing.Properties, p)
	}
	return diagnostics
}

// build drops members that would share an endpoint with an earlier one and
// seals the registry.
func (b *registryBuilder) build() (*Registry, []Diagnostic) {
	var diagnostics []Diagnostic
	for _, name := range b.reg.order {
		c := b.reg.classes[name]
		clashes := endpointClashes(c)
		if len(clashes) == 0 {
			continue
		}
		for _, clash := range clashes {
			diagnostics = append(diagnostics, Diagnostic{
				File:    c.File,
				Line:    clash.Line,
				Message: c.Name + "." + clash.String() + ", ignored",
			})
		}
		dropClashes(c, clashes)
	}
	b.reg.seal()
	return b.reg, diagnostics
}
