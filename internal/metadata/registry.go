package metadata

import (
	"strings"

	"computegen/internal/errors"
)

// Registry maps qualified class names to descriptors and remembers the order
// classes were first declared in. It is built once by Extract (or
// NewRegistry) and only read afterwards.
type Registry struct {
	classes map[string]*ClassDescriptor
	order   []string
	// short names to qualified names, for resolving unqualified references
	short map[string][]string
}

// NewRegistry builds a registry from copies of ready descriptors, assigning
// overload indexes on the copies. Duplicate qualified names, duplicate
// overload signatures and members that would share an endpoint are rejected.
func NewRegistry(classes ...*ClassDescriptor) (*Registry, error) {
	reg := newRegistry()
	for _, c := range classes {
		if _, exists := reg.classes[c.Name]; exists {
			return nil, errors.Modelf("class %s is declared twice", c.Name)
		}
		if dup, ok := duplicateSignature(c.Methods); ok {
			return nil, errors.Modelf("class %s declares %s twice", c.Name, dup)
		}
		if clashes := endpointClashes(c); len(clashes) > 0 {
			return nil, errors.Modelf("class %s: %s", c.Name, clashes[0])
		}
		reg.insert(c.clone())
	}
	reg.seal()
	return reg, nil
}

func newRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*ClassDescriptor),
		short:   make(map[string][]string),
	}
}

func (r *Registry) insert(c *ClassDescriptor) {
	r.classes[c.Name] = c
	r.order = append(r.order, c.Name)
	short := c.ShortName()
	r.short[short] = append(r.short[short], c.Name)
}

// seal finishes construction: overload indexes follow declaration order.
func (r *Registry) seal() {
	for _, name := range r.order {
		assignOverloads(r.classes[name])
	}
}

func assignOverloads(c *ClassDescriptor) {
	seen := make(map[string]int, len(c.Methods))
	for i := range c.Methods {
		c.Methods[i].Overload = seen[c.Methods[i].Name]
		seen[c.Methods[i].Name]++
	}
}

func duplicateSignature(methods []MethodDescriptor) (string, bool) {
	seen := make(map[string]bool, len(methods))
	for _, m := range methods {
		sig := m.Signature()
		if seen[sig] {
			return sig, true
		}
		seen[sig] = true
	}
	return "", false
}

// endpointClash is a member whose endpoint an earlier member already uses,
// for example a static Offset(Curve, double) next to an instance
// Offset(double), or a property getter GetX next to a method GetX().
type endpointClash struct {
	Member   string
	Endpoint string
	Line     int

	method   int // index into Methods, -1 for property accessors
	property int
	setter   bool
}

func (e endpointClash) String() string {
	return e.Member + " would reuse endpoint " + e.Endpoint
}

// endpointClashes walks the calls of c in emission order, methods before
// accessors, and reports every member after the first on each endpoint.
func endpointClashes(c *ClassDescriptor) []endpointClash {
	taken := make(map[string]bool, len(c.Methods)+2*len(c.Properties))
	var clashes []endpointClash
	for i, m := range c.Methods {
		endpoint := NewCall(c, m).Endpoint
		if taken[endpoint] {
			clashes = append(clashes, endpointClash{Member: m.Signature(), Endpoint: endpoint, Line: m.Line, method: i, property: -1})
			continue
		}
		taken[endpoint] = true
	}
	for i, p := range c.Properties {
		for _, accessor := range Accessors(c, p) {
			endpoint := NewCall(c, accessor).Endpoint
			if taken[endpoint] {
				clashes = append(clashes, endpointClash{
					Member:   accessor.Signature(),
					Endpoint: endpoint,
					Line:     accessor.Line,
					method:   -1,
					property: i,
					setter:   accessor.Name == "Set"+p.Name,
				})
				continue
			}
			taken[endpoint] = true
		}
	}
	return clashes
}

// dropClashes removes the members endpointClashes reports from c. A property
// loses only the clashing accessor, and goes away once it has none left.
func dropClashes(c *ClassDescriptor, clashes []endpointClash) {
	dropped := make(map[int]bool, len(clashes))
	for _, clash := range clashes {
		switch {
		case clash.method >= 0:
			dropped[clash.method] = true
		case clash.setter:
			c.Properties[clash.property].CanWrite = false
		default:
			c.Properties[clash.property].CanRead = false
		}
	}

	methods := c.Methods[:0]
	for i, m := range c.Methods {
		if !dropped[i] {
			methods = append(methods, m)
		}
	}
	c.Methods = methods

	properties := c.Properties[:0]
	for _, p := range c.Properties {
		if p.CanRead || p.CanWrite {
			properties = append(properties, p)
		}
	}
	c.Properties = properties
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Classes returns every class in insertion order. The slice is fresh but the
// descriptors are the registry's own and must not be modified.
func (r *Registry) Classes() []*ClassDescriptor {
	classes := make([]*ClassDescriptor, len(r.order))
	for i, name := range r.order {
		classes[i] = r.classes[name]
	}
	return classes
}

// Lookup finds a class by qualified name. Like Classes, it shares the
// registry's descriptor.
func (r *Registry) Lookup(qualified string) (*ClassDescriptor, bool) {
	c, ok := r.classes[qualified]
	return c, ok
}

// Resolve finds the class a name refers to from inside class from: the
// qualified name itself, a sibling in from's namespace or an enclosing one,
// or a short name that is unique in the registry.
func (r *Registry) Resolve(name string, from *ClassDescriptor) (*ClassDescriptor, bool) {
	if c, ok := r.classes[name]; ok {
		return c, true
	}
	if from != nil {
		ns := from.Namespace()
		for ns != "" {
			if c, ok := r.classes[ns+"."+name]; ok {
				return c, true
			}
			i := strings.LastIndex(ns, ".")
			if i < 0 {
				break
			}
			ns = ns[:i]
		}
	}
	if candidates := r.short[ShortName(name)]; len(candidates) == 1 {
		return r.classes[candidates[0]], true
	}
	return nil, false
}

// Base resolves the base class of c. The reference is by name, so a base
// declared in a later file or outside the registry is fine.
func (r *Registry) Base(c *ClassDescriptor) (*ClassDescriptor, bool) {
	if c.Base == "" {
		return nil, false
	}
	return r.Resolve(c.Base, c)
}

// Filter returns the classes whose qualified name contains any of the
// patterns (case-sensitive), in registry order. No patterns, no classes.
func Filter(reg *Registry, patterns []string) []*ClassDescriptor {
	var subset []*ClassDescriptor
	for _, c := range reg.Classes() {
		for _, pattern := range patterns {
			if strings.Contains(c.Name, pattern) {
				subset = append(subset, c)
				break
			}
		}
	}
	return subset
}

// Select is the code emitters' view of the registry: every class when no
// patterns are given, otherwise Filter.
func Select(reg *Registry, patterns []string) []*ClassDescriptor {
	if len(patterns) == 0 {
		return reg.Classes()
	}
	return Filter(reg, patterns)
}
