package metadata

import (
	"strings"
)

// Call is the wire view of one proxy callable: what it sends to the compute
// endpoint and what it gets back. Every target emitter renders from a Call,
// so receiver handling, output lowering and endpoint naming stay identical
// across targets.
type Call struct {
	Class  *ClassDescriptor
	Method MethodDescriptor
	// Receiver is the implicit first input of instance members, nil for statics.
	Receiver *ParameterDescriptor
	// Inputs are serialized in this order; the receiver comes first.
	Inputs  []ParameterDescriptor
	Results []Result
	// Endpoint is the path below the compute server's base URL.
	Endpoint string
}

// NewCall builds the call for method m of class c.
func NewCall(c *ClassDescriptor, m MethodDescriptor) Call {
	call := Call{Class: c, Method: m, Results: m.Results()}
	if !m.IsStatic {
		receiver := ReceiverOf(c)
		call.Receiver = &receiver
		call.Inputs = append(call.Inputs, receiver)
	}
	call.Inputs = append(call.Inputs, m.Inputs()...)
	call.Endpoint = Endpoint(c, m.Name, call.Inputs)
	return call
}

// ReceiverOf is the parameter that stands for the instance a method is called on.
func ReceiverOf(c *ClassDescriptor) ParameterDescriptor {
	return ParameterDescriptor{Name: "this" + c.ShortName(), Type: ClassOf(c.Name)}
}

// Endpoint builds the compute path for a member called with the given inputs:
// rhino/geometry/subd/offset-subd_double_bool.
func Endpoint(c *ClassDescriptor, member string, inputs []ParameterDescriptor) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(strings.ReplaceAll(c.Name, ".", "/")))
	sb.WriteString("/")
	sb.WriteString(strings.ToLower(member))
	if len(inputs) == 0 {
		return sb.String()
	}

	tokens := make([]string, len(inputs))
	for i, p := range inputs {
		tokens[i] = p.Type.Token()
	}
	sb.WriteString("-")
	sb.WriteString(strings.Join(tokens, "_"))
	return sb.String()
}

// Getter is the synthetic method that reads property p.
func Getter(p PropertyDescriptor) MethodDescriptor {
	return MethodDescriptor{
		Name:       "Get" + p.Name,
		IsStatic:   p.IsStatic,
		Returns:    p.Type,
		Summary:    p.Summary,
		ReturnsDoc: "The value of " + p.Name + ".",
		Line:       p.Line,
	}
}

// Setter is the synthetic method that writes property p. Without a live
// session the instance setter returns the updated object.
func Setter(c *ClassDescriptor, p PropertyDescriptor) MethodDescriptor {
	m := MethodDescriptor{
		Name:     "Set" + p.Name,
		IsStatic: p.IsStatic,
		Params:   []ParameterDescriptor{{Name: "value", Type: p.Type, Doc: "New value of " + p.Name + "."}},
		Returns:  VoidType,
		Summary:  p.Summary,
		Line:     p.Line,
	}
	if !p.IsStatic {
		m.Returns = ClassOf(c.Name)
		m.ReturnsDoc = "A copy of the " + c.ShortName() + " with " + p.Name + " set."
	}
	return m
}

// Accessors returns the getter and, for writable properties, the setter.
func Accessors(c *ClassDescriptor, p PropertyDescriptor) []MethodDescriptor {
	var accessors []MethodDescriptor
	if p.CanRead {
		accessors = append(accessors, Getter(p))
	}
	if p.CanWrite {
		accessors = append(accessors, Setter(c, p))
	}
	return accessors
}

// Calls lists every callable a proxy for c exposes: methods in declaration
// order, then property accessors.
func Calls(c *ClassDescriptor) []Call {
	calls := make([]Call, 0, len(c.Methods)+2*len(c.Properties))
	taken := make(map[string]int, len(c.Methods))
	for _, m := range c.Methods {
		calls = append(calls, NewCall(c, m))
		taken[m.Name]++
	}
	for _, p := range c.Properties {
		for _, accessor := range Accessors(c, p) {
			// an accessor named like a real method joins its overload set
			accessor.Overload = taken[accessor.Name]
			taken[accessor.Name]++
			calls = append(calls, NewCall(c, accessor))
		}
	}
	return calls
}
