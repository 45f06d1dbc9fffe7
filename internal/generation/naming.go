package generation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"computegen/internal/metadata"
)

// overloadName suffixes the overload index for targets without native
// overloading: Offset, Offset1, Offset2.
func overloadName(name string, overload int) string {
	if overload == 0 {
		return name
	}
	return name + strconv.Itoa(overload)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// classIdents names each class by its short name, falling back to the whole
// qualified name run together when two classes share a short name.
func classIdents(classes []*metadata.ClassDescriptor) map[string]string {
	counts := make(map[string]int, len(classes))
	for _, c := range classes {
		counts[c.ShortName()]++
	}
	idents := make(map[string]string, len(classes))
	for _, c := range classes {
		if counts[c.ShortName()] == 1 {
			idents[c.Name] = c.ShortName()
			continue
		}
		var sb strings.Builder
		for _, segment := range strings.Split(c.Name, ".") {
			sb.WriteString(upperFirst(segment))
		}
		idents[c.Name] = sb.String()
	}
	return idents
}

func reservedSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Reserved words plus the locals each generated body declares.
var (
	jsReserved = reservedSet(
		"break", "case", "catch", "class", "const", "continue", "debugger", "default", "delete",
		"do", "else", "enum", "export", "extends", "false", "finally", "for", "function", "if",
		"implements", "import", "in", "instanceof", "interface", "let", "new", "null", "package",
		"private", "protected", "public", "return", "static", "super", "switch", "this", "throw",
		"true", "try", "typeof", "var", "void", "while", "with", "yield", "await", "arguments", "eval",
		"url", "args", "promise", "multiple",
	)
	pyReserved = reservedSet(
		"False", "None", "True", "and", "as", "assert", "async", "await", "break", "class",
		"continue", "def", "del", "elif", "else", "except", "finally", "for", "from", "global",
		"if", "import", "in", "is", "lambda", "nonlocal", "not", "or", "pass", "raise", "return",
		"try", "while", "with", "yield", "print", "exec",
		"url", "args", "response", "multiple", "Util", "zip",
	)
	goReserved = reservedSet(
		"break", "case", "chan", "const", "continue", "default", "defer", "else", "fallthrough",
		"for", "func", "go", "goto", "if", "import", "interface", "map", "package", "range",
		"return", "select", "struct", "switch", "type", "var",
		"c", "ctx", "err",
	)
)

var goResultLocal = regexp.MustCompile(`^r[0-9]+$`)

// safeName strips the C# verbatim marker and moves names that clash with
// reserved words out of the way.
func safeName(name string, reserved map[string]bool) string {
	name = strings.TrimPrefix(name, "@")
	if reserved[name] {
		return name + "_"
	}
	return name
}

func goParamName(name string) string {
	name = safeName(name, goReserved)
	if goResultLocal.MatchString(name) {
		return name + "_"
	}
	return name
}

// firstTrailingDefault is the index of the first input of the trailing run
// of defaulted inputs; earlier defaults cannot be rendered where optional
// parameters must come last.
func firstTrailingDefault(inputs []metadata.ParameterDescriptor) int {
	i := len(inputs)
	for i > 0 && inputs[i-1].HasDefault() && !inputs[i-1].IsParams {
		i--
	}
	return i
}

// docLines splits a doc text into lines for indented rendering.
func docLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// paramDoc is the documentation of an input; the receiver gets a generated line.
func paramDoc(call metadata.Call, p metadata.ParameterDescriptor) string {
	if call.Receiver != nil && p.Name == call.Receiver.Name {
		return "The " + call.Class.ShortName() + " to call " + call.Method.Name + " on."
	}
	return p.Doc
}
