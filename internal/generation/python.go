package generation

import (
	"fmt"
	"path"
	"strings"

	"computegen/internal/metadata"
)

// PythonPackage is the package directory the python target writes.
const PythonPackage = "compute_rhino3d"

const pyUtil = `import json

import requests
import rhino3dm

__version__ = "%s"

url = "%s"
authToken = None
apiKey = None


class _Rhino3dmEncoder(json.JSONEncoder):
    def default(self, o):
        if hasattr(o, "Encode"):
            return o.Encode()
        if hasattr(o, "X") and hasattr(o, "Y") and hasattr(o, "Z"):
            return {"X": o.X, "Y": o.Y, "Z": o.Z}
        return json.JSONEncoder.default(self, o)


def ComputeFetch(endpoint, arglist):
    posturl = url + endpoint
    postdata = json.dumps(arglist, cls=_Rhino3dmEncoder)
    headers = {"User-Agent": "compute.rhino3d.py/" + __version__}
    if authToken:
        headers["Authorization"] = "Bearer " + authToken
    if apiKey:
        headers["RhinoComputeKey"] = apiKey
    r = requests.post(posturl, data=postdata, headers=headers)
    if r.status_code >= 400:
        raise Exception("{} {}: {}".format(r.status_code, r.reason, r.text))
    return r.json()


def DecodeToCommonObject(item):
    if item is None:
        return None
    if isinstance(item, list):
        return [DecodeToCommonObject(x) for x in item]
    if isinstance(item, dict):
        if "archive3dm" in item or "data" in item:
            return rhino3dm.CommonObject.Decode(item)
        if set(item.keys()) == {"X", "Y", "Z"}:
            return rhino3dm.Point3d(item["X"], item["Y"], item["Z"])
    return item
`

const pyPreamble = `from . import Util
try:
    from itertools import izip as zip # python 2
except ImportError:
    pass # python 3
`

func (generator *Generator) generatePython() error {
	idents := classIdents(generator.Classes)
	modules := make([]string, 0, len(generator.Classes))
	for _, c := range generator.Classes {
		ident := idents[c.Name]
		content, err := renderPythonModule(c)
		if err != nil {
			return err
		}
		generator.addFile(path.Join(PythonPackage, ident+".py"), content)
		modules = append(modules, ident)
	}

	var init strings.Builder
	fmt.Fprintf(&init, "# compute_rhino3d %s, generated by computegen. Do not edit.\n", generator.Options.Version)
	init.WriteString("from . import Util\n")
	for _, module := range modules {
		fmt.Fprintf(&init, "from . import %s\n", module)
	}
	generator.addFile(path.Join(PythonPackage, "__init__.py"), []byte(init.String()))
	generator.addFile(path.Join(PythonPackage, "Util.py"),
		[]byte(fmt.Sprintf(pyUtil, generator.Options.Version, generator.Options.ComputeURL)))
	return nil
}

func pyName(name string) string {
	return safeName(name, pyReserved)
}

func renderPythonModule(c *metadata.ClassDescriptor) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(pyPreamble)
	for _, call := range metadata.Calls(c) {
		sb.WriteString("\n\n")
		if err := writePythonCall(&sb, call); err != nil {
			return nil, err
		}
	}
	return []byte(sb.String()), nil
}

func writePythonCall(sb *strings.Builder, call metadata.Call) error {
	params, err := renderInputs(Python, pyTypes, call, pyName)
	if err != nil {
		return err
	}
	results, err := renderResults(Python, pyTypes, call)
	if err != nil {
		return err
	}

	signature := make([]string, 0, len(params)+1)
	idents := make([]string, len(params))
	for i, p := range params {
		idents[i] = p.Ident
		if p.DefaultVal != "" {
			signature = append(signature, p.Ident+"="+p.DefaultVal)
		} else {
			signature = append(signature, p.Ident)
		}
	}
	signature = append(signature, "multiple=False")

	name := overloadName(call.Method.Name, call.Method.Overload)
	fmt.Fprintf(sb, "def %s(%s):\n", name, strings.Join(signature, ", "))
	writePythonDocstring(sb, call, params, results)

	fmt.Fprintf(sb, "    url = %q\n", call.Endpoint)
	sb.WriteString("    if multiple: url += \"?multiple=true\"\n")
	fmt.Fprintf(sb, "    args = [%s]\n", strings.Join(idents, ", "))
	switch len(idents) {
	case 0:
	case 1:
		fmt.Fprintf(sb, "    if multiple: args = [[item] for item in %s]\n", idents[0])
	default:
		fmt.Fprintf(sb, "    if multiple: args = list(zip(%s))\n", strings.Join(idents, ", "))
	}
	sb.WriteString("    response = Util.ComputeFetch(url, args)\n")
	if resultsContainClass(results) {
		sb.WriteString("    response = Util.DecodeToCommonObject(response)\n")
	}
	if len(results) > 1 {
		sb.WriteString("    if not multiple: response = tuple(response)\n")
	}
	sb.WriteString("    return response\n")
	return nil
}

func writePythonDocstring(sb *strings.Builder, call metadata.Call, params []renderedParam, results []renderedResult) {
	sb.WriteString("    \"\"\"\n")
	for _, line := range pythonDocLines(call.Method.Summary) {
		writeIndented(sb, "    ", line)
	}

	if len(params) > 0 {
		if call.Method.Summary != "" {
			sb.WriteString("\n")
		}
		sb.WriteString("    Args:\n")
		for _, p := range params {
			doc := paramDoc(call, p.ParameterDescriptor)
			lines := pythonDocLines(doc)
			if len(lines) == 0 {
				fmt.Fprintf(sb, "        %s (%s)\n", p.Ident, p.TypeName)
				continue
			}
			fmt.Fprintf(sb, "        %s (%s): %s\n", p.Ident, p.TypeName, lines[0])
			for _, line := range lines[1:] {
				writeIndented(sb, "            ", line)
			}
		}
	}

	if len(results) > 0 {
		sb.WriteString("\n    Returns:\n")
		if len(results) == 1 {
			writePythonReturn(sb, results[0].TypeName, results[0].Doc)
		} else {
			types := make([]string, len(results))
			for i, r := range results {
				types[i] = r.TypeName
			}
			fmt.Fprintf(sb, "        tuple[%s]: ", strings.Join(types, ", "))
			names := make([]string, len(results))
			for i, r := range results {
				names[i] = r.Name
			}
			sb.WriteString("(" + strings.Join(names, ", ") + ")\n")
		}
	}
	sb.WriteString("    \"\"\"\n")
}

func writePythonReturn(sb *strings.Builder, typeName, doc string) {
	lines := pythonDocLines(doc)
	if len(lines) == 0 {
		fmt.Fprintf(sb, "        %s\n", typeName)
		return
	}
	fmt.Fprintf(sb, "        %s: %s\n", typeName, lines[0])
	for _, line := range lines[1:] {
		writeIndented(sb, "            ", line)
	}
}

// pythonDocLines is docLines for text placed inside a """ docstring.
func pythonDocLines(text string) []string {
	return docLines(pythonDocEscaper.Replace(text))
}

var pythonDocEscaper = strings.NewReplacer(`\`, `\\`, `"""`, `\"\"\"`)

func writeIndented(sb *strings.Builder, indent, line string) {
	if line == "" {
		sb.WriteString("\n")
		return
	}
	sb.WriteString(indent + line + "\n")
}

func resultsContainClass(results []renderedResult) bool {
	for _, r := range results {
		if r.Type.ContainsClass() {
			return true
		}
	}
	return false
}
