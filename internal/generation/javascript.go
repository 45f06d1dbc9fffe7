package generation

import (
	"fmt"
	"strings"

	"computegen/internal/metadata"
)

// JavaScriptFile is the single module the javascript target writes.
const JavaScriptFile = "compute.rhino3d.js"

const jsRuntime = `var RhinoCompute = {
    version: "%s",

    url: "%s",

    authToken: null,

    apiKey: null,

    computeFetch: function(endpoint, arglist) {
        let request = {
            "method": "POST",
            "body": JSON.stringify(arglist),
            "headers": {"User-Agent": "compute.rhino3d.js/" + RhinoCompute.version}
        };
        if (RhinoCompute.authToken) {
            request.headers["Authorization"] = "Bearer " + RhinoCompute.authToken;
        }
        if (RhinoCompute.apiKey) {
            request.headers["RhinoComputeKey"] = RhinoCompute.apiKey;
        }
        return fetch(RhinoCompute.url + endpoint, request).then(function(r) {
            if (!r.ok) {
                return r.text().then(function(message) {
                    throw new Error(r.status + " " + r.statusText + ": " + message);
                });
            }
            return r.json();
        });
    },

    zipArgs: function(multiple, ...args) {
        if (!multiple)
            return args;
        return args[0].map(function(_, i) {
            return args.map(function(arg) { return arg[i]; });
        });
    },
`

const jsFooter = `};

if (typeof exports === "object" && typeof module === "object") {
    module.exports = RhinoCompute;
}
`

func (generator *Generator) generateJavaScript() error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// compute.rhino3d.js %s, generated by computegen. Do not edit.\n\n", generator.Options.Version)
	fmt.Fprintf(&sb, jsRuntime, generator.Options.Version, generator.Options.ComputeURL)

	idents := classIdents(generator.Classes)
	for _, c := range generator.Classes {
		sb.WriteString("\n")
		if err := generator.writeJavaScriptClass(&sb, c, idents[c.Name]); err != nil {
			return err
		}
	}
	sb.WriteString(jsFooter)

	generator.addFile(JavaScriptFile, []byte(sb.String()))
	return nil
}

func (generator *Generator) writeJavaScriptClass(sb *strings.Builder, c *metadata.ClassDescriptor, ident string) error {
	fmt.Fprintf(sb, "    %s : {\n", ident)
	for i, call := range metadata.Calls(c) {
		if i > 0 {
			sb.WriteString("\n")
		}
		if err := writeJavaScriptCall(sb, call); err != nil {
			return err
		}
	}
	sb.WriteString("    },\n")
	return nil
}

func jsName(name string) string {
	return safeName(name, jsReserved)
}

func writeJavaScriptCall(sb *strings.Builder, call metadata.Call) error {
	params, err := renderInputs(JavaScript, jsTypes, call, jsName)
	if err != nil {
		return err
	}
	if _, err := renderResults(JavaScript, jsTypes, call); err != nil {
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
	signature = append(signature, "multiple=false")

	name := lowerFirst(overloadName(call.Method.Name, call.Method.Overload))
	fmt.Fprintf(sb, "        %s : function(%s) {\n", name, strings.Join(signature, ", "))
	fmt.Fprintf(sb, "            let url=%q;\n", call.Endpoint)
	sb.WriteString("            if(multiple) url = url + \"?multiple=true\"\n")
	if len(idents) == 0 {
		sb.WriteString("            let args = [];\n")
	} else {
		fmt.Fprintf(sb, "            let args = RhinoCompute.zipArgs(multiple, %s);\n", strings.Join(idents, ", "))
	}
	sb.WriteString("            var promise = RhinoCompute.computeFetch(url, args);\n")
	sb.WriteString("            return promise;\n")
	sb.WriteString("        },\n")
	return nil
}
