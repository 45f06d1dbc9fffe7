package generation

import (
	"fmt"
	"sort"
	"strings"

	"computegen/internal/metadata"
)

// DotNetFile is the single source file the dotnet target writes.
const DotNetFile = "RhinoCompute.cs"

const csRuntime = `    public static class ComputeServer
    {
        public static string WebAddress { get; set; } = "%s";
        public static string AuthToken { get; set; }
        public static string ApiKey { get; set; }
        public static string Version => "%s";

        static readonly HttpClient _client = new HttpClient();

        public static string PostJson(string function, params object[] postData)
        {
            string url = WebAddress + function;
            string body = JsonConvert.SerializeObject(postData, GeometryResolver.Settings);
            var request = new HttpRequestMessage(HttpMethod.Post, url);
            request.Content = new StringContent(body, Encoding.UTF8, "application/json");
            request.Headers.UserAgent.ParseAdd("compute.rhino3d.cs/" + Version);
            if (!string.IsNullOrWhiteSpace(AuthToken))
                request.Headers.Authorization = new AuthenticationHeaderValue("Bearer", AuthToken);
            if (!string.IsNullOrWhiteSpace(ApiKey))
                request.Headers.Add("RhinoComputeKey", ApiKey);

            var response = _client.SendAsync(request).GetAwaiter().GetResult();
            string text = response.Content.ReadAsStringAsync().GetAwaiter().GetResult();
            if (!response.IsSuccessStatusCode)
                throw new InvalidOperationException($"{(int)response.StatusCode} {response.ReasonPhrase}: {text}");
            return text;
        }

        public static T Post<T>(string function, params object[] postData)
        {
            return JsonConvert.DeserializeObject<T>(PostJson(function, postData), GeometryResolver.Settings);
        }

        public static JArray PostMultiple(string function, params object[] postData)
        {
            return JArray.Parse(PostJson(function, postData));
        }

        public static T Result<T>(JArray results, int index)
        {
            return results[index].ToObject<T>(JsonSerializer.Create(GeometryResolver.Settings));
        }
    }

    static class GeometryResolver
    {
        public static JsonSerializerSettings Settings { get; } = new JsonSerializerSettings
        {
            ContractResolver = new GeometryContractResolver()
        };

        class GeometryContractResolver : DefaultContractResolver
        {
            protected override JsonContract CreateContract(Type objectType)
            {
                if (typeof(CommonObject).IsAssignableFrom(objectType))
                {
                    var contract = base.CreateObjectContract(objectType);
                    contract.Converter = new CommonObjectConverter();
                    return contract;
                }
                return base.CreateContract(objectType);
            }
        }

        class CommonObjectConverter : JsonConverter
        {
            public override bool CanConvert(Type objectType) => typeof(CommonObject).IsAssignableFrom(objectType);

            public override object ReadJson(JsonReader reader, Type objectType, object existingValue, JsonSerializer serializer)
            {
                if (reader.TokenType == JsonToken.Null)
                    return null;
                var dict = serializer.Deserialize<Dictionary<string, string>>(reader);
                return CommonObject.FromJSON(dict);
            }

            public override void WriteJson(JsonWriter writer, object value, JsonSerializer serializer)
            {
                if (value is CommonObject common)
                    serializer.Serialize(writer, common.ToJSON(new SerializationOptions()));
                else
                    writer.WriteNull();
            }
        }
    }
`

func (generator *Generator) generateDotNet() error {
	var body strings.Builder
	idents := classIdents(generator.Classes)
	for _, c := range generator.Classes {
		body.WriteString("\n")
		if err := writeDotNetClass(&body, c, idents[c.Name]); err != nil {
			return err
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "// RhinoCompute.cs %s, generated by computegen. Do not edit.\n", generator.Options.Version)
	for _, ns := range dotNetUsings(generator.Classes) {
		fmt.Fprintf(&sb, "using %s;\n", ns)
	}
	sb.WriteString("\nnamespace Rhino.Compute\n{\n")
	fmt.Fprintf(&sb, csRuntime, generator.Options.ComputeURL, generator.Options.Version)
	sb.WriteString(body.String())
	sb.WriteString("}\n")

	generator.addFile(DotNetFile, []byte(sb.String()))
	return nil
}

func dotNetUsings(classes []*metadata.ClassDescriptor) []string {
	set := make(map[string]bool)
	for _, ns := range []string{
		"System",
		"System.Collections.Generic",
		"System.Net.Http",
		"System.Net.Http.Headers",
		"System.Text",
		"Newtonsoft.Json",
		"Newtonsoft.Json.Linq",
		"Newtonsoft.Json.Serialization",
		"Rhino.FileIO",
		"Rhino.Runtime",
	} {
		set[ns] = true
	}
	for _, c := range classes {
		if ns := c.Namespace(); ns != "" {
			set[ns] = true
		}
	}
	usings := make([]string, 0, len(set))
	for ns := range set {
		usings = append(usings, ns)
	}
	sort.Strings(usings)
	return usings
}

func writeDotNetClass(sb *strings.Builder, c *metadata.ClassDescriptor, ident string) error {
	fmt.Fprintf(sb, "    public static class %sCompute\n    {\n", ident)
	for i, call := range metadata.Calls(c) {
		if i > 0 {
			sb.WriteString("\n")
		}
		if err := writeDotNetCall(sb, call); err != nil {
			return err
		}
	}
	sb.WriteString("    }\n")
	return nil
}

func csName(name string) string {
	name = strings.TrimPrefix(name, "@")
	switch {
	case csKeywords[name]:
		return "@" + name
	case name == "results":
		return name + "_"
	}
	return name
}

var csKeywords = reservedSet(
	"base", "bool", "byte", "case", "checked", "class", "const", "decimal", "default", "delegate",
	"double", "event", "explicit", "extern", "false", "fixed", "float", "implicit", "in", "int",
	"interface", "internal", "is", "lock", "long", "namespace", "new", "null", "object", "operator",
	"out", "override", "params", "private", "protected", "public", "readonly", "ref", "sealed",
	"short", "sizeof", "stackalloc", "static", "string", "struct", "this", "throw", "true",
	"typeof", "uint", "ulong", "unchecked", "unsafe", "ushort", "using", "virtual", "void",
	"volatile", "while",
)

// writeDotNetCall renders one method with its native signature: same-name
// overloads, out and ref kept, the receiver as an extension parameter.
func writeDotNetCall(sb *strings.Builder, call metadata.Call) error {
	params, err := renderInputs(DotNet, csTypes, call, csName)
	if err != nil {
		return err
	}
	results, err := renderResults(DotNet, csTypes, call)
	if err != nil {
		return err
	}
	byName := make(map[string]renderedParam, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}

	// declaration order, out parameters included
	var declared []string
	if call.Receiver != nil {
		receiver := byName[call.Receiver.Name]
		declared = append(declared, "this "+receiver.TypeName+" "+receiver.Ident)
	}
	firstDefault := firstTrailingDefault(call.Method.Params)
	for i, p := range call.Method.Params {
		typeName, err := csTypes.render(p.Type)
		if err != nil {
			return memberError(DotNet, call.Class, call.Method.Name, err)
		}
		decl := typeName + " " + csName(p.Name)
		switch {
		case p.Direction == metadata.Out:
			decl = "out " + decl
		case p.Direction == metadata.Ref:
			decl = "ref " + decl
		case p.IsParams:
			decl = "params " + decl
		}
		if rendered, ok := byName[p.Name]; ok && rendered.DefaultVal != "" && i >= firstDefault {
			decl += " = " + rendered.DefaultVal
		}
		declared = append(declared, decl)
	}

	returnType := "void"
	var primary *renderedResult
	for i := range results {
		if results[i].Primary {
			primary = &results[i]
			returnType = primary.TypeName
		}
	}

	args := make([]string, 0, len(params)+1)
	args = append(args, fmt.Sprintf("%q", call.Endpoint))
	for _, p := range params {
		args = append(args, p.Ident)
	}

	for _, line := range docLines(call.Method.Summary) {
		fmt.Fprintf(sb, "        /// %s\n", line)
	}
	fmt.Fprintf(sb, "        public static %s %s(%s)\n        {\n", returnType, call.Method.Name, strings.Join(declared, ", "))

	switch {
	case len(results) == 0:
		fmt.Fprintf(sb, "            ComputeServer.PostJson(%s);\n", strings.Join(args, ", "))
	case len(results) == 1 && primary != nil:
		fmt.Fprintf(sb, "            return ComputeServer.Post<%s>(%s);\n", primary.TypeName, strings.Join(args, ", "))
	case len(results) == 1:
		r := results[0]
		fmt.Fprintf(sb, "            %s = ComputeServer.Post<%s>(%s);\n", csName(r.Name), r.TypeName, strings.Join(args, ", "))
	default:
		fmt.Fprintf(sb, "            var results = ComputeServer.PostMultiple(%s);\n", strings.Join(args, ", "))
		for i, r := range results {
			if r.Primary {
				continue
			}
			fmt.Fprintf(sb, "            %s = ComputeServer.Result<%s>(results, %d);\n", csName(r.Name), r.TypeName, i)
		}
		if primary != nil {
			fmt.Fprintf(sb, "            return ComputeServer.Result<%s>(results, 0);\n", primary.TypeName)
		}
	}
	sb.WriteString("        }\n")
	return nil
}
