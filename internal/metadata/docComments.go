package metadata

import (
	"encoding/xml"
	"io"
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// DocComment is the useful part of a C# XML documentation comment.
type DocComment struct {
	Summary string
	Returns string
	Params  map[string]string
	// Exclude is set by an <exclude/> element, the doc-comment opt-out marker.
	Exclude bool
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// docFor reads the contiguous /// block that precedes a declaration.
func (reader *SourceReader) docFor(node *sitter.Node, src []byte) DocComment {
	var lines []string
	for prev := node.PrevSibling(); prev != nil && prev.Kind() == "comment"; prev = prev.PrevSibling() {
		text := nodeText(prev, src)
		if !strings.HasPrefix(text, "///") {
			break
		}
		lines = append(lines, text)
	}
	if len(lines) == 0 {
		return DocComment{}
	}

	// collected bottom-up
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	for i, line := range lines {
		line = strings.TrimPrefix(line, "///")
		lines[i] = strings.TrimPrefix(line, " ")
	}
	return ParseDocComment(strings.Join(lines, "\n"))
}

// ParseDocComment parses the XML body of a documentation comment. Malformed
// XML falls back to the text with every tag removed as the summary.
func ParseDocComment(body string) DocComment {
	doc, err := parseDocXML(body)
	if err != nil {
		return DocComment{
			Summary: cleanDocText(tagPattern.ReplaceAllString(body, "")),
			Exclude: strings.Contains(body, "<exclude"),
		}
	}
	return doc
}

func parseDocXML(body string) (DocComment, error) {
	doc := DocComment{Params: map[string]string{}}
	decoder := xml.NewDecoder(strings.NewReader("<doc>" + body + "</doc>"))
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity

	var (
		section string
		param   string
		text    strings.Builder
	)
	flush := func() {
		value := cleanDocText(text.String())
		switch section {
		case "summary":
			doc.Summary = value
		case "returns":
			doc.Returns = value
		case "param":
			if param != "" {
				doc.Params[param] = value
			}
		}
		text.Reset()
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return DocComment{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "summary", "returns", "param":
				if section == "" {
					section = t.Name.Local
					param = attr(t, "name")
					text.Reset()
				}
			case "exclude":
				doc.Exclude = true
			case "see", "seealso":
				if ref := attr(t, "cref"); ref != "" {
					text.WriteString(crefName(ref))
				} else if word := attr(t, "langword"); word != "" {
					text.WriteString(word)
				}
			case "paramref", "typeparamref":
				text.WriteString(attr(t, "name"))
			case "para", "br":
				text.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Local == section {
				flush()
				section, param = "", ""
			}
		case xml.CharData:
			if section != "" {
				text.Write(t)
			}
		}
	}
	return doc, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// crefName turns "M:Rhino.Geometry.Curve.Offset(System.Double)" into "Offset".
func crefName(ref string) string {
	if len(ref) > 2 && ref[1] == ':' {
		ref = ref[2:]
	}
	if i := strings.Index(ref, "("); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.IndexAny(ref, "{<"); i >= 0 {
		ref = ref[:i]
	}
	return ShortName(ref)
}

// cleanDocText trims every line and drops leading and trailing blank lines.
func cleanDocText(text string) string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" && (len(lines) == 0 || lines[len(lines)-1] == "") {
			continue
		}
		lines = append(lines, line)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
