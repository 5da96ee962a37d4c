package formats

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	xmlPrologue = "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<records>"
	xmlEpilogue = "</records>"
)

var (
	xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

	xmlDeclaration = regexp.MustCompile(`^<\?xml\s+version\s*=\s*['"][-\w.:]+["'](\s+encoding\s*=\s*['"][-\w.]+["'])?(\s+standalone\s*=\s*['"](yes|no)["'])?\s*\?>\s*`)

	// Fields whose values are XML documents and are inlined unescaped.
	embeddedXMLFields = map[string]struct{}{"datacite": {}, "crossref": {}}
)

type xmlWriter struct{}

func (xmlWriter) Prologue(out *Output) error {
	_, err := out.WriteString(xmlPrologue)
	return err
}

func (xmlWriter) Epilogue(out *Output) error {
	_, err := out.WriteString(xmlEpilogue)
	return err
}

func (xmlWriter) Record(out *Output, identifier string, record map[string]string) error {
	var b strings.Builder
	b.WriteString(`<record identifier="`)
	b.WriteString(xmlEscaper.Replace(identifier))
	b.WriteString(`">`)
	for _, key := range sortedKeys(record) {
		value := record[key]
		if _, ok := embeddedXMLFields[key]; ok {
			value = StripXMLDeclaration(value)
		} else {
			value = xmlEscaper.Replace(value)
		}
		b.WriteString(`<element name="`)
		b.WriteString(xmlEscaper.Replace(key))
		b.WriteString(`">`)
		b.WriteString(value)
		b.WriteString(`</element>`)
	}
	b.WriteString(`</record>`)
	if _, err := out.WriteString(b.String()); err != nil {
		return fmt.Errorf("write xml record %s: %w", identifier, err)
	}
	return nil
}

// StripXMLDeclaration removes a leading <?xml ...?> declaration and the
// whitespace after it.
func StripXMLDeclaration(doc string) string {
	return xmlDeclaration.ReplaceAllString(doc, "")
}
