// Package xmlenc escapes text for note markup and projects note markup back to plain text.
package xmlenc

import (
	"encoding/xml"
	"strings"
)

// A literal carriage return would be normalized away by any reader.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\r", "&#xD;")

// Encode escapes s for use as element text.
func Encode(s string) string {
	return textEscaper.Replace(s)
}

// EncodeAttr escapes s for use inside a double-quoted attribute value.
func EncodeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// Decode strips all markup from an XML fragment and returns its character data.
// A newline is inserted before a list item that does not already start a line.
// Decoding stops at the first syntax error and returns what was read so far.
func Decode(fragment string) string {
	dec := xml.NewDecoder(strings.NewReader(fragment))
	dec.Strict = false
	var b strings.Builder
	for {
		tok, err := dec.RawToken()
		if err != nil {
			return b.String()
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "list-item" && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
		case xml.CharData:
			b.Write(t)
		}
	}
}
