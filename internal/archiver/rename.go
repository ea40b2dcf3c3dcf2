package archiver

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/starford/notecore/internal/xmlenc"
)

// RenamedNoteXML replaces the old title in a raw note document: the <title>
// element and the title text at the start of <note-content>, dropping any
// whitespace before that title.
func RenamedNoteXML(doc, oldTitle, newTitle string) string {
	oldEnc := regexp.QuoteMeta(xmlenc.Encode(oldTitle))
	newEnc := strings.ReplaceAll(xmlenc.Encode(newTitle), "$", "$$")

	titleRe := regexp.MustCompile(`<title>` + oldEnc + `</title>`)
	doc = titleRe.ReplaceAllString(doc, "<title>"+newEnc+"</title>")

	contentRe := regexp.MustCompile(`(<note-content[^>]*>)\s*(<note-title>)?` + oldEnc)
	return contentRe.ReplaceAllString(doc, "${1}${2}"+newEnc)
}

// TitleFromNoteXML returns the text of the first <title> element, or "" when
// there is none or the document cannot be parsed.
func TitleFromNoteXML(doc string) string {
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) || err != nil {
			return ""
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "title" {
			continue
		}
		var s string
		if err := dec.DecodeElement(&s, &start); err != nil {
			return ""
		}
		return s
	}
}
