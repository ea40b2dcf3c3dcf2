// Package parser extracts the searchable parts of a note file: title, plain
// body, tags and the targets of its links.
package parser

import (
	"regexp"
	"strings"

	"github.com/starford/notecore/internal/archiver"
	"github.com/starford/notecore/internal/tags"
	"github.com/starford/notecore/internal/xmlenc"
)

var (
	internalLinkRe = regexp.MustCompile(`(?s)<link:internal>(.*?)</link:internal>`)
	urlLinkRe      = regexp.MustCompile(`(?s)<link:url>(.*?)</link:url>`)
)

// Result holds the output of parsing a note file.
type Result struct {
	Title string
	// Body is the note content with all markup removed.
	Body string
	// Links are the titles of the notes linked from the content.
	Links []string
	// URLs are the external links of the content.
	URLs []string
	// Tags are the user-visible tags; system tags are left out.
	Tags     []string
	Notebook string
}

// Parse reads a complete note document.
func Parse(data []byte) (*Result, error) {
	nd, _, err := archiver.ReadString(string(data), "")
	if err != nil {
		return nil, err
	}
	r := ParseContent(nd.Text)
	r.Title = nd.Title
	notebookPrefix := tags.SystemTagPrefix + tags.NotebookPrefix
	for _, name := range nd.TagNames() {
		key := tags.Normalize(name)
		switch {
		case strings.HasPrefix(key, notebookPrefix):
			r.Notebook = strings.TrimSpace(name)[len(notebookPrefix):]
		case strings.HasPrefix(key, tags.SystemTagPrefix):
		default:
			r.Tags = append(r.Tags, name)
		}
	}
	return r, nil
}

// ParseContent reads a <note-content> fragment.
func ParseContent(content string) *Result {
	return &Result{
		Body:  xmlenc.Decode(content),
		Links: extractLinks(internalLinkRe, content),
		URLs:  extractLinks(urlLinkRe, content),
	}
}

// extractLinks returns the deduplicated, unescaped text of every match of re.
func extractLinks(re *regexp.Regexp, content string) []string {
	matches := re.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := strings.TrimSpace(xmlenc.Decode(m[1]))
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
