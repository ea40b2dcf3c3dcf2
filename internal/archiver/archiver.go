// Package archiver converts NoteData to and from the Tomboy .note file format.
package archiver

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/models"
	"github.com/starford/notecore/internal/tags"
	"github.com/starford/notecore/internal/xmlenc"
)

// CurrentVersion is the file format version written by Write.
const CurrentVersion = "0.3"

// XML namespaces of the note format.
const (
	NamespaceNote = "http://beatniksoftware.com/tomboy"
	NamespaceLink = "http://beatniksoftware.com/tomboy/link"
	NamespaceSize = "http://beatniksoftware.com/tomboy/size"
)

// Files is the storage the archiver reads and writes note files through.
type Files interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
}

// Write serializes data as a complete note document.
func Write(w io.Writer, data *models.NoteData) error {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	fmt.Fprintf(&b, `<note version="%s" xmlns:link="%s" xmlns:size="%s" xmlns="%s">`+"\n",
		CurrentVersion, NamespaceLink, NamespaceSize, NamespaceNote)

	writeElement(&b, "title", xmlenc.Encode(data.Title))
	// The body is already serialized markup and is written verbatim.
	b.WriteString(`  <text xml:space="preserve">`)
	b.WriteString(data.Text)
	b.WriteString("</text>\n")

	writeElement(&b, "last-change-date", formatDate(data.ChangeDate()))
	writeElement(&b, "last-metadata-change-date", formatDate(data.MetadataChangeDate))
	if !data.CreateDate.IsZero() {
		writeElement(&b, "create-date", formatDate(data.CreateDate))
	}
	writeElement(&b, "cursor-position", strconv.Itoa(data.CursorPosition))
	writeElement(&b, "selection-bound-position", strconv.Itoa(data.SelectionBoundPosition))
	writeElement(&b, "width", strconv.Itoa(data.Width))
	writeElement(&b, "height", strconv.Itoa(data.Height))

	if len(data.Tags) > 0 {
		b.WriteString("  <tags>\n")
		for _, name := range data.TagNames() {
			b.WriteString("    <tag>")
			b.WriteString(xmlenc.Encode(name))
			b.WriteString("</tag>\n")
		}
		b.WriteString("  </tags>\n")
	}
	b.WriteString("</note>\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("archiver: write: %w", err)
	}
	return nil
}

// WriteString returns the complete note document for data.
func WriteString(data *models.NoteData) string {
	var b strings.Builder
	_ = Write(&b, data) // strings.Builder never fails
	return b.String()
}

func writeElement(b *strings.Builder, name, encoded string) {
	b.WriteString("  <")
	b.WriteString(name)
	b.WriteString(">")
	b.WriteString(encoded)
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">\n")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Read parses a note document into NoteData for uri and returns the declared
// format version. Unknown elements are skipped.
func Read(r io.Reader, uri string) (*models.NoteData, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("archiver: read: %w", err)
	}

	data := models.NewNoteData(uri)
	dec := xml.NewDecoder(bytes.NewReader(raw))
	version := ""
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("archiver: parse: %w: %v", apperr.ErrInvalidXML, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !sawRoot {
			if start.Name.Local != "note" {
				return nil, "", fmt.Errorf("archiver: parse: %w: root element is <%s>", apperr.ErrInvalidXML, start.Name.Local)
			}
			sawRoot = true
			for _, a := range start.Attr {
				if a.Name.Local == "version" && a.Name.Space == "" {
					version = a.Value
				}
			}
			continue
		}

		switch start.Name.Local {
		case "title":
			s, err := elementText(dec, start)
			if err != nil {
				return nil, "", err
			}
			data.Title = s
		case "text":
			body, err := innerXML(dec, raw)
			if err != nil {
				return nil, "", err
			}
			data.Text = body
		case "last-change-date":
			s, err := elementText(dec, start)
			if err != nil {
				return nil, "", err
			}
			// Keep a metadata date that appeared earlier in the file.
			md := data.MetadataChangeDate
			data.SetChangeDate(parseDate(s))
			if !md.IsZero() {
				data.MetadataChangeDate = md
			}
		case "last-metadata-change-date":
			s, err := elementText(dec, start)
			if err != nil {
				return nil, "", err
			}
			data.MetadataChangeDate = parseDate(s)
		case "create-date":
			s, err := elementText(dec, start)
			if err != nil {
				return nil, "", err
			}
			data.CreateDate = parseDate(s)
		case "cursor-position":
			if err := readInt(dec, start, &data.CursorPosition); err != nil {
				return nil, "", err
			}
		case "selection-bound-position":
			if err := readInt(dec, start, &data.SelectionBoundPosition); err != nil {
				return nil, "", err
			}
		case "width":
			if err := readInt(dec, start, &data.Width); err != nil {
				return nil, "", err
			}
		case "height":
			if err := readInt(dec, start, &data.Height); err != nil {
				return nil, "", err
			}
		case "tag":
			s, err := elementText(dec, start)
			if err != nil {
				return nil, "", err
			}
			if name := strings.TrimSpace(s); name != "" {
				data.Tags[tags.Normalize(name)] = name
			}
		}
	}

	if !sawRoot {
		return nil, "", fmt.Errorf("archiver: parse: %w: empty document", apperr.ErrInvalidXML)
	}
	return data, version, nil
}

// ReadString parses a note document held in a string.
func ReadString(doc, uri string) (*models.NoteData, string, error) {
	return Read(strings.NewReader(doc), uri)
}

// elementText collects the character data of the element opened by start.
func elementText(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var s string
	if err := dec.DecodeElement(&s, &start); err != nil {
		return "", fmt.Errorf("archiver: parse <%s>: %w: %v", start.Name.Local, apperr.ErrInvalidXML, err)
	}
	return s, nil
}

func readInt(dec *xml.Decoder, start xml.StartElement, dst *int) error {
	s, err := elementText(dec, start)
	if err != nil {
		return err
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		*dst = n
	}
	return nil
}

// innerXML returns the raw markup between the start tag just consumed and its
// matching end tag.
func innerXML(dec *xml.Decoder, raw []byte) (string, error) {
	begin := dec.InputOffset()
	depth := 0
	for {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("archiver: parse <text>: %w: %v", apperr.ErrInvalidXML, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return string(raw[begin:before]), nil
			}
			depth--
		}
	}
}

// ReadFile loads the note file at path. A file written in an older format is
// rewritten in the current one; a failed rewrite is logged and otherwise ignored.
func ReadFile(files Files, path, uri string, logger *slog.Logger) (*models.NoteData, error) {
	raw, err := files.Read(path)
	if err != nil {
		return nil, fmt.Errorf("archiver: read file: %w", err)
	}
	data, version, err := Read(bytes.NewReader(raw), uri)
	if err != nil {
		return nil, fmt.Errorf("archiver: read file %s: %w", path, err)
	}
	if version != CurrentVersion {
		if err := WriteFile(files, path, data); err != nil {
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("archiver: upgrade note format failed",
				slog.String("path", path),
				slog.String("version", version),
				slog.String("error", err.Error()))
		}
	}
	return data, nil
}

// WriteFile serializes data and stores it at path.
func WriteFile(files Files, path string, data *models.NoteData) error {
	if err := files.Write(path, []byte(WriteString(data))); err != nil {
		return fmt.Errorf("archiver: write file %s: %w", path, err)
	}
	return nil
}
