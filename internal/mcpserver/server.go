// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes note tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/index"
	"github.com/starford/notecore/internal/note"
	"github.com/starford/notecore/internal/notestore"
	"github.com/starford/notecore/internal/richtext"
	"github.com/starford/notecore/internal/xmlenc"
)

const formatURI = "note://format"

// Server wraps the MCP server with note tools.
type Server struct {
	mcp   *server.MCPServer
	store *notestore.Store
	db    index.NoteIndex
}

// New creates a new MCP server with all note tools registered. Every store
// access runs through store.Exec.
func New(store *notestore.Store, db index.NoteIndex) *Server {
	s := &Server{store: store, db: db}

	s.mcp = server.NewMCPServer(
		"notecore",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recently changed first."),
		mcp.WithString("tag", mcp.Description("Only notes carrying this tag")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of notes to skip")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note: its metadata, plain text and XML content."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note title or note://gnote/<guid> uri")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Content is the markup that follows the title line; "+
			"read the format via get_note_contract or the "+formatURI+" resource first. "+
			"Without content the note is created from the template note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the new note; must be unused")),
		mcp.WithString("content", mcp.Description("Note content markup")),
		mcp.WithString("notebook", mcp.Description("Optional notebook to file the note in")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("rename_note",
		mcp.WithDescription("Rename a note and rewrite links to it in other notes."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note title or uri")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
	), s.renameNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note. Links to it become broken links."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note title or uri")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("tag_note",
		mcp.WithDescription("Add a tag to a note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note title or uri")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
	), s.tagNote)

	s.mcp.AddTool(mcp.NewTool("untag_note",
		mcp.WithDescription("Remove a tag from a note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note title or uri")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name")),
	), s.untagNote)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note title or uri")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, tags and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("find_title_matches",
		mcp.WithDescription("Find every note title occurring in a text, without regard to case."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to scan")),
	), s.findTitleMatches)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note content format. "+
			"Call this before creating notes to ensure correct markup."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format Contract",
			mcp.WithResourceDescription("Markup of note content, links, tags and notebooks."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// Listen serves MCP over in/out, normally stdin and stdout, until ctx is
// done or in is closed.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

type noteView struct {
	URI        string    `json:"uri"`
	Title      string    `json:"title"`
	Notebook   string    `json:"notebook,omitempty"`
	Tags       []string  `json:"tags"`
	CreateDate time.Time `json:"createDate"`
	ChangeDate time.Time `json:"changeDate"`
	Text       string    `json:"text,omitempty"`
	Content    string    `json:"content,omitempty"`
}

type noteRef struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type titleMatch struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	URI   string `json:"uri"`
}

// lookup resolves a title or uri. Callers hold the store via Exec.
func (s *Server) lookup(ref string) (*note.Note, error) {
	n, ok := s.store.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("note %q: %w", ref, apperr.ErrNotFound)
	}
	return n, nil
}

func (s *Server) view(n *note.Note, full bool) noteView {
	v := noteView{
		URI:        n.URI(),
		Title:      n.Title(),
		Notebook:   s.store.NotebookOf(n),
		Tags:       []string{},
		CreateDate: n.CreateDate(),
		ChangeDate: n.ChangeDate(),
	}
	for _, t := range n.Tags() {
		if !t.IsSystem() {
			v.Tags = append(v.Tags, t.Name())
		}
	}
	if full {
		v.Text = n.TextContent()
		v.Content = n.XMLContent()
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// withNote runs fn on the note named by the "note" argument.
func (s *Server) withNote(req mcp.CallToolRequest, fn func(n *note.Note) (any, error)) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var out any
	err = s.store.Exec(func() error {
		n, err := s.lookup(ref)
		if err != nil {
			return err
		}
		out, err = fn(n)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if text, ok := out.(string); ok {
		return mcp.NewToolResultText(text), nil
	}
	return jsonResult(out)
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, total, err := s.db.ListNotes(req.GetInt("limit", 50), req.GetInt("offset", 0), req.GetString("tag", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rows == nil {
		rows = []index.NoteRow{}
	}
	return jsonResult(map[string]any{"notes": rows, "total": total})
}

func (s *Server) readNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withNote(req, func(n *note.Note) (any, error) {
		return s.view(n, true), nil
	})
}

func (s *Server) createNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title = strings.TrimSpace(title)
	content := req.GetString("content", "")
	notebook := strings.TrimSpace(req.GetString("notebook", ""))

	var v noteView
	err = s.store.Exec(func() error {
		var n *note.Note
		var err error
		if content == "" {
			n, err = s.store.Create(title)
		} else {
			xmlContent, cerr := buildContent(title, content)
			if cerr != nil {
				return cerr
			}
			n, err = s.store.CreateWithXML(title, xmlContent)
		}
		if err != nil {
			return err
		}
		if notebook != "" {
			if err := s.store.MoveToNotebook(n, notebook); err != nil {
				return err
			}
		}
		v = s.view(n, false)
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v)
}

// buildContent prefixes markup with the title line and checks that the
// result is well-formed.
func buildContent(title, markup string) (string, error) {
	doc := `<note-content version="0.1"><note-title>` + xmlenc.Encode(title) + "</note-title>\n\n" +
		markup + "</note-content>"
	if err := richtext.Validate(doc); err != nil {
		return "", err
	}
	return doc, nil
}

func (s *Server) renameNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withNote(req, func(n *note.Note) (any, error) {
		old := n.Title()
		if err := s.store.Rename(n, title); err != nil {
			return nil, err
		}
		return fmt.Sprintf("renamed: %s -> %s", old, n.Title()), nil
	})
}

func (s *Server) deleteNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withNote(req, func(n *note.Note) (any, error) {
		if err := s.store.Delete(n); err != nil {
			return nil, err
		}
		return "deleted: " + n.URI(), nil
	})
}

func (s *Server) tagNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withNote(req, func(n *note.Note) (any, error) {
		tag, err := s.store.Tags().GetOrCreateTag(name)
		if err != nil {
			return nil, err
		}
		if err := n.AddTag(tag); err != nil {
			return nil, err
		}
		return s.view(n, false), nil
	})
}

func (s *Server) untagNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.withNote(req, func(n *note.Note) (any, error) {
		tag, ok := s.store.Tags().GetTag(name)
		if !ok || !n.ContainsTag(tag) {
			return nil, fmt.Errorf("tag %q on %q: %w", name, n.Title(), apperr.ErrNotFound)
		}
		n.RemoveTag(tag)
		return s.view(n, false), nil
	})
}

func (s *Server) getBacklinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.withNote(req, func(n *note.Note) (any, error) {
		refs := []noteRef{}
		for _, other := range s.store.NotesLinkingTo(n.Title()) {
			refs = append(refs, noteRef{URI: other.URI(), Title: other.Title()})
		}
		return refs, nil
	})
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return jsonResult(results)
}

func (s *Server) findTitleMatches(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches := []titleMatch{}
	_ = s.store.Exec(func() error {
		for _, h := range s.store.FindTrieMatches(text) {
			matches = append(matches, titleMatch{Start: h.Start, End: h.End, Text: h.Key, URI: h.Value})
		}
		return nil
	})
	return jsonResult(matches)
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
