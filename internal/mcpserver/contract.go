package mcpserver

// NoteFormatContract describes the note content markup that LLM consumers
// should use when they create notes or read their XML.
const NoteFormatContract = `# Note Format Contract

Notes are stored as Tomboy-compatible XML files, one ` + "`<guid>.note`" + ` per note.
A note is identified by its uri ` + "`note://gnote/<guid>`" + ` and, for people, by its title.
Titles are unique without regard to case.

## Content

The body is a ` + "`<note-content version=\"0.1\">`" + ` element. Its first line is the title:

` + "```" + `xml
<note-content version="0.1"><note-title>Weekly standup</note-title>

Attendees: Alice, Bob.
<bold>Action items</bold>
<list><list-item dir="ltr">review the <link:internal>Design doc</link:internal>
</list-item></list></note-content>
` + "```" + `

When calling ` + "`create_note`" + `, pass only the markup that follows the title line;
the title line is added for you.

## Markup

- Inline styles: ` + "`<bold>`, `<italic>`, `<strikethrough>`, `<highlight>`, `<monospace>`" + `.
- Sizes: ` + "`<size:small>`, `<size:large>`, `<size:huge>`" + `.
- Links to other notes: ` + "`<link:internal>Exact Title</link:internal>`" + `.
  A link whose target no longer exists is shown as ` + "`<link:broken>`" + `.
- External links: ` + "`<link:url>https://example.org</link:url>`" + `.
- Bulleted lists nest ` + "`<list>`" + ` and ` + "`<list-item dir=\"ltr\">`" + `; each item ends with a newline.
- Text must be XML-escaped: ` + "`&amp;`, `&lt;`, `&gt;`" + `.

## Tags and notebooks

- Tags are case-insensitive; ` + "`Work`" + ` and ` + "`work`" + ` are the same tag.
- A notebook is the tag ` + "`system:notebook:<name>`" + `. Other ` + "`system:`" + ` tags are internal.
- Renaming a note rewrites the links that point at it in every other note.
- Deleting a note turns links to it into ` + "`<link:broken>`" + `.
`
