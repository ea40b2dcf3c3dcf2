package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/notecore/internal"
	"github.com/starford/notecore/internal/apperr"
	"github.com/starford/notecore/internal/note"
	"github.com/starford/notecore/internal/xmlenc"
)

// withServices opens the store and index for one command and closes them
// afterwards, saving whatever the command changed.
func withServices(cmd *cli.Command, fn func(svc *internal.Services, out io.Writer) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := internal.Open(cfg, internal.NewLogger(cfg))
	if err != nil {
		return err
	}
	runErr := fn(svc, cmd.Root().Writer)
	return errors.Join(runErr, svc.Close())
}

func resolve(svc *internal.Services, ref string) (*note.Note, error) {
	n, ok := svc.Store.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("note %q: %w", ref, apperr.ErrNotFound)
	}
	return n, nil
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.Args().Len() < n {
		return fmt.Errorf("%s: expected %d argument(s), see --help", cmd.Name, n)
	}
	return nil
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "list",
			Usage: "List notes, most recently changed first",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "tag", Usage: "Only notes with this tag"},
				&cli.IntFlag{Name: "limit", Value: 50, Usage: "Maximum number of notes"},
			},
			Action: func(_ context.Context, cmd *cli.Command) error {
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					rows, total, err := svc.Index.ListNotes(int(cmd.Int("limit")), 0, cmd.String("tag"))
					if err != nil {
						return err
					}
					for _, r := range rows {
						fmt.Fprintf(out, "%s\t%s\t%s\n", r.ChangeDate.Local().Format("2006-01-02 15:04"), r.URI, r.Title)
					}
					fmt.Fprintf(out, "%d of %d notes\n", len(rows), total)
					return nil
				})
			},
		},
		{
			Name:      "show",
			Usage:     "Print a note's text",
			ArgsUsage: "<title|uri>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "xml", Usage: "Print the complete note file instead"},
			},
			Action: func(_ context.Context, cmd *cli.Command) error {
				if err := requireArgs(cmd, 1); err != nil {
					return err
				}
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					n, err := resolve(svc, cmd.Args().First())
					if err != nil {
						return err
					}
					if cmd.Bool("xml") {
						fmt.Fprint(out, n.CompleteXML())
						return nil
					}
					fmt.Fprintln(out, n.TextContent())
					if nb := svc.Store.NotebookOf(n); nb != "" {
						fmt.Fprintf(out, "\nnotebook: %s\n", nb)
					}
					var names []string
					for _, t := range n.Tags() {
						if !t.IsSystem() {
							names = append(names, t.Name())
						}
					}
					if len(names) > 0 {
						fmt.Fprintf(out, "tags: %s\n", strings.Join(names, ", "))
					}
					return nil
				})
			},
		},
		{
			Name:      "create",
			Usage:     "Create a note, from the template note unless --text is given",
			ArgsUsage: "<title>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "text", Usage: "Plain text body"},
				&cli.StringFlag{Name: "notebook", Usage: "Notebook to file the note in"},
			},
			Action: func(_ context.Context, cmd *cli.Command) error {
				if err := requireArgs(cmd, 1); err != nil {
					return err
				}
				title := strings.TrimSpace(cmd.Args().First())
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					var n *note.Note
					var err error
					if text := cmd.String("text"); text != "" {
						content := `<note-content version="0.1"><note-title>` + xmlenc.Encode(title) +
							"</note-title>\n\n" + xmlenc.Encode(text) + "</note-content>"
						n, err = svc.Store.CreateWithXML(title, content)
					} else {
						n, err = svc.Store.Create(title)
					}
					if err != nil {
						return err
					}
					if nb := cmd.String("notebook"); nb != "" {
						if err := svc.Store.MoveToNotebook(n, nb); err != nil {
							return err
						}
					}
					fmt.Fprintf(out, "created: %s\t%s\n", n.URI(), n.Title())
					return nil
				})
			},
		},
		{
			Name:      "rename",
			Usage:     "Rename a note and update links to it",
			ArgsUsage: "<title|uri> <new title>",
			Action: func(_ context.Context, cmd *cli.Command) error {
				if err := requireArgs(cmd, 2); err != nil {
					return err
				}
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					n, err := resolve(svc, cmd.Args().Get(0))
					if err != nil {
						return err
					}
					linking := len(svc.Store.NotesLinkingTo(n.Title()))
					if err := svc.Store.Rename(n, cmd.Args().Get(1)); err != nil {
						return err
					}
					fmt.Fprintf(out, "renamed to %q, %d linking note(s) updated\n", n.Title(), linking)
					return nil
				})
			},
		},
		{
			Name:      "delete",
			Usage:     "Delete a note",
			ArgsUsage: "<title|uri>",
			Action: func(_ context.Context, cmd *cli.Command) error {
				if err := requireArgs(cmd, 1); err != nil {
					return err
				}
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					n, err := resolve(svc, cmd.Args().First())
					if err != nil {
						return err
					}
					if err := svc.Store.Delete(n); err != nil {
						return err
					}
					fmt.Fprintf(out, "deleted: %s\n", n.URI())
					return nil
				})
			},
		},
		{
			Name:      "tag",
			Usage:     "Add tags to a note, or remove them with --remove",
			ArgsUsage: "<title|uri> <tag>...",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "remove", Usage: "Remove the tags instead"},
			},
			Action: func(_ context.Context, cmd *cli.Command) error {
				if err := requireArgs(cmd, 2); err != nil {
					return err
				}
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					n, err := resolve(svc, cmd.Args().First())
					if err != nil {
						return err
					}
					for _, name := range cmd.Args().Tail() {
						if cmd.Bool("remove") {
							if tag, ok := svc.Store.Tags().GetTag(name); ok {
								n.RemoveTag(tag)
							}
							continue
						}
						tag, err := svc.Store.Tags().GetOrCreateTag(name)
						if err != nil {
							return err
						}
						if err := n.AddTag(tag); err != nil {
							return err
						}
					}
					fmt.Fprintf(out, "%s: %d tag(s)\n", n.Title(), len(n.Tags()))
					return nil
				})
			},
		},
		{
			Name:      "backlinks",
			Usage:     "List notes linking to a note",
			ArgsUsage: "<title|uri>",
			Action: func(_ context.Context, cmd *cli.Command) error {
				if err := requireArgs(cmd, 1); err != nil {
					return err
				}
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					n, err := resolve(svc, cmd.Args().First())
					if err != nil {
						return err
					}
					for _, other := range svc.Store.NotesLinkingTo(n.Title()) {
						fmt.Fprintf(out, "%s\t%s\n", other.URI(), other.Title())
					}
					return nil
				})
			},
		},
		{
			Name:      "search",
			Usage:     "Full-text search",
			ArgsUsage: "<query>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of hits"},
			},
			Action: func(_ context.Context, cmd *cli.Command) error {
				if err := requireArgs(cmd, 1); err != nil {
					return err
				}
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					hits, err := svc.Index.Search(strings.Join(cmd.Args().Slice(), " "), int(cmd.Int("limit")))
					if err != nil {
						return err
					}
					for _, h := range hits {
						fmt.Fprintf(out, "%s\t%s\n\t%s\n", h.URI, h.Title, strings.ReplaceAll(h.Snippet, "\n", " "))
					}
					return nil
				})
			},
		},
		{
			Name:      "import",
			Usage:     "Copy .note files into the notes directory",
			ArgsUsage: "<file>...",
			Action: func(_ context.Context, cmd *cli.Command) error {
				if err := requireArgs(cmd, 1); err != nil {
					return err
				}
				return withServices(cmd, func(svc *internal.Services, out io.Writer) error {
					var errs []error
					for _, path := range cmd.Args().Slice() {
						n, err := svc.Store.Import(path)
						if err != nil {
							errs = append(errs, fmt.Errorf("%s: %w", path, err))
							continue
						}
						fmt.Fprintf(out, "imported: %s\t%s\n", n.URI(), n.Title())
					}
					return errors.Join(errs...)
				})
			},
		},
	}
}
