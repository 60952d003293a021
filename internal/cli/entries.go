package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/service"
)

const dateLayout = "Jan 2, 2006"

type addCmd struct {
	*base
	caption string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a photo to the journal" }
func (*addCmd) Usage() string {
	return `mystuff add [-caption <text>] <image-file>

  Stores the image (JPEG, PNG, GIF or WebP) re-encoded as JPEG and appends a
  new entry.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.caption, "caption", "", "Caption for the new entry.")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(c.stderr(), c, "add takes exactly one image file")
	}
	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr(), "Error reading %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	return c.run(ctx, func(app *App) error {
		entry, err := app.Service.AddPhoto(ctx, data, c.caption)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout(), "Added entry %s\n", entry.ID)
		return nil
	})
}

type listCmd struct {
	*base
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list journal entries" }
func (*listCmd) Usage() string {
	return `mystuff list

  Prints every entry with its position, id, date and caption. Positions are
  what caption, delete, items and analyze accept.
`
}

func (*listCmd) SetFlags(*flag.FlagSet) {}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(app *App) error {
		entries := app.Service.ListEntries()
		if len(entries) == 0 {
			fmt.Fprintln(c.stdout(), "No entries.")
			return nil
		}
		tw := tabwriter.NewWriter(c.stdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tID\tDATE\tITEMS\tCAPTION")
		for i, e := range entries {
			items := ""
			if e.HasItemList() {
				items = "yes"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, e.ID, e.CreatedAt.Local().Format(dateLayout), items, e.Caption)
		}
		return tw.Flush()
	})
}

type captionCmd struct {
	*base
}

func (*captionCmd) Name() string     { return "caption" }
func (*captionCmd) Synopsis() string { return "change the caption of an entry" }
func (*captionCmd) Usage() string {
	return `mystuff caption <entry> <text...>

  <entry> is an entry id or its position in list. An empty text clears the
  caption.
`
}

func (*captionCmd) SetFlags(*flag.FlagSet) {}

func (c *captionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		return usageError(c.stderr(), c, "caption needs an entry")
	}
	return c.run(ctx, func(app *App) error {
		entry, err := resolveEntry(app.Service, f.Arg(0))
		if err != nil {
			return err
		}
		updated, err := app.Service.UpdateCaption(ctx, entry.ID, strings.Join(f.Args()[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout(), "Caption of %s set to %q\n", updated.ID, updated.Caption)
		return nil
	})
}

type deleteCmd struct {
	*base
	id string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete entries and their photos" }
func (*deleteCmd) Usage() string {
	return `mystuff delete <position...>
mystuff delete -id <entry-id>

  Positions all refer to the list as it was before the command. If any
  position is out of range nothing is deleted.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Delete the entry with this id.")
}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" && f.NArg() == 0 {
		return usageError(c.stderr(), c, "delete needs positions or -id")
	}
	return c.run(ctx, func(app *App) error {
		if c.id != "" {
			id, err := uuid.Parse(c.id)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", c.id, err)
			}
			if err := app.Service.DeleteEntry(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout(), "Deleted 1 entry")
			return nil
		}
		indices, err := parseIndices(f.Args())
		if err != nil {
			return err
		}
		n, err := app.Service.DeleteEntries(ctx, indices)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout(), "Deleted %d entries\n", n)
		return nil
	})
}

type itemsCmd struct {
	*base
	clear bool
}

func (*itemsCmd) Name() string     { return "items" }
func (*itemsCmd) Synopsis() string { return "show or replace the item list of an entry" }
func (*itemsCmd) Usage() string {
	return `mystuff items <entry>
mystuff items <entry> <name=price...>
mystuff items -clear <entry>

  Without items, prints the entry's list and total. With items, replaces the
  list. A missing price is zero.
`
}

func (c *itemsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.clear, "clear", false, "Remove the entry's item list.")
}

func (c *itemsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		return usageError(c.stderr(), c, "items needs an entry")
	}
	return c.run(ctx, func(app *App) error {
		entry, err := resolveEntry(app.Service, f.Arg(0))
		if err != nil {
			return err
		}
		switch {
		case c.clear:
			if err := app.Service.ClearEntryItems(ctx, entry.ID); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout(), "Item list cleared")
			return nil
		case f.NArg() > 1:
			inputs := make([]service.ItemInput, 0, f.NArg()-1)
			for _, arg := range f.Args()[1:] {
				in, err := parseItem(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, in)
			}
			if _, err := app.Service.SetEntryItems(ctx, entry.ID, inputs); err != nil {
				return err
			}
		}
		items, _, err := app.Service.EntryItems(ctx, entry.ID)
		if err != nil {
			return err
		}
		return printItems(c.stdout(), app.Service, items)
	})
}

type analyzeCmd struct {
	*base
	apply string
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "label the objects in an entry's photo" }
func (*analyzeCmd) Usage() string {
	return `mystuff analyze [-apply caption|items] <entry>

  Sends the photo to the configured vision backend and prints the labels.
  -apply caption stores them as the caption; -apply items replaces the
  entry's item list with zero-priced items.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.apply, "apply", "", "Apply the labels: caption or items.")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(c.stderr(), c, "analyze takes exactly one entry")
	}
	switch c.apply {
	case "", "caption", "items":
	default:
		return usageError(c.stderr(), c, fmt.Sprintf("unknown -apply value %q", c.apply))
	}
	return c.run(ctx, func(app *App) error {
		entry, err := resolveEntry(app.Service, f.Arg(0))
		if err != nil {
			return err
		}
		session, err := app.Service.StartAnalysis(ctx, entry.ID)
		if err != nil {
			return err
		}
		defer session.Close()

		labels, err := session.Wait(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout(), labels)

		switch c.apply {
		case "caption":
			if _, err := session.ApplyCaption(ctx); err != nil {
				return err
			}
			fmt.Fprintln(c.stdout(), "Caption updated")
		case "items":
			items, err := session.ApplyItems(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout(), "Item list replaced with %d items\n", len(items))
		}
		return nil
	})
}

func printItems(w io.Writer, svc *service.JournalService, items []domain.LineItem) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for i, item := range items {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t\n", i, item.Name, svc.FormatPrice(item.Price))
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t\n", svc.FormatPrice(domain.TotalPrice(items)))
	return tw.Flush()
}
