package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/vbonduro/mystuff/internal/service"
)

type exportCmd struct {
	*base
	items  string
	prices bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the journal or an item list as PDF" }
func (*exportCmd) Usage() string {
	return `mystuff export [-items <entry> | -prices]

  Without flags, writes every photo and caption to a multi-page PDF in
  EXPORT_DIR. -items exports one entry's item list; -prices exports the
  standalone price list.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.items, "items", "", "Export the item list of this entry (id or position).")
	f.BoolVar(&c.prices, "prices", false, "Export the price list.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		return usageError(c.stderr(), c, "export takes no arguments")
	}
	if c.items != "" && c.prices {
		return usageError(c.stderr(), c, "-items and -prices are mutually exclusive")
	}
	return c.run(ctx, func(app *App) error {
		var (
			out service.Exported
			err error
		)
		switch {
		case c.prices:
			out, err = app.Service.ExportPriceList()
		case c.items != "":
			entry, rerr := resolveEntry(app.Service, c.items)
			if rerr != nil {
				return rerr
			}
			out, err = app.Service.ExportEntryItems(ctx, entry.ID)
		default:
			out, err = app.Service.ExportCollection(ctx)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout(), "Wrote %s (%d pages)\n", out.Path, out.Pages)
		if len(out.Skipped) > 0 {
			fmt.Fprintf(c.stdout(), "Skipped %d entries with missing photos\n", len(out.Skipped))
		}
		return nil
	})
}
