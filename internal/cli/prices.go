package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"github.com/vbonduro/mystuff/internal/domain"
)

type pricesCmd struct {
	*base
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "manage the standalone price list" }
func (*pricesCmd) Usage() string {
	return `mystuff prices [list]
mystuff prices add <name=price...>
mystuff prices update <position> <name=price>
mystuff prices delete <position...>
mystuff prices clear
mystuff prices generate <label, label, ...>

  generate replaces the list with zero-priced items, one per label.
`
}

func (*pricesCmd) SetFlags(*flag.FlagSet) {}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	action, args := "list", []string(nil)
	if f.NArg() > 0 {
		action, args = f.Arg(0), f.Args()[1:]
	}

	var fn func(app *App) error
	switch action {
	case "list":
		fn = func(app *App) error { return nil }
	case "add":
		if len(args) == 0 {
			return usageError(c.stderr(), c, "add needs at least one item")
		}
		fn = func(app *App) error {
			for _, arg := range args {
				in, err := parseItem(arg)
				if err != nil {
					return err
				}
				if _, err := app.Service.AddPrice(ctx, in.Name, in.Price); err != nil {
					return err
				}
			}
			return nil
		}
	case "update":
		if len(args) != 2 {
			return usageError(c.stderr(), c, "update needs a position and an item")
		}
		fn = func(app *App) error { return c.update(ctx, app, args[0], args[1]) }
	case "delete":
		if len(args) == 0 {
			return usageError(c.stderr(), c, "delete needs at least one position")
		}
		fn = func(app *App) error {
			indices, err := parseIndices(args)
			if err != nil {
				return err
			}
			return app.Service.DeletePrices(ctx, indices)
		}
	case "clear":
		fn = func(app *App) error { return app.Service.ClearPrices(ctx) }
	case "generate":
		if len(args) == 0 {
			return usageError(c.stderr(), c, "generate needs labels")
		}
		fn = func(app *App) error {
			_, err := app.Service.GeneratePrices(ctx, strings.Join(args, " "))
			return err
		}
	default:
		return usageError(c.stderr(), c, fmt.Sprintf("unknown action %q", action))
	}

	return c.run(ctx, func(app *App) error {
		if err := fn(app); err != nil {
			return err
		}
		items, _ := app.Service.Prices()
		return printItems(c.stdout(), app.Service, items)
	})
}

func (c *pricesCmd) update(ctx context.Context, app *App, pos, arg string) error {
	idx, err := strconv.Atoi(pos)
	if err != nil {
		return fmt.Errorf("invalid position %q", pos)
	}
	items, _ := app.Service.Prices()
	if idx < 0 || idx >= len(items) {
		return fmt.Errorf("%w: %d (len %d)", domain.ErrIndexOutOfRange, idx, len(items))
	}
	in, err := parseItem(arg)
	if err != nil {
		return err
	}
	item := items[idx]
	item.Name = in.Name
	item.Price = in.Price
	return app.Service.UpdatePrice(ctx, item)
}
