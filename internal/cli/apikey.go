package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type apiKeyCmd struct {
	*base
	clear bool
}

func (*apiKeyCmd) Name() string     { return "apikey" }
func (*apiKeyCmd) Synopsis() string { return "show or set the vision backend API key" }
func (*apiKeyCmd) Usage() string {
	return `mystuff apikey [<key> | -clear]

  Without arguments, reports whether the configured backend has a key. The
  key itself is never printed.
`
}

func (c *apiKeyCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.clear, "clear", false, "Remove the stored key.")
}

func (c *apiKeyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 || (c.clear && f.NArg() > 0) {
		return usageError(c.stderr(), c, "apikey takes a single key or -clear")
	}
	return c.run(ctx, func(app *App) error {
		switch {
		case c.clear:
			if err := app.Service.SetAPIKey(ctx, ""); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout(), "API key for %s cleared\n", app.Service.Backend())
			return nil
		case f.NArg() == 1:
			if err := app.Service.SetAPIKey(ctx, f.Arg(0)); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout(), "API key for %s saved\n", app.Service.Backend())
			return nil
		}
		state := "not configured"
		if app.Service.APIKeyConfigured() {
			state = "configured"
		}
		fmt.Fprintf(c.stdout(), "%s: %s\n", app.Service.Backend(), state)
		return nil
	})
}
