package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/service"
)

// base is shared by all commands. out and errOut default to stdout and
// stderr.
type base struct {
	load   LoadFunc
	out    io.Writer
	errOut io.Writer
}

func (b *base) stdout() io.Writer {
	if b.out == nil {
		return os.Stdout
	}
	return b.out
}

func (b *base) stderr() io.Writer {
	if b.errOut == nil {
		return os.Stderr
	}
	return b.errOut
}

func (b *base) open(ctx context.Context) (*App, error) {
	cfg, err := b.load()
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}

// run opens the app, calls fn and reports its error.
func (b *base) run(ctx context.Context, fn func(app *App) error) subcommands.ExitStatus {
	app, err := b.open(ctx)
	if err != nil {
		fmt.Fprintln(b.stderr(), err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if err := fn(app); err != nil {
		b.fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (b *base) fail(err error) {
	fmt.Fprintf(b.stderr(), "Error: %v\n", err)
	switch {
	case errors.Is(err, domain.ErrCredentialRequired):
		fmt.Fprintln(b.stderr(), "Set an API key with: mystuff apikey <key>")
	case errors.Is(err, service.ErrAnalysisUnavailable):
		fmt.Fprintln(b.stderr(), "Configure a backend with VISION_BACKEND.")
	}
}

// usageError prints msg and the command usage.
func usageError(w io.Writer, c subcommands.Command, msg string) subcommands.ExitStatus {
	fmt.Fprintf(w, "%s\n\nUsage:\n  %s", msg, c.Usage())
	return subcommands.ExitUsageError
}

// resolveEntry accepts an entry id or its position as shown by list.
func resolveEntry(svc *service.JournalService, arg string) (domain.PhotoEntry, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return svc.GetEntry(id)
	}
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return domain.PhotoEntry{}, fmt.Errorf("%q is neither an entry id nor a position", arg)
	}
	entries := svc.ListEntries()
	if idx < 0 || idx >= len(entries) {
		return domain.PhotoEntry{}, fmt.Errorf("%w: %d (len %d)", domain.ErrIndexOutOfRange, idx, len(entries))
	}
	return entries[idx], nil
}

func parseIndices(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, a := range args {
		idx, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid position %q", a)
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// parseItem reads "name=price". The price is optional and defaults to zero.
func parseItem(arg string) (service.ItemInput, error) {
	name, price, found := cutLast(arg, "=")
	in := service.ItemInput{Name: strings.TrimSpace(name), Price: decimal.Zero}
	if !found {
		return in, nil
	}
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return service.ItemInput{}, fmt.Errorf("invalid price in %q: %w", arg, err)
	}
	in.Price = p
	return in, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
