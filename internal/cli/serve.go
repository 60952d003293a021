package cli

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/vbonduro/mystuff/internal/web"
)

type serveCmd struct {
	*base
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the journal HTTP API" }
func (*serveCmd) Usage() string {
	return `mystuff serve [-addr <host:port>]

  Serves the JSON API, /metrics and /healthz until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Overrides LISTEN_ADDR.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.run(ctx, func(app *App) error {
		addr := c.addr
		if addr == "" {
			addr = app.Config.ListenAddr
		}
		srv := web.NewServer(app.Service, web.Options{
			Logger:             app.Logger,
			Metrics:            app.Metrics,
			Health:             app.Snapshots,
			CORSAllowedOrigins: app.Config.CORSAllowedOrigins,
			IsDevelopment:      app.Config.DevMode,
			RequestTimeout:     app.Config.AnalysisTimeout * 2,
		})
		return srv.ListenAndServe(ctx, addr)
	})
}
