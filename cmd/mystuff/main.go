package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/vbonduro/mystuff/internal/cli"
	"github.com/vbonduro/mystuff/internal/config"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cli.Register(commander, config.Load)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
