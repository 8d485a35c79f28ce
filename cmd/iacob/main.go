package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

// configPath is the -config flag shared by every command.
var configPath string

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.StringVar(&configPath, "config", "", "Path to iacob.toml (defaults to IACOB_CONFIG, then the binary directory, then config/iacob.toml).")
	commander.ImportantFlag("config")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

var commands = []subcommands.Command{
	&runCmd{},
	&serveCmd{},
	&portfolioCmd{},
	&priceCmd{},
	&chartCmd{},
	&versionCmd{},
}
