package main

import (
	"github.com/alecthomas/kong"
)

var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Play    PlayCmd          `cmd:"" default:"1" help:"Connect to a referee and play a match"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("rankshift"),
		kong.Description("Heads-up no-limit hold'em agent over a permuted rank labelling"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
