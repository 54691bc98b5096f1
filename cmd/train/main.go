// cmd/train drives an offline MCCFR training run against the un-permuted
// (identity-rank) heads-up game tree, periodically checkpointing the regret-matched
// strategy table and reporting exploitability against a sampled opponent.
package main

import (
	"github.com/alecthomas/kong"
)

var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Run     RunCmd           `cmd:"" default:"1" help:"Run a training session"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("rankshift-train"),
		kong.Description("Offline MCCFR trainer for the rankshift agent"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
