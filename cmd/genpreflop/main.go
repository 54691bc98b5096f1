// cmd/genpreflop generates the preflop equity lookup table internal/preflop
// loads at match start: for every ordered two-card starting hand, the
// Monte-Carlo equity of that hand against a uniformly random opponent
// holding, heads-up, no board.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/equity"
	"github.com/lox/rankshift/internal/preflop"
	"github.com/lox/rankshift/internal/randutil"
)

var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Out     string           `default:"preflop_equity.txt" help:"Output path for the equity table"`
	Iters   int              `default:"2000" help:"Monte-Carlo iterations per hand"`
	Seed    int64            `default:"1" help:"RNG seed"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("genpreflop"),
		kong.Description("Generate the preflop equity lookup table"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	rng := randutil.New(cli.Seed)
	background := context.Background()

	table := make(preflop.Table, 52*51)
	deck := allCards()

	for i, a := range deck {
		for j, b := range deck {
			if i == j {
				continue
			}
			hero := cards.NewHand(a, b)
			key, ok := preflop.Key(hero)
			if !ok {
				continue
			}
			// Both orders of a pair share one estimate, computed on first visit.
			ev, done := table[key]
			if !done {
				q := equity.Query{Hero: hero}
				ev = equity.Estimate(background, q, cli.Iters, rng)
				if ev < 0 {
					ev = 0.5
				}
				table[key] = ev
			}
			table[a.String()+b.String()] = ev
		}
	}

	return preflop.Save(cli.Out, table)
}

func allCards() []cards.Card {
	out := make([]cards.Card, 0, 52)
	for s := cards.Suit(0); s < 4; s++ {
		for r := cards.Rank(0); r < 13; r++ {
			out = append(out, cards.New(r, s))
		}
	}
	return out
}
