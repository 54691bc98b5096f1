package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/cfr"
	"github.com/lox/rankshift/internal/config"
	"github.com/lox/rankshift/internal/engine"
	"github.com/lox/rankshift/internal/infoset"
	"github.com/lox/rankshift/internal/kmeans"
	"github.com/lox/rankshift/internal/logging"
	"github.com/lox/rankshift/internal/permfilter"
	"github.com/lox/rankshift/internal/player"
	"github.com/lox/rankshift/internal/preflop"
	"github.com/lox/rankshift/internal/protocol"
	"github.com/lox/rankshift/internal/randutil"
	"github.com/lox/rankshift/internal/strategy"
	"github.com/lox/rankshift/internal/tui"
)

// PlayCmd dials the referee and runs one match to completion, loading the
// strategy table and supporting artifacts a prior `cmd/train`/`cmd/genpreflop`/
// `cmd/kmeans` run produced.
type PlayCmd struct {
	Config string `default:"match.hcl" help:"Path to an HCL match config file"`
	Seed   int64  `default:"1" help:"Seed for the agent's single RNG stream"`
	TUI    bool   `help:"Show a live dashboard of round, particle filter, and strategy state"`
}

func (c *PlayCmd) Run() error {
	cfg, err := config.LoadMatchConfig(c.Config)
	if err != nil {
		return fmt.Errorf("agent: load config: %w", err)
	}

	logger := logging.New(logging.Options{Level: cfg.Match.LogLevel})

	table, err := strategy.LoadStrategyFile(cfg.Match.StrategyPath)
	if err != nil {
		logger.Warn("no strategy table found, falling back to the hand-coded policy for every bucket", "path", cfg.Match.StrategyPath, "err", err)
		table = strategy.New()
	}

	preflopTable, err := preflop.Load(cfg.Match.PreflopEquity)
	if err != nil {
		logger.Warn("no preflop equity table found, particle filter will estimate preflop equity by simulation", "path", cfg.Match.PreflopEquity, "err", err)
		preflopTable = nil
	}

	rng := randutil.New(c.Seed)
	filter := permfilter.New(cfg.Match.NumParticles, rng)
	if preflopTable != nil {
		filter.SetPreflopTable(preflopTable)
	}

	bucket, err := buildBucketFn(cfg.Match.BucketFn, cfg.Match.CentroidPath, cfg.Match.OppBucketPath, filter, rng)
	if err != nil {
		return fmt.Errorf("agent: bucket fn: %w", err)
	}

	p := player.New(filter, table, bucket, cfr.DefaultBetSizing, rng)

	addr := fmt.Sprintf("%s:%d", cfg.Match.Host, cfg.Match.Port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("agent: dial %s: %w", addr, err)
	}
	defer conn.Close()

	logger.Info("connected to referee", "addr", addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		cancel()
	}()

	runner := protocol.NewRunner(conn, conn, p, logger)

	var program *tea.Program
	if c.TUI {
		updates := make(chan tui.Snapshot, 8)
		runner.SetDecisionHook(func(roundNum int, s engine.RoundState, action engine.Action, amount int) {
			strat := p.LastStrategy()
			last := action.String()
			if action == engine.Raise {
				last = fmt.Sprintf("%s %d", last, amount)
			}
			snap := tui.Snapshot{
				RoundNum:      roundNum,
				Street:        s.Street.String(),
				NonZero:       filter.NonZero(),
				Unique:        filter.Unique(),
				NumParticles:  p.NumParticles(),
				Equity:        float64(p.LastEquity()),
				LastAction:    last,
				LastStrategy:  strat,
				ShowdownsSeen: p.NumShowdownsSeen(),
			}
			select {
			case updates <- snap:
			default:
			}
		})

		program = tea.NewProgram(tui.New(updates))
		go func() {
			if _, err := program.Run(); err != nil {
				logger.Error("dashboard exited", "err", err)
			}
			cancel()
		}()
	}

	runErr := runner.Run(ctx)
	if program != nil {
		program.Quit()
	}
	if runErr != nil {
		return fmt.Errorf("agent: match: %w", runErr)
	}

	logger.Info("match complete",
		"showdowns_seen", p.NumShowdownsSeen(),
		"showdowns_converged", p.NumShowdownsConverged(),
	)
	return nil
}

// kmeansParticleSamples and kmeansEquityIters bound the per-decision cost
// of an online strength-vector estimate: 8 particles by 8 archetype
// dimensions by 100 trials stays well inside the per-action clock budget.
const (
	kmeansParticleSamples = 8
	kmeansEquityIters     = 100
)

func buildBucketFn(name, centroidPath, oppBucketPath string, filter *permfilter.Filter, rng *rand.Rand) (infoset.BucketFn, error) {
	switch name {
	case "small":
		return infoset.NewFixedBucketFn(infoset.Small, 5), nil
	case "large":
		return infoset.NewFixedBucketFn(infoset.Large, 10), nil
	case "kmeans":
		centroids, err := kmeans.LoadCentroids(centroidPath)
		if err != nil {
			return infoset.BucketFn{}, fmt.Errorf("load centroids: %w", err)
		}
		archetypes := kmeans.RepresentativeHands()
		if buckets, err := kmeans.LoadBuckets(oppBucketPath); err == nil {
			archetypes = kmeans.ArchetypesFromBuckets(buckets)
		}
		ctx := context.Background()
		// Centroid assignment has to go through the particle filter: the
		// raw hole-card labels say nothing about true hand strength while
		// the permutation is still hidden.
		lookup := func(hole, board cards.Hand) int {
			v, ok := permfilter.ComputeStrengthVectorRandom(ctx, filter, hole, board, archetypes, kmeansParticleSamples, kmeansEquityIters, rng)
			if !ok {
				return centroids[0].ID
			}
			return kmeans.Nearest(centroids, v)
		}
		return infoset.NewKmeansBucketFn(lookup), nil
	case "", "medium":
		return infoset.NewFixedBucketFn(infoset.Medium, 7), nil
	default:
		return infoset.BucketFn{}, fmt.Errorf("unknown bucket_fn %q", name)
	}
}
