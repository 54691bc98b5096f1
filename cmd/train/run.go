package main

import (
	"fmt"
	"os"

	"github.com/lox/rankshift/internal/cfr"
	"github.com/lox/rankshift/internal/config"
	"github.com/lox/rankshift/internal/infoset"
	"github.com/lox/rankshift/internal/logging"
	"github.com/lox/rankshift/internal/randutil"
)

// RunCmd runs train.Iterations MCCFR iterations, checkpointing every
// train.CheckpointEvery and logging an exploitability sample every
// train.EvalEvery, then writes the final whitespace-delimited average
// strategy file next to the whitespace-delimited regret checkpoint.
type RunCmd struct {
	Config string `default:"train.hcl" help:"Path to an HCL training config file"`
	Export string `default:"strategy.txt" help:"Path to write the final whitespace-delimited strategy table"`
}

func (c *RunCmd) Run() error {
	cfg, err := config.LoadTrainConfig(c.Config)
	if err != nil {
		return fmt.Errorf("train: load config: %w", err)
	}

	logger := logging.New(logging.Options{Level: "info"})

	if err := os.MkdirAll(cfg.Train.CheckpointDir, 0o755); err != nil {
		return fmt.Errorf("train: checkpoint dir: %w", err)
	}

	bucket, err := bucketFnFor(cfg.Train.BucketFn)
	if err != nil {
		return fmt.Errorf("train: bucket fn: %w", err)
	}

	sizing := cfr.BetSizing{cfg.Train.HalfPotMultiplier, cfg.Train.PotMultiplier, cfg.Train.TwoPotMultiplier}
	trainer := cfr.NewTrainer(bucket, sizing, uint64(cfg.Train.Seed))
	trainer.TraversalsPerIter = cfg.Train.TraversalsPerIter
	trainer.EnableCheckpoints(checkpointPath(cfg.Train.CheckpointDir, cfg.Train.Experiment), cfg.Train.CheckpointEvery)

	evalRNG := randutil.New(cfg.Train.Seed + 1)

	for trainer.Iteration() < int64(cfg.Train.Iterations) {
		utils, err := trainer.RunIteration()
		if err != nil {
			return fmt.Errorf("train: iteration %d: %w", trainer.Iteration(), err)
		}

		iter := trainer.Iteration()
		if cfg.Train.EvalEvery > 0 && iter%int64(cfg.Train.EvalEvery) == 0 {
			report := cfr.EvaluateExploitability(trainer.Table, bucket, sizing, evalRNG, cfg.Train.EvalHands)
			logger.Info("checkpoint",
				"iteration", iter,
				"utils", utils,
				"exploitability_mbb", report.MeanMilliBB,
				"stderr", report.StdErr,
				"table_size", trainer.Table.Size(),
			)
		}
	}

	if err := trainer.Table.Save(checkpointPath(cfg.Train.CheckpointDir, cfg.Train.Experiment)); err != nil {
		return fmt.Errorf("train: final checkpoint: %w", err)
	}
	if err := trainer.Table.ExportStrategy(c.Export); err != nil {
		return fmt.Errorf("train: export strategy: %w", err)
	}

	logger.Info("training complete", "iterations", trainer.Iteration(), "export", c.Export)
	return nil
}

func checkpointPath(dir, experiment string) string {
	return dir + "/" + experiment + ".regrets.txt"
}

func bucketFnFor(name string) (infoset.BucketFn, error) {
	switch name {
	case "small":
		return infoset.NewFixedBucketFn(infoset.Small, 5), nil
	case "large":
		return infoset.NewFixedBucketFn(infoset.Large, 10), nil
	case "", "medium":
		return infoset.NewFixedBucketFn(infoset.Medium, 7), nil
	default:
		return infoset.BucketFn{}, fmt.Errorf("unknown bucket_fn %q (kmeans requires centroids; use cmd/agent's match config instead)", name)
	}
}
