// Package config owns the HCL-described configuration for a live match and
// for an offline training run: a struct tagged for gohcl, a DefaultXConfig
// constructor, and a LoadXConfig(path) that falls back to defaults when the
// file does not exist and back-fills zero-valued fields afterwards.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// MatchConfig describes one online match against the referee protocol.
type MatchConfig struct {
	Match MatchSettings `hcl:"match,block"`
}

// MatchSettings are the knobs the policy player needs at process start.
type MatchSettings struct {
	Host          string `hcl:"host,optional"`
	Port          int    `hcl:"port,optional"`
	StrategyPath  string `hcl:"strategy_path,optional"`
	PreflopEquity string `hcl:"preflop_equity_path,optional"`
	CentroidPath  string `hcl:"centroid_path,optional"`
	OppBucketPath string `hcl:"opp_bucket_path,optional"`
	NumParticles  int    `hcl:"num_particles,optional"`
	BucketFn      string `hcl:"bucket_fn,optional"` // small|medium|large|kmeans
	LogLevel      string `hcl:"log_level,optional"`
}

// DefaultMatchConfig returns the configuration a match runs with absent a
// config file.
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Match: MatchSettings{
			Host:          "localhost",
			Port:          8000,
			StrategyPath:  "strategy.txt",
			PreflopEquity: "preflop_equity.txt",
			CentroidPath:  "centroids.txt",
			OppBucketPath: "opp_buckets.txt",
			NumParticles:  25000,
			BucketFn:      "medium",
			LogLevel:      "info",
		},
	}
}

// LoadMatchConfig loads match configuration from an HCL file, defaulting any
// field the file leaves zero-valued.
func LoadMatchConfig(filename string) (*MatchConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultMatchConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse %s: %s", filename, diags.Error())
	}

	cfg := *DefaultMatchConfig()
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: decode %s: %s", filename, diags.Error())
	}
	applyMatchDefaults(&cfg)
	return &cfg, nil
}

func applyMatchDefaults(cfg *MatchConfig) {
	def := DefaultMatchConfig()
	if cfg.Match.Host == "" {
		cfg.Match.Host = def.Match.Host
	}
	if cfg.Match.Port == 0 {
		cfg.Match.Port = def.Match.Port
	}
	if cfg.Match.StrategyPath == "" {
		cfg.Match.StrategyPath = def.Match.StrategyPath
	}
	if cfg.Match.PreflopEquity == "" {
		cfg.Match.PreflopEquity = def.Match.PreflopEquity
	}
	if cfg.Match.CentroidPath == "" {
		cfg.Match.CentroidPath = def.Match.CentroidPath
	}
	if cfg.Match.OppBucketPath == "" {
		cfg.Match.OppBucketPath = def.Match.OppBucketPath
	}
	if cfg.Match.NumParticles == 0 {
		cfg.Match.NumParticles = def.Match.NumParticles
	}
	if cfg.Match.BucketFn == "" {
		cfg.Match.BucketFn = def.Match.BucketFn
	}
	if cfg.Match.LogLevel == "" {
		cfg.Match.LogLevel = def.Match.LogLevel
	}
}

// TrainConfig describes one offline CFR training run.
type TrainConfig struct {
	Train TrainSettings `hcl:"train,block"`
}

// TrainSettings are the knobs the CFR trainer needs at process start.
type TrainSettings struct {
	Experiment        string  `hcl:"experiment,optional"`
	CheckpointDir     string  `hcl:"checkpoint_dir,optional"`
	CheckpointEvery   int     `hcl:"checkpoint_every,optional"`
	Iterations        int     `hcl:"iterations,optional"`
	TraversalsPerIter int     `hcl:"traversals_per_iter,optional"`
	EvalEvery         int     `hcl:"eval_every,optional"`
	EvalHands         int     `hcl:"eval_hands,optional"`
	BucketFn          string  `hcl:"bucket_fn,optional"`
	Seed              int64   `hcl:"seed,optional"`
	HalfPotMultiplier float64 `hcl:"half_pot_multiplier,optional"`
	PotMultiplier     float64 `hcl:"pot_multiplier,optional"`
	TwoPotMultiplier  float64 `hcl:"two_pot_multiplier,optional"`
}

// DefaultTrainConfig returns the configuration a training run uses absent a
// config file.
func DefaultTrainConfig() *TrainConfig {
	return &TrainConfig{
		Train: TrainSettings{
			Experiment:        "default",
			CheckpointDir:     "checkpoints",
			CheckpointEvery:   1000,
			Iterations:        1_000_000,
			TraversalsPerIter: 2,
			EvalEvery:         50_000,
			EvalHands:         2000,
			BucketFn:          "medium",
			Seed:              1,
			HalfPotMultiplier: 0.5,
			PotMultiplier:     1.0,
			TwoPotMultiplier:  2.0,
		},
	}
}

// LoadTrainConfig loads training configuration from an HCL file.
func LoadTrainConfig(filename string) (*TrainConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultTrainConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse %s: %s", filename, diags.Error())
	}

	cfg := *DefaultTrainConfig()
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: decode %s: %s", filename, diags.Error())
	}
	applyTrainDefaults(&cfg)
	return &cfg, nil
}

func applyTrainDefaults(cfg *TrainConfig) {
	def := DefaultTrainConfig()
	if cfg.Train.Experiment == "" {
		cfg.Train.Experiment = def.Train.Experiment
	}
	if cfg.Train.CheckpointDir == "" {
		cfg.Train.CheckpointDir = def.Train.CheckpointDir
	}
	if cfg.Train.CheckpointEvery == 0 {
		cfg.Train.CheckpointEvery = def.Train.CheckpointEvery
	}
	if cfg.Train.Iterations == 0 {
		cfg.Train.Iterations = def.Train.Iterations
	}
	if cfg.Train.TraversalsPerIter == 0 {
		cfg.Train.TraversalsPerIter = def.Train.TraversalsPerIter
	}
	if cfg.Train.EvalEvery == 0 {
		cfg.Train.EvalEvery = def.Train.EvalEvery
	}
	if cfg.Train.EvalHands == 0 {
		cfg.Train.EvalHands = def.Train.EvalHands
	}
	if cfg.Train.BucketFn == "" {
		cfg.Train.BucketFn = def.Train.BucketFn
	}
	if cfg.Train.HalfPotMultiplier == 0 {
		cfg.Train.HalfPotMultiplier = def.Train.HalfPotMultiplier
	}
	if cfg.Train.PotMultiplier == 0 {
		cfg.Train.PotMultiplier = def.Train.PotMultiplier
	}
	if cfg.Train.TwoPotMultiplier == 0 {
		cfg.Train.TwoPotMultiplier = def.Train.TwoPotMultiplier
	}
}
