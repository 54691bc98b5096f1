// cmd/kmeans generates the offline opponent-strength clustering artifact:
// a batch of random-deal strength vectors, clustered by Lloyd's algorithm
// into the centroid file the "kmeans" bucket granularity loads at match
// start.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lox/rankshift/internal/kmeans"
	"github.com/lox/rankshift/internal/randutil"
)

var version = "dev"

type CLI struct {
	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Out         string           `default:"centroids.txt" help:"Output path for the centroid file"`
	BucketsOut  string           `default:"opp_buckets.txt" help:"Output path for the 169-hand opponent-bucket file"`
	Samples     int              `default:"20000" help:"Number of random deals to sample (one vector per street each)"`
	K           int              `default:"8" help:"Number of clusters"`
	Iters       int              `default:"200" help:"Maximum Lloyd's-algorithm iterations"`
	EquityIters int              `default:"2000" help:"Monte-Carlo iterations per starting-hand label"`
	Seed        int64            `default:"1" help:"RNG seed"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("kmeans"),
		kong.Description("Generate the opponent-strength centroid file"),
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
	ctx := context.Background()

	buckets := kmeans.GenerateBuckets(ctx, cli.EquityIters, rng)
	if err := kmeans.SaveBuckets(cli.BucketsOut, buckets); err != nil {
		return err
	}

	archetypes := kmeans.ArchetypesFromBuckets(buckets)
	samples := kmeans.GenerateSamples(ctx, cli.Samples, archetypes, rng)
	centroids := kmeans.Lloyd(samples, cli.K, rng, cli.Iters)
	return kmeans.SaveCentroids(cli.Out, centroids)
}
