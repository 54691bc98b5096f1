// Package kmeans implements the offline opponent-strength clustering
// clustering: dealing random rounds, computing an 8-dimensional
// "equity of my hand vs each of 8 opponent starting-hand clusters" feature
// vector per street, and running Lloyd's algorithm over those samples to
// produce the 8-10 centroids one dimension of the infoset bucket can assign
// nearest-centroid ids against.
//
// The sampling follows a bucket-by-feature-vector shape; the clustering
// step itself follows textbook Lloyd's (random initial medoids, Euclidean
// distance, fixed convergence threshold).
package kmeans

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"math/rand/v2"

	"github.com/lox/rankshift/internal/cards"
)

// VectorDims is the fixed dimensionality of a strength vector: equity
// against each of the 8 canonical opponent-strength clusters.
const VectorDims = 8

// Vector is one sample: an 8-dim opponent-cluster equity feature.
type Vector [VectorDims]float64

// Centroid is one learned cluster center, addressable by its 1-based id per
// a simple "<id> <v0>..<v7>" file format.
type Centroid struct {
	ID     int
	Center Vector
}

func distance(a, b Vector) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Nearest returns the id of the centroid closest to v by Euclidean
// distance.
func Nearest(centroids []Centroid, v Vector) int {
	best := -1
	bestDist := math.Inf(1)
	for _, c := range centroids {
		d := distance(c.Center, v)
		if d < bestDist {
			bestDist = d
			best = c.ID
		}
	}
	return best
}

// convergenceThreshold is the per-spec stopping criterion: iterate until no
// centroid moves by more than this between rounds.
const convergenceThreshold = 1e-5

// Lloyd runs Lloyd's algorithm over samples, seeded with k centroids drawn
// uniformly at random from the sample set (random initial medoids, per
// random initial medoids), until no centroid moves by more than convergenceThreshold
// in a round, or maxIters is reached as a safety backstop.
func Lloyd(samples []Vector, k int, rng *rand.Rand, maxIters int) []Centroid {
	if len(samples) == 0 || k <= 0 {
		return nil
	}
	if k > len(samples) {
		k = len(samples)
	}

	centroids := make([]Centroid, k)
	perm := rng.Perm(len(samples))
	for i := 0; i < k; i++ {
		centroids[i] = Centroid{ID: i + 1, Center: samples[perm[i]]}
	}

	assignment := make([]int, len(samples))
	for iter := 0; iter < maxIters; iter++ {
		for si, s := range samples {
			best := 0
			bestDist := distance(centroids[0].Center, s)
			for ci := 1; ci < k; ci++ {
				d := distance(centroids[ci].Center, s)
				if d < bestDist {
					bestDist = d
					best = ci
				}
			}
			assignment[si] = best
		}

		sums := make([]Vector, k)
		counts := make([]int, k)
		for si, s := range samples {
			ci := assignment[si]
			counts[ci]++
			for d := range s {
				sums[ci][d] += s[d]
			}
		}

		maxShift := 0.0
		for ci := range centroids {
			if counts[ci] == 0 {
				continue
			}
			var next Vector
			for d := range next {
				next[d] = sums[ci][d] / float64(counts[ci])
			}
			shift := distance(centroids[ci].Center, next)
			if shift > maxShift {
				maxShift = shift
			}
			centroids[ci].Center = next
		}

		if maxShift <= convergenceThreshold {
			break
		}
	}

	return centroids
}

// SaveCentroids writes centroids in a simple "<id> <v0>..<v7>" text
// format.
func SaveCentroids(path string, centroids []Centroid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("kmeans: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, c := range centroids {
		fmt.Fprintf(w, "%d", c.ID)
		for _, v := range c.Center {
			fmt.Fprintf(w, " %.8f", v)
		}
		w.WriteByte('\n')
	}
	return w.Flush()
}

// LoadCentroids reads a file written by SaveCentroids.
func LoadCentroids(path string) ([]Centroid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kmeans: open %s: %w", path, err)
	}
	defer f.Close()

	var out []Centroid
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != VectorDims+1 {
			return nil, fmt.Errorf("kmeans: %s:%d: expected %d fields, got %d", path, line, VectorDims+1, len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("kmeans: %s:%d: invalid id %q: %w", path, line, fields[0], err)
		}
		var center Vector
		for i := 0; i < VectorDims; i++ {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("kmeans: %s:%d: invalid dim %d %q: %w", path, line, i, fields[i+1], err)
			}
			center[i] = v
		}
		out = append(out, Centroid{ID: id, Center: center})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("kmeans: scan %s: %w", path, err)
	}
	return out, nil
}

// representativeHoles are the 8 canonical starting-hand archetypes a
// strength vector measures equity against: a spread from premium pairs
// down to weak offsuit holdings, chosen so the vector distinguishes hand
// strength rather than suit/rank identity.
var representativeHoles = [VectorDims][2]string{
	{"As", "Ad"}, // premium pair
	{"Ks", "Kd"}, // strong pair
	{"As", "Ks"}, // premium suited broadway
	{"Ts", "9s"}, // suited connector
	{"7s", "7d"}, // mid pair
	{"Ac", "2c"}, // suited ace-rag
	{"Ks", "2d"}, // offsuit broadway-rag
	{"7c", "2d"}, // weak offsuit
}

// RepresentativeHands returns the 8 archetype hole-card hands used to build
// a strength vector, as cards.Hand values.
func RepresentativeHands() [VectorDims]cards.Hand {
	var out [VectorDims]cards.Hand
	for i, pair := range representativeHoles {
		c0 := cards.MustParse(pair[0])
		c1 := cards.MustParse(pair[1])
		out[i] = cards.NewHand(c0, c1)
	}
	return out
}
