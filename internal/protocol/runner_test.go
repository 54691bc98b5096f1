package protocol

import (
	"context"
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/rankshift/internal/cfr"
	"github.com/lox/rankshift/internal/engine"
	"github.com/lox/rankshift/internal/infoset"
	"github.com/lox/rankshift/internal/logging"
	"github.com/lox/rankshift/internal/permfilter"
	"github.com/lox/rankshift/internal/player"
	"github.com/lox/rankshift/internal/strategy"
)

func newTestPlayer() *player.Player {
	rng := rand.New(rand.NewPCG(7, 7))
	filter := permfilter.New(64, rng)
	table := strategy.New()
	bucket := infoset.NewFixedBucketFn(infoset.Small, 5)
	return player.New(filter, table, bucket, cfr.DefaultBetSizing, rng)
}

// TestRunPlaysOneRoundAndExits drives a Runner through one hand of scripted
// referee input and checks it writes back one legal action reply per board
// message before returning cleanly on TagGameOver.
func TestRunPlaysOneRoundAndExits(t *testing.T) {
	t.Parallel()

	script := strings.Join([]string{
		"P 0",
		"T 30",
		"H Ah Kd",
		"B 0 1 2 199 198 ",
		"D 0 0",
		"G",
	}, "\n") + "\n"

	var out strings.Builder
	logger := logging.New(logging.Options{Writer: io.Discard})
	rn := NewRunner(strings.NewReader(script), &out, newTestPlayer(), logger)

	var decisions int
	rn.SetDecisionHook(func(roundNum int, s engine.RoundState, action engine.Action, amount int) {
		decisions++
		require.True(t, engine.LegalActions(s).Allows(action))
	})

	err := rn.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, decisions)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 1)

	msg, err := ParseLine(lines[0])
	require.NoError(t, err)
	require.Equal(t, TagAction, msg.Tag)
}

// TestRunReturnsNilOnCleanEOF confirms a stream that ends without a
// TagGameOver line is treated as a clean shutdown rather than an error.
func TestRunReturnsNilOnCleanEOF(t *testing.T) {
	t.Parallel()
	logger := logging.New(logging.Options{Writer: io.Discard})
	rn := NewRunner(strings.NewReader("P 0\n"), io.Discard, newTestPlayer(), logger)
	err := rn.Run(context.Background())
	require.NoError(t, err)
}
