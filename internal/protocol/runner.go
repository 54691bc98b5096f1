package protocol

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/rankshift/internal/cards"
	"github.com/lox/rankshift/internal/engine"
	"github.com/lox/rankshift/internal/player"
)

// Runner drives one match against the referee: it reads messages off r,
// reconstructs just enough of an engine.RoundState to ask Player for a
// decision, and writes the reply to w.
type Runner struct {
	r      *Reader
	w      *Writer
	player *player.Player
	log    *log.Logger

	hero      cards.Hand
	sbPlayer  int
	myStack   int
	oppStack  int
	roundNum  int
	bankroll  int // sum of my per-round deltas reported so far
	lastBoard cards.Hand

	onDecision func(roundNum int, s engine.RoundState, action engine.Action, amount int)
}

// SetDecisionHook installs a callback invoked after every GetAction reply,
// before it is written back to the referee. It is nil by default; a caller
// that wants live visibility into the match (a dashboard, a log sink) sets
// one instead of the Runner depending on any particular presentation.
func (rn *Runner) SetDecisionHook(fn func(roundNum int, s engine.RoundState, action engine.Action, amount int)) {
	rn.onDecision = fn
}

// NewRunner builds a Runner around an already-connected stream and a
// pre-constructed Player.
func NewRunner(r io.Reader, w io.Writer, p *player.Player, logger *log.Logger) *Runner {
	return &Runner{
		r:      NewReader(r),
		w:      NewWriter(w),
		player: p,
		log:    logger,
	}
}

// Run drives the match to completion: a game-over tag, or the stream
// closing.
func (rn *Runner) Run(ctx context.Context) error {
	for {
		msg, err := rn.r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("protocol: read: %w", err)
		}

		switch msg.Tag {
		case TagPosition:
			pos, err := msg.IntField(0)
			if err != nil {
				return fmt.Errorf("protocol: P: %w", err)
			}
			rn.sbPlayer = pos

		case TagHand:
			hero, err := parseCards(msg.Fields)
			if err != nil {
				return fmt.Errorf("protocol: H: %w", err)
			}
			rn.hero = hero
			rn.myStack = engine.StartingStack
			rn.oppStack = engine.StartingStack
			rn.lastBoard = 0
			rn.player.HandleNewRound(rn.bankroll, rn.roundNum, rn.sbPlayer == 1)

		case TagBoard:
			s, err := rn.parseBoard(msg)
			if err != nil {
				return fmt.Errorf("protocol: B: %w", err)
			}

			// The tracker wants whole-hand cumulative contributions, not
			// the per-street pips the referee reports.
			action, amount, err := rn.player.GetAction(ctx, s, engine.StartingStack-s.Stacks[0], engine.StartingStack-s.Stacks[1])
			if err != nil {
				return fmt.Errorf("protocol: get action: %w", err)
			}
			if rn.onDecision != nil {
				rn.onDecision(rn.roundNum, s, action, amount)
			}
			if err := rn.w.Write(actionMessage(action, amount)); err != nil {
				return fmt.Errorf("protocol: write action: %w", err)
			}

		case TagOpponent:
			rn.log.Debug("opponent acted", "fields", msg.Fields)

		case TagShowdown:
			sd, err := rn.parseShowdown(msg)
			if err != nil {
				return fmt.Errorf("protocol: S: %w", err)
			}
			rn.player.HandleRoundOver(sd)

		case TagDelta:
			if d, err := msg.IntField(0); err == nil {
				rn.bankroll += d
			}
			rn.roundNum++

		case TagGameOver:
			return nil

		case TagTime:
			if secs, err := msg.IntField(0); err == nil {
				rn.player.ObserveTimeRemaining(time.Duration(secs) * time.Second)
			}

		default:
			rn.log.Warn("unrecognised protocol tag", "tag", string(msg.Tag))
		}
	}
}

func (rn *Runner) parseBoard(msg Message) (engine.RoundState, error) {
	if len(msg.Fields) < 5 {
		return engine.RoundState{}, fmt.Errorf("expected at least 5 fields, got %d", len(msg.Fields))
	}
	streetCount, err := strconv.Atoi(msg.Fields[0])
	if err != nil {
		return engine.RoundState{}, fmt.Errorf("street: %w", err)
	}
	myPip, err := strconv.Atoi(msg.Fields[1])
	if err != nil {
		return engine.RoundState{}, fmt.Errorf("my pip: %w", err)
	}
	oppPip, err := strconv.Atoi(msg.Fields[2])
	if err != nil {
		return engine.RoundState{}, fmt.Errorf("opp pip: %w", err)
	}
	myStack, err := strconv.Atoi(msg.Fields[3])
	if err != nil {
		return engine.RoundState{}, fmt.Errorf("my stack: %w", err)
	}
	oppStack, err := strconv.Atoi(msg.Fields[4])
	if err != nil {
		return engine.RoundState{}, fmt.Errorf("opp stack: %w", err)
	}
	board, err := parseCards(msg.Fields[5:])
	if err != nil {
		return engine.RoundState{}, fmt.Errorf("board cards: %w", err)
	}
	rn.lastBoard = board
	rn.myStack, rn.oppStack = myStack, oppStack

	var boardArr [5]cards.Card
	copy(boardArr[:], board.Cards())

	return engine.RoundState{
		Button:       rn.sbPlayer,
		SBPlayer:     rn.sbPlayer,
		Street:       engine.Street(streetCount),
		ActivePlayer: 0,
		Pips:         [2]int{myPip, oppPip},
		Stacks:       [2]int{myStack, oppStack},
		Hands:        [2]cards.Hand{rn.hero, 0},
		BoardCards:   boardArr,
		History:      [][]int{{}},
	}, nil
}

func (rn *Runner) parseShowdown(msg Message) (*player.Showdown, error) {
	if len(msg.Fields) < 3 {
		return nil, fmt.Errorf("expected at least 3 fields, got %d", len(msg.Fields))
	}
	villain, err := parseCards(msg.Fields[:2])
	if err != nil {
		return nil, fmt.Errorf("villain cards: %w", err)
	}
	heroWon, err := strconv.Atoi(msg.Fields[2])
	if err != nil {
		return nil, fmt.Errorf("hero won flag: %w", err)
	}
	return &player.Showdown{
		Hero:    rn.hero,
		Villain: villain,
		Board:   rn.lastBoard,
		HeroWon: heroWon,
	}, nil
}

func parseCards(fields []string) (cards.Hand, error) {
	var h cards.Hand
	for _, f := range fields {
		c, err := cards.Parse(f)
		if err != nil {
			return 0, err
		}
		h.Add(c)
	}
	return h, nil
}

func actionMessage(action engine.Action, amount int) Message {
	switch action {
	case engine.Fold:
		return New(TagAction, "fold")
	case engine.Call:
		return New(TagAction, "call")
	case engine.Check:
		return New(TagAction, "check")
	case engine.Raise:
		return New(TagAction, "raise", strconv.Itoa(amount))
	default:
		return New(TagAction, "check")
	}
}
