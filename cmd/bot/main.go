// Command bot plays Kalah against a running server through its REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/kalah-game/game/service"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("bot stopped")
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "play a game against a Kalah server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "server URL", Sources: cli.EnvVars("KALAH_URL")},
			&cli.StringFlag{Name: "name", Value: "bot", Usage: "player name"},
			&cli.StringFlag{Name: "password", Usage: "player password", Sources: cli.EnvVars("KALAH_PASSWORD")},
			&cli.StringFlag{Name: "opponent", Value: "Computer", Usage: "second player name"},
			&cli.StringFlag{Name: "preset", Usage: "opening preset id"},
			&cli.StringFlag{Name: "board", Usage: "join an existing board instead of creating one"},
			&cli.StringFlag{Name: "strategy", Value: "greedy", Usage: "random or greedy"},
			&cli.Uint64Flag{Name: "seed", Value: uint64(time.Now().UnixNano()), Usage: "random seed"},
			&cli.IntFlag{Name: "max-turns", Value: 500, Usage: "give up after this many own turns"},
			&cli.DurationFlag{Name: "poll", Value: time.Second, Usage: "wait between checks while the opponent moves"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only print the final board"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			strategy, err := NewStrategy(cmd.String("strategy"), cmd.Uint64("seed"))
			if err != nil {
				return err
			}

			bot := &Bot{
				Client:   NewClient(cmd.String("url")),
				Strategy: strategy,
				MaxTurns: cmd.Int("max-turns"),
				Poll:     cmd.Duration("poll"),
				Out:      cmd.Root().Writer,
				Verbose:  !cmd.Bool("quiet"),
			}
			if err := bot.Client.Login(ctx, cmd.String("name"), cmd.String("password")); err != nil {
				return err
			}

			_, err = bot.Play(ctx, cmd.String("board"), cmd.String("opponent"), cmd.String("preset"))
			return err
		},
	}
}

var errTooManyTurns = errors.New("turn limit reached")

// Bot drives one board until the game is over
type Bot struct {
	Client   *Client
	Strategy Strategy
	MaxTurns int
	Poll     time.Duration
	Out      io.Writer
	Verbose  bool
}

// Play creates a board against opponent, or joins boardID when set, and
// plays until the game ends. It returns the final board.
func (b *Bot) Play(ctx context.Context, boardID, opponent, preset string) (*service.BoardInfo, error) {
	var board *service.BoardInfo
	var err error
	if boardID == "" {
		board, err = b.Client.CreateBoard(ctx, opponent, preset)
	} else {
		board, err = b.Client.GetBoard(ctx, boardID)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Str("board", board.ID).Str("player", b.Client.player).Msg("playing")

	turns := 0
	for !board.State.GameOver {
		if board.State.ActivePlayer != b.Client.player {
			select {
			case <-ctx.Done():
				return board, ctx.Err()
			case <-time.After(b.Poll):
			}
			if board, err = b.Client.GetBoard(ctx, board.ID); err != nil {
				return nil, err
			}
			continue
		}

		if turns >= b.MaxTurns {
			return board, errTooManyTurns
		}
		turns++

		pit, err := b.Strategy.Choose(board.State.RegularPits[b.Client.player])
		if err != nil {
			return board, err
		}
		result, err := b.Client.Turn(ctx, board.ID, pit)
		if err != nil {
			return board, err
		}
		if b.Verbose {
			for _, m := range result.Moves {
				b.printMove(m)
			}
		}
		board = result.Board
	}

	b.printResult(board)
	return board, nil
}

func (b *Bot) printMove(m service.MoveInfo) {
	who := aurora.Cyan(m.Player)
	if m.Player == b.Client.player {
		who = aurora.Green(m.Player)
	}

	line := fmt.Sprintf("turn %3d  %s sows pit %d (%d)", m.TurnNumber, who, m.PitIndex, m.Sown)
	if m.ExtraTurn {
		line += aurora.Yellow("  extra turn").String()
	}
	if m.Captured > 0 {
		line += aurora.Magenta(fmt.Sprintf("  captures %d", m.Captured)).String()
	}
	fmt.Fprintln(b.Out, line)
}

func (b *Bot) printResult(board *service.BoardInfo) {
	fmt.Fprintf(b.Out, "\n%s\n", board.State.String())

	switch {
	case board.State.Draw:
		fmt.Fprintln(b.Out, aurora.Yellow("Draw"))
	case board.State.Winner == b.Client.player:
		fmt.Fprintln(b.Out, aurora.Bold(aurora.Green("Won")))
	default:
		fmt.Fprintln(b.Out, aurora.Red(fmt.Sprintf("Lost to %s", board.State.Winner)))
	}
}
