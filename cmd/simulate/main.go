// Command simulate plays random-vs-random Kalah games locally and prints
// win, draw and move statistics for an opening preset.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/logrusorgru/aurora"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/kalah-game/game/config"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/player"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "play random-vs-random games and summarize the results",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 1000, Usage: "number of games"},
			&cli.StringFlag{Name: "preset", Value: config.DefaultPresetID, Usage: "opening preset id"},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing opening presets", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed of the first game; game i uses seed+i"},
			&cli.IntFlag{Name: "workers", Value: 4, Usage: "games played in parallel"},
			&cli.BoolFlag{Name: "no-progress", Usage: "hide the progress bar"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	presets, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	preset, err := presets.LoadPreset(cmd.String("preset"))
	if err != nil {
		return err
	}

	games := cmd.Int("games")
	if games < 1 {
		return fmt.Errorf("games must be positive, got %d", games)
	}

	progress := func() {}
	if !cmd.Bool("no-progress") {
		bar := newBar(games, fmt.Sprintf("%s x%d", preset.Name, games))
		defer bar.Close()
		progress = func() { bar.Add(1) }
	}

	summary, err := Simulate(ctx, preset, games, cmd.Uint64("seed"), cmd.Int("workers"), progress)
	if err != nil {
		return err
	}

	summary.Print(cmd.Root().Writer)
	return nil
}

func newBar(n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        aurora.Yellow("█").String(),
			SaucerHead:    aurora.Yellow("█").String(),
			SaucerPadding: " ",
			BarStart:      "|",
			BarEnd:        "|",
		}),
	)
}

// GameStats describes one finished game
type GameStats struct {
	Outcome    engine.Outcome
	FirstWon   bool // the player who moved first won
	Turns      int
	ExtraTurns int
	Captures   int
	Captured   int
	Stores     [2]int
}

// PlayGame plays one game between two random players and returns its stats
func PlayGame(preset *engine.Preset, seed uint64) (GameStats, error) {
	p1 := player.NewRandomPlayer("south", seed)
	p2 := player.NewRandomPlayer("north", seed^0x9e3779b97f4a7c15)

	board, err := engine.NewBoard(p1, p2, p1)
	if err != nil {
		return GameStats{}, err
	}
	if err := board.InitPreset(preset); err != nil {
		return GameStats{}, err
	}

	var stats GameStats
	for !board.IsGameOver() {
		active := board.ActivePlayer().(player.ComputerPlayer)
		idx, err := active.NextMoveIndex(board)
		if err != nil {
			return stats, err
		}
		res, err := board.Turn(idx)
		if err != nil {
			return stats, err
		}
		if res.ExtraTurn {
			stats.ExtraTurns++
		}
		if res.Captured > 0 {
			stats.Captures++
			stats.Captured += res.Captured
		}
	}

	stats.Outcome = board.Outcome()
	stats.FirstWon = board.Winner() == engine.Player(p1)
	stats.Turns = board.TurnNumber()
	stats.Stores = [2]int{board.StoreStones(p1), board.StoreStones(p2)}
	return stats, nil
}

// Summary aggregates many games
type Summary struct {
	Preset     string
	Games      int
	FirstWins  int
	SecondWins int
	Draws      int
	TotalTurns int
	MaxTurns   int
	MinTurns   int
	ExtraTurns int
	Captures   int
	Captured   int
}

func (s *Summary) add(g GameStats) {
	s.Games++
	switch {
	case g.Outcome == engine.Draw:
		s.Draws++
	case g.FirstWon:
		s.FirstWins++
	default:
		s.SecondWins++
	}

	s.TotalTurns += g.Turns
	if g.Turns > s.MaxTurns {
		s.MaxTurns = g.Turns
	}
	if s.MinTurns == 0 || g.Turns < s.MinTurns {
		s.MinTurns = g.Turns
	}
	s.ExtraTurns += g.ExtraTurns
	s.Captures += g.Captures
	s.Captured += g.Captured
}

// Simulate plays games in parallel; game i is seeded with seed+i so the
// summary does not depend on the number of workers.
func Simulate(ctx context.Context, preset *engine.Preset, games int, seed uint64, workers int, progress func()) (*Summary, error) {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	results := make([]GameStats, games)
	errs := make([]error, games)

	var wg sync.WaitGroup
	var progressMu sync.Mutex
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = PlayGame(preset, seed+uint64(i))
				progressMu.Lock()
				progress()
				progressMu.Unlock()
			}
		}()
	}

	var ctxErr error
feed:
	for i := 0; i < games && ctx.Err() == nil; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if ctxErr == nil {
		ctxErr = ctx.Err()
	}
	if ctxErr != nil {
		return nil, ctxErr
	}

	summary := &Summary{Preset: preset.Name}
	for i, g := range results {
		if errs[i] != nil {
			return nil, fmt.Errorf("game %d: %w", i, errs[i])
		}
		summary.add(g)
	}
	return summary, nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

// Print writes a colored report
func (s *Summary) Print(w io.Writer) {
	avg := func(n int) float64 {
		if s.Games == 0 {
			return 0
		}
		return float64(n) / float64(s.Games)
	}

	fmt.Fprintf(w, "\n%s %s, %d games\n", aurora.Bold("Preset"), aurora.Cyan(s.Preset), s.Games)
	fmt.Fprintf(w, "  first player wins   %s\n", aurora.Green(fmt.Sprintf("%5d (%5.1f%%)", s.FirstWins, percent(s.FirstWins, s.Games))))
	fmt.Fprintf(w, "  second player wins  %s\n", aurora.Red(fmt.Sprintf("%5d (%5.1f%%)", s.SecondWins, percent(s.SecondWins, s.Games))))
	fmt.Fprintf(w, "  draws               %s\n", aurora.Yellow(fmt.Sprintf("%5d (%5.1f%%)", s.Draws, percent(s.Draws, s.Games))))
	fmt.Fprintf(w, "  turns per game      %.1f (min %d, max %d)\n", avg(s.TotalTurns), s.MinTurns, s.MaxTurns)
	fmt.Fprintf(w, "  extra turns / game  %.1f\n", avg(s.ExtraTurns))
	fmt.Fprintf(w, "  captures / game     %.1f (%.1f stones)\n", avg(s.Captures), avg(s.Captured))
}
