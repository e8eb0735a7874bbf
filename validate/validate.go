// Command validate checks the opening presets in the ../configs directory
// (or the directory given as the first argument). It checks:
//   - JSON or YAML structure and the preset limits
//   - Explicit pit layouts match pits_per_side
//   - Both sides start with stones
//   - Ids are unique across extensions
//   - Playability: a random game from the opening finishes and keeps every stone
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/wricardo/kalah-game/game/config"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/player"
)

// playouts is the number of random games used for the playability check
const playouts = 20

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validatePreset loads and validates a single preset file
func validatePreset(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	preset, err := config.ParsePreset(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("%v", err)
		return result
	}

	sizes1, store1, sizes2, store2 := preset.Layout()
	total := store1 + store2
	for i := range sizes1 {
		total += sizes1[i] + sizes2[i]
	}
	result.info("Layout: %d pits per side, %d stones in play", preset.PitsPerSide, total)
	if total%2 == 1 {
		result.info("Odd stone count: a draw is impossible")
	}

	if err := checkPlayable(preset, total); err != nil {
		result.fail("Playability failure: %v", err)
	} else {
		result.info("Playability: %d random games finished", playouts)
	}

	return result
}

// checkPlayable plays random games from the preset and checks that each one
// ends with every stone in a store
func checkPlayable(preset *engine.Preset, total int) error {
	for seed := uint64(1); seed <= playouts; seed++ {
		p1 := player.NewRandomPlayer("player1", seed)
		p2 := player.NewRandomPlayer("player2", seed+playouts)

		board, err := engine.NewBoard(p1, p2, p1)
		if err != nil {
			return err
		}
		if err := board.InitPreset(preset); err != nil {
			return err
		}

		// every turn moves at least one stone toward a store or the other side;
		// the bound only guards against an engine bug
		for turns := 0; !board.IsGameOver(); turns++ {
			if turns > 10000 {
				return fmt.Errorf("game %d did not finish", seed)
			}
			idx, err := board.ActivePlayer().(player.ComputerPlayer).NextMoveIndex(board)
			if err != nil {
				return fmt.Errorf("game %d: %w", seed, err)
			}
			if _, err := board.Turn(idx); err != nil {
				return fmt.Errorf("game %d: %w", seed, err)
			}
		}

		if stored := board.StoreStones(p1) + board.StoreStones(p2); stored != total {
			return fmt.Errorf("game %d ended with %d of %d stones in stores", seed, stored, total)
		}
	}
	return nil
}

// findPresets returns preset files in dir and ids provided by more than one
// file. Only the first extension in json, yaml, yml order is ever loaded.
func findPresets(dir string) (files []string, shadowed map[string][]string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		byID[id] = append(byID[id], entry.Name())
	}
	sort.Strings(files)

	shadowed = make(map[string][]string)
	for id, names := range byID {
		if len(names) > 1 {
			sort.Strings(names)
			shadowed[id] = names
		}
	}
	return files, shadowed, nil
}

// main scans the preset directory and validates each file, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, shadowed, err := findPresets(configDir)
	if err != nil {
		fmt.Printf("Error finding preset files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validatePreset(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println(aurora.Green("✅ VALID"))
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println(aurora.Red("❌ INVALID"))
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	for id, names := range shadowed {
		allValid = false
		fmt.Printf("\n❌ Preset id %q is defined by %s\n", id, strings.Join(names, ", "))
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println(aurora.Green("✅ All presets are valid!"))
	} else {
		fmt.Println(aurora.Red("❌ Some presets have errors"))
		os.Exit(1)
	}
}
