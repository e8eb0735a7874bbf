// Package config provides opening-position presets for Kalah boards.
//
// The config package handles:
//   - Loading presets from JSON or YAML files
//   - Preset validation through engine.ValidatePreset
//   - Default preset management
//   - Preset discovery and listing
//
// Preset Format:
//
// Presets are stored in the configs directory as <id>.json, <id>.yaml or
// <id>.yml. The file name (without extension) is the preset id used when
// creating a board:
//
//	name: quick
//	description: Four pits of four stones
//	pits_per_side: 4
//	stones_per_pit: 4
//	store_stones: 0
//
// player1_pits/player2_pits and player1_store/player2_store may describe an
// uneven opening explicitly.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadPreset("quick")
//	id, defaultPreset := manager.GetDefault()
//	presets, err := manager.ListPresets()
//
// When the directory has no usable "classic" preset the built-in six pits
// of six stones is the default.
package config
