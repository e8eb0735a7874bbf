package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/service"
	"gopkg.in/yaml.v3"
)

// DefaultPresetID is used when a board is created without a preset
const DefaultPresetID = "classic"

var (
	ErrConfigNotFound = errors.New("preset not found")
	ErrInvalidConfig  = errors.New("invalid preset")
)

// extensions are tried in this order when loading a preset
var extensions = []string{".json", ".yaml", ".yml"}

var _ service.PresetManager = (*Manager)(nil)

// Manager handles preset loading and caching
type Manager struct {
	configDir     string
	defaultID     string
	defaultPreset *engine.Preset
	presets       map[string]*engine.Preset
	mu            sync.RWMutex
}

// NewManager creates a new preset manager. A missing directory is created.
func NewManager(configDir string) (*Manager, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configDir: configDir,
		presets:   make(map[string]*engine.Preset),
	}
	m.loadDefaultPreset()
	return m, nil
}

// LoadPreset loads a preset by id
func (m *Manager) LoadPreset(id string) (*engine.Preset, error) {
	id = trimExtension(id)
	if id == "" || id != filepath.Base(id) {
		return nil, fmt.Errorf("%w: '%s'", ErrConfigNotFound, id)
	}

	m.mu.RLock()
	if preset, exists := m.presets[id]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if preset, exists := m.presets[id]; exists {
		return preset, nil
	}

	preset, err := m.readPreset(id)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) && id == DefaultPresetID {
			return engine.ClassicPreset(), nil
		}
		return nil, err
	}

	m.presets[id] = preset
	return preset, nil
}

func (m *Manager) readPreset(id string) (*engine.Preset, error) {
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, id+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read preset file: %w", err)
		}

		preset, err := ParsePreset(data, ext)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		return preset, nil
	}
	return nil, fmt.Errorf("%w: '%s'", ErrConfigNotFound, id)
}

// ParsePreset decodes and validates preset data; ext selects JSON or YAML
func ParsePreset(data []byte, ext string) (*engine.Preset, error) {
	var preset engine.Preset
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &preset)
	default:
		err = json.Unmarshal(data, &preset)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse: %v", ErrInvalidConfig, err)
	}

	if err := engine.ValidatePreset(&preset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &preset, nil
}

// ListPresets returns information about all valid presets. The built-in
// classic preset is listed when no file provides it.
func (m *Manager) ListPresets() ([]*service.PresetInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	defaultID, _ := m.GetDefault()
	seen := make(map[string]bool)
	var presets []*service.PresetInfo

	for _, entry := range entries {
		if entry.IsDir() || !hasPresetExtension(entry.Name()) {
			continue
		}

		id := trimExtension(entry.Name())
		if seen[id] {
			continue
		}

		preset, err := m.LoadPreset(id)
		if err != nil {
			log.Debug().Err(err).Str("file", entry.Name()).Msg("skipping invalid preset")
			continue
		}
		seen[id] = true
		presets = append(presets, newPresetInfo(entry.Name(), id, preset, id == defaultID))
	}

	if !seen[DefaultPresetID] {
		presets = append(presets, newPresetInfo("", DefaultPresetID, engine.ClassicPreset(), defaultID == DefaultPresetID))
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].PresetID < presets[j].PresetID })
	return presets, nil
}

// GetDefault returns the default preset and its id
func (m *Manager) GetDefault() (string, *engine.Preset) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID, m.defaultPreset
}

// SetDefault sets the default preset by id
func (m *Manager) SetDefault(id string) error {
	preset, err := m.LoadPreset(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = trimExtension(id)
	m.defaultPreset = preset
	return nil
}

// RefreshCache drops cached presets and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.presets = make(map[string]*engine.Preset)
	m.mu.Unlock()

	m.loadDefaultPreset()
}

// SavePreset validates a preset and writes it as JSON
func (m *Manager) SavePreset(id string, preset *engine.Preset) error {
	if err := engine.ValidatePreset(preset); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id = trimExtension(id)
	if id == "" || id != filepath.Base(id) {
		return fmt.Errorf("%w: bad preset id '%s'", ErrInvalidConfig, id)
	}

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.configDir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	m.mu.Lock()
	m.presets[id] = preset
	m.mu.Unlock()
	return nil
}

// loadDefaultPreset picks classic from disk, or the built-in classic
func (m *Manager) loadDefaultPreset() {
	preset, err := m.LoadPreset(DefaultPresetID)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to built-in classic preset")
		preset = engine.ClassicPreset()
	}

	m.mu.Lock()
	m.defaultID = DefaultPresetID
	m.defaultPreset = preset
	m.mu.Unlock()
}

func newPresetInfo(filename, id string, p *engine.Preset, isDefault bool) *service.PresetInfo {
	return &service.PresetInfo{
		Filename:     filename,
		PresetID:     id,
		Name:         p.Name,
		Description:  p.Description,
		PitsPerSide:  p.PitsPerSide,
		StonesPerPit: p.StonesPerPit,
		Default:      isDefault,
	}
}

func hasPresetExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func trimExtension(name string) string {
	if hasPresetExtension(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
