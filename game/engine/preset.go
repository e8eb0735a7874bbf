package engine

import "fmt"

// Preset limits
const (
	MinPitsPerSide  = 1
	MaxPitsPerSide  = 12
	MaxStonesPerPit = 24
)

// Preset describes an opening position loaded from a configuration file
type Preset struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	PitsPerSide  int    `json:"pits_per_side" yaml:"pits_per_side"`
	StonesPerPit int    `json:"stones_per_pit" yaml:"stones_per_pit"`
	StoreStones  int    `json:"store_stones" yaml:"store_stones"`

	// Optional explicit layouts; they override StonesPerPit/StoreStones
	Player1Pits  []int `json:"player1_pits,omitempty" yaml:"player1_pits,omitempty"`
	Player2Pits  []int `json:"player2_pits,omitempty" yaml:"player2_pits,omitempty"`
	Player1Store *int  `json:"player1_store,omitempty" yaml:"player1_store,omitempty"`
	Player2Store *int  `json:"player2_store,omitempty" yaml:"player2_store,omitempty"`
}

// ClassicPreset is the standard six pits of six stones
func ClassicPreset() *Preset {
	return &Preset{
		Name:         "classic",
		Description:  "Standard Kalah: six pits of six stones per side",
		PitsPerSide:  DefaultPitsPerSide,
		StonesPerPit: DefaultStonesPerPit,
	}
}

// ValidatePreset checks that a preset describes a playable board
func ValidatePreset(p *Preset) error {
	if p == nil {
		return fmt.Errorf("preset validation: preset is nil")
	}
	if p.Name == "" {
		return fmt.Errorf("preset validation: name is required")
	}
	if p.PitsPerSide < MinPitsPerSide || p.PitsPerSide > MaxPitsPerSide {
		return fmt.Errorf("preset validation: pits_per_side must be between %d and %d, got %d",
			MinPitsPerSide, MaxPitsPerSide, p.PitsPerSide)
	}
	if p.StonesPerPit < 0 || p.StonesPerPit > MaxStonesPerPit {
		return fmt.Errorf("preset validation: stones_per_pit must be between 0 and %d, got %d",
			MaxStonesPerPit, p.StonesPerPit)
	}
	if p.StoreStones < 0 {
		return fmt.Errorf("preset validation: store_stones cannot be negative, got %d", p.StoreStones)
	}

	for label, pits := range map[string][]int{"player1_pits": p.Player1Pits, "player2_pits": p.Player2Pits} {
		if pits == nil {
			continue
		}
		if len(pits) != p.PitsPerSide {
			return fmt.Errorf("preset validation: %s must have %d entries, got %d", label, p.PitsPerSide, len(pits))
		}
		for i, n := range pits {
			if n < 0 || n > MaxStonesPerPit {
				return fmt.Errorf("preset validation: %s[%d] must be between 0 and %d, got %d", label, i, MaxStonesPerPit, n)
			}
		}
	}
	for label, store := range map[string]*int{"player1_store": p.Player1Store, "player2_store": p.Player2Store} {
		if store != nil && *store < 0 {
			return fmt.Errorf("preset validation: %s cannot be negative, got %d", label, *store)
		}
	}

	sizes1, _, sizes2, _ := p.Layout()
	if sum(sizes1) == 0 || sum(sizes2) == 0 {
		return fmt.Errorf("preset validation: both sides need at least one stone")
	}
	return nil
}

// Layout expands the preset into the arguments of Board.Init
func (p *Preset) Layout() (sizes1 []int, store1 int, sizes2 []int, store2 int) {
	uniform := func() []int {
		s := make([]int, p.PitsPerSide)
		for i := range s {
			s[i] = p.StonesPerPit
		}
		return s
	}

	sizes1, sizes2 = uniform(), uniform()
	if p.Player1Pits != nil {
		sizes1 = append([]int(nil), p.Player1Pits...)
	}
	if p.Player2Pits != nil {
		sizes2 = append([]int(nil), p.Player2Pits...)
	}

	store1, store2 = p.StoreStones, p.StoreStones
	if p.Player1Store != nil {
		store1 = *p.Player1Store
	}
	if p.Player2Store != nil {
		store2 = *p.Player2Store
	}
	return sizes1, store1, sizes2, store2
}

// InitPreset initializes the board from a validated preset
func (b *Board) InitPreset(p *Preset) error {
	if err := ValidatePreset(p); err != nil {
		return err
	}
	return b.Init(p.Layout())
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
