package main

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Strategy picks a pit index from the bot's own pits
type Strategy interface {
	Choose(pits []int) (int, error)
}

func NewStrategy(name string, seed uint64) (Strategy, error) {
	rng := rand.New(rand.NewSource(seed))
	switch name {
	case "random":
		return &randomStrategy{rng: rng}, nil
	case "greedy":
		return &greedyStrategy{fallback: &randomStrategy{rng: rng}}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want random or greedy)", name)
	}
}

func legalPits(pits []int) []int {
	var legal []int
	for i, stones := range pits {
		if stones > 0 {
			legal = append(legal, i)
		}
	}
	return legal
}

type randomStrategy struct {
	rng *rand.Rand
}

func (s *randomStrategy) Choose(pits []int) (int, error) {
	legal := legalPits(pits)
	if len(legal) == 0 {
		return 0, fmt.Errorf("no legal move")
	}
	return legal[s.rng.Intn(len(legal))], nil
}

// greedyStrategy takes an extra turn when one is available, preferring the
// pit closest to the store, and otherwise plays randomly.
type greedyStrategy struct {
	fallback Strategy
}

func (s *greedyStrategy) Choose(pits []int) (int, error) {
	n := len(pits)
	// own pits plus own store plus opponent pits
	lap := 2*n + 1
	for i := n - 1; i >= 0; i-- {
		if pits[i] > 0 && pits[i]%lap == n-i {
			return i, nil
		}
	}
	return s.fallback.Choose(pits)
}
