package engine

// side is one player's half of the board as built from its configuration
type side struct {
	owner Player
	pits  []*RegularPit
	store *StorePit
}

// buildSide materializes the owner's chain of regular pits followed by the
// owner's store, linked through the owner's own successor relation.
func buildSide(owner Player, sizes []int, storeStones int) *side {
	s := &side{
		owner: owner,
		pits:  make([]*RegularPit, len(sizes)),
		store: NewStorePit(owner, storeStones),
	}
	for i, n := range sizes {
		s.pits[i] = NewRegularPit(owner, n)
	}
	for i := 0; i < len(s.pits)-1; i++ {
		s.pits[i].setNextPit(owner, s.pits[i+1])
	}
	s.pits[len(s.pits)-1].setNextPit(owner, s.store)
	return s
}

// closeRing continues own's lap from its store through the opponent's
// regular pits, skipping the opponent's store, and back to own's first pit.
func closeRing(own, opp *side) {
	own.store.setNextPit(own.owner, opp.pits[0])

	var cur Pit = opp.pits[0]
	for {
		next := cur.NextPit(opp.owner)
		if next == Pit(opp.store) {
			cur.setNextPit(own.owner, own.pits[0])
			return
		}
		cur.setNextPit(own.owner, next)
		cur = next
	}
}

// linkOpposites pairs position i of one side with position n-1-i of the
// other. The first side is stacked in chain order and unwound while walking
// the second side, so the deepest pit meets the first one visited.
func linkOpposites(a, b *side) {
	stack := make([]*RegularPit, 0, len(a.pits))
	var cur Pit = a.pits[0]
	for cur != Pit(a.store) {
		stack = append(stack, cur.(*RegularPit))
		cur = cur.NextPit(a.owner)
	}

	cur = b.pits[0]
	for cur != Pit(b.store) {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		top.SetOppositePit(cur.(*RegularPit))
		cur = cur.NextPit(b.owner)
	}
}

func validateSizes(sizes []int, store int) error {
	if len(sizes) == 0 {
		return ErrNoPits
	}
	if store < 0 {
		return ErrNegativeStones
	}
	for _, n := range sizes {
		if n < 0 {
			return ErrNegativeStones
		}
	}
	return nil
}
