package domain

// Outcome is the result of feeding a value into a RollOff.
type Outcome int

const (
	// Pending means only slot A is filled.
	Pending Outcome = iota
	// Tie means both slots held the same value; the duel must be rerolled.
	Tie
	// AWins means the first roller won.
	AWins
	// BWins means the second roller won.
	BWins
)

func (o Outcome) String() string {
	switch o {
	case Tie:
		return "tie"
	case AWins:
		return "a_wins"
	case BWins:
		return "b_wins"
	default:
		return "pending"
	}
}

// RollOff resolves a head-to-head duel from two externally rolled values.
// Higher wins unless Reversed is set.
type RollOff struct {
	Reversed bool

	a, b       int
	hasA, hasB bool
}

// Add stores v in the next free slot. Once both slots are filled they are
// compared and cleared, so the accumulator is ready for the next duel.
func (r *RollOff) Add(v int) Outcome {
	if !r.hasA {
		r.a, r.hasA = v, true
		return Pending
	}
	r.b, r.hasB = v, true
	a, b := r.a, r.b
	r.Reset()

	switch {
	case a == b:
		return Tie
	case (a > b) != r.Reversed:
		return AWins
	default:
		return BWins
	}
}

// Reset clears both slots.
func (r *RollOff) Reset() {
	r.a, r.b = 0, 0
	r.hasA, r.hasB = false, false
}

// Slots exposes the stored values and whether each slot is filled.
func (r *RollOff) Slots() (a int, hasA bool, b int, hasB bool) {
	return r.a, r.hasA, r.b, r.hasB
}
