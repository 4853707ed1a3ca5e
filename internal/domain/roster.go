package domain

import (
	"math/rand"
	"strings"
)

// Roster is the player mapping of one game, keyed by identity.
// Insertion order is kept so listings and orderings are reproducible.
type Roster struct {
	byID  map[string]*Player
	order []string
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{byID: make(map[string]*Player)}
}

// Len counts every record, eliminated players included.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byID)
}

func (r *Roster) Get(id string) (*Player, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byID[id]
	return p, ok
}

// Add registers a player; an existing record with the same id is replaced in place.
func (r *Roster) Add(p *Player) {
	if _, ok := r.byID[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.byID[p.ID] = p
}

// Remove deletes a record and reports whether it existed.
func (r *Roster) Remove(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Rekey moves the record stored under oldID to newID, keeping its join position.
// It fails when oldID is absent or newID is already taken.
func (r *Roster) Rekey(oldID, newID string) bool {
	p, ok := r.byID[oldID]
	if !ok {
		return false
	}
	if _, taken := r.byID[newID]; taken {
		return false
	}
	delete(r.byID, oldID)
	p.ID = newID
	r.byID[newID] = p
	for i, v := range r.order {
		if v == oldID {
			r.order[i] = newID
			break
		}
	}
	return true
}

// All returns every record in join order.
func (r *Roster) All() []*Player {
	if r == nil {
		return nil
	}
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Remaining returns the players that are not eliminated, in join order.
func (r *Roster) Remaining() []*Player {
	var out []*Player
	for _, p := range r.All() {
		if !p.Eliminated {
			out = append(out, p)
		}
	}
	return out
}

func (r *Roster) RemainingCount() int {
	return len(r.Remaining())
}

// Last returns the sole remaining player, or nil when zero or several remain.
func (r *Roster) Last() *Player {
	remaining := r.Remaining()
	if len(remaining) != 1 {
		return nil
	}
	return remaining[0]
}

// RandomOrdering returns the remaining players in a random order.
func (r *Roster) RandomOrdering(rng *rand.Rand) []*Player {
	players := r.Remaining()
	rng.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})
	return players
}

// Shuffle permutes the join order itself.
func (r *Roster) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(r.order), func(i, j int) {
		r.order[i], r.order[j] = r.order[j], r.order[i]
	})
}

// Names joins the display names of players with ", ".
func Names(players []*Player) string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
