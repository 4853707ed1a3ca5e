package games

import "survivor/internal/game"

// activateGolf flips every duel so the lower roll wins.
func activateGolf(g *game.Game) {
	g.ReverseScoring = true
	g.NamePrefix = "Golf "
}

func activateBlitz(g *game.Game) {
	g.Name += " Blitz"
	g.Options["turn_seconds"] = "30"
	g.CanLateJoin = false
}
