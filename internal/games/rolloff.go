package games

import (
	"fmt"

	"survivor/internal/domain"
	"survivor/internal/game"
)

const defaultDice = "100"

func dice(g *game.Game) string {
	if d := g.Options["dice"]; d != "" {
		return d
	}
	return defaultDice
}

// installRollOff pairs two random players every round; the duel loser is out.
func installRollOff(b game.Behavior) game.Behavior {
	b.OnStart = func(g *game.Game) {
		g.NextRound()
	}
	b.OnNextRound = func(g *game.Game) {
		players := g.Players.RandomOrdering(g.Rand())
		a, o := players[0], players[1]
		g.Say(fmt.Sprintf("**Round %d**: %s vs. %s", g.Round, a.Name, o.Name))
		g.SetDuel(a, o, dice(g), dice(g))
		g.SayPlayerRolls()
	}
	b.OnWinner = func(g *game.Game, winner, loser *domain.Player) {
		eliminate(g, winner, loser)
		g.NextRound()
	}
	return b
}

func eliminate(g *game.Game, winner, loser *domain.Player) {
	if winner == nil || loser == nil {
		return
	}
	loser.Eliminated = true
	g.Winners[winner.ID]++
	g.Say(fmt.Sprintf("**%s** beat **%s**!", winner.Name, loser.Name))
}
