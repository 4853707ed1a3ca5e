package games

import (
	"fmt"
	"strconv"
	"time"

	"survivor/internal/domain"
	"survivor/internal/game"
)

type survivorRound struct {
	order []*domain.Player
	turn  int
}

func turnTime(g *game.Game) time.Duration {
	if n, err := strconv.Atoi(g.Options["turn_seconds"]); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 90 * time.Second
}

// installSurvivor gives every remaining player one attack per round.
func installSurvivor(b game.Behavior) game.Behavior {
	b.OnNextRound = func(g *game.Game) {
		round := &survivorRound{order: g.Players.RandomOrdering(g.Rand())}
		g.State = round
		g.Say(fmt.Sprintf("**Round %d!** Order: %s", g.Round, domain.Names(round.order)))
		nextTurn(g)
	}
	b.OnWinner = func(g *game.Game, winner, loser *domain.Player) {
		if winner == nil || loser == nil {
			return
		}
		eliminate(g, winner, loser)
		if round, ok := g.State.(*survivorRound); ok {
			round.turn++
		}
		nextTurn(g)
	}
	b = b.With("destroy", destroy)
	return b
}

func nextTurn(g *game.Game) {
	g.CurPlayer, g.OPlayer = nil, nil
	if g.Players.RemainingCount() < 2 {
		g.End()
		return
	}
	round, ok := g.State.(*survivorRound)
	if !ok {
		return
	}
	for round.turn < len(round.order) && round.order[round.turn].Eliminated {
		round.turn++
	}
	if round.turn >= len(round.order) {
		g.NextRound()
		return
	}

	cur := round.order[round.turn]
	g.CurPlayer = cur
	g.Say(fmt.Sprintf("**%s**, you're up! Choose a player to attack with ``.destroy [player]``.", cur.Name))
	g.SetTimer(turnTime(g), func() {
		g.Say(fmt.Sprintf("**%s** did not attack in time and was eliminated!", cur.Name))
		cur.Eliminated = true
		round.turn++
		nextTurn(g)
	})
}

func destroy(g *game.Game, cmd game.Command) {
	cur := g.CurPlayer
	if !g.Started || cur == nil || g.OPlayer != nil || cmd.User.ID != cur.ID {
		return
	}
	target, ok := g.Players.Get(domain.ToID(cmd.Target))
	if !ok || target.Eliminated || target.ID == cur.ID {
		g.Whisper(cmd.User, "You cannot attack that player.")
		return
	}
	g.CancelTimer()
	g.Say(fmt.Sprintf("**%s** attacks **%s**!", cur.Name, target.Name))
	g.SetDuel(cur, target, dice(g), dice(g))
	g.SayPlayerRolls()
}
