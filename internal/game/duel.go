package game

import (
	"survivor/internal/domain"
)

// SetDuel arms a head-to-head roll between cur and opp, who roll roll1 and
// roll2 respectively.
func (g *Game) SetDuel(cur, opp *domain.Player, roll1, roll2 string) {
	g.CurPlayer, g.OPlayer = cur, opp
	g.Roll1, g.Roll2 = roll1, roll2
	g.rolls.Reset()
}

// SayPlayerRolls clears the duel slots and asks the dice bot for both rolls.
func (g *Game) SayPlayerRolls() {
	g.rolls.Reset()
	if g.Roll1 != "" {
		g.Say("!roll " + g.Roll1)
	}
	if g.Roll2 != "" {
		g.Say("!roll " + g.Roll2)
	}
}

// HandleRoll feeds one rolled value into the duel. The first value belongs to
// CurPlayer and the second to OPlayer. Values arriving while no duel is armed
// are dropped.
func (g *Game) HandleRoll(roll int) {
	if g.Hooks.OnRoll != nil {
		g.Hooks.OnRoll(g, roll)
		return
	}
	if g.CurPlayer == nil || g.OPlayer == nil {
		return
	}
	g.rolls.Reversed = g.ReverseScoring
	switch g.rolls.Add(roll) {
	case domain.Pending:
		return
	case domain.Tie:
		g.Say("The rolls were the same. Rerolling...")
		g.SetTimer(g.env.RerollDelay, g.SayPlayerRolls)
	case domain.AWins:
		g.dispatchWinner(g.CurPlayer, g.OPlayer)
	case domain.BWins:
		g.dispatchWinner(g.OPlayer, g.CurPlayer)
	}
}

func (g *Game) dispatchWinner(winner, loser *domain.Player) {
	if g.Hooks.OnWinner != nil {
		g.Hooks.OnWinner(g, winner, loser)
	}
}

// HandleRollMessage routes a parsed dice result to the matching handler.
func (g *Game) HandleRollMessage(msg domain.RollMessage) {
	if !g.Started || g.Ended {
		return
	}
	switch msg.Kind {
	case domain.RollSingle:
		g.HandleRoll(msg.Value)
	case domain.RollPick:
		if g.Hooks.OnPick != nil {
			g.Hooks.OnPick(g, msg.Pick)
		}
	case domain.RollMulti:
		if g.Hooks.OnRolls != nil {
			g.Hooks.OnRolls(g, msg.Values)
		}
	}
}

// HandleHTML parses a rendered dice result posted in the room.
// It returns the parse error, if any, so the caller can log it.
func (g *Game) HandleHTML(html string) error {
	if !g.Started {
		return nil
	}
	msg, err := g.env.Parser.Parse(html)
	if err != nil {
		return err
	}
	g.HandleRollMessage(msg)
	return nil
}
