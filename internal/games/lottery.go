package games

import (
	"strings"

	"survivor/internal/domain"
	"survivor/internal/game"
)

func lotteryBehavior() game.Behavior {
	b := game.Base().With("draw", func(g *game.Game, cmd game.Command) {
		var entrants []string
		for _, e := range strings.Split(cmd.Target, ",") {
			if e = strings.TrimSpace(e); e != "" {
				entrants = append(entrants, e)
			}
		}
		if len(entrants) < 2 {
			g.Whisper(cmd.User, "List at least two entrants, separated by commas.")
			return
		}
		g.Say("!pick " + strings.Join(entrants, ", "))
	})
	b.OnPick = func(g *game.Game, pick string) {
		g.Winners[domain.ToID(pick)]++
		g.Say("**The lottery winner is " + pick + "!**")
		g.End()
	}
	return b
}
