package game

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"survivor/internal/domain"
)

// Phase is the derived lifecycle stage of a game.
type Phase string

const (
	PhaseSignups Phase = "signups"
	PhaseStarted Phase = "started"
	PhaseEnded   Phase = "ended"
)

func (g *Game) Phase() Phase {
	switch {
	case g.Ended:
		return PhaseEnded
	case g.Started:
		return PhaseStarted
	default:
		return PhaseSignups
	}
}

// Signups opens the game for joining and arms the automatic start.
func (g *Game) Signups() {
	g.Say("survgame! If you would like to play, use the command ``/me in``")
	if g.Description != "" {
		g.Say("**" + g.NamePrefix + g.Name + "**: " + strings.TrimSpace(g.Description))
	}
	if g.Hooks.OnSignups != nil {
		g.Hooks.OnSignups(g)
	}
	if g.FreeJoin {
		g.Started = true
		return
	}
	g.SetTimer(g.env.SignupDelay, g.Start)
}

// Start moves the game into play once. It needs MinPlayers players.
func (g *Game) Start() {
	if g.Started {
		return
	}
	if g.PlayerCount() < g.MinPlayers {
		g.Say(fmt.Sprintf("The game needs at least %s to start!", domain.Plural(g.MinPlayers, "player")))
		return
	}
	g.CancelTimer()
	g.Started = true
	if g.log != nil {
		g.log.Info("Game %s started with %d players", g.Name, g.PlayerCount())
	}
	if g.Hooks.OnStart != nil {
		g.Hooks.OnStart(g)
	}
}

// parseCount floors a user-typed number the way the chat commands expect.
func parseCount(target string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(target), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Floor(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Autostart schedules Start. Values below 10 are minutes (only 1 and 2 are
// accepted), values from 10 to 120 are seconds.
func (g *Game) Autostart(target string) {
	x, ok := parseCount(target)
	if !ok || x <= 0 || x > 120 || (x > 2 && x < 10) {
		return
	}
	if x < 10 {
		x *= 60
	}
	g.Say("The game will automatically start in " + domain.Countdown(x) + ".")
	g.SetTimer(time.Duration(x)*time.Second, g.Start)
}

// Cap sets the player ceiling; reaching it starts the game.
func (g *Game) Cap(target string) {
	x, ok := parseCount(target)
	if !ok || x < 2 {
		return
	}
	g.PlayerCap = x
	if g.PlayerCount() >= x {
		g.Start()
		return
	}
	g.Say(fmt.Sprintf("The game will automatically start with %d players!", x))
}

// Join registers u, or restores an eliminated player when rejoining is allowed.
func (g *Game) Join(u domain.User) {
	if g.Started && !g.CanLateJoin {
		return
	}
	existing, joined := g.Players.Get(u.ID)
	if joined && !g.CanRejoin {
		return
	}
	if g.FreeJoin {
		g.Whisper(u, "This game does not require you to join!")
		return
	}
	if joined {
		if !existing.Eliminated {
			return
		}
		existing.Eliminated = false
		g.Whisper(u, "You have rejoined the game of "+g.Name+"!")
	} else {
		g.AddPlayer(u)
		if !g.Started {
			g.Whisper(u, "You have joined the game of "+g.Name+"!")
		}
	}
	if g.Hooks.OnJoin != nil {
		g.Hooks.OnJoin(g, u)
	}
}

// AddPlayer adds a new record for u and starts the game when the cap is hit.
func (g *Game) AddPlayer(u domain.User) *domain.Player {
	if p, ok := g.Players.Get(u.ID); ok {
		return p
	}
	p := domain.NewPlayer(u)
	g.Players.Add(p)
	if g.PlayerCount() == g.PlayerCap {
		g.Start()
	}
	return p
}

// RemovePlayer drops u before the start and eliminates u afterwards.
func (g *Game) RemovePlayer(u domain.User) {
	p, ok := g.Players.Get(u.ID)
	if !ok || p.Eliminated {
		return
	}
	if g.Started {
		p.Eliminated = true
		return
	}
	g.Players.Remove(u.ID)
}

// Leave withdraws u from the game.
func (g *Game) Leave(u domain.User) {
	p, ok := g.Players.Get(u.ID)
	if !ok || p.Eliminated {
		return
	}
	g.RemovePlayer(u)
	g.Whisper(u, "You have left the game of "+g.Name+"!")
	if g.Hooks.OnLeave != nil {
		g.Hooks.OnLeave(g, u)
	}
}

// RenamePlayer follows a user who changed name from oldName to u.Name.
func (g *Game) RenamePlayer(u domain.User, oldName string) {
	oldID := domain.ToID(oldName)
	p, ok := g.Players.Get(oldID)
	if !ok {
		return
	}
	if oldID == u.ID {
		p.Name = u.Name
		return
	}
	if !g.Players.Rekey(oldID, u.ID) {
		return
	}
	p.Name = u.Name
	if g.Hooks.OnRename != nil {
		g.Hooks.OnRename(g, u)
	}
}

// NextRound advances the round counter, ending the game when fewer than two
// players remain.
func (g *Game) NextRound() {
	g.CancelTimer()
	g.Round++
	if g.Players.RemainingCount() < 2 {
		g.End()
		return
	}
	if g.Hooks.OnNextRound != nil {
		g.Hooks.OnNextRound(g)
	}
}

// End finishes the game, announcing the winner when exactly one player remains.
// Calling it again is a no-op.
func (g *Game) End() {
	if g.Ended {
		return
	}
	if last := g.Players.Last(); last != nil {
		g.Say("**Winner:** " + last.Name)
	}
	g.CancelTimer()
	if g.Hooks.OnEnd != nil {
		g.Hooks.OnEnd(g)
	}
	g.Ended = true
	g.Detach()
	if g.log != nil {
		g.log.Info("Game %s ended after %d rounds", g.Name, g.Round)
	}
}

// ForceEnd terminates the game without a winner announcement.
func (g *Game) ForceEnd() {
	if g.Ended {
		return
	}
	g.CancelTimer()
	g.Say("The game was forcibly ended.")
	g.Ended = true
	g.Detach()
	if g.log != nil {
		g.log.Info("Game %s was forcibly ended", g.Name)
	}
}

// Mailbreak reports a broken game to the maintainers.
func (g *Game) Mailbreak() {
	g.sayRoom(g.env.Maintainer, fmt.Sprintf("A game of %s broke in progress in %s!", g.Name, g.Room))
	if g.log != nil {
		g.log.Warn("Game %s reported broken", g.Name)
	}
}

// PL lists the remaining players.
func (g *Game) PL() {
	remaining := g.Players.Remaining()
	g.Say(fmt.Sprintf("**Players (%d)**: %s", len(remaining), domain.Names(remaining)))
}
