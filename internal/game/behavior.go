package game

import (
	"time"

	"survivor/internal/domain"
)

// Command is one dispatched chat command as seen by a game action.
type Command struct {
	Name   string
	Target string
	User   domain.User
	Time   time.Time
}

// Action is a command-reachable hook on a game instance.
type Action func(g *Game, cmd Command)

// Hooks are the optional per-format lifecycle callbacks. A nil field means
// the step has no customization.
type Hooks struct {
	OnSignups   func(g *Game)
	OnStart     func(g *Game)
	OnNextRound func(g *Game)
	OnEnd       func(g *Game)
	OnJoin      func(g *Game, u domain.User)
	OnLeave     func(g *Game, u domain.User)
	OnRename    func(g *Game, u domain.User)

	// OnWinner receives the outcome of a head-to-head roll.
	OnWinner func(g *Game, winner, loser *domain.Player)
	// OnPick receives the text of a random pick.
	OnPick func(g *Game, pick string)
	// OnRolls receives the values of a multi-dice roll.
	OnRolls func(g *Game, rolls []int)
	// OnRoll replaces the built-in head-to-head primitive when set.
	OnRoll func(g *Game, roll int)
}

// Overlay returns h with every non-nil field of o applied on top.
func (h Hooks) Overlay(o Hooks) Hooks {
	if o.OnSignups != nil {
		h.OnSignups = o.OnSignups
	}
	if o.OnStart != nil {
		h.OnStart = o.OnStart
	}
	if o.OnNextRound != nil {
		h.OnNextRound = o.OnNextRound
	}
	if o.OnEnd != nil {
		h.OnEnd = o.OnEnd
	}
	if o.OnJoin != nil {
		h.OnJoin = o.OnJoin
	}
	if o.OnLeave != nil {
		h.OnLeave = o.OnLeave
	}
	if o.OnRename != nil {
		h.OnRename = o.OnRename
	}
	if o.OnWinner != nil {
		h.OnWinner = o.OnWinner
	}
	if o.OnPick != nil {
		h.OnPick = o.OnPick
	}
	if o.OnRolls != nil {
		h.OnRolls = o.OnRolls
	}
	if o.OnRoll != nil {
		h.OnRoll = o.OnRoll
	}
	return h
}

// Behavior is the function table of a resolved format: its lifecycle hooks
// plus the named actions commands can reach.
type Behavior struct {
	Hooks
	Actions map[string]Action
}

// Clone copies the action table so the result can be extended without
// touching the receiver.
func (b Behavior) Clone() Behavior {
	actions := make(map[string]Action, len(b.Actions))
	for k, v := range b.Actions {
		actions[k] = v
	}
	b.Actions = actions
	return b
}

// With returns a copy of b with the named action set.
func (b Behavior) With(name string, a Action) Behavior {
	b = b.Clone()
	b.Actions[name] = a
	return b
}

// Extension decorates a behavior set with format-specific logic.
type Extension func(Behavior) Behavior

// Compose folds exts over base left to right. Each extension sees a private
// copy, so base and intermediate results stay untouched.
func Compose(base Behavior, exts ...Extension) Behavior {
	b := base.Clone()
	for _, ext := range exts {
		if ext == nil {
			continue
		}
		b = ext(b.Clone())
	}
	return b
}

// Action names of the generic behavior set.
const (
	ActionSignups   = "signups"
	ActionJoin      = "join"
	ActionLeave     = "leave"
	ActionStart     = "start"
	ActionAutostart = "autostart"
	ActionCap       = "cap"
	ActionPL        = "pl"
	ActionNextRound = "nextround"
	ActionEnd       = "end"
	ActionForceEnd  = "forceend"
	ActionMailbreak = "mailbreak"
)

// Base returns the generic game behavior set every composition starts from.
func Base() Behavior {
	return Behavior{Actions: map[string]Action{
		ActionSignups:   func(g *Game, _ Command) { g.Signups() },
		ActionJoin:      func(g *Game, c Command) { g.Join(c.User) },
		ActionLeave:     func(g *Game, c Command) { g.Leave(c.User) },
		ActionStart:     func(g *Game, _ Command) { g.Start() },
		ActionAutostart: func(g *Game, c Command) { g.Autostart(c.Target) },
		ActionCap:       func(g *Game, c Command) { g.Cap(c.Target) },
		ActionPL:        func(g *Game, _ Command) { g.PL() },
		ActionNextRound: func(g *Game, _ Command) { g.NextRound() },
		ActionEnd:       func(g *Game, _ Command) { g.End() },
		ActionForceEnd:  func(g *Game, _ Command) { g.ForceEnd() },
		ActionMailbreak: func(g *Game, _ Command) { g.Mailbreak() },
	}}
}
