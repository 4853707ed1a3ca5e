package game

import (
	"context"
	"math/rand"
	"time"

	"survivor/internal/domain"
	"survivor/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	DefaultSignupDelay = 5 * time.Minute
	DefaultRerollDelay = 5 * time.Second

	// Unbounded is the PlayerCap of a game without a ceiling.
	Unbounded = -1
)

// Timer is a pending single-shot callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on the same goroutine that mutates game state.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RoomBinder owns the room -> active game binding.
type RoomBinder interface {
	// Unbind clears the room's binding if it still points at g.
	Unbind(room string, g *Game)
}

// Env carries the collaborators a game instance talks to.
type Env struct {
	Context    context.Context
	Chat       ports.ChatPort
	Timers     Scheduler
	Rooms      RoomBinder
	Logger     runtime.Logger
	Parser     domain.RollParser
	Rand       *rand.Rand
	Maintainer string // room receiving mailbreak notices

	SignupDelay time.Duration
	RerollDelay time.Duration
}

// PMRouting says which direct-message commands reach this game.
type PMRouting struct {
	All      bool
	Commands map[string]bool
}

// Accepts reports whether a direct message with the given command name routes here.
func (r PMRouting) Accepts(command string) bool {
	return r.All || r.Commands[command]
}

// Game is one active game bound to one room.
type Game struct {
	ID          string
	Room        string
	Format      string
	VariationID string
	ModeID      string

	Name        string
	NamePrefix  string
	Description string

	Hooks   Hooks
	Players *domain.Roster
	Round   int
	Winners map[string]int

	Started     bool
	Ended       bool
	FreeJoin    bool
	CanLateJoin bool
	CanRejoin   bool
	PlayerCap   int
	MinPlayers  int

	ReverseScoring bool
	PMCommands     PMRouting
	Options        map[string]string

	// State holds format-private data installed by extensions.
	State any

	ParentGame *Game
	ChildGame  *Game

	// CurPlayer and OPlayer are the two sides of the current duel; Roll1 and
	// Roll2 are the dice expressions each side rolls.
	CurPlayer *domain.Player
	OPlayer   *domain.Player
	Roll1     string
	Roll2     string

	env     Env
	log     runtime.Logger
	actions map[string]Action
	owned   bool
	rolls   domain.RollOff
	timer   Timer
}

// New instantiates a game of behavior b bound to room.
func New(room string, b Behavior, env Env) *Game {
	if env.Context == nil {
		env.Context = context.Background()
	}
	if env.Parser == nil {
		env.Parser = domain.InfoboxParser{}
	}
	if env.Rand == nil {
		env.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if env.SignupDelay <= 0 {
		env.SignupDelay = DefaultSignupDelay
	}
	if env.RerollDelay <= 0 {
		env.RerollDelay = DefaultRerollDelay
	}

	g := &Game{
		ID:         uuid.NewString(),
		Room:       room,
		Hooks:      b.Hooks,
		Players:    domain.NewRoster(),
		Winners:    make(map[string]int),
		PlayerCap:  Unbounded,
		MinPlayers: 1,
		env:        env,
		actions:    b.Actions,
	}
	if env.Logger != nil {
		g.log = env.Logger.WithFields(map[string]interface{}{"room": room, "game_id": g.ID})
	}
	return g
}

// Logger returns the game-scoped logger.
func (g *Game) Logger() runtime.Logger {
	return g.log
}

// Rand returns the game's random source.
func (g *Game) Rand() *rand.Rand {
	return g.env.Rand
}

// PlayerCount is the number of player records, eliminated players included.
func (g *Game) PlayerCount() int {
	return g.Players.Len()
}

// HasAction reports whether the named action is reachable on this instance.
func (g *Game) HasAction(name string) bool {
	_, ok := g.actions[name]
	return ok
}

// Invoke runs the named action and reports whether it exists.
func (g *Game) Invoke(name string, cmd Command) bool {
	a, ok := g.actions[name]
	if !ok || a == nil {
		return false
	}
	a(g, cmd)
	return true
}

// SetAction overrides one action on this instance only.
func (g *Game) SetAction(name string, a Action) {
	if !g.owned {
		actions := make(map[string]Action, len(g.actions)+1)
		for k, v := range g.actions {
			actions[k] = v
		}
		g.actions = actions
		g.owned = true
	}
	g.actions[name] = a
}

// Say posts text to the game's room.
func (g *Game) Say(text string) {
	g.sayRoom(g.Room, text)
}

// Whisper sends text privately to a user.
func (g *Game) Whisper(u domain.User, text string) {
	if g.env.Chat == nil {
		return
	}
	if err := g.env.Chat.SayUser(g.env.Context, u.ID, text); err != nil && g.log != nil {
		g.log.Warn("Failed to message user %s: %v", u.ID, err)
	}
}

func (g *Game) sayRoom(room, text string) {
	if g.env.Chat == nil || room == "" {
		return
	}
	if err := g.env.Chat.SayRoom(g.env.Context, room, text); err != nil && g.log != nil {
		g.log.Warn("Failed to post to room %s: %v", room, err)
	}
}

// SetTimer replaces the pending timer with f after d. The callback is
// dropped if the game has ended by the time it fires.
func (g *Game) SetTimer(d time.Duration, f func()) {
	g.CancelTimer()
	if g.env.Timers == nil {
		return
	}
	var t Timer
	t = g.env.Timers.AfterFunc(d, func() {
		if g.timer == t {
			g.timer = nil
		}
		if g.Ended {
			return
		}
		f()
	})
	g.timer = t
}

// CancelTimer stops the pending timer, if any.
func (g *Game) CancelTimer() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

// HasTimer reports whether a timer is pending.
func (g *Game) HasTimer() bool {
	return g.timer != nil
}

// Detach relinquishes the room binding without ending the game.
func (g *Game) Detach() {
	if g.env.Rooms != nil {
		g.env.Rooms.Unbind(g.Room, g)
	}
}
