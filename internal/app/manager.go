package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"survivor/internal/app/hosting"
	"survivor/internal/domain"
	"survivor/internal/format"
	"survivor/internal/game"
	"survivor/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrGameInProgress  = errors.New("room already has an active game")
	ErrParentNotActive = errors.New("parent game is not the room's active game")
	ErrNoGame          = errors.New("room has no active game")
)

// Deps are the collaborators a Manager is wired with at startup.
type Deps struct {
	Registry  *format.Registry
	Chat      ports.ChatPort
	Directory ports.RoomDirectory
	Timers    game.Scheduler
	Hosts     *hosting.Service
	Logger    runtime.Logger
	Parser    domain.RollParser
}

// Settings tune the games a Manager creates.
type Settings struct {
	SignupDelay time.Duration
	RerollDelay time.Duration
	Maintainer  string
	Rand        *rand.Rand
}

// Message is one parsed chat command. An empty Room means a direct message.
type Message struct {
	Room    string
	User    domain.User
	Command string
	Target  string
	Time    time.Time
}

// Manager is the process-wide host context: it owns the room bindings,
// creates games and routes commands to them. It is not safe for concurrent
// use; every call must come from the event loop.
type Manager struct {
	ctx      context.Context
	deps     Deps
	settings Settings

	rooms       map[string]*game.Game
	behaviors   map[string]game.Behavior
	stopwatches map[string]game.Timer
}

// NewManager constructs a Manager. ctx is handed to chat and store calls.
func NewManager(ctx context.Context, deps Deps, settings Settings) *Manager {
	if ctx == nil {
		ctx = context.Background()
	}
	if settings.Rand == nil {
		settings.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{
		ctx:         ctx,
		deps:        deps,
		settings:    settings,
		rooms:       make(map[string]*game.Game),
		behaviors:   make(map[string]game.Behavior),
		stopwatches: make(map[string]game.Timer),
	}
}

// Registry returns the frozen format registry.
func (m *Manager) Registry() *format.Registry {
	return m.deps.Registry
}

// Game returns the active game bound to room.
func (m *Manager) Game(room string) (*game.Game, bool) {
	g, ok := m.rooms[room]
	return g, ok
}

// Rooms lists the rooms with an active game, sorted.
func (m *Manager) Rooms() []string {
	rooms := make([]string, 0, len(m.rooms))
	for room := range m.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Unbind clears the room binding if it still points at g.
func (m *Manager) Unbind(room string, g *game.Game) {
	if m.rooms[room] == g {
		delete(m.rooms, room)
	}
}

// CreateGame resolves spec and binds a new game of that format to room.
// The room is untouched on failure.
func (m *Manager) CreateGame(spec, room string) (*game.Game, error) {
	if g, ok := m.rooms[room]; ok {
		m.say(room, "A game of "+g.Name+" is already in progress.")
		return nil, fmt.Errorf("%w: %s", ErrGameInProgress, room)
	}
	f, err := m.deps.Registry.Lookup(spec)
	if err != nil {
		return nil, err
	}
	return m.CreateFromFormat(f, room)
}

// CreateFromFormat binds a new game of an already resolved format to room.
func (m *Manager) CreateFromFormat(f *format.Format, room string) (*game.Game, error) {
	if g, ok := m.rooms[room]; ok {
		m.say(room, "A game of "+g.Name+" is already in progress.")
		return nil, fmt.Errorf("%w: %s", ErrGameInProgress, room)
	}
	b, err := m.behaviorFor(f)
	if err != nil {
		return nil, err
	}

	g := game.New(room, b, m.env())
	applyFormat(g, f)
	if f.ModeID != "" {
		mode, ok := m.deps.Registry.Mode(f.ModeID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", format.ErrUnknownMode, f.ModeID)
		}
		if mode.Activate != nil {
			mode.Activate(g)
		}
	}

	m.rooms[room] = g
	if m.deps.Logger != nil {
		m.deps.Logger.WithFields(map[string]interface{}{
			"room":    room,
			"format":  f.String(),
			"game_id": g.ID,
		}).Info("Created game %s", g.Name)
	}
	return g, nil
}

// OpenGame creates a game in room and opens its signups on behalf of host.
func (m *Manager) OpenGame(spec, room string, host domain.User) (*game.Game, error) {
	g, err := m.CreateGame(spec, room)
	if err != nil {
		return nil, err
	}
	cmd := game.Command{Name: game.ActionSignups, User: host, Time: time.Now()}
	if !g.Invoke(game.ActionSignups, cmd) {
		g.Signups()
	}
	return g, nil
}

// CreateChildGame replaces parent in its room with a new game of spec that
// takes over the parent's roster. On failure the parent keeps the room.
func (m *Manager) CreateChildGame(spec string, parent *game.Game) (*game.Game, error) {
	if parent == nil || parent.Ended || m.rooms[parent.Room] != parent {
		return nil, ErrParentNotActive
	}
	room := parent.Room
	delete(m.rooms, room)

	child, err := m.CreateGame(spec, room)
	if err != nil {
		m.rooms[room] = parent
		return nil, err
	}
	parent.CancelTimer()
	child.Players = parent.Players
	parent.Players = nil
	child.ParentGame = parent
	parent.ChildGame = child
	return child, nil
}

// behaviorFor composes the behavior set of f. Results are cached per format
// id since the ancestor chain of an id never changes after load.
func (m *Manager) behaviorFor(f *format.Format) (game.Behavior, error) {
	if b, ok := m.behaviors[f.ID]; ok {
		return b, nil
	}

	var b game.Behavior
	switch {
	case f.Inherits != "":
		chain, err := m.deps.Registry.Chain(f.ID)
		if err != nil {
			return game.Behavior{}, err
		}
		exts := make([]game.Extension, 0, len(chain))
		for _, ancestor := range chain {
			exts = append(exts, ancestor.Install)
		}
		b = game.Compose(game.Base(), exts...)
	case f.Install != nil:
		b = game.Compose(game.Base(), f.Install)
	case f.Behavior != nil:
		b = f.Behavior.Clone()
	default:
		b = game.Base()
	}
	m.behaviors[f.ID] = b
	return b, nil
}

// applyFormat copies the resolved format's declared fields onto g.
func applyFormat(g *game.Game, f *format.Format) {
	g.Format = f.ID
	g.VariationID = f.VariationID
	g.ModeID = f.ModeID
	g.Name = f.Name
	g.Description = f.Description

	s := f.Settings
	if s.FreeJoin != nil {
		g.FreeJoin = *s.FreeJoin
	}
	if s.CanLateJoin != nil {
		g.CanLateJoin = *s.CanLateJoin
	}
	if s.CanRejoin != nil {
		g.CanRejoin = *s.CanRejoin
	}
	if s.PlayerCap != nil {
		g.PlayerCap = *s.PlayerCap
	}
	if s.MinPlayers != nil {
		g.MinPlayers = *s.MinPlayers
	}
	if s.ReverseScoring != nil {
		g.ReverseScoring = *s.ReverseScoring
	}
	for _, c := range s.PMCommands {
		if c == "*" {
			g.PMCommands.All = true
			continue
		}
		if g.PMCommands.Commands == nil {
			g.PMCommands.Commands = make(map[string]bool)
		}
		g.PMCommands.Commands[domain.ToID(c)] = true
	}
	g.Options = make(map[string]string, len(s.Options))
	for k, v := range s.Options {
		g.Options[k] = v
	}
	g.Hooks = g.Hooks.Overlay(f.Overrides)
}

func (m *Manager) env() game.Env {
	return game.Env{
		Context:     m.ctx,
		Chat:        m.deps.Chat,
		Timers:      m.deps.Timers,
		Rooms:       m,
		Logger:      m.deps.Logger,
		Parser:      m.deps.Parser,
		Rand:        m.settings.Rand,
		Maintainer:  m.settings.Maintainer,
		SignupDelay: m.settings.SignupDelay,
		RerollDelay: m.settings.RerollDelay,
	}
}

// Dispatch routes one chat command. Host commands are handled here; game
// commands go to the room's game, or for a direct message, to every game
// the user takes part in that accepts that command privately. It reports
// whether anything handled the command.
func (m *Manager) Dispatch(ctx context.Context, msg Message) bool {
	name := domain.ToID(msg.Command)
	if name == "" {
		return false
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now()
	}
	if m.deps.Registry.Reserved(name) {
		return m.hostCommand(ctx, name, msg)
	}

	command, hook, ok := m.deps.Registry.Command(name)
	if !ok {
		return false
	}
	cmd := game.Command{Name: command, Target: msg.Target, User: msg.User, Time: msg.Time}

	if msg.Room != "" {
		g, ok := m.rooms[msg.Room]
		if !ok {
			return false
		}
		return g.Invoke(hook, cmd)
	}

	handled := false
	for _, room := range m.Rooms() {
		g, ok := m.rooms[room]
		if !ok || !g.PMCommands.Accepts(command) || !g.HasAction(hook) {
			continue
		}
		if !m.participates(ctx, g, msg.User) {
			continue
		}
		if g.Invoke(hook, cmd) {
			handled = true
		}
	}
	return handled
}

func (m *Manager) participates(ctx context.Context, g *game.Game, u domain.User) bool {
	if m.deps.Directory == nil {
		_, ok := g.Players.Get(u.ID)
		return ok
	}
	ok, err := m.deps.Directory.Participates(ctx, g.Room, u.ID)
	if err != nil {
		if m.deps.Logger != nil {
			m.deps.Logger.Warn("Failed to check membership of %s in %s: %v", u.ID, g.Room, err)
		}
		return false
	}
	return ok
}

// HandleHTML feeds a rendered dice result posted in room to its game.
func (m *Manager) HandleHTML(room, html string) error {
	g, ok := m.rooms[room]
	if !ok {
		return nil
	}
	return g.HandleHTML(html)
}

// HandleRollEvent delivers a structured dice result to the game in room.
func (m *Manager) HandleRollEvent(room string, msg domain.RollMessage) error {
	g, ok := m.rooms[room]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoGame, room)
	}
	g.HandleRollMessage(msg)
	return nil
}

// PlayerSnapshot is the read-only view of one player.
type PlayerSnapshot struct {
	ID         string
	Name       string
	Eliminated bool
}

// Snapshot is a read-only copy of a game's public state.
type Snapshot struct {
	ID        string
	Room      string
	Format    string
	Name      string
	Phase     game.Phase
	Round     int
	PlayerCap int
	Players   []PlayerSnapshot
	Remaining int
	Timer     bool
}

// Snapshot copies the state of the game in room.
func (m *Manager) Snapshot(room string) (Snapshot, bool) {
	g, ok := m.rooms[room]
	if !ok {
		return Snapshot{}, false
	}
	s := Snapshot{
		ID:        g.ID,
		Room:      g.Room,
		Format:    g.Format,
		Name:      g.NamePrefix + g.Name,
		Phase:     g.Phase(),
		Round:     g.Round,
		PlayerCap: g.PlayerCap,
		Remaining: g.Players.RemainingCount(),
		Timer:     g.HasTimer(),
	}
	for _, p := range g.Players.All() {
		s.Players = append(s.Players, PlayerSnapshot{ID: p.ID, Name: p.Name, Eliminated: p.Eliminated})
	}
	return s, true
}

func (m *Manager) say(room, text string) {
	if m.deps.Chat == nil || room == "" {
		return
	}
	if err := m.deps.Chat.SayRoom(m.ctx, room, text); err != nil && m.deps.Logger != nil {
		m.deps.Logger.Warn("Failed to post to room %s: %v", room, err)
	}
}

func (m *Manager) whisper(user, text string) {
	if m.deps.Chat == nil || user == "" {
		return
	}
	if err := m.deps.Chat.SayUser(m.ctx, user, text); err != nil && m.deps.Logger != nil {
		m.deps.Logger.Warn("Failed to message user %s: %v", user, err)
	}
}
