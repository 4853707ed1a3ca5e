package app

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"survivor/internal/app/hosting"
	"survivor/internal/domain"
	"survivor/internal/format"
	"survivor/internal/game"
	"survivor/internal/games"

	"github.com/heroiclabs/nakama-common/runtime"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type chatLine struct {
	to   string
	text string
}

type fakeChat struct {
	room []chatLine
	user []chatLine
}

func (f *fakeChat) SayRoom(ctx context.Context, roomID, text string) error {
	f.room = append(f.room, chatLine{to: roomID, text: text})
	return nil
}

func (f *fakeChat) SayUser(ctx context.Context, userID, text string) error {
	f.user = append(f.user, chatLine{to: userID, text: text})
	return nil
}

func (f *fakeChat) lastRoom() string {
	if len(f.room) == 0 {
		return ""
	}
	return f.room[len(f.room)-1].text
}

func (f *fakeChat) lastUser() string {
	if len(f.user) == 0 {
		return ""
	}
	return f.user[len(f.user)-1].text
}

func (f *fakeChat) saidIn(room, text string) bool {
	for _, l := range f.room {
		if l.to == room && l.text == text {
			return true
		}
	}
	return false
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type manualScheduler struct {
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) game.Timer {
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) last() *manualTimer {
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

func (s *manualScheduler) fire(t *manualTimer) {
	if t == nil || t.stopped || t.fired {
		return
	}
	t.fired = true
	t.f()
}

// fakeDirectory maps room -> user ids present.
type fakeDirectory map[string]map[string]bool

func (d fakeDirectory) Participates(ctx context.Context, roomID, userID string) (bool, error) {
	return d[roomID][userID], nil
}

type fixture struct {
	manager *Manager
	chat    *fakeChat
	timers  *manualScheduler
	hosts   *hosting.Service
}

func newFixture(t *testing.T, dir fakeDirectory) *fixture {
	t.Helper()
	catalog, err := games.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error: %v", err)
	}
	registry, err := format.Load(catalog, HostCommands)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	f := &fixture{
		chat:   &fakeChat{},
		timers: &manualScheduler{},
		hosts:  hosting.NewService(hosting.NewMemoryStore(), noopLogger{}),
	}
	deps := Deps{
		Registry: registry,
		Chat:     f.chat,
		Timers:   f.timers,
		Hosts:    f.hosts,
		Logger:   noopLogger{},
	}
	if dir != nil {
		deps.Directory = dir
	}
	f.manager = NewManager(context.Background(), deps, Settings{
		Maintainer: "staff",
		Rand:       rand.New(rand.NewSource(7)),
	})
	return f
}

func (f *fixture) send(room, user, command, target string) bool {
	return f.manager.Dispatch(context.Background(), Message{
		Room:    room,
		User:    domain.NewUser(user),
		Command: command,
		Target:  target,
		Time:    time.Unix(1_700_000_000, 0),
	})
}

func TestCreateGameBindsRoom(t *testing.T) {
	f := newFixture(t, nil)
	g, err := f.manager.CreateGame("surv", "lobby")
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if got, ok := f.manager.Game("lobby"); !ok || got != g {
		t.Fatal("game not bound to lobby")
	}
	if g.Format != "survivor" || g.Name != "Survivor" || g.MinPlayers != 2 {
		t.Fatalf("game = %s %q min=%d", g.Format, g.Name, g.MinPlayers)
	}
	if g.Options["dice"] != "100" || !g.PMCommands.Accepts("destroy") || g.PMCommands.Accepts("in") {
		t.Fatalf("settings not applied: options=%v pm=%+v", g.Options, g.PMCommands)
	}
	if !g.HasAction("destroy") || !g.HasAction("join") {
		t.Fatal("composed behavior is missing actions")
	}
}

func TestCreateGameWhileActive(t *testing.T) {
	f := newFixture(t, nil)
	first, _ := f.manager.CreateGame("survivor", "lobby")

	if _, err := f.manager.CreateGame("lottery", "lobby"); !errors.Is(err, ErrGameInProgress) {
		t.Fatalf("CreateGame error = %v, want ErrGameInProgress", err)
	}
	if f.chat.lastRoom() != "A game of Survivor is already in progress." {
		t.Fatalf("notice = %q", f.chat.lastRoom())
	}
	if g, _ := f.manager.Game("lobby"); g != first {
		t.Fatal("active game was replaced")
	}
}

func TestCreateGameUnknownFormat(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.manager.CreateGame("chess", "lobby"); !errors.Is(err, format.ErrFormatNotFound) {
		t.Fatalf("CreateGame error = %v, want ErrFormatNotFound", err)
	}
	if _, ok := f.manager.Game("lobby"); ok {
		t.Fatal("failed creation left a binding")
	}
}

func TestCreateGameVariationsAndModes(t *testing.T) {
	f := newFixture(t, nil)

	mini, err := f.manager.CreateGame("msurv,golf", "a")
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if mini.Name != "Mini Survivor" || mini.PlayerCap != 4 || mini.Options["dice"] != "6" {
		t.Fatalf("variation not applied: %q cap=%d options=%v", mini.Name, mini.PlayerCap, mini.Options)
	}
	if !mini.ReverseScoring || mini.NamePrefix != "Golf " || mini.ModeID != "golf" {
		t.Fatalf("golf mode not activated: reverse=%v prefix=%q", mini.ReverseScoring, mini.NamePrefix)
	}

	blitz, err := f.manager.CreateGame("survivorblitz", "b")
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if blitz.Name != "Survivor Blitz" || blitz.Options["turn_seconds"] != "30" || blitz.CanLateJoin {
		t.Fatalf("blitz mode not activated: %q options=%v", blitz.Name, blitz.Options)
	}

	canonical, _ := f.manager.Registry().Format("survivor")
	if canonical.Settings.Options["turn_seconds"] != "90" {
		t.Fatalf("mode activation leaked into the registry: %v", canonical.Settings.Options)
	}
}

func TestBehaviorIsCachedPerFormat(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.manager.CreateGame("survivor", "a"); err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if _, err := f.manager.CreateGame("msurv", "b"); err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if len(f.manager.behaviors) != 1 {
		t.Fatalf("cached behaviors = %d, want 1", len(f.manager.behaviors))
	}
}

func TestCreateGameComposesAncestorsRootFirst(t *testing.T) {
	var trace []string
	install := func(id string) game.Extension {
		return func(b game.Behavior) game.Behavior {
			prev := b.OnSignups
			b.OnSignups = func(g *game.Game) {
				if prev != nil {
					prev(g)
				}
				trace = append(trace, id)
			}
			return b.With("who", func(g *game.Game, cmd game.Command) {
				trace = append(trace, "who:"+id)
			})
		}
	}
	catalog := format.Catalog{Formats: []format.Declaration{
		{ID: "a", Name: "A", Install: install("a")},
		{ID: "b", Name: "B", Inherits: "a", Install: install("b")},
		{ID: "c", Name: "C", Inherits: "b", Install: install("c")},
	}}
	registry, err := format.Load(catalog, HostCommands)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	m := NewManager(context.Background(), Deps{
		Registry: registry,
		Chat:     &fakeChat{},
		Timers:   &manualScheduler{},
		Logger:   noopLogger{},
	}, Settings{Rand: rand.New(rand.NewSource(1))})

	g, err := m.CreateGame("c", "lobby")
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	g.Signups()
	if strings.Join(trace, ",") != "a,b,c" {
		t.Fatalf("signup hooks ran as %v, want a,b,c", trace)
	}

	trace = nil
	g.Invoke("who", game.Command{Name: "who", User: domain.NewUser("alice")})
	if strings.Join(trace, ",") != "who:c" {
		t.Fatalf("action resolved to %v, want the leaf's", trace)
	}
}

func TestCreateChildGame(t *testing.T) {
	f := newFixture(t, nil)
	parent, _ := f.manager.CreateGame("rolloff", "lobby")
	parent.Signups()
	parent.Join(domain.NewUser("Alice"))
	parent.Join(domain.NewUser("Bob"))
	roster := parent.Players

	if _, err := f.manager.CreateChildGame("chess", parent); err == nil {
		t.Fatal("expected error for an unknown child format")
	}
	if g, _ := f.manager.Game("lobby"); g != parent {
		t.Fatal("failed child creation must restore the parent binding")
	}

	child, err := f.manager.CreateChildGame("lottery", parent)
	if err != nil {
		t.Fatalf("CreateChildGame error: %v", err)
	}
	if g, _ := f.manager.Game("lobby"); g != child {
		t.Fatal("child is not bound to the room")
	}
	if child.Players != roster || parent.Players != nil {
		t.Fatal("roster was not transferred by reference")
	}
	if child.ParentGame != parent || parent.ChildGame != child {
		t.Fatal("parent and child are not cross-linked")
	}
	if parent.HasTimer() {
		t.Fatal("parent signup timer still pending")
	}

	if _, err := f.manager.CreateChildGame("lottery", parent); !errors.Is(err, ErrParentNotActive) {
		t.Fatalf("CreateChildGame on a detached parent error = %v", err)
	}
}

func TestDispatchRoomCommands(t *testing.T) {
	f := newFixture(t, nil)
	if !f.send("lobby", "Host", "creategame", "survivor") {
		t.Fatal("creategame not handled")
	}
	if !f.chat.saidIn("lobby", "survgame! If you would like to play, use the command ``/me in``") {
		t.Fatal("signups were not announced")
	}

	f.send("lobby", "Alice", "in", "")
	f.send("lobby", "Bob", "j", "")
	f.send("lobby", "Carol", "J", "")
	g, _ := f.manager.Game("lobby")
	if g.PlayerCount() != 3 {
		t.Fatalf("PlayerCount() = %d, want 3", g.PlayerCount())
	}
	if f.chat.lastUser() != "You have joined the game of Survivor!" {
		t.Fatalf("join notice = %q", f.chat.lastUser())
	}

	f.send("lobby", "Carol", "out", "")
	f.send("lobby", "Alice", "players", "")
	if f.chat.lastRoom() != "**Players (2)**: Alice, Bob" {
		t.Fatalf("pl = %q", f.chat.lastRoom())
	}

	if f.send("lobby", "Alice", "unknowncmd", "") {
		t.Fatal("unknown command reported as handled")
	}
	if f.send("elsewhere", "Alice", "in", "") {
		t.Fatal("command in a room without a game reported as handled")
	}
}

func TestCapStartsRollOff(t *testing.T) {
	f := newFixture(t, nil)
	f.send("lobby", "Host", "creategame", "rolloff")
	f.send("lobby", "Host", "cap", "2")
	if f.chat.lastRoom() != "The game will automatically start with 2 players!" {
		t.Fatalf("cap notice = %q", f.chat.lastRoom())
	}
	f.send("lobby", "Alice", "in", "")
	f.send("lobby", "Bob", "in", "")

	g, _ := f.manager.Game("lobby")
	if !g.Started || g.Round != 1 {
		t.Fatalf("started=%v round=%d, want started round 1", g.Started, g.Round)
	}
	if f.chat.lastRoom() != "!roll 100" {
		t.Fatalf("last room line = %q, want the roll prompt", f.chat.lastRoom())
	}
}

// startSurvivor creates a started two-player survivor game in room.
func startSurvivor(t *testing.T, f *fixture, room string, players ...string) *game.Game {
	t.Helper()
	f.send(room, "Host", "creategame", "survivor")
	for _, p := range players {
		f.send(room, p, "in", "")
	}
	f.send(room, "Host", "start", "")
	g, _ := f.manager.Game(room)
	if !g.Started || g.CurPlayer == nil {
		t.Fatalf("survivor did not start: started=%v cur=%v", g.Started, g.CurPlayer)
	}
	return g
}

func other(g *game.Game, id string) *domain.Player {
	for _, p := range g.Players.Remaining() {
		if p.ID != id {
			return p
		}
	}
	return nil
}

func TestStrayRollsKeepSurvivorTurn(t *testing.T) {
	f := newFixture(t, nil)
	g := startSurvivor(t, f, "arena", "Alice", "Bob", "Carol")
	cur := g.CurPlayer

	_ = f.manager.HandleRollEvent("arena", domain.RollMessage{Kind: domain.RollSingle, Value: 70})
	_ = f.manager.HandleRollEvent("arena", domain.RollMessage{Kind: domain.RollSingle, Value: 20})

	if g.CurPlayer != cur {
		t.Fatalf("current player = %v, want %s to keep the turn", g.CurPlayer, cur.Name)
	}
	if n := g.Players.RemainingCount(); n != 3 {
		t.Fatalf("remaining = %d, want 3", n)
	}

	target := other(g, cur.ID)
	f.send("arena", cur.Name, "destroy", target.Name)
	_ = f.manager.HandleRollEvent("arena", domain.RollMessage{Kind: domain.RollSingle, Value: 90})
	_ = f.manager.HandleRollEvent("arena", domain.RollMessage{Kind: domain.RollSingle, Value: 10})
	if !f.chat.saidIn("arena", "**"+cur.Name+"** beat **"+target.Name+"**!") {
		t.Fatalf("armed duel was not resolved: %v", f.chat.room)
	}
}

func TestDirectMessageFanOut(t *testing.T) {
	dir := fakeDirectory{
		"one": {"alice": true, "bob": true},
		"two": {"carol": true, "dave": true},
	}
	f := newFixture(t, dir)
	one := startSurvivor(t, f, "one", "Alice", "Bob")
	two := startSurvivor(t, f, "two", "Carol", "Dave")

	attacker := one.CurPlayer
	target := other(one, attacker.ID)
	if f.send("", attacker.Name, "in", "") {
		t.Fatal("in is not routed privately")
	}
	if !f.send("", attacker.Name, "attack", target.Name) {
		t.Fatal("private attack not handled")
	}
	if !f.chat.saidIn("one", "**"+attacker.Name+"** attacks **"+target.Name+"**!") {
		t.Fatalf("attack not announced in room one: %v", f.chat.room)
	}
	if one.OPlayer != target {
		t.Fatalf("OPlayer = %v, want %s", one.OPlayer, target.Name)
	}
	if two.OPlayer != nil {
		t.Fatal("game in a room the user is not in received the command")
	}
}

func TestDirectMessageFallsBackToRoster(t *testing.T) {
	f := newFixture(t, nil)
	g := startSurvivor(t, f, "one", "Alice", "Bob")
	if f.send("", "Mallory", "destroy", "Alice") {
		t.Fatal("non-player routed into the game")
	}
	attacker := g.CurPlayer
	if !f.send("", attacker.Name, "destroy", other(g, attacker.ID).Name) {
		t.Fatal("player's private destroy not handled")
	}
}

func TestSurvivorDuelToTheEnd(t *testing.T) {
	f := newFixture(t, nil)
	g := startSurvivor(t, f, "arena", "Alice", "Bob")
	attacker := g.CurPlayer
	target := other(g, attacker.ID)
	f.send("arena", attacker.Name, "d", target.Name)

	const prefix = `<div class="infobox">`
	if err := f.manager.HandleHTML("arena", prefix+"Roll (1 - 100): 40</div>"); err != nil {
		t.Fatalf("HandleHTML error: %v", err)
	}
	if err := f.manager.HandleHTML("arena", prefix+"Roll (1 - 100): 40</div>"); err != nil {
		t.Fatalf("HandleHTML error: %v", err)
	}
	if f.chat.lastRoom() != "The rolls were the same. Rerolling..." {
		t.Fatalf("tie notice = %q", f.chat.lastRoom())
	}
	f.timers.fire(f.timers.last())
	if f.chat.lastRoom() != "!roll 100" {
		t.Fatalf("reroll prompt = %q", f.chat.lastRoom())
	}

	_ = f.manager.HandleRollEvent("arena", domain.RollMessage{Kind: domain.RollSingle, Value: 90})
	_ = f.manager.HandleRollEvent("arena", domain.RollMessage{Kind: domain.RollSingle, Value: 10})

	if !f.chat.saidIn("arena", "**"+attacker.Name+"** beat **"+target.Name+"**!") {
		t.Fatalf("duel result not announced: %v", f.chat.room)
	}
	if f.chat.lastRoom() != "**Winner:** "+attacker.Name {
		t.Fatalf("last line = %q, want winner announcement", f.chat.lastRoom())
	}
	if !g.Ended {
		t.Fatal("game did not end")
	}
	if _, ok := f.manager.Game("arena"); ok {
		t.Fatal("ended game still bound")
	}
	if err := f.manager.HandleRollEvent("arena", domain.RollMessage{Kind: domain.RollSingle, Value: 1}); !errors.Is(err, ErrNoGame) {
		t.Fatalf("HandleRollEvent error = %v, want ErrNoGame", err)
	}
}

func TestLotteryPick(t *testing.T) {
	f := newFixture(t, nil)
	f.send("hall", "Host", "creategame", "raffle")
	f.send("hall", "Alice", "in", "")
	if f.chat.lastUser() != "This game does not require you to join!" {
		t.Fatalf("free join notice = %q", f.chat.lastUser())
	}
	f.send("hall", "Host", "draw", "Alice, Bob")
	if f.chat.lastRoom() != "!pick Alice, Bob" {
		t.Fatalf("draw = %q", f.chat.lastRoom())
	}
	if err := f.manager.HandleHTML("hall", `<div class="infobox"><em>We randomly picked:</em> Bob</div>`); err != nil {
		t.Fatalf("HandleHTML error: %v", err)
	}
	if !f.chat.saidIn("hall", "**The lottery winner is Bob!**") {
		t.Fatalf("pick not announced: %v", f.chat.room)
	}
	if _, ok := f.manager.Game("hall"); ok {
		t.Fatal("lottery still bound after the pick")
	}
}

func TestHostCommands(t *testing.T) {
	f := newFixture(t, nil)

	f.send("lobby", "Staff", "creategame", "chess")
	if f.chat.lastRoom() != "Invalid game." {
		t.Fatalf("invalid game reply = %q", f.chat.lastRoom())
	}

	f.send("lobby", "Staff", "host", "Alice")
	if f.chat.lastRoom() != "**Alice** is now hosting." || f.hosts.Host() != "alice" {
		t.Fatalf("host reply = %q host=%q", f.chat.lastRoom(), f.hosts.Host())
	}
	f.send("lobby", "Staff", "hosts", "Alice, 7")
	if f.chat.lastRoom() != "**alice** has hosted 1 time in the last 7 days." {
		t.Fatalf("hosts reply = %q", f.chat.lastRoom())
	}
	f.send("", "Staff", "hosts", "bob")
	if f.chat.lastUser() != "**bob** has never hosted." {
		t.Fatalf("private hosts reply = %q", f.chat.lastUser())
	}
	f.send("lobby", "Staff", "hosts", "alice, soon")
	if !strings.HasPrefix(f.chat.lastRoom(), "Usage:") {
		t.Fatalf("bad hosts reply = %q", f.chat.lastRoom())
	}
	f.send("lobby", "Staff", "removehost", "alice")
	if f.chat.lastRoom() != "Removed the latest host of **alice**." {
		t.Fatalf("removehost reply = %q", f.chat.lastRoom())
	}
	f.send("lobby", "Staff", "removehost", "alice")
	if f.chat.lastRoom() != "**alice** has no hosts to remove." {
		t.Fatalf("second removehost reply = %q", f.chat.lastRoom())
	}

	f.send("lobby", "Staff", "games", "")
	if f.chat.lastRoom() != "**Games (3)**: Lottery, Roll Off, Survivor" {
		t.Fatalf("games reply = %q", f.chat.lastRoom())
	}

	f.send("lobby", "Staff", "creategame", "survivor")
	f.send("lobby", "Staff", "endgame", "")
	if f.chat.lastRoom() != "The game was forcibly ended." {
		t.Fatalf("endgame reply = %q", f.chat.lastRoom())
	}
	if _, ok := f.manager.Game("lobby"); ok {
		t.Fatal("forcibly ended game still bound")
	}
	f.send("lobby", "Staff", "endgame", "")
	if f.chat.lastRoom() != "There is no game in progress." {
		t.Fatalf("endgame without game = %q", f.chat.lastRoom())
	}
}

func TestTimerCommand(t *testing.T) {
	f := newFixture(t, nil)
	f.send("lobby", "Staff", "timer", "90")
	if f.chat.lastRoom() != "The timer will go off in 1 minute and 30 seconds." {
		t.Fatalf("timer reply = %q", f.chat.lastRoom())
	}
	stopwatch := f.timers.last()
	if stopwatch.d != 90*time.Second {
		t.Fatalf("timer duration = %v", stopwatch.d)
	}

	f.send("lobby", "Staff", "timer", "30")
	if f.chat.lastRoom() != "There is already a timer running." {
		t.Fatalf("second timer reply = %q", f.chat.lastRoom())
	}

	f.timers.fire(stopwatch)
	if f.chat.lastRoom() != "**Time's up!**" {
		t.Fatalf("stopwatch end = %q", f.chat.lastRoom())
	}

	f.send("lobby", "Staff", "timer", "0")
	if f.chat.lastRoom() != "The timer must be between 1 and 3600 seconds." {
		t.Fatalf("invalid timer reply = %q", f.chat.lastRoom())
	}
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	if _, ok := f.manager.Snapshot("lobby"); ok {
		t.Fatal("snapshot of an empty room")
	}
	f.send("lobby", "Host", "creategame", "golfsurvivor")
	f.send("lobby", "Alice", "in", "")

	s, ok := f.manager.Snapshot("lobby")
	if !ok {
		t.Fatal("missing snapshot")
	}
	if s.Name != "Golf Survivor" || s.Phase != game.PhaseSignups || s.Remaining != 1 || !s.Timer {
		t.Fatalf("snapshot = %+v", s)
	}
	if len(s.Players) != 1 || s.Players[0].ID != "alice" {
		t.Fatalf("snapshot players = %+v", s.Players)
	}
}
