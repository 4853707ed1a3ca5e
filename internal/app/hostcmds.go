package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"survivor/internal/domain"
	"survivor/internal/format"
	"survivor/internal/game"
)

// Host command names. They are reserved: no format may bind them.
const (
	CmdCreateGame = "creategame"
	CmdEndGame    = "endgame"
	CmdHost       = "host"
	CmdHosts      = "hosts"
	CmdRemoveHost = "removehost"
	CmdTimer      = "timer"
	CmdGames      = "games"
)

// HostCommands lists the reserved host command names.
var HostCommands = []string{CmdCreateGame, CmdEndGame, CmdHost, CmdHosts, CmdRemoveHost, CmdTimer, CmdGames}

const (
	defaultHostDays = 7
	maxTimerSeconds = 3600
)

func (m *Manager) hostCommand(ctx context.Context, name string, msg Message) bool {
	switch name {
	case CmdCreateGame:
		m.createGameCommand(msg)
	case CmdEndGame:
		m.endGameCommand(msg)
	case CmdHost:
		m.hostCommandSet(msg)
	case CmdHosts:
		m.hostsCommand(msg)
	case CmdRemoveHost:
		m.removeHostCommand(msg)
	case CmdTimer:
		m.timerCommand(msg)
	case CmdGames:
		m.gamesCommand(msg)
	default:
		return false
	}
	return true
}

// reply answers in the room the command came from, or privately for a
// direct message.
func (m *Manager) reply(msg Message, text string) {
	if msg.Room != "" {
		m.say(msg.Room, text)
		return
	}
	m.whisper(msg.User.ID, text)
}

func (m *Manager) createGameCommand(msg Message) {
	if msg.Room == "" {
		m.reply(msg, "You must use this command in a room.")
		return
	}
	_, err := m.OpenGame(msg.Target, msg.Room, msg.User)
	switch {
	case errors.Is(err, ErrGameInProgress):
		return
	case errors.Is(err, format.ErrFormatNotFound), errors.Is(err, format.ErrAliasCycle):
		m.reply(msg, "Invalid game.")
		return
	case err != nil:
		m.reply(msg, "Invalid game.")
		if m.deps.Logger != nil {
			m.deps.Logger.Error("Failed to create game %q in %s: %v", msg.Target, msg.Room, err)
		}
	}
}

func (m *Manager) endGameCommand(msg Message) {
	g, ok := m.rooms[msg.Room]
	if !ok {
		m.reply(msg, "There is no game in progress.")
		return
	}
	cmd := game.Command{Name: game.ActionForceEnd, User: msg.User, Time: msg.Time}
	if !g.Invoke(game.ActionForceEnd, cmd) {
		g.ForceEnd()
	}
}

func (m *Manager) hostCommandSet(msg Message) {
	if m.deps.Hosts == nil {
		m.reply(msg, "Host tracking is disabled.")
		return
	}
	id := domain.ToID(msg.Target)
	if id == "" {
		m.deps.Hosts.SetHost("")
		m.reply(msg, "The host has been cleared.")
		return
	}
	m.deps.Hosts.SetHost(id)
	m.deps.Hosts.AddHost(id, msg.Time)
	m.reply(msg, "**"+strings.TrimSpace(msg.Target)+"** is now hosting.")
}

func (m *Manager) hostsCommand(msg Message) {
	if m.deps.Hosts == nil {
		m.reply(msg, "Host tracking is disabled.")
		return
	}
	user, days, err := parseHostsTarget(msg.Target)
	if err != nil {
		m.reply(msg, "Usage: hosts <user>, <days>")
		return
	}
	m.reply(msg, m.deps.Hosts.Report(user, days, msg.Time))
}

func parseHostsTarget(target string) (string, int, error) {
	user, rest, hasDays := strings.Cut(target, ",")
	user = strings.TrimSpace(user)
	if domain.ToID(user) == "" {
		return "", 0, errors.New("missing user")
	}
	if !hasDays || strings.TrimSpace(rest) == "" {
		return user, defaultHostDays, nil
	}
	days, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || days <= 0 {
		return "", 0, fmt.Errorf("invalid day count %q", rest)
	}
	return user, days, nil
}

func (m *Manager) removeHostCommand(msg Message) {
	if m.deps.Hosts == nil {
		m.reply(msg, "Host tracking is disabled.")
		return
	}
	id := domain.ToID(msg.Target)
	if !m.deps.Hosts.RemoveHost(id) {
		m.reply(msg, "**"+id+"** has no hosts to remove.")
		return
	}
	m.reply(msg, "Removed the latest host of **"+id+"**.")
}

// timerCommand runs a stopwatch that announces the end in the room.
func (m *Manager) timerCommand(msg Message) {
	room := msg.Room
	if room == "" {
		m.reply(msg, "You must use this command in a room.")
		return
	}
	if _, running := m.stopwatches[room]; running {
		m.reply(msg, "There is already a timer running.")
		return
	}
	seconds, ok := parseSeconds(msg.Target)
	if !ok || m.deps.Timers == nil {
		m.reply(msg, fmt.Sprintf("The timer must be between 1 and %d seconds.", maxTimerSeconds))
		return
	}
	m.stopwatches[room] = m.deps.Timers.AfterFunc(time.Duration(seconds)*time.Second, func() {
		delete(m.stopwatches, room)
		m.say(room, "**Time's up!**")
	})
	m.reply(msg, "The timer will go off in "+domain.Countdown(seconds)+".")
}

func parseSeconds(target string) (int, bool) {
	seconds, err := strconv.Atoi(strings.TrimSpace(target))
	if err != nil || seconds <= 0 || seconds > maxTimerSeconds {
		return 0, false
	}
	return seconds, true
}

func (m *Manager) gamesCommand(msg Message) {
	formats := m.deps.Registry.Formats()
	names := make([]string, 0, len(formats))
	for _, f := range formats {
		names = append(names, f.Name)
	}
	m.reply(msg, fmt.Sprintf("**Games (%d)**: %s", len(names), strings.Join(names, ", ")))
}
