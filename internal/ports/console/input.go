package console

import (
	"strconv"
	"strings"
	"time"

	"survivor/internal/app"
	"survivor/internal/domain"
)

// ParseLine reads one terminal line of the form
//
//	<room> <user> <prefix><command> [target]
//
// where a room of "-" sends the command as a direct message.
func ParseLine(prefix, line string, now time.Time) (app.Message, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || prefix == "" {
		return app.Message{}, false
	}
	room, user, text := fields[0], fields[1], strings.Join(fields[2:], " ")
	if !strings.HasPrefix(text, prefix) {
		return app.Message{}, false
	}
	command, target, _ := strings.Cut(strings.TrimPrefix(text, prefix), " ")
	if domain.ToID(command) == "" || domain.ToID(user) == "" {
		return app.Message{}, false
	}
	if room == "-" {
		room = ""
	}
	return app.Message{
		Room:    room,
		User:    domain.NewUser(user),
		Command: command,
		Target:  strings.TrimSpace(target),
		Time:    now,
	}, true
}

// ParseDice reads a dice result typed at the terminal, standing in for the
// chat server's roll bot:
//
//	!roll <room> <value> [value...]
//	!pick <room> <choice>
func ParseDice(line string) (room string, msg domain.RollMessage, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return "", domain.RollMessage{}, false
	}
	room = fields[1]
	switch fields[0] {
	case "!roll":
		values := make([]int, 0, len(fields)-2)
		for _, f := range fields[2:] {
			v, err := strconv.Atoi(f)
			if err != nil {
				return "", domain.RollMessage{}, false
			}
			values = append(values, v)
		}
		if len(values) == 1 {
			return room, domain.RollMessage{Kind: domain.RollSingle, Value: values[0]}, true
		}
		return room, domain.RollMessage{Kind: domain.RollMulti, Values: values}, true
	case "!pick":
		return room, domain.RollMessage{Kind: domain.RollPick, Pick: strings.Join(fields[2:], " ")}, true
	}
	return "", domain.RollMessage{}, false
}
