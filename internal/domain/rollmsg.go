package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RollKind identifies which dice command produced a rendered message.
type RollKind string

const (
	RollSingle RollKind = "roll"
	RollPick   RollKind = "pick"
	RollMulti  RollKind = "rolls"
)

// RollMessage is the parsed payload of a dice command result.
type RollMessage struct {
	Kind   RollKind
	Value  int    // RollSingle
	Values []int  // RollMulti
	Pick   string // RollPick
}

// ErrMalformedRoll reports a rendered message that does not match any known shape.
var ErrMalformedRoll = errors.New("malformed roll message")

// RollParser extracts dice results from a host-rendered message.
type RollParser interface {
	Parse(html string) (RollMessage, error)
}

const (
	infoboxPrefixLen = len(`<div class="infobox">`)
	infoboxCloserLen = len(`</div>`)
	pickLabelSkip    = len(`:</em> `)
)

var entityPattern = regexp.MustCompile(`&[^;]*;`)

// InfoboxParser reads the infobox HTML rendered by the host's !roll and !pick
// commands. The grammar, after a 21 character `<div class="infobox">` prefix:
//
//	Roll (1 - 100): 57</div>                    single roll
//	<em>We randomly picked:</em> Pikachu</div>  pick
//	3 rolls (1 - 6): 2, 5, 1<br />Sum: 8</div>  multiple rolls
type InfoboxParser struct{}

var _ RollParser = InfoboxParser{}

func (InfoboxParser) Parse(html string) (RollMessage, error) {
	if len(html) < infoboxPrefixLen {
		return RollMessage{}, fmt.Errorf("%w: shorter than infobox prefix", ErrMalformedRoll)
	}
	body := html[infoboxPrefixLen:]

	switch {
	case strings.HasPrefix(body, "Roll"):
		text, err := afterColon(body, 2)
		if err != nil {
			return RollMessage{}, err
		}
		text, err = dropCloser(text)
		if err != nil {
			return RollMessage{}, err
		}
		v, err := floorInt(text)
		if err != nil {
			return RollMessage{}, err
		}
		return RollMessage{Kind: RollSingle, Value: v}, nil

	case len(body) >= 6 && body[4:6] == "We":
		text, err := afterColon(body, pickLabelSkip)
		if err != nil {
			return RollMessage{}, err
		}
		text, err = dropCloser(text)
		if err != nil {
			return RollMessage{}, err
		}
		return RollMessage{Kind: RollPick, Pick: entityPattern.ReplaceAllString(text, "")}, nil

	case strings.Contains(body, "rolls"):
		text, err := afterColon(body, 2)
		if err != nil {
			return RollMessage{}, err
		}
		if i := strings.Index(text, "<"); i >= 0 {
			text = text[:i]
		}
		parts := strings.Split(text, ", ")
		values := make([]int, 0, len(parts))
		for _, p := range parts {
			v, err := floorInt(p)
			if err != nil {
				return RollMessage{}, err
			}
			values = append(values, v)
		}
		return RollMessage{Kind: RollMulti, Values: values}, nil
	}
	return RollMessage{}, fmt.Errorf("%w: unknown shape %q", ErrMalformedRoll, body)
}

func afterColon(s string, skip int) (string, error) {
	i := strings.Index(s, ":")
	if i < 0 || i+skip > len(s) {
		return "", fmt.Errorf("%w: missing label separator", ErrMalformedRoll)
	}
	return s[i+skip:], nil
}

func dropCloser(s string) (string, error) {
	if len(s) < infoboxCloserLen {
		return "", fmt.Errorf("%w: missing closing tag", ErrMalformedRoll)
	}
	return s[:len(s)-infoboxCloserLen], nil
}

func floorInt(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedRoll, s)
	}
	return int(math.Floor(f)), nil
}
