package format

import (
	"errors"
	"fmt"
	"strings"

	"survivor/internal/domain"
)

var (
	ErrFormatNotFound = errors.New("format not found")
	ErrAliasCycle     = errors.New("alias expansion does not terminate")
)

// maxAliasDepth bounds alias chains even when no token repeats.
const maxAliasDepth = 16

// ResolveAlias expands a token through the alias table into a canonical
// game id, optionally followed by ",modifier" selectors.
func (r *Registry) ResolveAlias(token string) (string, error) {
	tokens, err := r.expand(token, map[string]bool{})
	if err != nil {
		return "", err
	}
	return strings.Join(tokens, ","), nil
}

func (r *Registry) expand(token string, seen map[string]bool) ([]string, error) {
	id := domain.ToID(token)
	target, ok := r.aliases[id]
	if !ok {
		return []string{id}, nil
	}
	if seen[id] || len(seen) >= maxAliasDepth {
		return nil, fmt.Errorf("%w: %q", ErrAliasCycle, token)
	}
	seen[id] = true

	parts := strings.Split(target, ",")
	head, err := r.expand(parts[0], seen)
	if err != nil {
		return nil, err
	}
	return append(head, parts[1:]...), nil
}

// Lookup resolves a comma separated specifier such as "golfsurvivor" or
// "survivor,mini,golf" into a copy of the base format with the selected
// variation applied and the selected mode recorded. Later selectors win.
func (r *Registry) Lookup(spec string) (*Format, error) {
	parts := strings.Split(spec, ",")
	head, err := r.expand(parts[0], map[string]bool{})
	if err != nil {
		return nil, err
	}
	tokens := append(head, parts[1:]...)

	canonical, ok := r.formats[tokens[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFormatNotFound, spec)
	}

	var variationID, modeID string
	for _, raw := range tokens[1:] {
		id := domain.ToID(raw)
		if id == "" {
			continue
		}
		if v, ok := canonical.VariationAliases[id]; ok {
			variationID = v
		} else if _, ok := canonical.Variations[id]; ok {
			variationID = id
		}
		if m, ok := canonical.ModeAliases[id]; ok {
			modeID = m
		} else if _, ok := canonical.Modes[id]; ok {
			modeID = id
		}
	}

	f := *canonical
	if v := canonical.Variations[variationID]; v != nil {
		f.VariationID = v.ID
		if v.Name != "" {
			f.Name = v.Name
		}
		if v.Description != "" {
			f.Description = v.Description
		}
		f.Settings = f.Settings.merge(v.Settings)
	}
	f.ModeID = modeID
	return &f, nil
}
