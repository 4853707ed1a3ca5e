package nakama

import (
	"sort"

	"survivor/internal/app"
	"survivor/internal/format"
)

// Field maps below feed structpb.NewStruct, which only takes plain values,
// []interface{} and map[string]interface{}.

func snapshotFields(s app.Snapshot) map[string]interface{} {
	players := make([]interface{}, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, map[string]interface{}{
			"id":         p.ID,
			"name":       p.Name,
			"eliminated": p.Eliminated,
		})
	}
	return map[string]interface{}{
		"game_id":    s.ID,
		"room":       s.Room,
		"format":     s.Format,
		"name":       s.Name,
		"phase":      string(s.Phase),
		"round":      s.Round,
		"player_cap": s.PlayerCap,
		"remaining":  s.Remaining,
		"timer":      s.Timer,
		"players":    players,
	}
}

func formatFields(f *format.Format) map[string]interface{} {
	return map[string]interface{}{
		"id":          f.ID,
		"name":        f.Name,
		"description": f.Description,
		"aliases":     stringList(f.Aliases),
		"variations":  stringList(keys(f.Variations)),
		"modes":       stringList(keys(f.Modes)),
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func stringList(ss []string) []interface{} {
	out := make([]interface{}, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}
