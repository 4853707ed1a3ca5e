package format

import (
	"survivor/internal/game"
)

// Settings are the instance fields a format or variation may declare. Nil
// pointers leave the game default in place.
type Settings struct {
	FreeJoin       *bool             `yaml:"free_join"`
	CanLateJoin    *bool             `yaml:"can_late_join"`
	CanRejoin      *bool             `yaml:"can_rejoin"`
	PlayerCap      *int              `yaml:"player_cap"`
	MinPlayers     *int              `yaml:"min_players"`
	ReverseScoring *bool             `yaml:"reverse_scoring"`
	PMCommands     []string          `yaml:"pm_commands"` // "*" routes every command
	Options        map[string]string `yaml:"options"`
}

// merge returns s with every field declared in o applied on top. Options are
// merged key by key into a fresh map.
func (s Settings) merge(o Settings) Settings {
	if o.FreeJoin != nil {
		s.FreeJoin = o.FreeJoin
	}
	if o.CanLateJoin != nil {
		s.CanLateJoin = o.CanLateJoin
	}
	if o.CanRejoin != nil {
		s.CanRejoin = o.CanRejoin
	}
	if o.PlayerCap != nil {
		s.PlayerCap = o.PlayerCap
	}
	if o.MinPlayers != nil {
		s.MinPlayers = o.MinPlayers
	}
	if o.ReverseScoring != nil {
		s.ReverseScoring = o.ReverseScoring
	}
	if o.PMCommands != nil {
		s.PMCommands = o.PMCommands
	}
	if len(o.Options) > 0 {
		opts := make(map[string]string, len(s.Options)+len(o.Options))
		for k, v := range s.Options {
			opts[k] = v
		}
		for k, v := range o.Options {
			opts[k] = v
		}
		s.Options = opts
	}
	return s
}

// VariationDeclaration is a named preset of one format.
type VariationDeclaration struct {
	Name             string   `yaml:"name"`
	Variation        string   `yaml:"variation"`
	Description      string   `yaml:"description"`
	Aliases          []string `yaml:"aliases"`
	VariationAliases []string `yaml:"variation_aliases"`
	Settings         `yaml:",inline"`
}

// Declaration is the authored form of a game format.
type Declaration struct {
	ID          string                 `yaml:"id"`
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Aliases     []string               `yaml:"aliases"`
	Commands    map[string]string      `yaml:"commands"`
	Inherits    string                 `yaml:"inherits"`
	Modes       []string               `yaml:"modes"`
	Variations  []VariationDeclaration `yaml:"variations"`
	Settings    `yaml:",inline"`

	// Install extends the behavior inherited from the parent format.
	Install game.Extension `yaml:"-"`
	// Behavior is used as-is when the format neither inherits nor installs.
	Behavior *game.Behavior `yaml:"-"`
	// Overrides are copied onto every instance after composition.
	Overrides game.Hooks `yaml:"-"`
}

// Naming is how a mode combines its id with a format id.
type Naming string

const (
	NamingPrefix Naming = "prefix"
	NamingSuffix Naming = "suffix"
)

// ModeDeclaration is the authored form of a mode.
type ModeDeclaration struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Naming   Naming            `yaml:"naming"`
	Aliases  []string          `yaml:"aliases"`
	Commands map[string]string `yaml:"commands"`

	// Activate runs against every new instance of a format in this mode.
	Activate func(g *game.Game) `yaml:"-"`
}

// Catalog is everything Load reads.
type Catalog struct {
	Formats []Declaration
	Modes   []ModeDeclaration
}
