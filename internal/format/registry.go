package format

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"survivor/internal/domain"
	"survivor/internal/game"
)

var (
	ErrDuplicateID        = errors.New("identifier already registered")
	ErrCommandConflict    = errors.New("command already bound to a different hook")
	ErrReservedCommand    = errors.New("command is reserved by the host")
	ErrModeAliasConflict  = errors.New("mode alias collides with a mode")
	ErrInvalidInherit     = errors.New("invalid inheritance target")
	ErrMissingInstall     = errors.New("inheritance requires an install extension")
	ErrInheritCycle       = errors.New("inheritance cycle")
	ErrUnknownMode        = errors.New("unknown mode")
	ErrVariationConflict  = errors.New("variation collides with an existing identifier")
	ErrInvalidDeclaration = errors.New("invalid declaration")
)

// Variation is a normalized format preset.
type Variation struct {
	ID          string
	Name        string
	Description string
	Settings    Settings
}

// Mode is a normalized mode.
type Mode struct {
	ID       string
	Name     string
	Naming   Naming
	Aliases  []string
	Activate func(g *game.Game)
}

// Format is a normalized game format. Registry-owned values are never
// mutated after Load; Lookup hands out shallow copies.
type Format struct {
	ID          string
	Name        string
	Description string
	Aliases     []string
	Commands    map[string]string
	Inherits    string
	Install     game.Extension
	Behavior    *game.Behavior
	Overrides   game.Hooks
	Settings    Settings

	Variations       map[string]*Variation
	VariationAliases map[string]string
	Modes            map[string]string
	ModeAliases      map[string]string

	// Selected modifiers, set on resolved copies only.
	VariationID string
	ModeID      string
}

// CommandEntry binds a command name to a game hook. Redirect names another
// command of the same declaration that this one aliases.
type CommandEntry struct {
	Hook     string
	Redirect string
}

// Registry holds the frozen format, mode, alias and command tables.
type Registry struct {
	formats  map[string]*Format
	order    []string
	modes    map[string]*Mode
	aliases  map[string]string
	commands map[string]CommandEntry
	reserved map[string]bool
}

type builder struct {
	*Registry
	modeOrder []*Mode
	decls     map[string]Declaration
}

// Load validates the whole catalog and builds the registry tables. reserved
// lists the host's own command names. Any error means the catalog is malformed.
func Load(c Catalog, reserved []string) (*Registry, error) {
	b := &builder{
		Registry: &Registry{
			formats:  make(map[string]*Format),
			modes:    make(map[string]*Mode),
			aliases:  make(map[string]string),
			commands: make(map[string]CommandEntry),
			reserved: make(map[string]bool),
		},
		decls: make(map[string]Declaration),
	}
	for _, name := range reserved {
		b.reserved[domain.ToID(name)] = true
	}

	if err := b.collect(c); err != nil {
		return nil, err
	}
	if err := b.registerModes(c.Modes); err != nil {
		return nil, err
	}
	for _, id := range b.order {
		if err := b.registerFormat(b.formats[id], b.decls[id]); err != nil {
			return nil, err
		}
	}
	for _, id := range b.order {
		if _, err := b.Chain(id); err != nil {
			return nil, err
		}
	}
	return b.Registry, nil
}

// collect normalizes every declaration and rejects duplicate identifiers.
func (b *builder) collect(c Catalog) error {
	for _, md := range c.Modes {
		id := domain.ToID(md.ID)
		if id == "" {
			return fmt.Errorf("%w: mode %q has no id", ErrInvalidDeclaration, md.Name)
		}
		if _, dup := b.modes[id]; dup {
			return fmt.Errorf("%w: mode %s", ErrDuplicateID, id)
		}
		naming := md.Naming
		if naming == "" {
			naming = NamingPrefix
		}
		if naming != NamingPrefix && naming != NamingSuffix {
			return fmt.Errorf("%w: mode %s naming %q", ErrInvalidDeclaration, id, md.Naming)
		}
		m := &Mode{ID: id, Name: md.Name, Naming: naming, Activate: md.Activate}
		b.modes[id] = m
		b.modeOrder = append(b.modeOrder, m)
	}

	for _, d := range c.Formats {
		id := domain.ToID(d.ID)
		if id == "" {
			return fmt.Errorf("%w: format %q has no id", ErrInvalidDeclaration, d.Name)
		}
		if _, dup := b.formats[id]; dup {
			return fmt.Errorf("%w: format %s", ErrDuplicateID, id)
		}
		if _, dup := b.modes[id]; dup {
			return fmt.Errorf("%w: format %s is a mode", ErrDuplicateID, id)
		}
		name := d.Name
		if name == "" {
			name = d.ID
		}
		b.formats[id] = &Format{
			ID:               id,
			Name:             name,
			Description:      d.Description,
			Install:          d.Install,
			Behavior:         d.Behavior,
			Overrides:        d.Overrides,
			Settings:         d.Settings,
			Commands:         make(map[string]string),
			Variations:       make(map[string]*Variation),
			VariationAliases: make(map[string]string),
			Modes:            make(map[string]string),
			ModeAliases:      make(map[string]string),
		}
		b.order = append(b.order, id)
		b.decls[id] = d
	}
	return nil
}

func (b *builder) registerModes(decls []ModeDeclaration) error {
	for i, md := range decls {
		m := b.modeOrder[i]
		if err := b.addCommands(m.Name, md.Commands, nil); err != nil {
			return err
		}
	}
	for i, md := range decls {
		m := b.modeOrder[i]
		for _, raw := range md.Aliases {
			alias := domain.ToID(raw)
			if _, taken := b.modes[alias]; taken {
				return fmt.Errorf("%w: %s alias %q", ErrModeAliasConflict, m.Name, alias)
			}
			b.modes[alias] = m
			m.Aliases = append(m.Aliases, alias)
		}
	}
	return nil
}

// addCommands binds a declaration's commands. A command already bound to the
// same hook is skipped; a reserved name is only accepted in that case.
func (b *builder) addCommands(owner string, raw map[string]string, into map[string]string) error {
	cmds := make(map[string]string, len(raw))
	for name, hook := range raw {
		cmds[domain.ToID(name)] = domain.ToID(hook)
	}
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		hook := cmds[name]
		if into != nil {
			into[name] = hook
		}
		if prev, ok := b.commands[name]; ok {
			if prev.Hook != hook {
				return fmt.Errorf("%w: %s command %q (bound to %s)", ErrCommandConflict, owner, name, prev.Hook)
			}
			continue
		}
		if b.reserved[name] {
			return fmt.Errorf("%w: %s command %q", ErrReservedCommand, owner, name)
		}
		entry := CommandEntry{Hook: hook}
		if _, isCommand := cmds[hook]; isCommand && hook != name {
			entry.Redirect = hook
		}
		b.commands[name] = entry
	}
	return nil
}

func (b *builder) registerFormat(f *Format, d Declaration) error {
	if d.Inherits != "" {
		if f.Install == nil {
			return fmt.Errorf("%w: %s", ErrMissingInstall, f.Name)
		}
		parentID := domain.ToID(d.Inherits)
		parent, ok := b.formats[parentID]
		if !ok || parentID == f.ID {
			return fmt.Errorf("%w: %s inherits %q", ErrInvalidInherit, f.Name, d.Inherits)
		}
		if parent.Install == nil {
			return fmt.Errorf("%w: %s's parent %s", ErrMissingInstall, f.Name, parent.Name)
		}
		f.Inherits = parentID
	}

	if err := b.addCommands(f.Name, d.Commands, f.Commands); err != nil {
		return err
	}

	for _, raw := range d.Aliases {
		alias := domain.ToID(raw)
		if b.claimAlias(alias, f.ID) {
			f.Aliases = append(f.Aliases, alias)
		}
	}

	for _, vd := range d.Variations {
		if err := b.registerVariation(f, vd); err != nil {
			return err
		}
	}

	for _, raw := range d.Modes {
		m, ok := b.modes[domain.ToID(raw)]
		if !ok {
			return fmt.Errorf("%w: %s mode %q", ErrUnknownMode, f.Name, raw)
		}
		f.Modes[m.ID] = m.ID
		b.claimAlias(composite(m, m.ID, f.ID), f.ID+","+m.ID)
		for _, alias := range m.Aliases {
			f.ModeAliases[alias] = m.ID
			b.claimAlias(composite(m, alias, f.ID), f.ID+","+m.ID)
		}
	}
	return nil
}

func (b *builder) registerVariation(f *Format, vd VariationDeclaration) error {
	id := domain.ToID(vd.Name)
	if _, ok := b.formats[id]; ok {
		return fmt.Errorf("%w: %s variation %q is a game", ErrVariationConflict, f.Name, vd.Name)
	}
	variationID := domain.ToID(vd.Variation)
	if variationID == "" {
		return fmt.Errorf("%w: %s variation %q has no variation id", ErrInvalidDeclaration, f.Name, vd.Name)
	}
	if _, ok := b.modes[variationID]; ok {
		return fmt.Errorf("%w: %s variation %q is a mode", ErrVariationConflict, f.Name, variationID)
	}

	f.Variations[variationID] = &Variation{
		ID:          variationID,
		Name:        vd.Name,
		Description: vd.Description,
		Settings:    vd.Settings,
	}
	target := f.ID + "," + variationID
	b.claimAlias(id, target)

	for _, raw := range vd.Aliases {
		alias := domain.ToID(raw)
		if _, ok := b.modes[alias]; ok {
			return fmt.Errorf("%w: %s variation alias %q is a mode", ErrVariationConflict, f.Name, alias)
		}
		b.claimAlias(alias, target)
	}
	for _, raw := range vd.VariationAliases {
		alias := domain.ToID(raw)
		if _, ok := b.modes[alias]; ok {
			return fmt.Errorf("%w: %s variation alias %q is a mode", ErrVariationConflict, f.Name, alias)
		}
		if _, ok := f.VariationAliases[alias]; !ok {
			f.VariationAliases[alias] = variationID
		}
	}
	return nil
}

// claimAlias registers alias unless a game id or an earlier alias holds it.
func (b *builder) claimAlias(alias, target string) bool {
	if alias == "" {
		return false
	}
	if _, ok := b.aliases[alias]; ok {
		return false
	}
	if _, ok := b.formats[alias]; ok {
		return false
	}
	b.aliases[alias] = target
	return true
}

func composite(m *Mode, modeToken, formatID string) string {
	if m.Naming == NamingSuffix {
		return formatID + modeToken
	}
	return modeToken + formatID
}

// Chain returns the inheritance chain of a format, root first, ending with
// the format itself.
func (r *Registry) Chain(id string) ([]*Format, error) {
	f, ok := r.formats[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFormatNotFound, id)
	}
	seen := map[string]bool{}
	var chain []*Format
	for f != nil {
		if seen[f.ID] {
			return nil, fmt.Errorf("%w: created by %s", ErrInheritCycle, f.Name)
		}
		seen[f.ID] = true
		chain = append([]*Format{f}, chain...)
		if f.Inherits == "" {
			break
		}
		f = r.formats[f.Inherits]
	}
	return chain, nil
}

// Mode returns a mode by id or alias.
func (r *Registry) Mode(id string) (*Mode, bool) {
	m, ok := r.modes[domain.ToID(id)]
	return m, ok
}

// Format returns the canonical format for an id. Callers must not mutate it.
func (r *Registry) Format(id string) (*Format, bool) {
	f, ok := r.formats[domain.ToID(id)]
	return f, ok
}

// Formats lists the canonical formats in id order.
func (r *Registry) Formats() []*Format {
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	out := make([]*Format, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.formats[id])
	}
	return out
}

const maxRedirects = 8

// Command resolves a command name, following redirects, to the command it
// finally names and the hook bound to it.
func (r *Registry) Command(name string) (command, hook string, ok bool) {
	command = domain.ToID(name)
	for i := 0; i <= maxRedirects; i++ {
		entry, found := r.commands[command]
		if !found {
			return "", "", false
		}
		if entry.Redirect == "" {
			return command, entry.Hook, true
		}
		command = entry.Redirect
	}
	return "", "", false
}

// CommandNames lists every bound command name, sorted.
func (r *Registry) CommandNames() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reserved reports whether name is one of the host's own commands.
func (r *Registry) Reserved(name string) bool {
	return r.reserved[domain.ToID(name)]
}

func (f *Format) String() string {
	var b strings.Builder
	b.WriteString(f.ID)
	if f.VariationID != "" {
		b.WriteString("," + f.VariationID)
	}
	if f.ModeID != "" {
		b.WriteString("," + f.ModeID)
	}
	return b.String()
}
