// Package games bundles the concrete formats and modes the host ships with.
// Declarations live in data/ as YAML; the Go side supplies the extension and
// activation functions, bound by id.
package games

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"survivor/internal/domain"
	"survivor/internal/format"
	"survivor/internal/game"

	"gopkg.in/yaml.v3"
)

//go:embed data
var data embed.FS

var (
	installs = map[string]game.Extension{
		"rolloff":  installRollOff,
		"survivor": installSurvivor,
	}
	behaviors = map[string]func() game.Behavior{
		"lottery": lotteryBehavior,
	}
	activations = map[string]func(*game.Game){
		"golf":  activateGolf,
		"blitz": activateBlitz,
	}
)

// Catalog reads the embedded declarations and binds their Go functions.
func Catalog() (format.Catalog, error) {
	return LoadCatalog(data, "data")
}

// LoadCatalog reads declarations from root/formats and root/modes in fsys.
func LoadCatalog(fsys fs.FS, root string) (format.Catalog, error) {
	var c format.Catalog

	err := readDir(fsys, path.Join(root, "modes"), func(name string, raw []byte) error {
		var m format.ModeDeclaration
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("failed to parse mode %s: %w", name, err)
		}
		m.Activate = activations[domain.ToID(m.ID)]
		c.Modes = append(c.Modes, m)
		return nil
	})
	if err != nil {
		return c, err
	}

	err = readDir(fsys, path.Join(root, "formats"), func(name string, raw []byte) error {
		var d format.Declaration
		if err := yaml.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("failed to parse format %s: %w", name, err)
		}
		id := domain.ToID(d.ID)
		d.Install = installs[id]
		if build, ok := behaviors[id]; ok {
			b := build()
			d.Behavior = &b
		}
		c.Formats = append(c.Formats, d)
		return nil
	})
	return c, err
}

func readDir(fsys fs.FS, dir string, fn func(name string, raw []byte) error) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || (path.Ext(e.Name()) != ".yaml" && path.Ext(e.Name()) != ".yml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		if err := fn(e.Name(), raw); err != nil {
			return err
		}
	}
	return nil
}
