package catalog

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Overlay is an optional data file that adjusts the built-in catalog
// without code changes:
//
//	reference = "JsonFusion"
//
//	[versions]
//	ArduinoJson = "7.2.1"
//
//	[[exclude]]
//	platform = "esp32"
//	library  = "Glaze"
type Overlay struct {
	Reference string            `toml:"reference"`
	Versions  map[string]string `toml:"versions"`
	Exclude   []Exclusion       `toml:"exclude"`
	Include   []Exclusion       `toml:"include"`
}

// LoadOverlay decodes an overlay file. Unknown keys are rejected so typos
// don't silently change nothing.
func LoadOverlay(path string) (Overlay, error) {
	var o Overlay

	meta, err := toml.DecodeFile(path, &o)
	if err != nil {
		return Overlay{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return Overlay{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	return o, nil
}

// Apply returns a copy of the catalog with the overlay applied. Exclusions
// are applied before inclusions.
func (c Catalog) Apply(o Overlay) (Catalog, error) {
	out := c
	out.Libraries = make([]Library, len(c.Libraries))
	copy(out.Libraries, c.Libraries)

	for name, version := range o.Versions {
		idx := out.libraryIndex(name)
		if idx < 0 {
			return Catalog{}, fmt.Errorf("overlay: unknown library %q in [versions]", name)
		}

		out.Libraries[idx].Version = version
	}

	if o.Reference != "" {
		out.Reference = o.Reference
	}

	for _, e := range o.Exclude {
		out = out.Exclude(e.Platform, e.Library)
	}

	for _, e := range o.Include {
		out = out.Include(e.Platform, e.Library)
	}

	if err := out.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("overlay: %w", err)
	}

	return out, nil
}

func (c Catalog) libraryIndex(name string) int {
	for i, l := range c.Libraries {
		if l.Name == name {
			return i
		}
	}

	return -1
}
