// Package catalog holds the static platform and library registries that
// define the build matrix.
//
// Everything here is plain data. Whether a library takes part in a
// platform's run is decided by a pure predicate over capability tags and
// explicit exclusions, so adding or removing an exclusion never touches
// pipeline code.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"
)

// Capability is a declarative feature tag a platform may lack and a library
// may require
type Capability string

const (
	// CapAtomics is hardware or libatomic support for atomic operations
	CapAtomics Capability = "atomics"

	// CapHostedStdlib is a hosted C++ standard library (containers, <atomic>, ...)
	CapHostedStdlib Capability = "hosted-stdlib"
)

// ErrUnknownPlatform is returned when a platform selector matches no entry
var ErrUnknownPlatform = errors.New("unknown platform")

// DependencyKind tells the fetcher how to acquire a dependency
type DependencyKind string

const (
	KindURL  DependencyKind = "url"
	KindRepo DependencyKind = "repo"
)

// Rename copies a fetched file to the canonical name its includer expects
type Rename struct {
	From string
	To   string
}

// Dependency is an external header, source file or repository a library
// needs in the local cache before it compiles
type Dependency struct {
	Kind     DependencyKind
	Location string

	// Dir overrides the clone directory of a repo dependency
	Dir string

	// Ref is an optional branch or tag for repo dependencies
	Ref string

	// Normalize lists copies made inside the cache after fetching
	Normalize []Rename
}

// URL declares a single-file dependency retrieved over HTTP
func URL(location string, normalize ...Rename) Dependency {
	return Dependency{Kind: KindURL, Location: location, Normalize: normalize}
}

// Repo declares a repository dependency checked out shallowly
func Repo(location, dir, ref string) Dependency {
	return Dependency{Kind: KindRepo, Location: location, Dir: dir, Ref: ref}
}

// Target returns the file or directory name the dependency occupies in the
// cache directory
func (d Dependency) Target() string {
	if d.Kind == KindRepo && d.Dir != "" {
		return d.Dir
	}

	p := d.Location
	if u, err := url.Parse(d.Location); err == nil && u.Path != "" {
		p = u.Path
	}

	name := path.Base(p)
	if d.Kind == KindRepo {
		name = strings.TrimSuffix(name, ".git")
	}

	return name
}

// BuildConfig is one optimization profile of a platform. Flags bundles the
// architecture flags and the optimization level.
type BuildConfig struct {
	Name  string
	Flags []string
}

// Platform is a cross-compilation target and its invocation conventions
type Platform struct {
	// ID is the CLI selector (e.g. "arm")
	ID string

	// Name is the display name (e.g. "ARM Cortex-M")
	Name string

	// Prefix is prepended to every tool name (e.g. "arm-none-eabi-")
	Prefix string

	// Std is the C++ dialect passed as -std=
	Std string

	// Flags are passed to both compile and link
	Flags []string

	// Specs are extra linker arguments
	Specs []string

	// Configs are the optimization profiles, in build order
	Configs []BuildConfig

	// Lacks lists capability gaps of the target
	Lacks []Capability
}

// Has reports whether the platform provides capability c
func (p Platform) Has(c Capability) bool {
	return !slices.Contains(p.Lacks, c)
}

// Tool returns the prefixed name of a toolchain binary
func (p Platform) Tool(name string) string {
	return p.Prefix + name
}

// Config returns the build config with the given name
func (p Platform) Config(name string) (BuildConfig, bool) {
	for _, c := range p.Configs {
		if c.Name == name {
			return c, true
		}
	}

	return BuildConfig{}, false
}

// Library is one benchmark candidate
type Library struct {
	Name        string
	Source      string
	Description string
	Version     string
	Deps        []Dependency

	// Includes are extra include directories relative to the dependency cache
	Includes []string

	// Requires lists capabilities the library cannot build without
	Requires []Capability
}

// Exclusion removes one library from one platform's run
type Exclusion struct {
	Platform string `toml:"platform"`
	Library  string `toml:"library"`
}

// Catalog is the complete build matrix definition
type Catalog struct {
	Platforms  []Platform
	Libraries  []Library
	Reference  string
	Exclusions []Exclusion
}

// Platform returns the platform registered under id
func (c Catalog) Platform(id string) (Platform, error) {
	for _, p := range c.Platforms {
		if p.ID == id {
			return p, nil
		}
	}

	return Platform{}, fmt.Errorf("%w %q (supported: %s)", ErrUnknownPlatform, id, strings.Join(c.PlatformIDs(), ", "))
}

// PlatformIDs returns the selectors of every registered platform in declaration order
func (c Catalog) PlatformIDs() []string {
	ids := make([]string, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		ids = append(ids, p.ID)
	}

	return ids
}

// Library returns the library registered under name
func (c Catalog) Library(name string) (Library, bool) {
	for _, l := range c.Libraries {
		if l.Name == name {
			return l, true
		}
	}

	return Library{}, false
}

// Applicable reports whether lib takes part in platform's run
func (c Catalog) Applicable(p Platform, lib Library) bool {
	for _, req := range lib.Requires {
		if !p.Has(req) {
			return false
		}
	}

	return !slices.Contains(c.Exclusions, Exclusion{Platform: p.ID, Library: lib.Name})
}

// ApplicableLibraries filters the master library list for a platform. The
// result keeps declaration order, which is also benchmark and report order.
func (c Catalog) ApplicableLibraries(p Platform) []Library {
	libs := make([]Library, 0, len(c.Libraries))
	for _, lib := range c.Libraries {
		if c.Applicable(p, lib) {
			libs = append(libs, lib)
		}
	}

	return libs
}

// Exclude returns a copy of the catalog with lib excluded from platformID
func (c Catalog) Exclude(platformID, lib string) Catalog {
	e := Exclusion{Platform: platformID, Library: lib}
	if slices.Contains(c.Exclusions, e) {
		return c
	}

	c.Exclusions = append(slices.Clone(c.Exclusions), e)
	return c
}

// Include returns a copy of the catalog without an explicit exclusion of lib
// on platformID. Capability gaps still apply.
func (c Catalog) Include(platformID, lib string) Catalog {
	e := Exclusion{Platform: platformID, Library: lib}
	c.Exclusions = slices.DeleteFunc(slices.Clone(c.Exclusions), func(x Exclusion) bool {
		return x == e
	})

	return c
}

// Versions returns the display version of every given library
func (c Catalog) Versions(libs []Library) map[string]string {
	versions := make(map[string]string, len(libs))
	for _, l := range libs {
		versions[l.Name] = l.Version
	}

	return versions
}

// Validate checks the identity invariants of the catalog
func (c Catalog) Validate() error {
	seenPlatforms := make(map[string]bool)
	for _, p := range c.Platforms {
		if p.ID == "" {
			return fmt.Errorf("platform %q has no id", p.Name)
		}

		if seenPlatforms[p.ID] {
			return fmt.Errorf("duplicate platform id %q", p.ID)
		}

		seenPlatforms[p.ID] = true

		if len(p.Configs) == 0 {
			return fmt.Errorf("platform %q has no build configs", p.ID)
		}

		seenConfigs := make(map[string]bool)
		for _, cfg := range p.Configs {
			if seenConfigs[cfg.Name] {
				return fmt.Errorf("platform %q: duplicate build config %q", p.ID, cfg.Name)
			}

			seenConfigs[cfg.Name] = true
		}
	}

	seenLibs := make(map[string]bool)
	for _, l := range c.Libraries {
		if l.Name == "" || l.Source == "" {
			return fmt.Errorf("library %q is missing a name or source file", l.Name)
		}

		if seenLibs[l.Name] {
			return fmt.Errorf("duplicate library %q", l.Name)
		}

		seenLibs[l.Name] = true
	}

	if c.Reference != "" && !seenLibs[c.Reference] {
		return fmt.Errorf("reference library %q is not registered", c.Reference)
	}

	for _, e := range c.Exclusions {
		if !seenPlatforms[e.Platform] {
			return fmt.Errorf("exclusion names unknown platform %q", e.Platform)
		}

		if !seenLibs[e.Library] {
			return fmt.Errorf("exclusion names unknown library %q", e.Library)
		}
	}

	return nil
}
