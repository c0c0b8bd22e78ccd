// Package results stores measured code sizes and derives comparisons from
// them.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Table maps config name to library name to measured .text bytes. Configs
// and libraries keep insertion order, which is build order. A size of 0
// means unmeasured.
type Table struct {
	configs []string
	rows    map[string]*row
}

type row struct {
	libs  []string
	sizes map[string]uint64
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{rows: make(map[string]*row)}
}

// Set records size for (config, lib), replacing any earlier value in place
func (t *Table) Set(config, lib string, size uint64) {
	if t.rows == nil {
		t.rows = make(map[string]*row)
	}

	r, ok := t.rows[config]
	if !ok {
		r = &row{sizes: make(map[string]uint64)}
		t.rows[config] = r
		t.configs = append(t.configs, config)
	}

	if _, seen := r.sizes[lib]; !seen {
		r.libs = append(r.libs, lib)
	}

	r.sizes[lib] = size
}

// Get returns the size recorded for (config, lib)
func (t *Table) Get(config, lib string) (uint64, bool) {
	r, ok := t.rows[config]
	if !ok {
		return 0, false
	}

	size, ok := r.sizes[lib]
	return size, ok
}

// Configs returns the config names in insertion order
func (t *Table) Configs() []string {
	return append([]string(nil), t.configs...)
}

// Libraries returns the libraries recorded for config in insertion order
func (t *Table) Libraries(config string) []string {
	r, ok := t.rows[config]
	if !ok {
		return nil
	}

	return append([]string(nil), r.libs...)
}

// AllLibraries returns every library in first-seen order across configs
func (t *Table) AllLibraries() []string {
	seen := make(map[string]bool)
	var libs []string

	for _, c := range t.configs {
		for _, l := range t.rows[c].libs {
			if !seen[l] {
				seen[l] = true
				libs = append(libs, l)
			}
		}
	}

	return libs
}

// Len returns the number of libraries recorded for config
func (t *Table) Len(config string) int {
	if r, ok := t.rows[config]; ok {
		return len(r.libs)
	}

	return 0
}

// Empty reports whether nothing has been recorded
func (t *Table) Empty() bool {
	return len(t.configs) == 0
}

// KB converts bytes to kilobytes rounded to one decimal
func KB(b uint64) float64 {
	return math.Round(float64(b)/1024*10) / 10
}

type sizeJSON struct {
	Bytes uint64  `json:"bytes"`
	KB    float64 `json:"kb"`
}

// MarshalJSON writes configs and libraries in insertion order
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, c := range t.configs {
		if i > 0 {
			buf.WriteByte(',')
		}

		if err := writeKey(&buf, c); err != nil {
			return nil, err
		}

		buf.WriteByte('{')

		r := t.rows[c]
		for j, l := range r.libs {
			if j > 0 {
				buf.WriteByte(',')
			}

			if err := writeKey(&buf, l); err != nil {
				return nil, err
			}

			v, err := json.Marshal(sizeJSON{Bytes: r.sizes[l], KB: KB(r.sizes[l])})
			if err != nil {
				return nil, err
			}

			buf.Write(v)
		}

		buf.WriteByte('}')
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}

	buf.Write(k)
	buf.WriteByte(':')

	return nil
}

// UnmarshalJSON reads a table keeping the document order of keys
func (t *Table) UnmarshalJSON(data []byte) error {
	*t = Table{rows: make(map[string]*row)}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	for dec.More() {
		config, err := readKey(dec)
		if err != nil {
			return err
		}

		if err := expectDelim(dec, '{'); err != nil {
			return fmt.Errorf("config %q: %w", config, err)
		}

		for dec.More() {
			lib, err := readKey(dec)
			if err != nil {
				return err
			}

			var v sizeJSON
			if err := dec.Decode(&v); err != nil {
				return fmt.Errorf("config %q library %q: %w", config, lib, err)
			}

			t.Set(config, lib, v.Bytes)
		}

		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
	}

	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}

	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}

	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}

	return key, nil
}
