package results

import (
	"fmt"

	"fortio.org/safecast"
)

// Verdict classifies one library against the reference
type Verdict int

const (
	Equal Verdict = iota
	RefSmaller
	RefLarger

	// Unmeasured means one of the two sizes is 0 and no arithmetic was done
	Unmeasured
)

func (v Verdict) String() string {
	switch v {
	case Equal:
		return "equal"
	case RefSmaller:
		return "reference smaller"
	case RefLarger:
		return "reference larger"
	case Unmeasured:
		return "unmeasured"
	default:
		return "unknown"
	}
}

// Delta is the reference compared against one other library
type Delta struct {
	Library string
	Other   uint64

	// Bytes is reference minus other; positive when the reference is larger
	Bytes int64

	// Percent is |Bytes| * 100 / Other, truncated. Zero unless the verdict
	// is RefSmaller or RefLarger.
	Percent int64

	Verdict Verdict
}

// Comparison is the per-config report of every library against the reference
type Comparison struct {
	Config    string
	Reference string
	RefSize   uint64
	HasRef    bool
	Sizes     []LibrarySize
	Deltas    []Delta
}

// LibrarySize is one library's size in build order
type LibrarySize struct {
	Library string
	Bytes   uint64
}

// Compare builds the comparison for config. ok is false when fewer than two
// libraries have results.
func Compare(t *Table, config, reference string) (Comparison, bool) {
	if t.Len(config) < 2 {
		return Comparison{}, false
	}

	cmp := Comparison{Config: config, Reference: reference}
	for _, lib := range t.Libraries(config) {
		size, _ := t.Get(config, lib)
		cmp.Sizes = append(cmp.Sizes, LibrarySize{Library: lib, Bytes: size})
	}

	refSize, ok := t.Get(config, reference)
	if !ok {
		return cmp, true
	}

	cmp.RefSize = refSize
	cmp.HasRef = true

	for _, s := range cmp.Sizes {
		if s.Library == reference {
			continue
		}

		cmp.Deltas = append(cmp.Deltas, delta(s.Library, refSize, s.Bytes))
	}

	return cmp, true
}

func delta(lib string, ref, other uint64) Delta {
	d := Delta{Library: lib, Other: other, Verdict: Unmeasured}
	if ref == 0 || other == 0 {
		return d
	}

	r, err := safecast.Conv[int64](ref)
	if err != nil {
		return d
	}

	o, err := safecast.Conv[int64](other)
	if err != nil {
		return d
	}

	d.Bytes = r - o
	switch {
	case d.Bytes == 0:
		d.Verdict = Equal
		return d
	case d.Bytes > 0:
		d.Verdict = RefLarger
	default:
		d.Verdict = RefSmaller
	}

	abs := d.Bytes
	if abs < 0 {
		abs = -abs
	}

	d.Percent = abs * 100 / o

	return d
}

// Line is one rendered line of a comparison
type Line struct {
	Text    string
	Verdict Verdict

	// Narrative is false for the plain size rows
	Narrative bool
}

// Lines renders the size rows followed by one narrative line per delta
func (c Comparison) Lines() []Line {
	lines := make([]Line, 0, len(c.Sizes)+len(c.Deltas))
	for _, s := range c.Sizes {
		lines = append(lines, Line{Text: fmt.Sprintf("%-20s .text: %7d bytes", s.Library, s.Bytes)})
	}

	for _, d := range c.Deltas {
		lines = append(lines, Line{Text: d.Narrative(c.Reference), Verdict: d.Verdict, Narrative: true})
	}

	return lines
}

// Narrative renders the delta as a sentence about reference
func (d Delta) Narrative(reference string) string {
	switch d.Verdict {
	case RefSmaller:
		return fmt.Sprintf("→ %s is %d bytes (%d%%) smaller than %s", reference, -d.Bytes, d.Percent, d.Library)
	case RefLarger:
		return fmt.Sprintf("→ %s is %d bytes (%d%%) larger than %s", reference, d.Bytes, d.Percent, d.Library)
	case Equal:
		return fmt.Sprintf("→ %s and %s are the same size", reference, d.Library)
	default:
		return fmt.Sprintf("→ %s vs %s: size unmeasured, no comparison", reference, d.Library)
	}
}
