package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Norgate-AV/footprint/internal/catalog"
	"github.com/Norgate-AV/footprint/internal/utils"
)

// Stage identifies a pipeline stage.
type Stage string

const (
	StageCompile Stage = "compile"
	StageLink    Stage = "link"
	StageAnalyze Stage = "analyze"
	StageRecord  Stage = "record"
	StageDone    Stage = "done"
	StageFailed  Stage = "failed"
)

// Status describes an event within a stage.
type Status string

const (
	// StatusWorking indicates the stage started.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished.
	StatusDone Status = "done"
	// StatusError indicates the stage failed and the pair is aborted.
	StatusError Status = "error"
	// StatusWarning is a non-fatal finding.
	StatusWarning Status = "warning"
	// StatusInfo carries diagnostic output for display.
	StatusInfo Status = "info"
)

// Pair is one (library, config) build on a platform. Index and Total
// position the library within its config's run, starting at 1.
type Pair struct {
	Platform catalog.Platform
	Config   catalog.BuildConfig
	Library  catalog.Library
	Index    int
	Total    int
}

func (p Pair) String() string {
	return fmt.Sprintf("%s [%s]", p.Library.Name, p.Config.Name)
}

// Stem returns the identity-derived file stem of the pair's artifacts
func (p Pair) Stem() string {
	return utils.ArtifactStem(p.Platform.ID, p.Library.Name, p.Config.Name)
}

// Event reports pipeline progress for one pair.
type Event struct {
	Pair    Pair
	Stage   Stage
	Status  Status
	Message string
	Detail  []string
	Err     error
	Elapsed time.Duration
}

// Sink consumes progress events.
type Sink interface {
	OnEvent(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(e Event) { f(e) }

// Inspector produces extra verification output for a linked executable
type Inspector interface {
	Inspect(path string) ([]string, error)
}

// Artifact holds the files produced for one pair
type Artifact struct {
	Object     string
	Executable string
	Map        string
}

// Names returns the base names of the artifact files
func (a Artifact) Names() []string {
	return []string{filepath.Base(a.Object), filepath.Base(a.Executable), filepath.Base(a.Map)}
}

// ArtifactFor derives the artifact paths of pair inside buildDir
func ArtifactFor(buildDir string, pair Pair) Artifact {
	stem := filepath.Join(buildDir, pair.Stem())
	return Artifact{
		Object:     stem + ".o",
		Executable: stem + ".elf",
		Map:        stem + ".map",
	}
}

// Warning is a non-fatal finding about a pair
type Warning struct {
	Stage   Stage
	Message string
}

// Outcome is everything the pipeline learned about one pair
type Outcome struct {
	Pair     Pair
	Artifact Artifact
	Stage    Stage

	// Size is the recorded .text size, 0 when unmeasured
	Size    uint64
	SizeRaw string

	Sections   []string
	TopSymbols []string
	Inspection []string

	// CompilerOutput and LinkerNotes are diagnostics of successful steps
	CompilerOutput []string
	LinkerNotes    []string

	// Diagnostics is the captured output of the failing step
	Diagnostics []string

	Warnings []Warning

	// Retained is the directory artifacts were copied to, if any
	Retained string
}
