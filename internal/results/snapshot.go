package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Norgate-AV/footprint/internal/utils"
)

// Snapshot is the persisted result of one platform run
type Snapshot struct {
	Platform    string            `json:"platform"`
	PlatformID  string            `json:"platform_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Results     *Table            `json:"results"`
	Versions    map[string]string `json:"versions"`
}

// Marshal renders the snapshot as indented JSON with a trailing newline
func (s Snapshot) Marshal() ([]byte, error) {
	if s.Results == nil {
		s.Results = NewTable()
	}

	if s.Versions == nil {
		s.Versions = map[string]string{}
	}

	s.GeneratedAt = s.GeneratedAt.UTC().Truncate(time.Second)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}

	return append(data, '\n'), nil
}

// Write persists the snapshot as results_<platform-id>.json in dir and
// returns the file path
func Write(dir string, s Snapshot) (string, error) {
	data, err := s.Marshal()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	path := filepath.Join(dir, utils.ResultsFileName(s.PlatformID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}

	return path, nil
}

// Read loads a snapshot written by Write
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read results: %w", err)
	}

	s := Snapshot{Results: NewTable()}
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%s: invalid results file: %w", path, err)
	}

	if s.Versions == nil {
		s.Versions = map[string]string{}
	}

	return s, nil
}
