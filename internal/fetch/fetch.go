// Package fetch makes sure every dependency of the selected libraries is
// present in the local dependency cache before anything is compiled.
//
// Fetching is idempotent: files and checkouts that already exist are never
// fetched again, so a second run over a populated cache makes no network
// requests and leaves the cache unchanged.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Norgate-AV/footprint/internal/catalog"
	"github.com/Norgate-AV/footprint/internal/compiler"
	"github.com/Norgate-AV/footprint/internal/logging"
)

// Action is what the fetcher did for one cache entry
type Action string

const (
	ActionSkipped    Action = "skipped"
	ActionDownloaded Action = "downloaded"
	ActionCloned     Action = "cloned"
	ActionNormalized Action = "normalized"
)

// Summary counts the actions of one Fetch
type Summary struct {
	Downloaded int
	Cloned     int
	Normalized int
	Skipped    int
}

// Network reports how many downloads and clones were performed
func (s Summary) Network() int {
	return s.Downloaded + s.Cloned
}

func (s *Summary) count(a Action) {
	switch a {
	case ActionDownloaded:
		s.Downloaded++
	case ActionCloned:
		s.Cloned++
	case ActionNormalized:
		s.Normalized++
	case ActionSkipped:
		s.Skipped++
	}
}

// Fetcher populates a dependency cache directory
type Fetcher struct {
	dir    string
	client *http.Client
	git    compiler.Commander
	logger *slog.Logger
	notify func(Action, string)
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithGit replaces the commander used to run git
func WithGit(c compiler.Commander) Option {
	return func(f *Fetcher) { f.git = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithNotify registers a callback invoked once per cache entry handled
func WithNotify(fn func(Action, string)) Option {
	return func(f *Fetcher) { f.notify = fn }
}

// New creates a fetcher for the cache directory dir
func New(dir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		dir:    dir,
		client: http.DefaultClient,
		git:    compiler.ExecCommander{},
		logger: logging.Discard(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Dir returns the cache directory
func (f *Fetcher) Dir() string {
	return f.dir
}

// Fetch acquires every dependency of libs. The first failure aborts and is
// returned; there are no retries.
func (f *Fetcher) Fetch(ctx context.Context, libs []catalog.Library) (Summary, error) {
	var sum Summary

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return sum, fmt.Errorf("failed to create dependency cache: %w", err)
	}

	seen := make(map[string]bool)
	for _, lib := range libs {
		for _, dep := range lib.Deps {
			if seen[dep.Location] {
				continue
			}

			seen[dep.Location] = true

			action, err := f.acquire(ctx, dep)
			if err != nil {
				return sum, fmt.Errorf("%s: %w", lib.Name, err)
			}

			f.record(&sum, action, dep.Target())

			for _, r := range dep.Normalize {
				action, err := f.normalize(r)
				if err != nil {
					return sum, fmt.Errorf("%s: %w", lib.Name, err)
				}

				f.record(&sum, action, r.To)
			}
		}
	}

	return sum, nil
}

func (f *Fetcher) record(sum *Summary, a Action, target string) {
	sum.count(a)
	f.logger.Debug("dependency", "action", a, "target", target)

	if f.notify != nil {
		f.notify(a, target)
	}
}

func (f *Fetcher) acquire(ctx context.Context, dep catalog.Dependency) (Action, error) {
	switch dep.Kind {
	case catalog.KindURL:
		return f.download(ctx, dep)
	case catalog.KindRepo:
		return f.clone(ctx, dep)
	default:
		return "", fmt.Errorf("unknown dependency kind %q for %s", dep.Kind, dep.Location)
	}
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}

func (f *Fetcher) download(ctx context.Context, dep catalog.Dependency) (Action, error) {
	dest := filepath.Join(f.dir, dep.Target())

	ok, err := exists(dest)
	if err != nil {
		return "", err
	}

	if ok {
		return ActionSkipped, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dep.Location, nil)
	if err != nil {
		return "", fmt.Errorf("invalid dependency URL %s: %w", dep.Location, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", dep.Location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to download %s: %s", dep.Location, resp.Status)
	}

	// Write next to the destination first so an interrupted transfer never
	// leaves a partial file under the final name
	tmp, err := os.CreateTemp(f.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to download %s: %w", dep.Location, err)
	}

	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", dep.Target(), err)
	}

	return ActionDownloaded, nil
}

func (f *Fetcher) clone(ctx context.Context, dep catalog.Dependency) (Action, error) {
	dest := filepath.Join(f.dir, dep.Target())

	ok, err := exists(dest)
	if err != nil {
		return "", err
	}

	if ok {
		return ActionSkipped, nil
	}

	args := []string{"clone", "--depth", "1"}
	if dep.Ref != "" {
		args = append(args, "--branch", dep.Ref)
	}

	args = append(args, dep.Location, dest)

	out, err := f.git.Run(ctx, compiler.Invocation{Name: "git", Args: args})
	if err != nil {
		if out.Stderr != "" {
			return "", fmt.Errorf("failed to clone %s: %w\n%s", dep.Location, err, out.Stderr)
		}

		return "", fmt.Errorf("failed to clone %s: %w", dep.Location, err)
	}

	return ActionCloned, nil
}

func (f *Fetcher) normalize(r catalog.Rename) (Action, error) {
	dst := filepath.Join(f.dir, r.To)

	ok, err := exists(dst)
	if err != nil {
		return "", err
	}

	if ok {
		return ActionSkipped, nil
	}

	data, err := os.ReadFile(filepath.Join(f.dir, r.From))
	if err != nil {
		return "", fmt.Errorf("failed to normalize %s: %w", r.From, err)
	}

	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to normalize %s: %w", r.From, err)
	}

	return ActionNormalized, nil
}
