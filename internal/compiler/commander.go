package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/Norgate-AV/footprint/internal/codes"
)

// Invocation is one external tool call
type Invocation struct {
	Name  string
	Args  []string
	Dir   string
	Stdin io.Reader
}

// String renders the invocation as a shell-like command line
func (inv Invocation) String() string {
	if len(inv.Args) == 0 {
		return inv.Name
	}

	return inv.Name + " " + strings.Join(inv.Args, " ")
}

// Output holds the captured streams of a finished invocation
type Output struct {
	Stdout string
	Stderr string
}

// Commander interface for testing
type Commander interface {
	Run(ctx context.Context, inv Invocation) (Output, error)
}

// ExitError is returned when a tool exits with a non-zero status
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.Code, codes.GetErrorMessage(e.Code))
}

// ExecCommander runs tools as child processes
type ExecCommander struct{}

// Run executes inv and captures stdout and stderr. A non-zero exit is
// reported as *ExitError with the captured output still returned.
func (ExecCommander) Run(ctx context.Context, inv Invocation) (Output, error) {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdin = inv.Stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{Tool: inv.Name, Code: exitErr.ExitCode(), Stderr: out.Stderr}
	}

	return out, fmt.Errorf("failed to run %s: %w", inv.Name, err)
}
