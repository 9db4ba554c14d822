// Package process spawns child interpreter invocations and captures their output.
package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// Invocation describes one child process run
type Invocation struct {
	Args  []string          // Arguments passed after the spawner's base arguments
	Stdin string            // Text written to the child's standard input
	Dir   string            // Working directory, empty for the current one
	Env   map[string]string // Extra environment variables on top of the parent's
}

// Result holds the captured streams and exit status of a finished child
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Signaled bool // True if the child was terminated by a signal
}

// Success reports whether the child exited normally with status zero
func (r *Result) Success() bool {
	return !r.Signaled && r.ExitCode == 0
}

// String describes the exit status the way shells do
func (r *Result) String() string {
	if r.Signaled {
		return fmt.Sprintf("killed by signal (exit %d)", r.ExitCode)
	}
	return fmt.Sprintf("exit %d", r.ExitCode)
}

// Spawner runs child processes. A non-zero exit status is not an error;
// only a failure to start or wait for the child is.
type Spawner interface {
	Spawn(ctx context.Context, inv Invocation) (*Result, error)
}

// ExecSpawner runs invocations of a fixed binary via os/exec
type ExecSpawner struct {
	binary   string
	baseArgs []string
	log      log.Logger
}

var _ Spawner = (*ExecSpawner)(nil)

// NewExecSpawner creates a spawner for the given binary.
// baseArgs are prepended to every invocation's arguments.
func NewExecSpawner(logger log.Logger, binary string, baseArgs ...string) (*ExecSpawner, error) {
	if binary == "" {
		return nil, errors.New("binary is required")
	}
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	return &ExecSpawner{
		binary:   binary,
		baseArgs: baseArgs,
		log:      logger.New("component", "spawner"),
	}, nil
}

// ParseCommand splits an interpreter command line such as "bash --norc"
// into a binary and its base arguments.
func ParseCommand(logger log.Logger, command string) (*ExecSpawner, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("interpreter command is empty")
	}
	return NewExecSpawner(logger, fields[0], fields[1:]...)
}

// Binary returns the path or name of the binary being run
func (s *ExecSpawner) Binary() string {
	return s.binary
}

// Spawn implements the Spawner interface
func (s *ExecSpawner) Spawn(ctx context.Context, inv Invocation) (*Result, error) {
	args := make([]string, 0, len(s.baseArgs)+len(inv.Args))
	args = append(args, s.baseArgs...)
	args = append(args, inv.Args...)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Dir = inv.Dir
	cmd.Stdin = strings.NewReader(inv.Stdin)
	if len(inv.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range inv.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.log.Debug("Spawning child process", "dir", cmd.Dir, "command", cmd.String())

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrapf(err, "running %s", s.binary)
		}
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// ExitCode reports -1 when the child was killed
			result.Signaled = true
		}
	}

	s.log.Debug("Child process finished", "command", cmd.String(), "status", result.String())
	return result, nil
}
