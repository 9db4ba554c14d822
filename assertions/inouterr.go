package assertions

import (
	"context"
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-harness/process"
)

// InOutErr spawns a child through spawner with args and stdin, then checks
// the captured streams. An expectation is a []string of exact lines, a
// string or *regexp.Regexp pattern, or nil to skip that stream. ANSI escape
// sequences are stripped before comparing. ExitStatus and Success options
// additionally check how the child exited.
func InOutErr(ctx context.Context, spawner process.Spawner, args []string, stdin string, stdout, stderr any, opts ...Option) *process.Result {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	var msgOpts []Option
	if s.message != "" {
		msgOpts = append(msgOpts, Message("%s", s.message))
	}

	res, err := spawner.Spawn(ctx, process.Invocation{Args: args, Stdin: stdin})
	if err != nil {
		fail(fmt.Sprintf("spawning child: %v", err))
	}

	out := stripansi.Strip(res.Stdout)
	errOut := stripansi.Strip(res.Stderr)
	expectStream("stdout", stdout, out, msgOpts)
	expectStream("stderr", stderr, errOut, msgOpts)

	if s.success {
		check(res.Success(), func(bool) string {
			return fmt.Sprintf("expected child to succeed, but got %s\nstderr: %s", res, errOut)
		}, msgOpts...)
	}
	if s.exitStatus != nil {
		want := *s.exitStatus
		check(!res.Signaled && res.ExitCode == want, func(bool) string {
			return fmt.Sprintf("expected exit %d, but got %s", want, res)
		}, msgOpts...)
	}
	return res
}

func expectStream(name string, expected any, got string, opts []Option) {
	switch want := expected.(type) {
	case nil:
	case []string:
		lines := splitLines(got)
		check(objectsAreEqual(normalize(want), lines), func(bool) string {
			return fmt.Sprintf("%s lines differ:\nexpected: %s\nactual  : %s%s",
				name, format(want), format(lines), diff(normalize(want), lines))
		}, opts...)
	default:
		checkStream(name, expected, got, opts)
	}
}

// splitLines returns the lines of s without their terminators
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

func normalize(lines []string) []string {
	if lines == nil {
		return []string{}
	}
	return lines
}
