package assertions

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// streamMu serializes redirection of the process-wide standard streams
	streamMu sync.Mutex
	// streamOwner is the goroutine holding streamMu, 0 when free
	streamOwner atomic.Uint64
)

// Output runs fn with os.Stdout and os.Stderr redirected into buffers and
// checks what was written against the expected patterns. A pattern is a
// string (compiled in multi-line mode), a *regexp.Regexp, or nil to skip that
// stream. The original streams are restored before any check is made, on
// every exit path. Both captured strings are returned.
func Output(stdout, stderr any, fn func(), msgAndArgs ...any) (string, string) {
	if id := goroutineID(); id != 0 && streamOwner.Load() == id {
		fail("nested Output: the standard streams are already being captured")
	}
	out, errOut, err := captureStreams(fn)
	if err != nil {
		fail(fmt.Sprintf("capturing output: %v", err))
	}
	opts := options(msgAndArgs)
	if stdout != nil {
		checkStream("stdout", stdout, out, opts)
	}
	if stderr != nil {
		checkStream("stderr", stderr, errOut, opts)
	}
	return out, errOut
}

func checkStream(name string, pattern any, got string, opts []Option) {
	re, err := compilePattern(pattern)
	if err != nil {
		fail(fmt.Sprintf("%s: %v", name, err))
	}
	check(re.MatchString(got), func(bool) string {
		return fmt.Sprintf("%s: expected /%s/ to match %q", name, re, got)
	}, opts...)
}

// captureStreams swaps the standard streams for pipes for the dynamic extent
// of fn. A panic in fn is re-raised after the streams are restored.
func captureStreams(fn func()) (stdout, stderr string, err error) {
	streamMu.Lock()
	defer streamMu.Unlock()
	streamOwner.Store(goroutineID())
	defer streamOwner.Store(0)

	outR, outW, err := os.Pipe()
	if err != nil {
		return "", "", err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return "", "", err
	}

	var outBuf, errBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go drain(&wg, &outBuf, outR)
	go drain(&wg, &errBuf, errR)

	origOut, origErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = outW, errW
	defer func() {
		os.Stdout, os.Stderr = origOut, origErr
		outW.Close()
		errW.Close()
		wg.Wait()
		stdout, stderr = outBuf.String(), errBuf.String()
	}()

	fn()
	return "", "", nil
}

func drain(wg *sync.WaitGroup, dst *bytes.Buffer, r *os.File) {
	defer wg.Done()
	defer r.Close()
	_, _ = io.Copy(dst, r)
}

// goroutineID parses the current goroutine's id from its stack header,
// "goroutine 18 [running]:". It returns 0 if the header cannot be read.
func goroutineID() uint64 {
	var buf [64]byte
	header := strings.TrimPrefix(string(buf[:runtime.Stack(buf[:], false)]), "goroutine ")
	if i := strings.IndexByte(header, ' '); i > 0 {
		header = header[:i]
	}
	id, err := strconv.ParseUint(header, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
