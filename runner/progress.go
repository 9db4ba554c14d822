package runner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// MainID is the worker id the dispatcher logs under
const MainID = "main"

// Progress writes time-stamped progress lines of the form
//
//	[<worker-id> <elapsed-seconds>] <message>
//
// with the elapsed time printed to four decimals. Writes are serialized so
// lines from concurrent workers never interleave.
type Progress struct {
	mu    sync.Mutex
	w     io.Writer
	now   func() time.Time
	start time.Time
}

// NewProgress creates a progress writer. The clock defaults to time.Now and
// the elapsed time is measured from this call.
func NewProgress(w io.Writer, now func() time.Time) *Progress {
	if w == nil {
		w = os.Stderr
	}
	if now == nil {
		now = time.Now
	}
	return &Progress{w: w, now: now, start: now()}
}

// Logf writes one progress line attributed to id. Line breaks inside the
// message are escaped so every entry stays on a single line.
func (p *Progress) Logf(id string, format string, args ...any) {
	msg := flatten(fmt.Sprintf(format, args...))

	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := p.now().Sub(p.start).Seconds()
	fmt.Fprintf(p.w, "[%s %.4f] %s\n", id, elapsed, msg) //nolint:errcheck
}

var lineBreaks = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\n`)

func flatten(msg string) string {
	return lineBreaks.Replace(strings.TrimRight(msg, "\r\n"))
}
