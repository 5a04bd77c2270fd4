// Package report renders mining results and throughput for a human reader.
package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/screa/salty/internal/crypto"
	"github.com/screa/salty/pkg/types"
	"golang.org/x/term"
)

// clearLine returns the cursor to the start of the line and erases it.
const clearLine = "\r\033[K"

// Display prints each result once and keeps a status line with runtime,
// speed and difficulty. On a terminal the status line is redrawn in place;
// otherwise it is logged. Display is safe for concurrent use.
type Display struct {
	mu     sync.Mutex
	out    io.Writer
	tty    bool
	status bool                // a status line is currently drawn
	seen   map[string]struct{} // salts already printed

	// replayed is how much of the cumulative Progress.Found list has been
	// looked at, so each tick only inspects new entries.
	replayed int
}

// NewDisplay returns a Display writing to out. Status lines are redrawn only
// when out is a terminal.
func NewDisplay(out io.Writer) *Display {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return newDisplay(out, tty)
}

func newDisplay(out io.Writer, tty bool) *Display {
	return &Display{out: out, tty: tty, seen: make(map[string]struct{})}
}

// Found prints res unless its salt was already printed.
func (d *Display) Found(res types.FoundResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.found(res)
}

func (d *Display) found(res types.FoundResult) {
	if _, ok := d.seen[res.Salt]; ok {
		return
	}
	d.seen[res.Salt] = struct{}{}
	if d.status {
		io.WriteString(d.out, clearLine)
		d.status = false
	}
	fmt.Fprintf(d.out, "Found salt %s -> %s\n", res.Salt, crypto.ChecksumAddress(res.Address))
	log.Debugf("Result %s for pattern %s", res.Address, res.Pattern)
}

// Progress prints any results not yet shown and updates the status line.
// p.Found is the cumulative result list of the run; only entries past the
// ones seen on earlier calls are considered.
func (d *Display) Progress(p types.Progress) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(p.Found) > d.replayed {
		for _, res := range p.Found[d.replayed:] {
			d.found(res)
		}
		d.replayed = len(p.Found)
	}

	line := Status(p)
	if !d.tty {
		log.Info(line)
		return
	}
	fmt.Fprint(d.out, clearLine+line)
	d.status = true
}

// Close ends the status line so that later output starts on a fresh line.
func (d *Display) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status {
		io.WriteString(d.out, "\n")
		d.status = false
	}
}

// Status formats a one-line throughput summary.
func Status(p types.Progress) string {
	return fmt.Sprintf("Runtime: %s | Speed: %.2f million attempts per second | Pattern: %d bytes, ~%s attempts per match",
		p.Elapsed.Round(time.Second), Speed(p), p.PatternLen, ExpectedAttempts(p.PatternLen).PrettyDec(','))
}

// Speed returns the work rate in millions of attempts per second.
func Speed(p types.Progress) float64 {
	secs := p.Elapsed.Seconds()
	if p.WorkRate == nil || secs <= 0 {
		return 0
	}
	return p.WorkRate.Float64() / secs
}

// ExpectedAttempts is the mean number of candidates per match for a pattern
// of patternLen bytes, 256^patternLen.
func ExpectedAttempts(patternLen int) *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(1), uint(8*patternLen))
}
