package report

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/screa/salty/pkg/types"
)

var testResult = types.FoundResult{
	Salt:    "0x1111111111111111111111111111111111111111a5faadaac8946b8a0b6dc5a4",
	Address: "0x00a4a7c77569af12811ea587bc3fe7b1b752902d",
	Pattern: "0x00",
}

func TestExpectedAttempts(t *testing.T) {
	tests := []struct {
		patternLen int
		want       string
	}{
		{0, "1"},
		{1, "256"},
		{2, "65536"},
		{4, "4294967296"},
		{20, "1461501637330902918203684832716283019655932542976"},
	}
	for _, test := range tests {
		if got := ExpectedAttempts(test.patternLen).Dec(); got != test.want {
			t.Errorf("ExpectedAttempts(%d) = %s, want %s", test.patternLen, got, test.want)
		}
	}
}

func TestSpeed(t *testing.T) {
	tests := []struct {
		name string
		p    types.Progress
		want float64
	}{
		{"no elapsed", types.Progress{WorkRate: uint256.NewInt(10)}, 0},
		{"nil rate", types.Progress{Elapsed: time.Second}, 0},
		{"rate", types.Progress{WorkRate: uint256.NewInt(300), Elapsed: 4 * time.Second}, 75},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Speed(test.p); got != test.want {
				t.Errorf("Speed() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	got := Status(types.Progress{
		WorkRate:   uint256.NewInt(150),
		Elapsed:    61*time.Second + 400*time.Millisecond,
		PatternLen: 2,
	})
	want := "Runtime: 1m1s | Speed: 2.44 million attempts per second | Pattern: 2 bytes, ~65,536 attempts per match"
	if got != want {
		t.Errorf("Status() =\n%s\nwant\n%s", got, want)
	}
}

func TestDisplayFoundOnce(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplay(&buf)

	d.Found(testResult)
	d.Found(testResult)
	d.Progress(types.Progress{Found: []types.FoundResult{testResult}, Elapsed: time.Second})

	want := "Found salt " + testResult.Salt + " -> 0x00a4a7C77569Af12811eA587bC3Fe7B1B752902D\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestDisplayTerminal(t *testing.T) {
	var buf bytes.Buffer
	d := newDisplay(&buf, true)

	p := types.Progress{WorkRate: uint256.NewInt(10), Elapsed: 5 * time.Second, PatternLen: 1}
	d.Progress(p)
	d.Progress(types.Progress{
		WorkRate:   uint256.NewInt(20),
		Elapsed:    10 * time.Second,
		PatternLen: 1,
		Found:      []types.FoundResult{testResult},
	})
	d.Close()

	out := buf.String()
	if n := strings.Count(out, clearLine); n != 3 {
		t.Errorf("status redraws = %d, want 3 in %q", n, out)
	}
	if !strings.Contains(out, clearLine+"Found salt "+testResult.Salt) {
		t.Errorf("result not printed over the status line: %q", out)
	}
	if !strings.HasSuffix(out, "attempts per match\n") {
		t.Errorf("status line not terminated: %q", out)
	}
}

func TestDisplayManyResults(t *testing.T) {
	var buf bytes.Buffer
	d := newDisplay(&buf, false)

	const n = 5000
	all := make([]types.FoundResult, 0, n)
	for i := 0; i < n; i++ {
		res := testResult
		res.Salt = fmt.Sprintf("0x%064x", i)
		all = append(all, res)
		d.Found(res)
	}

	d.Progress(types.Progress{Found: all, Elapsed: time.Second})
	d.Progress(types.Progress{Found: all, Elapsed: 2 * time.Second})

	if got := strings.Count(buf.String(), "Found salt "); got != n {
		t.Errorf("printed %d results, want %d", got, n)
	}

	// Results that only arrive through Progress are printed once.
	extra := testResult
	extra.Salt = fmt.Sprintf("0x%064x", n)
	all = append(all, extra)
	d.Progress(types.Progress{Found: all, Elapsed: 3 * time.Second})
	d.Progress(types.Progress{Found: all, Elapsed: 4 * time.Second})
	if got := strings.Count(buf.String(), "Found salt "); got != n+1 {
		t.Errorf("printed %d results, want %d", got, n+1)
	}
}
