package covwriter_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/tmc/vimcov"
	"github.com/tmc/vimcov/covwriter"
)

// dataLine builds a profile data line with the count field in columns
// [0,5) and source text starting at column 28, matching the fixed
// column layout §4.2 relies on.
func dataLine(count int, text string) string {
	prefix := fmt.Sprintf("%5d", count)
	for len(prefix) < 28 {
		prefix += " "
	}
	return prefix + text
}

func sampleRecord() *vimcov.CoverageRecord {
	report := "SCRIPT  /t/x.vim\n" +
		"Sourced 1 time\n" +
		"count  total (s)   self (s)\n" +
		dataLine(1, "let g:x = 1") + "\n" +
		dataLine(1, "echo g:x") + "\n" +
		"\n"
	p, err := vimcov.ParseProfile(strings.NewReader(report))
	if err != nil {
		panic(err)
	}
	m := vimcov.NewMergedProfile()
	m.Add(p)
	return m.CoverageRecord()
}

func TestWriteGoCoverProfile(t *testing.T) {
	record := sampleRecord()

	var buf bytes.Buffer
	if err := covwriter.WriteGoCoverProfile(&buf, record); err != nil {
		t.Fatalf("WriteGoCoverProfile: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "mode: set\n") {
		t.Fatalf("missing mode line: %q", out)
	}
	if !strings.Contains(out, "/t/x.vim:1.1,1.2 1 1\n") {
		t.Errorf("missing line 1 span: %q", out)
	}
	if !strings.Contains(out, "/t/x.vim:2.1,2.2 1 1\n") {
		t.Errorf("missing line 2 span: %q", out)
	}
}

func TestWriteLCOV(t *testing.T) {
	record := sampleRecord()

	var buf bytes.Buffer
	if err := covwriter.WriteLCOV(&buf, record); err != nil {
		t.Fatalf("WriteLCOV: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"SF:/t/x.vim\n", "DA:1,1\n", "DA:2,1\n", "LF:2\n", "LH:2\n", "end_of_record\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}

func TestWriteGoCoverProfileEmptyRecord(t *testing.T) {
	m := vimcov.NewMergedProfile()
	var buf bytes.Buffer
	if err := covwriter.WriteGoCoverProfile(&buf, m.CoverageRecord()); err != nil {
		t.Fatalf("WriteGoCoverProfile: %v", err)
	}
	if buf.String() != "mode: set\n" {
		t.Errorf("expected only mode line, got %q", buf.String())
	}
}
