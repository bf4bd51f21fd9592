// Package covwriter renders a [vimcov.CoverageRecord] into the two
// open, widely-consumed text coverage formats the downstream tooling
// ecosystem already understands: Go's own "mode: set" cover-profile
// format and the LCOV .info format. Neither requires reading or
// writing the binary coverage-database layout vimcov's core
// deliberately does not reimplement (§1 Non-goals).
//
// WriteGoCoverProfile generalizes the teacher's
// synthetic.BasicTracker.generateTextProfile, which hard-coded a
// single synthetic file path per tracker, into one that walks an
// arbitrary CoverageRecord's files and lines.
package covwriter

import (
	"bufio"
	"fmt"
	"io"

	"github.com/tmc/vimcov"
)

// WriteGoCoverProfile writes record in Go's textual cover-profile
// format ("mode: set" followed by one "file:startLine.1,endLine.2
// numStmt count" line per covered span). Each source line becomes its
// own single-statement span, since the profile report carries no
// column information.
func WriteGoCoverProfile(w io.Writer, record *vimcov.CoverageRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "mode: set"); err != nil {
		return err
	}
	for _, path := range record.SortedFiles() {
		for _, lnum := range record.SortedLines(path) {
			if _, err := fmt.Fprintf(bw, "%s:%d.1,%d.2 1 1\n", path, lnum, lnum); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteLCOV writes record as an LCOV .info file: one SF:/DA:.../end_of_record
// stanza per file, sorted for deterministic output. vimcov tracks no
// function-level or branch data, so only DA (line) records are
// emitted, followed by the LF/LH line summary records; no FN, FNF or
// FNH records are written.
func WriteLCOV(w io.Writer, record *vimcov.CoverageRecord) error {
	bw := bufio.NewWriter(w)
	for _, path := range record.SortedFiles() {
		if _, err := fmt.Fprintf(bw, "TN:\nSF:%s\n", path); err != nil {
			return err
		}
		lines := record.SortedLines(path)
		for _, lnum := range lines {
			if _, err := fmt.Fprintf(bw, "DA:%d,1\n", lnum); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "LF:%d\nLH:%d\nend_of_record\n", len(lines), len(lines)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
