package vimcov_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tmc/vimcov"
)

func mustParse(t *testing.T, report string) *vimcov.Profile {
	t.Helper()
	p, err := vimcov.ParseProfile(strings.NewReader(report))
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	return p
}

func TestMergedProfile_CombinesCounts(t *testing.T) {
	// Scenario 5: Profile A reports x.vim:10 count 2; Profile B reports
	// x.vim:10 count 3 and x.vim:11 count 1. Merged: {10: 5, 11: 1}.
	reportA := "SCRIPT  /t/x.vim\nSourced 1 time\ncount  total (s)   self (s)\n" +
		dataLine("0", "pad") + "\n" +
		strings.Repeat(dataLine("", "pad")+"\n", 8) +
		dataLine("2", "echo 10") + "\n\n"
	reportB := "SCRIPT  /t/x.vim\nSourced 1 time\ncount  total (s)   self (s)\n" +
		dataLine("0", "pad") + "\n" +
		strings.Repeat(dataLine("", "pad")+"\n", 8) +
		dataLine("3", "echo 10") + "\n" +
		dataLine("1", "echo 11") + "\n\n"

	a := mustParse(t, reportA)
	b := mustParse(t, reportB)

	m := vimcov.NewMergedProfile()
	m.Add(a)
	m.Add(b)
	record := m.CoverageRecord()

	lines := record.SortedLines("/t/x.vim")
	if len(lines) != 2 || lines[0] != 10 || lines[1] != 11 {
		t.Fatalf("covered lines = %v, want [10 11]", lines)
	}

	m2 := vimcov.NewMergedProfile()
	m2.Add(b)
	m2.Add(a)
	record2 := m2.CoverageRecord()
	if diff := cmp.Diff(record.SortedLines("/t/x.vim"), record2.SortedLines("/t/x.vim")); diff != "" {
		t.Errorf("merge order changed the covered set (-AB +BA):\n%s", diff)
	}
}

func TestMergedProfile_Empty(t *testing.T) {
	m := vimcov.NewMergedProfile()
	record := m.CoverageRecord()
	if len(record.Files) != 0 {
		t.Errorf("expected an empty coverage record, got %v", record.Files)
	}
}

func TestMergedProfile_Memoization(t *testing.T) {
	report := "SCRIPT  /t/x.vim\nSourced 1 time\ncount  total (s)   self (s)\n" +
		dataLine("1", "echo 1") + "\n\n"

	m := vimcov.NewMergedProfile()
	first := m.CoverageRecord()
	second := m.CoverageRecord()
	if first != second {
		t.Error("expected CoverageRecord to be memoised when the Profile set is unchanged")
	}

	m.Add(mustParse(t, report))
	third := m.CoverageRecord()
	if third == first {
		t.Error("expected Add to invalidate the cached coverage record")
	}
}

func TestMergedProfile_SourceRootFiltering(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.vim")
	if err := os.WriteFile(keep, []byte("echo 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	report := "SCRIPT  /tmp/outside.vim\nSourced 1 time\ncount  total (s)   self (s)\n" +
		dataLine("1", "echo 1") + "\n\n"

	m := vimcov.NewMergedProfile(vimcov.WithSourceRoots(dir))
	m.Add(mustParse(t, report))
	record := m.CoverageRecord()

	if _, ok := record.Files["/tmp/outside.vim"]; ok {
		t.Error("expected the out-of-root file to be dropped")
	}
	if _, ok := record.Files[keep]; !ok {
		t.Errorf("expected %s (executable, under root, uncovered) to appear as an empty entry", keep)
	}
	if len(record.Files[keep]) != 0 {
		t.Errorf("expected %s to have no covered lines, got %v", keep, record.Files[keep])
	}
}

func TestCoverageRecord_TracerTag(t *testing.T) {
	report := "SCRIPT  /t/x.vim\nSourced 1 time\ncount  total (s)   self (s)\n" +
		dataLine("1", "echo 1") + "\n\n"
	m := vimcov.NewMergedProfile()
	m.Add(mustParse(t, report))
	record := m.CoverageRecord()
	if record.Tracer["/t/x.vim"] != vimcov.TracerTag {
		t.Errorf("Tracer[/t/x.vim] = %q, want %q", record.Tracer["/t/x.vim"], vimcov.TracerTag)
	}
}
