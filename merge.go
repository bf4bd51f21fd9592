package vimcov

import (
	"errors"
	"path/filepath"
	"sort"

	"github.com/tmc/vimcov/sourceroots"
)

// TracerTag is the per-file tracer tag attached to every entry in a
// CoverageRecord, naming the plugin the downstream coverage tool
// should treat these files as belonging to.
const TracerTag = "vimcov.vimscript_plugin"

// CoverageRecord is the abstract output of ProfileMerger: for each
// absolute source path, the set of line numbers executed at least
// once, plus a constant per-file tracer tag.
type CoverageRecord struct {
	Files  map[string]map[int]bool
	Tracer map[string]string
}

// SortedFiles returns the record's file paths in ascending order. Path
// ordering is not otherwise defined (§5).
func (r *CoverageRecord) SortedFiles() []string {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SortedLines returns the covered line numbers for path in ascending
// order.
func (r *CoverageRecord) SortedLines(path string) []int {
	lines := make([]int, 0, len(r.Files[path]))
	for n := range r.Files[path] {
		lines = append(lines, n)
	}
	sort.Ints(lines)
	return lines
}

// MergedProfile combines several parsed Profiles into a single
// per-script line-count table and exposes the resulting coverage
// record. The record is memoised on first access and invalidated
// whenever the set of Profiles changes.
type MergedProfile struct {
	cfg      *config
	profiles []*Profile

	dirty  bool
	cached *CoverageRecord
}

// NewMergedProfile creates an empty MergedProfile.
func NewMergedProfile(opts ...Option) *MergedProfile {
	return &MergedProfile{cfg: newConfig(opts...), dirty: true}
}

// Add adds a parsed Profile to the set being merged, invalidating any
// cached coverage record.
func (m *MergedProfile) Add(p *Profile) {
	m.profiles = append(m.profiles, p)
	m.dirty = true
}

// AppendTo returns the path, if any, of an existing coverage database
// an external writer should extend. The core never reads or writes it.
func (m *MergedProfile) AppendTo() string {
	return m.cfg.appendTo
}

// mergedLine is the per-path, per-line accumulator used while folding
// Profiles together.
type mergedLine struct {
	line         *Line
	sourcedCount int
}

// CoverageRecord returns the merged coverage record, computing it on
// first access (or after Add invalidated the cache) and returning the
// cached value otherwise.
func (m *MergedProfile) CoverageRecord() *CoverageRecord {
	if !m.dirty && m.cached != nil {
		return m.cached
	}

	byPath := make(map[string]map[int]*mergedLine)
	sourcedCount := make(map[string]int)

	for _, p := range m.profiles {
		for _, s := range p.Scripts {
			lines, ok := byPath[s.Path]
			if !ok {
				lines = make(map[int]*mergedLine)
				byPath[s.Path] = lines
			}
			if s.SourcedCount > sourcedCount[s.Path] {
				sourcedCount[s.Path] = s.SourcedCount
			}
			for lnum, line := range s.Lines {
				if existing, ok := lines[lnum]; ok {
					existing.line = combineLines(existing.line, line)
				} else {
					lines[lnum] = &mergedLine{line: copyLine(line)}
				}
			}
		}
	}

	applyFirstLineWorkaround(byPath, sourcedCount)

	if len(m.cfg.sourceRoots) > 0 {
		byPath = filterBySourceRoots(byPath, m.cfg.sourceRoots, m.cfg.logger)
	}

	record := &CoverageRecord{
		Files:  make(map[string]map[int]bool),
		Tracer: make(map[string]string),
	}
	for path, lines := range byPath {
		covered := make(map[int]bool)
		for lnum, ml := range lines {
			if ml.line.Count != nil && *ml.line.Count > 0 {
				covered[lnum] = true
			}
		}
		record.Files[path] = covered
		record.Tracer[path] = TracerTag
	}

	m.cached = record
	m.dirty = false
	return record
}

func copyLine(l *Line) *Line {
	cp := *l
	return &cp
}

// combineLines implements the commutative, associative count
// combination: a + missing = a; missing + missing = missing; otherwise
// sum. Times combine the same way.
func combineLines(a, b *Line) *Line {
	return &Line{
		Text:  a.Text,
		Count: addOptionalInt(a.Count, b.Count),
		Total: addOptionalFloat(a.Total, b.Total),
		Self:  addOptionalFloat(a.Self, b.Self),
	}
}

func addOptionalInt(a, b *int) *int {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	default:
		v := *a + *b
		return &v
	}
}

// applyFirstLineWorkaround implements §4.5 step 2: if a script's
// sourced count is positive and it has any lines, and line 1 has no
// recorded count but is executable, its count is set to 1 — Vim's
// profiler is known to omit the count for the first line of a script.
func applyFirstLineWorkaround(byPath map[string]map[int]*mergedLine, sourcedCount map[string]int) {
	for path, lines := range byPath {
		if sourcedCount[path] <= 0 || len(lines) == 0 {
			continue
		}
		first, ok := lines[1]
		if !ok || first.line.Count != nil {
			continue
		}
		if !IsExecutable(first.line.Text) {
			continue
		}
		one := 1
		first.line.Count = &one
	}
}

// filterBySourceRoots implements §4.5 step 3: the coverage record is
// restricted to the union of explicit files and executable files
// discovered under any root directory. Paths outside that set are
// dropped and logged; paths in the set with no recorded coverage
// become empty entries.
func filterBySourceRoots(byPath map[string]map[int]*mergedLine, roots []string, logger interface {
	Info(msg string, args ...any)
}) map[string]map[int]*mergedLine {
	files, err := sourceroots.Collect(roots)
	if err != nil {
		var none *sourceroots.NoSourceFilesError
		if !errors.As(err, &none) {
			logger.Info("source root collection failed", "error", err)
			return byPath
		}
		logger.Info("no source files under root", "error", err)
	}

	allowed := make(map[string]bool, len(files))
	for _, f := range files {
		allowed[f] = true
	}

	out := make(map[string]map[int]*mergedLine, len(allowed))
	for path, lines := range byPath {
		abs, aerr := filepath.Abs(path)
		if aerr != nil {
			abs = path
		}
		if allowed[abs] {
			out[abs] = lines
			delete(allowed, abs)
		} else {
			logger.Info("dropping path outside source roots", "path", path)
		}
	}
	for f := range allowed {
		out[f] = make(map[int]*mergedLine)
	}
	return out
}
