package vimcov

import (
	"log/slog"
	"sort"
	"strings"
)

// MapFunctions resolves every Function in p to a (Script, starting
// line) pair and folds its counts into the Script's lines, iterating
// to a fixed point: functions whose body, once folded, extends a
// Script's name index can unlock the resolution of functions that
// reference them by that name.
func MapFunctions(p *Profile, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	unresolved := p.Functions
	for len(unresolved) > 0 {
		var stillUnresolved []*Function
		for _, f := range unresolved {
			script, start, ok := resolveFunction(p, f, logger)
			if !ok {
				stillUnresolved = append(stillUnresolved, f)
				continue
			}
			foldFunction(script, start, f, logger)
		}
		if len(stillUnresolved) == len(unresolved) {
			for _, f := range stillUnresolved {
				logger.Error("no candidate for function", "error", &NoCandidateForFunctionError{Function: f.Name})
			}
			return
		}
		unresolved = stillUnresolved
	}
}

type candidate struct {
	script *Script
	start  int
	site   int // dict-function definition line, for anonymous candidates
}

func resolveFunction(p *Profile, f *Function, logger *slog.Logger) (*Script, int, bool) {
	if f.IsAnonymous() {
		return resolveAnonymous(p, f, logger)
	}
	return resolveNamed(p, f, logger)
}

func resolveNamed(p *Profile, f *Function, logger *slog.Logger) (*Script, int, bool) {
	// A "    Defined: <path>:<line>" header names the owning script and
	// starting line directly; honor it without going through the
	// name-index lookup below, since the declared line may not be one
	// recordFunctionHeader ever indexed (e.g. its header line carried no
	// count and wasn't line 1).
	if f.DeclaredScript != nil {
		return f.DeclaredScript, f.DeclaredLine, true
	}

	key := StripSNRPrefix(f.Name)

	var candidates []candidate
	for _, s := range p.Scripts {
		starts := append([]int(nil), s.FuncLines[key]...)
		sort.Ints(starts)
		for _, start := range starts {
			if sourceContainsFunc(s, start, f) {
				candidates = append(candidates, candidate{script: s, start: start})
			}
		}
	}
	if len(candidates) == 0 {
		return nil, 0, false
	}
	if len(candidates) > 1 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.script.Path
		}
		logger.Warn("ambiguous candidates", "error", &AmbiguousCandidatesError{Function: f.Name, Candidates: names})
	}
	return candidates[0].script, candidates[0].start, true
}

func resolveAnonymous(p *Profile, f *Function, logger *slog.Logger) (*Script, int, bool) {
	if cached, ok := p.anonCache[f.Name]; ok {
		return cached.script, cached.start, cached.ok
	}

	var candidates []candidate
	for _, s := range p.Scripts {
		sites := make([]int, 0, len(s.DictFuncLines))
		for lnum := range s.DictFuncLines {
			if s.MappedDictLines[lnum] {
				continue
			}
			sites = append(sites, lnum)
		}
		sort.Ints(sites)
		for _, lnum := range sites {
			// The dict header line itself is the candidate's starting
			// line: the fold formula s_lnum = start + f_lnum already
			// adds the +1 that puts the function's first body line
			// (f_lnum 1) at script line lnum+1.
			start := lnum
			if sourceContainsFunc(s, start, f) {
				candidates = append(candidates, candidate{script: s, start: start, site: lnum})
			}
		}
	}
	if len(candidates) == 0 {
		p.anonCache[f.Name] = anonResolution{ok: false}
		return nil, 0, false
	}
	if len(candidates) > 1 {
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.script.Path
		}
		logger.Warn("ambiguous candidates", "error", &AmbiguousCandidatesError{Function: f.Name, Candidates: names})
	}
	chosen := candidates[0]
	chosen.script.MappedDictLines[chosen.site] = true
	p.anonCache[f.Name] = anonResolution{script: chosen.script, start: chosen.start, ok: true}
	return chosen.script, chosen.start, true
}

// sourceContainsFunc validates that, for every line of f's body, the
// Script line at start+f_lnum has identical text, joining continuation
// lines when a direct comparison fails.
func sourceContainsFunc(script *Script, start int, f *Function) bool {
	for _, flnum := range sortedKeys(f.Lines) {
		sLnum := start + flnum
		sLine, ok := script.Lines[sLnum]
		if !ok {
			return false
		}
		if sLine.Text == f.Lines[flnum].Text {
			continue
		}
		if joinWithContinuations(script, sLnum) == f.Lines[flnum].Text {
			continue
		}
		return false
	}
	return true
}

// foldFunction folds f's per-line counts and times into script,
// starting at the already-chosen start line. start is treated as
// fixed for the duration of the fold; continuation reconciliation uses
// a separate cursor and never mutates start.
func foldFunction(script *Script, start int, f *Function, logger *slog.Logger) bool {
	for _, flnum := range sortedKeys(f.Lines) {
		sLnum := start + flnum
		sLine, ok := script.Lines[sLnum]
		if !ok {
			logger.Warn("script line missing during fold",
				"error", &ScriptLineMissingDuringFoldError{Function: f.Name, Script: script.Path, Line: sLnum})
			return false
		}
		if joinWithContinuations(script, sLnum) != f.Lines[flnum].Text && sLine.Text != f.Lines[flnum].Text {
			logger.Warn("continuation mismatch",
				"error", &ContinuationMismatchError{Function: f.Name, Script: script.Path, Line: sLnum})
			return false
		}

		fLine := f.Lines[flnum]
		if fLine.Count != nil {
			sLine.addCount(*fLine.Count)
			newCount := *sLine.Count
			next := sLnum + 1
			for {
				nl, ok := script.Lines[next]
				if !ok || !IsContinuation(nl.Text) {
					break
				}
				v := newCount
				nl.Count = &v
				next++
			}
		}
		sLine.addTimes(fLine.Total, fLine.Self)
		script.recordFunctionHeader(sLnum, sLine.Text)
	}
	return true
}

func joinWithContinuations(script *Script, start int) string {
	sLine, ok := script.Lines[start]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(sLine.Text)
	next := start + 1
	for {
		nl, ok := script.Lines[next]
		if !ok || !IsContinuation(nl.Text) {
			break
		}
		b.WriteString(stripContinuationMarker(nl.Text))
		next++
	}
	return b.String()
}

func stripContinuationMarker(text string) string {
	t := strings.TrimLeft(text, " \t")
	return strings.TrimPrefix(t, "\\")
}

func sortedKeys(m map[int]*Line) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
