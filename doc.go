// Package vimcov parses profile reports produced by Vim's built-in
// :profile command and reconciles them into a line-coverage dataset.
//
// The hard part is the function-to-script reconciler: profiled
// function bodies are reported separately from the script that
// defines them, sometimes under a mangled or purely numeric name, and
// must be matched back to their owning script by text comparison
// before their counts can be folded into that script's line table.
//
// A typical caller constructs a [MergedProfile], adds one or more
// parsed [Profile] values to it, and reads [MergedProfile.CoverageRecord]
// for the result:
//
//	p, err := vimcov.ParseProfile(r, vimcov.WithLogger(logger))
//	merged := vimcov.NewMergedProfile(vimcov.WithSourceRoots(roots...))
//	merged.Add(p)
//	record := merged.CoverageRecord()
package vimcov
