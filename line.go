package vimcov

import (
	"regexp"
	"strings"
)

// reFunctionHeader matches a (possibly abbreviated) "function" keyword
// followed by an optional bang and the declared name, up to the
// opening parenthesis of its argument list.
var reFunctionHeader = regexp.MustCompile(`^\s*(?:fu|fun|func|funct|functi|functio|function)!?\s+([^(]+)\(`)

// reContinuation matches a line whose first non-blank character is a
// backslash, denoting the tail of the previous logical line.
var reContinuation = regexp.MustCompile(`^\s*\\`)

// reSNRPrefix matches the <SNR>N_ script-local function prefix Vim
// emits in profile reports.
var reSNRPrefix = regexp.MustCompile(`^<SNR>\d+_`)

// IsExecutable reports whether text, after stripping leading
// whitespace, is neither empty, a comment (starts with `"`), nor a
// continuation line (starts with `\`).
func IsExecutable(text string) bool {
	t := strings.TrimLeft(text, " \t")
	if t == "" {
		return false
	}
	switch t[0] {
	case '"', '\\':
		return false
	}
	return true
}

// IsContinuation reports whether text is a line-continuation marker:
// optional whitespace followed by a literal backslash.
func IsContinuation(text string) bool {
	return reContinuation.MatchString(text)
}

// FunctionHeader reports whether text opens a function definition and,
// if so, returns the name as declared (before normalization) and true.
func FunctionHeader(text string) (name string, ok bool) {
	m := reFunctionHeader.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// NormalizeFunctionName applies the raw → key name normalization: a
// name containing '.' is a dict-function (isDict is true); a <SID>
// prefix becomes "s:"; a leading "g:" is stripped.
func NormalizeFunctionName(raw string) (name string, isDict bool) {
	if strings.Contains(raw, ".") {
		isDict = true
	}
	name = raw
	switch {
	case strings.HasPrefix(name, "<SID>"):
		name = "s:" + name[len("<SID>"):]
	case strings.HasPrefix(name, "g:"):
		name = name[len("g:"):]
	}
	return name, isDict
}

// StripSNRPrefix rewrites a <SNR>N_-prefixed script-local function
// name to its "s:" form, the key form under which it is indexed in a
// Script's name → line-list table.
func StripSNRPrefix(name string) string {
	if reSNRPrefix.MatchString(name) {
		return "s:" + reSNRPrefix.ReplaceAllString(name, "")
	}
	return name
}
