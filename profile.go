package vimcov

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

type parserState int

const (
	stateIdle parserState = iota
	stateInScript
	stateInFunction
)

var reSourcedCount = regexp.MustCompile(`^Sourced (\d+) time`)

// ParseProfile reads one Vim :profile report from r into a Profile.
// It never returns an error for malformed data lines or unresolved
// functions — those are logged and skipped or dropped per §7; the
// returned error reflects only genuine input-stream failures.
func ParseProfile(r io.Reader, opts ...Option) (*Profile, error) {
	cfg := newConfig(opts...)
	p := newProfile()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	state := stateIdle
	var curScript *Script
	var curFunc *Function
	counter := 0

	var pending []*Function

	flush := func() {
		if state == stateInFunction && curFunc != nil {
			pending = append(pending, curFunc)
		}
		state = stateIdle
		curScript = nil
		curFunc = nil
		counter = 0
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch state {
		case stateIdle:
			switch {
			case strings.HasPrefix(line, "SCRIPT  "):
				path := strings.TrimSpace(line[len("SCRIPT  "):])
				s := newScript(path)
				p.addScript(s)

				if !scanner.Scan() {
					break
				}
				if m := reSourcedCount.FindStringSubmatch(scanner.Text()); m != nil {
					n, _ := strconv.Atoi(m[1])
					s.SourcedCount = n
				}
				for scanner.Scan() {
					if strings.HasPrefix(scanner.Text(), "count") {
						break
					}
				}
				state = stateInScript
				curScript = s
				counter = 0

			case strings.HasPrefix(line, "FUNCTION  "):
				name := line[len("FUNCTION  "):]
				name = strings.TrimSuffix(strings.TrimSpace(name), "()")
				f := newFunction(name)

				for scanner.Scan() {
					hline := scanner.Text()
					if strings.HasPrefix(hline, "count") {
						break
					}
					if strings.HasPrefix(hline, "    Defined:") {
						if path, lnum, ok := parseDefinedLine(hline); ok {
							if s, found := p.ScriptByPath(path); found {
								f.DeclaredScript = s
								f.DeclaredLine = lnum
							} else {
								cfg.logger.Warn("unknown script in Defined: header",
									"error", &UnknownScriptForFunctionDefinedHeaderError{Function: name, Path: path})
							}
						}
					}
				}
				state = stateInFunction
				curFunc = f
				counter = 0
			}

		case stateInScript:
			if line == "" {
				flush()
				continue
			}
			counter++
			count, total, self, terminator, err := DecodeCountFields(line)
			if err != nil {
				cfg.logger.Warn("malformed data line", "error",
					&MalformedDataLineError{Line: counter, Text: line, Err: err})
				continue
			}
			if terminator {
				continue
			}
			src := SourceText(line)
			if count == nil && IsContinuation(src) {
				if prev, ok := curScript.Lines[counter-1]; ok {
					count = prev.Count
				}
			}
			curScript.Lines[counter] = &Line{Text: src, Count: count, Total: total, Self: self}
			if (count != nil && *count > 0) || counter == 1 {
				curScript.recordFunctionHeader(counter, src)
			}

		case stateInFunction:
			if line == "" {
				flush()
				continue
			}
			counter++
			count, total, self, terminator, err := DecodeCountFields(line)
			if err != nil {
				cfg.logger.Warn("malformed data line", "error",
					&MalformedDataLineError{Line: counter, Text: line, Err: err})
				continue
			}
			if terminator {
				continue
			}
			src := SourceText(line)
			if count == nil && IsExecutable(src) {
				zero := 0
				count = &zero
			}
			curFunc.Lines[counter] = &Line{Text: src, Count: count, Total: total, Self: self}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vimcov: reading profile: %w", err)
	}
	flush()

	p.Functions = pending
	MapFunctions(p, cfg.logger)
	return p, nil
}

// parseDefinedLine parses a "    Defined: <path>:<line>" or
// "    Defined: <path> line <line>" header line, tilde-expanding the
// path. ok is false if no line number could be extracted.
func parseDefinedLine(line string) (path string, lnum int, ok bool) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "    Defined:"))

	if idx := strings.LastIndex(rest, ":"); idx >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(rest[idx+1:])); err == nil {
			return expandTilde(rest[:idx]), n, true
		}
	}
	const marker = " line "
	if idx := strings.LastIndex(rest, marker); idx >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(rest[idx+len(marker):])); err == nil {
			return expandTilde(rest[:idx]), n, true
		}
	}
	return "", 0, false
}

func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") && path != "~" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return home + path[1:]
}
