package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/tmc/vimcov"
)

var cmdReport = &Command{
	UsageLine: "vimcov report [-root=<dir>] <profile>...",
	Short:     "print a per-script coverage summary",
	Long: `
Report parses one or more profile reports, merges them, and prints a
per-script summary of how many lines were covered against how many
lines in the script were actually executable.

Percentages are colored: green at or above 80%, yellow at or above
50%, red below that. Color is suppressed automatically when stdout is
not a terminal, when --no-color is given, or when $NO_COLOR is set.
`,
}

var reportRoots stringList

func init() {
	cmdReport.Flag.Var(&reportRoots, "root", "restrict the report to files under this source root (repeatable)")
	cmdReport.Run = runReport
}

func colorEnabled() bool {
	if globals.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func runReport(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("must specify at least one profile report path")
	}

	logger := newLogger()
	opts := []vimcov.Option{vimcov.WithLogger(logger)}
	if len(reportRoots) > 0 {
		opts = append(opts, vimcov.WithSourceRoots(reportRoots...))
	}
	merged := vimcov.NewMergedProfile(opts...)

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		p, err := vimcov.ParseProfile(f, vimcov.WithLogger(logger.With("profile", path)))
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		merged.Add(p)
	}

	record := merged.CoverageRecord()
	useColor := colorEnabled()
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	if !useColor {
		green.DisableColor()
		yellow.DisableColor()
		red.DisableColor()
	}

	files := record.SortedFiles()
	if len(files) == 0 {
		fmt.Println("no covered files")
		return nil
	}

	var totalCovered, totalExecutable int
	for _, path := range files {
		covered := len(record.Files[path])
		executable := countExecutableLines(path, logger)
		if executable < covered {
			executable = covered
		}
		totalCovered += covered
		totalExecutable += executable

		pct := 100.0
		if executable > 0 {
			pct = 100 * float64(covered) / float64(executable)
		}
		c := pickColor(pct, green, yellow, red)
		c.Printf("%6.1f%%", pct)
		fmt.Printf("  %d/%d  %s\n", covered, executable, path)
	}

	pct := 100.0
	if totalExecutable > 0 {
		pct = 100 * float64(totalCovered) / float64(totalExecutable)
	}
	c := pickColor(pct, green, yellow, red)
	fmt.Print("total   ")
	c.Printf("%6.1f%%", pct)
	fmt.Printf("  %d/%d\n", totalCovered, totalExecutable)
	return nil
}

func pickColor(pct float64, green, yellow, red *color.Color) *color.Color {
	switch {
	case pct >= 80:
		return green
	case pct >= 50:
		return yellow
	default:
		return red
	}
}

// countExecutableLines reads path off disk and counts lines vimcov
// would consider executable. A script that can no longer be read (the
// profile's filesystem view has moved on) contributes zero
// executable lines rather than failing the whole report.
func countExecutableLines(path string, logger interface{ Warn(string, ...any) }) int {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("could not read source for coverage denominator", "path", path, "error", err)
		return 0
	}
	n := 0
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			if vimcov.IsExecutable(string(data[start:i])) {
				n++
			}
			start = i + 1
		}
	}
	return n
}
