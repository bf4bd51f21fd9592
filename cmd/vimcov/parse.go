package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/tmc/vimcov"
	"github.com/tmc/vimcov/covwriter"
)

var cmdParse = &Command{
	UsageLine: "vimcov parse [-o=<file>] [-format=gocover|lcov] [-root=<dir>] <profile>...",
	Short:     "parse one or more profile reports into a coverage file",
	Long: `
Parse reads one or more Vim :profile report files, reconciles each
function's reported lines back to its owning script, merges the
results, and writes the combined coverage data in the requested
format.

The -format flag selects the output encoding: "gocover" (Go's
"mode: set" textual cover-profile format, the default) or "lcov"
(the LCOV .info format).

The -o flag names the output file; if omitted, output goes to stdout.

The -root flag may be repeated to restrict the coverage record to
files explicitly listed, or discovered as executable .vim files,
under the given root directories.
`,
}

var (
	parseOutput = cmdParse.Flag.String("o", "", "output file (default stdout)")
	parseFormat = cmdParse.Flag.String("format", "gocover", `output format: "gocover" or "lcov"`)
	parseRoots  stringList
)

func init() {
	cmdParse.Flag.Var(&parseRoots, "root", "restrict output to files under this source root (repeatable)")
	cmdParse.Run = runParse
}

// stringList implements flag.Value to accept a repeatable -root flag.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runParse(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("must specify at least one profile report path")
	}

	logger := newLogger()
	profiles := make([]*vimcov.Profile, len(args))

	var bar *progressbar.ProgressBar
	if !globals.Quiet && !globals.JSON && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.Default(int64(len(args)), "parsing profiles")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()
			p, err := vimcov.ParseProfile(f, vimcov.WithLogger(logger.With("profile", path)))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
			profiles[i] = p
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	opts := []vimcov.Option{vimcov.WithLogger(logger)}
	if len(parseRoots) > 0 {
		opts = append(opts, vimcov.WithSourceRoots(parseRoots...))
	}
	merged := vimcov.NewMergedProfile(opts...)
	for _, p := range profiles {
		merged.Add(p)
	}
	record := merged.CoverageRecord()

	out := os.Stdout
	if *parseOutput != "" {
		f, err := os.Create(*parseOutput)
		if err != nil {
			return fmt.Errorf("creating %s: %w", *parseOutput, err)
		}
		defer f.Close()
		out = f
	}

	switch *parseFormat {
	case "gocover":
		return covwriter.WriteGoCoverProfile(out, record)
	case "lcov":
		return covwriter.WriteLCOV(out, record)
	default:
		return fmt.Errorf("unknown -format %q: want gocover or lcov", *parseFormat)
	}
}
