// Command vimcov parses Vim :profile reports and reconciles them into
// a line-coverage dataset consumable by general-purpose coverage
// tooling.
//
// Usage:
//
//	vimcov parse    -o=<file> [-format=gocover|lcov] <profile>...
//	vimcov report   <profile>...
//	vimcov watch    -dir=<directory> -o=<file> [-format=gocover|lcov]
//
// Use "vimcov help <command>" for more information about a command.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	pflag "github.com/spf13/pflag"
)

// GlobalFlags holds the flags that apply to every subcommand, mirroring
// the pattern of a single pre-parsed flag set ahead of per-command
// flag.FlagSets.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Quiet   bool
	Verbose int
}

var globals GlobalFlags

func main() {
	os.Exit(Main())
}

// Main runs the vimcov CLI against os.Args and returns the process exit
// code. It is exported separately from main so that integration tests
// can drive the CLI in-process through rsc.io/script/scripttest.
func Main() int {
	log.SetPrefix("vimcov: ")
	log.SetFlags(0)

	fs := pflag.NewFlagSet("vimcov", pflag.ContinueOnError)
	fs.BoolVar(&globals.JSON, "json", false, "output machine-readable JSON where applicable")
	fs.BoolVar(&globals.NoColor, "no-color", false, "disable colored output")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress progress and info messages")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "increase verbosity (-v info, -vv debug)")
	fs.SetInterspersed(false)
	fs.Usage = usage
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	args := fs.Args()
	if len(args) == 0 {
		usage()
		return 2
	}

	if args[0] == "help" {
		help(args[1:])
		return 0
	}

	for _, cmd := range commands {
		if cmd.Name == args[0] {
			cmd.Flag.Usage = func() { cmd.Usage() }
			if err := cmd.Flag.Parse(args[1:]); err != nil {
				return 2
			}
			if err := cmd.Run(context.Background(), cmd.Flag.Args()); err != nil {
				fmt.Fprintf(os.Stderr, "vimcov: %v\n", err)
				return 1
			}
			return 0
		}
	}

	fmt.Fprintf(os.Stderr, "vimcov: unknown subcommand %q\nRun 'vimcov help' for usage.\n", args[0])
	return 2
}

// newLogger builds the slog.Logger every subcommand uses for
// diagnostics, with the level driven by -v/-vv/-q.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case globals.Quiet:
		level = slog.LevelError
	case globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Verbose >= 1:
		level = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

func usage() {
	fmt.Fprintf(os.Stderr, `vimcov translates Vim :profile reports into a line-coverage dataset.

Usage:

	vimcov <command> [arguments]

The commands are:

`)
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "\t%s\t\t%s\n", cmd.Name, cmd.Short)
	}
	fmt.Fprintf(os.Stderr, `
Use "vimcov help <command>" for more information about a command.
`)
}

func help(args []string) {
	if len(args) == 0 {
		usage()
		return
	}
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: vimcov help command\n\nToo many arguments given.\n")
		os.Exit(2)
	}
	for _, cmd := range commands {
		if cmd.Name == args[0] {
			cmd.Usage()
			return
		}
	}
	fmt.Fprintf(os.Stderr, "Unknown help topic %#q. Run 'vimcov help'.\n", args[0])
	os.Exit(2)
}

// Command is one vimcov subcommand.
type Command struct {
	Run       func(ctx context.Context, args []string) error
	UsageLine string
	Short     string
	Long      string
	Flag      flag.FlagSet
	Name      string
}

// Usage prints the usage message for the command to stderr.
func (c *Command) Usage() {
	fmt.Fprintf(os.Stderr, "usage: %s\n", c.UsageLine)
	if c.Long != "" {
		fmt.Fprintf(os.Stderr, "%s\n", strings.TrimSpace(c.Long))
	}
}

var commands = []*Command{
	cmdParse,
	cmdReport,
	cmdWatch,
}

func init() {
	for _, cmd := range commands {
		name := cmd.UsageLine
		if i := strings.Index(name, " "); i >= 0 {
			name = name[i+1:]
			if j := strings.Index(name, " "); j >= 0 {
				name = name[:j]
			}
		}
		cmd.Name = name
	}
}
