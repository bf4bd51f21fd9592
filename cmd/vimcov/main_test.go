package main

import (
	"context"
	"os"
	"strings"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

// TestMain lets scripttest scripts exec the vimcov binary in-process:
// RunMain re-execs the test binary itself whenever a script "exec"s
// one of the named tools, the same harness covutil's exp/cmd suite
// uses to drive its tools without a separate go build step.
func TestMain(m *testing.M) {
	os.Exit(scripttest.RunMain(m, map[string]func() int{
		"vimcov": Main,
	}))
}

func TestCLIParseAndReport(t *testing.T) {
	workDir := t.TempDir()
	engine := &script.Engine{}
	state, err := script.NewState(context.Background(), workDir, os.Environ())
	if err != nil {
		t.Fatalf("script.NewState: %v", err)
	}

	scriptContent := `
exec vimcov parse -o cover.out report.log
cmp cover.out cover.out.golden

exec vimcov -q report report.log
stdout '100.0%'

-- x.vim --
echo 1
echo 2
-- report.log --
SCRIPT  x.vim
Sourced 1 time
count  total (s)   self (s)
    1                       echo 1
    1                       echo 2

-- cover.out.golden --
mode: set
x.vim:1.1,1.2 1 1
x.vim:2.1,2.2 1 1
`

	scripttest.Run(t, engine, state, "parse_and_report.txt", strings.NewReader(scriptContent))
}
