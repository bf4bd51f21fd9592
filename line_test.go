package vimcov_test

import (
	"testing"

	"github.com/tmc/vimcov"
)

func TestIsExecutable(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"blank", "   ", false},
		{"comment", `  " a comment`, false},
		{"continuation", `  \ 1, 2)`, false},
		{"statement", "  echo 1", true},
		{"no leading space", "let x = 1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vimcov.IsExecutable(tt.text); got != tt.want {
				t.Errorf("IsExecutable(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsContinuation(t *testing.T) {
	if !vimcov.IsContinuation(`  \ 1, 2)`) {
		t.Error("expected continuation line to be detected")
	}
	if vimcov.IsContinuation("echo 1") {
		t.Error("did not expect a continuation line")
	}
}

func TestFunctionHeader(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantOK   bool
	}{
		{"function! d.f()", "d.f", true},
		{"function s:Foo(a, b)", "s:Foo", true},
		{"fu! g:Bar()", "g:Bar", true},
		{"funct MyFunc(...)", "MyFunc", true},
		{"echo 1", "", false},
	}
	for _, tt := range tests {
		name, ok := vimcov.FunctionHeader(tt.text)
		if ok != tt.wantOK || name != tt.wantName {
			t.Errorf("FunctionHeader(%q) = (%q, %v), want (%q, %v)", tt.text, name, ok, tt.wantName, tt.wantOK)
		}
	}
}

func TestNormalizeFunctionName(t *testing.T) {
	tests := []struct {
		raw      string
		wantName string
		wantDict bool
	}{
		{"d.f", "d.f", true},
		{"<SID>Foo", "s:Foo", false},
		{"g:Bar", "Bar", false},
		{"Plain", "Plain", false},
	}
	for _, tt := range tests {
		name, dict := vimcov.NormalizeFunctionName(tt.raw)
		if name != tt.wantName || dict != tt.wantDict {
			t.Errorf("NormalizeFunctionName(%q) = (%q, %v), want (%q, %v)", tt.raw, name, dict, tt.wantName, tt.wantDict)
		}
	}
}

func TestStripSNRPrefix(t *testing.T) {
	if got := vimcov.StripSNRPrefix("<SNR>12_Foo"); got != "s:Foo" {
		t.Errorf("StripSNRPrefix = %q, want s:Foo", got)
	}
	if got := vimcov.StripSNRPrefix("Plain"); got != "Plain" {
		t.Errorf("StripSNRPrefix = %q, want unchanged", got)
	}
}
