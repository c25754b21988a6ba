package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("cardscand", statusError, "Not reachable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "cardscand:", "[ERROR] Not reachable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("cardscand", statusOK, "Running", true)
	if !strings.HasPrefix(got, "\x1b[32m") {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "\x1b[0m") {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader(" Server ", false)
	if len(lines) != 2 || lines[0] != "== Server ==" || lines[1] != strings.Repeat("-", len("== Server ==")) {
		t.Fatalf("unexpected header %q", lines)
	}
}

func TestOutcomeKind(t *testing.T) {
	tests := map[string]statusKind{
		"ok":             statusOK,
		"added":          statusOK,
		"not_found":      statusWarn,
		"no_text":        statusWarn,
		"provider_error": statusError,
		"invalid_image":  statusError,
		"":               statusInfo,
	}
	for status, want := range tests {
		if got := outcomeKind(status); got != want {
			t.Errorf("outcomeKind(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestTerminalWidthNonFile(t *testing.T) {
	if w := terminalWidth(io.Discard); w != 0 {
		t.Fatalf("terminalWidth(non-file) = %d, want 0", w)
	}
	if got := wrapWidthFor(0, listFixedWidth); got != 0 {
		t.Fatalf("wrapWidthFor without terminal = %d, want 0", got)
	}
	if got := wrapWidthFor(100, listFixedWidth); got != minWrapWidth {
		t.Fatalf("wrapWidthFor narrow = %d, want %d", got, minWrapWidth)
	}
	if got := wrapWidthFor(200, listFixedWidth); got != 110 {
		t.Fatalf("wrapWidthFor wide = %d, want 110", got)
	}
}
