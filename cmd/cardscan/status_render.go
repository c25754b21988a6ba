package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	colorize "github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, enable bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(statusKindColor(kind), base, enable)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) colorize.Attribute {
	switch kind {
	case statusOK:
		return colorize.FgGreen
	case statusWarn:
		return colorize.FgYellow
	case statusError:
		return colorize.FgRed
	default:
		return colorize.FgBlue
	}
}

func renderSectionHeader(title string, enable bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{
		paint(colorize.FgBlue, line, enable),
		paint(colorize.FgBlue, rule, enable),
	}
}

// outcomeKind maps a scan or merge status onto a display severity.
func outcomeKind(status string) statusKind {
	switch status {
	case "ok", "added":
		return statusOK
	case "not_found", "no_text":
		return statusWarn
	case "":
		return statusInfo
	default:
		return statusError
	}
}

// paint colors s only when enable is set.
func paint(attr colorize.Attribute, s string, enable bool) string {
	c := colorize.New(attr)
	if enable {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
