package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
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
	statusLabelWidth = 18
	statusIndent     = "  "
)

var statusColors = map[statusKind]color.Attribute{
	statusInfo:  color.FgBlue,
	statusOK:    color.FgGreen,
	statusWarn:  color.FgYellow,
	statusError: color.FgRed,
}

// paint wraps text in the color for kind. Colors are forced on or off per
// call so output does not depend on color.NoColor detection of stdout.
func paint(kind statusKind, text string, colorize bool) string {
	c := color.New(statusColors[kind])
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(text)
}

// renderStatusLine formats one "label: [KIND] message" line for doctor and
// status output.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		badge += " " + message
	}
	return paint(kind, fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", badge), colorize)
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

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	return []string{
		paint(statusInfo, line, colorize),
		paint(statusInfo, strings.Repeat("-", len(line)), colorize),
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
