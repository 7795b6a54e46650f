package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"accession/internal/catalogue"
)

// colorEnabled reports whether w is an interactive terminal.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func statusColor(status string) *color.Color {
	switch catalogue.Status(status) {
	case catalogue.StatusCompleted:
		return color.New(color.FgGreen)
	case catalogue.StatusApproved:
		return color.New(color.FgCyan)
	case catalogue.StatusAwaitingConfirmation:
		return color.New(color.FgYellow)
	case catalogue.StatusFailed:
		return color.New(color.FgRed, color.Bold)
	case catalogue.StatusRejected:
		return color.New(color.FgHiBlack)
	default:
		return color.New(color.FgBlue)
	}
}

func renderStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	c := statusColor(status)
	c.EnableColor()
	return c.Sprint(status)
}
