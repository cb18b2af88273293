// Package style renders build output: colored status tags for each build
// step and a tree view of resolved dependency graphs.
package style

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// Status of a build step.
type Status string

const (
	StatusBuild  Status = "BUILD"   // Rule action is being executed
	StatusSkip   Status = "SKIP"    // Target already up to date
	StatusDryRun Status = "DRY-RUN" // Action announced but not executed
	StatusClean  Status = "CLEAN"   // Target removed
	StatusError  Status = "FAILED"  // Rule action failed
	StatusStop   Status = "STOP"    // Build aborted
)

// StatusStyle returns the pterm style for a status
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusBuild:
		return pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	case StatusSkip, StatusDryRun:
		return pterm.NewStyle(pterm.FgMagenta, pterm.Bold)
	case StatusClean:
		return pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	case StatusError, StatusStop:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// RenderStatus renders a "[STATUS] message" line.
func RenderStatus(status Status, format string, args ...interface{}) string {
	tag := StatusStyle(status).Sprintf("%s", status)
	return fmt.Sprintf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

// RenderStep renders a numbered build step line: "[3/7] [SKIP] message".
func RenderStep(step, total int, status Status, format string, args ...interface{}) string {
	return fmt.Sprintf("[%d/%d] %s", step, total, RenderStatus(status, format, args...))
}

// DisableColorsIfNotTTY turns pterm colors off when stdout is not a
// terminal.
func DisableColorsIfNotTTY() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		pterm.DisableColor()
	}
}
