// Package report renders a readiness verdict for terminals and CI artefacts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/xhd2015/finchat-e2e/server/status"
)

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

// Print writes one line per server followed by the diagnostics.
func Print(w io.Writer, r status.SystemReadiness) {
	if r.Frontend != nil {
		printStatus(w, "Frontend", *r.Frontend)
	} else {
		fmt.Fprintf(w, "%s Frontend: not found\n", failMark("✗"))
	}
	printStatus(w, "Backend", r.Backend)

	if r.Ready {
		fmt.Fprintf(w, "%s System ready\n", okMark("✓"))
		return
	}
	fmt.Fprintf(w, "%s System not ready:\n", failMark("✗"))
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}

// PrintStatus writes a single server line.
func PrintStatus(w io.Writer, label string, s status.ServerStatus) {
	printStatus(w, label, s)
}

func printStatus(w io.Writer, label string, s status.ServerStatus) {
	mark := failMark("✗")
	if s.Accessible {
		mark = okMark("✓")
	}
	line := fmt.Sprintf("%s %s: port %d running=%v accessible=%v", mark, label, s.Port, s.Running, s.Accessible)
	if s.ResponseTime != nil {
		line += dim(fmt.Sprintf(" (%v)", s.ResponseTime.Round(100*time.Microsecond)))
	}
	if s.Error != "" {
		line += ": " + s.Error
	}
	fmt.Fprintln(w, line)
}

// WriteJSON stores r as indented JSON at path, creating parent directories.
func WriteJSON(path string, r status.SystemReadiness) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "failed to create directory")
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal readiness")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrap(err, "failed to write file")
	}
	return nil
}
