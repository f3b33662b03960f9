package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/repoquiz/internal/api"
	"github.com/fyrsmithlabs/repoquiz/internal/orchestrator"
	"github.com/fyrsmithlabs/repoquiz/internal/progress"
)

// Color palette
var (
	colorSuccess = lipgloss.Color("#00D787")
	colorError   = lipgloss.Color("#FF5F87")
	colorWarning = lipgloss.Color("#FFAF00")
	colorInfo    = lipgloss.Color("#5FAFFF")
	colorMuted   = lipgloss.Color("#888888")
)

// Text styles
var (
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(colorInfo)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleTitle   = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
)

// Step glyphs
var (
	glyphDone   = styleSuccess.Render("✓")
	glyphFailed = styleError.Render("✗")
)

// renderer prints run progress as a step timeline. Steps get one line
// each when they settle; the active step's detail is echoed as it
// changes, which surfaces poll attempts while waiting on a running
// generation.
type renderer struct {
	w          io.Writer
	titleShown bool
	settled    map[progress.StepKey]progress.StepStatus
	lastDetail string
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{
		w:       w,
		settled: make(map[progress.StepKey]progress.StepStatus),
	}
}

func (r *renderer) observe(snap progress.Snapshot) {
	if !r.titleShown {
		fmt.Fprintln(r.w, styleTitle.Render(snap.Title))
		r.titleShown = true
	}

	for _, step := range snap.Steps {
		if step.Status != progress.StatusDone && step.Status != progress.StatusFailed {
			continue
		}
		if r.settled[step.Key] == step.Status {
			continue
		}
		r.settled[step.Key] = step.Status

		glyph := glyphDone
		if step.Status == progress.StatusFailed {
			glyph = glyphFailed
		}
		fmt.Fprintf(r.w, "  %s %-32s %s\n", glyph, step.Label, styleMuted.Render(fmt.Sprintf("%3d%%", snap.Percent)))
	}

	if snap.CurrentDetail != "" && snap.CurrentDetail != r.lastDetail {
		r.lastDetail = snap.CurrentDetail
		fmt.Fprintf(r.w, "    %s\n", styleMuted.Render(snap.CurrentDetail))
	}
}

func (r *renderer) pending(detail string) {
	if detail == "" {
		detail = "analysis is still running, try again shortly"
	}
	fmt.Fprintln(r.w, styleWarning.Render(detail))
}

func (r *renderer) summary(result *orchestrator.Result) {
	if result.Reused {
		fmt.Fprintln(r.w, styleSuccess.Render(fmt.Sprintf("Reused %d existing questions", len(result.Questions))))
	} else {
		fmt.Fprintln(r.w, styleSuccess.Render(fmt.Sprintf("Generated %d questions", len(result.Questions))))
	}
	for i, q := range result.Questions {
		fmt.Fprintf(r.w, "  %s %s\n", styleInfo.Render(fmt.Sprintf("%2d.", i+1)), q.Text)
		if q.FilePath != "" {
			fmt.Fprintf(r.w, "      %s\n", styleMuted.Render(q.FilePath))
		}
	}
}

// printRecent renders the recent-analysis list. cached marks output
// served from the local preference cache rather than the server.
func printRecent(w io.Writer, recent []api.RecentAnalysis, cached bool) {
	header := styleTitle.Render("Recent analyses")
	if cached {
		header += " " + styleMuted.Render("(cached)")
	}
	fmt.Fprintln(w, header)

	if len(recent) == 0 {
		fmt.Fprintln(w, styleMuted.Render("  none"))
		return
	}
	for _, a := range recent {
		name := a.RepoName
		if name == "" {
			name = a.RepoURL
		}
		line := fmt.Sprintf("  %s  %s", styleInfo.Render(a.ID), name)
		if a.CreatedAt != "" {
			line += "  " + styleMuted.Render(a.CreatedAt)
		}
		fmt.Fprintln(w, line)
	}
}
