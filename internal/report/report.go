// Package report renders conversion results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/hexokit/internal/history"
	"github.com/starford/hexokit/internal/models"
)

// MaxReplacement is how much of a replacement is shown before truncating.
const MaxReplacement = 200

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A9DC76"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FC9867"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6188"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#727072"))
	boxStyle     = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Line is one rendered reference.
type Line struct {
	Matched  string `json:"matched"`
	Replaced string `json:"replaced"`
	Failed   bool   `json:"failed"`
}

// Lines describes every match of run in order. Failed matches show the
// original text as the replacement.
func Lines(run *models.Run) []Line {
	out := make([]Line, 0, len(run.Matches))
	for _, m := range run.Matches {
		l := Line{Matched: m.MatchedText, Replaced: m.MatchedText, Failed: !m.Converted()}
		if !l.Failed {
			l.Replaced = Truncate(m.ReplacedText, MaxReplacement)
		}
		out = append(out, l)
	}
	return out
}

// Truncate cuts s to max runes and marks the cut with " ...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + " ..."
}

func statusStyle(s models.RunStatus) lipgloss.Style {
	switch s {
	case models.RunSuccess:
		return successStyle
	case models.RunFlawedSuccess:
		return warningStyle
	case models.RunError:
		return errorStyle
	}
	return valueStyle
}

func field(label, value string) string {
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

// Run writes a full report of run to w.
func Run(w io.Writer, run *models.Run) error {
	var b strings.Builder

	header := []string{
		titleStyle.Render(run.Name),
		field("Path", run.Path),
		labelStyle.Render("Status:") + " " + statusStyle(run.Status).Render(string(run.Status)),
		field("Duration", run.Duration().Round(time.Millisecond).String()),
	}
	if run.ImageService != "" {
		header = append(header, field("Image service", run.ImageService))
	}
	header = append(header, field("References", fmt.Sprintf("%d (%d failed)", len(run.Matches), run.Failed())))
	b.WriteString(boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header...)))
	b.WriteString("\n")

	if lines := Lines(run); len(lines) > 0 {
		b.WriteString("\n" + titleStyle.Render("References") + "\n")
		for _, l := range lines {
			mark, style := successStyle.Render("✓"), valueStyle
			if l.Failed {
				mark, style = errorStyle.Render("✗"), errorStyle
			}
			fmt.Fprintf(&b, "%s %s %s %s\n", mark, style.Render(l.Matched), dimStyle.Render("->"), style.Render(l.Replaced))
		}
	}

	if len(run.Errors) > 0 {
		b.WriteString("\n" + titleStyle.Render("Errors") + "\n")
		for _, e := range run.Errors {
			b.WriteString(errorStyle.Render("• "+e) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// History writes one line per stored conversion to w.
func History(w io.Writer, runs []history.Summary, total int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Conversions"), dimStyle.Render(fmt.Sprintf("(%d of %d)", len(runs), total)))
	for _, s := range runs {
		fmt.Fprintf(&b, "%s  %s  %s  %s  %s\n",
			dimStyle.Render(s.FinishedAt.Local().Format("2006-01-02 15:04:05")),
			statusStyle(s.Status).Render(fmt.Sprintf("%-14s", s.Status)),
			valueStyle.Render(s.Path),
			labelStyle.Render(fmt.Sprintf("%d/%d ok", s.Total-s.Failed, s.Total)),
			dimStyle.Render(s.ID),
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
