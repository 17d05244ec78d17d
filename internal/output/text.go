package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/scribe/internal/check"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	quoteStyle = lipgloss.NewStyle().Bold(true)
)

// scoreStyle colors a score: green from 80, amber from 60, red below.
func scoreStyle(score int) lipgloss.Style {
	color := "#E53935"
	switch {
	case score >= 80:
		color = "#43A047"
	case score >= 60:
		color = "#FB8C00"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
}

func goalStyle(g check.GoalResult) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	if g.Color != "" {
		s = s.Foreground(lipgloss.Color(g.Color))
	}
	return s
}

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	res := report.Result
	content := []rune(report.Content)

	source := report.Source
	if source == "" {
		source = "stdin"
	}
	ew.println(titleStyle.Render("Scribe Writing Check: " + source))
	ew.println(strings.Repeat("─", 60))
	ew.printf("Score: %s (%s)\n", scoreStyle(res.Score).Render(fmt.Sprintf("%d/100", res.Score)), res.Status)

	var meta []string
	if report.Provider != "" {
		engine := report.Provider
		if report.Model != "" {
			engine += " (" + report.Model + ")"
		}
		meta = append(meta, "Engine: "+engine)
	}
	if report.Profile != "" {
		meta = append(meta, "Profile: "+report.Profile)
	}
	if len(meta) > 0 {
		ew.println(dimStyle.Render(strings.Join(meta, " | ")))
	}
	if c := res.Counts; c != nil {
		ew.printf("Issues: %d (%d scored) | Words: %d | Sentences: %d\n", c.Issues, c.ScoredIssues, c.Words, c.Sentences)
	} else {
		ew.printf("Issues: %d\n", len(res.Issues))
	}
	ew.println(strings.Repeat("─", 60))

	groups := groupByGoal(res)
	if len(groups) > 0 {
		ew.println("")
		for _, g := range groups {
			line := fmt.Sprintf("  %-24s %s", goalName(g.Goal), plural(len(g.Issues), "issue"))
			if g.Score != nil {
				line += fmt.Sprintf("  score %.0f", *g.Score)
			}
			ew.println(line)
		}
	}

	if len(res.Issues) == 0 {
		ew.println("\nNo issues found. Looks good!")
		return ew.err
	}

	for _, g := range groups {
		if len(g.Issues) == 0 {
			continue
		}
		ew.printf("\n%s\n", goalStyle(g.Goal).Render(strings.ToUpper(goalName(g.Goal))))
		ew.println(strings.Repeat("─", 40))

		for _, is := range g.Issues {
			loc := ""
			if start, _, ok := locate(content, is); ok {
				loc = fmt.Sprintf("%d:%d  ", start.Line, start.Column)
			}
			ew.printf("\n  %s%s  [%s]\n", loc, quoteStyle.Render(fmt.Sprintf("%q", is.DisplaySurface)), is.IssueType)
			for _, line := range wrapText(issueMessage(is), 70) {
				ew.printf("    %s\n", line)
			}
			if sugg := suggestionList(is); len(sugg) > 0 {
				ew.printf("    Suggestions: %s\n", strings.Join(sugg, ", "))
			}
		}
	}

	if report.Duration > 0 {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		ew.println(dimStyle.Render(fmt.Sprintf("Completed in %dms", report.Duration.Milliseconds())))
	}
	return ew.err
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
