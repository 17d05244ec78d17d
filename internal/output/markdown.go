package output

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownWriter outputs a markdown report with a collapsible section per
// goal.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	res := report.Result
	content := []rune(report.Content)

	ew.printf("## Scribe Writing Check\n\n")
	if report.Source != "" {
		ew.printf("**Document:** `%s`  \n", report.Source)
	}
	ew.printf("**Score:** %d/100 %s\n\n", res.Score, mdScoreIcon(res.Score))

	groups := groupByGoal(res)
	if len(groups) > 0 {
		ew.printf("| Goal | Issues | Score |\n")
		ew.printf("|------|--------|-------|\n")
		for _, g := range groups {
			score := "-"
			if g.Score != nil {
				score = fmt.Sprintf("%.0f", *g.Score)
			}
			ew.printf("| %s | %d | %s |\n", goalName(g.Goal), len(g.Issues), score)
		}
		ew.printf("| **Total** | **%d** | **%d** |\n\n", len(res.Issues), res.Score)
	}

	if len(res.Issues) == 0 {
		ew.println("No issues found. :white_check_mark:")
		return ew.err
	}

	for _, g := range groups {
		if len(g.Issues) == 0 {
			continue
		}
		ew.printf("<details>\n<summary>%s (%d)</summary>\n\n", goalName(g.Goal), len(g.Issues))

		for _, is := range g.Issues {
			ew.printf("### `%s`\n\n", mdCode(is.DisplaySurface))
			if start, _, ok := locate(content, is); ok {
				ew.printf("Line %d, column %d | %s\n\n", start.Line, start.Column, is.IssueType)
			} else {
				ew.printf("%s\n\n", is.IssueType)
			}
			if msg := issueMessage(is); msg != "" {
				ew.printf("%s\n\n", msg)
			}
			if sugg := suggestionList(is); len(sugg) > 0 {
				ew.printf("**Suggestions:** %s\n\n", strings.Join(sugg, ", "))
			}
			ew.printf("---\n\n")
		}

		ew.printf("</details>\n\n")
	}

	if report.Duration > 0 {
		engine := report.Provider
		if report.Model != "" {
			engine += " " + report.Model
		}
		ew.printf("*Checked in %dms", report.Duration.Milliseconds())
		if engine != "" {
			ew.printf(" by %s", strings.TrimSpace(engine))
		}
		ew.printf("*\n")
	}
	return ew.err
}

func mdScoreIcon(score int) string {
	switch {
	case score >= 80:
		return ":green_circle:"
	case score >= 60:
		return ":orange_circle:"
	default:
		return ":red_circle:"
	}
}

// mdCode keeps a surface from breaking out of an inline code span.
func mdCode(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "`", "'"), "\n", " ")
}
