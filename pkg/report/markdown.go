package report

import (
	"fmt"
	"strings"
)

// maxMarkdownFailures caps the failing list so chat messages stay readable.
const maxMarkdownFailures = 25

// Markdown renders a short summary suitable for PR comments and chat.
func Markdown(r *Report) string {
	var b strings.Builder
	if r.Verdict.Passed {
		b.WriteString("## ✅ Security gate passed\n\n")
	} else {
		b.WriteString("## ❌ Security gate failed\n\n")
	}
	fmt.Fprintf(&b, "`%s`\n\n", r.SummaryLine())

	b.WriteString("| scanner | status | threshold | critical | high | medium | low | info | suppressed |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, s := range r.Scanners {
		c := s.Counts
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %d | %d | %d | %d |\n",
			s.Scanner, s.Status, s.Threshold, c.Critical, c.High, c.Medium, c.Low, c.Info, s.Suppressed)
	}

	if len(r.Verdict.Failing) > 0 {
		b.WriteString("\n### Failing findings\n\n")
		for i, f := range r.Verdict.Failing {
			if i == maxMarkdownFailures {
				fmt.Fprintf(&b, "- ... and %d more\n", len(r.Verdict.Failing)-maxMarkdownFailures)
				break
			}
			fmt.Fprintf(&b, "- **%s** `%s` %s (%s): %s\n", f.Severity, f.Scanner, f.Identifier, f.Location, f.Description)
		}
	}
	return b.String()
}
