package recommend

import (
	"fmt"
	"strings"
)

// NoSuggestionsText 是没有可用推荐时给用户的提示。
const NoSuggestionsText = "No similar historical tickets found. Please contact support for assistance."

// Summary 将推荐结果渲染为纯文本摘要。
func Summary(candidates []Candidate) string {
	if len(candidates) == 0 {
		return NoSuggestionsText
	}

	rule := strings.Repeat("-", 60)
	var b strings.Builder
	b.WriteString("RECOMMENDED RESOLUTIONS (Based on Similar Tickets)\n")
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")
	for i, c := range candidates {
		issue := c.Subject
		if issue == "" {
			issue = c.IssueText
		}
		fmt.Fprintf(&b, "Option %d (Match: %.1f%%, Priority: %s)\n", i+1, c.Score*100, orNA(c.Priority))
		fmt.Fprintf(&b, "Similar Issue: %s\n", issue)
		fmt.Fprintf(&b, "Resolution: %s\n", c.ResolutionText)
		b.WriteString(rule)
		b.WriteString("\n\n")
	}
	b.WriteString("Try these solutions in order. If issue persists, escalate to support team.")
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
