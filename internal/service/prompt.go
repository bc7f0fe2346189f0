package service

import (
	"fmt"
	"strings"

	"helpdesk-go/internal/recommend"
)

const defaultSystemPrompt = "You are a helpful and professional IT support assistant."

// buildEnhancePrompt 将查询字段与排序后的候选方案（含得分）组织成提示。
func buildEnhancePrompt(q recommend.Query, candidates []recommend.Candidate) string {
	var sb strings.Builder
	sb.WriteString("A user has submitted a new IT support ticket.\n")
	fmt.Fprintf(&sb, "Below are %d historical resolutions for similar tickets, ranked by similarity.\n\n", len(candidates))

	sb.WriteString("New Ticket Details:\n")
	fmt.Fprintf(&sb, "- Category: %s\n", orNA(q.Category))
	fmt.Fprintf(&sb, "- Type: %s\n", orNA(q.TicketType))
	fmt.Fprintf(&sb, "- Subject: %s\n", orNA(q.Subject))
	fmt.Fprintf(&sb, "- Priority: %s\n", orNA(q.Priority))
	fmt.Fprintf(&sb, "- Description: %s\n\n", q.Description)

	sb.WriteString("Historical Resolutions:\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "- Suggestion %d (Similarity Score: %.4f, Category: %s): %s\n", i+1, c.Score, orNA(c.Category), c.ResolutionText)
	}

	fmt.Fprintf(&sb, "\nReview these resolutions and provide %d actionable suggestions as a numbered list. ", len(candidates))
	sb.WriteString("Include the similarity score of the resolution each suggestion is derived from. ")
	sb.WriteString("Do not add introductory or concluding text.")
	return sb.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
