package hub

import (
	"fmt"
	"strings"
)

// FormatEscalationComment renders an escalation as the markdown review
// request posted to the feature's ticket. Reviewers answer with one of the
// slash commands in the Actions section.
func FormatEscalationComment(escalation *Escalation) string {
	answer := escalation.TentativeAnswer
	question := escalation.Question

	var b strings.Builder
	b.WriteString("## :warning: Low Confidence Answer - Human Review Required\n\n")
	fmt.Fprintf(&b, "**Topic:** `%s`\n", question.Topic)
	fmt.Fprintf(&b, "**Confidence:** %d%% (threshold: %d%%)\n\n", answer.Confidence, escalation.ThresholdUsed)

	b.WriteString("### Question\n")
	b.WriteString(question.Text)
	b.WriteString("\n\n")

	if question.Context != "" {
		fmt.Fprintf(&b, "**Context:** %s\n\n", question.Context)
	}

	b.WriteString("### Tentative Answer\n")
	b.WriteString(answer.Text)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Rationale:** %s\n", answer.Rationale)

	if len(answer.UncertaintyReasons) > 0 {
		b.WriteString("\n**Uncertainty reasons:**\n")
		for _, reason := range answer.UncertaintyReasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
	}

	b.WriteString("\n---\n\n### Actions\n\n")
	b.WriteString("Please respond with one of the following:\n")
	b.WriteString("- `/confirm` - Accept this answer as-is\n")
	b.WriteString("- `/correct <your answer>` - Provide the correct answer\n")
	b.WriteString("- `/context <additional info>` - Add context and retry the question\n\n")
	fmt.Fprintf(&b, "**Answered by:** %s (%s)\n", answer.AnsweredBy, answer.ModelUsed)

	return b.String()
}
