package anthropic

import (
	"fmt"
	"strings"

	"github.com/inboxpilot/inboxpilot/internal/ai"
)

// buildTriagePrompt renders the batch summarization prompt. The model is
// asked for a JSON array so one call covers the whole batch.
func buildTriagePrompt(emails []ai.Email) string {
	var b strings.Builder

	b.WriteString("Analyze these emails and provide structured responses. Read the full content carefully:\n\n")

	for i, e := range emails {
		content := e.Body
		if content == "" {
			content = e.Snippet
		}
		fmt.Fprintf(&b, "Email %d:\nFrom: %s\nSubject: %s\nContent: %s\n\n", i+1, e.From, e.Subject, content)
	}

	b.WriteString(`For each email, provide:
1. A concise, actionable summary (1 sentence maximum) - focus on what the sender wants/needs or key information
2. Priority level:
   - high: urgent actions needed, deadlines, important requests, security alerts
   - normal: regular business/personal communication, information sharing
   - low: newsletters, promotions, non-urgent updates
3. Category label - choose ONE of: personal, work, promotional, finance, travel, shopping, social, news, health, education, support, security, legal, entertainment, food, sports, tech, real-estate, automotive, other
4. Suggested reply (optional, only if the email clearly needs a response, max 1-2 sentences)

Create summaries that answer: "What does this person want from me?" or "What's the key takeaway?"

Respond with ONLY a JSON array of objects with keys: subject, sender, summary, priority, label, suggestedReply. One object per email, in the same order as the emails above.`)

	return b.String()
}
