package letters

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
	"github.com/angelmondragon/ttml-backend/pkg/llm"
)

const systemPrompt = `You are an experienced attorney drafting formal legal correspondence on behalf of a client.
Write a clear, professional and firm letter based only on the facts supplied.
Do not invent facts, case numbers or statutes that were not provided.
Return only the body of the letter followed by a closing and the sender's name.
Do not include the date, addresses, a salutation or a subject line; those are added separately.
Use plain paragraphs separated by a blank line, without markdown.`

var urgencyTone = map[enums.UrgencyLevel]string{
	enums.UrgencyLow:      "Keep the tone cordial and cooperative.",
	enums.UrgencyStandard: "Keep the tone professional and firm.",
	enums.UrgencyUrgent:   "Make the tone urgent and state that further action will follow if the matter is not resolved promptly.",
}

// buildPrompt serializes the form into a fixed, labelled layout.
func buildPrompt(letterType LetterType, urgency enums.UrgencyLevel, form *FormData) llm.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Letter type: %s\n", letterType.Name)
	fmt.Fprintf(&b, "Urgency: %s. %s\n\n", urgency, urgencyTone[urgency])
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	field("Sender", form.SenderName)
	field("Sender address", form.SenderAddress)
	field("Recipient", form.RecipientName)
	field("Recipient address", form.RecipientAddress)
	field("Subject", form.Subject)
	field("Response deadline", form.Deadline)
	field("Amount in dispute", form.Amount)
	b.WriteString("\nWhat happened:\n")
	b.WriteString(form.IncidentDetails)
	b.WriteString("\n\nDesired outcome:\n")
	b.WriteString(form.DesiredOutcome)
	b.WriteString("\n")
	return llm.Prompt{System: systemPrompt, User: b.String()}
}
