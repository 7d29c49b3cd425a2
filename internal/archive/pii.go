package archive

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Word boundaries keep longer digit runs such as confirmation numbers intact.
	phoneRe = regexp.MustCompile(`\+?\b1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`)

	// 555-1234 style local numbers, the form patients are prompted for.
	localPhoneRe = regexp.MustCompile(`\b[0-9]{3}[-.][0-9]{4}\b`)
)

// ScrubPII replaces emails and phone numbers with placeholders. Names are
// kept so archived transcripts still read as conversations.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	text = phoneRe.ReplaceAllStringFunc(text, keepLeadingSpace("[PHONE]"))
	text = localPhoneRe.ReplaceAllString(text, "[PHONE]")
	return text
}

// ScrubMessages applies PII scrubbing to all messages in-place.
func ScrubMessages(msgs []Message) {
	for i := range msgs {
		msgs[i].Content = ScrubPII(msgs[i].Content)
	}
}

// The phone pattern may start on the separator before the number.
func keepLeadingSpace(placeholder string) func(string) string {
	return func(match string) string {
		trimmed := strings.TrimLeft(match, " \t")
		return match[:len(match)-len(trimmed)] + placeholder
	}
}
