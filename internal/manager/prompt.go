package manager

import "strings"

// chatStopWords end a turn in the ChatML layout produced by renderChatML.
var chatStopWords = []string{"<|im_end|>", "<|im_start|>"}

// renderChatML lays turns out for engines that take a raw prompt and
// leaves the assistant turn open.
func renderChatML(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = RoleUser
		}
		b.WriteString("<|im_start|>")
		b.WriteString(string(role))
		b.WriteByte('\n')
		b.WriteString(t.Content)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}
