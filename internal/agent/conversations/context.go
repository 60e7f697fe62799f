package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// BuildRouterContext renders the recent turns and the current message as the
// tagged block the router prompt expects.
func BuildRouterContext(history []*schema.Message, query string, maxTurns int) string {
	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, msg := range trimTail(history, maxTurns) {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>\n")
	b.WriteString("<current_message_to_analyze>\n")
	b.WriteString("UserMessage(" + query + ")\n")
	b.WriteString("</current_message_to_analyze>")
	return b.String()
}

// BuildResponseContext prefixes the history with the system prompt.
func BuildResponseContext(systemPrompt string, history []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history)+1)
	out = append(out, schema.SystemMessage(systemPrompt))
	for _, msg := range history {
		if msg != nil {
			out = append(out, msg)
		}
	}
	return out
}

func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
