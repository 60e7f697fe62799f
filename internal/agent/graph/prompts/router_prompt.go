package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/router_prompt.txt
var routerSystemPrompt string

// RenderRouterSystem renders the router system prompt via Eino prompt component.
// This triggers Prompt callbacks and returns the final system prompt string.
func RenderRouterSystem(ctx context.Context) (string, error) {
	// Messages placeholder keeps the template free of format tokens
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(routerSystemPrompt)},
	})
	if err != nil {
		return "", fmt.Errorf("router prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("router prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}
