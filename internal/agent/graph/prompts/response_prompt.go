package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// RenderResponseSystem renders the answer system prompt for a routed turn and
// triggers prompt callbacks. Tool categories list their preferred tools.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, category model.ToolCategory) (string, error) {
	name := config.AssistantName
	if name == "" {
		name = "Chative"
	}
	persona := config.Persona
	if persona == "" {
		persona = "a concise, friendly terminal assistant"
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"AssistantName": name,
		"Persona":       persona,
		"Category":      string(category),
		"Tools":         tools.CategoryTools(category),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}
