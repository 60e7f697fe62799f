package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
)

func TestRenderRouterSystem(t *testing.T) {
	got, err := RenderRouterSystem(context.Background())
	require.NoError(t, err)
	for _, c := range model.ToolCategories {
		assert.Contains(t, got, "- "+string(c)+":")
	}
}

func TestRenderResponseSystem(t *testing.T) {
	cfg := model.ResponsePromptConfig{AssistantName: "Ava", Persona: "a careful helper"}

	general, err := RenderResponseSystem(context.Background(), cfg, model.CategoryGeneral)
	require.NoError(t, err)
	assert.Contains(t, general, "You are Ava, a careful helper.")
	assert.NotContains(t, general, "capability")

	calc, err := RenderResponseSystem(context.Background(), cfg, model.CategoryCalculator)
	require.NoError(t, err)
	assert.Contains(t, calc, `routed to the "calculator" capability`)
	assert.Contains(t, calc, "- calculator")
}
