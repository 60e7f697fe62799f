package nodes

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const DefaultMaxToolCalls = 10

const (
	limitFallbackReply = "I reached the tool call limit before finishing. Please narrow the request and try again."
	emptyFallbackReply = "I couldn't produce an answer this time. Please try rephrasing."
)

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit evaluates whether another tool call would exceed the
// limit and, if so, marks the state accordingly. Returns true when marked now.
func checkAndMarkToolLimit(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// incrementToolCallAndCheck increments the count and marks the state if it
// exceeds the limit after incrementing. Returns true when exceeded.
func incrementToolCallAndCheck(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount++
	if state.ToolCallCount > max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// recordUsage computes and accumulates the cost of one model call.
func recordUsage(state *model.AppState, node, modelName string, out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	state.TotalCostUSD += totalC

	logx.Debug().
		Str("thread_id", state.ThreadID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Float64("turn_cost_usd", state.TotalCostUSD).
		Msg("LLM usage")
}

// finalizeTurn returns the turn transcript ending in a plain assistant answer.
// A trailing tool call left unanswered because of the limit is replaced so the
// stored history never holds a call without its result.
func finalizeTurn(turn []*schema.Message, last *schema.Message, limitReached bool) []*schema.Message {
	out := make([]*schema.Message, 0, len(turn)+1)
	out = append(out, turn...)
	if len(out) == 0 && last != nil {
		out = append(out, last)
	}
	if len(out) == 0 {
		return []*schema.Message{schema.AssistantMessage(emptyFallbackReply, nil)}
	}

	final := out[len(out)-1]
	if final.Role == schema.Assistant && len(final.ToolCalls) == 0 && strings.TrimSpace(final.Content) != "" {
		return out
	}

	var content string
	if final.Role == schema.Assistant {
		content = strings.TrimSpace(final.Content)
		out = out[:len(out)-1]
	}
	if content == "" {
		content = emptyFallbackReply
		if limitReached {
			content = limitFallbackReply
		}
	}
	return append(out, schema.AssistantMessage(content, nil))
}

func lastUserIndex(msgs []*schema.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] != nil && msgs[i].Role == schema.User {
			return i
		}
	}
	return -1
}

func lastUserMessage(msgs []*schema.Message) *schema.Message {
	if i := lastUserIndex(msgs); i >= 0 {
		return msgs[i]
	}
	return nil
}
