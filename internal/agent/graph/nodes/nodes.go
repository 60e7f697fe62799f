package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/conversations"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const (
	NodeInputConverter    = "InputConverter"
	NodeRouterChatModel   = "RouterChatModel"
	NodeRouteParser       = "RouteParser"
	NodeResponseAssembler = "ResponseAssembler"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolAssembler     = "ToolAssembler"
	NodeToolChatModel     = "ToolChatModel"
	NodeToolExecutor      = "ToolExecutor"
	NodeFinalizer         = "Finalizer"
)

// ErrEmptyInput is returned when the workflow is invoked without a user message.
var ErrEmptyInput = errors.New("workflow input has no user message")

// NewInputConverterPreHandler seeds per-run state from the workflow input.
func NewInputConverterPreHandler() func(context.Context, model.WorkflowInput, *model.AppState) (model.WorkflowInput, error) {
	return func(ctx context.Context, in model.WorkflowInput, s *model.AppState) (model.WorkflowInput, error) {
		s.ThreadID = in.ThreadID
		s.TraceID = in.TraceID
		s.Conversation = in.Messages
		s.History = nil
		s.Turn = nil
		s.Route = model.Route{}
		// Reset tool call counter and limit flag for each new query
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		if last := lastUserMessage(in.Messages); last != nil {
			s.Query = last.Content
		}
		return in, nil
	}
}

// NewInputConverterNode builds the router prompt for the current message.
func NewInputConverterNode(routerMaxTurns int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.WorkflowInput) ([]*schema.Message, error) {
		idx := lastUserIndex(input.Messages)
		if idx < 0 || strings.TrimSpace(input.Messages[idx].Content) == "" {
			return nil, ErrEmptyInput
		}
		routerCtx := conversations.BuildRouterContext(input.Messages[:idx], input.Messages[idx].Content, routerMaxTurns)

		// Generate system prompt via Eino prompt component (enables prompt callbacks)
		systemPrompt, err := prompts.RenderRouterSystem(ctx)
		if err != nil {
			return nil, fmt.Errorf("render router system prompt: %w", err)
		}

		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(routerCtx),
		}, nil
	})
}

// NewRouterChatModelPostHandler records usage cost for the router model.
func NewRouterChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsage(state, NodeRouterChatModel, modelName, out)
		return out, nil
	}
}

// NewRouteParserNode turns the router reply into a route.
func NewRouteParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (model.Route, error) {
		var query string
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			query = state.Query
			return nil
		}); err != nil {
			return model.Route{}, fmt.Errorf("failed to access state: %w", err)
		}

		var reply string
		if resp != nil {
			reply = resp.Content
		}
		return parsers.ParseRoute(reply, query), nil
	})
}

// NewRouteParserPostHandler saves the route to state.
func NewRouteParserPostHandler() func(context.Context, model.Route, *model.AppState) (model.Route, error) {
	return func(ctx context.Context, out model.Route, state *model.AppState) (model.Route, error) {
		state.Route = out
		logx.Debug().
			Str("thread_id", state.ThreadID).
			Str("category", string(out.Category)).
			Str("source", string(out.Source)).
			Msg("Route selected")
		return out, nil
	}
}

// NewRouteCondition sends tool categories to the tool loop and everything else
// to the direct answer path.
func NewRouteCondition() func(context.Context, model.Route) (string, error) {
	return func(ctx context.Context, route model.Route) (string, error) {
		if route.Category.UsesTools() {
			return NodeToolAssembler, nil
		}
		return NodeResponseAssembler, nil
	}
}

// NewAssemblerNode builds the answer context: routed system prompt plus the
// conversation. Used for both the direct and the tool path.
func NewAssemblerNode(responsePromptConfig *model.ResponsePromptConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, route model.Route) ([]*schema.Message, error) {
		var history []*schema.Message
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			history = state.Conversation
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		respSysPrompt, err := prompts.RenderResponseSystem(ctx, *responsePromptConfig, route.Category)
		if err != nil {
			return nil, fmt.Errorf("generate response prompt: %w", err)
		}
		return conversations.BuildResponseContext(respSysPrompt, history), nil
	})
}

// NewResponseChatModelPostHandler records cost and the final answer of the direct path.
func NewResponseChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		recordUsage(state, NodeResponseChatModel, modelName, out)
		if out != nil {
			state.Turn = append(state.Turn, out)
		}
		logx.Debug().Msg("AI response ready")
		return out, nil
	}
}

// NewToolChatModelPreHandler accumulates the tool loop history and injects the
// wrap-up notice once the tool call limit is hit.
func NewToolChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		// Some providers drop tool_call_id on tool results; recover it from the last call
		if len(in) > 0 {
			last := in[len(in)-1]
			if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
				for i := len(state.History) - 1; i >= 0; i-- {
					msg := state.History[i]
					if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
						continue
					}
					if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
						last.ToolCallID = id
					}
					break
				}
			}
		}

		state.History = append(state.History, in...)

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			state.History = append(state.History, &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Please synthesize a helpful response using the information you've already gathered. "+
						"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls.",
					maxToolCalls,
				),
			})
		}

		logx.Debug().Msg("AI thinking...")
		return state.History, nil
	}
}

// NewToolChatModelPostHandler records cost, fills missing tool call ids and
// keeps the message for the turn transcript.
func NewToolChatModelPostHandler(modelName string) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			return out, nil
		}
		recordUsage(state, NodeToolChatModel, modelName, out)

		// Some providers (Gemini OpenAI-compat) may omit tool_call IDs.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				state.ToolCallIDSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
			}
		}

		state.History = append(state.History, out)
		state.Turn = append(state.Turn, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("AI response ready")
		}
		return out, nil
	}
}

// NewToolExecutorCondition routes tool calls to the executor unless the limit was hit.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		_ = compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - finishing")
			return NodeFinalizer, nil
		}
		if input != nil && len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		return NodeFinalizer, nil
	}
}

// NewToolExecutorPreHandler counts tool executions against the limit.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("thread_id", state.ThreadID).
			Msg("Tool execution attempt")

		if exceeded {
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Str("thread_id", state.ThreadID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}
		return in, nil
	}
}

// NewToolExecutorPostHandler keeps tool results for the turn transcript.
func NewToolExecutorPostHandler() func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		state.Turn = append(state.Turn, out...)
		return out, nil
	}
}

// NewFinalizerNode assembles the workflow output from the turn transcript.
func NewFinalizerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, last *schema.Message) (model.WorkflowOutput, error) {
		var out model.WorkflowOutput
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			out = model.WorkflowOutput{
				Category: state.Route.Category,
				TraceID:  state.TraceID,
				CostUSD:  state.TotalCostUSD,
				Messages: finalizeTurn(state.Turn, last, state.ToolCallLimitReached),
			}
			return nil
		})
		if err != nil {
			return model.WorkflowOutput{}, fmt.Errorf("failed to access state: %w", err)
		}
		if n := len(out.Messages); n > 0 {
			out.Reply = out.Messages[n-1].Content
		}
		return out, nil
	})
}
