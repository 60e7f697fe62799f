package graph

import (
	"context"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/tracing"
)

// scriptedModel replays canned replies; the last one repeats once exhausted.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	inputs  [][]*schema.Message
	bound   *scriptedModel
	tools   []*schema.ToolInfo
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	idx := len(m.inputs) - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	reply := *m.replies[idx]
	reply.ToolCalls = append([]schema.ToolCall(nil), m.replies[idx].ToolCalls...)
	return &reply, nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	if m.bound == nil {
		m.bound = &scriptedModel{replies: m.replies}
	}
	m.bound.tools = tools
	return m.bound, nil
}

type fakeTracer struct {
	mu      sync.Mutex
	started []tracing.RunInput
	ended   map[string]map[string]any
	errs    map[string]string
}

func (f *fakeTracer) StartRun(_ context.Context, in tracing.RunInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, in)
	return nil
}

func (f *fakeTracer) EndRun(_ context.Context, id string, outputs map[string]any, errText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ended == nil {
		f.ended = map[string]map[string]any{}
		f.errs = map[string]string{}
	}
	f.ended[id] = outputs
	f.errs[id] = errText
	return nil
}

func toolCall(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			Type:     "function",
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func buildRunner(t *testing.T, router, response *scriptedModel, toolReplies []*schema.Message, maxCalls int, tracer RunTracer) Runner {
	t.Helper()
	if toolReplies != nil {
		response.bound = &scriptedModel{replies: toolReplies}
	}
	ts, err := tools.GetQueryTools(tools.Deps{})
	require.NoError(t, err)

	runnable, err := BuildGraph(context.Background(), &GraphConfig{
		ChatModels: &nodes.ChatModels{
			Router:            router,
			Response:          response,
			RouterModelName:   "gemini-2.5-flash-lite",
			ResponseModelName: "gemini-2.5-flash",
		},
		Tools:                ts,
		ResponsePromptConfig: &model.ResponsePromptConfig{AssistantName: "Chative", Persona: "a test assistant"},
		RouterMaxTurns:       4,
		ToolMaxCalls:         maxCalls,
	})
	require.NoError(t, err)
	return NewRunner(runnable, tracer)
}

func userTurn(history ...*schema.Message) model.WorkflowInput {
	return model.WorkflowInput{ThreadID: "thread-1", Messages: history}
}

func TestGraph_GeneralRoute(t *testing.T) {
	router := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("general", nil)}}
	response := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("Hello there!", nil)}}
	runner := buildRunner(t, router, response, nil, 10, nil)

	out, err := runner.Invoke(context.Background(), userTurn(
		schema.UserMessage("hi"),
		schema.AssistantMessage("hello", nil),
		schema.UserMessage("how are you?"),
	))
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", out.Reply)
	assert.Equal(t, model.CategoryGeneral, out.Category)
	require.Len(t, out.Messages, 1)
	_, err = uuid.Parse(out.TraceID)
	assert.NoError(t, err)

	require.Len(t, router.inputs, 1)
	routerCtx := router.inputs[0][1].Content
	assert.Contains(t, routerCtx, "UserMessage(hi)")
	assert.Contains(t, routerCtx, "<current_message_to_analyze>\nUserMessage(how are you?)")

	require.Len(t, response.inputs, 1)
	sent := response.inputs[0]
	assert.Equal(t, schema.System, sent[0].Role)
	assert.Len(t, sent, 4)
}

func TestGraph_ToolRoute(t *testing.T) {
	router := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("calculator", nil)}}
	response := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("unused", nil)}}
	runner := buildRunner(t, router, response, []*schema.Message{
		toolCall(tools.ToolCalculator, `{"expression":" 2+2 "}`),
		schema.AssistantMessage("2+2 is 4.", nil),
	}, 10, nil)

	out, err := runner.Invoke(context.Background(), userTurn(schema.UserMessage("what is 2+2")))
	require.NoError(t, err)
	assert.Equal(t, model.CategoryCalculator, out.Category)
	assert.Equal(t, "2+2 is 4.", out.Reply)

	require.Len(t, out.Messages, 3)
	call, result, final := out.Messages[0], out.Messages[1], out.Messages[2]
	require.Len(t, call.ToolCalls, 1)
	assert.Equal(t, "call_1", call.ToolCalls[0].ID)
	assert.Equal(t, schema.Tool, result.Role)
	assert.Equal(t, "call_1", result.ToolCallID)
	assert.Contains(t, result.Content, `"result":4`)
	assert.Equal(t, schema.Assistant, final.Role)

	assert.Empty(t, response.inputs, "the tool path uses the tool-bound model")
	assert.NotEmpty(t, response.bound.tools)
	prompt := response.bound.inputs[0][0].Content
	assert.Contains(t, prompt, `"calculator" capability`)
}

func TestGraph_ToolLimitEndsWithPlainAnswer(t *testing.T) {
	router := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("calculator", nil)}}
	response := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("unused", nil)}}
	runner := buildRunner(t, router, response, []*schema.Message{
		toolCall(tools.ToolCalculator, `{"expression":"1+1"}`),
	}, 1, nil)

	out, err := runner.Invoke(context.Background(), userTurn(schema.UserMessage("loop forever 1+1")))
	require.NoError(t, err)

	last := out.Messages[len(out.Messages)-1]
	assert.Empty(t, last.ToolCalls)
	assert.Contains(t, out.Reply, "tool call limit")
	for _, m := range out.Messages {
		if len(m.ToolCalls) > 0 {
			found := false
			for _, r := range out.Messages {
				if r.Role == schema.Tool && r.ToolCallID == m.ToolCalls[0].ID {
					found = true
				}
			}
			assert.True(t, found, "every kept tool call has a result")
		}
	}

	bound := response.bound
	lastInput := bound.inputs[len(bound.inputs)-1]
	var notice bool
	for _, m := range lastInput {
		if m.Role == schema.System && strings.Contains(m.Content, "maximum tool call limit") {
			notice = true
		}
	}
	assert.True(t, notice)
}

func TestRunner_TracesRuns(t *testing.T) {
	router := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("general", nil)}}
	response := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("ok", nil)}}
	tracer := &fakeTracer{}
	runner := buildRunner(t, router, response, nil, 10, tracer)

	in := userTurn(schema.UserMessage("ping"))
	in.TraceID = "trace-123"
	out, err := runner.Invoke(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "trace-123", out.TraceID)

	require.Len(t, tracer.started, 1)
	assert.Equal(t, "trace-123", tracer.started[0].ID)
	assert.Equal(t, "thread-1", tracer.started[0].ThreadID)
	assert.Equal(t, "ok", tracer.ended["trace-123"]["reply"])
	assert.Empty(t, tracer.errs["trace-123"])

	_, err = runner.Invoke(context.Background(), model.WorkflowInput{TraceID: "trace-err"})
	require.Error(t, err)
	assert.NotEmpty(t, tracer.errs["trace-err"])
}

func TestSanitizeArguments(t *testing.T) {
	assert.JSONEq(t, `{"query":"go","max_results":10}`,
		sanitizeArguments(tools.ToolWebSearch, `{"query":"  go ","max_results":99}`))
	assert.JSONEq(t, `{"operation":"trim","text":"  keep  "}`,
		sanitizeArguments(tools.ToolTextTransform, `{"operation":" trim ","text":"  keep  "}`))
	assert.Equal(t, "not json", sanitizeArguments(tools.ToolCalculator, "not json"))
}
