package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/tracing"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const runName = "chatcli_turn"

// Runner executes one conversation turn through the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in model.WorkflowInput) (model.WorkflowOutput, error)
}

// RunTracer records each invocation as a root run in the trace store.
type RunTracer interface {
	StartRun(ctx context.Context, in tracing.RunInput) error
	EndRun(ctx context.Context, id string, outputs map[string]any, errText string) error
}

// Config holds everything needed to compose the full response graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels and tools.
type Config struct {
	LLM            model.LLMConfig
	RouterModel    model.RouterModelConfig
	ResponseModel  model.ResponseModelConfig
	ResponsePrompt model.ResponsePromptConfig
	Conversation   model.ConversationConfig
	Tools          tools.Deps
	// Tracer is optional; nil disables remote runs.
	Tracer RunTracer
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels           *nodes.ChatModels
	Tools                []tool.BaseTool
	ResponsePromptConfig *model.ResponsePromptConfig
	RouterMaxTurns       int
	ToolMaxCalls         int
}

// GraphBuilder handles the construction of the agent conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.WorkflowInput, model.WorkflowOutput]
}

type graphRunner struct {
	runnable compose.Runnable[model.WorkflowInput, model.WorkflowOutput]
	tracer   RunTracer
}

// NewRunner wraps a compiled graph. tracer may be nil.
func NewRunner(runnable compose.Runnable[model.WorkflowInput, model.WorkflowOutput], tracer RunTracer) Runner {
	return &graphRunner{runnable: runnable, tracer: tracer}
}

func (r *graphRunner) Invoke(ctx context.Context, in model.WorkflowInput) (model.WorkflowOutput, error) {
	if strings.TrimSpace(in.TraceID) == "" {
		in.TraceID = uuid.NewString()
	}
	ctx = tracing.WithTraceID(ctx, in.TraceID)
	r.startRun(ctx, in)

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()...))
	if err != nil {
		r.endRun(ctx, in.TraceID, nil, err)
		return model.WorkflowOutput{TraceID: in.TraceID}, err
	}
	out.TraceID = in.TraceID
	r.endRun(ctx, in.TraceID, runOutputs(out), nil)

	logx.Info().
		Str("thread_id", in.ThreadID).
		Str("trace_id", out.TraceID).
		Str("category", string(out.Category)).
		Float64("cost_usd", out.CostUSD).
		Msg("turn completed")
	return out, nil
}

// startRun and endRun are best effort: tracing failures never fail a turn.
func (r *graphRunner) startRun(ctx context.Context, in model.WorkflowInput) {
	if r.tracer == nil {
		return
	}
	err := r.tracer.StartRun(context.WithoutCancel(ctx), tracing.RunInput{
		ID:       in.TraceID,
		Name:     runName,
		ThreadID: in.ThreadID,
		Inputs:   map[string]any{"messages": persisted(in.Messages)},
	})
	if err != nil {
		logx.Warn().Err(err).Str("trace_id", in.TraceID).Msg("failed to start remote run")
	}
}

func (r *graphRunner) endRun(ctx context.Context, traceID string, outputs map[string]any, runErr error) {
	if r.tracer == nil {
		return
	}
	var errText string
	if runErr != nil {
		errText = runErr.Error()
	}
	// The turn may have timed out; closing the run still needs a live context.
	endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.tracer.EndRun(endCtx, traceID, outputs, errText); err != nil {
		logx.Warn().Err(err).Str("trace_id", traceID).Msg("failed to end remote run")
	}
}

func runOutputs(out model.WorkflowOutput) map[string]any {
	return map[string]any{
		"reply":    out.Reply,
		"category": string(out.Category),
		"cost_usd": out.CostUSD,
		"messages": persisted(out.Messages),
	}
}

func persisted(msgs []*schema.Message) []model.Message {
	now := time.Now().UTC()
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			out = append(out, model.MessageFromSchema(m, now))
		}
	}
	return out
}

// BuildResponseGraph composes ChatModels and tools, builds the graph, and returns a Runner.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		LLM:        cfg.LLM,
		RouterCfg:  &cfg.RouterModel,
		RespConfig: &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	businessTools, err := tools.GetQueryTools(cfg.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to build tools")
		return nil, fmt.Errorf("failed to build tools: %w", err)
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:           cms,
		Tools:                businessTools,
		ResponsePromptConfig: &cfg.ResponsePrompt,
		RouterMaxTurns:       cfg.Conversation.Router.MaxTurns,
		ToolMaxCalls:         cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Response graph built successfully")
	return NewRunner(runnable, cfg.Tracer), nil
}

// BuildGraph constructs and returns the compiled agent graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.WorkflowInput, model.WorkflowOutput], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Router == nil || config.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.ResponsePromptConfig == nil {
		return nil, fmt.Errorf("response prompt config is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.WorkflowInput, model.WorkflowOutput](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the business tools to the tool model and adds the executor node
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolInfos, err := tools.GetToolInfos(ctx, b.config.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindTools(toolInfos); err != nil {
		return fmt.Errorf("failed to bind tools to response model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.Tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Gracefully handle hallucinated or malformed tool calls (e.g., empty name)
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return sanitizeArguments(name, arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	return b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewToolExecutorPostHandler()),
	)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	cms := b.config.ChatModels
	steps := []func() error{
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeInputConverter,
				nodes.NewInputConverterNode(b.config.RouterMaxTurns),
				compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
			)
		},
		func() error {
			return b.graph.AddChatModelNode(nodes.NodeRouterChatModel, cms.Router,
				compose.WithStatePostHandler(nodes.NewRouterChatModelPostHandler(cms.RouterModelName)),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeRouteParser,
				nodes.NewRouteParserNode(),
				compose.WithStatePostHandler(nodes.NewRouteParserPostHandler()),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeResponseAssembler,
				nodes.NewAssemblerNode(b.config.ResponsePromptConfig),
			)
		},
		func() error {
			return b.graph.AddChatModelNode(nodes.NodeResponseChatModel, cms.Response,
				compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(cms.ResponseModelName)),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeToolAssembler,
				nodes.NewAssemblerNode(b.config.ResponsePromptConfig),
			)
		},
		func() error {
			return b.graph.AddChatModelNode(nodes.NodeToolChatModel, cms.Tool,
				compose.WithStatePreHandler(nodes.NewToolChatModelPreHandler(b.config.ToolMaxCalls)),
				compose.WithStatePostHandler(nodes.NewToolChatModelPostHandler(cms.ResponseModelName)),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeFinalizer, nodes.NewFinalizerNode())
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			logx.Error().Err(err).Msg("Error adding node")
			return fmt.Errorf("error adding node: %w", err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeRouterChatModel},
		{nodes.NodeRouterChatModel, nodes.NodeRouteParser},
		{nodes.NodeResponseAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeResponseChatModel, nodes.NodeFinalizer},
		{nodes.NodeToolAssembler, nodes.NodeToolChatModel},
		{nodes.NodeToolExecutor, nodes.NodeToolChatModel},
		{nodes.NodeFinalizer, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewRouteCondition(),
		map[string]bool{
			nodes.NodeResponseAssembler: true,
			nodes.NodeToolAssembler:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRouteParser, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}

	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			nodes.NodeFinalizer:    true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeToolChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.WorkflowInput, model.WorkflowOutput], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps), compose.WithGraphName("chatcli"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// sanitizeArguments trims string arguments and clamps numeric limits. It never
// fails: arguments that are not a JSON object pass through unchanged.
func sanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}
	for k, v := range m {
		if s, ok := v.(string); ok && !(name == tools.ToolTextTransform && k == "text") && k != "body" && k != "password" {
			m[k] = strings.TrimSpace(s)
		}
	}
	if name == tools.ToolWebSearch {
		if v, ok := m["max_results"].(float64); ok {
			m["max_results"] = clampInt(int(v), 1, 10)
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}

// clampInt returns v limited to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
