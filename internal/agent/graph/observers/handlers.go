package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/tracing"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

// NewAllCallbacks aggregates the prompt, model and tool observers plus the
// graph run logger into one list for compose.WithCallbacks.
func NewAllCallbacks() []einocb.Handler {
	components := callbackHelper.NewHandlerHelper().
		Tool(newToolHandler()).
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()

	return []einocb.Handler{components, newRunHandler()}
}

type runStartKey struct{}

// newRunHandler logs the start, end and failure of whole graph runs together
// with the trace they belong to.
func newRunHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			if info.Component != compose.ComponentOfGraph {
				return ctx
			}
			traceID, _ := tracing.TraceIDFromContext(ctx)
			logx.Debug().Str("graph", info.Name).Str("trace_id", traceID).Msg("workflow start")
			return context.WithValue(ctx, runStartKey{}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			if info.Component != compose.ComponentOfGraph {
				return ctx
			}
			traceID, _ := tracing.TraceIDFromContext(ctx)
			ev := logx.Info().Str("graph", info.Name).Str("trace_id", traceID)
			if start, ok := ctx.Value(runStartKey{}).(time.Time); ok {
				ev = ev.Dur("elapsed", time.Since(start))
			}
			ev.Msg("workflow end")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if info.Component != compose.ComponentOfGraph {
				return ctx
			}
			traceID, _ := tracing.TraceIDFromContext(ctx)
			logx.Warn().Err(err).Str("graph", info.Name).Str("trace_id", traceID).Msg("workflow failed")
			return ctx
		}).
		Build()
}
