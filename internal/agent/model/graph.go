package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers:
//     WithStatePreHandler, WithStatePostHandler, or compose.ProcessState.
//   - Eino serializes access to state within these handlers, so no additional
//     mutex/atomic is required as long as you never touch it outside handlers.
type AppState struct {
	ThreadID             string
	TraceID              string
	Query                string            // latest user message
	Conversation         []*schema.Message // history handed in by the caller
	History              []*schema.Message // model context for the tool loop
	Turn                 []*schema.Message // messages produced during this invocation
	Route                Route             // set by route parser post-handler
	ToolCallCount        int
	ToolCallLimitReached bool
	ToolCallIDSeq        int // local sequence to synthesize tool_call_id when provider omits

	// Accumulated total LLM cost (USD) across model invocations for this turn
	TotalCostUSD float64
}

// WorkflowInput is the message-list state handed to the workflow.
type WorkflowInput struct {
	ThreadID string
	TraceID  string
	Messages []*schema.Message
}

// WorkflowOutput is the updated state returned by the workflow.
type WorkflowOutput struct {
	Reply    string
	Category ToolCategory
	TraceID  string
	CostUSD  float64
	// Messages produced in this turn, final answer last.
	Messages []*schema.Message
}
