package model

import "time"

// ================ Config ================
type LLMConfig struct {
	Provider string `envconfig:"LLM_PROVIDER" default:"gemini"`
	APIKey   string `envconfig:"LLM_API_KEY" required:"true"`
	BaseURL  string `envconfig:"LLM_BASE_URL"`
}

type RouterModelConfig struct {
	Model       string  `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"ROUTER_MAX_TOKENS" default:"64"`
	Temperature float32 `envconfig:"ROUTER_TEMPERATURE" default:"0"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type ResponsePromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"Chative"`
	Persona       string `envconfig:"PROMPT_PERSONA" default:"a concise, friendly terminal assistant"`
}

type ConversationConfig struct {
	StorePath  string `envconfig:"CONVERSATION_FILE" default:".chatcli/conversations.json"`
	MaxThreads int    `envconfig:"CONVERSATION_MAX_THREADS" default:"20"`
	SaveEvery  int    `envconfig:"CONVERSATION_SAVE_EVERY" default:"2"`
	Router     struct {
		MaxTurns int `envconfig:"CONVERSATION_ROUTER_MAX_TURNS" default:"6"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
}

type FeedbackConfig struct {
	Enabled      bool          `envconfig:"FEEDBACK_ENABLED" default:"true"`
	Key          string        `envconfig:"FEEDBACK_KEY" default:"user_rating"`
	PendingStore string        `envconfig:"FEEDBACK_PENDING_STORE" default:"memory"`
	PendingTTL   time.Duration `envconfig:"FEEDBACK_PENDING_TTL" default:"168h"`
}

type TracingConfig struct {
	APIKey   string        `envconfig:"LANGSMITH_API_KEY"`
	Endpoint string        `envconfig:"LANGSMITH_ENDPOINT" default:"https://api.smith.langchain.com"`
	Project  string        `envconfig:"LANGSMITH_PROJECT" default:"chatcli"`
	Timeout  time.Duration `envconfig:"TRACING_TIMEOUT" default:"10s"`
}

// Enabled reports whether remote tracing credentials are present.
func (c TracingConfig) Enabled() bool {
	return c.APIKey != ""
}

type AuthConfig struct {
	BaseURL    string        `envconfig:"AUTH_BASE_URL" default:"http://localhost:8080/api"`
	StorePath  string        `envconfig:"AUTH_FILE" default:".chatcli/auth.json"`
	SessionTTL time.Duration `envconfig:"AUTH_SESSION_TTL" default:"24h"`
}

type SearchConfig struct {
	URL        string `envconfig:"SEARCH_API_URL" default:"https://api.tavily.com/search"`
	APIKey     string `envconfig:"SEARCH_API_KEY"`
	MaxResults int    `envconfig:"SEARCH_MAX_RESULTS" default:"5"`
}

type WorkflowConfig struct {
	Timeout time.Duration `envconfig:"WORKFLOW_TIMEOUT" default:"30s"`
}
