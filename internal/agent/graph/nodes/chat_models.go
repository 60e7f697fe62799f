package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderArk      = "ark"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	LLM        model.LLMConfig
	RouterCfg  *model.RouterModelConfig
	RespConfig *model.ResponseModelConfig
}

// ChatModels holds the router model, the plain response model and the
// response model with tools bound.
type ChatModels struct {
	Router            einomodel.ToolCallingChatModel
	Response          einomodel.ToolCallingChatModel
	Tool              einomodel.ToolCallingChatModel
	RouterModelName   string
	ResponseModelName string
}

// modelSpec is the provider-neutral part of one chat model.
type modelSpec struct {
	name        string
	maxTokens   int
	temperature float32
	thinking    bool
}

// NewChatModels creates the router and response chat models for the configured provider.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.RouterCfg == nil || config.RespConfig == nil {
		return nil, fmt.Errorf("chat model configs are nil")
	}
	if strings.TrimSpace(config.LLM.APIKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	build, err := newModelBuilder(ctx, config.LLM)
	if err != nil {
		return nil, err
	}

	router, err := build(ctx, modelSpec{
		name:        config.RouterCfg.Model,
		maxTokens:   config.RouterCfg.MaxTokens,
		temperature: config.RouterCfg.Temperature,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating router model")
		return nil, fmt.Errorf("error creating router model: %w", err)
	}

	response, err := build(ctx, modelSpec{
		name:        config.RespConfig.Model,
		maxTokens:   config.RespConfig.MaxTokens,
		temperature: config.RespConfig.Temperature,
		thinking:    true,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &ChatModels{
		Router:            router,
		Response:          response,
		RouterModelName:   config.RouterCfg.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}

type modelBuilder func(context.Context, modelSpec) (einomodel.ToolCallingChatModel, error)

func newModelBuilder(ctx context.Context, llm model.LLMConfig) (modelBuilder, error) {
	switch strings.ToLower(strings.TrimSpace(llm.Provider)) {
	case "", ProviderGemini:
		clientCfg := &genai.ClientConfig{
			APIKey:  llm.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if llm.BaseURL != "" {
			clientCfg.HTTPOptions.BaseURL = llm.BaseURL
		}
		client, err := genai.NewClient(ctx, clientCfg)
		if err != nil {
			logx.Error().Err(err).Msg("Error creating Gemini client")
			return nil, fmt.Errorf("error creating Gemini client: %w", err)
		}
		return func(ctx context.Context, spec modelSpec) (einomodel.ToolCallingChatModel, error) {
			cfg := &gemini.Config{
				Client:      client,
				Model:       spec.name,
				Temperature: &spec.temperature,
				MaxTokens:   &spec.maxTokens,
			}
			if spec.thinking {
				cfg.ThinkingConfig = &genai.ThinkingConfig{
					IncludeThoughts: false,
					ThinkingBudget:  genai.Ptr(int32(2000)),
				}
			}
			return gemini.NewChatModel(ctx, cfg)
		}, nil

	case ProviderOpenAI:
		return func(ctx context.Context, spec modelSpec) (einomodel.ToolCallingChatModel, error) {
			return openai.NewChatModel(ctx, &openai.ChatModelConfig{
				APIKey:      llm.APIKey,
				BaseURL:     llm.BaseURL,
				Model:       spec.name,
				MaxTokens:   &spec.maxTokens,
				Temperature: &spec.temperature,
			})
		}, nil

	case ProviderDeepSeek:
		return func(ctx context.Context, spec modelSpec) (einomodel.ToolCallingChatModel, error) {
			return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
				APIKey:      llm.APIKey,
				BaseURL:     llm.BaseURL,
				Model:       spec.name,
				MaxTokens:   spec.maxTokens,
				Temperature: spec.temperature,
			})
		}, nil

	case ProviderArk:
		return func(ctx context.Context, spec modelSpec) (einomodel.ToolCallingChatModel, error) {
			return ark.NewChatModel(ctx, &ark.ChatModelConfig{
				APIKey:      llm.APIKey,
				BaseURL:     llm.BaseURL,
				Model:       spec.name,
				MaxTokens:   &spec.maxTokens,
				Temperature: &spec.temperature,
			})
		}, nil
	}
	return nil, fmt.Errorf("unsupported LLM provider: %s", llm.Provider)
}

// BindTools derives the tool-calling model from the response model.
func (cm *ChatModels) BindTools(tools []*schema.ToolInfo) error {
	bound, err := cm.Response.WithTools(tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}
	cm.Tool = bound

	logx.Debug().Int("tools", len(tools)).Msg("Successfully bound tools to response model")
	return nil
}
