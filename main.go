package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	"github.com/Chative-core-poc-v1/chatcli/internal/core"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/chatcli/pkg/redis"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// AppConfig defines all configurable parameters of the chat CLI,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`
	LogFile     string           `envconfig:"LOG_FILE"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	LLM model.LLMConfig

	// Agent configs
	Router       model.RouterModelConfig
	Response     model.ResponseModelConfig
	Prompt       model.ResponsePromptConfig
	Conversation model.ConversationConfig
	Workflow     model.WorkflowConfig

	// Feedback and tracing
	Feedback model.FeedbackConfig
	Tracing  model.TracingConfig

	// Tool backends
	Auth   model.AuthConfig
	Search model.SearchConfig
}

type rootFlags struct {
	envFile   string
	logLevel  string
	resume    bool
	newThread bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:   "chatcli",
		Short: "Terminal assistant with tools, threads and answer ratings",
		Long: `chatcli routes each message through an LLM workflow that can call tools
(auth backend, web search, HTTP, calculator, text and unit helpers), keeps
conversations as resumable threads and asks you to rate every answer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), f, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (debug,info,warn,error); overrides LOG_LEVEL")
	root.Flags().BoolVar(&f.resume, "resume", false, "resume the newest saved thread without asking")
	root.Flags().BoolVar(&f.newThread, "new", false, "start a new thread without asking")
	root.MarkFlagsMutuallyExclusive("resume", "new")

	root.AddCommand(newThreadsCmd(f), newVersionCmd())
	return root
}

func newThreadsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List saved conversation threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listThreads(cmd.Context(), f, cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chatcli version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logx.Error().Err(err).Msg("chatcli failed")
		os.Exit(1)
	}
}
