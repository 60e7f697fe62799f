package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/conversations"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/feedback"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/repo"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/tracing"
	"github.com/Chative-core-poc-v1/chatcli/internal/cli"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const toolHTTPTimeout = 20 * time.Second

// loadEnv reads the dotenv file; a missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadConfig(f *rootFlags) (*AppConfig, error) {
	if err := loadEnv(f.envFile); err != nil {
		return nil, err
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return &cfg, nil
}

// initLogging sends logs to LOG_FILE when set, stderr otherwise. The returned
// closer must be called on exit.
func initLogging(cfg *AppConfig) (func(), error) {
	opts := logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel, Writer: os.Stderr}
	closer := func() {}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		opts.Writer = file
		closer = func() { _ = file.Close() }
	}
	logx.Init(opts)
	return closer, nil
}

func runChat(ctx context.Context, f *rootFlags, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	closeLog, err := initLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	conversationRepo := repo.NewFileConversationRepository(cfg.Conversation.StorePath, cfg.Conversation.MaxThreads)
	authRepo := repo.NewFileAuthRepository(cfg.Auth.StorePath, cfg.Auth.SessionTTL)

	var (
		tracer  graph.RunTracer
		remote  conversations.RemoteThreadSource
		factory feedback.ClientFactory
	)
	if cfg.Tracing.Enabled() {
		client, err := tracing.NewClient(cfg.Tracing)
		if err != nil {
			logx.Warn().Err(err).Msg("tracing disabled")
		} else {
			tracer, remote = client, client
			tracingCfg := cfg.Tracing
			factory = func() (feedback.Client, error) {
				return tracing.NewClient(tracingCfg)
			}
		}
	} else {
		logx.Info().Msg("LANGSMITH_API_KEY not set; ratings are kept locally")
	}

	pending, closePending := newPendingStore(ctx, cfg)
	defer closePending()

	runner, err := graph.BuildResponseGraph(ctx, graph.Config{
		LLM:            cfg.LLM,
		RouterModel:    cfg.Router,
		ResponseModel:  cfg.Response,
		ResponsePrompt: cfg.Prompt,
		Conversation:   cfg.Conversation,
		Tools: tools.Deps{
			HTTP:     resty.New().SetTimeout(toolHTTPTimeout),
			Auth:     cfg.Auth,
			AuthRepo: authRepo,
			Search:   cfg.Search,
		},
		Tracer: tracer,
	})
	if err != nil {
		return fmt.Errorf("build workflow: %w", err)
	}

	resume := cli.ResumeAsk
	switch {
	case f.resume:
		resume = cli.ResumeAlways
	case f.newThread:
		resume = cli.ResumeNever
	}

	session := cli.NewSession(in, out,
		runner,
		conversations.NewThreadManager(conversationRepo, remote, cfg.Conversation),
		feedback.NewSubmitter(cfg.Feedback, factory, pending),
		cli.Options{
			Timeout:         cfg.Workflow.Timeout,
			FeedbackEnabled: cfg.Feedback.Enabled,
			FeedbackKey:     cfg.Feedback.Key,
			Resume:          resume,
		},
	)

	logx.Debug().
		Str("environment", cfg.Environment.String()).
		Str("provider", cfg.LLM.Provider).
		Bool("tracing", tracer != nil).
		Msg("chat session starting")
	return session.Run(ctx)
}

// newPendingStore picks where undelivered ratings go. Redis problems fall back
// to the in-memory store so the chat still starts.
func newPendingStore(ctx context.Context, cfg *AppConfig) (feedback.PendingStore, func()) {
	noop := func() {}
	if !strings.EqualFold(cfg.Feedback.PendingStore, "redis") {
		return feedback.NewMemoryPendingStore(), noop
	}
	if !cfg.Redis.Enabled() {
		logx.Warn().Msg("FEEDBACK_PENDING_STORE=redis but REDIS_URL is empty; using memory")
		return feedback.NewMemoryPendingStore(), noop
	}
	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("failed to initialise Redis client; using memory")
		return feedback.NewMemoryPendingStore(), noop
	}
	logx.Debug().Msg("Connected to Redis successfully")
	return repo.NewRedisFeedbackRepository(rdb, cfg.Feedback.PendingTTL), func() { _ = rdb.Close() }
}

func listThreads(ctx context.Context, f *rootFlags, out io.Writer) error {
	if err := loadEnv(f.envFile); err != nil {
		return err
	}
	var conv model.ConversationConfig
	if err := envconfig.Process("", &conv); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	threads, err := repo.NewFileConversationRepository(conv.StorePath, conv.MaxThreads).Load(ctx)
	if err != nil {
		return err
	}
	if len(threads) == 0 {
		fmt.Fprintln(out, "No saved threads.")
		return nil
	}
	for i, t := range threads {
		fmt.Fprintf(out, "%2d. %s  %-50s  %3d msgs  %s\n",
			i+1, t.ID, t.Title, len(t.Messages), t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
