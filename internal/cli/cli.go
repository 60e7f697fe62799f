package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/conversations"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/feedback"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const (
	defaultTimeout = 30 * time.Second
	timeLayout     = "2006-01-02 15:04"
	maxLineBytes   = 1 << 20
)

// ErrWorkflowTimeout is reported when a turn exceeds the workflow budget.
var ErrWorkflowTimeout = errors.New("workflow timed out")

// Workflow runs one conversation turn.
type Workflow interface {
	Invoke(ctx context.Context, in model.WorkflowInput) (model.WorkflowOutput, error)
}

// FeedbackService records ratings and lists the ones kept locally.
type FeedbackService interface {
	Submit(ctx context.Context, req feedback.Request) feedback.Result
	Pending(ctx context.Context) ([]model.FeedbackRecord, error)
}

// ResumeMode controls the startup offer to continue the newest thread.
type ResumeMode int

const (
	ResumeAsk ResumeMode = iota
	ResumeAlways
	ResumeNever
)

type Options struct {
	Timeout         time.Duration
	FeedbackEnabled bool
	FeedbackKey     string
	Resume          ResumeMode
}

// Session is one interactive chat on a reader/writer pair.
type Session struct {
	in       *bufio.Scanner
	out      io.Writer
	workflow Workflow
	threads  *conversations.ThreadManager
	feedback FeedbackService
	flow     *feedback.Flow
	opts     Options
}

func NewSession(in io.Reader, out io.Writer, workflow Workflow, threads *conversations.ThreadManager, fb FeedbackService, opts Options) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Session{
		in:       scanner,
		out:      out,
		workflow: workflow,
		threads:  threads,
		feedback: fb,
		flow:     feedback.NewFlow(opts.FeedbackKey),
		opts:     opts,
	}
}

// FeedbackState exposes the rating state machine position.
func (s *Session) FeedbackState() feedback.State {
	return s.flow.State()
}

// Run reads lines until exit or end of input. Pending messages are saved on the way out.
func (s *Session) Run(ctx context.Context) error {
	s.offerResume(ctx)
	s.println(`Type a message to chat, "help" for commands, "exit" to quit.`)

	for {
		if err := ctx.Err(); err != nil {
			_ = s.threads.Save(context.WithoutCancel(ctx))
			return err
		}
		s.prompt()
		line, ok := s.readLine()
		if !ok {
			s.println("")
			_ = s.threads.Save(ctx)
			return s.in.Err()
		}
		if s.HandleLine(ctx, line) {
			return nil
		}
	}
}

// HandleLine processes one input line and reports whether the session should end.
func (s *Session) HandleLine(ctx context.Context, line string) bool {
	if s.flow.State() != feedback.StateIdle {
		if s.handleFeedback(ctx, line) {
			return false
		}
	}

	cmd := ParseCommand(line)
	switch cmd.Kind {
	case CommandExit:
		_ = s.threads.Save(ctx)
		s.println("Goodbye!")
		return true
	case CommandClear:
		s.flow.Reset()
		s.threads.Clear(ctx)
		s.println("Started a new thread.")
	case CommandHistory:
		s.printHistory(false)
	case CommandThreadHistory:
		s.printHistory(true)
	case CommandThread:
		s.printThread()
	case CommandThreads:
		s.printThreads(ctx)
	case CommandSwitchThread:
		s.switchThread(ctx, cmd.Arg)
	case CommandFeedback:
		s.printPendingFeedback(ctx)
	case CommandHelp:
		s.println(helpText)
	default:
		if strings.TrimSpace(line) != "" {
			s.turn(ctx, strings.TrimSpace(line))
		}
	}
	return false
}

// handleFeedback offers the line to the rating flow. It returns false when
// the line is not feedback and must be handled as a normal input.
func (s *Session) handleFeedback(ctx context.Context, line string) bool {
	outcome := s.flow.Handle(line)
	switch outcome.Kind {
	case feedback.OutcomeSkipped:
		s.println("Feedback skipped.")
	case feedback.OutcomeReprompt:
		s.println(`Please rate from 1 to 5, for example "4" or "4 - helpful", or type "skip".`)
	case feedback.OutcomeNeedComment:
		s.println("Any comment? Press Enter or type \"skip\" to submit without one.")
	case feedback.OutcomeReady:
		res := s.feedback.Submit(ctx, outcome.Request)
		s.println(res.Message)
	default:
		return false
	}
	return true
}

func (s *Session) turn(ctx context.Context, text string) {
	threadID := s.threads.ThreadID()
	s.threads.Append(ctx, model.NewUserMessage(text))

	out, err := s.invoke(ctx, model.WorkflowInput{
		ThreadID: threadID,
		Messages: model.ToSchemaMessages(s.threads.Messages()),
	})
	if err != nil {
		s.threads.RollbackLast(ctx, model.MessageHuman)
		if errors.Is(err, ErrWorkflowTimeout) {
			logx.Warn().Err(err).Str("thread_id", threadID).Msg("workflow timed out")
			s.printf("Error: the assistant did not answer within %s.\n", s.opts.Timeout)
			s.println("Suggestions:")
			s.println("  - try a shorter or simpler question")
			s.println("  - check your network connection and API key")
			s.println(`  - type "clear" to start a new thread if this one is very long`)
			return
		}
		logx.Error().Err(err).Str("thread_id", threadID).Msg("workflow failed")
		s.printf("Error: %v\n", err)
		return
	}

	now := time.Now().UTC()
	msgs := make([]model.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		if m != nil {
			msgs = append(msgs, model.MessageFromSchema(m, now))
		}
	}
	s.threads.Append(ctx, msgs...)

	s.printf("\n%s\n\n", out.Reply)
	if s.opts.FeedbackEnabled && out.TraceID != "" {
		s.flow.Await(out.TraceID, threadID)
		s.println(`Rate this answer 1-5 (optionally "- comment"), or "skip":`)
	}
}

// invoke bounds the workflow call; the deadline cancels in-flight model and tool requests.
func (s *Session) invoke(ctx context.Context, in model.WorkflowInput) (model.WorkflowOutput, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	out, err := s.workflow.Invoke(runCtx, in)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded)) {
		return out, fmt.Errorf("%w after %s: %w", ErrWorkflowTimeout, s.opts.Timeout, err)
	}
	return out, err
}

func (s *Session) offerResume(ctx context.Context) {
	if s.opts.Resume == ResumeNever {
		return
	}
	latest, ok := s.threads.Latest(ctx)
	if !ok {
		return
	}
	if s.opts.Resume == ResumeAsk {
		s.printf("Resume your last conversation %q (%d messages, updated %s)? [y/N]: ",
			latest.Title, len(latest.Messages), latest.UpdatedAt.Local().Format(timeLayout))
		answer, ok := s.readLine()
		if !ok {
			return
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
		default:
			return
		}
	}
	if t, ok := s.threads.Resume(ctx); ok {
		s.printf("Resumed thread %s (%d messages).\n", t.ID, len(t.Messages))
	}
}

func (s *Session) switchThread(ctx context.Context, selector string) {
	if selector == "" {
		if !s.printThreads(ctx) {
			return
		}
		s.print("Thread number or id: ")
		line, ok := s.readLine()
		if !ok {
			return
		}
		selector = strings.TrimSpace(line)
		if selector == "" {
			return
		}
	}

	t, err := s.threads.Switch(ctx, selector)
	if err != nil {
		if !errors.Is(err, model.ErrThreadNotFound) {
			logx.Warn().Err(err).Str("selector", selector).Msg("switch thread failed")
		}
		s.printf("Thread not found: %s\n", selector)
		return
	}
	s.flow.Reset()
	s.printf("Switched to thread %s %q (%d messages).\n", t.ID, t.Title, len(t.Messages))
}

func (s *Session) printThread() {
	t := s.threads.Current()
	id := t.ID
	if id == "" {
		id = "(new, not saved yet)"
	}
	title := t.Title
	if title == "" {
		title = "(untitled)"
	}
	s.printf("Thread: %s\nTitle: %s\nMessages: %d\n", id, title, len(t.Messages))
}

// printThreads lists persisted threads and reports whether there were any.
func (s *Session) printThreads(ctx context.Context) bool {
	threads := s.threads.List(ctx)
	if len(threads) == 0 {
		s.println("No saved threads.")
		return false
	}
	current := s.threads.Current().ID
	for i, t := range threads {
		marker := " "
		if t.ID == current {
			marker = "*"
		}
		s.printf("%s %2d. %s  %-50s  %3d msgs  %s\n",
			marker, i+1, t.ID, t.Title, len(t.Messages), t.UpdatedAt.Local().Format(timeLayout))
	}
	return true
}

func (s *Session) printHistory(withTools bool) {
	msgs := s.threads.Messages()
	if len(msgs) == 0 {
		s.println("No messages yet.")
		return
	}
	for _, m := range msgs {
		switch m.Type {
		case model.MessageHuman:
			s.printf("You: %s\n", m.Content)
		case model.MessageAI:
			if withTools {
				for _, tc := range m.ToolCalls {
					s.printf("  [tool call %s] %s %s\n", tc.ID, tc.Name, tc.Args)
				}
			}
			if m.Content != "" {
				s.printf("Assistant: %s\n", m.Content)
			}
		case model.MessageTool:
			if withTools {
				s.printf("  [tool result %s] %s\n", m.ToolCallID, m.Content)
			}
		}
	}
}

func (s *Session) printPendingFeedback(ctx context.Context) {
	records, err := s.feedback.Pending(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("failed to list pending feedback")
	}
	if len(records) == 0 {
		s.println("No feedback stored locally.")
		return
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %s  trace %s", r.Timestamp.Local().Format(timeLayout), feedback.Stars(r.Rating), r.TraceID)
		if r.Comment != "" {
			line += "  " + r.Comment
		}
		s.println(line)
	}
}

func (s *Session) prompt() {
	switch s.flow.State() {
	case feedback.StateAwaitingRating:
		s.print("rating> ")
	case feedback.StateAwaitingComment:
		s.print("comment> ")
	default:
		s.print("> ")
	}
}

func (s *Session) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func (s *Session) print(a string) {
	_, _ = io.WriteString(s.out, a)
}

func (s *Session) println(a string) {
	_, _ = io.WriteString(s.out, a+"\n")
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}
