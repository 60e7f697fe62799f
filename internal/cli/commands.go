package cli

import (
	"strings"
)

// CommandKind identifies a typed command; CommandNone means free text.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandExit
	CommandClear
	CommandHistory
	CommandThread
	CommandThreads
	CommandSwitchThread
	CommandThreadHistory
	CommandFeedback
	CommandHelp
)

func (k CommandKind) String() string {
	switch k {
	case CommandExit:
		return "exit"
	case CommandClear:
		return "clear"
	case CommandHistory:
		return "history"
	case CommandThread:
		return "thread"
	case CommandThreads:
		return "threads"
	case CommandSwitchThread:
		return "switch-thread"
	case CommandThreadHistory:
		return "thread-history"
	case CommandFeedback:
		return "feedback"
	case CommandHelp:
		return "help"
	default:
		return "none"
	}
}

// Command is a parsed prompt line. Arg carries the thread selector for
// switch-thread and thread-<id>.
type Command struct {
	Kind CommandKind
	Arg  string
}

var exactCommands = map[string]CommandKind{
	"exit":           CommandExit,
	"quit":           CommandExit,
	"clear":          CommandClear,
	"history":        CommandHistory,
	"thread":         CommandThread,
	"threads":        CommandThreads,
	"switch-thread":  CommandSwitchThread,
	"thread-history": CommandThreadHistory,
	"feedback":       CommandFeedback,
	"help":           CommandHelp,
}

// ParseCommand classifies one input line. Anything that is not a command is
// returned as CommandNone so the caller treats it as a conversation turn.
func ParseCommand(text string) Command {
	line := strings.TrimSpace(text)
	lower := strings.ToLower(line)

	if kind, ok := exactCommands[lower]; ok {
		return Command{Kind: kind}
	}

	fields := strings.Fields(line)
	if len(fields) == 2 && strings.EqualFold(fields[0], "switch-thread") {
		return Command{Kind: CommandSwitchThread, Arg: fields[1]}
	}
	// thread-<id> is a one-word shortcut for switch-thread.
	if len(fields) == 1 && strings.HasPrefix(lower, "thread-") && len(line) > len("thread-") {
		return Command{Kind: CommandSwitchThread, Arg: line}
	}
	return Command{Kind: CommandNone}
}

const helpText = `Commands:
  exit                    leave the chat
  clear                   start a new thread
  history                 show messages of the current thread
  thread                  show the current thread
  threads                 list saved threads
  switch-thread [n|id]    switch to a saved thread by number or id
  thread-<id>             same as switch-thread <id>
  thread-history          show the current thread with tool activity
  feedback                list ratings saved locally
  help                    show this help
After each answer you can rate it 1-5 ("4", "4 stars", "Rating: 4 - nice", or "skip").`
