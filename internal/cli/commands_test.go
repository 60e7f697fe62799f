package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"exit", Command{Kind: CommandExit}},
		{"  EXIT ", Command{Kind: CommandExit}},
		{"Clear", Command{Kind: CommandClear}},
		{"history", Command{Kind: CommandHistory}},
		{"thread", Command{Kind: CommandThread}},
		{"THREADS", Command{Kind: CommandThreads}},
		{"switch-thread", Command{Kind: CommandSwitchThread}},
		{"switch-thread 2", Command{Kind: CommandSwitchThread, Arg: "2"}},
		{"Switch-Thread thread-abc", Command{Kind: CommandSwitchThread, Arg: "thread-abc"}},
		{"thread-history", Command{Kind: CommandThreadHistory}},
		{"thread-1234-abcd", Command{Kind: CommandSwitchThread, Arg: "thread-1234-abcd"}},
		{"feedback", Command{Kind: CommandFeedback}},
		{"help", Command{Kind: CommandHelp}},
		{"thread-", Command{Kind: CommandNone}},
		{"exit the building please", Command{Kind: CommandNone}},
		{"what is a thread-safe map?", Command{Kind: CommandNone}},
		{"4 - nice", Command{Kind: CommandNone}},
		{"", Command{Kind: CommandNone}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.in))
		})
	}
}

func TestCommandKind_String(t *testing.T) {
	assert.Equal(t, "switch-thread", CommandSwitchThread.String())
	assert.Equal(t, "none", CommandNone.String())
}
