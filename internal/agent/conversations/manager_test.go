package conversations

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	"github.com/Chative-core-poc-v1/chatcli/internal/agent/repo"
)

type fakeRemote struct {
	threads map[string][]model.Message
	err     error
	calls   []string
}

func (f *fakeRemote) ThreadMessages(_ context.Context, id string) ([]model.Message, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return f.threads[id], nil
}

type failingStore struct {
	model.ConversationStore
	saves int
}

func (s *failingStore) Load(context.Context) ([]*model.Thread, error) {
	return nil, errors.New("disk on fire")
}

func (s *failingStore) Save(context.Context, *model.Thread) error {
	s.saves++
	return errors.New("disk on fire")
}

func newManager(t *testing.T, remote RemoteThreadSource) (*ThreadManager, *repo.FileConversationRepository) {
	t.Helper()
	store := repo.NewFileConversationRepository(filepath.Join(t.TempDir(), "conversations.json"), 20)
	return NewThreadManager(store, remote, model.ConversationConfig{SaveEvery: 2}), store
}

func TestThreadManager_FlushesEverySaveEvery(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, nil)

	m.Append(ctx, model.NewUserMessage("hello there"))
	threads, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, threads, "one message is below the flush threshold")

	m.Append(ctx, model.NewAssistantMessage("hi"))
	threads, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.NotEmpty(t, threads[0].ID)
	assert.Equal(t, "hello there", threads[0].Title)
	assert.Len(t, threads[0].Messages, 2)
	assert.Equal(t, m.Current().ID, threads[0].ID)
}

func TestThreadManager_ThreadIDIsStableAcrossSaves(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, nil)

	id := m.ThreadID()
	m.Append(ctx, model.NewUserMessage("a"), model.NewAssistantMessage("b"))
	m.Append(ctx, model.NewUserMessage("c"), model.NewAssistantMessage("d"))

	threads, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, id, threads[0].ID)
	assert.Len(t, threads[0].Messages, 4)
}

func TestThreadManager_TitleTruncated(t *testing.T) {
	m, _ := newManager(t, nil)
	m.Append(context.Background(), model.NewUserMessage(strings.Repeat("é", 80)))

	assert.Equal(t, strings.Repeat("é", titleMaxRunes), m.Current().Title)
}

func TestThreadManager_RollbackLast(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, nil)

	m.Append(ctx, model.NewUserMessage("slow question"))
	assert.False(t, m.RollbackLast(ctx, model.MessageAI))
	assert.True(t, m.RollbackLast(ctx, model.MessageHuman))
	assert.Empty(t, m.Messages())
	assert.Empty(t, m.Current().Title)

	// the rolled back message does not count toward the next flush
	m.Append(ctx, model.NewUserMessage("again"))
	threads, _ := store.Load(ctx)
	assert.Empty(t, threads)
}

func TestThreadManager_RollbackRewritesFlushedThread(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, nil)

	m.Append(ctx,
		model.NewUserMessage("q1"),
		model.Message{Type: model.MessageAI, ToolCalls: []model.ToolCall{
			{ID: "call_1", Name: "calculator", Args: `{"expression":"1+1"}`},
			{ID: "call_2", Name: "calculator", Args: `{"expression":"2+2"}`},
		}},
		model.Message{Type: model.MessageTool, ToolCallID: "call_1", Content: `{"result":2}`},
		model.Message{Type: model.MessageTool, ToolCallID: "call_2", Content: `{"result":4}`},
		model.NewAssistantMessage("a1"),
	)
	// the second question lands on a flush boundary
	m.Append(ctx, model.NewUserMessage("q2"))
	saved, err := store.Get(ctx, m.Current().ID)
	require.NoError(t, err)
	require.Len(t, saved.Messages, 6)

	require.True(t, m.RollbackLast(ctx, model.MessageHuman))
	m.Clear(ctx)

	threads, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	msgs := threads[0].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, "a1", msgs[len(msgs)-1].Content)
}

func TestThreadManager_RollbackDropsFlushedSingleMessageThread(t *testing.T) {
	ctx := context.Background()
	store := repo.NewFileConversationRepository(filepath.Join(t.TempDir(), "conversations.json"), 20)
	m := NewThreadManager(store, nil, model.ConversationConfig{SaveEvery: 1})

	m.Append(ctx, model.NewUserMessage("only question"))
	threads, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)

	require.True(t, m.RollbackLast(ctx, model.MessageHuman))
	threads, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestThreadManager_ResumeAndClear(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t, nil)
	m.Append(ctx, model.NewUserMessage("first"), model.NewAssistantMessage("answer"))
	id := m.Current().ID

	m2 := NewThreadManager(store, nil, model.ConversationConfig{})
	latest, ok := m2.Latest(ctx)
	require.True(t, ok)
	assert.Equal(t, id, latest.ID)
	assert.Empty(t, m2.Messages(), "Latest does not switch")

	resumed, ok := m2.Resume(ctx)
	require.True(t, ok)
	assert.Equal(t, id, resumed.ID)
	assert.Len(t, m2.Messages(), 2)

	m2.Append(ctx, model.NewUserMessage("pending"))
	m2.Clear(ctx)
	assert.Empty(t, m2.Messages())
	assert.Empty(t, m2.Current().ID)

	saved, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, saved.Messages, 3, "clear flushes pending messages first")
}

func TestThreadManager_ResumeWithoutHistory(t *testing.T) {
	m, _ := newManager(t, nil)
	_, ok := m.Resume(context.Background())
	assert.False(t, ok)
}

func TestThreadManager_SwitchSelectors(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, nil)

	m.Append(ctx, model.NewUserMessage("older"), model.NewAssistantMessage("1"))
	older := m.Current().ID
	m.Clear(ctx)
	m.Append(ctx, model.NewUserMessage("newer"), model.NewAssistantMessage("2"))
	newer := m.Current().ID

	list := m.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)

	got, err := m.Switch(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, older, got.ID)
	assert.Equal(t, "older", m.Messages()[0].Content)

	got, err = m.Switch(ctx, newer)
	require.NoError(t, err)
	assert.Equal(t, newer, got.ID)

	got, err = m.Switch(ctx, "THREAD-"+older)
	require.NoError(t, err)
	assert.Equal(t, older, got.ID)

	_, err = m.Switch(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrThreadNotFound)
	_, err = m.Switch(ctx, "9")
	assert.ErrorIs(t, err, model.ErrThreadNotFound)
}

func TestThreadManager_SwitchFetchesRemoteThread(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{threads: map[string][]model.Message{
		"abc": {
			{Type: model.MessageHuman, Content: "what is 2+2"},
			{Type: model.MessageAI, ToolCalls: []model.ToolCall{{ID: "call_1", Name: "calculator", Args: `{"expression":"2+2"}`}}},
			{Type: model.MessageTool, Content: "4", ToolCallID: "call_1"},
			{Type: model.MessageAI, Content: "4"},
		},
	}}
	m, store := newManager(t, remote)

	got, err := m.Switch(ctx, "thread-abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "what is 2+2", got.Title)
	assert.Equal(t, []string{"abc"}, remote.calls)
	assert.Len(t, m.Messages(), 4)

	saved, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "call_1", saved.Messages[2].ToolCallID)

	_, err = m.Switch(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrThreadNotFound)

	remote.err = errors.New("503")
	_, err = m.Switch(ctx, "other")
	assert.ErrorIs(t, err, model.ErrThreadNotFound)
}

func TestThreadManager_StoreFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	m := NewThreadManager(store, nil, model.ConversationConfig{SaveEvery: 1})

	m.Append(ctx, model.NewUserMessage("still works"))
	assert.Equal(t, 1, store.saves)
	assert.Len(t, m.Messages(), 1)
	assert.Empty(t, m.List(ctx))
	_, ok := m.Resume(ctx)
	assert.False(t, ok)
}

func TestMessagesAreCopies(t *testing.T) {
	m, _ := newManager(t, nil)
	m.Append(context.Background(), model.NewUserMessage("x"))
	msgs := m.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "x", m.Messages()[0].Content)
}

func TestBuildRouterContext(t *testing.T) {
	history := []*schema.Message{
		schema.UserMessage("old"),
		schema.AssistantMessage("old answer", nil),
		schema.UserMessage("recent"),
		schema.AssistantMessage("recent answer", nil),
	}
	got := BuildRouterContext(history, "now", 2)

	assert.NotContains(t, got, "old")
	assert.Contains(t, got, "UserMessage(recent)\nAssistantMessage(recent answer)\n")
	assert.Contains(t, got, "<current_message_to_analyze>\nUserMessage(now)\n</current_message_to_analyze>")
}

func TestBuildResponseContext(t *testing.T) {
	out := BuildResponseContext("sys", []*schema.Message{nil, schema.UserMessage("q")})
	require.Len(t, out, 2)
	assert.Equal(t, schema.System, out[0].Role)
	assert.Equal(t, "q", out[1].Content)
}
