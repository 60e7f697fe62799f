package conversations

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const (
	defaultSaveEvery = 2
	titleMaxRunes    = 50
	threadPrefix     = "thread-"
)

// RemoteThreadSource re-materializes a thread that only exists in the trace store.
type RemoteThreadSource interface {
	ThreadMessages(ctx context.Context, threadID string) ([]model.Message, error)
}

// ThreadManager owns the current thread and its periodic persistence.
type ThreadManager struct {
	conversationRepo model.ConversationStore
	remote           RemoteThreadSource
	saveEvery        int
	now              func() time.Time

	thread  *model.Thread
	unsaved int
}

// NewThreadManager starts with an empty, unsaved thread. remote may be nil.
func NewThreadManager(conversationRepo model.ConversationStore, remote RemoteThreadSource, config model.ConversationConfig) *ThreadManager {
	saveEvery := config.SaveEvery
	if saveEvery <= 0 {
		saveEvery = defaultSaveEvery
	}
	m := &ThreadManager{
		conversationRepo: conversationRepo,
		remote:           remote,
		saveEvery:        saveEvery,
		now:              func() time.Time { return time.Now().UTC() },
	}
	m.thread = m.newThread()
	return m
}

func (m *ThreadManager) newThread() *model.Thread {
	now := m.now()
	return &model.Thread{Messages: []model.Message{}, CreatedAt: now, UpdatedAt: now}
}

// Latest returns the newest persisted thread without making it current.
func (m *ThreadManager) Latest(ctx context.Context) (*model.Thread, bool) {
	threads := m.load(ctx)
	if len(threads) == 0 {
		return nil, false
	}
	return threads[0], true
}

// Resume makes the newest persisted thread current.
func (m *ThreadManager) Resume(ctx context.Context) (*model.Thread, bool) {
	latest, ok := m.Latest(ctx)
	if !ok {
		return nil, false
	}
	m.activate(latest)
	return latest.Clone(), true
}

// ThreadID returns the current id, allocating the one the first save will use.
func (m *ThreadManager) ThreadID() string {
	if m.thread.ID == "" {
		m.thread.ID = uuid.NewString()
	}
	return m.thread.ID
}

// Append adds messages to the current thread and flushes every saveEvery messages.
func (m *ThreadManager) Append(ctx context.Context, msgs ...model.Message) {
	for _, msg := range msgs {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = m.now()
		}
		m.thread.Messages = append(m.thread.Messages, msg)
		m.thread.UpdatedAt = msg.Timestamp
		if m.thread.Title == "" && msg.Type == model.MessageHuman {
			m.thread.Title = deriveTitle(msg.Content)
		}
		m.unsaved++
		if m.unsaved >= m.saveEvery {
			_ = m.Save(ctx)
		}
	}
}

// Save flushes the current thread. Failures are logged and returned; the
// in-memory thread is unaffected.
func (m *ThreadManager) Save(ctx context.Context) error {
	if len(m.thread.Messages) == 0 {
		return nil
	}
	m.ThreadID()
	if err := m.conversationRepo.Save(ctx, m.thread.Clone()); err != nil {
		logx.Warn().Err(err).Str("thread_id", m.thread.ID).Msg("failed to save conversation")
		return err
	}
	m.unsaved = 0
	return nil
}

// RollbackLast drops the last message when it has the given type. When that
// message was already flushed, the stored thread is rewritten right away.
func (m *ThreadManager) RollbackLast(ctx context.Context, typ model.MessageType) bool {
	n := len(m.thread.Messages)
	if n == 0 || m.thread.Messages[n-1].Type != typ {
		return false
	}
	flushed := m.unsaved == 0
	m.thread.Messages = m.thread.Messages[:n-1]
	if n == 1 {
		m.thread.Title = ""
	}
	if !flushed {
		m.unsaved--
		return true
	}

	if len(m.thread.Messages) == 0 {
		if err := m.conversationRepo.Delete(ctx, m.thread.ID); err != nil && !errors.Is(err, model.ErrThreadNotFound) {
			logx.Warn().Err(err).Str("thread_id", m.thread.ID).Msg("failed to drop rolled back thread")
		}
		return true
	}
	_ = m.Save(ctx)
	return true
}

// Clear persists what is pending and starts a fresh thread.
func (m *ThreadManager) Clear(ctx context.Context) {
	if m.unsaved > 0 {
		_ = m.Save(ctx)
	}
	m.thread = m.newThread()
	m.unsaved = 0
}

// List returns persisted threads, newest first.
func (m *ThreadManager) List(ctx context.Context) []*model.Thread {
	return m.load(ctx)
}

// Switch makes another thread current. selector is a 1-based position in
// List, an exact id, or "thread-<id>". Threads missing locally are fetched
// from the remote source when one is configured.
func (m *ThreadManager) Switch(ctx context.Context, selector string) (*model.Thread, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, model.ErrThreadNotFound
	}

	threads := m.load(ctx)
	id := selector
	if n, err := strconv.Atoi(selector); err == nil {
		if n >= 1 && n <= len(threads) {
			return m.switchTo(ctx, threads[n-1]), nil
		}
	}
	if len(id) > len(threadPrefix) && strings.EqualFold(id[:len(threadPrefix)], threadPrefix) {
		id = id[len(threadPrefix):]
	}
	for _, t := range threads {
		if t.ID == id || t.ID == selector {
			return m.switchTo(ctx, t), nil
		}
	}

	if m.remote == nil {
		return nil, model.ErrThreadNotFound
	}
	msgs, err := m.remote.ThreadMessages(ctx, id)
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", id).Msg("remote thread lookup failed")
		return nil, errors.Join(model.ErrThreadNotFound, err)
	}
	if len(msgs) == 0 {
		return nil, model.ErrThreadNotFound
	}

	thread := m.materialize(id, msgs)
	if err := m.conversationRepo.Save(ctx, thread.Clone()); err != nil {
		logx.Warn().Err(err).Str("thread_id", id).Msg("failed to persist remote thread")
	}
	logx.Info().Str("thread_id", id).Int("messages", len(msgs)).Msg("thread restored from trace store")
	return m.switchTo(ctx, thread), nil
}

// Messages returns a copy of the current history.
func (m *ThreadManager) Messages() []model.Message {
	return m.thread.Clone().Messages
}

// Current returns a copy of the current thread.
func (m *ThreadManager) Current() *model.Thread {
	return m.thread.Clone()
}

func (m *ThreadManager) switchTo(ctx context.Context, t *model.Thread) *model.Thread {
	if t.ID != m.thread.ID && m.unsaved > 0 {
		_ = m.Save(ctx)
	}
	m.activate(t)
	return t.Clone()
}

func (m *ThreadManager) activate(t *model.Thread) {
	m.thread = t.Clone()
	if m.thread.Messages == nil {
		m.thread.Messages = []model.Message{}
	}
	m.unsaved = 0
}

func (m *ThreadManager) materialize(id string, msgs []model.Message) *model.Thread {
	t := &model.Thread{ID: id, Messages: msgs}
	now := m.now()
	t.CreatedAt, t.UpdatedAt = now, now
	if ts := msgs[0].Timestamp; !ts.IsZero() {
		t.CreatedAt = ts
	}
	if ts := msgs[len(msgs)-1].Timestamp; !ts.IsZero() {
		t.UpdatedAt = ts
	}
	for _, msg := range msgs {
		if msg.Type == model.MessageHuman {
			t.Title = deriveTitle(msg.Content)
			break
		}
	}
	return t
}

func (m *ThreadManager) load(ctx context.Context) []*model.Thread {
	threads, err := m.conversationRepo.Load(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("failed to load conversations")
		return nil
	}
	return threads
}

func deriveTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(title) <= titleMaxRunes {
		return title
	}
	return string([]rune(title)[:titleMaxRunes])
}
