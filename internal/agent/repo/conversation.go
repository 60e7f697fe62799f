package repo

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/chatcli/internal/core/error"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

// conversationDocument is the on-disk layout, newest thread first.
type conversationDocument struct {
	Conversations []*model.Thread `json:"conversations"`
}

// FileConversationRepository persists threads to a single JSON document that is
// rewritten on every save. It retains at most maxThreads threads.
type FileConversationRepository struct {
	path       string
	maxThreads int
	mu         sync.Mutex
}

func NewFileConversationRepository(path string, maxThreads int) *FileConversationRepository {
	if maxThreads <= 0 {
		maxThreads = 20
	}
	return &FileConversationRepository{path: path, maxThreads: maxThreads}
}

// read treats a missing or corrupt file as an empty store.
func (r *FileConversationRepository) read() *conversationDocument {
	var doc conversationDocument
	if err := readJSONFile(r.path, &doc); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logx.Warn().Err(err).Str("path", r.path).Msg("failed to read conversation file; starting empty")
		}
		return &conversationDocument{Conversations: []*model.Thread{}}
	}
	kept := doc.Conversations[:0]
	for _, t := range doc.Conversations {
		if t != nil && t.ID != "" {
			kept = append(kept, t)
		}
	}
	if kept == nil {
		kept = []*model.Thread{}
	}
	doc.Conversations = kept
	return &doc
}

func (r *FileConversationRepository) Load(ctx context.Context) ([]*model.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read().Conversations, nil
}

func (r *FileConversationRepository) Get(ctx context.Context, id string) (*model.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.read().Conversations {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, model.ErrThreadNotFound
}

func (r *FileConversationRepository) Save(ctx context.Context, thread *model.Thread) error {
	if thread == nil || thread.ID == "" {
		return errors.New("thread id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.read()
	threads := make([]*model.Thread, 0, len(doc.Conversations)+1)
	threads = append(threads, thread.Clone())
	for _, t := range doc.Conversations {
		if t.ID != thread.ID {
			threads = append(threads, t)
		}
	}
	if len(threads) > r.maxThreads {
		logx.Debug().Int("dropped", len(threads)-r.maxThreads).Msg("evicting oldest conversations")
		threads = threads[:r.maxThreads]
	}
	doc.Conversations = threads

	if err := writeJSONFile(r.path, doc); err != nil {
		return errx.WrapIO(err)
	}
	return nil
}

func (r *FileConversationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.read()
	kept := make([]*model.Thread, 0, len(doc.Conversations))
	for _, t := range doc.Conversations {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(doc.Conversations) {
		return model.ErrThreadNotFound
	}
	doc.Conversations = kept
	if err := writeJSONFile(r.path, doc); err != nil {
		return errx.WrapIO(err)
	}
	return nil
}

var _ model.ConversationStore = (*FileConversationRepository)(nil)
