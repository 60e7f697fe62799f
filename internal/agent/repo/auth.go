package repo

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/chatcli/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/chatcli/internal/core/error"
	logx "github.com/Chative-core-poc-v1/chatcli/pkg/logger"
)

const defaultAuthTTL = 24 * time.Hour

// FileAuthRepository persists the auth backend session. Sessions older than ttl
// are reset to the logged-out defaults at load time.
type FileAuthRepository struct {
	path string
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

func NewFileAuthRepository(path string, ttl time.Duration) *FileAuthRepository {
	if ttl <= 0 {
		ttl = defaultAuthTTL
	}
	return &FileAuthRepository{path: path, ttl: ttl, now: time.Now}
}

// Load never fails: missing, corrupt, or expired data yields the defaults.
func (r *FileAuthRepository) Load(ctx context.Context) (*model.AuthData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := model.DefaultAuthData()
	if err := readJSONFile(r.path, data); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logx.Warn().Err(err).Str("path", r.path).Msg("failed to read auth file; using defaults")
		}
		return model.DefaultAuthData(), nil
	}

	if data.LastLoginTime == nil || r.now().Sub(*data.LastLoginTime) > r.ttl {
		if data.IsLoggedIn || data.Token != "" {
			logx.Info().Str("path", r.path).Msg("auth session expired; resetting")
			if err := writeJSONFile(r.path, model.DefaultAuthData()); err != nil {
				logx.Warn().Err(err).Msg("failed to reset expired auth file")
			}
		}
		return model.DefaultAuthData(), nil
	}

	if data.Cookies == nil {
		data.Cookies = map[string]string{}
	}
	if data.UserData == nil {
		data.UserData = map[string]any{}
	}
	return data, nil
}

func (r *FileAuthRepository) Save(ctx context.Context, data *model.AuthData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if data == nil {
		data = model.DefaultAuthData()
	}
	if err := writeJSONFile(r.path, data); err != nil {
		return errx.WrapIO(err)
	}
	return nil
}

func (r *FileAuthRepository) Clear(ctx context.Context) error {
	return r.Save(ctx, model.DefaultAuthData())
}

var _ model.AuthRepository = (*FileAuthRepository)(nil)
