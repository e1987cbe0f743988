package service

import (
	"errors"
	"fmt"
	"sync"

	"llmdesk/internal/model"
	"llmdesk/internal/storage"
	"llmdesk/pkg/logger"
)

const (
	SessionsKey       = "chat_sessions"
	CurrentSessionKey = "current_session_id"

	DefaultSessionName = "New Chat"
)

var (
	errNoSessions      = errors.New("no sessions: repository not initialized")
	errSessionNotFound = errors.New("active session not found")
)

// SessionRepository 独占会话集合与当前会话指针。
// 每次修改都在锁内重新读取持久化状态再写回，从不基于缓存快照计算。
type SessionRepository struct {
	kv *storage.KV
	mu sync.Mutex
}

func NewSessionRepository(kv *storage.KV) *SessionRepository {
	return &SessionRepository{kv: kv}
}

func (r *SessionRepository) load() []model.Session {
	sessions := storage.Read(r.kv, SessionsKey, []model.Session{})
	if sessions == nil {
		sessions = []model.Session{}
	}
	return sessions
}

func (r *SessionRepository) loadCurrentID() string {
	return storage.Read(r.kv, CurrentSessionKey, "")
}

func (r *SessionRepository) save(sessions []model.Session) error {
	if err := storage.Write(r.kv, SessionsKey, sessions); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) saveCurrentID(id string) error {
	if err := storage.Write(r.kv, CurrentSessionKey, id); err != nil {
		return fmt.Errorf("failed to save current session: %w", err)
	}
	return nil
}

// mutate 在锁内以最新持久化状态调用 fn；fn 返回 false 表示无需写入
func (r *SessionRepository) mutate(fn func(sessions []model.Session, currentID string) ([]model.Session, string, bool)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.load()
	currentID := r.loadCurrentID()

	next, nextCurrent, changed := fn(sessions, currentID)
	if !changed {
		return nil
	}

	if nextCurrent == currentID {
		return r.save(next)
	}

	// 指针目标在旧集合中已存在时先写指针：任一步失败，指针都指向两份集合共有的会话
	if indexOf(sessions, nextCurrent) >= 0 {
		if err := r.saveCurrentID(nextCurrent); err != nil {
			return err
		}
		return r.save(next)
	}

	// 新建的目标会话：先写集合，指针写入失败时恢复旧集合
	if err := r.save(next); err != nil {
		return err
	}
	if err := r.saveCurrentID(nextCurrent); err != nil {
		if rbErr := r.save(sessions); rbErr != nil {
			logger.Errorf("Failed to restore sessions after pointer write failure: %v", rbErr)
		}
		return err
	}
	return nil
}

// EnsureInitialized 集合为空时创建 "New Chat"；当前指针缺失或悬空时回退到第一个会话。
// 多次调用只有第一次产生写入。
func (r *SessionRepository) EnsureInitialized() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.load()
	currentID := r.loadCurrentID()

	if len(sessions) == 0 {
		session := model.NewSession(DefaultSessionName)
		if err := r.save([]model.Session{session}); err != nil {
			return err
		}
		logger.Infof("Initialized session store with %s", session.ID)
		return r.saveCurrentID(session.ID)
	}

	if indexOf(sessions, currentID) >= 0 {
		return nil
	}

	if currentID != "" {
		logger.Warnf("Current session %s no longer exists, falling back to %s", currentID, sessions[0].ID)
	}
	return r.saveCurrentID(sessions[0].ID)
}

// Create 追加名为 "Chat {n+1}" 的新会话并设为当前
func (r *SessionRepository) Create() (model.Session, error) {
	var created model.Session

	err := r.mutate(func(sessions []model.Session, _ string) ([]model.Session, string, bool) {
		created = model.NewSession(fmt.Sprintf("Chat %d", len(sessions)+1))
		return append(sessions, created), created.ID, true
	})
	if err != nil {
		return model.Session{}, err
	}
	return created, nil
}

// SwitchCurrent 无条件设置当前会话指针
func (r *SessionRepository) SwitchCurrent(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saveCurrentID(id)
}

// Delete 删除会话；集合被清空时补建 "New Chat"，删除当前会话时回退到第一个剩余会话
func (r *SessionRepository) Delete(id string) error {
	return r.mutate(func(sessions []model.Session, currentID string) ([]model.Session, string, bool) {
		remaining := make([]model.Session, 0, len(sessions))
		for _, s := range sessions {
			if s.ID != id {
				remaining = append(remaining, s)
			}
		}

		if len(remaining) == 0 {
			fresh := model.NewSession(DefaultSessionName)
			return []model.Session{fresh}, fresh.ID, true
		}

		if len(remaining) == len(sessions) {
			return sessions, currentID, false
		}

		if currentID == id {
			currentID = remaining[0].ID
		}
		return remaining, currentID, true
	})
}

// Rename 设置名称并更新 UpdatedAt；会话不存在时不做任何事
func (r *SessionRepository) Rename(id, name string) error {
	return r.updateSession(id, func(s *model.Session) {
		s.Name = name
	})
}

// ClearMessages 清空会话消息并更新 UpdatedAt
func (r *SessionRepository) ClearMessages(id string) error {
	return r.updateSession(id, func(s *model.Session) {
		s.Messages = []model.Message{}
	})
}

func (r *SessionRepository) updateSession(id string, fn func(s *model.Session)) error {
	return r.mutate(func(sessions []model.Session, currentID string) ([]model.Session, string, bool) {
		i := indexOf(sessions, id)
		if i < 0 {
			return sessions, currentID, false
		}
		fn(&sessions[i])
		sessions[i].Touch(model.Now())
		return sessions, currentID, true
	})
}

// mutateActive 在锁内解析活动会话（当前指针；未设置时取第一个会话）并修改它
func (r *SessionRepository) mutateActive(fn func(s *model.Session)) (string, error) {
	var activeID string
	var resolveErr error

	err := r.mutate(func(sessions []model.Session, currentID string) ([]model.Session, string, bool) {
		if len(sessions) == 0 {
			resolveErr = errNoSessions
			return sessions, currentID, false
		}

		activeID = currentID
		if activeID == "" {
			activeID = sessions[0].ID
		}

		i := indexOf(sessions, activeID)
		if i < 0 {
			resolveErr = fmt.Errorf("%w: %s", errSessionNotFound, activeID)
			return sessions, currentID, false
		}

		fn(&sessions[i])
		sessions[i].Touch(model.Now())
		return sessions, currentID, true
	})
	if err != nil {
		return "", err
	}
	if resolveErr != nil {
		return "", resolveErr
	}
	return activeID, nil
}

// Sessions 返回按创建顺序排列的会话副本
func (r *SessionRepository) Sessions() []model.Session {
	return r.load()
}

func (r *SessionRepository) CurrentID() string {
	return r.loadCurrentID()
}

func (r *SessionRepository) Get(id string) (model.Session, bool) {
	sessions := r.load()
	if i := indexOf(sessions, id); i >= 0 {
		return sessions[i], true
	}
	return model.Session{}, false
}

func (r *SessionRepository) Current() (model.Session, bool) {
	return r.Get(r.loadCurrentID())
}

func indexOf(sessions []model.Session, id string) int {
	if id == "" {
		return -1
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}
