package service

import (
	"errors"
	"strings"
	"unicode"

	"llmdesk/internal/model"
	"llmdesk/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	titleMaxRunes = 30
	titleEllipsis = "..."
)

// MessagePipeline 向活动会话追加消息。它不持有会话副本，
// 每次追加都通过仓库重新解析活动会话。
type MessagePipeline struct {
	repo *SessionRepository
}

func NewMessagePipeline(repo *SessionRepository) *MessagePipeline {
	return &MessagePipeline{repo: repo}
}

// Append 追加到活动会话并返回目标会话ID。
// 仓库未初始化（集合为空）属于调用方错误：记录日志后不做任何事，返回空ID。
func (p *MessagePipeline) Append(msg model.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = model.NewMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = model.Now()
	} else {
		msg.Timestamp = model.NewTimestamp(msg.Timestamp.Time)
	}

	sessionID, err := p.repo.mutateActive(func(s *model.Session) {
		if len(s.Messages) == 0 && msg.Role == model.RoleUser {
			s.Name = DeriveTitle(msg.Content)
		}
		s.Messages = append(s.Messages, msg)
	})
	if err != nil {
		if isPrecondition(err) {
			logger.WithFields(logrus.Fields{"message_id": msg.ID, "role": msg.Role}).
				Errorf("Dropping message: %v", err)
			return "", nil
		}
		return "", err
	}

	return sessionID, nil
}

// Messages 返回会话的消息，时间戳已解析为时间点
func (p *MessagePipeline) Messages(sessionID string) ([]model.Message, bool) {
	session, ok := p.repo.Get(sessionID)
	if !ok {
		return nil, false
	}
	return session.Messages, true
}

// ActiveMessages 返回活动会话的消息
func (p *MessagePipeline) ActiveMessages() []model.Message {
	sessions := p.repo.Sessions()
	if len(sessions) == 0 {
		return nil
	}

	id := p.repo.CurrentID()
	if id == "" {
		return sessions[0].Messages
	}
	if i := indexOf(sessions, id); i >= 0 {
		return sessions[i].Messages
	}
	return nil
}

// DeriveTitle 取前 30 个字符并去掉尾部空白；发生截断时追加省略号
func DeriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxRunes {
		return content
	}
	return strings.TrimRightFunc(string(runes[:titleMaxRunes]), unicode.IsSpace) + titleEllipsis
}

func isPrecondition(err error) bool {
	return errors.Is(err, errNoSessions) || errors.Is(err, errSessionNotFound)
}
