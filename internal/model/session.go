package model

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation 检索增强生成时返回的引用来源
type Citation struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// MessageStats 推理性能统计，Duration 单位为纳秒
type MessageStats struct {
	Duration         int64 `json:"duration"`
	PromptTokenCount int   `json:"promptTokenCount"`
	EvalTokenCount   int   `json:"evalTokenCount"`
}

type Message struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Timestamp Timestamp     `json:"timestamp"`
	Model     string        `json:"model,omitempty"`
	Sources   []Citation    `json:"sources,omitempty"`
	Stats     *MessageStats `json:"stats,omitempty"`
}

type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
	Messages  []Message `json:"messages"`
}

// NewMessage 生成带唯一ID和当前时间戳的消息
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: Now(),
	}
}

// NewSession 创建空会话
func NewSession(name string) Session {
	now := Now()
	return Session{
		ID:        NewSessionID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
}

// Touch 更新 UpdatedAt，保证单调不减
func (s *Session) Touch(now Timestamp) {
	if now.Before(s.UpdatedAt.Time) {
		return
	}
	s.UpdatedAt = now
}

type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Current      bool      `json:"current"`
}

func (s Session) Summary(currentID string) SessionResponse {
	return SessionResponse{
		SessionID:    s.ID,
		Name:         s.Name,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		MessageCount: len(s.Messages),
		Current:      s.ID == currentID,
	}
}
