package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

var ErrStreamClosed = errors.New("event stream closed")

// SSEWriter 写 text/event-stream；并发安全，Close 之后的写入返回 ErrStreamClosed
type SSEWriter struct {
	w      http.ResponseWriter
	mu     sync.Mutex
	closed bool
}

func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w}
}

// Write 发送一条事件；多行数据按行拆成多个 data 字段
func (s *SSEWriter) Write(event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	return s.send(b.String())
}

// WriteJSON 序列化 v 后作为一条事件发送
func (s *SSEWriter) WriteJSON(event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Write(event, string(data))
}

// Comment 发送注释行，客户端忽略，用于保活
func (s *SSEWriter) Comment(text string) error {
	return s.send(": " + text + "\n\n")
}

// Close 发送结束标记，之后不再写入
func (s *SSEWriter) Close() error {
	if err := s.Write("", "[DONE]"); err != nil {
		return err
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *SSEWriter) send(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
