package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"llmdesk/internal/storage"
)

// countingBackend 统计写入次数
type countingBackend struct {
	*storage.MemoryBackend
	sets atomic.Int64
}

func (c *countingBackend) Set(key, value string) error {
	c.sets.Add(1)
	return c.MemoryBackend.Set(key, value)
}

func newCountingBackend() *countingBackend {
	return &countingBackend{MemoryBackend: storage.NewMemoryBackend()}
}

func newTestRepo(t *testing.T) (*SessionRepository, *countingBackend) {
	t.Helper()
	backend := newCountingBackend()
	return NewSessionRepository(storage.NewKV(backend)), backend
}

// failingBackend 对指定键的写入返回错误
type failingBackend struct {
	*storage.MemoryBackend
	mu       sync.Mutex
	failures map[string]error
}

func newFailingBackend() *failingBackend {
	return &failingBackend{
		MemoryBackend: storage.NewMemoryBackend(),
		failures:      make(map[string]error),
	}
}

func (f *failingBackend) failOn(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, key)
		return
	}
	f.failures[key] = err
}

func (f *failingBackend) Set(key, value string) error {
	f.mu.Lock()
	err := f.failures[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryBackend.Set(key, value)
}
