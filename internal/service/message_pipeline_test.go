package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"llmdesk/internal/model"
	"llmdesk/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short verbatim", "Hi", "Hi"},
		{"exactly thirty", strings.Repeat("x", 30), strings.Repeat("x", 30)},
		{"truncated", "Explain the theory of relativity in simple terms", "Explain the theory of relativi..."},
		{"truncated long prompt", "Explain the theory of relativity in simple terms please", "Explain the theory of relativi..."},
		{"trailing space trimmed", strings.Repeat("a", 29) + " tail", strings.Repeat("a", 29) + "..."},
		{"counts runes", strings.Repeat("界", 31), strings.Repeat("界", 30) + "..."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.content))
		})
	}
}

func newTestPipeline(t *testing.T) (*MessagePipeline, *SessionRepository) {
	t.Helper()
	repo, _ := newTestRepo(t)
	require.NoError(t, repo.EnsureInitialized())
	return NewMessagePipeline(repo), repo
}

func TestAppend_AutoTitleFromFirstUserMessage(t *testing.T) {
	pipeline, repo := newTestPipeline(t)

	id, err := pipeline.Append(model.NewMessage(model.RoleUser, "Explain the theory of relativity in simple terms"))
	require.NoError(t, err)
	assert.Equal(t, repo.CurrentID(), id)

	session, _ := repo.Current()
	assert.Equal(t, "Explain the theory of relativi...", session.Name)

	_, err = pipeline.Append(model.NewMessage(model.RoleUser, "And quantum mechanics?"))
	require.NoError(t, err)
	session, _ = repo.Current()
	assert.Equal(t, "Explain the theory of relativi...", session.Name)
	assert.Len(t, session.Messages, 2)
}

func TestAppend_AssistantFirstDoesNotRename(t *testing.T) {
	pipeline, repo := newTestPipeline(t)

	_, err := pipeline.Append(model.NewMessage(model.RoleAssistant, "Welcome!"))
	require.NoError(t, err)

	session, _ := repo.Current()
	assert.Equal(t, DefaultSessionName, session.Name)
}

func TestAppend_BumpsUpdatedAt(t *testing.T) {
	pipeline, repo := newTestPipeline(t)
	before, _ := repo.Current()

	time.Sleep(2 * time.Millisecond)
	_, err := pipeline.Append(model.NewMessage(model.RoleUser, "Hi"))
	require.NoError(t, err)

	after, _ := repo.Current()
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt.Time))
	assert.Equal(t, "Hi", after.Name)
}

func TestAppend_WithoutSessionsIsNoop(t *testing.T) {
	repo, backend := newTestRepo(t)
	pipeline := NewMessagePipeline(repo)

	id, err := pipeline.Append(model.NewMessage(model.RoleUser, "lost"))
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, repo.Sessions())
	assert.Zero(t, backend.sets.Load())
}

func TestAppend_UnsetPointerTargetsFirstSession(t *testing.T) {
	pipeline, repo := newTestPipeline(t)
	first, _ := repo.Current()
	_, err := repo.Create()
	require.NoError(t, err)
	require.NoError(t, repo.SwitchCurrent(""))

	id, err := pipeline.Append(model.NewMessage(model.RoleUser, "Hi"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	got, _ := repo.Get(first.ID)
	assert.Len(t, got.Messages, 1)
}

func TestAppend_DanglingPointerDropsMessage(t *testing.T) {
	pipeline, repo := newTestPipeline(t)
	require.NoError(t, repo.SwitchCurrent("gone"))

	id, err := pipeline.Append(model.NewMessage(model.RoleUser, "Hi"))
	require.NoError(t, err)
	assert.Empty(t, id)

	for _, s := range repo.Sessions() {
		assert.Empty(t, s.Messages)
	}
}

func TestAppend_FillsIDAndTruncatesTimestamp(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	at := time.Date(2024, 1, 15, 9, 30, 0, 123456789, time.UTC)
	_, err := pipeline.Append(model.Message{
		Role:      model.RoleUser,
		Content:   "Hi",
		Timestamp: model.Timestamp{Time: at},
	})
	require.NoError(t, err)

	msgs := pipeline.ActiveMessages()
	require.Len(t, msgs, 1)
	assert.NotEmpty(t, msgs[0].ID)
	assert.True(t, msgs[0].Timestamp.Equal(at.Truncate(time.Millisecond)))
}

func TestAppend_TimestampsRoundTripThroughDisk(t *testing.T) {
	dir := t.TempDir()
	backend := storage.NewDiskBackend(dir)
	require.NoError(t, backend.Init())
	repo := NewSessionRepository(storage.NewKV(backend))
	require.NoError(t, repo.EnsureInitialized())
	pipeline := NewMessagePipeline(repo)

	msg := model.NewMessage(model.RoleUser, "Hi")
	id, err := pipeline.Append(msg)
	require.NoError(t, err)

	reopened := storage.NewDiskBackend(dir)
	require.NoError(t, reopened.Init())
	msgs, ok := NewMessagePipeline(NewSessionRepository(storage.NewKV(reopened))).Messages(id)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
	assert.True(t, msgs[0].Timestamp.Equal(msg.Timestamp.Time))
}

func TestMessages_UnknownSession(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	_, ok := pipeline.Messages("missing")
	assert.False(t, ok)
}

func TestAppend_ConcurrentAppendsAreNotLost(t *testing.T) {
	pipeline, repo := newTestPipeline(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pipeline.Append(model.NewMessage(model.RoleAssistant, "x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, _ := repo.Current()
	assert.Len(t, session.Messages, n)
}
