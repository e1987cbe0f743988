package service

import (
	"context"
	"fmt"
	"sync"

	"llmdesk/internal/model"
	"llmdesk/pkg/logger"
)

// Generator 外部推理服务
type Generator interface {
	Generate(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResponse, error)
}

// GenerationError 生成调用失败；用户消息已经写入，不会回滚
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with model %s failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GenerationTracker 发起生成请求，并在多轮之间传递服务端返回的续写句柄。
// 句柄按会话保存，切换会话不会把一个会话的句柄带到另一个会话。
type GenerationTracker struct {
	generator Generator
	pipeline  *MessagePipeline
	repo      *SessionRepository

	mu       sync.Mutex
	contexts map[string]model.GenerationContext
}

func NewGenerationTracker(generator Generator, pipeline *MessagePipeline, repo *SessionRepository) *GenerationTracker {
	return &GenerationTracker{
		generator: generator,
		pipeline:  pipeline,
		repo:      repo,
		contexts:  make(map[string]model.GenerationContext),
	}
}

// GenerateParams 除模型与提示词外的可选参数
type GenerateParams struct {
	System  string
	UseRAG  bool
	Options *model.GenerateOptions
}

// Generate 记录用户消息，调用推理服务，成功后记录助手消息并更新续写句柄。
// 整个调用不是原子的：并发调用的消息对可能交错，但每一对内部顺序不变。
func (t *GenerationTracker) Generate(ctx context.Context, modelName, prompt string, params GenerateParams) (*model.GenerateResponse, error) {
	sessionID, err := t.pipeline.Append(model.NewMessage(model.RoleUser, prompt))
	if err != nil {
		return nil, err
	}

	req := &model.GenerateRequest{
		Model:   modelName,
		Prompt:  prompt,
		System:  params.System,
		Context: t.Context(sessionID),
		Options: params.Options,
		UseRAG:  params.UseRAG,
	}

	resp, err := t.generator.Generate(ctx, req)
	if err != nil {
		logger.Warnf("Generation failed for model %s: %v", modelName, err)
		return nil, &GenerationError{Model: modelName, Err: err}
	}

	reply := model.NewMessage(model.RoleAssistant, resp.Response)
	reply.Model = resp.Model
	if reply.Model == "" {
		reply.Model = modelName
	}
	reply.Sources = resp.Sources
	reply.Stats = resp.Stats()

	if _, err := t.pipeline.Append(reply); err != nil {
		return nil, err
	}

	// 响应未携带句柄时保留上一轮的句柄
	if resp.Context != nil && sessionID != "" {
		t.mu.Lock()
		t.contexts[sessionID] = resp.Context.Clone()
		t.mu.Unlock()
	}

	return resp, nil
}

// Context 返回会话缓存的续写句柄副本
func (t *GenerationTracker) Context(sessionID string) model.GenerationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.contexts[sessionID].Clone()
}

// Forget 丢弃会话的续写句柄（会话被删除或清空时）
func (t *GenerationTracker) Forget(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.contexts, sessionID)
}

// Reset 清除活动会话的续写句柄并清空其消息
func (t *GenerationTracker) Reset() error {
	sessionID, err := t.repo.mutateActive(func(s *model.Session) {
		s.Messages = []model.Message{}
	})
	if err != nil {
		if isPrecondition(err) {
			logger.Errorf("Reset skipped clearing messages: %v", err)
			return nil
		}
		return err
	}

	t.Forget(sessionID)
	return nil
}
