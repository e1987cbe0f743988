package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"llmdesk/internal/config"
	"llmdesk/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator 通过 OpenAI 兼容接口生成文本。
// 该接口没有续写句柄，响应中的 Context 始终为空。
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(cfg config.OpenAIConfig) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResponse, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = g.model
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: messages,
	}
	if opts := req.Options; opts != nil {
		if opts.Temperature != nil {
			chatReq.Temperature = *opts.Temperature
		}
		if opts.TopP != nil {
			chatReq.TopP = *opts.TopP
		}
		if opts.NumPredict != nil {
			chatReq.MaxTokens = *opts.NumPredict
		}
		if opts.Seed != nil {
			chatReq.Seed = opts.Seed
		}
		chatReq.Stop = opts.Stop
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return &model.GenerateResponse{
		Response:        resp.Choices[0].Message.Content,
		Model:           resp.Model,
		TotalDuration:   time.Since(start).Nanoseconds(),
		PromptEvalCount: resp.Usage.PromptTokens,
		EvalCount:       resp.Usage.CompletionTokens,
		Done:            true,
	}, nil
}
