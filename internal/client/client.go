package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"llmdesk/internal/config"
	"llmdesk/internal/model"
	"llmdesk/internal/utils"
)

// Client 本地 LLM 平台 REST 接口
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(cfg config.BackendConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: utils.NewHTTPClient(timeout),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage 优先取 JSON 中的 error/detail/message 字段
func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 64<<10))

	var body struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		for _, s := range []string{body.Error, body.Detail, body.Message} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(data))
}

func (c *Client) CheckHealth(ctx context.Context) (*model.HealthStatus, error) {
	var health model.HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) Generate(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResponse, error) {
	body := *req
	body.Stream = false

	var resp model.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate", &body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	var resp model.ModelListResponse
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

func (c *Client) StartDownload(ctx context.Context, modelName string) error {
	return c.do(ctx, http.MethodPost, "/api/models/pull", model.PullRequest{Name: modelName}, nil)
}

func (c *Client) GetDownloadProgress(ctx context.Context, modelName string) (model.DownloadOperation, error) {
	var op model.DownloadOperation
	err := c.do(ctx, http.MethodGet, "/api/models/pull/"+url.PathEscape(modelName)+"/progress", nil, &op)
	return op, err
}

func (c *Client) ClearDownloadProgress(ctx context.Context, modelName string) error {
	return c.do(ctx, http.MethodDelete, "/api/models/pull/"+url.PathEscape(modelName)+"/progress", nil, nil)
}

func (c *Client) StartTrainingJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodPost, "/api/training/jobs/"+url.PathEscape(jobID)+"/start", nil, nil)
}

func (c *Client) GetTrainingJob(ctx context.Context, jobID string) (model.TrainingJob, error) {
	var job model.TrainingJob
	err := c.do(ctx, http.MethodGet, "/api/training/jobs/"+url.PathEscape(jobID), nil, &job)
	return job, err
}

func (c *Client) ClearTrainingProgress(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/api/training/jobs/"+url.PathEscape(jobID)+"/progress", nil, nil)
}
