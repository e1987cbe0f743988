package client

import (
	"context"

	"llmdesk/internal/model"
)

// DownloadOperations 把模型下载接口适配为轮询器使用的操作接口
type DownloadOperations struct {
	Client *Client
}

func (d DownloadOperations) Start(ctx context.Context, key string) error {
	return d.Client.StartDownload(ctx, key)
}

func (d DownloadOperations) Status(ctx context.Context, key string) (model.DownloadOperation, error) {
	return d.Client.GetDownloadProgress(ctx, key)
}

func (d DownloadOperations) Clear(ctx context.Context, key string) error {
	return d.Client.ClearDownloadProgress(ctx, key)
}

// TrainingOperations 把微调任务接口适配为轮询器使用的操作接口
type TrainingOperations struct {
	Client *Client
}

func (t TrainingOperations) Start(ctx context.Context, key string) error {
	return t.Client.StartTrainingJob(ctx, key)
}

func (t TrainingOperations) Status(ctx context.Context, key string) (model.DownloadOperation, error) {
	job, err := t.Client.GetTrainingJob(ctx, key)
	if err != nil {
		return model.DownloadOperation{}, err
	}
	return model.DownloadOperation{
		Key:      key,
		Status:   TrainingStatus(job.Status),
		Progress: job.Progress,
		Message:  job.Message,
		Error:    job.Error,
	}, nil
}

func (t TrainingOperations) Clear(ctx context.Context, key string) error {
	return t.Client.ClearTrainingProgress(ctx, key)
}

// TrainingStatus 训练任务状态映射到操作状态
func TrainingStatus(status string) model.OperationStatus {
	switch status {
	case "queued", "pending":
		return model.StatusInitiated
	case "running":
		return model.StatusDownloading
	case "succeeded", "completed":
		return model.StatusCompleted
	case "failed", "cancelled":
		return model.StatusFailed
	default:
		return model.StatusInitiated
	}
}
