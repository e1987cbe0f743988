package model

import "time"

type HealthStatus struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	Family     string    `json:"family,omitempty"`
	Parameters string    `json:"parameter_size,omitempty"`
}

type ModelListResponse struct {
	Models []ModelInfo `json:"models"`
}

type PullRequest struct {
	Name string `json:"name"`
}

// TrainingJob 微调任务状态
type TrainingJob struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"` // queued | running | succeeded | failed | cancelled
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	Error    string  `json:"error,omitempty"`
}
