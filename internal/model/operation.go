package model

type OperationStatus string

const (
	StatusIdle        OperationStatus = "idle"
	StatusInitiated   OperationStatus = "initiated"
	StatusDownloading OperationStatus = "downloading"
	StatusCompleted   OperationStatus = "completed"
	StatusFailed      OperationStatus = "failed"
)

// IsTerminal completed 与 failed 之后不再轮询
func (s OperationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Normalize 把后端返回的状态归入已知集合。
// 明确的失败/完成别名映射到终态，空值与排队类状态视为 initiated，其余未知状态视为 downloading。
func (s OperationStatus) Normalize() OperationStatus {
	switch s {
	case StatusInitiated, StatusDownloading, StatusCompleted, StatusFailed:
		return s
	case "error", "cancelled", "canceled":
		return StatusFailed
	case "success", "succeeded", "done":
		return StatusCompleted
	case StatusIdle, "", "pending", "queued":
		return StatusInitiated
	default:
		return StatusDownloading
	}
}

// DownloadOperation 长时间运行操作（模型下载、训练任务）的可观察快照
type DownloadOperation struct {
	Key      string          `json:"key"`
	Status   OperationStatus `json:"status"`
	Progress float64         `json:"progress"`
	Message  string          `json:"message"`
	Error    string          `json:"error,omitempty"`
}

// ClampProgress 将进度限制在 [0,100]
func (o DownloadOperation) ClampProgress() DownloadOperation {
	switch {
	case o.Progress < 0:
		o.Progress = 0
	case o.Progress > 100:
		o.Progress = 100
	}
	return o
}
