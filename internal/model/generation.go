package model

// GenerationContext 服务端返回的续写句柄，顺序有意义，每次整体替换
type GenerationContext []int

// Clone 返回独立副本；nil 保持为 nil
func (c GenerationContext) Clone() GenerationContext {
	if c == nil {
		return nil
	}
	out := make(GenerationContext, len(c))
	copy(out, c)
	return out
}

// GenerateOptions 采样参数，零值字段不发送
type GenerateOptions struct {
	Temperature   *float32 `json:"temperature,omitempty"`
	TopP          *float32 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	NumPredict    *int     `json:"num_predict,omitempty"`
	RepeatPenalty *float32 `json:"repeat_penalty,omitempty"`
	Seed          *int     `json:"seed,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

type GenerateRequest struct {
	Model   string            `json:"model"`
	Prompt  string            `json:"prompt"`
	System  string            `json:"system,omitempty"`
	Context GenerationContext `json:"context,omitempty"`
	Options *GenerateOptions  `json:"options,omitempty"`
	// UseRAG 让后端在生成前检索文档并返回引用
	UseRAG bool `json:"use_rag,omitempty"`
	Stream bool `json:"stream"`
}

type GenerateResponse struct {
	Response        string            `json:"response"`
	Model           string            `json:"model"`
	Context         GenerationContext `json:"context,omitempty"`
	TotalDuration   int64             `json:"total_duration,omitempty"`
	LoadDuration    int64             `json:"load_duration,omitempty"`
	PromptEvalCount int               `json:"prompt_eval_count,omitempty"`
	EvalCount       int               `json:"eval_count,omitempty"`
	Sources         []Citation        `json:"sources,omitempty"`
	Done            bool              `json:"done"`
}

// Stats 仅在后端提供了任一统计字段时返回非 nil
func (r *GenerateResponse) Stats() *MessageStats {
	if r.TotalDuration == 0 && r.PromptEvalCount == 0 && r.EvalCount == 0 {
		return nil
	}
	return &MessageStats{
		Duration:         r.TotalDuration,
		PromptTokenCount: r.PromptEvalCount,
		EvalTokenCount:   r.EvalCount,
	}
}

// ChatGenerateRequest HTTP 接口请求体
type ChatGenerateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt" binding:"required"`
	System  string           `json:"system"`
	UseRAG  bool             `json:"use_rag"`
	Options *GenerateOptions `json:"options"`
}
