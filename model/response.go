package model

import "github.com/chaos-io/cutout/session"

// SessionResponse 会话响应
type SessionResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    *session.Snapshot `json:"data,omitempty"`
}

// ModelStatus 模型加载状态
type ModelStatus struct {
	State        string  `json:"state"`
	Ready        bool    `json:"ready"`
	Architecture string  `json:"architecture"`
	OutputStride int     `json:"output_stride"`
	Multiplier   float64 `json:"multiplier"`
	QuantBytes   int     `json:"quant_bytes"`
}

// OriginalResponse 原图的 data URI
type OriginalResponse struct {
	Success bool   `json:"success"`
	DataURI string `json:"data_uri"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
