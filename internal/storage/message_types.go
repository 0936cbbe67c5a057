package storage

import (
	"time"

	"retractor-go/internal/types"
)

// ParseRequestMessage 解析请求消息
// ObjectKey 与 Text 二选一，ObjectKey 优先
type ParseRequestMessage struct {
	RequestID   string    `json:"request_id"`             // 请求ID，为空时由消费者生成
	ObjectKey   string    `json:"object_key,omitempty"`   // MinIO中的简历原件
	Filename    string    `json:"filename,omitempty"`     // 原始文件名，用于推断格式
	Text        string    `json:"text,omitempty"`         // 直接提供的简历文本
	SubmittedAt time.Time `json:"submitted_at,omitempty"` // 提交时间
}

// ParseResultMessage 解析结果消息
type ParseResultMessage struct {
	RequestID   string              `json:"request_id"`
	Status      string              `json:"status"` // succeeded 或 failed
	Cached      bool                `json:"cached"`
	Resume      *types.ParsedResume `json:"resume"`
	Error       string              `json:"error,omitempty"`
	ProcessedAt time.Time           `json:"processed_at"`
}
