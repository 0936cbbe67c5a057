// Package ner 定义实体识别模型接口及其实现
package ner

import (
	"context"

	"retractor-go/internal/types"
)

// Model 对文本做实体识别，返回带标签的片段
// 片段偏移为传入文本的字符(rune)偏移
type Model interface {
	Infer(ctx context.Context, text string) ([]types.AnnotatedSpan, error)
}

// NopModel 不识别任何实体，用于未配置模型服务时
type NopModel struct{}

// Infer 始终返回空结果
func (NopModel) Infer(context.Context, string) ([]types.AnnotatedSpan, error) {
	return nil, nil
}

// StaticModel 返回固定结果，测试用
type StaticModel struct {
	Spans []types.AnnotatedSpan
	Err   error
}

// Infer 返回预设的片段或错误
func (m StaticModel) Infer(context.Context, string) ([]types.AnnotatedSpan, error) {
	return m.Spans, m.Err
}
