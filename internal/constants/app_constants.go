package constants

import "time"

const (
	// ParserVersion 写入缓存键的解析规则版本，规则变化时旧缓存自然失效
	ParserVersion = "1"

	DefaultResultTTL      = 24 * time.Hour
	DefaultRequestDoneTTL = 72 * time.Hour

	// 队列消息状态
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)
