package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxRedisLength Redis键最大长度
	MaxRedisLength = 100

	// MaxResumeLength 简历文本最大长度
	MaxResumeLength = 150
)

// maskPIILookup 属性名包含这些关键字时值需要掩码
var maskPIILookup = []string{
	"email",
	"phone",
	"mobile",
	"name",
	"address",
	"secret",
	"token",
	"api_key",
}

// SafeAttributeValue 敏感属性返回掩码值，其他属性按 maxLength 截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lowerName := strings.ToLower(name)
	for _, keyword := range maskPIILookup {
		if strings.Contains(lowerName, keyword) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 对个人敏感信息进行掩码处理
// 四个字符以内保留首尾各一个，更长的保留首尾各两个
func MaskPII(value string) string {
	runes := []rune(value)
	length := len(runes)

	switch {
	case length == 0:
		return ""
	case length == 1:
		return "*"
	case length == 2:
		return string(runes[0]) + "*"
	case length <= 4:
		return string(runes[0]) + strings.Repeat("*", length-2) + string(runes[length-1])
	default:
		// "jane@example.com" -> "ja************om"
		return string(runes[0:2]) + strings.Repeat("*", length-4) + string(runes[length-2:])
	}
}

// TruncateString 超长时保留首尾，中间以 ... 连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}

	half := (maxLength - 3) / 2
	if half < 1 {
		half = 1
	}
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeRedisKey 截断Redis键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeResumeContent 截断简历文本
func SafeResumeContent(content string) string {
	return TruncateString(content, MaxResumeLength)
}
