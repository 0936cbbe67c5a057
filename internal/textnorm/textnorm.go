// Package textnorm 在分析之前清理原始文本
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
)

// SpaceClass 匹配任意 Unicode 空白的正则字符类
// RE2 的 \s 只包含 ASCII 空白，NBSP 等需要单独列出
const SpaceClass = `[\s\v\p{Z}\x{85}\x1c-\x1f]`

// allowedPunct 保留的标点
const allowedPunct = `.,;:!?"'[]{}=+()-@`

// ASCII控制字符与DEL
var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// IsSpace 是否为空白字符，包括 NBSP 等 Unicode 空白以及 \x1c-\x1f 分隔符
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case IsSpace(r):
		return true
	}
	return strings.ContainsRune(allowedPunct, r)
}

// Clean 删除允许集合之外的所有字符
// 允许: ASCII字母、数字、任意空白以及固定的标点集合
func Clean(text string) string {
	return strings.Map(func(r rune) rune {
		if allowed(r) {
			return r
		}
		return -1
	}, text)
}

// StripControl 删除ASCII控制字符(包括换行)和DEL
func StripControl(text string) string {
	return controlChars.ReplaceAllString(text, "")
}

// Collapse 将连续空白压缩为单个空格并去掉首尾空白
func Collapse(text string) string {
	return strings.Join(Fields(text), " ")
}

// Fields 按任意空白切分
func Fields(text string) []string {
	return strings.FieldsFunc(text, IsSpace)
}

// TrimSpace 去掉首尾的任意空白
func TrimSpace(text string) string {
	return strings.TrimFunc(text, IsSpace)
}
