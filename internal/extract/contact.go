// Package extract 实现基于正则和规则的简历字段抽取
// 所有函数均为纯函数，未命中时返回 nil 或空切片
package extract

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`([^@|\s]+@[^@]+\.[^@|\s]+)`)

	// 美国电话号码: 3-3-4 位(可带括号)，或 3-4 位
	mobilePattern = regexp.MustCompile(
		`\(?\d{3}\)?[-.\s]??\d{3}[-.\s]??\d{4}` +
			`|\(\d{3}\)[-.\s]*\d{3}[-.\s]??\d{4}` +
			`|\d{3}[-.\s]??\d{4}`)
)

// Email 返回第一个邮箱地址
func Email(text string) *string {
	match := emailPattern.FindString(text)
	if match == "" {
		return nil
	}
	fields := strings.Fields(match)
	if len(fields) == 0 {
		return nil
	}
	email := strings.Trim(fields[0], ";")
	if email == "" {
		return nil
	}
	return &email
}

// MobileNumber 返回第一个电话号码，保留原文中的分隔符
func MobileNumber(text string) *string {
	match := mobilePattern.FindString(text)
	if match == "" {
		return nil
	}
	return &match
}
