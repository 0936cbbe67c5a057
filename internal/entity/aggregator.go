// Package entity 汇总NER输出和按章节切分的原始文本
package entity

import (
	"strings"

	"retractor-go/internal/textnorm"
	"retractor-go/internal/types"
)

// sectionKeywords 可识别的章节关键字
// 一行同时命中多个关键字时按此顺序取第一个
var sectionKeywords = []string{
	types.SectionEducation,
	types.SectionExperience,
	"skills",
	"projects",
	"accomplishments",
	"certifications",
	"publications",
	"interests",
	"objective",
	"summary",
	"leadership",
}

// SectionKeywords 返回章节关键字的副本，顺序即优先级
func SectionKeywords() []string {
	out := make([]string, len(sectionKeywords))
	copy(out, sectionKeywords)
	return out
}

// GroupEntities 按标签汇总实体文本，同一标签内按原文精确去重(区分大小写)
func GroupEntities(text string, spans []types.AnnotatedSpan) types.EntityMap {
	entities := make(types.EntityMap)
	seen := make(map[string]map[string]struct{})

	var runes []rune
	for _, span := range spans {
		surface := span.Text
		if surface == "" {
			if runes == nil {
				runes = []rune(text)
			}
			if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
				continue
			}
			surface = string(runes[span.Start:span.End])
		}

		labelSeen, ok := seen[span.Label]
		if !ok {
			labelSeen = make(map[string]struct{})
			seen[span.Label] = labelSeen
		}
		if _, dup := labelSeen[surface]; dup {
			continue
		}
		labelSeen[surface] = struct{}{}
		entities[span.Label] = append(entities[span.Label], surface)
	}

	return entities
}

// GroupBySection 将文本按行切分并归入章节
// 标题行本身不计入章节；第一个标题之前的行被丢弃；空行被忽略
func GroupBySection(text string) types.SectionMap {
	sections := make(types.SectionMap)
	current := ""

	for _, raw := range strings.Split(text, "\n") {
		line := textnorm.TrimSpace(raw)
		if section, ok := matchSection(line); ok {
			current = section
			if _, exists := sections[section]; !exists {
				sections[section] = []string{}
			}
			continue
		}
		if current == "" || line == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}

	return sections
}

// matchSection 计算行内小写单词集合与章节关键字的交集
func matchSection(line string) (string, bool) {
	if line == "" {
		return "", false
	}
	words := make(map[string]struct{})
	for _, w := range textnorm.Fields(strings.ToLower(line)) {
		words[w] = struct{}{}
	}
	for _, keyword := range sectionKeywords {
		if _, ok := words[keyword]; ok {
			return keyword, true
		}
	}
	return "", false
}
