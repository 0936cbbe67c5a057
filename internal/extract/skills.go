package extract

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"retractor-go/internal/types"
)

// Skills 统计词表中出现的技能
// 单词取非停用词 token，多词取名词短语，均按小写精确匹配
// 结果按出现次数降序，次数相同时按首次出现的顺序
func Skills(tokens []types.Token, nounPhrases []string, vocab *Vocabulary) []types.SkillRecord {
	if vocab == nil || vocab.Len() == 0 {
		return []types.SkillRecord{}
	}

	counts := make(map[string]int)
	var order []string
	hit := func(term string) {
		if _, seen := counts[term]; !seen {
			order = append(order, term)
		}
		counts[term]++
	}

	for _, tok := range tokens {
		lower := tok.Lower
		if lower == "" {
			lower = strings.ToLower(tok.Text)
		}
		if !tok.IsStop && vocab.Contains(lower) {
			hit(lower)
		}
	}
	for _, phrase := range nounPhrases {
		lower := strings.ToLower(strings.TrimSpace(phrase))
		if vocab.Contains(lower) {
			hit(lower)
		}
	}

	records := make([]types.SkillRecord, 0, len(order))
	for _, term := range order {
		records = append(records, types.SkillRecord{Name: capitalize(term), Count: counts[term]})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Count > records[j].Count
	})
	return records
}

// SkillNames 提取技能名称，结果不为 nil
func SkillNames(records []types.SkillRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names
}

// capitalize 首字母大写，其余小写，例如 "machine LEARNING" -> "Machine learning"
func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
