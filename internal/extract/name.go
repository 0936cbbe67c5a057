package extract

import (
	"strings"
	"unicode"

	"retractor-go/internal/types"
)

// Name 返回第一对相邻专有名词组成的姓名
// 含 "name" 的组合(如 "Full Name")会被跳过
func Name(tokens []types.Token) *string {
	for i := 0; i+1 < len(tokens); i++ {
		if !isProperNoun(tokens[i]) || !isProperNoun(tokens[i+1]) {
			continue
		}
		candidate := tokens[i].Text + " " + tokens[i+1].Text
		if strings.Contains(strings.ToLower(candidate), "name") {
			continue
		}
		return &candidate
	}
	return nil
}

// isProperNoun 有词性时看 NNP/NNPS，无词性时看是否为首字母大写的纯字母单词
func isProperNoun(tok types.Token) bool {
	if tok.Tag != "" {
		return tok.Tag == "NNP" || tok.Tag == "NNPS"
	}
	if tok.Text == "" {
		return false
	}
	for i, r := range tok.Text {
		if !unicode.IsLetter(r) {
			return false
		}
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if i > 0 && unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
