package extract

import (
	"strings"

	"retractor-go/internal/nlp"
)

// degrees 可识别的学历缩写(大写形式)
var degrees = map[string]struct{}{
	"BE": {}, "B.E.": {}, "B.E": {}, "BS": {}, "B.S": {},
	"ME": {}, "M.E": {}, "M.E.": {}, "MS": {}, "M.S": {},
	"BTECH": {}, "B.TECH": {}, "M.TECH": {}, "MTECH": {},
	"SSC": {}, "HSC": {}, "CBSE": {}, "ICSE": {}, "X": {}, "XII": {},
}

// EducationLevel 从句子中识别学历缩写，按首次出现顺序返回原文单词
//
// 命中时会取当前句与下一句作为上下文；命中发生在最后一句时没有下一句，
// 该词不计入且抽取就此结束，之前的结果保留。
func EducationLevel(sentences []string) []string {
	levels := []string{}
	seen := make(map[string]struct{})

	for i, sentence := range sentences {
		for _, word := range strings.Fields(sentence) {
			if _, ok := degrees[strings.ToUpper(word)]; !ok || nlp.InStopList(word) {
				continue
			}
			if i+1 >= len(sentences) {
				return levels
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			levels = append(levels, word)
		}
	}
	return levels
}
