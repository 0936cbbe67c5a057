// Package nlp 提供分词、词性标注、分句和名词短语抽取
package nlp

import (
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/rs/zerolog"
	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"

	"retractor-go/internal/logger"
	"retractor-go/internal/types"
)

// Analyzer 基于 prose 的英文文本分析器，构造后只读，可并发使用
// 词性标注模型和分句器只在构造时加载一次
type Analyzer struct {
	model     *prose.Model
	segmenter *sentences.DefaultSentenceTokenizer
	logger    zerolog.Logger
}

// AnalyzerOption 分析器选项
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger 设置分析器日志
func WithAnalyzerLogger(l zerolog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// NewAnalyzer 创建分析器
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{logger: logger.Logger}
	for _, opt := range opts {
		opt(a)
	}

	// 空文档只用于构建带词性标注器的模型
	doc, err := prose.NewDocument("",
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		a.logger.Warn().Err(err).Msg("加载词性标注模型失败，每次分词时重新加载")
	} else {
		a.model = doc.Model
	}

	a.segmenter, err = english.NewSentenceTokenizer(nil)
	if err != nil {
		a.logger.Warn().Err(err).Msg("加载分句模型失败，整段作为一个句子")
		a.segmenter = nil
	}
	return a
}

// Tokens 分词并标注词性
// prose 处理失败时退化为按空白切分，词性为空
func (a *Analyzer) Tokens(text string) []types.Token {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	opts := []prose.DocOpt{
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	}
	if a.model != nil {
		opts = append(opts, prose.UsingModel(a.model))
	}
	doc, err := prose.NewDocument(text, opts...)
	if err != nil {
		a.logger.Warn().Err(err).Msg("prose分词失败，使用空白切分")
		return fallbackTokens(text)
	}

	proseTokens := doc.Tokens()
	tokens := make([]types.Token, 0, len(proseTokens))
	for _, tok := range proseTokens {
		tokens = append(tokens, newToken(tok.Text, tok.Tag))
	}
	return tokens
}

// Sentences 分句，返回去除首尾空白后的非空句子
func (a *Analyzer) Sentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if a.segmenter == nil {
		return []string{strings.TrimSpace(text)}
	}

	var out []string
	for _, s := range a.segmenter.Tokenize(text) {
		if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NounPhrases 从已标注的词中抽取小写的二元和三元名词短语
// 短语取自连续的名词/形容词(无词性时为非停用词、非标点)片段
func (a *Analyzer) NounPhrases(tokens []types.Token) []string {
	return nounPhrases(tokens)
}

func nounPhrases(tokens []types.Token) []string {
	var phrases []string
	var run []string

	flush := func() {
		for n := 2; n <= 3; n++ {
			for i := 0; i+n <= len(run); i++ {
				phrases = append(phrases, strings.Join(run[i:i+n], " "))
			}
		}
		run = run[:0]
	}

	for _, tok := range tokens {
		if isPhraseWord(tok) {
			run = append(run, tok.Lower)
			continue
		}
		flush()
	}
	flush()

	return phrases
}

func isPhraseWord(tok types.Token) bool {
	if tok.IsStop || tok.IsPunct {
		return false
	}
	if tok.Tag == "" {
		return true
	}
	return strings.HasPrefix(tok.Tag, "NN") || strings.HasPrefix(tok.Tag, "JJ")
}

func newToken(text, tag string) types.Token {
	return types.Token{
		Text:    text,
		Lower:   strings.ToLower(text),
		Tag:     tag,
		IsStop:  IsStopWord(text),
		IsPunct: isPunct(text),
	}
}

func fallbackTokens(text string) []types.Token {
	fields := strings.Fields(text)
	tokens := make([]types.Token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, newToken(f, ""))
	}
	return tokens
}

// isPunct 全部由标点或符号组成
func isPunct(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}
