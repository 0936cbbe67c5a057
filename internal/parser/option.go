package parser

import (
	"time"

	"github.com/rs/zerolog"

	"retractor-go/internal/extract"
	"retractor-go/internal/ner"
	"retractor-go/internal/reader"
)

// ComponentOpt 只修改 Components 中的字段
type ComponentOpt func(*Components)

// SettingOpt 只修改 Settings 中的字段
type SettingOpt func(*Settings)

// WithReader 设置文档读取器
func WithReader(r reader.Reader) ComponentOpt {
	return func(c *Components) {
		c.Reader = r
	}
}

// WithNER 设置实体识别模型
func WithNER(m ner.Model) ComponentOpt {
	return func(c *Components) {
		c.NER = m
	}
}

// WithAnalyzer 设置分词分句器
func WithAnalyzer(a Analyzer) ComponentOpt {
	return func(c *Components) {
		c.Analyzer = a
	}
}

// WithVocabulary 设置技能词表
func WithVocabulary(v *extract.Vocabulary) ComponentOpt {
	return func(c *Components) {
		c.Vocabulary = v
	}
}

// WithClock 设置当前时间来源，用于解析 "present"
func WithClock(clock func() time.Time) SettingOpt {
	return func(s *Settings) {
		if clock != nil {
			s.Clock = clock
		}
	}
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		s.Logger = l
	}
}

// WithWorkers ParseAll 默认并发数
func WithWorkers(n int) SettingOpt {
	return func(s *Settings) {
		s.Workers = n
	}
}
