// Package bootstrap 按配置组装解析器，供命令行和服务进程共用
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"retractor-go/internal/config"
	"retractor-go/internal/extract"
	"retractor-go/internal/ner"
	"retractor-go/internal/parser"
	"retractor-go/internal/ratelimit"
)

// NewNERModel 未配置服务地址时返回 NopModel
func NewNERModel(cfg config.NERConfig, logger zerolog.Logger) (ner.Model, error) {
	if cfg.ServerURL == "" {
		logger.Info().Msg("未配置实体识别服务，仅使用规则抽取")
		return ner.NopModel{}, nil
	}

	limiter := ratelimit.NewTokenBucket(cfg.QPM, cfg.Burst).
		WithRetryPolicy(time.Duration(cfg.RetryWaitSeconds)*time.Second, cfg.MaxRetries)

	opts := []ner.HTTPOption{
		ner.WithTimeout(config.GetDuration(cfg.Timeout, 30*time.Second)),
		ner.WithRateLimiter(limiter),
		ner.WithLogger(logger),
	}
	if cfg.APIKey != "" {
		opts = append(opts, ner.WithAPIKey(cfg.APIKey))
	}

	model, err := ner.NewHTTPModel(cfg.ServerURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建实体识别客户端失败: %w", err)
	}
	logger.Info().Str("url", cfg.ServerURL).Int("qpm", cfg.QPM).Msg("实体识别客户端初始化成功")
	return model, nil
}

// NewParser 加载技能词表、创建实体识别客户端并构建解析器
func NewParser(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*parser.ResumeParser, error) {
	vocab, err := extract.LoadVocabulary(cfg.Parser.SkillsFile)
	if err != nil {
		return nil, fmt.Errorf("加载技能词表失败: %w", err)
	}
	logger.Info().Str("path", cfg.Parser.SkillsFile).Int("terms", vocab.Len()).Msg("技能词表加载成功")

	model, err := NewNERModel(cfg.NER, logger)
	if err != nil {
		return nil, err
	}

	return parser.CreateParser(ctx,
		[]parser.ComponentOpt{
			parser.WithVocabulary(vocab),
			parser.WithNER(model),
		},
		[]parser.SettingOpt{
			parser.WithLogger(logger),
			parser.WithWorkers(cfg.Parser.Workers),
		},
	)
}
