// Package storage 解析服务依赖的外部存储：Redis结果缓存、MinIO简历原件、RabbitMQ队列
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"retractor-go/internal/config"
)

// Storage 存储管理器，聚合所有存储相关依赖，未配置的组件为 nil
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 键值存储
	Redis *Redis

	logger zerolog.Logger
}

// NewStorage 按配置初始化存储组件
// 某个组件初始化失败只记录警告；已配置的组件全部失败时返回错误
func NewStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{logger: logger}
	var err error
	var initErrors []string
	configured := 0

	if cfg.MinIO.Endpoint != "" {
		configured++
		s.MinIO, err = NewMinIO(ctx, &cfg.MinIO, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		configured++
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, logger)
		if err == nil {
			if derr := s.RabbitMQ.DeclareTopology(); derr != nil {
				s.RabbitMQ.Close()
				s.RabbitMQ, err = nil, derr
			}
		}
		if err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		configured++
		s.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		logger.Info().Msg("Redis未配置, 不缓存解析结果")
	}

	if configured > 0 && len(initErrors) == configured {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	if len(initErrors) > 0 {
		logger.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}

	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			s.logger.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
	// MinIO 客户端无需显式关闭
}
