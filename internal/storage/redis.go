package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"retractor-go/internal/config"
	"retractor-go/internal/constants"
	"retractor-go/internal/tracing"
	"retractor-go/internal/types"
)

// ErrNotFound 键不存在
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("retractor/storage/redis")

// Redis 解析结果缓存
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端并检查连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries: cfg.MaxRetries,
	})

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// ResultTTL 解析结果缓存的过期时间
func (r *Redis) ResultTTL() time.Duration {
	if r.config == nil {
		return constants.DefaultResultTTL
	}
	return config.GetDuration(r.config.ResultTTL, constants.DefaultResultTTL)
}

// ParseResultKey 按内容MD5生成解析结果缓存键
func ParseResultKey(contentMD5 string) string {
	return fmt.Sprintf(constants.KeyParseResult, constants.ParserVersion, contentMD5)
}

// RequestDoneKey 队列请求去重键
func RequestDoneKey(requestID string) string {
	return fmt.Sprintf(constants.KeyParseRequestDone, requestID)
}

// CalculateMD5 计算内容的MD5十六进制串
func CalculateMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (r *Redis) startSpan(ctx context.Context, name, operation, key string) (context.Context, trace.Span) {
	ctx, span := redisTracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.operation", operation),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	)
	if r.config != nil {
		span.SetAttributes(
			attribute.Int("db.redis.database", r.config.DB),
			attribute.String("net.peer.name", r.config.Address),
		)
	}
	return ctx, span
}

// GetParseResult 读取缓存的解析结果，未命中时返回 ErrNotFound
func (r *Redis) GetParseResult(ctx context.Context, contentMD5 string) (*types.ParsedResume, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis客户端未初始化")
	}
	key := ParseResultKey(contentMD5)
	ctx, span := r.startSpan(ctx, "Redis.GetParseResult", "GET", key)
	defer span.End()

	val, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		// key不存在不算作错误
		if errors.Is(err, redis.Nil) {
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
			span.SetStatus(codes.Ok, "key not found")
			return nil, ErrNotFound
		}
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, fmt.Errorf("读取解析结果缓存失败: %w", err)
	}

	var res types.ParsedResume
	if err := json.Unmarshal(val, &res); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, fmt.Errorf("解析结果缓存反序列化失败: %w", err)
	}
	span.SetAttributes(
		attribute.Bool("db.redis.key_exists", true),
		attribute.Int("db.redis.value_length", len(val)),
	)
	span.SetStatus(codes.Ok, "")
	return &res, nil
}

// SetParseResult 写入解析结果缓存
func (r *Redis) SetParseResult(ctx context.Context, contentMD5 string, res *types.ParsedResume) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if res == nil {
		return fmt.Errorf("解析结果不能为空")
	}
	key := ParseResultKey(contentMD5)
	ctx, span := r.startSpan(ctx, "Redis.SetParseResult", "SET", key)
	defer span.End()

	data, err := json.Marshal(res)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return fmt.Errorf("解析结果序列化失败: %w", err)
	}
	if err := r.Client.Set(ctx, key, data, r.ResultTTL()).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("写入解析结果缓存失败: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// MarkRequestDone 标记队列请求已处理，返回 true 表示首次标记
func (r *Redis) MarkRequestDone(ctx context.Context, requestID string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis客户端未初始化")
	}
	key := RequestDoneKey(requestID)
	ctx, span := r.startSpan(ctx, "Redis.MarkRequestDone", "SETNX", key)
	defer span.End()

	ok, err := r.Client.SetNX(ctx, key, time.Now().Unix(), constants.DefaultRequestDoneTTL).Result()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return false, fmt.Errorf("标记请求状态失败: %w", err)
	}
	span.SetAttributes(attribute.Bool("already_exists", !ok))
	span.SetStatus(codes.Ok, "")
	return ok, nil
}

// ClearRequestDone 清除请求标记，用于处理失败后允许重新投递
func (r *Redis) ClearRequestDone(ctx context.Context, requestID string) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	key := RequestDoneKey(requestID)
	ctx, span := r.startSpan(ctx, "Redis.ClearRequestDone", "DEL", key)
	defer span.End()

	if err := r.Client.Del(ctx, key).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("清除请求状态失败: %w", err)
	}
	return nil
}
