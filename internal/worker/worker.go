// Package worker 从 RabbitMQ 消费解析请求并发布解析结果
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"retractor-go/internal/constants"
	"retractor-go/internal/parser"
	"retractor-go/internal/service"
	"retractor-go/internal/storage"
	"retractor-go/internal/tracing"
)

// Transport 由 storage.RabbitMQ 实现
type Transport interface {
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler func(context.Context, []byte) bool) (<-chan struct{}, error)
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data any, persistent bool) error
}

// ResumeParser 由 service.ResumeService 实现
type ResumeParser interface {
	ParseText(ctx context.Context, text string) (service.Outcome, error)
	ParseObject(ctx context.Context, objectKey string) (service.Outcome, error)
}

// Deduper 重复投递去重，由 storage.Redis 实现
type Deduper interface {
	MarkRequestDone(ctx context.Context, requestID string) (bool, error)
	ClearRequestDone(ctx context.Context, requestID string) error
}

// Config 消费者配置
type Config struct {
	RequestQueue     string
	ResultExchange   string // 为空时使用默认交换机，路由键即结果队列名
	ResultRoutingKey string
	PrefetchCount    int
	Workers          int
	PublishTimeout   time.Duration
}

// Worker 解析请求消费者
type Worker struct {
	transport Transport
	parser    ResumeParser
	deduper   Deduper
	cfg       Config
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	wg sync.WaitGroup
}

// Option 配置 Worker
type Option func(*Worker)

// WithDeduper 启用重复投递去重
func WithDeduper(d Deduper) Option {
	return func(w *Worker) {
		w.deduper = d
	}
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

// New 创建消费者
func New(t Transport, p ResumeParser, cfg Config, opts ...Option) (*Worker, error) {
	if t == nil || p == nil {
		return nil, fmt.Errorf("transport和parser不能为空")
	}
	if cfg.RequestQueue == "" {
		return nil, fmt.Errorf("请求队列名称不能为空")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 1
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	w := &Worker{
		transport: t,
		parser:    p,
		cfg:       cfg,
		tracer:    otel.Tracer("retractor/worker"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start 启动 cfg.Workers 个消费者，ctx 结束时停止
func (w *Worker) Start(ctx context.Context) error {
	for i := 0; i < w.cfg.Workers; i++ {
		done, err := w.transport.StartConsumer(ctx, w.cfg.RequestQueue, w.cfg.PrefetchCount, w.Handle)
		if err != nil {
			return fmt.Errorf("启动第%d个消费者失败: %w", i+1, err)
		}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			<-done
		}()
	}
	w.logger.Info().
		Str("queue", w.cfg.RequestQueue).
		Int("workers", w.cfg.Workers).
		Msg("解析请求消费者已启动")
	return nil
}

// Wait 等待所有消费者退出
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Handle 处理一条消息，返回 true 表示确认，false 表示拒绝并重新入队
func (w *Worker) Handle(ctx context.Context, body []byte) bool {
	ctx, span := w.tracer.Start(ctx, "worker.HandleParseRequest", trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination", w.cfg.RequestQueue)))
	defer span.End()

	var msg storage.ParseRequestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// 无法解析的消息重新入队也不会成功，直接确认丢弃
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		w.logger.Error().Err(err).Str("body", tracing.TruncateString(string(body), tracing.DefaultMaxLength)).Msg("解析请求消息格式错误，丢弃")
		return true
	}
	if msg.RequestID == "" {
		msg.RequestID = uuid.New().String()
	}
	span.SetAttributes(attribute.String("messaging.message_id", msg.RequestID))
	log := w.logger.With().Str("request_id", msg.RequestID).Logger()

	if w.deduper != nil {
		first, err := w.deduper.MarkRequestDone(ctx, msg.RequestID)
		if err != nil {
			log.Warn().Err(err).Msg("请求去重检查失败，继续处理")
		} else if !first {
			log.Info().Msg("请求已处理过，跳过")
			span.SetAttributes(attribute.Bool("worker.duplicate", true))
			return true
		}
	}

	outcome, err := w.parse(ctx, msg)
	result := storage.ParseResultMessage{
		RequestID:   msg.RequestID,
		ProcessedAt: w.now(),
	}
	if err != nil {
		if retryable(err) {
			w.release(ctx, msg.RequestID)
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
			tracing.RecordRabbitMQNack(span, msg.RequestID, err.Error())
			log.Error().Err(err).Msg("解析请求处理失败，重新入队")
			return false
		}
		log.Warn().Err(err).Msg("简历无法解析")
		result.Status = constants.StatusFailed
		result.Error = err.Error()
	} else {
		result.Status = constants.StatusSucceeded
		result.Resume = outcome.Resume
		result.Cached = outcome.Cached
	}

	pubCtx, cancel := context.WithTimeout(ctx, w.cfg.PublishTimeout)
	defer cancel()
	if err := w.transport.PublishJSON(pubCtx, w.cfg.ResultExchange, w.cfg.ResultRoutingKey, result, true); err != nil {
		w.release(ctx, msg.RequestID)
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		tracing.RecordRabbitMQNack(span, msg.RequestID, "publish result failed")
		log.Error().Err(err).Msg("发布解析结果失败，重新入队")
		return false
	}

	span.SetAttributes(attribute.String("worker.status", result.Status))
	span.SetStatus(codes.Ok, "")
	log.Info().Str("status", result.Status).Bool("cached", result.Cached).Msg("解析请求处理完成")
	return true
}

func (w *Worker) parse(ctx context.Context, msg storage.ParseRequestMessage) (service.Outcome, error) {
	switch {
	case msg.ObjectKey != "":
		return w.parser.ParseObject(ctx, msg.ObjectKey)
	case msg.Text != "":
		return w.parser.ParseText(ctx, msg.Text)
	default:
		return service.Outcome{}, service.ErrEmptyInput
	}
}

// release 处理失败时清除去重标记，允许重新投递
func (w *Worker) release(ctx context.Context, requestID string) {
	if w.deduper == nil {
		return
	}
	if err := w.deduper.ClearRequestDone(context.WithoutCancel(ctx), requestID); err != nil {
		w.logger.Warn().Err(err).Str("request_id", requestID).Msg("清除请求去重标记失败")
	}
}

// retryable 输入本身的问题重试无意义，其余视为基础设施故障
func retryable(err error) bool {
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, service.ErrEmptyInput),
		errors.Is(err, service.ErrNoObjectStore),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, storage.ErrObjectNotFound),
		errors.Is(err, parser.ErrReadDocument):
		return false
	}
	return true
}
