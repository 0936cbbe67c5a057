package ner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"retractor-go/internal/logger"
	"retractor-go/internal/ratelimit"
	"retractor-go/internal/tracing"
	"retractor-go/internal/types"
)

// ErrInvalidResponse 推理服务响应无法解析或不符合格式
var ErrInvalidResponse = errors.New("invalid ner response")

const defaultTimeout = 30 * time.Second

type inferRequest struct {
	Text string `json:"text"`
}

type inferResponse struct {
	Entities []types.AnnotatedSpan `json:"entities"`
}

// HTTPModel 通过HTTP调用外部实体识别服务
type HTTPModel struct {
	url     string
	apiKey  string
	timeout time.Duration
	client  *client.Client
	limiter *ratelimit.TokenBucket
	schema  *jsonschema.Schema
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// HTTPOption HTTPModel 选项
type HTTPOption func(*HTTPModel)

// WithTimeout 单次请求超时
func WithTimeout(d time.Duration) HTTPOption {
	return func(m *HTTPModel) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithAPIKey 通过 X-API-Key 头发送鉴权信息
func WithAPIKey(key string) HTTPOption {
	return func(m *HTTPModel) {
		m.apiKey = key
	}
}

// WithRateLimiter 设置限流器，同时决定重试策略
func WithRateLimiter(tb *ratelimit.TokenBucket) HTTPOption {
	return func(m *HTTPModel) {
		m.limiter = tb
	}
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) HTTPOption {
	return func(m *HTTPModel) {
		m.logger = l
	}
}

// NewHTTPModel 创建HTTP实体识别客户端
func NewHTTPModel(url string, opts ...HTTPOption) (*HTTPModel, error) {
	if url == "" {
		return nil, errors.New("ner server url is required")
	}

	schema, err := compileResponseSchema()
	if err != nil {
		return nil, err
	}

	m := &HTTPModel{
		url:     url,
		timeout: defaultTimeout,
		schema:  schema,
		logger:  logger.Logger,
		tracer:  otel.Tracer("retractor/ner"),
	}
	for _, opt := range opts {
		opt(m)
	}

	c, err := client.NewClient(
		client.WithDialTimeout(m.timeout),
		client.WithClientReadTimeout(m.timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create hertz client: %w", err)
	}
	m.client = c

	return m, nil
}

// Infer 调用推理服务并返回实体片段
func (m *HTTPModel) Infer(ctx context.Context, text string) ([]types.AnnotatedSpan, error) {
	ctx, span := m.tracer.Start(ctx, "ner.Infer",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ner.url", m.url),
			attribute.Int("ner.text_length", len([]rune(text))),
		))
	defer span.End()

	payload, err := json.Marshal(inferRequest{Text: text})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("marshal ner request: %w", err)
	}

	var body []byte
	start := time.Now()
	err = m.limiter.RetryWithBackoff(ctx, func() error {
		b, callErr := m.post(ctx, payload)
		if callErr != nil {
			m.logger.Debug().Err(callErr).Str("url", m.url).Msg("NER请求失败")
			return callErr
		}
		body = b
		return nil
	})
	if err != nil {
		var statusErr *ratelimit.StatusError
		if errors.As(err, &statusErr) {
			tracing.RecordHTTPError(span, err, statusErr.StatusCode)
		} else {
			tracing.RecordError(span, err, tracing.ErrorTypeNER)
		}
		return nil, fmt.Errorf("ner request: %w", err)
	}

	if err := validateResponse(m.schema, body); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var resp inferResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	span.SetAttributes(attribute.Int("ner.entities", len(resp.Entities)))
	m.logger.Debug().
		Int("entities", len(resp.Entities)).
		Dur("elapsed", time.Since(start)).
		Msg("NER完成")

	return resp.Entities, nil
}

func (m *HTTPModel) post(ctx context.Context, payload []byte) ([]byte, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(m.url)
	req.SetMethod(consts.MethodPost)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	if m.apiKey != "" {
		req.Header.Set("X-API-Key", m.apiKey)
	}
	req.SetBody(payload)

	if err := m.client.DoTimeout(ctx, req, resp, m.timeout); err != nil {
		return nil, err
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &ratelimit.StatusError{
			StatusCode: code,
			Body:       tracing.TruncateString(string(resp.Body()), tracing.DefaultMaxLength),
		}
	}

	// resp 释放后底层缓冲会被复用
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
