package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 错误分类，写入 span 的 error.type 属性
type ErrorType string

const (
	// ErrorTypeHTTP HTTP错误
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeNER 实体识别服务错误
	ErrorTypeNER ErrorType = "ner"
	// ErrorTypeRead 文档读取错误
	ErrorTypeRead ErrorType = "read"
	// ErrorTypeRedis Redis错误
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeObjectStore 对象存储错误
	ErrorTypeObjectStore ErrorType = "object_store"
	// ErrorTypeRabbitMQ RabbitMQ错误
	ErrorTypeRabbitMQ ErrorType = "rabbitmq"
	// ErrorTypeValidation 校验错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeTimeout 超时错误
	ErrorTypeTimeout ErrorType = "timeout"
)

// RecordError 记录错误并将 span 状态置为 Error
func RecordError(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPError 记录带状态码的HTTP错误
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	if span == nil || err == nil {
		return
	}

	category := "unknown"
	switch {
	case statusCode >= 400 && statusCode < 500:
		category = "client_error"
	case statusCode >= 500:
		category = "server_error"
	}

	RecordError(span, err, ErrorTypeHTTP,
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.category", category),
	)
}

// RecordRabbitMQNack 记录消息被拒绝(重新入队)
func RecordRabbitMQNack(span trace.Span, messageID string, reason string) {
	if span == nil {
		return
	}

	errMsg := "message not acknowledged"
	if reason != "" {
		errMsg = reason
	}

	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeRabbitMQ)),
		attribute.String("error.message", errMsg),
		attribute.String("messaging.message_id", messageID),
		attribute.String("messaging.error_type", "nack"),
	)
	span.SetStatus(codes.Error, errMsg)
}
