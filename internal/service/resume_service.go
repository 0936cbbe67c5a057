// Package service 在解析器之外提供缓存、上传文件与对象存储输入
package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"retractor-go/internal/logger"
	"retractor-go/internal/reader"
	"retractor-go/internal/storage"
	"retractor-go/internal/tracing"
	"retractor-go/internal/types"
)

// cacheMonthLayout 缓存键中的月份
const cacheMonthLayout = "200601"

// 基础错误
var (
	ErrUnsupportedFormat = errors.New("不支持的简历文件格式")
	ErrFileTooLarge      = errors.New("简历文件超过大小限制")
	ErrNoObjectStore     = errors.New("未配置对象存储")
	ErrEmptyInput        = errors.New("简历内容为空")
)

// Parser 由 parser.ResumeParser 实现
type Parser interface {
	ParseText(ctx context.Context, text string) (*types.ParsedResume, error)
	ParseFile(ctx context.Context, path string) (*types.ParsedResume, error)
}

// ResultCache 由 storage.Redis 实现
type ResultCache interface {
	GetParseResult(ctx context.Context, contentMD5 string) (*types.ParsedResume, error)
	SetParseResult(ctx context.Context, contentMD5 string, res *types.ParsedResume) error
}

// ObjectFetcher 由 storage.MinIO 实现
type ObjectFetcher interface {
	FetchObject(ctx context.Context, objectKey string) (string, func(), error)
}

// Outcome 一次解析的结果
type Outcome struct {
	Resume *types.ParsedResume
	Cached bool
}

// Option 配置 ResumeService
type Option func(*ResumeService)

// WithCache 启用结果缓存
func WithCache(c ResultCache) Option {
	return func(s *ResumeService) {
		s.cache = c
	}
}

// WithObjectStore 启用对象存储输入
func WithObjectStore(o ObjectFetcher) Option {
	return func(s *ResumeService) {
		s.objects = o
	}
}

// WithMaxUploadBytes 上传大小上限，<=0 不限制
func WithMaxUploadBytes(n int64) Option {
	return func(s *ResumeService) {
		s.maxUpload = n
	}
}

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(s *ResumeService) {
		s.logger = l
	}
}

// WithClock 设置缓存键使用的时钟
func WithClock(now func() time.Time) Option {
	return func(s *ResumeService) {
		if now != nil {
			s.now = now
		}
	}
}

// ResumeService 解析服务，供 HTTP 接口和队列消费者共用
type ResumeService struct {
	parser    Parser
	cache     ResultCache
	objects   ObjectFetcher
	maxUpload int64
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewResumeService 创建解析服务
func NewResumeService(p Parser, opts ...Option) (*ResumeService, error) {
	if p == nil {
		return nil, fmt.Errorf("parser不能为空")
	}
	s := &ResumeService{
		parser: p,
		logger: logger.Logger,
		tracer: otel.Tracer("retractor/service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HasObjectStore 是否可以按对象键解析
func (s *ResumeService) HasObjectStore() bool {
	return s.objects != nil
}

// ParseText 解析简历文本
func (s *ResumeService) ParseText(ctx context.Context, text string) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "service.ParseText",
		trace.WithAttributes(attribute.Int("resume.text_length", len(text))))
	defer span.End()

	key := contentKey("text", []byte(text))
	return s.cached(ctx, span, key, func() (*types.ParsedResume, error) {
		return s.parser.ParseText(ctx, text)
	})
}

// ParseUpload 将上传内容写入临时文件后按格式解析
func (s *ResumeService) ParseUpload(ctx context.Context, filename string, r io.Reader) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "service.ParseUpload",
		trace.WithAttributes(attribute.String("resume.filename", tracing.TruncateString(filename, tracing.DefaultMaxLength))))
	defer span.End()

	ext, err := extensionOf(filename)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return Outcome{}, err
	}

	path, sum, cleanup, err := s.spool(r, ext)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return Outcome{}, err
	}
	defer cleanup()

	return s.cached(ctx, span, ext+":"+sum, func() (*types.ParsedResume, error) {
		return s.parser.ParseFile(ctx, path)
	})
}

// ParseObject 从对象存储下载简历原件后解析
func (s *ResumeService) ParseObject(ctx context.Context, objectKey string) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "service.ParseObject",
		trace.WithAttributes(attribute.String("minio.object_key", tracing.TruncateString(objectKey, tracing.DefaultMaxLength))))
	defer span.End()

	if s.objects == nil {
		tracing.RecordError(span, ErrNoObjectStore, tracing.ErrorTypeValidation)
		return Outcome{}, ErrNoObjectStore
	}
	if _, err := extensionOf(objectKey); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return Outcome{}, err
	}

	localPath, cleanup, err := s.objects.FetchObject(ctx, objectKey)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return Outcome{}, fmt.Errorf("获取简历原件失败: %w", err)
	}
	defer cleanup()

	f, err := os.Open(localPath)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRead)
		return Outcome{}, fmt.Errorf("打开简历原件失败: %w", err)
	}
	h := md5.New()
	_, err = io.Copy(h, f)
	f.Close()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRead)
		return Outcome{}, fmt.Errorf("读取简历原件失败: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(localPath))

	return s.cached(ctx, span, ext+":"+hex.EncodeToString(h.Sum(nil)), func() (*types.ParsedResume, error) {
		return s.parser.ParseFile(ctx, localPath)
	})
}

// cached 缓存命中直接返回；缓存读写失败只记录日志
// 经历中的 present 按当前月份计算，键中带上月份，跨月后不再命中旧结果
func (s *ResumeService) cached(ctx context.Context, span trace.Span, key string, parse func() (*types.ParsedResume, error)) (Outcome, error) {
	key = s.now().Format(cacheMonthLayout) + ":" + key
	if s.cache != nil {
		res, err := s.cache.GetParseResult(ctx, key)
		switch {
		case err == nil && res != nil:
			span.SetAttributes(attribute.Bool("resume.cached", true))
			return Outcome{Resume: res, Cached: true}, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			s.logger.Warn().Err(err).Str("key", key).Msg("读取解析结果缓存失败，直接解析")
		}
	}

	res, err := parse()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRead)
		return Outcome{}, err
	}
	span.SetAttributes(attribute.Bool("resume.cached", false))

	if s.cache != nil {
		if err := s.cache.SetParseResult(ctx, key, res); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("写入解析结果缓存失败")
		}
	}
	return Outcome{Resume: res}, nil
}

// spool 写入临时文件并同时计算MD5
func (s *ResumeService) spool(r io.Reader, ext string) (string, string, func(), error) {
	dir, err := os.MkdirTemp("", "retractor-upload-")
	if err != nil {
		return "", "", nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, "resume"+ext)
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", "", nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer f.Close()

	if s.maxUpload > 0 {
		r = io.LimitReader(r, s.maxUpload+1)
	}
	h := md5.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		cleanup()
		return "", "", nil, fmt.Errorf("写入临时文件失败: %w", err)
	}
	if s.maxUpload > 0 && n > s.maxUpload {
		cleanup()
		return "", "", nil, ErrFileTooLarge
	}
	if n == 0 {
		cleanup()
		return "", "", nil, ErrEmptyInput
	}
	return path, hex.EncodeToString(h.Sum(nil)), cleanup, nil
}

func contentKey(kind string, data []byte) string {
	return kind + ":" + storage.CalculateMD5(data)
}

// extensionOf 返回小写扩展名，不在可读格式内时报错
func extensionOf(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(reader.SupportedExtensions, ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return ext, nil
}
