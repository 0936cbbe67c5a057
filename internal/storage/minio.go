package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"retractor-go/internal/config"
	"retractor-go/internal/tracing"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("对象不存在")

var minioTracer = otel.Tracer("retractor/storage/minio")

// ObjectStorage 简历原件所在的对象存储
type ObjectStorage interface {
	// FetchObject 下载对象到本地临时文件，返回文件路径和清理函数
	FetchObject(ctx context.Context, objectKey string) (string, func(), error)
	// UploadFile 上传文件
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, fileSize int64, contentType string) error
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, logger zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint不能为空")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO存储桶名称不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		bucket: cfg.BucketName,
		logger: logger.With().Str("component", "minio").Logger(),
	}
	if err := m.ensureBucketExists(ctx, cfg.BucketName, cfg.Location); err != nil {
		return nil, err
	}

	m.logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", m.bucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		return nil
	}
	m.logger.Info().Str("bucket", bucketName).Msg("存储桶不存在，正在创建")
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	return nil
}

// splitObjectKey objectKey 以已配置的存储桶名开头时去掉前缀
func (m *MinIO) splitObjectKey(objectKey string) string {
	if rest, ok := strings.CutPrefix(objectKey, m.bucket+"/"); ok {
		return rest
	}
	return strings.TrimPrefix(objectKey, "/")
}

// UploadFile 上传文件到配置的存储桶
func (m *MinIO) UploadFile(ctx context.Context, objectKey string, reader io.Reader, fileSize int64, contentType string) error {
	key := m.splitObjectKey(objectKey)
	ctx, span := minioTracer.Start(ctx, "MinIO.UploadFile", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("minio.bucket", m.bucket),
			attribute.String("minio.object_key", key),
			attribute.Int64("minio.size", fileSize),
		))
	defer span.End()

	if contentType == "" {
		contentType = ContentTypeFor(path.Ext(key))
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, reader, fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, key, err)
	}
	m.logger.Debug().Str("object_key", key).Str("etag", info.ETag).Int64("size", info.Size).Msg("对象上传成功")
	return nil
}

// FetchObject 下载对象到临时目录，保留扩展名以便按格式读取
func (m *MinIO) FetchObject(ctx context.Context, objectKey string) (string, func(), error) {
	key := m.splitObjectKey(objectKey)
	ctx, span := minioTracer.Start(ctx, "MinIO.FetchObject", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("minio.bucket", m.bucket),
			attribute.String("minio.object_key", key),
		))
	defer span.End()

	if key == "" {
		err := fmt.Errorf("对象键不能为空")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return "", nil, err
	}

	dir, err := os.MkdirTemp("", "retractor-object-")
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return "", nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	localPath := filepath.Join(dir, path.Base(key))
	if err := m.client.FGetObject(ctx, m.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		cleanup()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			err = fmt.Errorf("%w: %s/%s", ErrObjectNotFound, m.bucket, key)
		} else {
			err = fmt.Errorf("下载对象 %s/%s 失败: %w", m.bucket, key, err)
		}
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return "", nil, err
	}

	m.logger.Debug().Str("object_key", key).Str("path", localPath).Msg("对象下载完成")
	return localPath, cleanup, nil
}

// ContentTypeFor 根据扩展名返回Content-Type
func ContentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
