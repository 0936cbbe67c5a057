// Package reader 将简历文件读取为纯文本
package reader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"retractor-go/internal/logger"
)

// ErrNotRegularFile 路径存在但不是普通文件
var ErrNotRegularFile = errors.New("not a regular file")

// Reader 文档读取接口
type Reader interface {
	// Read 读取文件文本，不支持的扩展名返回空字符串
	Read(ctx context.Context, path string) (string, error)
	// PageCount 返回页数，无法统计时返回nil
	PageCount(path string) *int
}

// SupportedExtensions 可识别的扩展名
var SupportedExtensions = []string{".txt", ".pdf", ".docx", ".doc"}

// FileReader 按扩展名分发到具体格式的读取器
type FileReader struct {
	pdf    *PDFReader
	docx   *DOCXReader
	logger zerolog.Logger
}

// Option FileReader 选项
type Option func(*FileReader)

// WithLogger 设置日志
func WithLogger(l zerolog.Logger) Option {
	return func(r *FileReader) {
		r.logger = l
	}
}

// NewFileReader 创建读取器
func NewFileReader(ctx context.Context, opts ...Option) (*FileReader, error) {
	r := &FileReader{logger: logger.Logger}
	for _, opt := range opts {
		opt(r)
	}

	pdfReader, err := NewPDFReader(ctx, r.logger)
	if err != nil {
		return nil, err
	}
	r.pdf = pdfReader
	r.docx = &DOCXReader{}

	return r, nil
}

// Read 实现 Reader
func (r *FileReader) Read(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		return readText(path)
	case ".pdf":
		return r.pdf.Read(ctx, path)
	case ".docx":
		return r.docx.Read(path)
	case ".doc":
		// 旧版二进制 Word 格式没有可用的解析器
		r.logger.Warn().Str("path", path).Msg("不支持 .doc 格式，返回空文本")
		return "", nil
	default:
		r.logger.Debug().Str("path", path).Str("ext", ext).Msg("不支持的文件类型")
		return "", nil
	}
}

// PageCount 实现 Reader，仅PDF支持
func (r *FileReader) PageCount(path string) *int {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return nil
	}
	return r.pdf.PageCount(path)
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	return string(b), nil
}
