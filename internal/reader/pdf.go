package reader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

const pdfParseTimeout = 30 * time.Second

// PDFReader 使用 Eino PDF Parser 提取文本，失败时回退到 ledongthuc/pdf
type PDFReader struct {
	parser *pdf.PDFParser
	logger zerolog.Logger
}

// NewPDFReader 创建PDF读取器，整份文档作为一段连续文本
func NewPDFReader(ctx context.Context, l zerolog.Logger) (*PDFReader, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("create eino pdf parser: %w", err)
	}
	return &PDFReader{parser: p, logger: l}, nil
}

// Read 提取PDF全文
func (r *PDFReader) Read(ctx context.Context, path string) (string, error) {
	start := time.Now()

	text, err := r.readEino(ctx, path)
	if err == nil {
		r.logger.Debug().
			Str("path", path).
			Int("chars", len(text)).
			Dur("elapsed", time.Since(start)).
			Msg("PDF解析完成")
		return text, nil
	}

	r.logger.Warn().Err(err).Str("path", path).Msg("Eino解析PDF失败，尝试ledongthuc/pdf")
	text, fallbackErr := readPlainText(path)
	if fallbackErr != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return text, nil
}

func (r *PDFReader) readEino(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, pdfParseTimeout)
	defer cancel()

	docs, err := r.parser.Parse(ctx, f,
		einoParser.WithURI(path),
		einoParser.WithExtraMeta(map[string]any{"source_file_path": path}),
	)
	if err != nil {
		return "", fmt.Errorf("eino pdf parser: %w", err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("eino pdf parser returned no documents for %s", path)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return strings.Join(parts, " "), nil
}

// readPlainText 逐页提取文本，页之间以空格连接
func readPlainText(path string) (string, error) {
	f, rd, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= rd.NumPage(); i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, " "), nil
}

// PageCount 返回PDF页数，文件无法解析时返回nil
func (r *PDFReader) PageCount(path string) *int {
	f, rd, err := pdflib.Open(path)
	if err != nil {
		r.logger.Debug().Err(err).Str("path", path).Msg("无法统计PDF页数")
		return nil
	}
	defer f.Close()

	n := rd.NumPage()
	return &n
}
