package reader

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXReader 读取 .docx 正文段落，每个段落一行，制表符替换为空格
type DOCXReader struct{}

// Read 提取段落文本
func (r *DOCXReader) Read(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := paragraphText(para); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch v := rc.(type) {
			case *docx.Text:
				buf.WriteString(v.Text)
			case *docx.Tab:
				buf.WriteString(" ")
			}
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(buf.String(), "\t", " "))
}
