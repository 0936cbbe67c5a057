package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrVocabularyUnavailable 技能词表缺失、无法读取或为空
var ErrVocabularyUnavailable = errors.New("skills vocabulary unavailable")

// Vocabulary 小写技能词表，构造后只读
type Vocabulary struct {
	terms map[string]struct{}
}

// NewVocabulary 从给定的词构建词表，忽略空白项
func NewVocabulary(terms ...string) *Vocabulary {
	v := &Vocabulary{terms: make(map[string]struct{}, len(terms))}
	for _, t := range terms {
		v.add(t)
	}
	return v
}

func (v *Vocabulary) add(term string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return
	}
	v.terms[term] = struct{}{}
}

// Contains 按小写精确匹配
func (v *Vocabulary) Contains(term string) bool {
	if v == nil {
		return false
	}
	_, ok := v.terms[strings.ToLower(term)]
	return ok
}

// Len 词表大小
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.terms)
}

// LoadVocabulary 读取 .csv 或 .xlsx 文件中的所有单元格作为技能词表
// xlsx 只读取第一个工作表
func LoadVocabulary(path string) (*Vocabulary, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", ErrVocabularyUnavailable, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVocabularyUnavailable, err)
	}

	vocab := NewVocabulary()
	for _, row := range rows {
		for _, cell := range row {
			vocab.add(cell)
		}
	}
	if vocab.Len() == 0 {
		return nil, fmt.Errorf("%w: %s contains no terms", ErrVocabularyUnavailable, path)
	}
	return vocab, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
