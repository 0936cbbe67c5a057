package parser

import (
	"errors"
	"fmt"

	"retractor-go/internal/extract"
)

// 基础错误
var (
	ErrReadDocument          = errors.New("读取简历文件失败")
	ErrMissingComponent      = errors.New("解析器缺少必要组件")
	ErrVocabularyUnavailable = extract.ErrVocabularyUnavailable
)

// ParseError 包含输入与操作信息的解析错误
type ParseError struct {
	Input   string
	Op      string
	BaseErr error
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (操作:%s, 输入:%s): %v", e.BaseErr, e.Op, e.Input, e.Cause)
	}
	return fmt.Sprintf("%s (操作:%s, 输入:%s)", e.BaseErr, e.Op, e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.BaseErr
}

// Is 同时匹配基础错误和底层原因
func (e *ParseError) Is(target error) bool {
	if errors.Is(e.BaseErr, target) {
		return true
	}
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// NewReadError 构造读取失败错误
func NewReadError(input string, cause error) error {
	return &ParseError{
		Input:   input,
		Op:      "read",
		BaseErr: ErrReadDocument,
		Cause:   cause,
	}
}
