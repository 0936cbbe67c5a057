package logger // 全局日志组件，基于zerolog

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger 默认的全局日志实例
	Logger = log.Logger
)

// Config 日志配置
type Config struct {
	Level        string `json:"level" yaml:"level"`                 // debug, info, warn, error
	Format       string `json:"format" yaml:"format"`               // json 或 pretty
	Output       string `json:"output" yaml:"output"`               // stdout(默认) 或 stderr
	TimeFormat   string `json:"time_format" yaml:"time_format"`     // 时间戳格式
	ReportCaller bool   `json:"report_caller" yaml:"report_caller"` // 是否记录调用位置
}

// Init 按配置初始化并替换全局日志实例
func Init(config Config) {
	level := parseLevel(config.Level)
	zerolog.SetGlobalLevel(level)

	if config.TimeFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	} else {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	Logger = New(config)
	log.Logger = Logger
}

// New 按配置构建一个日志实例，不修改全局状态
func New(config Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(config.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(config, out)
}

// NewWithWriter 与 New 相同，但输出到指定的 writer
func NewWithWriter(config Config, out io.Writer) zerolog.Logger {
	if config.Format == "pretty" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: config.TimeFormat,
		}
	}

	ctx := zerolog.New(out).
		Level(parseLevel(config.Level)).
		With().
		Timestamp()
	if config.ReportCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Component 返回带 component 字段的子日志
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

// Debug 开始一条调试级别的日志事件
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 开始一条信息级别的日志事件
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 开始一条警告级别的日志事件
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 开始一条错误级别的日志事件
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 记录后程序退出
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// Ctx 从上下文中获取日志实例，没有时返回全局实例
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &Logger
}

// WithContext 将全局日志实例放入上下文
func WithContext(ctx context.Context) context.Context {
	return Logger.WithContext(ctx)
}
