// retractor 命令行：解析简历文件或文本，输出JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"retractor-go/internal/bootstrap"
	"retractor-go/internal/config"
	"retractor-go/internal/logger"
	"retractor-go/internal/parser"
	"retractor-go/internal/types"
)

type options struct {
	configPath string
	skills     string
	nerURL     string
	nerAPIKey  string
	text       string
	workers    int
	compact    bool
	logLevel   string
	sample     string
}

// fileResult 多个输入时每项的输出
type fileResult struct {
	Input  string              `json:"input"`
	Resume *types.ParsedResume `json:"resume"`
	Error  string              `json:"error,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet("retractor", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "配置文件路径，默认按搜索路径查找")
	fs.StringVar(&opts.skills, "skills", "", "技能词表 (.csv/.xlsx)，覆盖配置")
	fs.StringVar(&opts.nerURL, "ner-url", "", "实体识别服务地址，覆盖配置")
	fs.StringVar(&opts.nerAPIKey, "ner-api-key", "", "实体识别服务API Key")
	fs.StringVarP(&opts.text, "text", "t", "", "直接解析的简历文本")
	fs.IntVarP(&opts.workers, "workers", "w", 0, "并发解析数，默认CPU核数")
	fs.BoolVar(&opts.compact, "compact", false, "输出单行JSON")
	fs.StringVar(&opts.logLevel, "log-level", "", "日志级别 (debug, info, warn, error)")
	fs.StringVar(&opts.sample, "init-config", "", "在指定路径生成示例配置文件后退出")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "用法: retractor [选项] <简历文件>... | retractor --text \"...\"")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	if opts.sample != "" {
		if err := config.CreateSampleConfig(opts.sample); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stderr, "示例配置已写入 %s\n", opts.sample)
		return 0
	}

	inputs := fs.Args()
	if opts.text != "" {
		inputs = append([]string{opts.text}, inputs...)
	}
	if len(inputs) == 0 {
		fs.Usage()
		return 2
	}

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}
	applyFlags(cfg, opts)

	// 命令行的标准输出只留给JSON结果
	cfg.Logger.Output = "stderr"
	logger.Init(cfg.Logger)
	log := logger.Component("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := bootstrap.NewParser(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("初始化解析器失败")
		return 1
	}

	results, err := p.ParseAll(ctx, inputs, cfg.Parser.Workers)
	if err != nil {
		log.Error().Err(err).Msg("解析被中断")
		return 1
	}
	return writeResults(stdout, stderr, results, !opts.compact)
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.skills != "" {
		cfg.Parser.SkillsFile = opts.skills
	}
	if opts.nerURL != "" {
		cfg.NER.ServerURL = opts.nerURL
	}
	if opts.nerAPIKey != "" {
		cfg.NER.APIKey = opts.nerAPIKey
	}
	if opts.workers > 0 {
		cfg.Parser.Workers = opts.workers
	}
	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
}

// writeResults 单个输入直接输出简历对象，多个输入输出数组；有失败项时返回1
func writeResults(w, errw io.Writer, results []parser.Result, indent bool) int {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}

	code := 0
	if len(results) == 1 {
		r := results[0]
		if r.Err != nil {
			fmt.Fprintln(errw, r.Err)
			return 1
		}
		if err := enc.Encode(r.Resume); err != nil {
			return 1
		}
		return 0
	}

	out := make([]fileResult, 0, len(results))
	for _, r := range results {
		item := fileResult{Input: r.Input, Resume: r.Resume}
		if r.Err != nil {
			item.Error = r.Err.Error()
			code = 1
		}
		out = append(out, item)
	}
	if err := enc.Encode(out); err != nil {
		return 1
	}
	return code
}
