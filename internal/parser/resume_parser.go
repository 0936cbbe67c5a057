// Package parser 串联读取、实体识别与规则抽取，生成固定结构的简历解析结果
package parser

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"retractor-go/internal/entity"
	"retractor-go/internal/experience"
	"retractor-go/internal/extract"
	"retractor-go/internal/logger"
	"retractor-go/internal/ner"
	"retractor-go/internal/nlp"
	"retractor-go/internal/reader"
	"retractor-go/internal/textnorm"
	"retractor-go/internal/tracing"
	"retractor-go/internal/types"
)

// Analyzer 分词、分句与名词短语抽取
type Analyzer interface {
	Tokens(text string) []types.Token
	Sentences(text string) []string
	NounPhrases(tokens []types.Token) []string
}

// Components 解析器依赖的组件
type Components struct {
	Reader     reader.Reader
	NER        ner.Model
	Analyzer   Analyzer
	Vocabulary *extract.Vocabulary
}

// Settings 解析器设置
type Settings struct {
	Clock   func() time.Time
	Logger  zerolog.Logger
	Workers int
}

// ResumeParser 简历解析器，构造后只读，可并发调用
type ResumeParser struct {
	reader   reader.Reader
	ner      ner.Model
	analyzer Analyzer
	vocab    *extract.Vocabulary

	clock   func() time.Time
	logger  zerolog.Logger
	workers int
	tracer  trace.Tracer
}

// Result ParseAll 中单个输入的结果
type Result struct {
	Input  string
	Resume *types.ParsedResume
	Err    error
}

// NewResumeParser 使用明确分离的组件和设置创建解析器
// Reader、Analyzer 和非空词表为必需组件；NER 为空时不做实体识别
func NewResumeParser(comp *Components, set *Settings, opts ...SettingOpt) (*ResumeParser, error) {
	if comp == nil {
		return nil, fmt.Errorf("%w: components is nil", ErrMissingComponent)
	}
	if set == nil {
		set = &Settings{Logger: logger.Logger}
	}
	for _, opt := range opts {
		opt(set)
	}

	if comp.Vocabulary == nil || comp.Vocabulary.Len() == 0 {
		return nil, ErrVocabularyUnavailable
	}
	if comp.Reader == nil {
		return nil, fmt.Errorf("%w: reader", ErrMissingComponent)
	}
	if comp.Analyzer == nil {
		return nil, fmt.Errorf("%w: analyzer", ErrMissingComponent)
	}

	p := &ResumeParser{
		reader:   comp.Reader,
		ner:      comp.NER,
		analyzer: comp.Analyzer,
		vocab:    comp.Vocabulary,
		clock:    set.Clock,
		logger:   set.Logger,
		workers:  set.Workers,
		tracer:   otel.Tracer("retractor/parser"),
	}
	if p.ner == nil {
		p.ner = ner.NopModel{}
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}

	return p, nil
}

// CreateParser 用选项构建解析器，未提供的组件使用默认实现
// 默认: FileReader、prose 分析器、不做实体识别
func CreateParser(ctx context.Context, compOpts []ComponentOpt, setOpts []SettingOpt) (*ResumeParser, error) {
	comp := &Components{}
	for _, opt := range compOpts {
		opt(comp)
	}
	set := &Settings{Logger: logger.Logger}
	for _, opt := range setOpts {
		opt(set)
	}

	if comp.Reader == nil {
		r, err := reader.NewFileReader(ctx, reader.WithLogger(set.Logger))
		if err != nil {
			return nil, fmt.Errorf("create reader: %w", err)
		}
		comp.Reader = r
	}
	if comp.Analyzer == nil {
		comp.Analyzer = nlp.NewAnalyzer(nlp.WithAnalyzerLogger(set.Logger))
	}

	return NewResumeParser(comp, set)
}

// Parse 输入为已存在的普通文件时按文件解析，否则视为简历文本
func (p *ResumeParser) Parse(ctx context.Context, input string) (*types.ParsedResume, error) {
	if isRegularFile(input) {
		return p.ParseFile(ctx, input)
	}
	return p.ParseText(ctx, input)
}

// ParseText 解析简历文本
func (p *ResumeParser) ParseText(ctx context.Context, text string) (*types.ParsedResume, error) {
	return p.parse(ctx, types.RawDocument{Text: text}), nil
}

// ParseFile 读取并解析简历文件
func (p *ResumeParser) ParseFile(ctx context.Context, path string) (*types.ParsedResume, error) {
	ctx, span := p.tracer.Start(ctx, "parser.ReadDocument",
		trace.WithAttributes(attribute.String("document.path", tracing.TruncateString(path, tracing.DefaultMaxLength))))
	text, err := p.reader.Read(ctx, path)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRead)
		span.End()
		p.logger.Error().Err(err).Str("path", path).Msg("读取简历文件失败")
		return nil, NewReadError(path, err)
	}
	doc := types.RawDocument{
		Path:  path,
		Text:  text,
		Pages: p.reader.PageCount(path),
	}
	span.End()

	return p.parse(ctx, doc), nil
}

// ParseAll 并发解析多个输入，结果顺序与输入一致
// 单个输入失败记录在对应 Result.Err 中；只有 ctx 结束时返回错误
func (p *ResumeParser) ParseAll(ctx context.Context, inputs []string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = p.workers
	}
	results := make([]Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, input := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resume, err := p.Parse(gctx, input)
			results[i] = Result{Input: input, Resume: resume, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *ResumeParser) parse(ctx context.Context, doc types.RawDocument) *types.ParsedResume {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "parser.Parse",
		trace.WithAttributes(
			attribute.Bool("document.is_file", doc.Path != ""),
			attribute.Int("document.length", len(doc.Text)),
		))
	defer span.End()

	normalized := textnorm.Clean(doc.Text)
	collapsed := textnorm.Collapse(normalized)

	entities := p.inferEntities(ctx, normalized)
	tokens := p.analyzer.Tokens(collapsed)
	sentences := p.analyzer.Sentences(collapsed)
	phrases := p.analyzer.NounPhrases(tokens)
	sections := entity.GroupBySection(normalized)

	res := types.NewParsedResume()
	res.Email = extract.Email(collapsed)
	res.MobileNumber = extract.MobileNumber(collapsed)
	res.Skills = extract.SkillNames(extract.Skills(tokens, phrases, p.vocab))
	res.EducationLevel = extract.EducationLevel(sentences)

	// 模型识别的姓名优先于规则
	if name, ok := entities.First(types.LabelName); ok && textnorm.StripControl(name) != "" {
		name = textnorm.StripControl(name)
		res.Name = &name
	} else {
		res.Name = extract.Name(tokens)
	}

	res.Links = entities.Get(types.LabelLinks)
	res.SkillsEntities = entities.Get(types.LabelSkills)
	res.CollegeName = entities.Get(types.LabelCollegeName)
	res.Degree = entities.Get(types.LabelDegree)
	res.Designation = entities.Get(types.LabelDesignation)
	res.CompanyNames = entities.Get(types.LabelCompanies)

	if lines, ok := sections.Lines(types.SectionEducation); ok {
		res.Education = lines
	}
	if lines, ok := sections.Lines(types.SectionExperience); ok {
		res.Experience = lines
		res.TotalExperience = experience.Years(experience.TotalMonths(lines, p.clock()))
	}

	res.NoOfPages = doc.Pages

	span.SetAttributes(
		attribute.Int("resume.skills", len(res.Skills)),
		attribute.Float64("resume.total_experience", res.TotalExperience),
	)
	p.logger.Debug().
		Str("path", doc.Path).
		Int("entities", len(entities)).
		Int("skills", len(res.Skills)).
		Float64("total_experience", res.TotalExperience).
		Dur("elapsed", time.Since(start)).
		Msg("简历解析完成")

	return res
}

// inferEntities 实体识别失败时记录日志并返回空结果
func (p *ResumeParser) inferEntities(ctx context.Context, text string) types.EntityMap {
	if strings.TrimSpace(text) == "" {
		return types.EntityMap{}
	}
	spans, err := p.ner.Infer(ctx, text)
	if err != nil {
		trace.SpanFromContext(ctx).AddEvent("ner.failed", trace.WithAttributes(
			attribute.String("error.message", tracing.TruncateString(err.Error(), tracing.DefaultMaxLength)),
		))
		p.logger.Warn().Err(err).Msg("实体识别失败，跳过模型字段")
		return types.EntityMap{}
	}
	return entity.GroupEntities(text, spans)
}

func isRegularFile(input string) bool {
	if input == "" || strings.ContainsRune(input, '\n') {
		return false
	}
	info, err := os.Stat(input)
	return err == nil && info.Mode().IsRegular()
}
