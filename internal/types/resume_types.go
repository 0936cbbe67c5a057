package types

// 实体标签，由NER模型训练时确定
const (
	LabelName        = "Name"
	LabelSkills      = "Skills"
	LabelDegree      = "Degree"
	LabelDesignation = "Designation"
	LabelCompanies   = "Companies worked at"
	LabelCollegeName = "College Name"
	LabelLinks       = "Links"
)

// 章节关键字
const (
	SectionEducation  = "education"
	SectionExperience = "experience"
)

// RawDocument 读取后的原始文档，读取完成后不再修改
type RawDocument struct {
	Path  string // 文件路径，字面文本输入时为空
	Text  string // 提取出的原始文本
	Pages *int   // 页数，无法统计时为nil
}

// AnnotatedSpan NER模型输出的实体片段
// Start/End 为字符(rune)偏移量，左闭右开
type AnnotatedSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Text  string `json:"text,omitempty"` // 可选，为空时按偏移量从原文截取
}

// EntityMap 标签 -> 去重后的实体文本，保留首次出现的顺序
type EntityMap map[string][]string

// Get 返回标签对应的实体，不存在时返回nil
func (m EntityMap) Get(label string) []string {
	if m == nil {
		return nil
	}
	values, ok := m[label]
	if !ok {
		return nil
	}
	return values
}

// First 返回标签下的第一个实体
func (m EntityMap) First(label string) (string, bool) {
	values := m.Get(label)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// SectionMap 章节关键字 -> 按顺序排列的章节行
type SectionMap map[string][]string

// Lines 返回章节内容，章节不存在时ok为false
func (m SectionMap) Lines(section string) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	lines, ok := m[section]
	return lines, ok
}

// SkillRecord 技能及其出现次数
type SkillRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Token 分词结果
type Token struct {
	Text    string `json:"text"`
	Lower   string `json:"lower"`
	Tag     string `json:"tag,omitempty"` // 词性标注 (Penn Treebank)
	IsStop  bool   `json:"is_stop"`
	IsPunct bool   `json:"is_punct"`
}

// ParsedResume 简历解析结果
// 所有字段均为显式可选值，序列化时不省略，缺失即为null
type ParsedResume struct {
	Name            *string  `json:"name"`
	Email           *string  `json:"email"`
	MobileNumber    *string  `json:"mobile_number"`
	Skills          []string `json:"skills"`
	SkillsEntities  []string `json:"skills_entities"`
	EducationLevel  []string `json:"education_level"`
	Education       []string `json:"education"`
	CollegeName     []string `json:"college_name"`
	Degree          []string `json:"degree"`
	Designation     []string `json:"designation"`
	Experience      []string `json:"experience"`
	CompanyNames    []string `json:"company_names"`
	TotalExperience float64  `json:"total_experience"` // 年，保留两位小数
	NoOfPages       *int     `json:"no_of_pages"`
	Links           []string `json:"links"`
}

// NewParsedResume 返回字段全部为空的结果
// skills 与 education_level 默认为空列表而不是null
func NewParsedResume() *ParsedResume {
	return &ParsedResume{
		Skills:         []string{},
		EducationLevel: []string{},
	}
}
