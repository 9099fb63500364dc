package locales

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/language"
)

//go:embed locales.json
var defaultData []byte

// Fallback 是找不到翻译时使用的语言
const Fallback = "en"

type table struct {
	Messages map[string]string `json:"messages"`
	Regions  map[string]string `json:"regions"`
}

// Bundle 保存所有语言的字符串表，加载后只读
type Bundle struct {
	tables  map[string]table
	langs   []string
	matcher language.Matcher
}

// Load 解析 JSON 格式的字符串表，必须包含 Fallback 语言
func Load(data []byte) (*Bundle, error) {
	var tables map[string]table
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("解析语言文件 JSON 失败: %w", err)
	}
	if _, ok := tables[Fallback]; !ok {
		return nil, fmt.Errorf("语言文件缺少默认语言 %q", Fallback)
	}

	// 默认语言放在第一位，匹配失败时 matcher 会返回它
	langs := []string{Fallback}
	var others []string
	for lang := range tables {
		if lang != Fallback {
			others = append(others, lang)
		}
	}
	sort.Strings(others)
	langs = append(langs, others...)

	tags := make([]language.Tag, 0, len(langs))
	for _, lang := range langs {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("无效的语言代码 %q: %w", lang, err)
		}
		tags = append(tags, tag)
	}
	return &Bundle{tables: tables, langs: langs, matcher: language.NewMatcher(tags)}, nil
}

// LoadFromFile 从指定的 JSON 文件加载字符串表
func LoadFromFile(filePath string) (*Bundle, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取语言文件 '%s': %w", filePath, err)
	}
	return Load(data)
}

// Default 返回内置的字符串表
func Default() *Bundle {
	b, err := Load(defaultData)
	if err != nil {
		panic(err)
	}
	return b
}

// Languages 返回支持的语言，默认语言在前
func (b *Bundle) Languages() []string {
	return append([]string(nil), b.langs...)
}

// Match 把任意语言标签（如 zh-TW、ja_JP）匹配到支持的语言
func (b *Bundle) Match(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return Fallback
	}
	// 先按基础语言匹配，zh-TW 和 zh-CN 都使用 zh
	if base, conf := tag.Base(); conf != language.No {
		if _, ok := b.tables[base.String()]; ok {
			return base.String()
		}
	}
	_, index, confidence := b.matcher.Match(tag)
	if confidence == language.No {
		return Fallback
	}
	return b.langs[index]
}

// For 返回指定语言的 Localizer
func (b *Bundle) For(lang string) Localizer {
	return Localizer{bundle: b, lang: b.Match(lang)}
}

// Localizer 查找某一种语言的字符串
type Localizer struct {
	bundle *Bundle
	lang   string
}

// Lang 返回匹配后的语言代码
func (l Localizer) Lang() string { return l.lang }

// T 返回 key 对应的文本，依次回退到默认语言和 key 本身。
// 提供 args 时按 fmt 格式化。
func (l Localizer) T(key string, args ...interface{}) string {
	text, ok := l.bundle.tables[l.lang].Messages[key]
	if !ok {
		text, ok = l.bundle.tables[Fallback].Messages[key]
	}
	if !ok {
		text = key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// Region 返回区域标签的显示名称，未知的标签原样返回
func (l Localizer) Region(region string) string {
	if name, ok := l.bundle.tables[l.lang].Regions[region]; ok {
		return name
	}
	if name, ok := l.bundle.tables[Fallback].Regions[region]; ok {
		return name
	}
	return region
}
