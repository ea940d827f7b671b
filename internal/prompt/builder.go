package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Phrasing is the wording used for one style: an instruction placed before the
// text and a label placed after it, where the model starts its answer.
type Phrasing struct {
	Instruction string `yaml:"instruction"`
	Label       string `yaml:"label"`
}

// Catalog is the on-disk form of a prompt set. Locale names the built-in
// catalog it extends; empty fields inherit from it.
type Catalog struct {
	Locale         string              `yaml:"locale"`
	ReducePreamble string              `yaml:"reduce_preamble"`
	Styles         map[string]Phrasing `yaml:"styles"`
}

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en"

var builtin = map[string]Catalog{
	"en": {
		ReducePreamble: "The following are summaries of consecutive parts of one text, in order. Merge them into a single coherent final summary:",
		Styles: map[string]Phrasing{
			"general": {
				Instruction: "Summarize the following text. Extract the main points and key information and present them clearly and concisely:",
				Label:       "Summary:",
			},
			"bullet_points": {
				Instruction: "Summarize the following text as a short list of key bullet points:",
				Label:       "Bullet points:",
			},
			"default": {
				Instruction: "Write a summary of the following text:",
				Label:       "Summary:",
			},
		},
	},
	"zh": {
		ReducePreamble: "以下是多个文本片段的总结，请将它们整合成一个连贯的最终总结：",
		Styles: map[string]Phrasing{
			"general": {
				Instruction: "请总结以下文本，提取主要观点和关键信息，并以清晰简洁的方式呈现：",
				Label:       "总结：",
			},
			"bullet_points": {
				Instruction: "请将以下文本总结为几个关键的要点（bullet points）：",
				Label:       "要点：",
			},
			"default": {
				Instruction: "请根据以下文本生成一个摘要：",
				Label:       "摘要：",
			},
		},
	},
}

// Locales returns the names of the built-in catalogs.
func Locales() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder renders prompts. It is immutable and safe for concurrent use.
type Builder struct {
	locale         string
	reducePreamble string
	phrasings      map[Style]Phrasing
}

// New returns a builder for a built-in locale.
func New(locale string) (*Builder, error) {
	return FromCatalog(Catalog{Locale: locale})
}

// Load reads a YAML catalog from path and layers it over its base locale.
func Load(path string) (*Builder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse prompt catalog %s: %w", path, err)
	}
	return FromCatalog(c)
}

// FromCatalog builds a Builder from c, filling gaps from c.Locale's built-in catalog.
func FromCatalog(c Catalog) (*Builder, error) {
	locale := strings.ToLower(strings.TrimSpace(c.Locale))
	if locale == "" {
		locale = DefaultLocale
	}
	base, ok := builtin[locale]
	if !ok {
		return nil, fmt.Errorf("unknown prompt locale: %s (have %s)", locale, strings.Join(Locales(), ", "))
	}

	b := &Builder{
		locale:         locale,
		reducePreamble: base.ReducePreamble,
		phrasings:      make(map[Style]Phrasing, len(Styles)),
	}
	if p := strings.TrimSpace(c.ReducePreamble); p != "" {
		b.reducePreamble = p
	}
	for _, s := range Styles {
		b.phrasings[s] = base.Styles[s.String()]
	}
	for name, p := range c.Styles {
		s, ok := lookupStyle(name)
		if !ok {
			return nil, fmt.Errorf("unknown style in prompt catalog: %s", name)
		}
		merged := b.phrasings[s]
		if v := strings.TrimSpace(p.Instruction); v != "" {
			merged.Instruction = v
		}
		if v := strings.TrimSpace(p.Label); v != "" {
			merged.Label = v
		}
		b.phrasings[s] = merged
	}
	return b, nil
}

// Locale reports the base locale of the builder.
func (b *Builder) Locale() string {
	return b.locale
}

// Build renders the prompt for text. In ModeReduce, text is the ordinal join of
// partial summaries and is introduced by the catalog's reduce preamble before
// being phrased like any other text of that style.
func (b *Builder) Build(text string, style Style, mode Mode) string {
	if mode == ModeReduce {
		text = b.reducePreamble + "\n\n" + text
	}
	p, ok := b.phrasings[style]
	if !ok {
		p = b.phrasings[StyleDefault]
	}

	var sb strings.Builder
	sb.WriteString(p.Instruction)
	sb.WriteString("\n\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(p.Label)
	return sb.String()
}
