package generator

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	fallbackDescription = "Information collection"
	// fallbackQuestionCount is a guessed placeholder carried over for compatibility.
	fallbackQuestionCount = 2
)

var (
	fenceRe         = regexp.MustCompile("```(?:json|JSON)?[ \t]*\r?\n?")
	sectionTitleRe  = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]*(.+?):`)
	numberedLineRe  = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+(.+?)[ \t]*\r?$`)
	introSection    = Section{Name: "Introduction", Description: "Welcome message and instructions"}
	reviewSection   = Section{Name: "Review & Submit", Description: "Final review and submission"}
	errNotJSON      = errors.New("not valid json")
	errNoSectionArr = errors.New("sections is not an array")
)

// StripCodeFence 去掉模型输出中包裹 JSON 的 markdown 代码块。
func StripCodeFence(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// ParseStructuredTemplate parses {templateName, sections:[{name, description, estimatedQuestions}]}.
// Sections come back with empty ids and no questions; bookends are not added here.
func ParseStructuredTemplate(text string) (string, []Section, error) {
	raw := StripCodeFence(text)
	if !gjson.Valid(raw) {
		return "", nil, &MalformedResponseError{Raw: text, Cause: errNotJSON}
	}
	root := gjson.Parse(raw)
	secs := root.Get("sections")
	if !root.IsObject() || !secs.IsArray() {
		return "", nil, &MalformedResponseError{Raw: text, Cause: errNoSectionArr}
	}

	out := make([]Section, 0, len(secs.Array()))
	for _, s := range secs.Array() {
		name := strings.TrimSpace(s.Get("name").String())
		if name == "" {
			continue
		}
		count := int(s.Get("estimatedQuestions").Int())
		if count < 0 {
			count = 0
		}
		out = append(out, Section{
			Name:          name,
			Description:   strings.TrimSpace(s.Get("description").String()),
			QuestionCount: count,
			Questions:     []string{},
		})
	}
	return strings.TrimSpace(root.Get("templateName").String()), out, nil
}

// ExtractFallbackSections scans research text for "<n>. <Title>:" lines.
func ExtractFallbackSections(research string) []Section {
	matches := sectionTitleRe.FindAllStringSubmatch(research, -1)
	out := make([]Section, 0, len(matches))
	for _, m := range matches {
		name := cleanTitle(m[1])
		if name == "" {
			continue
		}
		out = append(out, Section{
			Name:          name,
			Description:   fallbackDescription,
			QuestionCount: fallbackQuestionCount,
			Questions:     []string{},
		})
	}
	return out
}

// research 文本常带 **粗体** 标记。
func cleanTitle(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_`"))
}

// ExtractQuestions returns the numbered lines of text with their prefix stripped.
// No numbered lines yields an empty slice.
func ExtractQuestions(text string) []string {
	matches := numberedLineRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if q := strings.TrimSpace(m[1]); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// WithBookends returns a new slice with Introduction first and Review & Submit last, renumbered.
func WithBookends(sections []Section) []Section {
	out := make([]Section, 0, len(sections)+2)
	out = append(out, bookend(introSection))
	for _, s := range sections {
		out = append(out, cloneSection(s))
	}
	out = append(out, bookend(reviewSection))
	return Renumber(out)
}

// Renumber returns a copy with ids 1..N in slice order.
func Renumber(sections []Section) []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		c := cloneSection(s)
		c.ID = i + 1
		out[i] = c
	}
	return out
}

func bookend(s Section) Section {
	s.Questions = []string{}
	return s
}

func cloneSection(s Section) Section {
	if s.Questions != nil {
		s.Questions = append([]string{}, s.Questions...)
	}
	return s
}
