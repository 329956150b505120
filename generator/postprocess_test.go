package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sCorpJSON = `{"templateName":"S-Corp","sections":[{"name":"Income","description":"W-2/1099 info","estimatedQuestions":3}]}`

func sectionNames(secs []Section) []string {
	out := make([]string, 0, len(secs))
	for _, s := range secs {
		out = append(out, s.Name)
	}
	return out
}

func sectionIDs(secs []Section) []int {
	out := make([]int, 0, len(secs))
	for _, s := range secs {
		out = append(out, s.ID)
	}
	return out
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":     `{"a":1}`,
		"```\n{\"a\":1}\n```":         `{"a":1}`,
		"  {\"a\":1}  ":               `{"a":1}`,
		"```JSON {\"a\":1}```":        `{"a":1}`,
		"```json\r\n{\"a\":1}\r\n```": `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripCodeFence(in), "input %q", in)
	}
}

func TestParseStructuredTemplate(t *testing.T) {
	name, secs, err := ParseStructuredTemplate(sCorpJSON)
	require.NoError(t, err)
	assert.Equal(t, "S-Corp", name)
	require.Len(t, secs, 1)
	assert.Equal(t, "Income", secs[0].Name)
	assert.Equal(t, "W-2/1099 info", secs[0].Description)
	assert.Equal(t, 3, secs[0].QuestionCount)
	assert.Empty(t, secs[0].Questions)
	assert.NotNil(t, secs[0].Questions)
}

func TestParseStructuredTemplate_Lenient(t *testing.T) {
	_, secs, err := ParseStructuredTemplate(`{"sections":[{"name":"A","estimatedQuestions":"4"},{"name":"  "},{"name":"B"},{"name":"C","estimatedQuestions":-2}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, sectionNames(secs))
	assert.Equal(t, 4, secs[0].QuestionCount)
	assert.Equal(t, 0, secs[1].QuestionCount)
	assert.Equal(t, 0, secs[2].QuestionCount)
}

func TestParseStructuredTemplate_Malformed(t *testing.T) {
	for _, in := range []string{
		"Here is your template: Income, Deductions",
		`{"templateName":"x"}`,
		`{"sections":"Income"}`,
		`[{"name":"Income"}]`,
		``,
	} {
		_, _, err := ParseStructuredTemplate(in)
		var malformed *MalformedResponseError
		assert.ErrorAs(t, err, &malformed, "input %q", in)
	}
}

func TestExtractFallbackSections(t *testing.T) {
	research := "Here is what you need:\n\n1. Income Sources: W-2s and 1099s\n2. Deductions:\nSome trailing text\n3. **Estimated Payments**: quarterly"
	secs := ExtractFallbackSections(research)
	assert.Equal(t, []string{"Income Sources", "Deductions", "Estimated Payments"}, sectionNames(secs))
	for _, s := range secs {
		assert.Equal(t, "Information collection", s.Description)
		assert.Equal(t, 2, s.QuestionCount)
	}
}

func TestExtractFallbackSections_None(t *testing.T) {
	assert.Empty(t, ExtractFallbackSections("Basic Information: personal details\nIncome: W-2s"))
}

func TestExtractQuestions(t *testing.T) {
	got := ExtractQuestions("1. What is your filing status?\n2. Do you have dependents?")
	assert.Equal(t, []string{"What is your filing status?", "Do you have dependents?"}, got)
}

func TestExtractQuestions_MixedText(t *testing.T) {
	got := ExtractQuestions("Here are suggested questions:\n\n 1. First?\r\n2.   Second?  \n- not numbered\n10. Tenth?")
	assert.Equal(t, []string{"First?", "Second?", "Tenth?"}, got)
}

func TestExtractQuestions_NoneIsEmpty(t *testing.T) {
	got := ExtractQuestions("No numbered lines here.\nJust prose.")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWithBookends(t *testing.T) {
	in := []Section{{ID: 7, Name: "Income"}, {ID: 3, Name: "Deductions"}}
	out := WithBookends(in)

	assert.Equal(t, []string{"Introduction", "Income", "Deductions", "Review & Submit"}, sectionNames(out))
	assert.Equal(t, []int{1, 2, 3, 4}, sectionIDs(out))
	assert.Equal(t, 7, in[0].ID, "input must not be mutated")
}

func TestWithBookends_Empty(t *testing.T) {
	out := WithBookends(nil)
	assert.Equal(t, []string{"Introduction", "Review & Submit"}, sectionNames(out))
	assert.Equal(t, []int{1, 2}, sectionIDs(out))
}

func TestRenumber_Idempotent(t *testing.T) {
	secs := []Section{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}
	once := Renumber(secs)
	assert.Equal(t, secs, once)
	assert.Equal(t, once, Renumber(once))
}

func TestRenumber_AfterDelete(t *testing.T) {
	secs := []Section{{ID: 1, Name: "a"}, {ID: 3, Name: "c"}, {ID: 9, Name: "z"}}
	assert.Equal(t, []int{1, 2, 3}, sectionIDs(Renumber(secs)))
}

func TestNormalize(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		tmpl, fallback := Normalize("S-Corporation", "", sCorpJSON)
		assert.False(t, fallback)
		assert.Equal(t, "S-Corp", tmpl.Name)
		require.Len(t, tmpl.Sections, 3)
		assert.Equal(t, Section{ID: 1, Name: "Introduction", Description: "Welcome message and instructions", Questions: []string{}}, tmpl.Sections[0])
		assert.Equal(t, 2, tmpl.Sections[1].ID)
		assert.Equal(t, "Income", tmpl.Sections[1].Name)
		assert.Equal(t, 3, tmpl.Sections[1].QuestionCount)
		assert.Equal(t, 3, tmpl.Sections[2].ID)
		assert.Equal(t, "Review & Submit", tmpl.Sections[2].Name)
	})

	t.Run("fenced equals unfenced", func(t *testing.T) {
		plain, _ := Normalize("S-Corporation", "", sCorpJSON)
		fenced, fallback := Normalize("S-Corporation", "", "```json\n"+sCorpJSON+"\n```")
		assert.False(t, fallback)
		assert.Equal(t, plain, fenced)
	})

	t.Run("fallback", func(t *testing.T) {
		research := "1. Income Sources: wages\n2. Deductions: itemized"
		tmpl, fallback := Normalize("1040 Individual", research, "not json at all")
		assert.True(t, fallback)
		assert.Equal(t, "1040 Individual", tmpl.Name)
		assert.Equal(t, []string{"Introduction", "Income Sources", "Deductions", "Review & Submit"}, sectionNames(tmpl.Sections))
		assert.Equal(t, []int{1, 2, 3, 4}, sectionIDs(tmpl.Sections))
		assert.Equal(t, 2, tmpl.Sections[1].QuestionCount)
		assert.Equal(t, "Information collection", tmpl.Sections[2].Description)
	})

	t.Run("missing template name uses filing type", func(t *testing.T) {
		tmpl, _ := Normalize("Form 990", "", `{"sections":[]}`)
		assert.Equal(t, "Form 990", tmpl.Name)
		assert.Len(t, tmpl.Sections, 2)
	})
}
