package generator

// Section is a named, ordered group of questions within a questionnaire template.
type Section struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	QuestionCount int      `json:"questionCount"`
	Questions     []string `json:"questions"`
}

// Template 是一次生成得到的问卷模板，首尾固定为 Introduction / Review & Submit。
type Template struct {
	Name     string    `json:"templateName"`
	Sections []Section `json:"sections"`
}

// GenerationRequest seeds template generation with a filing type.
type GenerationRequest struct {
	TemplateType string `json:"templateType"`
	Description  string `json:"description,omitempty"`
}

// GenerationResult is returned to the caller after one pipeline run.
type GenerationResult struct {
	Template     Template `json:"template"`
	ResearchText string   `json:"research"`
	Citations    []string `json:"citations"`
	// Fallback is set when the structuring output could not be parsed.
	Fallback bool `json:"-"`
}

// AssistRequest asks for help on one section, or a free-form question about the template.
type AssistRequest struct {
	ActionType  ActionType `json:"actionType,omitempty"`
	SectionName string     `json:"sectionName,omitempty"`
	SectionID   int        `json:"sectionId,omitempty"`
	UserInput   string     `json:"userInput,omitempty"`
}

// AssistResult carries the advisory text and, for add-questions, the extracted questions.
type AssistResult struct {
	Response    string     `json:"response"`
	ActionType  ActionType `json:"actionType,omitempty"`
	SectionName string     `json:"sectionName,omitempty"`
	Questions   []string   `json:"questions"`
	Citations   []string   `json:"citations"`
	Model       string     `json:"model_used"`
}

// FollowUpRequest continues a previous assistant answer.
type FollowUpRequest struct {
	PreviousResponse string `json:"previousResponse,omitempty"`
	FollowUpQuestion string `json:"followUpQuestion"`
	Context          string `json:"context,omitempty"`
}

// Answer is a plain advisory answer with its sources.
type Answer struct {
	Text      string   `json:"answer"`
	Citations []string `json:"citations"`
}
