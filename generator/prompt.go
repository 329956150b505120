package generator

import (
	"fmt"
	"strings"
)

const (
	DefaultModel  = "sonar"
	ResearchModel = "sonar-pro"
)

// ActionType selects a section-scoped assistant action.
type ActionType string

const (
	ActionAddQuestions ActionType = "add-questions"
	ActionImprove      ActionType = "improve"
	ActionSuggest      ActionType = "suggest"
	ActionTaxLawCheck  ActionType = "tax-law-check"
	// ActionFreeForm is selected when no known action is given but the user typed a question.
	ActionFreeForm ActionType = "free-form"
)

// authoritative tax-reference sources used as the web search allow-list
var taxDomains = []string{
	"irs.gov",
	"aicpa.org",
	"tax.thomsonreuters.com",
	"taxnotes.com",
}

// TaxDomains returns a copy of the search allow-list.
func TaxDomains() []string {
	return append([]string(nil), taxDomains...)
}

// Prompt 表示发送给 LLM 的一次调用（消息 + 参数）。
type Prompt struct {
	System      string
	User        string
	History     []Message
	Model       string
	MaxTokens   int
	Temperature float64
	Search      *SearchOptions
}

// Request turns the prompt into a chat-completion request: system, history, then user.
func (p Prompt) Request() CompletionRequest {
	msgs := make([]Message, 0, len(p.History)+2)
	msgs = append(msgs, Message{Role: "system", Content: p.System})
	for _, h := range p.History {
		role := h.Role
		if role == "" {
			role = "user"
		}
		msgs = append(msgs, Message{Role: role, Content: h.Content})
	}
	msgs = append(msgs, Message{Role: "user", Content: p.User})

	var search *SearchOptions
	if p.Search != nil {
		search = &SearchOptions{
			DomainFilter: append([]string(nil), p.Search.DomainFilter...),
			Recency:      p.Search.Recency,
		}
	}
	return CompletionRequest{
		Model:       p.Model,
		Messages:    msgs,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Search:      search,
	}
}

type actionDef struct {
	system    string
	user      func(sectionName, userInput string) string
	maxTokens int
	recency   Recency
	model     string
}

var actionTable = map[ActionType]actionDef{
	ActionAddQuestions: {
		system: "You are a tax questionnaire expert. Generate practical, specific questions. Be concise - list 5-7 questions only, no explanations.",
		user: func(section, _ string) string {
			return fmt.Sprintf(`Generate 5-7 essential questions for a tax questionnaire section: %q. Focus on:
1. Required documentation
2. Key tax-relevant details
3. Deadlines and amounts

Format: Return only a numbered list of questions, nothing else.`, section)
		},
		maxTokens: 400,
		recency:   RecencyYear,
		model:     DefaultModel,
	},
	ActionImprove: {
		system: "You are a UX expert for tax forms. Provide 3-5 specific, actionable improvements. Be direct and concise.",
		user: func(section, _ string) string {
			return fmt.Sprintf(`Suggest 3-5 concrete improvements for the %q tax questionnaire section. Focus on:
- Clarity of questions
- User experience
- Missing critical information
- Best practices

Format: Numbered list with brief explanations (1-2 sentences each).`, section)
		},
		maxTokens: 500,
		recency:   RecencyYear,
		model:     DefaultModel,
	},
	ActionSuggest: {
		system: "You are a tax technology consultant. Provide 3-5 specific optimization recommendations. Be actionable and concise.",
		user: func(section, _ string) string {
			return fmt.Sprintf(`Provide 3-5 optimization recommendations for %q questionnaire section:
- Conditional logic opportunities
- Validation rules needed
- User flow improvements
- Modern UX patterns

Format: Numbered list with brief explanations.`, section)
		},
		maxTokens: 500,
		recency:   RecencyYear,
		model:     DefaultModel,
	},
	ActionTaxLawCheck: {
		system: "You are a tax law compliance advisor. Check for recent tax law changes and provide specific updates. Be factual and cite sources.",
		user: func(section, _ string) string {
			return fmt.Sprintf(`Check for recent tax law changes (last 12 months) affecting %q.
1. Identify any relevant changes
2. Explain impact on this section
3. Suggest specific template updates needed

Be specific and cite sources.`, section)
		},
		maxTokens: 700,
		recency:   RecencyMonth,
		model:     ResearchModel,
	},
	ActionFreeForm: {
		system: "You are a helpful tax questionnaire design assistant. Provide specific, actionable advice. Keep responses under 200 words.",
		user: func(section, input string) string {
			var sb strings.Builder
			sb.WriteString("Context: User is designing a tax questionnaire template.\n")
			if section != "" {
				sb.WriteString(fmt.Sprintf("Current section: %s\n", section))
			}
			sb.WriteString(fmt.Sprintf("Question: %s\n\n", input))
			sb.WriteString("Provide a concise, practical answer with specific examples if relevant.")
			return sb.String()
		},
		maxTokens: 400,
		recency:   RecencyYear,
		model:     DefaultModel,
	},
}

// KnownAction reports whether a is a section-scoped action with its own prompt.
func KnownAction(a ActionType) bool {
	if a == ActionFreeForm {
		return false
	}
	_, ok := actionTable[a]
	return ok
}

// ResolveAction picks the action that will run: a known action wins, otherwise free-form
// when the user typed something.
func ResolveAction(action ActionType, userInput string) (ActionType, error) {
	if KnownAction(action) {
		return action, nil
	}
	if strings.TrimSpace(userInput) != "" {
		return ActionFreeForm, nil
	}
	if action == "" {
		return "", newValidationError("actionType", "either userInput or actionType is required")
	}
	return "", newValidationError("actionType", fmt.Sprintf("unsupported action %q", action))
}

// BuildActionPrompt 根据动作类型生成提示词，纯函数。
func BuildActionPrompt(action ActionType, sectionName, userInput string) (Prompt, error) {
	resolved, err := ResolveAction(action, userInput)
	if err != nil {
		return Prompt{}, err
	}
	def := actionTable[resolved]
	return Prompt{
		System:      def.system,
		User:        def.user(sectionName, strings.TrimSpace(userInput)),
		Model:       def.model,
		MaxTokens:   def.maxTokens,
		Temperature: 0.2,
		Search:      &SearchOptions{DomainFilter: TaxDomains(), Recency: def.recency},
	}, nil
}

// BuildResearchPrompt asks for the major information-collection sections of a filing type.
func BuildResearchPrompt(req GenerationRequest) Prompt {
	filing := fmt.Sprintf("%q tax filing", req.TemplateType)
	if d := strings.TrimSpace(req.Description); d != "" {
		filing += fmt.Sprintf(" (%s)", d)
	}
	user := fmt.Sprintf(`For a %s, identify:
1. What are the main information sections needed from the client?
2. What documents are typically required?
3. What are the key data points to collect?
4. What is the typical workflow order?

Provide a structured list of 6-10 major sections that would be needed in a questionnaire, in logical order.
For each section, briefly explain what information should be collected.

Format your response as:
Section Name: Brief description of what to collect

Example format:
Basic Information: Client's personal details, SSN, contact information
Income Sources: W-2s, 1099s, business income details
...`, filing)

	return Prompt{
		System:      "You are a tax preparation expert. Research and identify the key information sections needed for specific tax filing types. Be comprehensive but organized.",
		User:        user,
		Model:       ResearchModel,
		MaxTokens:   1000,
		Temperature: 0.3,
		Search:      &SearchOptions{DomainFilter: TaxDomains(), Recency: RecencyYear},
	}
}

// BuildStructuringPrompt feeds the research text back and asks for JSON only.
func BuildStructuringPrompt(templateType, research string) Prompt {
	user := fmt.Sprintf(`Based on this research about %s:

%s

Create a JSON structure with these fields:
{
  "templateName": "descriptive name for this template",
  "sections": [
    {
      "name": "section name",
      "description": "brief description of what this section collects",
      "estimatedQuestions": number (estimate 1-5)
    }
  ]
}

Return ONLY valid JSON, no markdown formatting, no code fences, no explanations.`, templateType, research)

	return Prompt{
		System:      "You are a data structuring assistant. Convert text into JSON format exactly as specified.",
		User:        user,
		Model:       DefaultModel,
		MaxTokens:   800,
		Temperature: 0.1,
	}
}

// BuildFollowUpPrompt 基于上一轮回答继续追问。
func BuildFollowUpPrompt(req FollowUpRequest) Prompt {
	prev := strings.TrimSpace(req.PreviousResponse)
	if prev == "" {
		prev = "Previous context not available."
	}
	ctxText := strings.TrimSpace(req.Context)
	if ctxText == "" {
		ctxText = "Tax questionnaire template design"
	}
	return Prompt{
		System:      "You are a tax questionnaire expert. Provide concise, specific answers building on previous context.",
		History:     []Message{{Role: "assistant", Content: prev}},
		User:        fmt.Sprintf("Context: %s\n\nFollow-up: %s", ctxText, strings.TrimSpace(req.FollowUpQuestion)),
		Model:       DefaultModel,
		MaxTokens:   400,
		Temperature: 0.2,
		Search:      &SearchOptions{DomainFilter: TaxDomains(), Recency: RecencyYear},
	}
}

// BuildSearchPrompt is a short research question without search constraints.
func BuildSearchPrompt(query string) Prompt {
	return Prompt{
		System:      "You are a concise research assistant. Provide brief, accurate answers with key facts.",
		User:        strings.TrimSpace(query),
		Model:       DefaultModel,
		MaxTokens:   300,
		Temperature: 0.1,
	}
}
