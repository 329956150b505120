package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, req CompletionRequest) (Completion, error) {
	var system, user string
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			system = msg.Content
		case "user":
			user = msg.Content
		}
	}

	var sb strings.Builder
	switch {
	case strings.Contains(system, "data structuring"):
		sb.WriteString(`{"templateName":"Sample Template","sections":[`)
		sb.WriteString(`{"name":"Basic Information","description":"Client personal details and contact information","estimatedQuestions":3},`)
		sb.WriteString(`{"name":"Income Sources","description":"W-2s, 1099s, business income details","estimatedQuestions":4},`)
		sb.WriteString(`{"name":"Deductions","description":"Itemized and standard deduction details","estimatedQuestions":3}`)
		sb.WriteString(`]}`)
	case strings.Contains(system, "tax preparation expert"):
		sb.WriteString("1. Basic Information: Client personal details, SSN, contact information\n")
		sb.WriteString("2. Income Sources: W-2s, 1099s, business income details\n")
		sb.WriteString("3. Deductions: Itemized and standard deduction details\n")
	case strings.Contains(system, "questionnaire expert") && strings.Contains(user, "numbered list"):
		sb.WriteString("1. Do you have all required supporting documents?\n")
		sb.WriteString("2. What are the key amounts for this section?\n")
		sb.WriteString("3. Are there any deadlines we should be aware of?\n")
	default:
		sb.WriteString(fmt.Sprintf("Offline response (%s):\n\n", req.Model))
		sb.WriteString(user)
	}
	return Completion{Content: sb.String(), Citations: []string{}}, nil
}
