package generator

import (
	"context"
	"errors"
	"strings"

	"questionnaire_template_editor/logger"
)

// Agent 负责模板生成与分区级 AI 辅助。它不持有跨调用状态，可被并发使用。
type Agent struct {
	llm LLMClient
	log *logger.Logger
}

func NewAgent(llm LLMClient, log *logger.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Agent{llm: llm, log: log}, nil
}

// GenerateTemplate researches the filing type, asks for a JSON section list and normalizes it.
func (a *Agent) GenerateTemplate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	req.TemplateType = strings.TrimSpace(req.TemplateType)
	if req.TemplateType == "" {
		return GenerationResult{}, newValidationError("templateType", "template type is required")
	}
	return newRun(req, a.llm, a.log).execute(ctx)
}

// Assist runs one section-scoped action or a free-form question.
func (a *Agent) Assist(ctx context.Context, req AssistRequest) (AssistResult, error) {
	action, err := ResolveAction(req.ActionType, req.UserInput)
	if err != nil {
		return AssistResult{}, err
	}
	prompt, err := BuildActionPrompt(action, req.SectionName, req.UserInput)
	if err != nil {
		return AssistResult{}, err
	}

	a.log.Debug("ai assist", "action", string(action), "section", req.SectionName, "section_id", req.SectionID, "model", prompt.Model)
	c, err := a.llm.Complete(ctx, prompt.Request())
	if err != nil {
		a.log.Error("ai assist failed", "action", string(action), "error", err)
		return AssistResult{}, err
	}

	questions := []string{}
	if action == ActionAddQuestions {
		questions = ExtractQuestions(c.Content)
	}
	return AssistResult{
		Response:    c.Content,
		ActionType:  req.ActionType,
		SectionName: req.SectionName,
		Questions:   questions,
		Citations:   nonNil(c.Citations),
		Model:       prompt.Model,
	}, nil
}

// FollowUp continues a previous assistant answer.
func (a *Agent) FollowUp(ctx context.Context, req FollowUpRequest) (Answer, error) {
	if strings.TrimSpace(req.FollowUpQuestion) == "" {
		return Answer{}, newValidationError("followUpQuestion", "follow-up question is required")
	}
	c, err := a.llm.Complete(ctx, BuildFollowUpPrompt(req).Request())
	if err != nil {
		a.log.Error("ai follow-up failed", "error", err)
		return Answer{}, err
	}
	return Answer{Text: c.Content, Citations: nonNil(c.Citations)}, nil
}

// Search answers a short research query.
func (a *Agent) Search(ctx context.Context, query string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, newValidationError("query", "query is required")
	}
	c, err := a.llm.Complete(ctx, BuildSearchPrompt(query).Request())
	if err != nil {
		a.log.Error("ai search failed", "error", err)
		return Answer{}, err
	}
	return Answer{Text: c.Content, Citations: nonNil(c.Citations)}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
