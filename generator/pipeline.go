package generator

import (
	"context"
	"errors"
	"strings"
	"time"

	"questionnaire_template_editor/logger"
)

// State is a step of one template generation run.
type State string

const (
	StateIdle        State = "idle"
	StateResearching State = "researching"
	StateStructuring State = "structuring"
	StateNormalizing State = "normalizing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// run 持有一次模板生成的上下文，调用结束即丢弃。
type run struct {
	req     GenerationRequest
	llm     LLMClient
	log     *logger.Logger
	state   State
	started time.Time
}

func newRun(req GenerationRequest, llm LLMClient, log *logger.Logger) *run {
	return &run{
		req:     req,
		llm:     llm,
		log:     log.With("template_type", req.TemplateType),
		state:   StateIdle,
		started: time.Now(),
	}
}

func (r *run) transition(next State) {
	r.log.Debug("template generation", "from", string(r.state), "to", string(next))
	r.state = next
}

func (r *run) fail(err error) error {
	r.log.Error("template generation failed", "state", string(r.state), "error", err)
	r.transition(StateFailed)
	return err
}

func (r *run) execute(ctx context.Context) (GenerationResult, error) {
	r.transition(StateResearching)
	research, err := r.llm.Complete(ctx, BuildResearchPrompt(r.req).Request())
	if err != nil {
		return GenerationResult{}, r.fail(err)
	}

	r.transition(StateStructuring)
	structured, err := r.llm.Complete(ctx, BuildStructuringPrompt(r.req.TemplateType, research.Content).Request())
	if err != nil {
		return GenerationResult{}, r.fail(err)
	}

	r.transition(StateNormalizing)
	tmpl, fallback := Normalize(r.req.TemplateType, research.Content, structured.Content)
	if fallback {
		r.log.Warn("structured response unusable, using fallback sections", "sections", len(tmpl.Sections))
	}

	citations := research.Citations
	if citations == nil {
		citations = []string{}
	}
	r.transition(StateDone)
	r.log.Info("template generated", "sections", len(tmpl.Sections), "fallback", fallback, "elapsed", time.Since(r.started).String())
	return GenerationResult{
		Template:     tmpl,
		ResearchText: research.Content,
		Citations:    citations,
		Fallback:     fallback,
	}, nil
}

// Normalize turns the structuring output into a bookended template. When the output is not the
// expected JSON it falls back to section titles found in the research text and reports fallback=true.
func Normalize(templateType, research, structured string) (Template, bool) {
	name, sections, err := ParseStructuredTemplate(structured)
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return Template{Name: templateType, Sections: WithBookends(ExtractFallbackSections(research))}, true
	}
	if strings.TrimSpace(name) == "" {
		name = templateType
	}
	return Template{Name: name, Sections: WithBookends(sections)}, false
}
