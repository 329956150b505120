package generator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the Perplexity OpenAI-compatible endpoint; the SDK appends chat/completions.
	DefaultBaseURL = "https://api.perplexity.ai/"
	DefaultTimeout = 30 * time.Second

	defaultMaxTokens   = 500
	defaultTemperature = 0.2
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions)
// against the Perplexity Sonar API.
type OpenAILLM struct {
	Timeout time.Duration
	Opts    []option.RequestOption
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("perplexity api key missing; set PERPLEXITY_API_KEY")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		// failures propagate to the caller, which decides whether to re-invoke
		option.WithMaxRetries(0),
	}
	return &OpenAILLM{Timeout: timeout, Opts: opts}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	client := openai.NewClient(o.Opts...)

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	var failed struct {
		status int
		body   string
	}
	opts := []option.RequestOption{
		option.WithJSONSet("return_citations", true),
		option.WithJSONSet("return_related_questions", false),
		option.WithMiddleware(func(r *http.Request, next option.MiddlewareNext) (*http.Response, error) {
			res, err := next(r)
			if err != nil || res == nil || res.StatusCode < 300 {
				return res, err
			}
			raw, _ := io.ReadAll(res.Body)
			_ = res.Body.Close()
			res.Body = io.NopCloser(bytes.NewReader(raw))
			failed.status = res.StatusCode
			failed.body = strings.TrimSpace(string(raw))
			return res, nil
		}),
	}
	if req.Search != nil {
		opts = append(opts, option.WithJSONSet("web_search_options", searchOptionsBody(req.Search)))
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    msgs,
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(temperature),
	}, opts...)
	if err != nil {
		return Completion{}, upstreamErrorFrom(ctx, err, failed.status, failed.body)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, &UpstreamError{StatusCode: http.StatusOK, Body: "empty choices"}
	}
	return Completion{
		Content:   resp.Choices[0].Message.Content,
		Citations: citationsFromRaw(resp.RawJSON()),
	}, nil
}

func searchOptionsBody(s *SearchOptions) map[string]any {
	body := map[string]any{}
	if len(s.DomainFilter) > 0 {
		body["search_domain_filter"] = s.DomainFilter
	}
	if s.Recency.Valid() {
		body["search_recency_filter"] = string(s.Recency)
	}
	return body
}

func upstreamErrorFrom(ctx context.Context, err error, status int, body string) *UpstreamError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &UpstreamError{Timeout: true, Cause: err}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if status == 0 {
			status = apiErr.StatusCode
		}
		if body == "" {
			body = apiErr.RawJSON()
		}
	}
	if status != 0 {
		return &UpstreamError{StatusCode: status, Body: body, Cause: err}
	}
	return &UpstreamError{Cause: err}
}

// The citations array is a Perplexity extension, not part of the SDK's ChatCompletion type.
func citationsFromRaw(raw string) []string {
	out := []string{}
	for _, c := range gjson.Get(raw, "citations").Array() {
		if s := strings.TrimSpace(c.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
