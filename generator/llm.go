package generator

import (
	"context"
	"time"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Recency limits web search to sources published within the window.
type Recency string

const (
	RecencyDay   Recency = "day"
	RecencyWeek  Recency = "week"
	RecencyMonth Recency = "month"
	RecencyYear  Recency = "year"
)

// Valid reports whether r is one of the supported windows.
func (r Recency) Valid() bool {
	switch r {
	case RecencyDay, RecencyWeek, RecencyMonth, RecencyYear:
		return true
	}
	return false
}

// SearchOptions constrains the web search behind a completion.
type SearchOptions struct {
	DomainFilter []string
	Recency      Recency
}

// Message is one role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is one chat-completion call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Search      *SearchOptions
}

// Completion is the text answer plus whatever sources the service reported.
type Completion struct {
	Content   string
	Citations []string
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}
