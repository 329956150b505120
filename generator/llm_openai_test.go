package generator

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const okCompletion = `{
  "id": "cmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "sonar",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "1. Income Sources:"}}],
  "citations": ["https://www.irs.gov/a", "https://www.aicpa.org/b"]
}`

func newTestOpenAILLM(t *testing.T, url string, timeout time.Duration) *OpenAILLM {
	t.Helper()
	llm, err := NewOpenAILLMFromConfig(&LLMSettings{APIKey: "test-key", BaseURL: url, Timeout: timeout})
	require.NoError(t, err)
	return llm
}

func TestNewOpenAILLMFromConfig_RequiresKey(t *testing.T) {
	_, err := NewOpenAILLMFromConfig(&LLMSettings{})
	assert.Error(t, err)
	_, err = NewOpenAILLMFromConfig(nil)
	assert.Error(t, err)
}

func TestOpenAILLM_RequestShape(t *testing.T) {
	bodyCh := make(chan string, 1)
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		raw, _ := io.ReadAll(r.Body)
		bodyCh <- string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okCompletion))
	}))
	defer ts.Close()

	p, err := BuildActionPrompt(ActionTaxLawCheck, "Tax Payment", "")
	require.NoError(t, err)
	c, err := newTestOpenAILLM(t, ts.URL, time.Second).Complete(context.Background(), p.Request())
	require.NoError(t, err)

	assert.Equal(t, "1. Income Sources:", c.Content)
	assert.Equal(t, []string{"https://www.irs.gov/a", "https://www.aicpa.org/b"}, c.Citations)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	body := <-bodyCh
	assert.Equal(t, "sonar-pro", gjson.Get(body, "model").String())
	assert.EqualValues(t, 700, gjson.Get(body, "max_tokens").Int())
	assert.InDelta(t, 0.2, gjson.Get(body, "temperature").Float(), 1e-9)
	assert.True(t, gjson.Get(body, "return_citations").Bool())
	assert.True(t, gjson.Get(body, "return_related_questions").Exists())
	assert.False(t, gjson.Get(body, "return_related_questions").Bool())
	assert.Equal(t, "month", gjson.Get(body, "web_search_options.search_recency_filter").String())
	assert.Len(t, gjson.Get(body, "web_search_options.search_domain_filter").Array(), 4)
	msgs := gjson.Get(body, "messages").Array()
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Get("role").String())
	assert.Equal(t, "user", msgs[1].Get("role").String())
}

func TestOpenAILLM_NoSearchOptions(t *testing.T) {
	bodyCh := make(chan string, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodyCh <- string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer ts.Close()

	c, err := newTestOpenAILLM(t, ts.URL, time.Second).Complete(context.Background(), BuildStructuringPrompt("S-Corp", "r").Request())
	require.NoError(t, err)
	assert.Equal(t, "{}", c.Content)
	assert.Equal(t, []string{}, c.Citations)
	body := <-bodyCh
	assert.False(t, gjson.Get(body, "web_search_options").Exists())
	assert.EqualValues(t, 800, gjson.Get(body, "max_tokens").Int())
}

func TestOpenAILLM_ServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestOpenAILLM(t, ts.URL, time.Second).Complete(context.Background(), BuildSearchPrompt("q").Request())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusInternalServerError, ue.StatusCode)
	assert.Equal(t, "boom", ue.Body)
	assert.False(t, ue.Timeout)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestOpenAILLM_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	_, err := newTestOpenAILLM(t, ts.URL, time.Second).Complete(context.Background(), BuildSearchPrompt("q").Request())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.StatusCode)
	assert.Contains(t, ue.Body, "invalid api key")
}

func TestOpenAILLM_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	_, err := newTestOpenAILLM(t, ts.URL, 50*time.Millisecond).Complete(context.Background(), BuildSearchPrompt("q").Request())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.Timeout)
}

func TestOpenAILLM_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := newTestOpenAILLM(t, url, time.Second).Complete(context.Background(), BuildSearchPrompt("q").Request())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, ue.StatusCode)
	assert.NotNil(t, ue.Cause)
}

func TestOpenAILLM_EmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	_, err := newTestOpenAILLM(t, ts.URL, time.Second).Complete(context.Background(), BuildSearchPrompt("q").Request())
	assert.True(t, IsUpstream(err))
}

func TestCitationsFromRaw(t *testing.T) {
	assert.Equal(t, []string{}, citationsFromRaw(`{"choices":[]}`))
	assert.Equal(t, []string{"a"}, citationsFromRaw(`{"citations":["a",""," "]}`))
}
