// Package testhelpers collects small test doubles shared across the
// orchestrator's internal packages.
package testhelpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/seiggy/lucia/internal/llm"
)

// FakeProvider is a scriptable llm.Provider for router and wrapper tests.
// Responses is consumed in order; once exhausted the last entry repeats.
type FakeProvider struct {
	mu        sync.Mutex
	Responses []llm.Message
	Errs      []error
	calls     int

	// Err is used instead of Errs when Errs is empty, and Resp instead of
	// Responses when Responses is empty.
	Resp llm.Message
	Err  error

	Requests []ChatRequest
}

// ChatRequest captures a single call for assertions in tests.
type ChatRequest struct {
	Messages []llm.Message
	Opts     llm.ChatOptions
}

func (f *FakeProvider) Chat(ctx context.Context, msgs []llm.Message, opts llm.ChatOptions) (llm.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, ChatRequest{Messages: msgs, Opts: opts})
	idx := f.calls
	f.calls++

	if len(f.Errs) > 0 {
		i := idx
		if i >= len(f.Errs) {
			i = len(f.Errs) - 1
		}
		if err := f.Errs[i]; err != nil {
			return llm.Message{}, err
		}
	} else if f.Err != nil {
		return llm.Message{}, f.Err
	}

	if len(f.Responses) > 0 {
		i := idx
		if i >= len(f.Responses) {
			i = len(f.Responses) - 1
		}
		return f.Responses[i], nil
	}
	return f.Resp, nil
}

// CallCount returns how many times Chat has been invoked.
func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// NewTestServer returns an httptest.Server for the given handler func.
func NewTestServer(handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(handler))
}

// WaitGroupDoneOnce returns a function that calls wg.Done() only once; useful
// for tests that race multiple goroutines against a single WaitGroup.
func WaitGroupDoneOnce(wg *sync.WaitGroup) func() {
	once := sync.Once{}
	return func() { once.Do(wg.Done) }
}
