package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/seiggy/lucia/internal/aggregator"
	"github.com/seiggy/lucia/internal/config"
	"github.com/seiggy/lucia/internal/dispatcher"
	"github.com/seiggy/lucia/internal/llm"
	"github.com/seiggy/lucia/internal/observerbus"
	"github.com/seiggy/lucia/internal/pipeline"
	"github.com/seiggy/lucia/internal/registry"
	"github.com/seiggy/lucia/internal/router"
	"github.com/seiggy/lucia/internal/task"
	"github.com/seiggy/lucia/internal/testhelpers"
	"github.com/seiggy/lucia/internal/wrapper"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.Add(registry.AgentCard{ID: "light", DisplayName: "Light Agent", Description: "controls lights"})
	reg.Add(registry.AgentCard{ID: "music", DisplayName: "Music Agent", Description: "controls music"})
	return reg
}

// scriptedLocal is a wrapper.LocalAgent whose single response is fixed.
type scriptedLocal struct {
	reply string
	err   error
}

func (s scriptedLocal) Handle(_ context.Context, _ pipeline.ChatTurn, thread any) (pipeline.ChatTurn, any, error) {
	if s.err != nil {
		return pipeline.ChatTurn{}, thread, s.err
	}
	return pipeline.ChatTurn{Role: "assistant", Text: s.reply}, thread, nil
}

// staticResolver always resolves the same set of wrappers, regardless of
// the routing decision, for deterministic tests.
type staticResolver struct {
	wrappers map[string]dispatcher.Invoker
}

func (s *staticResolver) Resolve(_ router.Decision) map[string]dispatcher.Invoker {
	return s.wrappers
}

func newTestEngine(t *testing.T, provider llm.Provider, wrappers map[string]dispatcher.Invoker, store task.Store) *Engine {
	t.Helper()
	reg := testRegistry()
	bus := observerbus.New(8)
	rt := router.New(reg, provider, router.NewOptions(config.RouterOptions{}))
	agg := aggregator.New(aggregator.NewOptions(config.AggregatorOptions{AgentPriority: []string{"light", "music"}}))
	return New(store, bus, reg, rt, &staticResolver{wrappers: wrappers}, agg, SessionOptions{MaxHistoryItems: 20})
}

func TestProcessRequest_HappyPath_NewTask(t *testing.T) {
	provider := &testhelpers.FakeProvider{Resp: llm.Message{Content: `{"agentId":"light","confidence":0.95}`}}
	opts := wrapper.DefaultOptions()
	wrappers := map[string]dispatcher.Invoker{
		"light": wrapper.NewLocal("light", scriptedLocal{reply: "Lights on."}, opts, nil),
	}
	store := task.NewMemoryStore()
	eng := newTestEngine(t, provider, wrappers, store)

	reply, err := eng.ProcessRequest(context.Background(), "turn on the lights", "")
	if err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	if reply != "Lights on." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestProcessRequest_PersistsAndResumesTask(t *testing.T) {
	provider := &testhelpers.FakeProvider{Resp: llm.Message{Content: `{"agentId":"light","confidence":0.95}`}}
	opts := wrapper.DefaultOptions()
	wrappers := map[string]dispatcher.Invoker{
		"light": wrapper.NewLocal("light", scriptedLocal{reply: "Lights on."}, opts, nil),
	}
	store := task.NewMemoryStore()
	eng := newTestEngine(t, provider, wrappers, store)

	taskID := "resume-1"
	if _, err := eng.ProcessRequest(context.Background(), "turn on the lights", taskID); err != nil {
		t.Fatalf("first call: %v", err)
	}

	stored, err := store.GetTask(context.Background(), taskID)
	if err != nil || stored == nil {
		t.Fatalf("expected stored task, err=%v stored=%v", err, stored)
	}
	if len(stored.History) != 2 {
		t.Fatalf("len(History) = %d, want 2 (user + assistant)", len(stored.History))
	}
	if stored.Status.State != task.StatusCompleted {
		t.Fatalf("Status.State = %q, want completed", stored.Status.State)
	}

	if _, err := eng.ProcessRequest(context.Background(), "dim them too", taskID); err != nil {
		t.Fatalf("second call: %v", err)
	}
	stored, _ = store.GetTask(context.Background(), taskID)
	if len(stored.History) != 4 {
		t.Fatalf("len(History) after second turn = %d, want 4", len(stored.History))
	}
}

func TestProcessRequest_AllAgentsFail(t *testing.T) {
	provider := &testhelpers.FakeProvider{Resp: llm.Message{Content: `{"agentId":"music","confidence":0.95}`}}
	opts := wrapper.DefaultOptions()
	wrappers := map[string]dispatcher.Invoker{
		"music": wrapper.NewLocal("music", scriptedLocal{err: fmt.Errorf("player offline")}, opts, nil),
	}
	store := task.NewMemoryStore()
	eng := newTestEngine(t, provider, wrappers, store)

	reply, err := eng.ProcessRequest(context.Background(), "play jazz", "all-failed")
	if err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	lower := strings.ToLower(reply)
	if !strings.Contains(lower, "however") || !strings.Contains(lower, "player offline") {
		t.Fatalf("reply = %q, want However + player offline", reply)
	}

	stored, _ := store.GetTask(context.Background(), "all-failed")
	if stored.Status.State != task.StatusFailed {
		t.Fatalf("Status.State = %q, want failed", stored.Status.State)
	}
}

func TestProcessRequest_CancellationReturnsErrCanceled(t *testing.T) {
	provider := &testhelpers.FakeProvider{Resp: llm.Message{Content: `{"agentId":"light","confidence":0.95}`}}
	store := task.NewMemoryStore()
	eng := newTestEngine(t, provider, map[string]dispatcher.Invoker{}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.ProcessRequest(ctx, "turn on the lights", "")
	if err != ErrCanceled {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
}

func TestProcessRequest_EmptyRegistryUsesFallback_NoProviderCall(t *testing.T) {
	reg := registry.New()
	bus := observerbus.New(8)
	provider := &testhelpers.FakeProvider{Resp: llm.Message{Content: `{"agentId":"light","confidence":0.95}`}}
	rt := router.New(reg, provider, router.NewOptions(config.RouterOptions{}))
	agg := aggregator.New(aggregator.NewOptions(config.AggregatorOptions{}))
	opts := wrapper.DefaultOptions()
	wrappers := map[string]dispatcher.Invoker{
		"general-assistant": wrapper.NewLocal("general-assistant", scriptedLocal{reply: "no specialists yet"}, opts, nil),
	}
	store := task.NewMemoryStore()
	eng := New(store, bus, reg, rt, &staticResolver{wrappers: wrappers}, agg, SessionOptions{MaxHistoryItems: 20})

	reply, err := eng.ProcessRequest(context.Background(), "anything", "")
	if err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}
	if reply != "no specialists yet" {
		t.Fatalf("reply = %q", reply)
	}
	if provider.CallCount() != 0 {
		t.Fatalf("provider should not be called for an empty registry, got %d calls", provider.CallCount())
	}
}

func TestGetStatus_ReportsRegistrySnapshot(t *testing.T) {
	provider := &testhelpers.FakeProvider{}
	store := task.NewMemoryStore()
	eng := newTestEngine(t, provider, nil, store)

	status := eng.GetStatus()
	if !status.IsReady {
		t.Fatal("expected Engine to be ready")
	}
	if status.AvailableAgentCount != 2 {
		t.Fatalf("AvailableAgentCount = %d, want 2", status.AvailableAgentCount)
	}
}

func TestSubscribeUnsubscribe_PassThrough(t *testing.T) {
	provider := &testhelpers.FakeProvider{Resp: llm.Message{Content: `{"agentId":"light","confidence":0.95}`}}
	opts := wrapper.DefaultOptions()
	wrappers := map[string]dispatcher.Invoker{
		"light": wrapper.NewLocal("light", scriptedLocal{reply: "Lights on."}, opts, nil),
	}
	store := task.NewMemoryStore()
	eng := newTestEngine(t, provider, wrappers, store)

	received := make(chan observerbus.Event, 8)
	id := eng.Subscribe(func(ev observerbus.Event) { received <- ev })
	defer eng.Unsubscribe(id)

	if _, err := eng.ProcessRequest(context.Background(), "turn on the lights", ""); err != nil {
		t.Fatalf("ProcessRequest: %v", err)
	}

	timeout := time.After(time.Second)
	seenKinds := map[observerbus.Kind]bool{}
	for len(seenKinds) < 4 {
		select {
		case ev := <-received:
			seenKinds[ev.Kind] = true
		case <-timeout:
			t.Fatalf("timed out waiting for events, saw %v", seenKinds)
		}
	}
	for _, want := range []observerbus.Kind{observerbus.KindRequestStarted, observerbus.KindRoutingCompleted, observerbus.KindResponseAggregated} {
		if !seenKinds[want] {
			t.Errorf("missing event kind %v", want)
		}
	}
}
