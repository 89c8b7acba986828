// Command orchestrator wires the Durable Task Store, Observer Bus, Agent
// Registry, Router, Dispatcher, Aggregator, and Orchestrator Engine into a
// runnable process with a stdin/stdout REPL front end for local manual
// testing. It is not a production HTTP service.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/seiggy/lucia/internal/a2aclient"
	"github.com/seiggy/lucia/internal/aggregator"
	"github.com/seiggy/lucia/internal/builtinagents"
	"github.com/seiggy/lucia/internal/config"
	"github.com/seiggy/lucia/internal/dashboard"
	"github.com/seiggy/lucia/internal/dispatcher"
	"github.com/seiggy/lucia/internal/engine"
	"github.com/seiggy/lucia/internal/llm"
	"github.com/seiggy/lucia/internal/observability"
	"github.com/seiggy/lucia/internal/observerbus"
	"github.com/seiggy/lucia/internal/pipeline"
	"github.com/seiggy/lucia/internal/registry"
	"github.com/seiggy/lucia/internal/router"
	"github.com/seiggy/lucia/internal/task"
	"github.com/seiggy/lucia/internal/wrapper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	observability.InitLogger(cfg.Logging.FilePath, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.OTLP != "" {
		shutdown, err := observability.InitOTel(ctx, cfg.Obs)
		if err != nil {
			log.Warn().Err(err).Msg("otel init failed, continuing without tracing")
		} else {
			defer shutdown(context.Background())
		}
	}

	reg, err := registry.Load(cfg.AgentsFile)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.AgentsFile).Msg("agent seed load failed, starting with an empty registry")
		reg = registry.New()
	}

	store := buildStore(ctx, cfg)
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	bus := observerbus.New(observerbus.DefaultBufferSize)
	logSub := bus.Subscribe(func(ev observerbus.Event) {
		log.Debug().Str("kind", ev.Kind.String()).Uint64("seq", ev.Seq).Str("request_id", ev.RequestID).Msg("observer_event")
	})
	defer bus.Unsubscribe(logSub)

	// dashboard.Adapter is the live-event-stream subscriber SPEC_FULL.md §5
	// commits: it truncates message text to the dashboard's 100-char rule
	// and never blocks the bus. Nothing in this process reads the other end
	// yet (no HTTP/WS front end is in scope here), so a draining goroutine
	// stands in for that consumer.
	projections := make(chan dashboard.Projection, observerbus.DefaultBufferSize)
	dashSub := bus.Subscribe(dashboard.NewAdapter(projections).Handle)
	defer bus.Unsubscribe(dashSub)
	go func() {
		for proj := range projections {
			log.Debug().Str("kind", proj.Kind).Uint64("seq", proj.Seq).Str("request_id", proj.RequestID).
				Str("message", proj.Message).Msg("dashboard_projection")
		}
	}()

	rt := router.New(reg, &demoProvider{registry: reg}, router.NewOptions(cfg.Router))
	agg := aggregator.New(aggregator.NewOptions(cfg.Aggregator))

	res := &wrapperResolver{
		reg:             reg,
		wrapperOpts:     wrapper.Options{Timeout: cfg.Wrapper.Timeout, HistoryLimit: cfg.Wrapper.HistoryLimit},
		bus:             bus,
		httpClient:      observability.NewHTTPClient(nil),
		clarificationID: cfg.Router.ClarificationAgentID,
		fallbackID:      cfg.Router.FallbackAgentID,
	}

	eng := engine.New(store, bus, reg, rt, res, agg, engine.SessionOptions{
		SessionCacheLength: cfg.SessionCache.SessionCacheLength,
		MaxHistoryItems:    cfg.SessionCache.MaxHistoryItems,
	})

	status := eng.GetStatus()
	log.Info().Bool("ready", status.IsReady).Int("agents", status.AvailableAgentCount).Msg("orchestrator ready")

	runREPL(ctx, eng)
}

func buildStore(ctx context.Context, cfg config.Config) task.Store {
	if !cfg.Redis.Enabled {
		return task.NewMemoryStore()
	}
	store, err := task.NewRedisStore(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis store unavailable, falling back to in-memory store")
		return task.NewMemoryStore()
	}
	return store
}

func runREPL(ctx context.Context, eng *engine.Engine) {
	fmt.Println("lucia orchestrator ready. Type a message and press enter (Ctrl-D to exit).")
	scanner := bufio.NewScanner(os.Stdin)
	// The REPL plays the role of a caller that already knows its task id
	// (e.g. an HTTP front end resuming a conversation): it mints one id up
	// front and reuses it for every turn in the session.
	taskID := uuid.NewString()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, err := eng.ProcessRequest(ctx, line, taskID)
		if err != nil {
			fmt.Printf("! %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
}

// wrapperResolver builds the agent_id -> dispatcher.Invoker map the Engine
// needs for one routing decision (engine.WrapperResolver).
type wrapperResolver struct {
	reg             *registry.Registry
	wrapperOpts     wrapper.Options
	bus             *observerbus.Bus
	httpClient      *http.Client
	clarificationID string
	fallbackID      string
}

func (r *wrapperResolver) Resolve(decision router.Decision) map[string]dispatcher.Invoker {
	out := make(map[string]dispatcher.Invoker)
	ids := append([]string{decision.PrimaryAgentID}, decision.AdditionalAgentIDs...)
	for _, id := range ids {
		if _, exists := out[id]; exists || id == "" {
			continue
		}
		if w := r.build(id); w != nil {
			out[id] = w
		}
	}
	return out
}

func (r *wrapperResolver) build(id string) dispatcher.Invoker {
	switch id {
	case r.clarificationID:
		return wrapper.NewLocal(id, builtinagents.ClarificationAgent{}, r.wrapperOpts, r.bus)
	case r.fallbackID:
		return wrapper.NewLocal(id, builtinagents.FallbackAgent{}, r.wrapperOpts, r.bus)
	}

	card, ok := r.reg.Get(id)
	if !ok {
		return nil
	}
	if card.Remote {
		httpClient := r.httpClient
		if len(card.AuthHeaders) > 0 {
			httpClient = observability.WithHeaders(httpClient, card.AuthHeaders)
		}
		client := a2aclient.New(httpClient)
		w, err := wrapper.NewRemote(id, card.URLOrLocal, client, r.wrapperOpts, r.bus)
		if err != nil {
			log.Warn().Err(err).Str("agent_id", id).Msg("remote wrapper construction failed")
			return nil
		}
		return w
	}
	return wrapper.NewLocal(id, echoAgent{card: card}, r.wrapperOpts, r.bus)
}

// echoAgent stands in for a real local specialist implementation: none is
// specified here, since the orchestration core has no opinion on what a
// specific agent does. It demonstrates the LocalAgent contract being
// exercised end to end.
type echoAgent struct {
	card registry.AgentCard
}

func (a echoAgent) Handle(_ context.Context, turn pipeline.ChatTurn, thread any) (pipeline.ChatTurn, any, error) {
	reply := fmt.Sprintf("[%s] acknowledged: %s", a.card.DisplayName, turn.Text)
	return pipeline.ChatTurn{Role: "assistant", Text: reply}, thread, nil
}

// demoProvider is a placeholder llm.Provider that always proposes the
// first registered agent with high confidence. Implementing the chat
// client wire protocol itself is out of scope; wire a real llm.Provider
// here to replace it.
type demoProvider struct {
	registry *registry.Registry
}

func (p *demoProvider) Chat(_ context.Context, _ []llm.Message, _ llm.ChatOptions) (llm.Message, error) {
	cards := p.registry.List()
	if len(cards) == 0 {
		return llm.Message{}, fmt.Errorf("no registered agents to route to")
	}
	body, err := json.Marshal(struct {
		AgentID    string  `json:"agentId"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}{AgentID: cards[0].ID, Confidence: 0.9, Reasoning: "demo provider: first registered agent"})
	if err != nil {
		return llm.Message{}, err
	}
	return llm.Message{Role: "assistant", Content: string(body)}, nil
}
