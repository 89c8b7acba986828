// Package dashboard projects Observer Bus events into the shape a live
// event-stream UI consumes. Truncating long message text is a presentation
// concern, so it lives here rather than on observerbus.Event itself.
package dashboard

import (
	"fmt"

	"github.com/seiggy/lucia/internal/observerbus"
)

// maxMessageLen is spec.md §6's live-event-stream truncation length.
const maxMessageLen = 100

// Projection is one row of the dashboard's live event stream.
type Projection struct {
	Kind      string
	Seq       uint64
	RequestID string
	Message   string
}

// Adapter subscribes to the Observer Bus (via Handle) and emits a Projection
// per event onto Out. Delivery to Out is best-effort: a full or absent
// channel never blocks the bus.
type Adapter struct {
	Out chan<- Projection
}

// NewAdapter builds an Adapter that writes projections onto out.
func NewAdapter(out chan<- Projection) *Adapter {
	return &Adapter{Out: out}
}

// Handle satisfies observerbus.Handler.
func (a *Adapter) Handle(ev observerbus.Event) {
	proj := Projection{
		Kind:      ev.Kind.String(),
		Seq:       ev.Seq,
		RequestID: ev.RequestID,
		Message:   truncate(message(ev)),
	}
	select {
	case a.Out <- proj:
	default:
	}
}

func message(ev observerbus.Event) string {
	switch ev.Kind {
	case observerbus.KindRequestStarted:
		if ev.RequestStarted != nil {
			return ev.RequestStarted.UserUtterance
		}
	case observerbus.KindRoutingCompleted:
		if ev.RoutingCompleted != nil {
			return ev.RoutingCompleted.Reasoning
		}
	case observerbus.KindAgentExecutionCompleted:
		if ev.AgentExecutionCompleted != nil {
			if ev.AgentExecutionCompleted.Success {
				return fmt.Sprintf("%s completed", ev.AgentExecutionCompleted.AgentID)
			}
			return ev.AgentExecutionCompleted.ErrorMsg
		}
	case observerbus.KindResponseAggregated:
		if ev.ResponseAggregated != nil {
			return ev.ResponseAggregated.FinalText
		}
	case observerbus.KindError:
		if ev.Error != nil {
			return ev.Error.Message
		}
	}
	return ""
}

// truncate implements spec.md §6's "100 characters plus an ellipsis" rule.
func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen] + "..."
}
