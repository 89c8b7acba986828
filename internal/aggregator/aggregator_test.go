package aggregator

import (
	"context"
	"strings"
	"testing"

	"github.com/seiggy/lucia/internal/pipeline"
)

func TestAggregate_Empty(t *testing.T) {
	a := New(Options{DefaultFallbackMessage: "fallback"})
	result := a.Aggregate(context.Background(), nil)
	if result.Message != "fallback" {
		t.Errorf("Message = %q, want fallback", result.Message)
	}
	if result.TotalExecutionMS != 0 {
		t.Errorf("TotalExecutionMS = %d, want 0", result.TotalExecutionMS)
	}
}

func TestAggregate_SingleSuccess(t *testing.T) {
	a := New(Options{})
	result := a.Aggregate(context.Background(), []pipeline.AgentResponse{
		{AgentID: "light", Success: true, Content: "I've turned on the hallway lights.", ExecutionMS: 50},
	})
	if result.Message != "I've turned on the hallway lights." {
		t.Errorf("Message = %q", result.Message)
	}
	if len(result.FailedAgents) != 0 {
		t.Errorf("FailedAgents = %v", result.FailedAgents)
	}
}

func TestAggregate_AllFailed_ContainsHoweverAndError(t *testing.T) {
	a := New(Options{})
	result := a.Aggregate(context.Background(), []pipeline.AgentResponse{
		{AgentID: "music", Success: false, ErrorMessage: "Player offline"},
	})
	lower := strings.ToLower(result.Message)
	if !strings.Contains(lower, "however") {
		t.Errorf("Message = %q, want to contain 'However'", result.Message)
	}
	if !strings.Contains(lower, "player offline") {
		t.Errorf("Message = %q, want to contain 'Player offline'", result.Message)
	}
}

func TestAggregate_MultiAgentOrdering(t *testing.T) {
	a := New(Options{AgentPriority: []string{"light", "music", "climate"}})
	result := a.Aggregate(context.Background(), []pipeline.AgentResponse{
		{AgentID: "light", Success: true, Content: "Lights adjusted"},
		{AgentID: "climate", Success: true, Content: "Temperature set"},
		{AgentID: "music", Success: true, Content: "Music playing"},
	})

	iLight := strings.Index(result.Message, "Lights adjusted")
	iMusic := strings.Index(result.Message, "Music playing")
	iClimate := strings.Index(result.Message, "Temperature set")
	if !(iLight < iMusic && iMusic < iClimate) {
		t.Fatalf("Message = %q, want Lights before Music before Temperature", result.Message)
	}
}

func TestAggregate_Mixed(t *testing.T) {
	a := New(Options{})
	result := a.Aggregate(context.Background(), []pipeline.AgentResponse{
		{AgentID: "light", Success: true, Content: "Lights on."},
		{AgentID: "music", Success: false, ErrorMessage: "Player offline"},
	})
	if !strings.Contains(result.Message, "Lights on.") {
		t.Errorf("Message = %q, missing success content", result.Message)
	}
	if !strings.Contains(result.Message, "However,") {
		t.Errorf("Message = %q, missing However connector", result.Message)
	}
	if !strings.Contains(result.Message, "Player offline") {
		t.Errorf("Message = %q, missing failure content", result.Message)
	}
}

func TestAggregate_ClampsNegativeExecutionMS(t *testing.T) {
	a := New(Options{})
	result := a.Aggregate(context.Background(), []pipeline.AgentResponse{
		{AgentID: "light", Success: true, Content: "ok", ExecutionMS: -5},
		{AgentID: "music", Success: true, Content: "ok2", ExecutionMS: 10},
	})
	if result.TotalExecutionMS != 10 {
		t.Errorf("TotalExecutionMS = %d, want 10", result.TotalExecutionMS)
	}
}

func TestAggregate_PriorityAbsentAgentsSortAfter(t *testing.T) {
	a := New(Options{AgentPriority: []string{"music"}})
	result := a.Aggregate(context.Background(), []pipeline.AgentResponse{
		{AgentID: "light", Success: true, Content: "light reply"},
		{AgentID: "music", Success: true, Content: "music reply"},
	})
	if strings.Index(result.Message, "music reply") > strings.Index(result.Message, "light reply") {
		t.Errorf("Message = %q, want music (priority-listed) before light (not listed)", result.Message)
	}
}

func TestAggregate_MessageNeverEmpty(t *testing.T) {
	a := New(Options{})
	result := a.Aggregate(context.Background(), []pipeline.AgentResponse{})
	if result.Message == "" {
		t.Error("Message must never be empty")
	}
}
