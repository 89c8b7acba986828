// Package task defines the A2A-compliant durable task record and the store
// that persists it. This is the sole component that touches the underlying
// byte-string key/value store.
package task

import (
	"errors"
	"time"
)

// Status is the A2A task lifecycle state. Status strings are kebab-case on
// the wire.
type Status string

const (
	StatusSubmitted     Status = "submitted"
	StatusWorking       Status = "working"
	StatusInputRequired Status = "input-required"
	StatusCompleted     Status = "completed"
	StatusCanceled      Status = "canceled"
	StatusFailed        Status = "failed"
	StatusUnknown       Status = "unknown"
)

// Terminal reports whether status has no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

// Role identifies who produced a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Part is a single piece of message content. Only text parts are modeled;
// the core never inspects richer part kinds.
type Part struct {
	Text string `json:"text"`
}

// Turn is one entry in a task's authoritative history.
type Turn struct {
	Role      Role      `json:"role"`
	MessageID string    `json:"messageId"`
	Parts     []Part    `json:"parts"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Text concatenates the turn's part text.
func (t Turn) Text() string {
	if len(t.Parts) == 0 {
		return ""
	}
	if len(t.Parts) == 1 {
		return t.Parts[0].Text
	}
	out := ""
	for _, p := range t.Parts {
		out += p.Text
	}
	return out
}

// NewTurn builds a single-part turn.
func NewTurn(role Role, messageID, text string) Turn {
	return Turn{Role: role, MessageID: messageID, Parts: []Part{{Text: text}}, Timestamp: time.Now().UTC()}
}

// TaskStatus is the nested status object in the wire format.
type TaskStatus struct {
	State     Status    `json:"state"`
	Message   *Turn     `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Artifact is an opaque byte blob attached to a task. The core never
// inspects its contents.
type Artifact struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// Task is the A2A-compliant durable record for one conversation.
type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []Turn         `json:"history"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// New creates a fresh submitted task for contextID.
func New(id, contextID string) *Task {
	return &Task{
		ID:        id,
		ContextID: contextID,
		Status: TaskStatus{
			State:     StatusSubmitted,
			Timestamp: time.Now().UTC(),
		},
		History:  []Turn{},
		Metadata: map[string]any{},
	}
}

// AppendTurn appends turn to the task's authoritative history.
func (t *Task) AppendTurn(turn Turn) {
	t.History = append(t.History, turn)
}

// TrimHistory keeps at most the limit most-recent history entries.
func (t *Task) TrimHistory(limit int) {
	if limit <= 0 || len(t.History) <= limit {
		return
	}
	t.History = t.History[len(t.History)-limit:]
}

// CanTransition reports whether moving from the task's current status to
// next is a legal A2A transition per the state machine in spec.md §4.7.
func CanTransition(from, next Status) bool {
	if from.Terminal() {
		return false
	}
	switch from {
	case StatusSubmitted:
		return next == StatusWorking
	case StatusWorking:
		switch next {
		case StatusCompleted, StatusFailed, StatusInputRequired, StatusCanceled:
			return true
		}
		return false
	case StatusInputRequired:
		switch next {
		case StatusWorking, StatusCanceled:
			return true
		}
		return false
	default:
		return false
	}
}

// ErrTaskNotFound is returned by UpdateStatus when the task key is missing.
var ErrTaskNotFound = errors.New("task not found")

// ErrStorageUnavailable wraps errors from the underlying byte-string store.
var ErrStorageUnavailable = errors.New("storage unavailable")
