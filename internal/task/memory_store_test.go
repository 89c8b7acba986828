package task

import (
	"context"
	"testing"
)

func TestMemoryStore_GetTask_Missing(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.GetTask(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got != nil {
		t.Fatalf("GetTask = %+v, want nil", got)
	}
}

func TestMemoryStore_SetAndGetTask_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tk := New("t1", "ctx1")
	tk.AppendTurn(NewTurn(RoleUser, "m1", "hi"))

	if err := s.SetTask(ctx, tk); err != nil {
		t.Fatalf("SetTask: %v", err)
	}
	got, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.ID != "t1" || got.ContextID != "ctx1" || len(got.History) != 1 {
		t.Fatalf("GetTask = %+v", got)
	}

	// mutating the returned clone must not affect the store's copy
	got.History[0].Parts[0].Text = "mutated"
	got2, _ := s.GetTask(ctx, "t1")
	if got2.History[0].Parts[0].Text != "hi" {
		t.Fatalf("store was mutated via returned clone")
	}
}

func TestMemoryStore_UpdateStatus_NotFound(t *testing.T) {
	s := NewMemoryStore()
	err := s.UpdateStatus(context.Background(), "missing", StatusWorking, nil)
	if err != ErrTaskNotFound {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestMemoryStore_UpdateStatus_Transitions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	tk := New("t1", "ctx1")
	if err := s.SetTask(ctx, tk); err != nil {
		t.Fatalf("SetTask: %v", err)
	}
	if err := s.UpdateStatus(ctx, "t1", StatusWorking, nil); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ := s.GetTask(ctx, "t1")
	if got.Status.State != StatusWorking {
		t.Fatalf("Status.State = %s, want working", got.Status.State)
	}
}

func TestMemoryStore_PushNotifications(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.SetPushNotificationConfig(ctx, "t1", "cfg1", []byte("payload")); err != nil {
		t.Fatalf("SetPushNotificationConfig: %v", err)
	}
	got, err := s.GetPushNotification(ctx, "t1", "cfg1")
	if err != nil {
		t.Fatalf("GetPushNotification: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got = %q, want payload", got)
	}
	all, err := s.ListPushNotifications(ctx, "t1")
	if err != nil {
		t.Fatalf("ListPushNotifications: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len(all) = %d, want 1", len(all))
	}
}

var _ Store = (*MemoryStore)(nil)
