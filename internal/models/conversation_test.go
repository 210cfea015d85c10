package models

import (
	"errors"
	"sync"
	"testing"

	apierrors "github.com/diogo/chatstream/internal/errors"
)

func TestNewConversation(t *testing.T) {
	conv := NewConversation("be brief")

	if conv.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", conv.Len())
	}
	sys := conv.System()
	if sys.Role != RoleSystem || sys.Content != "be brief" {
		t.Errorf("System() = %+v", sys)
	}
	if _, ok := conv.LastAssistant(); ok {
		t.Error("new conversation should have no assistant message")
	}
}

func TestConversationAppend(t *testing.T) {
	conv := NewConversation("sys")

	for i := 0; i < 3; i++ {
		if err := conv.Append(NewMessage(RoleUser, "q")); err != nil {
			t.Fatalf("Append user: %v", err)
		}
		if err := conv.Append(NewMessage(RoleAssistant, "a")); err != nil {
			t.Fatalf("Append assistant: %v", err)
		}
		if want := 1 + 2*(i+1); conv.Len() != want {
			t.Errorf("after %d turns Len() = %d, want %d", i+1, conv.Len(), want)
		}
	}

	if conv.Turns() != 3 {
		t.Errorf("Turns() = %d, want 3", conv.Turns())
	}
}

func TestConversationAppendRejects(t *testing.T) {
	conv := NewConversation("sys")

	err := conv.Append(NewMessage(RoleSystem, "override"))
	if !errors.Is(err, apierrors.ErrSystemMessage) {
		t.Errorf("Append(system) error = %v, want ErrSystemMessage", err)
	}

	if err := conv.Append(Message{Role: "tool", Content: "x"}); err == nil {
		t.Error("Append with unknown role should fail")
	}

	if conv.Len() != 1 {
		t.Errorf("rejected appends changed Len() to %d", conv.Len())
	}
	if conv.System().Content != "sys" {
		t.Error("system message was altered")
	}
}

func TestConversationSnapshotIsCopy(t *testing.T) {
	conv := NewConversation("sys")
	_ = conv.Append(NewMessage(RoleUser, "Hello"))

	snap := conv.Snapshot()
	snap[1].Content = "changed"
	snap = append(snap, NewMessage(RoleAssistant, "extra"))

	got := conv.Snapshot()
	if len(got) != 2 {
		t.Fatalf("Snapshot len = %d, want 2", len(got))
	}
	if got[1].Content != "Hello" {
		t.Errorf("stored message mutated through snapshot: %q", got[1].Content)
	}
}

func TestConversationOrder(t *testing.T) {
	conv := NewConversation("sys")
	_ = conv.Append(NewMessage(RoleUser, "Hello"))
	_ = conv.Append(NewMessage(RoleAssistant, "Hi there!"))

	want := []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleAssistant, Content: "Hi there!"},
	}
	got := conv.Snapshot()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	last, ok := conv.Last()
	if !ok || last != want[2] {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
	la, ok := conv.LastAssistant()
	if !ok || la.Content != "Hi there!" {
		t.Errorf("LastAssistant() = %+v, %v", la, ok)
	}
}

func TestConversationConcurrentReaders(t *testing.T) {
	conv := NewConversation("sys")
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = conv.Append(NewMessage(RoleUser, "q"))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = conv.Snapshot()
				_ = conv.Len()
			}
		}()
	}
	wg.Wait()

	if conv.Len() != 101 {
		t.Errorf("Len() = %d, want 101", conv.Len())
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"system", RoleSystem, false},
		{"user", RoleUser, false},
		{"assistant", RoleAssistant, false},
		{"Assistant", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
