package core

import (
	"context"
	"testing"
	"time"

	"charhub.dev/character-chat/internal/store"
)

func TestSweeperMarksIdleConversations(t *testing.T) {
	conversations, err := store.NewConversationStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewConversationStore: %v", err)
	}
	id := conversations.Ensure("", "u1", "coach")
	if err := conversations.Append(id, store.RoleUser, "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	sweeper := NewSweeper(conversations)
	sweeper.interval = 10 * time.Millisecond
	sweeper.backoff = 10 * time.Millisecond
	sweeper.timeout = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		conv, err := conversations.Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !conv.Active {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("conversation never marked inactive")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	sweeper.Wait()
}

func TestSweeperStopsOnCancel(t *testing.T) {
	conversations, err := store.NewConversationStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewConversationStore: %v", err)
	}

	sweeper := NewSweeper(conversations)
	sweeper.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	cancel()

	stopped := make(chan struct{})
	go func() {
		sweeper.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
