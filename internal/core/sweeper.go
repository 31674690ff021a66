package core

import (
	"context"
	"log"
	"time"

	"charhub.dev/character-chat/internal/store"
)

const (
	sweepInterval     = 5 * time.Minute
	sweepErrorBackoff = time.Minute
	inactivityTimeout = 30 * time.Minute
)

// Sweeper periodically marks idle conversations inactive. Its lifecycle is
// tied to the context passed to Start; there is no detached loop.
type Sweeper struct {
	conversations *store.ConversationStore

	interval time.Duration
	backoff  time.Duration
	timeout  time.Duration

	done chan struct{}
}

func NewSweeper(conversations *store.ConversationStore) *Sweeper {
	return &Sweeper{
		conversations: conversations,
		interval:      sweepInterval,
		backoff:       sweepErrorBackoff,
		timeout:       inactivityTimeout,
		done:          make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		wait := s.interval
		if err := s.conversations.SweepInactive(s.timeout); err != nil {
			// Retry sooner rather than skipping a full period.
			log.Printf("Error in conversation sweep: %v", err)
			wait = s.backoff
		}
		timer.Reset(wait)
	}
}

// Wait blocks until the sweep loop has exited after cancellation.
func (s *Sweeper) Wait() {
	<-s.done
}
