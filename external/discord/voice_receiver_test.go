package discord

import (
	"sync"
	"testing"
	"time"

	discordpkg "github.com/foxseedlab/kikitorin/internal/discord"
)

func newTestReceiverConn() *voiceConnection {
	return &voiceConnection{
		events:      make(chan discordpkg.ConnectionEvent, 16),
		bursts:      make(chan discordpkg.BurstEvent, 1),
		done:        make(chan struct{}),
		watcherDone: make(chan struct{}),
		stopping:    make(chan struct{}),
		ssrcToUser:  map[uint32]string{},
	}
}

func TestFinishBurst_GivesUpWhenStoppingAndBufferFull(t *testing.T) {
	v := newTestReceiverConn()
	// Occupy the only buffer slot so the next send would block.
	v.bursts <- discordpkg.BurstEvent{BurstID: "occupied"}
	v.markStopping()

	done := make(chan struct{})
	go func() {
		v.finishBurst(&burstAssembler{
			burstID:      "b1",
			userID:       "user-1",
			startedAt:    time.Now(),
			lastPacketAt: time.Now(),
		}, true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("finishBurst blocked on a full buffer after disconnect")
	}
}

func TestFinishBurst_DeliversWhileConsumerActive(t *testing.T) {
	v := newTestReceiverConn()

	go v.finishBurst(&burstAssembler{
		burstID:      "b1",
		userID:       "user-1",
		startedAt:    time.Now(),
		lastPacketAt: time.Now(),
	}, true)

	select {
	case event := <-v.bursts:
		if event.BurstID != "b1" || !event.Ended {
			t.Fatalf("unexpected burst event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected burst delivery while the connection is live")
	}
}

func TestMarkStopping_Idempotent(t *testing.T) {
	v := newTestReceiverConn()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.markStopping()
		}()
	}
	wg.Wait()
	select {
	case <-v.stopping:
	default:
		t.Fatal("expected stopping to be closed")
	}
}
