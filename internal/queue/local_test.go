package queue

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestLocalClientDispatches(t *testing.T) {
	var handled atomic.Int32
	c := &LocalClient{Handle: func(ctx context.Context, msg Message) error {
		if msg.RankingID == "r-1" {
			handled.Add(1)
		}
		return nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Send(ctx, Message{RankingID: "r-1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	cancel()
	c.Wait()
	if handled.Load() != 1 {
		t.Fatalf("expected one handled message, got %d", handled.Load())
	}
}

func TestLocalClientWithoutHandler(t *testing.T) {
	if err := (&LocalClient{}).Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error without handler")
	}
}
