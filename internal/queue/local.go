package queue

import (
	"context"
	"errors"
	"sync"

	"talentranker/internal/shared/telemetry"
)

// LocalClient hands messages to an in-process handler on a goroutine.
// Bootstrap uses it in dev when no SQS queue is configured.
type LocalClient struct {
	Handle func(ctx context.Context, msg Message) error

	wg sync.WaitGroup
}

func (l *LocalClient) Send(ctx context.Context, msg Message) error {
	if l.Handle == nil {
		return errors.New("local queue has no handler")
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.Handle(context.WithoutCancel(ctx), msg); err != nil {
			telemetry.Error("queue.local.failed", map[string]any{
				"ranking_id": msg.RankingID,
				"request_id": msg.RequestID,
				"error":      err,
			})
		}
	}()
	return nil
}

// Wait blocks until every dispatched message has been handled.
func (l *LocalClient) Wait() { l.wg.Wait() }

var _ Client = (*LocalClient)(nil)
