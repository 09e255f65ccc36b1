package workerproc

import (
	"context"
	"errors"
	"testing"

	"talentranker/internal/queue"
	"talentranker/internal/rankings"
)

type recordingProcessor struct {
	ids []string
	err error
}

func (p *recordingProcessor) Process(ctx context.Context, rankingID string) error {
	p.ids = append(p.ids, rankingID)
	return p.err
}

func TestParseMessage(t *testing.T) {
	body, _ := queue.EncodeMessage(queue.Message{RankingID: "r-1", RequestID: "req-1", Version: queue.MessageVersion})

	tests := []struct {
		name    string
		body    string
		wantErr any
	}{
		{name: "valid", body: string(body)},
		{name: "empty", body: "  ", wantErr: ErrEmptyBody{}},
		{name: "invalid json", body: "{", wantErr: ErrDecode{}},
		{name: "missing id", body: `{"requestId":"req-2"}`, wantErr: ErrMissingRankingID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, meta, err := ParseMessage(tt.body)
			switch tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if msg.RankingID != "r-1" || meta.BodyLen != len(tt.body) || meta.BodySHA == "" {
					t.Fatalf("unexpected parse result %+v %+v", msg, meta)
				}
			case ErrEmptyBody:
				var target ErrEmptyBody
				if !errors.As(err, &target) {
					t.Fatalf("expected ErrEmptyBody, got %v", err)
				}
			case ErrDecode:
				var target ErrDecode
				if !errors.As(err, &target) {
					t.Fatalf("expected ErrDecode, got %v", err)
				}
			case ErrMissingRankingID:
				var target ErrMissingRankingID
				if !errors.As(err, &target) || target.RequestID != "req-2" {
					t.Fatalf("expected ErrMissingRankingID with request id, got %v", err)
				}
			}
			if tt.wantErr != nil && !Unrecoverable(err) {
				t.Fatalf("parse errors must be unrecoverable: %v", err)
			}
		})
	}
}

func TestHandleMessageProcessesRanking(t *testing.T) {
	proc := &recordingProcessor{}
	if err := HandleMessage(context.Background(), proc, queue.Message{RankingID: "r-1", RequestID: "req-1"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(proc.ids) != 1 || proc.ids[0] != "r-1" {
		t.Fatalf("unexpected processed ids %v", proc.ids)
	}
}

func TestHandleMessageWrapsProcessErrors(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("db down")}
	err := HandleMessage(context.Background(), proc, queue.Message{RankingID: "r-1", RequestID: "req-1"})
	var procErr ErrProcess
	if !errors.As(err, &procErr) || procErr.RankingID != "r-1" || procErr.RequestID != "req-1" {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if Unrecoverable(err) {
		t.Fatalf("transient processing errors must be retried")
	}

	proc.err = rankings.ErrNotFound
	if err := HandleMessage(context.Background(), proc, queue.Message{RankingID: "gone"}); !Unrecoverable(err) {
		t.Fatalf("missing ranking must be unrecoverable, got %v", err)
	}
}

func TestHandleBodyRejectsMissingProcessor(t *testing.T) {
	if err := HandleBody(context.Background(), nil, `{"rankingId":"r-1"}`); err == nil {
		t.Fatalf("expected error without processor")
	}
}
