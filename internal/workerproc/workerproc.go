package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"talentranker/internal/queue"
	"talentranker/internal/rankings"
)

// Processor runs a persisted ranking by id.
type Processor interface {
	Process(ctx context.Context, rankingID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingRankingID indicates a message without a ranking id.
type ErrMissingRankingID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingRankingID) Error() string { return "missing ranking id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	RankingID string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process ranking"
	}
	return "process ranking: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether redelivering the message can never succeed.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingRankingID
	)
	switch {
	case errors.As(err, &empty), errors.As(err, &decode), errors.As(err, &missing):
		return true
	case errors.Is(err, rankings.ErrNotFound):
		return true
	default:
		return false
	}
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.RankingID) == "" {
		return msg, meta, ErrMissingRankingID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage runs the ranking named by an already decoded message.
func HandleMessage(ctx context.Context, proc Processor, msg queue.Message) error {
	if proc == nil {
		return errors.New("ranking processor not configured")
	}
	if strings.TrimSpace(msg.RankingID) == "" {
		return ErrMissingRankingID{RequestID: msg.RequestID}
	}

	ctx = rankings.WithRequestID(ctx, msg.RequestID)
	if err := proc.Process(ctx, msg.RankingID); err != nil {
		return ErrProcess{RankingID: msg.RankingID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// HandleBody parses a raw payload and processes it.
func HandleBody(ctx context.Context, proc Processor, body string) error {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return HandleMessage(ctx, proc, msg)
}
