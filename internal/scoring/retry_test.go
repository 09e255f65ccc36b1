package scoring

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubClient struct {
	errs  []error
	calls int
}

func (s *stubClient) Score(ctx context.Context, jobText, resumeText string) (Result, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return Result{}, s.errs[idx]
	}
	return Result{Label: LabelRelevant, Confidence: 70}, nil
}

func TestRetryOnceOnTransient(t *testing.T) {
	base := &stubClient{errs: []error{&Error{Message: "scoring error: 502", Transient: true}}}
	res, err := WithRetry(base, time.Millisecond).Score(context.Background(), "jd", "cv")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if base.calls != 2 || res.Label != LabelRelevant {
		t.Fatalf("calls=%d result=%+v", base.calls, res)
	}
}

func TestRetryGivesUpAfterSecondFailure(t *testing.T) {
	transient := &Error{Message: msgTimeout, Transient: true}
	base := &stubClient{errs: []error{transient, transient, transient}}
	_, err := WithRetry(base, time.Millisecond).Score(context.Background(), "jd", "cv")
	if !errors.Is(err, transient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", base.calls)
	}
}

func TestNoRetryOnPermanent(t *testing.T) {
	base := &stubClient{errs: []error{&Error{Message: "scoring error: 400"}}}
	if _, err := WithRetry(base, time.Millisecond).Score(context.Background(), "jd", "cv"); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("expected 1 call, got %d", base.calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	base := &stubClient{errs: []error{&Error{Message: "scoring error: 503", Transient: true}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithRetry(base, time.Hour).Score(ctx, "jd", "cv")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
