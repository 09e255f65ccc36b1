package scoring

import (
	"context"
	"errors"
	"math"
	"strings"
)

// Label is the relevance class assigned to a resume.
type Label string

const (
	LabelRelevant    Label = "Relevant"
	LabelNotRelevant Label = "NotRelevant"
	LabelError       Label = "Error"
)

// Result is one oracle verdict.
type Result struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Client scores one resume against one job description.
type Client interface {
	Score(ctx context.Context, jobText, resumeText string) (Result, error)
}

// Error is a resume-scoped scoring failure.
type Error struct {
	Message   string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "scoring failed"
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var scoringErr *Error
	if errors.As(err, &scoringErr) {
		return scoringErr.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// normalizeLabel maps the oracle's prediction strings onto Label.
func normalizeLabel(raw string) (Label, bool) {
	compact := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	compact = strings.ReplaceAll(compact, "_", "")
	compact = strings.ReplaceAll(compact, "-", "")
	switch compact {
	case "relevant":
		return LabelRelevant, true
	case "notrelevant", "irrelevant":
		return LabelNotRelevant, true
	default:
		return "", false
	}
}

// normalizeConfidence clamps to [0,100] and rounds to 2 decimals.
func normalizeConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		v = 100
	}
	return math.Round(v*100) / 100
}
