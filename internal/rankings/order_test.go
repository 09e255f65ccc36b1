package rankings

import (
	"testing"

	"talentranker/internal/scoring"
)

func TestSortResultsRelevantFirstThenConfidence(t *testing.T) {
	results := []ResumeScore{
		{ResumeID: "first", Label: scoring.LabelRelevant, Confidence: 80},
		{ResumeID: "nr", Label: scoring.LabelNotRelevant, Confidence: 90},
		{ResumeID: "second", Label: scoring.LabelRelevant, Confidence: 80},
	}
	SortResults(results)

	want := []string{"first", "second", "nr"}
	for i, id := range want {
		if results[i].ResumeID != id {
			t.Fatalf("position %d: got %s want %s (%+v)", i, results[i].ResumeID, id, results)
		}
	}
}

func TestSortResultsIsDeterministic(t *testing.T) {
	base := []ResumeScore{
		{ResumeID: "a", Label: scoring.LabelError},
		{ResumeID: "b", Label: scoring.LabelNotRelevant, Confidence: 40},
		{ResumeID: "c", Label: scoring.LabelRelevant, Confidence: 55.5},
		{ResumeID: "d", Label: scoring.LabelRelevant, Confidence: 91},
		{ResumeID: "e", Label: scoring.LabelError},
	}
	want := []string{"d", "c", "b", "a", "e"}
	for round := 0; round < 10; round++ {
		got := append([]ResumeScore(nil), base...)
		SortResults(got)
		for i, id := range want {
			if got[i].ResumeID != id {
				t.Fatalf("round %d position %d: got %s want %s", round, i, got[i].ResumeID, id)
			}
		}
	}
}
