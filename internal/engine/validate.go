package engine

import (
	"strings"

	"live-quiz-service/internal/domain"
)

// Validate reports whether payload is a correct answer for q, one case per
// question type. VOTING has no right answer and SLIDE is not answerable;
// both always report false (SLIDE submissions are rejected before scoring).
func Validate(q domain.Question, payload domain.AnswerPayload) bool {
	switch q.Type {
	case domain.QuestionABCD:
		for _, choice := range q.Choices {
			if choice.Answer == payload.Answer {
				return choice.Right
			}
		}
		return false
	case domain.QuestionCheck:
		return selectionMatchesKey(q.Choices, payload.Answers)
	case domain.QuestionRange:
		if q.Range == nil || payload.Value == nil {
			return false
		}
		v := *payload.Value
		return v >= float64(q.Range.MinCorrect) && v <= float64(q.Range.MaxCorrect)
	case domain.QuestionText:
		for _, key := range q.Texts {
			if key.CaseSensitive {
				if payload.Answer == key.Answer {
					return true
				}
			} else if strings.EqualFold(payload.Answer, key.Answer) {
				return true
			}
		}
		return false
	case domain.QuestionOrder:
		if len(payload.Answers) != len(q.Items) {
			return false
		}
		for i, item := range q.Items {
			if payload.Answers[i] != item.Answer {
				return false
			}
		}
		return true
	default: // VOTING, SLIDE
		return false
	}
}

// selectionMatchesKey checks set equality between the selected options and
// the options flagged right. Duplicate selections count once.
func selectionMatchesKey(choices []domain.Choice, selected []string) bool {
	right := make(map[string]bool, len(choices))
	for _, choice := range choices {
		if choice.Right {
			right[choice.Answer] = true
		}
	}
	seen := make(map[string]bool, len(selected))
	for _, answer := range selected {
		if !right[answer] {
			return false
		}
		seen[answer] = true
	}
	return len(seen) == len(right) && len(right) > 0
}
