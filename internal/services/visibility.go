package services

import (
	"strings"

	"github.com/soaringjerry/hireflow/internal/models"
)

// IsVisible reports whether q should be shown given the current answers.
//
// A question without a conditional is always visible. A question gated on an
// unanswered or falsy prerequisite (blank text, no selection, no file, the
// number 0) is hidden. Operator and value type mismatches evaluate to hidden;
// operators the engine does not know evaluate to visible.
func IsVisible(q models.Question, responses []models.QuestionResponse) bool {
	c := q.Conditional
	if c == nil {
		return true
	}
	prereq, ok := models.FindResponse(responses, c.QuestionID)
	if !ok || falsy(prereq.Value) {
		return false
	}
	return evaluate(c.Operator, prereq.Value, c.Value)
}

// falsy is IsEmpty plus a zero number. Required checks still treat 0 as an
// answer.
func falsy(v models.Value) bool {
	if v.Kind() == models.KindNumber {
		return v.Number() == 0
	}
	return v.IsEmpty()
}

func evaluate(op models.Operator, answer, want models.Value) bool {
	switch op {
	case models.OpEquals:
		return answer.Equal(want)
	case models.OpNotEquals:
		return !answer.Equal(want)
	case models.OpContains:
		if answer.Kind() != models.KindText {
			return false
		}
		return strings.Contains(strings.ToLower(answer.Text()), strings.ToLower(want.String()))
	case models.OpGreaterThan, models.OpLessThan:
		if answer.Kind() != models.KindNumber {
			return false
		}
		n, ok := want.AsNumber()
		if !ok {
			return false
		}
		if op == models.OpGreaterThan {
			return answer.Number() > n
		}
		return answer.Number() < n
	default:
		return true
	}
}

// VisibleQuestions flattens the assessment and keeps the visible questions in
// section then question order. A conditional that points at itself, a later
// question or a question that does not exist hides its question.
func VisibleQuestions(a models.Assessment, responses []models.QuestionResponse) []models.Question {
	var out []models.Question
	for _, qs := range visibleBySection(a, responses) {
		out = append(out, qs...)
	}
	return out
}

// VisibleSectionQuestions returns the visible questions of the section at index.
func VisibleSectionQuestions(a models.Assessment, index int, responses []models.QuestionResponse) []models.Question {
	sections := visibleBySection(a, responses)
	if index < 0 || index >= len(sections) {
		return nil
	}
	return sections[index]
}

func visibleBySection(a models.Assessment, responses []models.QuestionResponse) [][]models.Question {
	seen := make(map[string]bool, a.QuestionCount())
	out := make([][]models.Question, len(a.Sections))
	for i, s := range a.Sections {
		for _, q := range s.Questions {
			brokenRef := q.Conditional != nil && !seen[q.Conditional.QuestionID]
			seen[q.ID] = true
			if brokenRef || !IsVisible(q, responses) {
				continue
			}
			out[i] = append(out[i], q)
		}
	}
	return out
}
