package services

import (
	"testing"

	"github.com/soaringjerry/hireflow/internal/models"
)

func TestDefaultAssessmentIsValid(t *testing.T) {
	a := DefaultAssessment("job_7", "Backend Engineer")
	if err := models.CheckAssessment(a); err != nil {
		t.Fatalf("default template invalid: %v", err)
	}
	if a.Title != "Backend Engineer assessment" || a.JobID != "job_7" || !a.IsActive {
		t.Fatalf("template header = %+v", a)
	}
	seen := map[models.QuestionType]bool{}
	conditionals := 0
	for _, q := range a.Questions() {
		seen[q.Type] = true
		if q.Conditional != nil {
			conditionals++
		}
	}
	for _, qt := range models.QuestionTypes() {
		if !seen[qt] {
			t.Fatalf("template lacks a %s question", qt)
		}
	}
	if conditionals != 1 {
		t.Fatalf("conditionals = %d, want 1", conditionals)
	}
}

func TestDefaultAssessmentFollowUpVisibility(t *testing.T) {
	a := DefaultAssessment("job_7", "")
	relocate := a.Sections[0].Questions[1]
	followUp := a.Sections[0].Questions[2]
	if IsVisible(followUp, nil) {
		t.Fatalf("follow-up visible before answering")
	}
	if !IsVisible(followUp, []models.QuestionResponse{answer(relocate.ID, models.TextValue("Yes"))}) {
		t.Fatalf("follow-up hidden after Yes")
	}
}

func TestBlankAssessment(t *testing.T) {
	a := BlankAssessment("job_1", "  ")
	if a.Title != "Assessment" || a.ID == "" || len(a.Sections) != 0 || a.Sections == nil {
		t.Fatalf("blank = %+v", a)
	}
	if a.CreatedAt.IsZero() || !a.CreatedAt.Equal(a.UpdatedAt) {
		t.Fatalf("timestamps = %v %v", a.CreatedAt, a.UpdatedAt)
	}
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewID("question")
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
