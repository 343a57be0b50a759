package services

import (
	"strings"
	"time"

	"github.com/soaringjerry/hireflow/internal/models"
)

// BlankAssessment returns an active assessment for jobID with no sections.
func BlankAssessment(jobID, title string) models.Assessment {
	now := time.Now().UTC()
	if strings.TrimSpace(title) == "" {
		title = "Assessment"
	}
	return models.Assessment{
		ID:        NewID("assessment"),
		JobID:     jobID,
		Title:     title,
		Sections:  []models.Section{},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
}

// DefaultAssessment returns a three-section starting point for a job that
// uses every question type and one conditional follow-up.
func DefaultAssessment(jobID, jobTitle string) models.Assessment {
	title := "Candidate assessment"
	if t := strings.TrimSpace(jobTitle); t != "" {
		title = t + " assessment"
	}
	a := BlankAssessment(jobID, title)
	a.Description = "Tell us a little about yourself and your experience."

	relocateID := NewID("question")
	a.Sections = []models.Section{
		{
			ID:    NewID("section"),
			Title: "About you",
			Questions: []models.Question{
				{
					ID:         NewID("question"),
					Type:       models.ShortText,
					Text:       "Email address",
					Validation: models.ValidationRule{Required: true, Pattern: `^[^@\s]+@[^@\s]+\.[^@\s]+$`, CustomMessage: "Please enter a valid email address"},
				},
				{
					ID:         relocateID,
					Type:       models.SingleChoice,
					Text:       "Are you willing to relocate?",
					Options:    []string{"Yes", "No"},
					Validation: models.ValidationRule{Required: true},
				},
				{
					ID:          NewID("question"),
					Type:        models.ShortText,
					Text:        "Which cities would you consider?",
					Description: "Separate cities with commas.",
					Validation:  models.ValidationRule{Required: true, MaxLength: intRef(200)},
					Conditional: &models.ConditionalRule{QuestionID: relocateID, Operator: models.OpEquals, Value: models.TextValue("Yes")},
				},
			},
		},
		{
			ID:    NewID("section"),
			Title: "Experience",
			Questions: []models.Question{
				{
					ID:         NewID("question"),
					Type:       models.Numeric,
					Text:       "Years of professional experience",
					Validation: models.ValidationRule{Required: true, Min: floatRef(0), Max: floatRef(50)},
				},
				{
					ID:         NewID("question"),
					Type:       models.MultiChoice,
					Text:       "Which of these have you used in production?",
					Options:    []string{"Go", "PostgreSQL", "Redis", "RabbitMQ", "Kubernetes"},
					Validation: models.ValidationRule{MinLength: intRef(1)},
				},
				{
					ID:         NewID("question"),
					Type:       models.LongText,
					Text:       "Describe a project you are proud of",
					Validation: models.ValidationRule{Required: true, MinLength: intRef(50), MaxLength: intRef(2000)},
				},
			},
		},
		{
			ID:    NewID("section"),
			Title: "Documents",
			Questions: []models.Question{
				{
					ID:         NewID("question"),
					Type:       models.FileUpload,
					Text:       "Upload your resume",
					Validation: models.ValidationRule{Required: true},
				},
			},
		},
	}
	a.Renumber()
	return a
}

func intRef(n int) *int           { return &n }
func floatRef(f float64) *float64 { return &f }
