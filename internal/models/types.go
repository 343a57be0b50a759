package models

import "time"

// QuestionType identifies how a question is answered.
type QuestionType string

const (
	SingleChoice QuestionType = "single-choice"
	MultiChoice  QuestionType = "multi-choice"
	ShortText    QuestionType = "short-text"
	LongText     QuestionType = "long-text"
	Numeric      QuestionType = "numeric"
	FileUpload   QuestionType = "file-upload"
)

// ValidationRule holds per-question answer constraints. Nil pointers mean "not set".
type ValidationRule struct {
	Required      bool     `json:"required,omitempty"`
	MinLength     *int     `json:"minLength,omitempty" validate:"omitempty,gte=0"`
	MaxLength     *int     `json:"maxLength,omitempty" validate:"omitempty,gte=0"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Pattern       string   `json:"pattern,omitempty" validate:"omitempty,pattern_syntax"`
	CustomMessage string   `json:"customMessage,omitempty"`
}

// ConditionalRule gates a question on the answer to an earlier question.
type ConditionalRule struct {
	QuestionID string   `json:"questionId" validate:"required"`
	Operator   Operator `json:"operator" validate:"operator"`
	Value      Value    `json:"value" validate:"-"`
}

// Question is a single prompt inside a section.
type Question struct {
	ID          string           `json:"id" validate:"required"`
	Type        QuestionType     `json:"type" validate:"question_type"`
	Text        string           `json:"text"`
	Description string           `json:"description,omitempty"`
	Options     []string         `json:"options,omitempty"`
	Validation  ValidationRule   `json:"validation"`
	Conditional *ConditionalRule `json:"conditional,omitempty" validate:"omitempty"`
	Order       int              `json:"order" validate:"gte=0"`
}

// Section is an ordered group of questions.
type Section struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions" validate:"dive"`
	Order       int        `json:"order" validate:"gte=0"`
}

// Assessment is a questionnaire definition attached to a job.
type Assessment struct {
	ID          string    `json:"id" validate:"required"`
	JobID       string    `json:"jobId" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	Sections    []Section `json:"sections" validate:"dive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	IsActive    bool      `json:"isActive"`
}

// QuestionResponse is the current answer to one question.
type QuestionResponse struct {
	QuestionID string    `json:"questionId"`
	Value      Value     `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// ResponseStatus is the lifecycle state of an AssessmentResponse.
type ResponseStatus string

const (
	StatusInProgress ResponseStatus = "in-progress"
	StatusCompleted  ResponseStatus = "completed"
	StatusAbandoned  ResponseStatus = "abandoned"
)

// AssessmentResponse is one candidate's answers to an assessment.
type AssessmentResponse struct {
	ID             string             `json:"id"`
	AssessmentID   string             `json:"assessmentId"`
	CandidateID    string             `json:"candidateId,omitempty"`
	CandidateName  string             `json:"candidateName,omitempty"`
	CandidateEmail string             `json:"candidateEmail,omitempty"`
	Responses      []QuestionResponse `json:"responses"`
	StartedAt      time.Time          `json:"startedAt"`
	CompletedAt    *time.Time         `json:"completedAt,omitempty"`
	Status         ResponseStatus     `json:"status"`
	CurrentSection int                `json:"currentSection,omitempty"`
}

// Find returns the response recorded for questionID.
func (r *AssessmentResponse) Find(questionID string) (QuestionResponse, bool) {
	return FindResponse(r.Responses, questionID)
}

// Upsert replaces the answer for qr.QuestionID or appends it.
func (r *AssessmentResponse) Upsert(qr QuestionResponse) {
	for i := range r.Responses {
		if r.Responses[i].QuestionID == qr.QuestionID {
			r.Responses[i] = qr
			return
		}
	}
	r.Responses = append(r.Responses, qr)
}

// Clone returns a deep copy of r.
func (r AssessmentResponse) Clone() AssessmentResponse {
	out := r
	if r.Responses != nil {
		out.Responses = make([]QuestionResponse, len(r.Responses))
		for i, qr := range r.Responses {
			qr.Value = qr.Value.Clone()
			out.Responses[i] = qr
		}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// FindResponse looks up the answer for questionID in rs.
func FindResponse(rs []QuestionResponse, questionID string) (QuestionResponse, bool) {
	for _, qr := range rs {
		if qr.QuestionID == questionID {
			return qr, true
		}
	}
	return QuestionResponse{}, false
}
