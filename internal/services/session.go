package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/hireflow/internal/logger"
	"github.com/soaringjerry/hireflow/internal/metrics"
	"github.com/soaringjerry/hireflow/internal/models"
	"github.com/soaringjerry/hireflow/internal/utils"
)

// SessionState is where a candidate is in the assessment lifecycle.
type SessionState string

const (
	SessionNotStarted SessionState = "not-started"
	SessionInProgress SessionState = "in-progress"
	SessionCompleted  SessionState = "completed"
)

// Candidate identifies who is answering. All fields are optional.
type Candidate struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Session drives one candidate through an assessment.
//
// The backing AssessmentResponse is created on the first interaction and its
// id is kept for every later draft save and the final submit, so repeated
// saves upsert one record. A Session has a single writer and is not safe for
// concurrent use.
type Session struct {
	assessment models.Assessment
	response   *models.AssessmentResponse
	current    int
	violations map[string][]string
	candidate  Candidate
	validator  Validator

	responses ResponseStore
	drafts    DraftStore
	events    EventPublisher
	metrics   *metrics.Metrics
	log       *logrus.Entry
	now       func() time.Time
	newID     func(prefix string) string
}

// NewSession starts a session on a. responses receives draft and final
// records; drafts caches the session locally. Either may be nil.
func NewSession(a models.Assessment, responses ResponseStore, drafts DraftStore) *Session {
	return &Session{
		assessment: a.Clone(),
		violations: map[string][]string{},
		responses:  responses,
		drafts:     drafts,
		log:        logger.Default("session"),
		now:        time.Now,
		newID:      NewID,
	}
}

func (s *Session) SetPublisher(p EventPublisher) { s.events = p }
func (s *Session) SetMetrics(m *metrics.Metrics) { s.metrics = m }
func (s *Session) SetLogger(l *logrus.Entry)     { s.log = l }
func (s *Session) SetLocale(locale string)       { s.validator.Locale = locale }
func (s *Session) SetCandidate(c Candidate)      { s.candidate = c }
func (s *Session) Assessment() models.Assessment { return s.assessment.Clone() }
func (s *Session) CurrentSection() int           { return s.current }
func (s *Session) SectionCount() int             { return len(s.assessment.Sections) }
func (s *Session) IsLastSection() bool           { return s.current >= len(s.assessment.Sections)-1 }
func (s *Session) draftKey() string              { return sessionDraftKey(s.assessment.ID, s.candidate.ID) }

func (s *Session) answers() []models.QuestionResponse {
	if s.response == nil {
		return nil
	}
	return s.response.Responses
}

func (s *Session) State() SessionState {
	switch {
	case s.response == nil:
		return SessionNotStarted
	case s.response.Status == models.StatusCompleted:
		return SessionCompleted
	default:
		return SessionInProgress
	}
}

// Response returns a copy of the backing record, if one exists yet.
func (s *Session) Response() (models.AssessmentResponse, bool) {
	if s.response == nil {
		return models.AssessmentResponse{}, false
	}
	return s.response.Clone(), true
}

// Violations returns the messages recorded by the last validation, keyed by
// question id.
func (s *Session) Violations() map[string][]string {
	out := make(map[string][]string, len(s.violations))
	for id, msgs := range s.violations {
		out[id] = append([]string(nil), msgs...)
	}
	return out
}

// VisibleQuestions returns the visible questions of the current section.
func (s *Session) VisibleQuestions() []models.Question {
	return VisibleSectionQuestions(s.assessment, s.current, s.answers())
}

func (s *Session) begin() {
	if s.response != nil {
		return
	}
	s.response = &models.AssessmentResponse{
		ID:             s.newID("response"),
		AssessmentID:   s.assessment.ID,
		CandidateID:    s.candidate.ID,
		CandidateName:  s.candidate.Name,
		CandidateEmail: s.candidate.Email,
		Responses:      []models.QuestionResponse{},
		StartedAt:      s.now(),
		Status:         models.StatusInProgress,
	}
}

// UpdateResponse records the answer to questionID, replacing any earlier
// answer, and clears the violations recorded for that question. Numeric text
// for a numeric question is stored as a number; other kind mismatches are
// rejected with ErrAnswerType.
func (s *Session) UpdateResponse(questionID string, v models.Value) error {
	if s.State() == SessionCompleted {
		return ErrSessionCompleted
	}
	q, ok := s.assessment.FindQuestion(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	v, ok = models.CoerceFor(q.Type, v)
	if !ok {
		return fmt.Errorf("%w: %s wants %s, got %s", ErrAnswerType, questionID, models.KindFor(q.Type), v.Kind())
	}
	s.begin()
	s.response.Upsert(models.QuestionResponse{QuestionID: questionID, Value: v.Clone(), Timestamp: s.now()})
	delete(s.violations, questionID)
	return nil
}

// ValidateSection checks the visible questions of the section at index,
// records their violations and reports whether the section is valid.
func (s *Session) ValidateSection(index int) bool {
	if index >= 0 && index < len(s.assessment.Sections) {
		for _, q := range s.assessment.Sections[index].Questions {
			delete(s.violations, q.ID)
		}
	}
	found := s.validator.ValidateSection(s.assessment, index, s.answers())
	for id, msgs := range found {
		s.violations[id] = msgs
	}
	return len(found) == 0
}

// AdvanceSection moves to the next section when the current one is valid.
func (s *Session) AdvanceSection() error {
	if s.State() == SessionCompleted {
		return ErrSessionCompleted
	}
	if s.IsLastSection() {
		return ErrNoNextSection
	}
	if !s.ValidateSection(s.current) {
		s.metrics.RecordValidationFailure("section")
		return &ValidationError{
			Violations: s.sectionViolations(s.current),
			Message:    utils.T(s.validator.Locale, "submit.failed"),
		}
	}
	s.moveTo(s.current + 1)
	return nil
}

// RetreatSection moves back one section without validating.
func (s *Session) RetreatSection() error {
	if s.State() == SessionCompleted {
		return ErrSessionCompleted
	}
	if s.current == 0 {
		return ErrNoPreviousSection
	}
	s.moveTo(s.current - 1)
	return nil
}

func (s *Session) moveTo(index int) {
	s.current = index
	if s.response != nil {
		s.response.CurrentSection = index
	}
}

func (s *Session) sectionViolations(index int) map[string][]string {
	out := map[string][]string{}
	for _, q := range s.assessment.Sections[index].Questions {
		if msgs, ok := s.violations[q.ID]; ok {
			out[q.ID] = append([]string(nil), msgs...)
		}
	}
	return out
}

// Progress is the percentage of visible questions answered across the
// assessment; 0 when nothing is visible.
func (s *Session) Progress() float64 {
	return s.progress(VisibleQuestions(s.assessment, s.answers()))
}

// SectionProgress is Progress restricted to the section at index.
func (s *Session) SectionProgress(index int) float64 {
	return s.progress(VisibleSectionQuestions(s.assessment, index, s.answers()))
}

func (s *Session) progress(visible []models.Question) float64 {
	if len(visible) == 0 {
		return 0
	}
	answered := 0
	for _, q := range visible {
		if r, ok := models.FindResponse(s.answers(), q.ID); ok && !r.Value.IsEmpty() {
			answered++
		}
	}
	return float64(answered) / float64(len(visible)) * 100
}

// Submit validates every visible question and, when all pass, stores the
// completed record. A rejected or failed submit leaves the session as it
// was. Submitting a completed session returns the stored record again.
func (s *Session) Submit(ctx context.Context) (*models.AssessmentResponse, error) {
	if s.State() == SessionCompleted {
		r := s.response.Clone()
		return &r, nil
	}

	found := s.validator.ValidateAll(s.assessment, s.answers())
	if len(found) > 0 {
		s.violations = found
		s.metrics.RecordSubmission("invalid")
		s.metrics.RecordValidationFailure("submit")
		return nil, &ValidationError{
			Violations: s.Violations(),
			Message:    utils.T(s.validator.Locale, "submit.failed"),
		}
	}

	s.begin()
	final := s.response.Clone()
	completedAt := s.now()
	if completedAt.Before(final.StartedAt) {
		completedAt = final.StartedAt
	}
	final.CompletedAt = &completedAt
	final.Status = models.StatusCompleted
	final.CurrentSection = s.current

	saved := &final
	if s.responses != nil {
		var err error
		saved, err = s.responses.SaveResponse(ctx, s.assessment.ID, final)
		if err != nil {
			s.metrics.RecordSubmission("failed")
			s.log.WithError(err).WithField("response_id", final.ID).Warn("submit response")
			return nil, &PersistenceError{Op: "submit response", Message: utils.T(s.validator.Locale, "persist.failed"), Err: err}
		}
	}

	s.response = &final
	s.violations = map[string][]string{}
	s.metrics.RecordSubmission("completed")
	if err := s.ClearDraft(ctx); err != nil {
		s.log.WithError(err).WithField("response_id", final.ID).Warn("clear session draft after submit")
	}
	publishCompleted(ctx, s.events, s.log, final)

	out := saved.Clone()
	return &out, nil
}

// sessionDraft is what the local draft cache holds for a session.
type sessionDraft struct {
	Response       models.AssessmentResponse `json:"response"`
	CurrentSection int                       `json:"currentSection"`
}

// SaveDraft persists the answers so far as an in-progress record, both to
// the local draft cache and the response store. It does not validate. Before
// the first answer there is nothing to save and it returns nil.
func (s *Session) SaveDraft(ctx context.Context) error {
	if s.response == nil {
		return nil
	}
	if s.State() == SessionCompleted {
		return ErrSessionCompleted
	}
	draft := s.response.Clone()
	draft.Status = models.StatusInProgress
	draft.CurrentSection = s.current

	err := s.saveDraft(ctx, draft)
	s.metrics.RecordDraftSave("session", err)
	if err != nil {
		s.log.WithError(err).WithField("response_id", draft.ID).Warn("save session draft")
		return &PersistenceError{Op: "save draft", Message: utils.T(s.validator.Locale, "persist.failed"), Err: err}
	}
	return nil
}

func (s *Session) saveDraft(ctx context.Context, draft models.AssessmentResponse) error {
	if s.drafts != nil {
		body, err := json.Marshal(sessionDraft{Response: draft, CurrentSection: draft.CurrentSection})
		if err != nil {
			return err
		}
		if err := s.drafts.Set(ctx, s.draftKey(), body); err != nil {
			return err
		}
	}
	if s.responses != nil {
		if _, err := s.responses.SaveResponse(ctx, s.assessment.ID, draft); err != nil {
			return err
		}
	}
	return nil
}

// ResumeDraft restores answers and position from the local draft cache.
// It reports whether a draft was found.
func (s *Session) ResumeDraft(ctx context.Context) (bool, error) {
	if s.drafts == nil || s.State() == SessionCompleted {
		return false, nil
	}
	body, err := s.drafts.Get(ctx, s.draftKey())
	if err != nil {
		return false, &PersistenceError{Op: "load draft", Message: utils.T(s.validator.Locale, "persist.failed"), Err: err}
	}
	if body == nil {
		return false, nil
	}
	var d sessionDraft
	if err := json.Unmarshal(body, &d); err != nil {
		s.log.WithError(err).WithField("assessment_id", s.assessment.ID).Warn("discarding unreadable session draft")
		return false, nil
	}
	return s.Resume(d.Response), nil
}

// Resume continues from a stored in-progress record. Records of another
// assessment and completed records are refused.
func (s *Session) Resume(r models.AssessmentResponse) bool {
	if s.State() == SessionCompleted || r.AssessmentID != s.assessment.ID || r.Status == models.StatusCompleted {
		return false
	}
	cp := r.Clone()
	cp.Status = models.StatusInProgress
	if cp.Responses == nil {
		cp.Responses = []models.QuestionResponse{}
	}
	s.response = &cp
	s.candidate = Candidate{ID: cp.CandidateID, Name: cp.CandidateName, Email: cp.CandidateEmail}
	s.current = clampSection(cp.CurrentSection, len(s.assessment.Sections))
	s.violations = map[string][]string{}
	return true
}

func clampSection(i, n int) int {
	if i < 0 || n == 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (s *Session) ClearDraft(ctx context.Context) error {
	if s.drafts == nil {
		return nil
	}
	return s.drafts.Delete(ctx, s.draftKey())
}
