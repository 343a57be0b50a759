package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/hireflow/internal/models"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestSession(a models.Assessment, responses ResponseStore, drafts DraftStore) *Session {
	s := NewSession(a, responses, drafts)
	clock := &testClock{t: time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)}
	s.now = clock.now
	n := 0
	s.newID = func(prefix string) string {
		n++
		return prefix + "_" + string(rune('a'+n-1))
	}
	return s
}

func TestSessionStartsOnFirstAnswer(t *testing.T) {
	s := newTestSession(gatedAssessment(), nil, nil)
	assert.Equal(t, SessionNotStarted, s.State())
	_, ok := s.Response()
	assert.False(t, ok)

	require.NoError(t, s.UpdateResponse("q1", models.TextValue("No")))
	assert.Equal(t, SessionInProgress, s.State())
	r, ok := s.Response()
	require.True(t, ok)
	assert.Equal(t, "response_a", r.ID)
	assert.Equal(t, "asm", r.AssessmentID)
	assert.Equal(t, models.StatusInProgress, r.Status)
	assert.Nil(t, r.CompletedAt)
}

func TestSessionUpdateResponseReplaces(t *testing.T) {
	s := newTestSession(gatedAssessment(), nil, nil)
	require.NoError(t, s.UpdateResponse("q1", models.TextValue("No")))
	require.NoError(t, s.UpdateResponse("q1", models.TextValue("Yes")))
	r, _ := s.Response()
	require.Len(t, r.Responses, 1)
	assert.Equal(t, "Yes", r.Responses[0].Value.Text())

	assert.ErrorIs(t, s.UpdateResponse("ghost", models.TextValue("x")), ErrUnknownQuestion)
}

func TestSessionUpdateClearsViolations(t *testing.T) {
	s := newTestSession(gatedAssessment(), nil, nil)
	assert.False(t, s.ValidateSection(0))
	assert.Contains(t, s.Violations(), "q1")

	require.NoError(t, s.UpdateResponse("q1", models.TextValue("Yes")))
	assert.NotContains(t, s.Violations(), "q1")
}

func TestSessionValidateSectionOnlyChecksVisible(t *testing.T) {
	s := newTestSession(gatedAssessment(), nil, nil)
	require.NoError(t, s.UpdateResponse("q1", models.TextValue("No")))
	assert.True(t, s.ValidateSection(0), "hidden q2 must not block the section")

	require.NoError(t, s.UpdateResponse("q1", models.TextValue("Yes")))
	assert.False(t, s.ValidateSection(0))
	assert.Equal(t, []string{"This field is required"}, s.Violations()["q2"])
}

func TestSessionNavigation(t *testing.T) {
	s := newTestSession(gatedAssessment(), nil, nil)
	assert.ErrorIs(t, s.RetreatSection(), ErrNoPreviousSection)

	err := s.AdvanceSection()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Violations, "q1")
	assert.Equal(t, 0, s.CurrentSection())

	require.NoError(t, s.UpdateResponse("q1", models.TextValue("No")))
	require.NoError(t, s.AdvanceSection())
	assert.Equal(t, 1, s.CurrentSection())
	assert.True(t, s.IsLastSection())
	assert.ErrorIs(t, s.AdvanceSection(), ErrNoNextSection)

	require.NoError(t, s.RetreatSection())
	assert.Equal(t, 0, s.CurrentSection())
	r, _ := s.Response()
	assert.Equal(t, 0, r.CurrentSection)
}

func TestSessionRetreatDoesNotValidate(t *testing.T) {
	s := newTestSession(gatedAssessment(), nil, nil)
	require.NoError(t, s.UpdateResponse("q1", models.TextValue("No")))
	require.NoError(t, s.AdvanceSection())
	require.NoError(t, s.RetreatSection())
	assert.Empty(t, s.Violations())
}

func TestSessionProgress(t *testing.T) {
	s := newTestSession(gatedAssessment(), nil, nil)
	assert.Equal(t, 0.0, s.Progress())

	// q2 hidden: 1 of 2 visible answered
	require.NoError(t, s.UpdateResponse("q1", models.TextValue("No")))
	assert.InDelta(t, 50.0, s.Progress(), 1e-9)
	assert.InDelta(t, 100.0, s.SectionProgress(0), 1e-9)
	assert.Equal(t, 0.0, s.SectionProgress(1))

	// q2 visible: 1 of 3
	require.NoError(t, s.UpdateResponse("q1", models.TextValue("Yes")))
	assert.InDelta(t, 100.0/3, s.Progress(), 1e-9)

	require.NoError(t, s.UpdateResponse("q3", models.NumberValue(0)))
	assert.InDelta(t, 200.0/3, s.Progress(), 1e-9)
}

func TestSessionProgressWithoutVisibleQuestions(t *testing.T) {
	s := newTestSession(models.Assessment{ID: "empty", Sections: []models.Section{{ID: "s"}}}, nil, nil)
	assert.Equal(t, 0.0, s.Progress())
	assert.Equal(t, 0.0, s.SectionProgress(0))
	assert.Equal(t, 0.0, s.SectionProgress(5))
}

func requiredNumericAssessment() models.Assessment {
	return models.Assessment{ID: "asm_n", JobID: "job_n", Title: "Numbers", Sections: []models.Section{
		{ID: "s", Title: "Only", Questions: []models.Question{
			{ID: "years", Type: models.Numeric, Validation: models.ValidationRule{Required: true, Min: floatPtr(0), Max: floatPtr(100)}},
		}},
	}}
}

func TestSessionUpdateResponseChecksAnswerKind(t *testing.T) {
	s := newTestSession(requiredNumericAssessment(), nil, nil)
	err := s.UpdateResponse("years", models.TextValue("abc"))
	assert.ErrorIs(t, err, ErrAnswerType)
	_, started := s.Response()
	assert.False(t, started)

	require.NoError(t, s.UpdateResponse("years", models.TextValue(" 150 ")))
	r, _ := s.Response()
	require.Len(t, r.Responses, 1)
	assert.Equal(t, models.KindNumber, r.Responses[0].Value.Kind())
	assert.Equal(t, 150.0, r.Responses[0].Value.Number())

	_, err = s.Submit(context.Background())
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"Maximum value is 100"}, ve.Violations["years"])
}

func TestSessionSubmitScenario(t *testing.T) {
	ctx := context.Background()
	store := &stubResponses{}
	s := newTestSession(requiredNumericAssessment(), store, nil)

	_, err := s.Submit(ctx)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"This field is required"}, ve.Violations["years"])
	assert.NotEqual(t, SessionCompleted, s.State())
	assert.Empty(t, store.saved)

	require.NoError(t, s.UpdateResponse("years", models.NumberValue(150)))
	_, err = s.Submit(ctx)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"Maximum value is 100"}, ve.Violations["years"])
	r, _ := s.Response()
	assert.Nil(t, r.CompletedAt)

	require.NoError(t, s.UpdateResponse("years", models.NumberValue(50)))
	saved, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, s.State())
	assert.Equal(t, models.StatusCompleted, saved.Status)
	require.NotNil(t, saved.CompletedAt)
	assert.False(t, saved.CompletedAt.Before(saved.StartedAt))
	require.Len(t, store.saved, 1)
	assert.Equal(t, "asm_n", store.saved[0].AssessmentID)
}

func TestSessionHiddenRequiredQuestionDoesNotBlockSubmit(t *testing.T) {
	s := newTestSession(gatedAssessment(), &stubResponses{}, nil)
	require.NoError(t, s.UpdateResponse("q1", models.TextValue("No")))
	require.NoError(t, s.UpdateResponse("q3", models.NumberValue(4)))
	_, err := s.Submit(context.Background())
	require.NoError(t, err)
}

func TestSessionSubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &stubResponses{}
	pub := &stubPublisher{}
	s := newTestSession(requiredNumericAssessment(), store, nil)
	s.SetPublisher(pub)
	require.NoError(t, s.UpdateResponse("years", models.NumberValue(5)))
	require.NoError(t, s.SaveDraft(ctx))

	first, err := s.Submit(ctx)
	require.NoError(t, err)
	second, err := s.Submit(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.Len(t, store.saved, 2, "one draft and one final record")
	assert.Equal(t, store.saved[0].ID, store.saved[1].ID, "draft and final share the response id")
	assert.Len(t, pub.events, 1)

	assert.ErrorIs(t, s.UpdateResponse("years", models.NumberValue(6)), ErrSessionCompleted)
	assert.ErrorIs(t, s.SaveDraft(ctx), ErrSessionCompleted)
	assert.ErrorIs(t, s.AdvanceSection(), ErrSessionCompleted)
}

func TestSessionSubmitPublishesEvent(t *testing.T) {
	pub := &stubPublisher{}
	s := newTestSession(requiredNumericAssessment(), &stubResponses{}, nil)
	s.SetPublisher(pub)
	s.SetCandidate(Candidate{ID: "cand_1"})
	require.NoError(t, s.UpdateResponse("years", models.NumberValue(7)))
	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, QueueResponseCompleted, pub.events[0].queue)
	var ev ResponseCompletedEvent
	require.NoError(t, json.Unmarshal(pub.events[0].body, &ev))
	assert.Equal(t, "cand_1", ev.CandidateID)
	assert.Equal(t, 1, ev.Answered)
}

func TestSessionPublishFailureDoesNotFailSubmit(t *testing.T) {
	s := newTestSession(requiredNumericAssessment(), &stubResponses{}, nil)
	s.SetPublisher(&stubPublisher{fail: true})
	require.NoError(t, s.UpdateResponse("years", models.NumberValue(7)))
	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, s.State())
}

func TestSessionSubmitFailureKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	store := &stubResponses{fail: true}
	s := newTestSession(requiredNumericAssessment(), store, nil)
	require.NoError(t, s.UpdateResponse("years", models.NumberValue(42)))

	_, err := s.Submit(ctx)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Retryable())
	assert.Equal(t, SessionInProgress, s.State())
	r, _ := s.Response()
	assert.Nil(t, r.CompletedAt)
	assert.Equal(t, 42.0, r.Responses[0].Value.Number())

	store.fail = false
	saved, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.ID, saved.ID)
}

func TestSessionSaveDraftAndResume(t *testing.T) {
	ctx := context.Background()
	drafts := newStubDrafts()
	store := &stubResponses{}
	s := newTestSession(gatedAssessment(), store, drafts)
	s.SetCandidate(Candidate{ID: "cand_9", Email: "c@example.com"})

	require.NoError(t, s.SaveDraft(ctx), "saving before the first answer is a no-op")
	assert.Empty(t, store.saved)

	require.NoError(t, s.UpdateResponse("q1", models.TextValue("No")))
	require.NoError(t, s.AdvanceSection())
	require.NoError(t, s.SaveDraft(ctx))
	require.Len(t, store.saved, 1)
	assert.Equal(t, models.StatusInProgress, store.saved[0].Status)
	assert.Equal(t, 1, store.saved[0].CurrentSection)
	assert.Contains(t, drafts.data, "session:asm:cand_9")

	resumed := newTestSession(gatedAssessment(), store, drafts)
	resumed.SetCandidate(Candidate{ID: "cand_9"})
	ok, err := resumed.ResumeDraft(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, resumed.CurrentSection())
	r, _ := resumed.Response()
	orig, _ := s.Response()
	assert.Equal(t, orig.ID, r.ID)
	assert.Equal(t, "c@example.com", r.CandidateEmail)
	assert.Equal(t, "No", r.Responses[0].Value.Text())
}

func TestSessionSaveDraftFailureIsReported(t *testing.T) {
	drafts := newStubDrafts()
	drafts.fail = true
	s := newTestSession(gatedAssessment(), nil, drafts)
	require.NoError(t, s.UpdateResponse("q1", models.TextValue("Yes")))

	err := s.SaveDraft(context.Background())
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Your answers could not be saved. Please try again", pe.Message)
	r, _ := s.Response()
	assert.Len(t, r.Responses, 1)
}

func TestSessionSubmitClearsDraft(t *testing.T) {
	ctx := context.Background()
	drafts := newStubDrafts()
	s := newTestSession(requiredNumericAssessment(), &stubResponses{}, drafts)
	require.NoError(t, s.UpdateResponse("years", models.NumberValue(1)))
	require.NoError(t, s.SaveDraft(ctx))
	require.NotEmpty(t, drafts.data)

	_, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts.data)
}

func TestSessionResumeRefusesForeignOrCompleted(t *testing.T) {
	s := newTestSession(gatedAssessment(), nil, nil)
	assert.False(t, s.Resume(models.AssessmentResponse{ID: "r", AssessmentID: "other"}))
	assert.False(t, s.Resume(models.AssessmentResponse{ID: "r", AssessmentID: "asm", Status: models.StatusCompleted}))
	assert.True(t, s.Resume(models.AssessmentResponse{ID: "r", AssessmentID: "asm", Status: models.StatusInProgress, CurrentSection: 9}))
	assert.Equal(t, 1, s.CurrentSection())
}

func TestSessionLocalizedViolations(t *testing.T) {
	s := newTestSession(requiredNumericAssessment(), nil, nil)
	s.SetLocale("zh")
	_, err := s.Submit(context.Background())
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"此项为必填项"}, ve.Violations["years"])
	assert.Equal(t, "请先修正标记的答案再提交", ve.Message)
}
