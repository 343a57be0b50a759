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
)

const (
	newQuestionText = "New question"
	copySuffix      = " (Copy)"
)

// BuilderState is everything the editor keeps between renders. Only
// Assessment is durable; the other fields are presentation state that is
// carried along in drafts.
type BuilderState struct {
	Assessment       models.Assessment `json:"assessment"`
	SelectedSection  string            `json:"selectedSection,omitempty"`
	SelectedQuestion string            `json:"selectedQuestion,omitempty"`
	PreviewMode      bool              `json:"previewMode"`
	UnsavedChanges   bool              `json:"unsavedChanges"`
}

// SectionPatch holds the section fields to overwrite; nil fields are kept.
type SectionPatch struct {
	Title       *string
	Description *string
}

// QuestionPatch holds the question fields to overwrite; nil fields are kept.
// ClearConditional removes the rule and wins over Conditional.
type QuestionPatch struct {
	Type             *models.QuestionType
	Text             *string
	Description      *string
	Options          *[]string
	Validation       *models.ValidationRule
	Conditional      *models.ConditionalRule
	ClearConditional bool
}

// AssessmentPatch holds the top-level fields to overwrite.
type AssessmentPatch struct {
	Title       *string
	Description *string
	IsActive    *bool
}

// Builder edits one assessment definition. Every edit works on a copy, keeps
// section and question order dense and refreshes UpdatedAt. Edits that name
// a section or question the assessment does not have change nothing.
//
// A Builder has a single writer and is not safe for concurrent use.
type Builder struct {
	state   BuilderState
	drafts  DraftStore
	metrics *metrics.Metrics
	log     *logrus.Entry
	now     func() time.Time
	newID   func(prefix string) string
}

func NewBuilder(a models.Assessment, drafts DraftStore) *Builder {
	return &Builder{
		state:  BuilderState{Assessment: a.Clone()},
		drafts: drafts,
		log:    logger.Default("builder"),
		now:    time.Now,
		newID:  NewID,
	}
}

func (b *Builder) SetLogger(l *logrus.Entry)     { b.log = l }
func (b *Builder) SetMetrics(m *metrics.Metrics) { b.metrics = m }

// Assessment returns a copy of the definition being edited.
func (b *Builder) Assessment() models.Assessment { return b.state.Assessment.Clone() }

// State returns a copy of the full builder state.
func (b *Builder) State() BuilderState {
	st := b.state
	st.Assessment = b.state.Assessment.Clone()
	return st
}

// apply runs fn on a copy of the assessment. When fn reports a change the
// copy is renumbered and stamped before it becomes the current definition.
// Conditionals left pointing at a deleted or later question are cleared.
func (b *Builder) apply(fn func(a *models.Assessment) bool) models.Assessment {
	next := b.state.Assessment.Clone()
	if !fn(&next) {
		return b.state.Assessment.Clone()
	}
	next.Renumber()
	if n := next.DropBrokenConditionals(); n > 0 {
		b.log.WithField("cleared", n).Debug("cleared conditionals with broken references")
	}
	next.UpdatedAt = b.now()
	b.state.Assessment = next
	b.state.UnsavedChanges = true
	return next.Clone()
}

func (b *Builder) AddSection() models.Assessment {
	var id string
	out := b.apply(func(a *models.Assessment) bool {
		id = b.newID("section")
		a.Sections = append(a.Sections, models.Section{
			ID:        id,
			Title:     fmt.Sprintf("Section %d", len(a.Sections)+1),
			Questions: []models.Question{},
		})
		return true
	})
	b.state.SelectedSection = id
	b.state.SelectedQuestion = ""
	return out
}

// AddQuestion appends a placeholder question of type t to the section.
// Choice types start with two placeholder options.
func (b *Builder) AddQuestion(sectionID string, t models.QuestionType) models.Assessment {
	if !models.ValidQuestionType(t) {
		return b.Assessment()
	}
	var id string
	out := b.apply(func(a *models.Assessment) bool {
		si := a.SectionIndex(sectionID)
		if si < 0 {
			return false
		}
		q := models.Question{ID: b.newID("question"), Type: t, Text: newQuestionText}
		if models.IsChoiceType(t) {
			q.Options = placeholderOptions()
		}
		id = q.ID
		a.Sections[si].Questions = append(a.Sections[si].Questions, q)
		return true
	})
	if id != "" {
		b.state.SelectedSection = sectionID
		b.state.SelectedQuestion = id
	}
	return out
}

func (b *Builder) DeleteSection(sectionID string) models.Assessment {
	out := b.apply(func(a *models.Assessment) bool {
		si := a.SectionIndex(sectionID)
		if si < 0 {
			return false
		}
		if b.state.SelectedQuestion != "" && a.Sections[si].QuestionIndex(b.state.SelectedQuestion) >= 0 {
			b.state.SelectedQuestion = ""
		}
		a.Sections = append(a.Sections[:si], a.Sections[si+1:]...)
		return true
	})
	if b.state.SelectedSection == sectionID {
		b.state.SelectedSection = ""
	}
	return out
}

func (b *Builder) DeleteQuestion(sectionID, questionID string) models.Assessment {
	out := b.apply(func(a *models.Assessment) bool {
		si := a.SectionIndex(sectionID)
		if si < 0 {
			return false
		}
		qs := a.Sections[si].Questions
		qi := a.Sections[si].QuestionIndex(questionID)
		if qi < 0 {
			return false
		}
		a.Sections[si].Questions = append(qs[:qi], qs[qi+1:]...)
		return true
	})
	if b.state.SelectedQuestion == questionID {
		b.state.SelectedQuestion = ""
	}
	return out
}

// DuplicateQuestion appends a copy of the question, with a new id and
// " (Copy)" added to its text, at the end of the same section.
func (b *Builder) DuplicateQuestion(sectionID, questionID string) models.Assessment {
	return b.apply(func(a *models.Assessment) bool {
		si := a.SectionIndex(sectionID)
		if si < 0 {
			return false
		}
		qi := a.Sections[si].QuestionIndex(questionID)
		if qi < 0 {
			return false
		}
		cp := a.Sections[si].Questions[qi].Clone()
		cp.ID = b.newID("question")
		cp.Text += copySuffix
		a.Sections[si].Questions = append(a.Sections[si].Questions, cp)
		return true
	})
}

// MoveQuestion removes the question from one section and appends it to
// another. Moving within one section sends the question to the end.
func (b *Builder) MoveQuestion(fromSectionID, toSectionID, questionID string) models.Assessment {
	return b.apply(func(a *models.Assessment) bool {
		from, to := a.SectionIndex(fromSectionID), a.SectionIndex(toSectionID)
		if from < 0 || to < 0 {
			return false
		}
		qi := a.Sections[from].QuestionIndex(questionID)
		if qi < 0 {
			return false
		}
		q := a.Sections[from].Questions[qi]
		qs := a.Sections[from].Questions
		a.Sections[from].Questions = append(qs[:qi], qs[qi+1:]...)
		a.Sections[to].Questions = append(a.Sections[to].Questions, q)
		return true
	})
}

func (b *Builder) UpdateSection(sectionID string, p SectionPatch) models.Assessment {
	return b.apply(func(a *models.Assessment) bool {
		si := a.SectionIndex(sectionID)
		if si < 0 {
			return false
		}
		if p.Title != nil {
			a.Sections[si].Title = *p.Title
		}
		if p.Description != nil {
			a.Sections[si].Description = *p.Description
		}
		return true
	})
}

// UpdateQuestion merges p into the question. Validation fields that do not
// apply to the resulting type are dropped. A conditional that does not name
// an earlier question or uses an unknown operator is ignored.
func (b *Builder) UpdateQuestion(sectionID, questionID string, p QuestionPatch) models.Assessment {
	return b.apply(func(a *models.Assessment) bool {
		si := a.SectionIndex(sectionID)
		if si < 0 {
			return false
		}
		qi := a.Sections[si].QuestionIndex(questionID)
		if qi < 0 {
			return false
		}
		q := &a.Sections[si].Questions[qi]

		if p.Type != nil && models.ValidQuestionType(*p.Type) && *p.Type != q.Type {
			q.Type = *p.Type
			if !models.IsChoiceType(q.Type) {
				q.Options = nil
			} else if len(q.Options) == 0 {
				q.Options = placeholderOptions()
			}
		}
		if p.Text != nil {
			q.Text = *p.Text
		}
		if p.Description != nil {
			q.Description = *p.Description
		}
		if p.Options != nil && models.IsChoiceType(q.Type) {
			q.Options = append([]string(nil), (*p.Options)...)
		}
		if p.Validation != nil {
			q.Validation = p.Validation.Clone()
		}
		q.Validation = models.SanitizeValidation(q.Type, q.Validation)

		switch {
		case p.ClearConditional:
			q.Conditional = nil
		case p.Conditional != nil && acceptsConditional(*a, questionID, *p.Conditional):
			c := *p.Conditional
			c.Value = c.Value.Clone()
			q.Conditional = &c
		}
		return true
	})
}

func acceptsConditional(a models.Assessment, questionID string, c models.ConditionalRule) bool {
	if _, ok := models.LookupOperator(c.Operator); !ok {
		return false
	}
	for _, q := range a.QuestionsBefore(questionID) {
		if q.ID == c.QuestionID {
			return true
		}
	}
	return false
}

func (b *Builder) UpdateAssessment(p AssessmentPatch) models.Assessment {
	return b.apply(func(a *models.Assessment) bool {
		if p.Title != nil {
			a.Title = *p.Title
		}
		if p.Description != nil {
			a.Description = *p.Description
		}
		if p.IsActive != nil {
			a.IsActive = *p.IsActive
		}
		return true
	})
}

// ConditionalCandidates lists the questions a conditional on questionID may
// reference: every question before it in flattened order.
func (b *Builder) ConditionalCandidates(questionID string) []models.Question {
	return b.state.Assessment.Clone().QuestionsBefore(questionID)
}

func (b *Builder) SelectSection(id string)  { b.state.SelectedSection = id }
func (b *Builder) SelectQuestion(id string) { b.state.SelectedQuestion = id }
func (b *Builder) SetPreviewMode(on bool)   { b.state.PreviewMode = on }

func (b *Builder) draftKey() string { return builderDraftKey(b.state.Assessment.JobID) }

func placeholderOptions() []string { return []string{"Option 1", "Option 2"} }

func draftErr(op string, err error) error {
	return &PersistenceError{Op: op, Message: "builder draft could not be stored", Err: err}
}

// SaveDraft stores the whole builder state under the job's draft key.
func (b *Builder) SaveDraft(ctx context.Context) error {
	if b.drafts == nil {
		return nil
	}
	body, err := json.Marshal(b.state)
	if err != nil {
		return err
	}
	err = b.drafts.Set(ctx, b.draftKey(), body)
	b.metrics.RecordDraftSave("builder", err)
	if err != nil {
		b.log.WithError(err).WithField("job_id", b.state.Assessment.JobID).Warn("save builder draft")
		return draftErr("save builder draft", err)
	}
	return nil
}

// LoadDraft replaces the state with the stored draft, if there is one.
func (b *Builder) LoadDraft(ctx context.Context) (bool, error) {
	if b.drafts == nil {
		return false, nil
	}
	body, err := b.drafts.Get(ctx, b.draftKey())
	if err != nil {
		return false, draftErr("load builder draft", err)
	}
	if body == nil {
		return false, nil
	}
	var st BuilderState
	if err := json.Unmarshal(body, &st); err != nil {
		b.log.WithError(err).WithField("job_id", b.state.Assessment.JobID).Warn("discarding unreadable builder draft")
		return false, nil
	}
	b.state = st
	return true, nil
}

func (b *Builder) ClearDraft(ctx context.Context) error {
	if b.drafts == nil {
		return nil
	}
	if err := b.drafts.Delete(ctx, b.draftKey()); err != nil {
		return draftErr("clear builder draft", err)
	}
	return nil
}

// Save checks the definition, upserts it for its job and clears the draft.
// On any failure the builder state is left as it was.
func (b *Builder) Save(ctx context.Context, store AssessmentStore) (*models.Assessment, error) {
	a := b.state.Assessment.Clone()
	if err := models.CheckAssessment(a); err != nil {
		return nil, err
	}
	saved, err := store.PutAssessment(ctx, a.JobID, a)
	if err != nil {
		return nil, &PersistenceError{Op: "save assessment", Message: "assessment could not be saved", Err: err}
	}
	b.state.Assessment = saved.Clone()
	b.state.UnsavedChanges = false
	if err := b.ClearDraft(ctx); err != nil {
		b.log.WithError(err).WithField("job_id", a.JobID).Warn("clear builder draft after save")
	}
	return saved, nil
}
