package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/hireflow/internal/logger"
	"github.com/soaringjerry/hireflow/internal/metrics"
	"github.com/soaringjerry/hireflow/internal/models"
)

// ResponseLister reads stored responses. GetResponse returns (nil, nil) when
// the id is unknown.
type ResponseLister interface {
	ListResponses(ctx context.Context, assessmentID string) ([]models.AssessmentResponse, error)
	GetResponse(ctx context.Context, id string) (*models.AssessmentResponse, error)
}

// AssessmentRepository is everything the HTTP layer needs from storage.
// GetAssessmentByID returns (nil, nil) when the id is unknown.
type AssessmentRepository interface {
	AssessmentStore
	ResponseStore
	ResponseLister
	GetAssessmentByID(ctx context.Context, id string) (*models.Assessment, error)
}

// AssessmentService is the persistence collaborator behind the REST API:
// definitions are upserted per job and responses are upserted by id.
// Answers are not validated here; the session validates before submitting.
type AssessmentService struct {
	store   AssessmentRepository
	events  EventPublisher
	metrics *metrics.Metrics
	log     *logrus.Entry
	now     func() time.Time
	newID   func(prefix string) string
}

func NewAssessmentService(store AssessmentRepository, events EventPublisher) *AssessmentService {
	return &AssessmentService{
		store:  store,
		events: events,
		log:    logger.Default("assessments"),
		now:    time.Now,
		newID:  NewID,
	}
}

func (s *AssessmentService) SetLogger(l *logrus.Entry)     { s.log = l }
func (s *AssessmentService) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *AssessmentService) GetForJob(ctx context.Context, jobID string) (*models.Assessment, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, NewInvalidError("job id required")
	}
	a, err := s.store.GetAssessment(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError(ErrAssessmentNotFound.Error())
	}
	return a, nil
}

func (s *AssessmentService) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	a, err := s.store.GetAssessmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError(ErrAssessmentNotFound.Error())
	}
	return a, nil
}

// PutForJob replaces the job's definition. Order fields are normalized, the
// original id and creation time are kept, and the result must pass
// CheckAssessment.
func (s *AssessmentService) PutForJob(ctx context.Context, jobID string, a models.Assessment) (*models.Assessment, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, NewInvalidError("job id required")
	}
	existing, err := s.store.GetAssessment(ctx, jobID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	a.JobID = jobID
	a.Normalize()
	switch {
	case existing != nil:
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
	case a.ID == "":
		a.ID = s.newID("assessment")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Sections == nil {
		a.Sections = []models.Section{}
	}
	if err := models.CheckAssessment(a); err != nil {
		return nil, err
	}
	saved, err := s.store.PutAssessment(ctx, jobID, a)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"job_id": jobID, "assessment_id": saved.ID}).Info("assessment saved")
	return saved, nil
}

// GenerateTemplate stores the default template for the job. An existing
// definition is only replaced when overwrite is set.
func (s *AssessmentService) GenerateTemplate(ctx context.Context, jobID, jobTitle string, overwrite bool) (*models.Assessment, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, NewInvalidError("job id required")
	}
	existing, err := s.store.GetAssessment(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !overwrite {
		return nil, NewConflictError("job already has an assessment")
	}
	return s.PutForJob(ctx, jobID, DefaultAssessment(jobID, jobTitle))
}

// RecordResponse upserts a draft or final response. A completed response
// cannot go back to in-progress, and re-posting a completed response returns
// the stored record unchanged.
func (s *AssessmentService) RecordResponse(ctx context.Context, assessmentID string, r models.AssessmentResponse) (*models.AssessmentResponse, error) {
	if _, err := s.GetByID(ctx, assessmentID); err != nil {
		return nil, err
	}
	switch r.Status {
	case "":
		r.Status = models.StatusInProgress
	case models.StatusInProgress, models.StatusCompleted, models.StatusAbandoned:
	default:
		return nil, NewInvalidError("unknown response status " + string(r.Status))
	}
	now := s.now().UTC()
	if r.ID == "" {
		r.ID = s.newID("response")
	}
	r.AssessmentID = assessmentID
	if r.StartedAt.IsZero() {
		r.StartedAt = now
	}
	if r.Responses == nil {
		r.Responses = []models.QuestionResponse{}
	}

	prev, err := s.store.GetResponse(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		if prev.AssessmentID != assessmentID {
			return nil, NewConflictError("response belongs to another assessment")
		}
		if prev.Status == models.StatusCompleted {
			if r.Status == models.StatusCompleted {
				return prev, nil
			}
			return nil, NewConflictError("response already completed")
		}
	}

	if r.Status == models.StatusCompleted {
		if r.CompletedAt == nil {
			r.CompletedAt = &now
		}
		if r.CompletedAt.Before(r.StartedAt) {
			return nil, NewInvalidError("completedAt must not be before startedAt")
		}
	} else {
		r.CompletedAt = nil
	}

	saved, err := s.store.SaveResponse(ctx, assessmentID, r)
	if err != nil {
		return nil, err
	}
	if saved.Status == models.StatusCompleted {
		s.metrics.RecordSubmission("completed")
		publishCompleted(ctx, s.events, s.log, *saved)
	} else {
		s.metrics.RecordDraftSave("response", nil)
	}
	return saved, nil
}

func (s *AssessmentService) ListResponses(ctx context.Context, assessmentID string) ([]models.AssessmentResponse, error) {
	if _, err := s.GetByID(ctx, assessmentID); err != nil {
		return nil, err
	}
	return s.store.ListResponses(ctx, assessmentID)
}

func (s *AssessmentService) GetResponse(ctx context.Context, id string) (*models.AssessmentResponse, error) {
	r, err := s.store.GetResponse(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, NewNotFoundError("response not found")
	}
	return r, nil
}
