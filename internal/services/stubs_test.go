package services

import (
	"context"
	"errors"
	"sync"

	"github.com/soaringjerry/hireflow/internal/models"
)

var errStoreDown = errors.New("store unavailable")

type stubDrafts struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func newStubDrafts() *stubDrafts { return &stubDrafts{data: map[string][]byte{}} }

func (s *stubDrafts) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	b, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

func (s *stubDrafts) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *stubDrafts) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	delete(s.data, key)
	return nil
}

type stubAssessments struct {
	byJob map[string]models.Assessment
	fail  bool
}

func (s *stubAssessments) GetAssessment(_ context.Context, jobID string) (*models.Assessment, error) {
	if s.fail {
		return nil, errStoreDown
	}
	a, ok := s.byJob[jobID]
	if !ok {
		return nil, nil
	}
	cp := a.Clone()
	return &cp, nil
}

func (s *stubAssessments) PutAssessment(_ context.Context, jobID string, a models.Assessment) (*models.Assessment, error) {
	if s.fail {
		return nil, errStoreDown
	}
	if s.byJob == nil {
		s.byJob = map[string]models.Assessment{}
	}
	a.JobID = jobID
	s.byJob[jobID] = a.Clone()
	return &a, nil
}

type stubResponses struct {
	saved []models.AssessmentResponse
	fail  bool
}

func (s *stubResponses) SaveResponse(_ context.Context, assessmentID string, r models.AssessmentResponse) (*models.AssessmentResponse, error) {
	if s.fail {
		return nil, errStoreDown
	}
	r.AssessmentID = assessmentID
	s.saved = append(s.saved, r.Clone())
	return &r, nil
}

type published struct {
	queue string
	body  []byte
}

type stubPublisher struct {
	events []published
	fail   bool
}

func (s *stubPublisher) Publish(_ context.Context, queue string, body []byte) error {
	if s.fail {
		return errStoreDown
	}
	s.events = append(s.events, published{queue: queue, body: body})
	return nil
}

type stubRepo struct {
	assessments map[string]models.Assessment // by job
	responses   map[string]models.AssessmentResponse
}

func newStubRepo() *stubRepo {
	return &stubRepo{assessments: map[string]models.Assessment{}, responses: map[string]models.AssessmentResponse{}}
}

func (s *stubRepo) GetAssessment(_ context.Context, jobID string) (*models.Assessment, error) {
	a, ok := s.assessments[jobID]
	if !ok {
		return nil, nil
	}
	cp := a.Clone()
	return &cp, nil
}

func (s *stubRepo) GetAssessmentByID(_ context.Context, id string) (*models.Assessment, error) {
	for _, a := range s.assessments {
		if a.ID == id {
			cp := a.Clone()
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) PutAssessment(_ context.Context, jobID string, a models.Assessment) (*models.Assessment, error) {
	s.assessments[jobID] = a.Clone()
	return &a, nil
}

func (s *stubRepo) SaveResponse(_ context.Context, assessmentID string, r models.AssessmentResponse) (*models.AssessmentResponse, error) {
	r.AssessmentID = assessmentID
	s.responses[r.ID] = r.Clone()
	return &r, nil
}

func (s *stubRepo) GetResponse(_ context.Context, id string) (*models.AssessmentResponse, error) {
	r, ok := s.responses[id]
	if !ok {
		return nil, nil
	}
	cp := r.Clone()
	return &cp, nil
}

func (s *stubRepo) ListResponses(_ context.Context, assessmentID string) ([]models.AssessmentResponse, error) {
	out := []models.AssessmentResponse{}
	for _, r := range s.responses {
		if r.AssessmentID == assessmentID {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}
