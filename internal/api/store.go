package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/soaringjerry/hireflow/internal/models"
)

// memoryStore keeps everything in process memory. It backs the server when
// no SQLite path is configured and is the source for legacy imports.
type memoryStore struct {
	mu          sync.RWMutex
	assessments map[string]*models.Assessment
	jobIndex    map[string]string
	responses   map[string]*models.AssessmentResponse
	drafts      map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		assessments: map[string]*models.Assessment{},
		jobIndex:    map[string]string{},
		responses:   map[string]*models.AssessmentResponse{},
		drafts:      map[string][]byte{},
	}
}

// NewMemoryStore returns an empty in-process Store.
func NewMemoryStore() Store { return newMemoryStore() }

func (s *memoryStore) GetAssessment(_ context.Context, jobID string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.assessments[s.jobIndex[jobID]]
	if a == nil {
		return nil, nil
	}
	out := a.Clone()
	return &out, nil
}

func (s *memoryStore) GetAssessmentByID(_ context.Context, id string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.assessments[id]
	if a == nil {
		return nil, nil
	}
	out := a.Clone()
	return &out, nil
}

func (s *memoryStore) PutAssessment(_ context.Context, jobID string, a models.Assessment) (*models.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.JobID = jobID
	if prev, ok := s.jobIndex[jobID]; ok && prev != a.ID {
		delete(s.assessments, prev)
	}
	stored := a.Clone()
	s.assessments[a.ID] = &stored
	s.jobIndex[jobID] = a.ID
	out := a.Clone()
	return &out, nil
}

func (s *memoryStore) SaveResponse(_ context.Context, assessmentID string, r models.AssessmentResponse) (*models.AssessmentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.AssessmentID = assessmentID
	stored := r.Clone()
	s.responses[r.ID] = &stored
	out := r.Clone()
	return &out, nil
}

func (s *memoryStore) GetResponse(_ context.Context, id string) (*models.AssessmentResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.responses[id]
	if r == nil {
		return nil, nil
	}
	out := r.Clone()
	return &out, nil
}

func (s *memoryStore) ListResponses(_ context.Context, assessmentID string) ([]models.AssessmentResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.AssessmentResponse{}
	for _, r := range s.responses {
		if r.AssessmentID == assessmentID {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.drafts[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key] = append([]byte(nil), value...)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}

// LegacySnapshot is the JSON export of the browser-side database:
// every assessment definition and every stored response.
type LegacySnapshot struct {
	Assessments []models.Assessment         `json:"assessments"`
	Responses   []models.AssessmentResponse `json:"responses"`
}

// LoadLegacySnapshot reads a snapshot file. An empty path reports
// os.ErrNotExist so callers can treat "not configured" like "absent".
func LoadLegacySnapshot(path string) (*LegacySnapshot, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap LegacySnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// CopySnapshot writes every definition and response of snap into dst.
// Definitions without a job id are skipped since they cannot be addressed.
func CopySnapshot(ctx context.Context, snap *LegacySnapshot, dst Store) (assessments, responses int, err error) {
	if snap == nil {
		return 0, 0, errors.New("nil snapshot")
	}
	for _, a := range snap.Assessments {
		if a.ID == "" || a.JobID == "" {
			continue
		}
		a.Normalize()
		if _, err := dst.PutAssessment(ctx, a.JobID, a); err != nil {
			return assessments, responses, fmt.Errorf("import assessment %s: %w", a.ID, err)
		}
		assessments++
	}
	for _, r := range snap.Responses {
		if r.ID == "" || r.AssessmentID == "" {
			continue
		}
		if r.Status == "" {
			r.Status = models.StatusInProgress
		}
		if r.Responses == nil {
			r.Responses = []models.QuestionResponse{}
		}
		if _, err := dst.SaveResponse(ctx, r.AssessmentID, r); err != nil {
			return assessments, responses, fmt.Errorf("import response %s: %w", r.ID, err)
		}
		responses++
	}
	return assessments, responses, nil
}
