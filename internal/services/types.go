package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/soaringjerry/hireflow/internal/models"
)

type ErrorCode string

const (
	ErrorInvalid     ErrorCode = "invalid"
	ErrorNotFound    ErrorCode = "not_found"
	ErrorConflict    ErrorCode = "conflict"
	ErrorForbidden   ErrorCode = "forbidden"
	ErrorUnavailable ErrorCode = "unavailable"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrAssessmentNotFound is returned when a job has no assessment definition.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrSessionCompleted is returned when a completed session is edited.
	ErrSessionCompleted = errors.New("assessment already submitted")
	// ErrNoNextSection is returned by AdvanceSection on the last section.
	ErrNoNextSection = errors.New("already on the last section")
	// ErrNoPreviousSection is returned by RetreatSection on the first section.
	ErrNoPreviousSection = errors.New("already on the first section")
	// ErrUnknownQuestion is returned when an answer targets a question the assessment does not have.
	ErrUnknownQuestion = errors.New("question not found in assessment")
	// ErrAnswerType is returned when an answer's shape does not fit its question type.
	ErrAnswerType = errors.New("answer does not match question type")
)

// ValidationError carries the violation messages that blocked navigation or submission.
// It is expected control flow, not a failure of the service.
type ValidationError struct {
	Violations map[string][]string
	Message    string
}

func (e *ValidationError) Error() string {
	ids := make([]string, 0, len(e.Violations))
	for id := range e.Violations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("validation failed for %d question(s): %s", len(ids), strings.Join(ids, ", "))
}

// PersistenceError wraps a store failure. In-memory state is left as it was,
// so the caller can retry the same operation.
type PersistenceError struct {
	Op      string
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call may succeed. Cancelled
// contexts are not retried.
func (e *PersistenceError) Retryable() bool {
	return !errors.Is(e.Err, context.Canceled)
}

// AssessmentStore reads and upserts assessment definitions keyed by job.
// GetAssessment returns (nil, nil) when the job has no assessment.
type AssessmentStore interface {
	GetAssessment(ctx context.Context, jobID string) (*models.Assessment, error)
	PutAssessment(ctx context.Context, jobID string, a models.Assessment) (*models.Assessment, error)
}

// ResponseStore persists draft and final responses. Drafts and submissions
// are told apart by Status.
type ResponseStore interface {
	SaveResponse(ctx context.Context, assessmentID string, r models.AssessmentResponse) (*models.AssessmentResponse, error)
}

// DraftStore is the local key-value cache for builder and session drafts.
// Get returns (nil, nil) for a missing key.
type DraftStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher announces finished responses to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

func builderDraftKey(jobID string) string { return "builder:" + jobID }

// sessionDraftKey scopes session drafts to the candidate when one is known.
func sessionDraftKey(assessmentID, candidateID string) string {
	if candidateID == "" {
		return "session:" + assessmentID
	}
	return "session:" + assessmentID + ":" + candidateID
}
