package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/soaringjerry/hireflow/internal/models"
	"github.com/soaringjerry/hireflow/internal/services"
)

// APIError is the error body written by the hireflow HTTP API.
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hireflow api: %d %s: %s", e.Status, e.Code, e.Message)
}

// PersistenceClient talks to a remote hireflow server so a builder or
// session can run against it instead of a local store.
type PersistenceClient struct {
	http *resty.Client
}

func NewPersistenceClient(baseURL string, timeout time.Duration) *PersistenceClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &PersistenceClient{http: c}
}

// GetAssessment returns (nil, nil) when the job has no assessment.
func (c *PersistenceClient) GetAssessment(ctx context.Context, jobID string) (*models.Assessment, error) {
	var out models.Assessment
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("jobId", jobID).
		SetResult(&out).
		SetError(&APIError{}).
		Get("/api/jobs/{jobId}/assessment")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PersistenceClient) PutAssessment(ctx context.Context, jobID string, a models.Assessment) (*models.Assessment, error) {
	var out models.Assessment
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("jobId", jobID).
		SetBody(a).
		SetResult(&out).
		SetError(&APIError{}).
		Put("/api/jobs/{jobId}/assessment")
	if err != nil {
		return nil, err
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PersistenceClient) SaveResponse(ctx context.Context, assessmentID string, r models.AssessmentResponse) (*models.AssessmentResponse, error) {
	var out models.AssessmentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("assessmentId", assessmentID).
		SetBody(r).
		SetResult(&out).
		SetError(&APIError{}).
		Post("/api/assessments/{assessmentId}/responses")
	if err != nil {
		return nil, err
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns (nil, nil) for a missing draft.
func (c *PersistenceClient) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("key", key).
		SetError(&APIError{}).
		Get("/api/drafts/{key}")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := apiError(resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *PersistenceClient) Set(ctx context.Context, key string, value []byte) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("key", key).
		SetHeader("Content-Type", "application/json").
		SetBody(value).
		SetError(&APIError{}).
		Put("/api/drafts/{key}")
	if err != nil {
		return err
	}
	return apiError(resp)
}

func (c *PersistenceClient) Delete(ctx context.Context, key string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("key", key).
		SetError(&APIError{}).
		Delete("/api/drafts/{key}")
	if err != nil {
		return err
	}
	return apiError(resp)
}

func apiError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	e, ok := resp.Error().(*APIError)
	if !ok || e.Code == "" {
		e = &APIError{Code: "http_error", Message: http.StatusText(resp.StatusCode())}
	}
	e.Status = resp.StatusCode()
	return e
}

var (
	_ services.AssessmentStore = (*PersistenceClient)(nil)
	_ services.ResponseStore   = (*PersistenceClient)(nil)
	_ services.DraftStore      = (*PersistenceClient)(nil)
)
