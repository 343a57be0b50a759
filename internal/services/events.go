package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/hireflow/internal/models"
)

// QueueResponseCompleted receives a message for every submitted response.
const QueueResponseCompleted = "assessment.response.completed"

// ResponseCompletedEvent is published once per submitted response.
type ResponseCompletedEvent struct {
	ResponseID   string    `json:"responseId"`
	AssessmentID string    `json:"assessmentId"`
	CandidateID  string    `json:"candidateId,omitempty"`
	Answered     int       `json:"answered"`
	CompletedAt  time.Time `json:"completedAt"`
}

// publishCompleted announces r. Delivery failures are logged only: the
// response is already stored and the submit has succeeded.
func publishCompleted(ctx context.Context, events EventPublisher, log *logrus.Entry, r models.AssessmentResponse) {
	if events == nil || r.CompletedAt == nil {
		return
	}
	body, err := json.Marshal(ResponseCompletedEvent{
		ResponseID:   r.ID,
		AssessmentID: r.AssessmentID,
		CandidateID:  r.CandidateID,
		Answered:     len(r.Responses),
		CompletedAt:  *r.CompletedAt,
	})
	if err != nil {
		return
	}
	if err := events.Publish(ctx, QueueResponseCompleted, body); err != nil {
		log.WithError(err).WithField("response_id", r.ID).Error("publish response completed")
	}
}
