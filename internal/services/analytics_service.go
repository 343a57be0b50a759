package services

import (
	"context"
	"sort"

	"github.com/soaringjerry/hireflow/internal/models"
)

type AnalyticsStore interface {
	GetAssessmentByID(ctx context.Context, id string) (*models.Assessment, error)
	ListResponses(ctx context.Context, assessmentID string) ([]models.AssessmentResponse, error)
}

type AnalyticsService struct {
	store AnalyticsStore
}

type AnalyticsQuestion struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Type      string         `json:"type"`
	Answered  int            `json:"answered"`
	Histogram map[string]int `json:"histogram,omitempty"`
	Mean      *float64       `json:"mean,omitempty"`
}

type AnalyticsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AnalyticsSummary struct {
	AssessmentID   string                `json:"assessmentId"`
	TotalResponses int                   `json:"totalResponses"`
	ByStatus       map[string]int        `json:"byStatus"`
	CompletionRate float64               `json:"completionRate"`
	Questions      []AnalyticsQuestion   `json:"questions"`
	Timeseries     []AnalyticsTimeseries `json:"timeseries"`
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Summary aggregates the stored responses of an assessment: totals per
// status, per-question answer counts with option histograms for choice
// questions and means for numeric ones, and responses started per day.
func (s *AnalyticsService) Summary(ctx context.Context, assessmentID string) (*AnalyticsSummary, error) {
	a, err := s.store.GetAssessmentByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError(ErrAssessmentNotFound.Error())
	}
	responses, err := s.store.ListResponses(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	byStatus := map[string]int{}
	countsByDay := map[string]int{}
	for _, r := range responses {
		byStatus[string(r.Status)]++
		countsByDay[r.StartedAt.UTC().Format("2006-01-02")]++
	}
	rate := 0.0
	if len(responses) > 0 {
		rate = float64(byStatus[string(models.StatusCompleted)]) / float64(len(responses))
	}
	return &AnalyticsSummary{
		AssessmentID:   assessmentID,
		TotalResponses: len(responses),
		ByStatus:       byStatus,
		CompletionRate: rate,
		Questions:      buildAnalyticsQuestions(*a, responses),
		Timeseries:     buildTimeseries(countsByDay),
	}, nil
}

func buildAnalyticsQuestions(a models.Assessment, responses []models.AssessmentResponse) []AnalyticsQuestion {
	questions := a.Questions()
	index := make(map[string]int, len(questions))
	out := make([]AnalyticsQuestion, 0, len(questions))
	sums := make([]float64, len(questions))
	for i, q := range questions {
		aq := AnalyticsQuestion{ID: q.ID, Text: q.Text, Type: string(q.Type)}
		if models.IsChoiceType(q.Type) {
			aq.Histogram = make(map[string]int, len(q.Options))
			for _, opt := range q.Options {
				aq.Histogram[opt] = 0
			}
		}
		out = append(out, aq)
		index[q.ID] = i
	}
	for _, r := range responses {
		for _, qr := range r.Responses {
			i, ok := index[qr.QuestionID]
			if !ok || qr.Value.IsEmpty() {
				continue
			}
			out[i].Answered++
			switch qr.Value.Kind() {
			case models.KindText:
				if out[i].Histogram != nil {
					out[i].Histogram[qr.Value.Text()]++
				}
			case models.KindChoices:
				if out[i].Histogram != nil {
					for _, c := range qr.Value.Choices() {
						out[i].Histogram[c]++
					}
				}
			case models.KindNumber:
				sums[i] += qr.Value.Number()
			}
		}
	}
	for i, q := range questions {
		if q.Type == models.Numeric && out[i].Answered > 0 {
			mean := sums[i] / float64(out[i].Answered)
			out[i].Mean = &mean
		}
	}
	return out
}

func buildTimeseries(counts map[string]int) []AnalyticsTimeseries {
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]AnalyticsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, AnalyticsTimeseries{Date: d, Count: counts[d]})
	}
	return out
}
