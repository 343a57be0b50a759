package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"time"

	"github.com/soaringjerry/hireflow/internal/models"
)

const (
	ExportLong = "long"
	ExportWide = "wide"
)

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	store AnalyticsStore
}

func NewExportService(store AnalyticsStore) *ExportService {
	return &ExportService{store: store}
}

// ExportCSV renders every stored response of the assessment. format is
// "long" (one row per answer, the default) or "wide" (one row per response).
func (s *ExportService) ExportCSV(ctx context.Context, assessmentID, format string) (*ExportResult, error) {
	if format == "" {
		format = ExportLong
	}
	if format != ExportLong && format != ExportWide {
		return nil, NewInvalidError("format must be long or wide")
	}
	a, err := s.store.GetAssessmentByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewNotFoundError(ErrAssessmentNotFound.Error())
	}
	rs, err := s.store.ListResponses(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	var data []byte
	if format == ExportWide {
		data, err = ExportWideCSV(*a, rs)
	} else {
		data, err = ExportLongCSV(rs)
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    assessmentID + "_" + format + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}

// ExportLongCSV writes one row per answer, responses ordered by start time.
func ExportLongCSV(rs []models.AssessmentResponse) ([]byte, error) {
	rs = sortedResponses(rs)
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "candidate_id", "status", "question_id", "value", "answered_at"})
	for _, r := range rs {
		for _, qr := range r.Responses {
			rec := []string{
				r.ID,
				r.CandidateID,
				string(r.Status),
				qr.QuestionID,
				qr.Value.String(),
				formatTime(qr.Timestamp),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportWideCSV writes one row per response and one column per question in
// flattened assessment order. Unanswered cells are empty.
func ExportWideCSV(a models.Assessment, rs []models.AssessmentResponse) ([]byte, error) {
	rs = sortedResponses(rs)
	questions := a.Questions()
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"response_id", "candidate_id", "candidate_email", "status", "started_at", "completed_at"}
	for _, q := range questions {
		header = append(header, q.ID)
	}
	_ = w.Write(header)
	for _, r := range rs {
		completed := ""
		if r.CompletedAt != nil {
			completed = formatTime(*r.CompletedAt)
		}
		row := make([]string, 0, len(header))
		row = append(row, r.ID, r.CandidateID, r.CandidateEmail, string(r.Status), formatTime(r.StartedAt), completed)
		for _, q := range questions {
			cell := ""
			if qr, ok := models.FindResponse(r.Responses, q.ID); ok {
				cell = qr.Value.String()
			}
			row = append(row, cell)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func sortedResponses(rs []models.AssessmentResponse) []models.AssessmentResponse {
	out := append([]models.AssessmentResponse(nil), rs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
