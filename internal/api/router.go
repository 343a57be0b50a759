package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/hireflow/internal/logger"
	"github.com/soaringjerry/hireflow/internal/metrics"
	"github.com/soaringjerry/hireflow/internal/middleware"
	"github.com/soaringjerry/hireflow/internal/models"
	"github.com/soaringjerry/hireflow/internal/services"
)

const maxBodyBytes = 1 << 20

type Router struct {
	store       Store
	drafts      services.DraftStore
	assessments *services.AssessmentService
	analytics   *services.AnalyticsService
	export      *services.ExportService
	tokens      *middleware.ResumeTokens
	log         *logrus.Entry
}

func NewRouter(store Store, events services.EventPublisher, tokens *middleware.ResumeTokens) *Router {
	return &Router{
		store:       store,
		drafts:      store,
		assessments: services.NewAssessmentService(store, events),
		analytics:   services.NewAnalyticsService(store),
		export:      services.NewExportService(store),
		tokens:      tokens,
		log:         logger.Default("api"),
	}
}

func (rt *Router) SetLogger(l *logrus.Entry) {
	rt.log = l
	rt.assessments.SetLogger(l.WithField("component", "assessments"))
}

func (rt *Router) SetMetrics(m *metrics.Metrics) { rt.assessments.SetMetrics(m) }

// SetDraftStore moves /api/drafts off the main store, e.g. onto Redis.
func (rt *Router) SetDraftStore(d services.DraftStore) { rt.drafts = d }

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/jobs/", rt.handleJobScoped)               // GET|PUT /api/jobs/{jobId}/assessment, POST .../template
	mux.HandleFunc("/api/assessments/", rt.handleAssessmentScoped) // responses, export, analytics, validate
	mux.HandleFunc("/api/responses/", rt.handleResponseScoped)     // POST /api/responses/{id}/resume-token
	mux.HandleFunc("/api/resume", rt.handleResume)                 // GET ?token=
	mux.HandleFunc("/api/drafts/", rt.handleDraft)                 // GET|PUT|DELETE /api/drafts/{key}
}

// pathParts splits the path below prefix into its segments.
func pathParts(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func (rt *Router) handleJobScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/jobs/")
	if len(parts) < 2 || parts[1] != "assessment" {
		http.NotFound(w, r)
		return
	}
	jobID := parts[0]
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		a, err := rt.assessments.GetForJob(r.Context(), jobID)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	case len(parts) == 2 && r.Method == http.MethodPut:
		var a models.Assessment
		if !decodeBody(w, r, &a) {
			return
		}
		saved, err := rt.assessments.PutForJob(r.Context(), jobID, a)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	case len(parts) == 3 && parts[2] == "template" && r.Method == http.MethodPost:
		var req struct {
			JobTitle  string `json:"jobTitle"`
			Overwrite bool   `json:"overwrite"`
		}
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		a, err := rt.assessments.GenerateTemplate(r.Context(), jobID, req.JobTitle, req.Overwrite)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	case len(parts) == 2 || (len(parts) == 3 && parts[2] == "template"):
		methodNotAllowed(w)
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) handleAssessmentScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/assessments/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	switch {
	case len(parts) == 2 && parts[1] == "responses":
		switch r.Method {
		case http.MethodPost:
			var resp models.AssessmentResponse
			if !decodeBody(w, r, &resp) {
				return
			}
			saved, err := rt.assessments.RecordResponse(r.Context(), id, resp)
			if err != nil {
				rt.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, saved)
		case http.MethodGet:
			rs, err := rt.assessments.ListResponses(r.Context(), id)
			if err != nil {
				rt.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"assessmentId": id, "responses": rs})
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 3 && parts[1] == "responses" && parts[2] == "export":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		res, err := rt.export.ExportCSV(r.Context(), id, r.URL.Query().Get("format"))
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(res.Filename))
		_, _ = w.Write(res.Data)
	case len(parts) == 2 && parts[1] == "analytics":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		sum, err := rt.analytics.Summary(r.Context(), id)
		if err != nil {
			rt.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	case len(parts) == 2 && parts[1] == "validate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		rt.handleValidate(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// POST /api/assessments/{id}/validate
// { responses: [{questionId, value}], section?: int }
// Reports violations and visible questions without storing anything.
func (rt *Router) handleValidate(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Responses []models.QuestionResponse `json:"responses"`
		Section   *int                      `json:"section"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := rt.assessments.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	v := services.Validator{Locale: middleware.LocaleFromContext(r.Context())}
	var violations map[string][]string
	var visible []models.Question
	if req.Section != nil {
		violations = v.ValidateSection(*a, *req.Section, req.Responses)
		visible = services.VisibleSectionQuestions(*a, *req.Section, req.Responses)
	} else {
		violations = v.ValidateAll(*a, req.Responses)
		visible = services.VisibleQuestions(*a, req.Responses)
	}
	ids := make([]string, 0, len(visible))
	for _, q := range visible {
		ids = append(ids, q.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      len(violations) == 0,
		"violations": violations,
		"visible":    ids,
	})
}

// POST /api/responses/{id}/resume-token
func (rt *Router) handleResponseScoped(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/responses/")
	if len(parts) != 2 || parts[1] != "resume-token" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	resp, err := rt.assessments.GetResponse(r.Context(), parts[0])
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if resp.Status == models.StatusCompleted {
		rt.writeError(w, r, services.NewConflictError("response already completed"))
		return
	}
	tok, exp, err := rt.tokens.Sign(resp.ID, resp.AssessmentID, resp.CandidateID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": tok, "expiresAt": exp.UTC()})
}

// GET /api/resume?token=...
func (rt *Router) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	claims, err := rt.tokens.Parse(r.URL.Query().Get("token"))
	if err != nil {
		rt.writeError(w, r, services.NewForbiddenError("invalid or expired resume token"))
		return
	}
	resp, err := rt.assessments.GetResponse(r.Context(), claims.ResponseID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if resp.AssessmentID != claims.AssessmentID {
		rt.writeError(w, r, services.NewForbiddenError("invalid or expired resume token"))
		return
	}
	if resp.Status == models.StatusCompleted {
		rt.writeError(w, r, services.NewConflictError("response already completed"))
		return
	}
	a, err := rt.assessments.GetByID(r.Context(), resp.AssessmentID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessment": a, "response": resp})
}

// /api/drafts/{key} is the remote form of the draft key-value cache. Values
// are opaque JSON documents.
func (rt *Router) handleDraft(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/drafts/")
	if key == "" || strings.Contains(key, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		v, err := rt.drafts.Get(r.Context(), key)
		if err != nil {
			rt.writeError(w, r, &services.PersistenceError{Op: "load draft", Message: "draft unavailable", Err: err})
			return
		}
		if v == nil {
			rt.writeError(w, r, services.NewNotFoundError("draft not found"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(v)
	case http.MethodPut:
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil || !json.Valid(b) {
			rt.writeError(w, r, services.NewInvalidError("draft must be a JSON document"))
			return
		}
		if err := rt.drafts.Set(r.Context(), key, b); err != nil {
			rt.writeError(w, r, &services.PersistenceError{Op: "save draft", Message: "draft unavailable", Err: err})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := rt.drafts.Delete(r.Context(), key); err != nil {
			rt.writeError(w, r, &services.PersistenceError{Op: "delete draft", Message: "draft unavailable", Err: err})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

type errorBody struct {
	Code       string              `json:"error"`
	Message    string              `json:"message"`
	Problems   []models.Problem    `json:"problems,omitempty"`
	Violations map[string][]string `json:"violations,omitempty"`
	Retryable  bool                `json:"retryable,omitempty"`
}

// writeError maps engine and service errors to HTTP statuses.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		checkErr   *models.CheckError
		validErr   *services.ValidationError
		persistErr *services.PersistenceError
	)
	switch {
	case errors.As(err, &checkErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "invalid_definition", Message: "assessment definition is invalid", Problems: checkErr.Problems})
	case errors.As(err, &validErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Code: "validation_failed", Message: validErr.Message, Violations: validErr.Violations})
	case errors.As(err, &persistErr):
		rt.log.WithError(err).Warn("persistence failure")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Code: string(services.ErrorUnavailable), Message: persistErr.Message, Retryable: persistErr.Retryable()})
	default:
		if se, ok := services.AsServiceError(err); ok {
			writeJSON(w, statusFor(se.Code), errorBody{Code: string(se.Code), Message: se.Message})
			return
		}
		rt.log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		}).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal", Message: "internal error"})
	}
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: string(services.ErrorInvalid), Message: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
