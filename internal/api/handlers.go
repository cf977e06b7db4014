// Package api exposes a small read-only HTTP surface for operators and
// dashboards: survey status, responses, and outstanding recipients. All
// mutations go through the Slack command surface, never this API.
package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/pulse-bot/internal/domain"
	"github.com/ignite/pulse-bot/internal/pkg/httputil"
	"github.com/ignite/pulse-bot/internal/service/survey"
)

// SurveyReader is the slice of the survey service the API needs.
type SurveyReader interface {
	Get(ctx context.Context, id int64) (*domain.Survey, error)
	List(ctx context.Context) ([]domain.Survey, error)
	Responses(ctx context.Context, surveyID int64) ([]domain.Response, error)
}

// LedgerReader reports outstanding recipients per survey.
type LedgerReader interface {
	Unanswered(ctx context.Context, surveyID int64) (map[string]string, error)
}

// AudienceReader lists audience lists and their members.
type AudienceReader interface {
	List(ctx context.Context) ([]domain.AudienceList, error)
	Members(ctx context.Context, listID int64) ([]domain.ListMember, error)
}

// Handlers holds the dependencies for all API endpoints.
type Handlers struct {
	surveys  SurveyReader
	ledger   LedgerReader
	audience AudienceReader
}

// NewHandlers creates the API handler set.
func NewHandlers(surveys SurveyReader, ledger LedgerReader, audience AudienceReader) *Handlers {
	return &Handlers{surveys: surveys, ledger: ledger, audience: audience}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

type surveyView struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Question       string     `json:"question"`
	OwnerSlackID   string     `json:"owner_slack_id"`
	OwnerName      string     `json:"owner_name"`
	Status         string     `json:"status"`
	IncludeListIDs []int64    `json:"include_list_ids"`
	ExcludeListIDs []int64    `json:"exclude_list_ids"`
	ReminderEvery  string     `json:"reminder_every"`
	LastReminderAt *time.Time `json:"last_reminder_at,omitempty"`
	RemindersSent  int        `json:"reminders_sent"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toSurveyView(sv *domain.Survey) surveyView {
	status := "active"
	if !sv.IsActive {
		status = "closed"
	}
	return surveyView{
		ID:             sv.ID,
		Name:           sv.Name,
		Question:       sv.Question,
		OwnerSlackID:   sv.OwnerSlackID,
		OwnerName:      sv.OwnerName,
		Status:         status,
		IncludeListIDs: sv.IncludeListIDs,
		ExcludeListIDs: sv.ExcludeListIDs,
		ReminderEvery:  sv.ReminderInterval.String(),
		LastReminderAt: sv.LastReminderAt,
		RemindersSent:  sv.RemindersSent,
		CreatedAt:      sv.CreatedAt,
	}
}

// ListSurveys returns every survey, active and closed.
func (h *Handlers) ListSurveys(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.surveys.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	views := make([]surveyView, 0, len(surveys))
	for i := range surveys {
		views = append(views, toSurveyView(&surveys[i]))
	}
	httputil.OK(w, map[string]any{"surveys": views})
}

// GetSurvey returns one survey by id.
func (h *Handlers) GetSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := surveyID(w, r)
	if !ok {
		return
	}
	sv, err := h.surveys.Get(r.Context(), id)
	if errors.Is(err, survey.ErrNotFound) {
		httputil.NotFound(w, "survey not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, toSurveyView(sv))
}

// GetResponses returns the collected answers for a survey.
func (h *Handlers) GetResponses(w http.ResponseWriter, r *http.Request) {
	id, ok := surveyID(w, r)
	if !ok {
		return
	}
	if _, err := h.surveys.Get(r.Context(), id); errors.Is(err, survey.ErrNotFound) {
		httputil.NotFound(w, "survey not found")
		return
	} else if err != nil {
		httputil.InternalError(w, err)
		return
	}
	responses, err := h.surveys.Responses(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"survey_id": id, "responses": responses, "count": len(responses)})
}

// GetUnanswered returns the recipients who received the survey but have
// not answered yet.
func (h *Handlers) GetUnanswered(w http.ResponseWriter, r *http.Request) {
	id, ok := surveyID(w, r)
	if !ok {
		return
	}
	if _, err := h.surveys.Get(r.Context(), id); errors.Is(err, survey.ErrNotFound) {
		httputil.NotFound(w, "survey not found")
		return
	} else if err != nil {
		httputil.InternalError(w, err)
		return
	}
	unanswered, err := h.ledger.Unanswered(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	ids := make([]string, 0, len(unanswered))
	for uid := range unanswered {
		ids = append(ids, uid)
	}
	sort.Strings(ids)
	httputil.OK(w, map[string]any{"survey_id": id, "unanswered": ids, "count": len(ids)})
}

// ListAudienceLists returns all audience lists with member counts.
func (h *Handlers) ListAudienceLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.audience.List(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	type listView struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		MemberCount int    `json:"member_count"`
	}
	views := make([]listView, 0, len(lists))
	for _, l := range lists {
		members, err := h.audience.Members(r.Context(), l.ID)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		views = append(views, listView{ID: l.ID, Name: l.Name, Description: l.Description, MemberCount: len(members)})
	}
	httputil.OK(w, map[string]any{"lists": views})
}

func surveyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "invalid survey id")
		return 0, false
	}
	return id, true
}
