package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-planner/internal/domain/planning/calendar"
	"github.com/vadim/neo-planner/internal/domain/planning/constraint"
	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/policy"
	"github.com/vadim/neo-planner/internal/domain/planning/resolver"
	"github.com/vadim/neo-planner/internal/domain/planning/service"
	"github.com/vadim/neo-planner/internal/httpx/response"
)

// MaxNextSlots caps the count parameter of the next-slot endpoint
const MaxNextSlots = 50

// PlanningPolicy defines the interface for planning operations
// Interface is defined by consumer (handler), not provider (policy)
type PlanningPolicy interface {
	ValidateDraft(draft *entity.DraftPost) (constraint.Report, error)
	ResolveSchedule(ctx context.Context, in policy.ResolveScheduleInput) (*entity.ResolvedSchedule, error)
	NextQueueSlot(ctx context.Context, profileID string, count int) (*policy.NextQueueSlotOutput, error)
	ConfigureQueue(ctx context.Context, in service.ConfigureQueueInput) (*entity.QueueTemplate, error)
	GetQueueTemplate(ctx context.Context, profileID string) (*entity.QueueTemplate, error)
	SubmitPost(ctx context.Context, in policy.SubmitPostInput) (*policy.SubmitPostOutput, error)
	GetPost(ctx context.Context, id string) (*entity.Post, error)
	UpdatePostStatus(ctx context.Context, id string, status entity.PostStatus) (*entity.Post, error)
	Calendar(ctx context.Context, in policy.CalendarInput) (*calendar.Grid, error)
	Platforms() []policy.PlatformInfo
	Timezones(extra ...string) []policy.TimezoneOption
}

// PlanningHandler handles HTTP requests for post planning
type PlanningHandler struct {
	policy PlanningPolicy
}

// NewPlanningHandler creates a new planning handler
func NewPlanningHandler(p PlanningPolicy) *PlanningHandler {
	return &PlanningHandler{policy: p}
}

// RegisterRoutes registers planning routes
func (h *PlanningHandler) RegisterRoutes(r chi.Router) {
	r.Post("/drafts/validate", h.ValidateDraft())
	r.Post("/schedules/resolve", h.ResolveSchedule())

	r.Route("/profiles/{id}/queue", func(r chi.Router) {
		r.Get("/", h.GetQueue())
		r.Put("/", h.ConfigureQueue())
		r.Get("/next-slot", h.NextSlot())
	})

	r.Route("/posts", func(r chi.Router) {
		r.Post("/", h.SubmitPost())
		r.Get("/{id}", h.GetPost())
		r.Patch("/{id}/status", h.UpdateStatus())
	})

	r.Get("/calendar", h.Calendar())
	r.Get("/platforms", h.Platforms())
	r.Get("/timezones", h.Timezones())
}

// DraftRequest represents a draft post in requests
type DraftRequest struct {
	Content    string                  `json:"content"`
	MediaItems []MediaRequest          `json:"media_items"`
	Targets    []entity.PlatformTarget `json:"targets"`
}

// MediaRequest represents a media item in requests. Type may be omitted
// and is then inferred from the URL's file extension.
type MediaRequest struct {
	Type     string   `json:"type,omitempty"`
	URL      string   `json:"url"`
	Width    *int     `json:"width,omitempty"`
	Height   *int     `json:"height,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

func (d DraftRequest) toDraft() (*entity.DraftPost, error) {
	media := make([]entity.MediaItem, len(d.MediaItems))
	for i, m := range d.MediaItems {
		mediaType, err := parseMediaType(m.Type, m.URL)
		if err != nil {
			return nil, err
		}
		media[i] = entity.MediaItem{
			Type:     mediaType,
			URL:      m.URL,
			Width:    m.Width,
			Height:   m.Height,
			Duration: m.Duration,
		}
	}
	return &entity.DraftPost{
		Content:    d.Content,
		MediaItems: media,
		Targets:    d.Targets,
	}, nil
}

// ValidateDraft handles POST /drafts/validate
func (h *PlanningHandler) ValidateDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badJSON(w, err)
			return
		}

		draft, err := req.toDraft()
		if err != nil {
			handleDomainError(w, err)
			return
		}

		report, err := h.policy.ValidateDraft(draft)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, ValidateResponse{Valid: report.Valid(), Report: report})
	}
}

// ValidateResponse represents the response for draft validation
type ValidateResponse struct {
	Valid  bool              `json:"valid"`
	Report constraint.Report `json:"report"`
}

// ResolveRequest represents the request body for resolving a schedule.
// Either Intent or Preset (with Timezone) is required.
type ResolveRequest struct {
	Intent   json.RawMessage `json:"intent,omitempty"`
	Preset   string          `json:"preset,omitempty"`
	Timezone string          `json:"timezone,omitempty"`
}

// ResolveSchedule handles POST /schedules/resolve
func (h *PlanningHandler) ResolveSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badJSON(w, err)
			return
		}

		in := policy.ResolveScheduleInput{PresetTimezone: req.Timezone}
		switch {
		case req.Preset != "":
			preset, err := resolver.ParsePreset(req.Preset)
			if err != nil {
				handleDomainError(w, err)
				return
			}
			in.Preset = preset
		case len(req.Intent) > 0:
			intent, err := entity.DecodeScheduleIntent(req.Intent)
			if err != nil {
				handleDomainError(w, err)
				return
			}
			in.Intent = intent
		default:
			response.BadRequest(w, "intent or preset is required")
			return
		}

		resolved, err := h.policy.ResolveSchedule(r.Context(), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, resolved)
	}
}

// QueueRequest represents the request body for configuring a queue
type QueueRequest struct {
	Name     string             `json:"name"`
	Timezone string             `json:"timezone"`
	Slots    []entity.QueueSlot `json:"slots"`
	Specs    []string           `json:"specs,omitempty"` // cron expressions, e.g. "0 9 * * 1-5"
}

// ConfigureQueue handles PUT /profiles/{id}/queue
func (h *PlanningHandler) ConfigureQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req QueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badJSON(w, err)
			return
		}

		tmpl, err := h.policy.ConfigureQueue(r.Context(), service.ConfigureQueueInput{
			ProfileID: id,
			Name:      req.Name,
			Timezone:  req.Timezone,
			Slots:     req.Slots,
			Specs:     req.Specs,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, tmpl)
	}
}

// GetQueue handles GET /profiles/{id}/queue
func (h *PlanningHandler) GetQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := h.policy.GetQueueTemplate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, tmpl)
	}
}

// NextSlotResponse represents the response for next-slot planning
type NextSlotResponse struct {
	ProfileID string      `json:"profile_id"`
	Timezone  string      `json:"timezone"`
	Next      time.Time   `json:"next"`
	Upcoming  []time.Time `json:"upcoming"`
}

// NextSlot handles GET /profiles/{id}/queue/next-slot?count=
func (h *PlanningHandler) NextSlot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := 1
		if c := r.URL.Query().Get("count"); c != "" {
			ci, err := strconv.Atoi(c)
			if err != nil || ci < 1 {
				response.BadRequest(w, "invalid count")
				return
			}
			if ci > MaxNextSlots {
				ci = MaxNextSlots
			}
			count = ci
		}

		out, err := h.policy.NextQueueSlot(r.Context(), chi.URLParam(r, "id"), count)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, NextSlotResponse{
			ProfileID: out.ProfileID,
			Timezone:  out.Timezone,
			Next:      out.Next,
			Upcoming:  out.Upcoming,
		})
	}
}

// SubmitPostRequest represents the request body for submitting a post
type SubmitPostRequest struct {
	Draft        DraftRequest    `json:"draft"`
	Schedule     json.RawMessage `json:"schedule"`
	ProfileID    string          `json:"profile_id,omitempty"`
	AllowPartial bool            `json:"allow_partial,omitempty"`
}

// SubmitPostResponse represents the response for a submitted post
type SubmitPostResponse struct {
	Post     *entity.Post              `json:"post,omitempty"`
	Schedule *entity.ResolvedSchedule  `json:"schedule,omitempty"`
	Report   constraint.Report         `json:"report"`
	Skipped  []constraint.TargetReport `json:"skipped,omitempty"`
	Errors   []string                  `json:"errors,omitempty"`
}

// SubmitPost handles POST /posts
func (h *PlanningHandler) SubmitPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitPostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badJSON(w, err)
			return
		}
		if len(req.Schedule) == 0 {
			response.BadRequest(w, "schedule is required")
			return
		}

		draft, err := req.Draft.toDraft()
		if err != nil {
			handleDomainError(w, err)
			return
		}
		intent, err := entity.DecodeScheduleIntent(req.Schedule)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		out, err := h.policy.SubmitPost(r.Context(), policy.SubmitPostInput{
			Draft:        draft,
			Intent:       intent,
			ProfileID:    req.ProfileID,
			AllowPartial: req.AllowPartial,
		})
		if err != nil {
			if out != nil && (errors.Is(err, entity.ErrConstraintViolations) || errors.Is(err, entity.ErrScheduleInPast)) {
				response.UnprocessableEntity(w, "post rejected", SubmitPostResponse{
					Schedule: out.Schedule,
					Report:   out.Report,
					Errors:   splitJoined(err),
				})
				return
			}
			handleDomainError(w, err)
			return
		}

		response.Created(w, SubmitPostResponse{
			Post:     out.Post,
			Schedule: out.Schedule,
			Report:   out.Report,
			Skipped:  out.Skipped,
		})
	}
}

// GetPost handles GET /posts/{id}
func (h *PlanningHandler) GetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.policy.GetPost(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, post)
	}
}

// StatusRequest represents the request body for a status transition
type StatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /posts/{id}/status
func (h *PlanningHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badJSON(w, err)
			return
		}

		post, err := h.policy.UpdatePostStatus(r.Context(), chi.URLParam(r, "id"), entity.PostStatus(req.Status))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, post)
	}
}

// CalendarResponse represents a month grid
type CalendarResponse struct {
	Year      int                   `json:"year"`
	Month     int                   `json:"month"`
	Timezone  string                `json:"timezone"`
	WeekStart string                `json:"week_start"`
	Start     time.Time             `json:"range_start"`
	End       time.Time             `json:"range_end"`
	Cells     []entity.CalendarCell `json:"cells"`
	Stats     entity.MonthStats     `json:"stats"`
}

// Calendar handles GET /calendar?profile_id=&year=&month=&timezone=&week_start=
func (h *PlanningHandler) Calendar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		year, err := strconv.Atoi(q.Get("year"))
		if err != nil {
			response.BadRequest(w, "invalid year")
			return
		}
		month, err := strconv.Atoi(q.Get("month"))
		if err != nil || month < 1 || month > 12 {
			response.BadRequest(w, "invalid month")
			return
		}

		in := policy.CalendarInput{
			ProfileID: q.Get("profile_id"),
			Year:      year,
			Month:     time.Month(month),
			Timezone:  q.Get("timezone"),
		}
		if in.Timezone == "" {
			in.Timezone = "UTC"
		}
		if ws := q.Get("week_start"); ws != "" {
			d, err := parseWeekday(ws)
			if err != nil {
				response.BadRequest(w, err.Error())
				return
			}
			in.WeekStart = &d
		}

		grid, err := h.policy.Calendar(r.Context(), in)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		response.OK(w, CalendarResponse{
			Year:      grid.Year,
			Month:     int(grid.Month),
			Timezone:  grid.Timezone,
			WeekStart: strings.ToLower(grid.WeekStart.String()),
			Start:     grid.Start,
			End:       grid.End,
			Cells:     grid.Cells,
			Stats:     grid.Stats,
		})
	}
}

// Platforms handles GET /platforms
func (h *PlanningHandler) Platforms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, h.policy.Platforms())
	}
}

// Timezones handles GET /timezones?extra=Zone/One,Zone/Two
func (h *PlanningHandler) Timezones() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var extra []string
		if e := r.URL.Query().Get("extra"); e != "" {
			extra = strings.Split(e, ",")
		}
		response.OK(w, h.policy.Timezones(extra...))
	}
}

// Helper functions

func badJSON(w http.ResponseWriter, err error) {
	if errors.Is(err, entity.ErrInvalidPlatform) || errors.Is(err, entity.ErrInvalidPlatformData) {
		response.BadRequest(w, err.Error())
		return
	}
	response.BadRequest(w, "invalid JSON")
}

func parseWeekday(s string) (time.Weekday, error) {
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, errors.New("invalid week_start")
}

// splitJoined flattens an errors.Join result into its messages
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrProfileNotFound), errors.Is(err, entity.ErrPostNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, entity.ErrSlotTaken), errors.Is(err, entity.ErrNoAvailableSlot),
		errors.Is(err, entity.ErrInvalidStatus), errors.Is(err, entity.ErrEmptyQueueTemplate):
		response.Conflict(w, err.Error())
	case errors.Is(err, entity.ErrConstraintViolations), errors.Is(err, entity.ErrScheduleInPast):
		response.UnprocessableEntity(w, err.Error(), nil)
	case errors.Is(err, entity.ErrInvalidTimezone), errors.Is(err, entity.ErrInvalidLocalTime),
		errors.Is(err, entity.ErrInvalidIntent), errors.Is(err, entity.ErrQueueStateMismatch),
		errors.Is(err, entity.ErrInvalidQueueTemplate), errors.Is(err, entity.ErrInvalidSlotSpec),
		errors.Is(err, entity.ErrNoTargets), errors.Is(err, entity.ErrDuplicateAccount),
		errors.Is(err, entity.ErrEmptyAccountID), errors.Is(err, entity.ErrInvalidPlatform),
		errors.Is(err, entity.ErrInvalidMediaType), errors.Is(err, entity.ErrEmptyMediaURL),
		errors.Is(err, entity.ErrPlatformDataMismatch), errors.Is(err, entity.ErrInvalidPlatformData):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "internal server error")
	}
}
