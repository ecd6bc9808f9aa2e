// Reminder HTTP handlers.
//
// This file exposes the REST surface of the reminder engine:
//   - POST /reminders/generate      (run the generation rules)
//   - GET  /reminders/pending       (pending list, ETag support)
//   - GET  /reminders/digest/morning, /reminders/digest/evening
//   - POST /reminders               (create a custom reminder)
//   - POST /reminders/{id}/dismiss | /act | /deliver | /snooze
//   - POST /reminders/cleanup       (housekeeping sweep)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. The generation
// endpoint supports idempotent retries via the Idempotency-Key header: a
// replay returns the recorded result count and sets Idempotency-Replayed.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-growth-backend/internal/domain"
	"github.com/tbourn/go-growth-backend/internal/http/middleware"
	"github.com/tbourn/go-growth-backend/internal/repo"
	"github.com/tbourn/go-growth-backend/internal/schedule"
	"github.com/tbourn/go-growth-backend/internal/services"
	"github.com/tbourn/go-growth-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// GenerationService runs the reminder generation rules for a user.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type GenerationService interface {
	// Generate runs all rules once and returns the number of reminders
	// created. A non-nil error may accompany a positive count (partial run).
	Generate(ctx context.Context, userID string, st domain.ReminderSettings) (int, error)
}

// LifecycleService defines the per-reminder state transitions.
type LifecycleService interface {
	Dismiss(ctx context.Context, userID, id string) error
	ActOn(ctx context.Context, userID, id string) error
	MarkDelivered(ctx context.Context, userID, id string) error
	Snooze(ctx context.Context, userID, id string, preset domain.SnoozePreset, morning schedule.Clock, loc *time.Location) (*domain.Reminder, error)
	CreateCustom(ctx context.Context, userID, title string, body *string, scheduledAt *time.Time, relatedKind, relatedID *string) (*domain.Reminder, error)
}

// DigestReader defines the batch read views over the reminder store.
type DigestReader interface {
	Pending(ctx context.Context, userID string, channel *domain.Channel) ([]domain.Reminder, error)
	MorningDigest(ctx context.Context, userID string) ([]domain.Reminder, error)
	EveningDigest(ctx context.Context, userID string) ([]domain.Reminder, error)
}

// CleanupRunner performs the housekeeping sweep.
type CleanupRunner interface {
	Run(ctx context.Context, userID string) (services.CleanupResult, error)
}

//
// Handler wiring
//

// Defaults carries per-deployment fallbacks applied when a request omits an
// override (snooze morning clock and timezone) plus the idempotency TTL.
type Defaults struct {
	Morning        schedule.Clock
	Location       *time.Location
	IdempotencyTTL time.Duration
}

// Handlers groups the HTTP endpoints of the reminder engine. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	genSvc GenerationService
	remSvc LifecycleService
	digSvc DigestReader
	clnSvc CleanupRunner
	def    Defaults
}

// New constructs a Handlers instance bound to the given services.
func New(gen GenerationService, rem LifecycleService, dig DigestReader, cln CleanupRunner, def Defaults) *Handlers {
	if def.Location == nil {
		def.Location = time.UTC
	}
	if def.IdempotencyTTL <= 0 {
		def.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{genSvc: gen, remSvc: rem, digSvc: dig, clnSvc: cln, def: def}
}

// userID extracts the authenticated user id from the Gin context (set by
// upstream middleware). If absent, it falls back to the "X-User-ID" header
// (tests use it), and finally to "demo-user".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// scopeGenerate matches middleware.ScopeOf for the generation route; the
// idempotency records the handler persists use the same value.
const scopeGenerate = "generate"

//
// DTOs
//

// GenerateResponse reports the outcome of one generation run.
type GenerateResponse struct {
	// Created is the number of reminders this run inserted.
	Created int `json:"created"`
	// Failures lists the rule errors of a partial run, one entry per failed
	// rule. Empty on a clean run.
	Failures []string `json:"failures,omitempty"`
}

// CreateReminderRequest is the JSON payload for creating a custom reminder.
type CreateReminderRequest struct {
	// Title is the reminder headline (1–120 chars after normalization).
	Title string `json:"title" binding:"required,min=1" example:"Renew passport"`
	// Body optionally adds detail below the title.
	Body *string `json:"body,omitempty" example:"before the trip in June"`
	// ScheduledAt optionally defers the reminder to a point in time.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	// RelatedKind/RelatedID optionally tie the reminder to an entity; when
	// present the dedup invariant applies.
	RelatedKind *string `json:"related_kind,omitempty" example:"document"`
	RelatedID   *string `json:"related_id,omitempty" example:"passport-1"`
}

// SnoozeRequest is the JSON payload for snoozing a reminder.
type SnoozeRequest struct {
	// Preset is one of: one_hour, later_today, tomorrow, next_week.
	Preset string `json:"preset" binding:"required" example:"tomorrow"`
	// MorningTime optionally overrides the "HH:MM" morning anchor used by
	// the tomorrow and next_week presets.
	MorningTime *string `json:"morning_time,omitempty" example:"07:30"`
	// Timezone optionally overrides the IANA zone the target is computed in.
	Timezone *string `json:"timezone,omitempty" example:"Europe/Athens"`
}

// RemindersResponse wraps a list read of reminders.
type RemindersResponse struct {
	Reminders []domain.Reminder `json:"reminders"`
	Count     int               `json:"count"`
}

//
// Handlers
//

// GenerateReminders godoc
// @ID          generateReminders
// @Summary     Run the reminder generation rules
// @Description Runs all generation rules for the current user against the supplied settings document.
// @Description Supports idempotency via the Idempotency-Key header (same key → recorded result, no re-run).
// @Tags        Reminders
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    domain.ReminderSettings  false  "Settings document (missing fields get defaults)"
//
// @Success     200  {object}  handlers.GenerateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Generation failed"
// @Router      /reminders/generate [post]
func (h *Handlers) GenerateReminders(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	var st domain.ReminderSettings
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&st); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	db := h.generatorDB()
	if idemKey != "" && db != nil {
		if rec, err := repo.GetIdempotency(ctx, db, uid, scopeGenerate, idemKey, time.Now().UTC()); err == nil && rec != nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, GenerateResponse{Created: rec.ResultCount})
			return
		}
	}

	created, err := h.genSvc.Generate(ctx, uid, st)
	if err != nil && created == 0 {
		fail(c, http.StatusInternalServerError, ErrCodeGenerateFailed, err.Error())
		return
	}

	resp := GenerateResponse{Created: created}
	if err != nil {
		// Partial run: some rules failed, the rest committed. Dedup makes a
		// retry safe, so the outcome is reported instead of rolled back.
		resp.Failures = strings.Split(err.Error(), "\n")
	}

	// Idempotency (store path) – record clean runs only; a partial run must
	// stay retryable.
	if idemKey != "" && err == nil && db != nil {
		_, _ = repo.CreateIdempotency(ctx, db, uid, scopeGenerate, idemKey, created, http.StatusOK, h.def.IdempotencyTTL)
	}

	ok(c, http.StatusOK, resp)
}

// ListPending godoc
// @ID          listPending
// @Summary     List pending reminders
// @Description Returns the user's pending and wake-expired snoozed reminders, optionally filtered by channel.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Reminders
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       channel        query   string  false "Filter by delivery channel"  Enums(push, morning_digest, evening_digest, in_app)
// @Param       limit          query   int     false "Cap the number of returned reminders"  minimum(1)
//
// @Success     200  {object} handlers.RemindersResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reminders/pending [get]
func (h *Handlers) ListPending(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	var channel *domain.Channel
	if q := strings.TrimSpace(c.Query("channel")); q != "" {
		ch := domain.Channel(q)
		if !ch.Valid() {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown channel")
			return
		}
		channel = &ch
	}

	// ETag pre-check (best effort).
	if db := h.digestDB(); db != nil {
		count, maxTS, err := repo.ReminderStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"reminders:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.digSvc.Pending(ctx, uid, channel)
	if err != nil {
		if err == services.ErrInvalidChannel {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown channel")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	// Optional cap for card UIs that only show the first few entries.
	if limit := utils.AtoiDefault(c.Query("limit"), 0); limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	ok(c, http.StatusOK, RemindersResponse{Reminders: items, Count: len(items)})
}

// MorningDigest godoc
// @ID          morningDigest
// @Summary     Morning digest
// @Description Returns the reminders due on the morning digest surface, oldest first.
// @Tags        Digests
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} handlers.RemindersResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reminders/digest/morning [get]
func (h *Handlers) MorningDigest(c *gin.Context) {
	items, err := h.digSvc.MorningDigest(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, RemindersResponse{Reminders: items, Count: len(items)})
}

// EveningDigest godoc
// @ID          eveningDigest
// @Summary     Evening digest
// @Description Returns the reminders due on the evening digest surface, oldest first.
// @Tags        Digests
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} handlers.RemindersResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /reminders/digest/evening [get]
func (h *Handlers) EveningDigest(c *gin.Context) {
	items, err := h.digSvc.EveningDigest(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, RemindersResponse{Reminders: items, Count: len(items)})
}

// CreateReminder godoc
// @ID          createReminder
// @Summary     Create a custom reminder
// @Description Creates a user-authored reminder outside the generation rules.
// @Tags        Reminders
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateReminderRequest  true  "Reminder payload"
//
// @Success     201  {object}  domain.Reminder
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate reminder"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reminders [post]
func (h *Handlers) CreateReminder(c *gin.Context) {
	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}
	if (req.RelatedKind == nil) != (req.RelatedID == nil) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "related_kind and related_id must be given together")
		return
	}

	r, err := h.remSvc.CreateCustom(c.Request.Context(), userID(c), req.Title, req.Body, req.ScheduledAt, req.RelatedKind, req.RelatedID)
	if err != nil {
		switch err {
		case services.ErrEmptyTitle:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		case services.ErrDuplicateReminder:
			fail(c, http.StatusConflict, ErrCodeConflict, "an active reminder already covers this entity")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, r)
}

// DismissReminder godoc
// @ID          dismissReminder
// @Summary     Dismiss a reminder
// @Tags        Reminders
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Reminder ID (UUID)"     format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Reminder not found"
// @Failure     409  {object} handlers.ErrorResponse "Reminder already archived"
// @Router      /reminders/{id}/dismiss [post]
func (h *Handlers) DismissReminder(c *gin.Context) {
	h.transition(c, h.remSvc.Dismiss)
}

// ActOnReminder godoc
// @ID          actOnReminder
// @Summary     Mark a reminder acted on
// @Tags        Reminders
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Reminder ID (UUID)"     format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Reminder not found"
// @Failure     409  {object} handlers.ErrorResponse "Reminder already archived"
// @Router      /reminders/{id}/act [post]
func (h *Handlers) ActOnReminder(c *gin.Context) {
	h.transition(c, h.remSvc.ActOn)
}

// DeliverReminder godoc
// @ID          deliverReminder
// @Summary     Mark a reminder delivered
// @Description Records that the reminder was shown to the user. Only pending and snoozed reminders qualify.
// @Tags        Reminders
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Reminder ID (UUID)"     format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Reminder not found"
// @Failure     409  {object} handlers.ErrorResponse "Invalid transition"
// @Router      /reminders/{id}/deliver [post]
func (h *Handlers) DeliverReminder(c *gin.Context) {
	h.transition(c, h.remSvc.MarkDelivered)
}

// SnoozeReminder godoc
// @ID          snoozeReminder
// @Summary     Snooze a reminder
// @Description Reschedules the reminder per the named preset. After two snoozes the call dismisses instead.
// @Tags        Reminders
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Reminder ID (UUID)"     format(uuid)
// @Param       body       body    handlers.SnoozeRequest  true  "Snooze payload"
//
// @Success     200  {object} domain.Reminder
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Reminder not found"
// @Failure     409  {object} handlers.ErrorResponse "Reminder already archived"
// @Router      /reminders/{id}/snooze [post]
func (h *Handlers) SnoozeReminder(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reminder id must be a UUID")
		return
	}

	var req SnoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "preset required")
		return
	}

	morning := h.def.Morning
	if req.MorningTime != nil {
		clk, err := schedule.ParseClock(*req.MorningTime)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "morning_time must be HH:MM")
			return
		}
		morning = clk
	}

	loc := h.def.Location
	if req.Timezone != nil {
		l, err := time.LoadLocation(*req.Timezone)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown timezone")
			return
		}
		loc = l
	}

	r, err := h.remSvc.Snooze(c.Request.Context(), userID(c), id, domain.SnoozePreset(req.Preset), morning, loc)
	if err != nil {
		switch err {
		case services.ErrInvalidPreset:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown snooze preset")
		case services.ErrReminderNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "reminder not found")
		case services.ErrReminderArchived:
			fail(c, http.StatusConflict, ErrCodeConflict, "reminder is archived")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, r)
}

// RunCleanup godoc
// @ID          runCleanup
// @Summary     Run the housekeeping sweep
// @Description Archives stale delivered reminders and dismisses over-snoozed ones, returning per-action counts.
// @Tags        Reminders
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} services.CleanupResult
// @Failure     500  {object} handlers.ErrorResponse "Cleanup failed"
// @Router      /reminders/cleanup [post]
func (h *Handlers) RunCleanup(c *gin.Context) {
	res, err := h.clnSvc.Run(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCleanupFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}

//
// Helpers
//

// transition runs a simple id-scoped state change and maps service errors to
// the shared HTTP taxonomy.
func (h *Handlers) transition(c *gin.Context, op func(ctx context.Context, userID, id string) error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "reminder id must be a UUID")
		return
	}

	switch err := op(c.Request.Context(), userID(c), id); err {
	case nil:
		noContent(c)
	case services.ErrReminderNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "reminder not found")
	case services.ErrReminderArchived:
		fail(c, http.StatusConflict, ErrCodeConflict, "reminder is archived")
	case services.ErrInvalidTransition:
		fail(c, http.StatusConflict, ErrCodeConflict, "invalid transition")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// generatorDB exposes the DB handle of the concrete generator service for
// idempotency bookkeeping; nil when a stub is wired (tests).
func (h *Handlers) generatorDB() *gorm.DB {
	if svc, ok := h.genSvc.(*services.GeneratorService); ok {
		return svc.DB
	}
	return nil
}

// digestDB exposes the DB handle of the concrete digest service for ETag
// stats; nil when a stub is wired (tests).
func (h *Handlers) digestDB() *gorm.DB {
	if svc, ok := h.digSvc.(*services.DigestService); ok {
		return svc.DB
	}
	return nil
}
