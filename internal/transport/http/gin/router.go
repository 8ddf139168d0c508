package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/slotgo/internal/auth"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	redisrepo "github.com/kirinyoku/slotgo/internal/repository/redis"
	"github.com/kirinyoku/slotgo/internal/service/admin"
	"github.com/kirinyoku/slotgo/internal/service/admission"
	"github.com/kirinyoku/slotgo/internal/service/ledger"
	"github.com/kirinyoku/slotgo/internal/service/query"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	idemLockTTL      = 60 * time.Second
	maxIdemKeyLen    = 255
	defaultHeartbeat = 15 * time.Second
)

type BookingSubmitter interface {
	Submit(ctx context.Context, eventID, email string) (*domain.Booking, error)
}

type EventReader interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error)
	Availability(ctx context.Context, id string) (domain.CapacitySnapshot, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
}

type EventAdmin interface {
	CreateEvent(ctx context.Context, ne domain.NewEvent) (*domain.Event, error)
	Audit(ctx context.Context, eventID string) (*admin.Audit, error)
	PendingReconciliation(ctx context.Context, limit int64) ([]domain.ReconciliationFlag, error)
}

type IdempotencyStore interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	GetResult(ctx context.Context, key string) (int, string, bool, error)
	SaveResult(ctx context.Context, key string, status int, jsonPayload string) error
	Release(ctx context.Context, key string) error
}

// Deps are the handlers' collaborators. Idempotency, Limiter, Tokens and
// Hub are optional; a nil one disables its feature.
type Deps struct {
	Bookings    BookingSubmitter
	Events      EventReader
	Admin       EventAdmin
	Idempotency IdempotencyStore
	Limiter     RateLimiter
	Tokens      TokenVerifier
	Hub         *Hub
	Logger      *slog.Logger

	StreamHeartbeat time.Duration
}

func NewRouter(d Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	if d.StreamHeartbeat <= 0 {
		d.StreamHeartbeat = defaultHeartbeat
	}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(d.Logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/events", handleListEvents(d))
	r.GET("/events/:id", handleGetEvent(d))
	r.GET("/events/:id/availability", handleGetAvailability(d))
	if d.Hub != nil {
		r.GET("/events/:id/availability/stream", handleAvailabilityStream(d))
	}

	r.POST("/events/:id/bookings",
		IdentityMiddleware(d.Tokens, rejectBooking),
		RateLimitMiddleware(d.Limiter, d.Logger),
		handleCreateBooking(d),
	)
	r.GET("/bookings/:id", IdentityMiddleware(d.Tokens, rejectError), handleGetBooking(d))

	// Admin API
	adm := r.Group("/admin", IdentityMiddleware(d.Tokens, rejectError), RequireRole(d.Tokens, auth.RoleAdmin))
	{
		adm.POST("/events", handleCreateEvent(d))
		adm.GET("/events/:id/audit", handleAuditEvent(d))
		adm.GET("/reconciliation", handleListReconciliation(d))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Submit a booking
// @Description Admits the participant if the event exists, the participant is not booked yet and a slot is free. With JWT enabled the email comes from the token.
// @Tags     bookings
// @Param    id   path  string  true  "Event ID (uuid)"
// @Param    req  body  CreateBookingRequest  false  "payload"
// @Param    Idempotency-Key  header  string  false  "replays the first answer for the same key"
// @Success  201  {object}  BookingResponse  "confirmed"
// @Failure  400  {object}  BookingResponse  "invalid"
// @Failure  401  {object}  BookingResponse  "invalid, missing or bad bearer token"
// @Failure  404  {object}  BookingResponse  "not_found"
// @Failure  409  {object}  BookingResponse  "full / duplicate"
// @Failure  429  {object}  BookingResponse  "rate limited"
// @Failure  503  {object}  BookingResponse  "unavailable, retry"
// @Security BearerAuth
// @Router   /events/{id}/bookings [post]
func handleCreateBooking(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		eventID := c.Param("id")

		var email string
		if id, ok := identityFrom(c); ok {
			email = id.Email
		} else {
			var req CreateBookingRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, BookingResponse{
					Status: string(admission.KindInvalid),
					Error:  "malformed request body",
				})
				return
			}
			email = req.ParticipantEmail
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		if len(idemKey) > maxIdemKeyLen {
			c.JSON(http.StatusBadRequest, BookingResponse{
				Status: string(admission.KindInvalid),
				Error:  "idempotency key too long",
			})
			return
		}

		var storeKey string
		if d.Idempotency != nil && idemKey != "" {
			storeKey = redisrepo.KeyIdemBooking(eventID, strings.ToLower(strings.TrimSpace(email))+":"+idemKey)

			if replayed := replayIdempotent(c, d.Idempotency, storeKey, idemKey); replayed {
				return
			}

			locked, err := d.Idempotency.AcquireLock(ctx, storeKey, idemLockTTL)
			switch {
			case err != nil:
				d.Logger.Warn("idempotency store unavailable", slog.Any("error", err))
				storeKey = ""
			case !locked:
				if replayed := replayIdempotent(c, d.Idempotency, storeKey, idemKey); replayed {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusServiceUnavailable, BookingResponse{
					Status: string(admission.KindUnavailable),
					Error:  "request with this idempotency key is in progress",
				})
				return
			}
		}

		b, err := d.Bookings.Submit(ctx, eventID, email)
		kind := admission.KindOf(err)
		status, resp := bookingResponse(kind, b, err)

		if kind == admission.KindUnavailable && err != nil {
			_ = c.Error(err)
		}

		if storeKey != "" {
			sctx := context.WithoutCancel(ctx)
			if kind.Retryable() {
				if err := d.Idempotency.Release(sctx, storeKey); err != nil {
					d.Logger.Warn("idempotency key not released", slog.Any("error", err))
				}
			} else if payload, err := json.Marshal(resp); err == nil {
				if err := d.Idempotency.SaveResult(sctx, storeKey, status, string(payload)); err != nil {
					d.Logger.Warn("idempotency result not saved", slog.Any("error", err))
				}
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(status, resp)
	}
}

func replayIdempotent(c *gin.Context, store IdempotencyStore, storeKey, idemKey string) bool {
	status, payload, ok, err := store.GetResult(c.Request.Context(), storeKey)
	if err != nil || !ok {
		return false
	}

	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(status, "application/json; charset=utf-8", []byte(payload))

	return true
}

// bookingResponse maps an admission outcome to its HTTP answer. Store
// errors never reach the body.
func bookingResponse(kind admission.Kind, b *domain.Booking, err error) (int, BookingResponse) {
	resp := BookingResponse{Status: string(kind)}

	switch kind {
	case admission.KindConfirmed:
		resp.BookingID = b.ID
		return http.StatusCreated, resp
	case admission.KindFull, admission.KindDuplicate:
		return http.StatusConflict, resp
	case admission.KindNotFound:
		return http.StatusNotFound, resp
	case admission.KindInvalid:
		var ie *admission.InvalidInputError
		if errors.As(err, &ie) {
			resp.Error = ie.Error()
		}
		return http.StatusBadRequest, resp
	default:
		return http.StatusServiceUnavailable, resp
	}
}

// @Summary  List events
// @Tags     events
// @Param    limit  query  int  false  "page size"
// @Param    offset query  int  false  "offset"
// @Success  200  {object}  ListEventsResponse
// @Router   /events [get]
func handleListEvents(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		events, err := d.Events.ListEvents(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, ListEventsResponse{
			Events: events,
			Limit:  limit,
			Offset: offset,
		}, "public, max-age=5")
	}
}

// @Summary  Get event
// @Description The reserved count is cached for up to a minute; use the availability endpoint for a fresh value.
// @Tags     events
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {object}  domain.Event
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := d.Events.GetEvent(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=60")
	}
}

// @Summary  Get availability
// @Tags     events
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {object}  AvailabilityResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/availability [get]
func handleGetAvailability(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := d.Events.Availability(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, newAvailabilityResponse(snap))
	}
}

// @Summary  Stream availability
// @Description Server-sent events: one "availability" event on connect and one after every change.
// @Tags     events
// @Produce  text/event-stream
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200  {object}  AvailabilityResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/availability/stream [get]
func handleAvailabilityStream(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		eventID, err := domain.ParseEventID(c.Param("id"))
		if err != nil {
			respondErr(c, query.ErrEventNotFound)
			return
		}

		// watch before the first read so no change in between is lost
		changes, stop := d.Hub.Watch(eventID)
		defer stop()

		snap, err := d.Events.Availability(ctx, eventID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		c.SSEvent("availability", newAvailabilityResponse(snap))
		c.Writer.Flush()

		heartbeat := time.NewTicker(d.StreamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-d.Hub.Done():
				return

			case <-changes:
				snap, err := d.Events.Availability(ctx, eventID)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					c.SSEvent("error", ErrorResponse{Error: "availability temporarily unavailable"})
				} else {
					c.SSEvent("availability", newAvailabilityResponse(snap))
				}
				c.Writer.Flush()

			case <-heartbeat.C:
				_, _ = c.Writer.WriteString(": keep-alive\n\n")
				c.Writer.Flush()
			}
		}
	}
}

// @Summary  Get booking
// @Tags     bookings
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /bookings/{id} [get]
func handleGetBooking(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := d.Events.GetBooking(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}

		// callers only see their own bookings unless they are admins
		if id, ok := identityFrom(c); ok && !id.HasRole(auth.RoleAdmin) &&
			!strings.EqualFold(strings.TrimSpace(id.Email), b.ParticipantEmail) {
			respondErr(c, query.ErrBookingNotFound)
			return
		}

		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Create event
// @Tags     admin
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} CreateEventResponse
// @Failure  400 {object} ErrorResponse
// @Security BearerAuth
// @Router   /admin/events [post]
func handleCreateEvent(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "malformed request body")
			return
		}

		starts, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}

		e, err := d.Admin.CreateEvent(c.Request.Context(), domain.NewEvent{
			Title:    req.Title,
			Venue:    req.Venue,
			StartsAt: starts,
			Capacity: req.Capacity,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateEventResponse{EventID: e.ID})
	}
}

// @Summary  Audit event ledger
// @Description Compares the reserved count with the stored bookings. Read-only.
// @Tags     admin
// @Param    id  path  string  true  "Event ID (uuid)"
// @Success  200 {object} admin.Audit
// @Failure  404 {object} ErrorResponse
// @Security BearerAuth
// @Router   /admin/events/{id}/audit [get]
func handleAuditEvent(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := d.Admin.Audit(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// @Summary  List reconciliation flags
// @Tags     admin
// @Param    limit  query  int  false  "max flags, newest first"
// @Success  200 {object} ReconciliationResponse
// @Security BearerAuth
// @Router   /admin/reconciliation [get]
func handleListReconciliation(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)

		flags, err := d.Admin.PendingReconciliation(c.Request.Context(), int64(limit))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ReconciliationResponse{Flags: flags})
	}
}

// --- Helpers ---

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	var invalidEvent *admin.InvalidEventError

	switch {
	case errors.As(err, &invalidEvent):
		badRequest(c, invalidEvent.Error())
	case errors.Is(err, admin.ErrEventConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "event conflict"})
	case errors.Is(err, query.ErrEventNotFound), errors.Is(err, admin.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, query.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, ledger.ErrUnavailable), errors.Is(err, repository.ErrUnavailable):
		_ = c.Error(err)
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
