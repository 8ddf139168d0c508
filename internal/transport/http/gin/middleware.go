package httpgin

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/slotgo/internal/auth"
	redisrepo "github.com/kirinyoku/slotgo/internal/repository/redis"
	"github.com/kirinyoku/slotgo/internal/service/admission"
)

const (
	ctxRequestID = "request_id"
	ctxIdentity  = "identity"

	maxRequestIDLen = 128
)

// RateLimiter admits or rejects one hit for a client.
type RateLimiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Retry-After",
			"Idempotency-Key",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("route", c.FullPath()),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(ctxRequestID)),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", c.Writer.Size()),
		}

		switch {
		case len(c.Errors) > 0:
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
			logger.Error("http", slog.Group("http", attrs...))
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Warn("http", slog.Group("http", attrs...))
		default:
			logger.Info("http", slog.Group("http", attrs...))
		}
	}
}

// RateLimitMiddleware limits hits per client IP. A failing limiter lets
// the request through: admission stays correct without it.
func RateLimitMiddleware(limiter RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		d, err := limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", slog.Any("error", err))
			c.Next()
			return
		}

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, BookingResponse{
				Status: string(admission.KindUnavailable),
				Error:  "rate limited",
			})
			return
		}

		c.Next()
	}
}

// rejectFunc aborts a refused request in the body shape of its route.
type rejectFunc func(c *gin.Context, status int, msg string)

func rejectError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// rejectBooking keeps booking submissions in the {status} shape.
func rejectBooking(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, BookingResponse{
		Status: string(admission.KindInvalid),
		Error:  msg,
	})
}

// IdentityMiddleware verifies the bearer token when tokens are configured
// and stores the caller identity on the context. Without a verifier every
// request passes anonymously.
func IdentityMiddleware(tokens TokenVerifier, reject rejectFunc) gin.HandlerFunc {
	if reject == nil {
		reject = rejectError
	}

	return func(c *gin.Context) {
		if tokens == nil {
			c.Next()
			return
		}

		id, err := tokens.Verify(auth.BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrMissingToken) {
				msg = "missing bearer token"
			}
			c.Header("WWW-Authenticate", `Bearer realm="slotgo"`)
			reject(c, http.StatusUnauthorized, msg)
			return
		}

		c.Set(ctxIdentity, id)
		c.Next()
	}
}

// RequireRole rejects identified callers that lack role. It is a no-op
// when no identity middleware ran before it.
func RequireRole(tokens TokenVerifier, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.Next()
			return
		}

		id, ok := identityFrom(c)
		if !ok || !id.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
			return
		}

		c.Next()
	}
}

func identityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
