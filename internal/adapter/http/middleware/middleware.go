package middleware

import (
	"net/http"
	"time"

	"lending-ledger/internal/core/domain"
	"lending-ledger/pkg/apperror"
	"lending-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderBusinessID carries the authenticated business identity, set by
	// the upstream API gateway. This service trusts it; it never does its own
	// end-user authentication.
	HeaderBusinessID = "X-Business-Id"
	HeaderRequestID  = "X-Request-Id"

	// Context keys
	CtxActor     = "actor"
	CtxRequestID = "request_id"
)

// RequestID attaches a request id to every request, generating one when the
// caller did not send one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// ActorAuth resolves the acting business from the gateway-set identity header
// and stores it as a domain.CurrentActor.
func ActorAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderBusinessID)
		if raw == "" {
			response.Error(c, apperror.Validation("missing business identity header"))
			c.Abort()
			return
		}
		businessID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("invalid business identity header"))
			c.Abort()
			return
		}

		c.Set(CtxActor, domain.CurrentActor{BusinessID: businessID})
		c.Next()
	}
}

// Actor fetches the CurrentActor placed by ActorAuth.
func Actor(c *gin.Context) (domain.CurrentActor, bool) {
	v, ok := c.Get(CtxActor)
	if !ok {
		return domain.CurrentActor{}, false
	}
	actor, ok := v.(domain.CurrentActor)
	return actor, ok
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize rejects request bodies above the given byte limit.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
