package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const headerActorID = "X-Actor-ID"

// RequestLogger logs one line per request. Errors already carried by the
// context are logged at warn so failures stay greppable next to the status.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// SubmitRateLimit throttles submissions per external identity when the
// redis limiter is configured. The identity comes from the request body, so
// the handler re-reads it; here we only look at the header hint, falling
// back to the client address.
func (s *Server) SubmitRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(headerActorID))
		if key == "" {
			key = c.ClientIP()
		}

		res, err := s.limiter.AllowUser(c.Request.Context(), key)
		if err != nil {
			// Limiter outage must not take submissions down with it.
			c.Next()
			return
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				seconds := int(res.RetryAfter.Seconds()) + 1
				c.Header("Retry-After", strconv.Itoa(seconds))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

// AdminRequired gates the admin group on the caller's tier.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(headerActorID))
		if actorID == "" {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		actor, err := s.usersvc.GetByExternalID(c.Request.Context(), actorID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		t, err := s.policy.Lookup(actor.Tier)
		if err != nil || !t.Unlimited() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}
