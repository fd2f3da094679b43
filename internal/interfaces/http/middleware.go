package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/fieldops/pkg/utils"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// requestIDMiddleware reuses the caller's request id or assigns a new one,
// echoes it back and stores it in the request context
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(utils.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// loggingMiddleware logs one line per request once the handler returns
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		}
		if scope, ok := scopeFrom(c); ok {
			fields = append(fields, "tenant_id", scope.TenantID, "actor_id", scope.ActorID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			s.logger.Warn("HTTP request", fields...)
		default:
			s.logger.Info("HTTP request", fields...)
		}
	}
}

// corsConfig builds the CORS policy. No origins means no CORS middleware;
// a single "*" allows every origin without credentials.
func corsConfig(origins []string) (cors.Config, bool) {
	if len(origins) == 0 {
		return cors.Config{}, false
	}

	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c, true
}
