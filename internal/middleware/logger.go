package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gigmarket/internal/pkg/response"
)

// ErrorLogger recovers panics into a 500 envelope and logs one line for every
// request that ends in a 5xx or carries gin errors. Stacks are only captured
// for panics.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				c.Abort()
				logRequest(c, start, "panic", recovered)
				log.Printf("http: panic_stack request_id=%s\n%s", requestID(c), debug.Stack())
				return
			}

			switch {
			case len(c.Errors) > 0:
				_, code := response.Classify(c.Errors.Last().Err)
				logRequest(c, start, "handler_error code="+code, strings.Join(c.Errors.Errors(), "; "))
			case c.Writer.Status() >= http.StatusInternalServerError:
				logRequest(c, start, "server_error", http.StatusText(c.Writer.Status()))
			}
		}()

		c.Next()
	}
}

func logRequest(c *gin.Context, start time.Time, kind string, detail any) {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	log.Printf(
		"http: %s status=%d method=%s route=%s user_id=%d request_id=%s latency=%s detail=%q",
		kind,
		c.Writer.Status(),
		c.Request.Method,
		route,
		c.GetInt64("user_id"),
		requestID(c),
		time.Since(start),
		detail,
	)
}

func requestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}
