package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"questionnaire_template_editor/generator"
	"questionnaire_template_editor/logger"
)

const requestIDHeader = "X-Request-ID"

type errorResp struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
	Status  int    `json:"upstreamStatus,omitempty"`
}

// respondAgentError distinguishes missing input from an unreachable AI service.
func respondAgentError(c *gin.Context, err error, summary string) {
	var ve *generator.ValidationError
	var ue *generator.UpstreamError
	switch {
	case errors.As(err, &ve):
		respondError(c, http.StatusBadRequest, "missing_input", err, ve.Error())
	case errors.As(err, &ue) && ue.Timeout:
		respondError(c, http.StatusGatewayTimeout, "upstream_timeout", err, summary)
	case errors.As(err, &ue):
		c.AbortWithStatusJSON(http.StatusBadGateway, errorResp{
			Error:   summary,
			Details: err.Error(),
			Code:    "upstream_unavailable",
			Status:  ue.StatusCode,
		})
	default:
		respondError(c, http.StatusInternalServerError, "internal", err, summary)
	}
}

func respondError(c *gin.Context, status int, code string, err error, summary string) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if summary == "" {
		summary = msg
	}
	c.AbortWithStatusJSON(status, errorResp{Error: summary, Details: msg, Code: code})
}

// requestLogger tags each request with an id and logs one line when it completes.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if path == "" {
			path = "/"
		}
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		c.Next()

		kv := []interface{}{
			"request_id", id,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("http request", kv...)
			return
		}
		log.Info("http request", kv...)
	}
}
