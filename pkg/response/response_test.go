package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAbortWithError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		verbose bool
		status  int
		body    string
	}{
		{
			name:   "validation",
			err:    errhandler.NewValidationError("Chat", "Message is required"),
			status: http.StatusBadRequest,
			body:   `{"error":"Validation error","message":"Message is required"}`,
		},
		{
			name:   "rate limited",
			err:    errhandler.NewRateLimitedError("LLM", "quota", errors.New("429")),
			status: http.StatusTooManyRequests,
			body:   `{"error":"Rate limit exceeded","message":"Too many requests. Please wait a moment and try again."}`,
		},
		{
			name:   "generation",
			err:    errhandler.NewGenerationError("LLM", "failed", errors.New("boom")),
			status: http.StatusInternalServerError,
			body:   `{"error":"AI service error","message":"There was an issue with the AI service. Please try again later."}`,
		},
		{
			name:   "internal production",
			err:    errors.New("disk on fire"),
			status: http.StatusInternalServerError,
			body:   `{"error":"Internal server error","message":"Something went wrong. Please try again later."}`,
		},
		{
			name:    "internal development",
			err:     errors.New("disk on fire"),
			verbose: true,
			status:  http.StatusInternalServerError,
			body:    `{"error":"Internal server error","message":"disk on fire"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/chat", nil)

			AbortWithError(c, tt.err, tt.verbose)

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
			assert.True(t, c.IsAborted())
		})
	}
}

func TestNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/nope", nil)

	NotFound(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found","message":"The requested endpoint GET /nope does not exist"}`, w.Body.String())
}
