package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{catalog.ErrUnauthorized, http.StatusUnauthorized},
		{&catalog.ValidationError{Field: "title", Message: "must not be empty"}, http.StatusBadRequest},
		{&store.Error{Op: "update prompt", Kind: store.ErrNotFound}, http.StatusNotFound},
		{&store.Error{Op: "delete prompt", Kind: store.ErrForbidden}, http.StatusForbidden},
		{fmt.Errorf("toggle: %w", &store.Error{Op: "insert like", Kind: store.ErrConflict}), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestErrorHidesServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/boom", func(c *gin.Context) {
		Error(c, nil, errors.New("dial tcp: refused"), "Failed to fetch prompts")
	})
	r.GET("/invalid", func(c *gin.Context) {
		Error(c, nil, &catalog.ValidationError{Field: "title", Message: "must not be empty"}, "unused")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch prompts"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/invalid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"title: must not be empty"}`, w.Body.String())
}

type enumRequest struct {
	Type       models.PromptType    `json:"type" binding:"required,prompt_type"`
	Status     *models.PromptStatus `json:"status" binding:"omitempty,prompt_status"`
	Visibility models.Visibility    `json:"visibility" binding:"omitempty,visibility"`
}

func TestBindJSONEnums(t *testing.T) {
	RegisterValidators()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req enumRequest
		if !BindJSON(c, &req) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		body string
		want int
		msg  string
	}{
		{`{"type":"image"}`, http.StatusNoContent, ""},
		{`{"type":"code","status":"published","visibility":"private"}`, http.StatusNoContent, ""},
		{`{"type":"poem"}`, http.StatusBadRequest, `type has unknown value "poem"`},
		{`{"type":"text","status":"live"}`, http.StatusBadRequest, `status has unknown value`},
		{`{}`, http.StatusBadRequest, "type is required"},
		{`not json`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.msg != "" {
				assert.Contains(t, w.Body.String(), tt.msg)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/prompts/:id", func(c *gin.Context) {
		id, ok := ParseID(c, "id", "prompt")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	for path, want := range map[string]int{"/prompts/12": 200, "/prompts/0": 400, "/prompts/abc": 400, "/prompts/-1": 400} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}
