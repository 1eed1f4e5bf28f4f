package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/invoicely-api/internal/presentation/http/dto/request"
	"github.com/sangkips/invoicely-api/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseDate(t *testing.T) {
	var errs []apperror.FieldError

	got := parseDate("issue_date", strPtr("2026-02-28"), &errs)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), *got)

	got = parseDate("issue_date", strPtr("2026-02-28T09:30:00Z"), &errs)
	require.NotNil(t, got)
	assert.Equal(t, 9, got.Hour())

	assert.Nil(t, parseDate("due_date", nil, &errs))
	assert.Nil(t, parseDate("due_date", strPtr("   "), &errs))
	assert.Empty(t, errs)

	assert.Nil(t, parseDate("due_date", strPtr("28/02/2026"), &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "due_date", errs[0].Field)
}

func TestBindErrorReportsFieldNames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/register", func(c *gin.Context) {
		var req request.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	t.Run("validation errors", func(t *testing.T) {
		body := `{"first_name":"Ada","last_name":"Lovelace","email":"not-an-email","password":"supersecret","password_confirm":"different"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var resp struct {
			Errors []apperror.FieldError `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		fields := map[string]string{}
		for _, fe := range resp.Errors {
			fields[fe.Field] = fe.Message
		}
		assert.Equal(t, "must be a valid email address", fields["email"])
		assert.Equal(t, "must match Password", fields["password_confirm"])
	})

	t.Run("malformed json", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"first_name":`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestParamUUID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/invoices/:id", func(c *gin.Context) {
		if _, ok := paramUUID(c, "id"); !ok {
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices/42", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices/8f14e45f-ceea-467f-a0e6-7f0a1b9c8d21", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
