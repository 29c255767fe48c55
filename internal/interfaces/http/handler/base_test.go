package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/middleware"
)

func handleError(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	h.HandleError(c, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", crm.NewValidationError("bad input"), http.StatusBadRequest, "error"},
		{"missing fields", &crm.MissingFieldsError{Fields: []string{"A"}}, http.StatusBadRequest, "error"},
		{"invalid value", &crm.InvalidValueError{Field: "A", Provided: "x", Allowed: []string{"y"}}, http.StatusBadRequest, "error"},
		{"not found", &crm.NotFoundError{Message: "nope"}, http.StatusNotFound, "not_found"},
		{"not verified", &crm.NotVerifiedError{Message: "nope"}, http.StatusNotFound, "not_verified"},
		{"authentication", &crm.AuthenticationError{Code: 400, Message: "secret"}, http.StatusInternalServerError, "error"},
		{"platform", &crm.PlatformError{Code: 500, Content: "x"}, http.StatusInternalServerError, "error"},
		{"creation failed", &crm.CreationFailedError{Object: "Contact"}, http.StatusInternalServerError, "error"},
		{"unexpected", errors.New("db password is hunter2"), http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := handleError(t, tt.err)
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, tt.wantBody, resp["status"])
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestBaseHandler_HandleErrorWrappedInputErrors(t *testing.T) {
	code, resp := handleError(t, fmt.Errorf("customer service: %w", &crm.MissingFieldsError{Fields: []string{"TipoCliente__c"}}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []any{"TipoCliente__c"}, resp["missing_fields"])

	code, resp = handleError(t, fmt.Errorf("find: %w", crm.NewValidationError("field 'full_name' is required")))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "field 'full_name' is required", resp["message"])
}

func TestBaseHandler_HandleErrorDoesNotLeak(t *testing.T) {
	_, resp := handleError(t, &crm.UnexpectedError{Err: errors.New("db password is hunter2")})
	assert.Equal(t, "An unexpected error occurred", resp["message"])
	assert.NotContains(t, resp, "details")

	_, resp = handleError(t, &crm.AuthenticationError{Code: 400, Message: "invalid_client_id"})
	assert.NotContains(t, resp["message"], "invalid_client_id")
	assert.NotContains(t, resp, "details")
}

func TestBaseHandler_BindRecordTooLarge(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.BodyLimit(16))
	engine.POST("/", func(c *gin.Context) {
		h := &BaseHandler{}
		if _, ok := h.BindRecord(c); ok {
			c.Status(http.StatusOK)
		}
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"LastName":"a very long last name"}`))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
