package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appcrm "github.com/CSRAutomation/sofia-salesforce-api/internal/application/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/logger"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/dto"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/middleware"
)

// Generic messages for failures whose details stay server-side
const (
	msgUnexpected     = "An unexpected error occurred"
	msgAuthentication = "Could not authenticate with the CRM"
	msgPlatform       = "CRM platform error"
	msgNotObject      = "request body must be a JSON object"
	msgBindingFailed  = "request validation failed"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// OK sends a 200 response
func (h *BaseHandler) OK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, body any) {
	c.JSON(http.StatusCreated, body)
}

// BadRequest sends a 400 with the standard error body
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(message))
}

// TooLarge sends a 413 for bodies over the configured limit
func (h *BaseHandler) TooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(middleware.MsgBodyTooLarge))
}

// BindJSON binds and validates a typed request body. On failure it writes
// the 400 response and returns false.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	logger.GetGinLogger(c).Info("request rejected", zap.Error(err))

	var (
		verrs     validator.ValidationErrors
		tooLarge  *http.MaxBytesError
		typeError *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		h.BadRequest(c, appcrm.MsgEmptyBody)
	case errors.As(err, &tooLarge):
		h.TooLarge(c)
	case errors.As(err, &typeError) && typeError.Field != "":
		h.BadRequest(c, fmt.Sprintf("field '%s' must be a %s", typeError.Field, jsonKind(typeError.Type)))
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(msgBindingFailed, middleware.FormatValidationErrors(verrs)))
	default:
		h.BadRequest(c, msgNotObject)
	}
	return false
}

// jsonKind names a Go type the way JSON callers think of it
func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "list"
	default:
		return "object"
	}
}

// BindRecord reads a free-form JSON object body. Numbers keep their literal
// form so they reach the platform unchanged. An empty body, an empty object
// or anything other than an object is rejected with a 400.
func (h *BaseHandler) BindRecord(c *gin.Context) (crm.Record, bool) {
	var record crm.Record

	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	err := dec.Decode(&record)

	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		h.BadRequest(c, appcrm.MsgEmptyBody)
		return nil, false
	case errors.As(err, &tooLarge):
		h.TooLarge(c)
		return nil, false
	case err != nil:
		logger.GetGinLogger(c).Info("request rejected", zap.Error(err))
		h.BadRequest(c, msgNotObject)
		return nil, false
	case len(record) == 0:
		h.BadRequest(c, appcrm.MsgEmptyBody)
		return nil, false
	}
	return record, true
}

// HandleError maps service errors to HTTP responses. Client errors are
// logged at Info, server errors at Error, and only platform payloads are
// ever passed through to the caller.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if crm.IsValidation(err) {
		h.rejectInput(c, err)
		return
	}

	log := logger.GetGinLogger(c)

	var (
		notFoundErr *crm.NotFoundError
		notVerified *crm.NotVerifiedError
		authErr     *crm.AuthenticationError
		platformErr *crm.PlatformError
		creationErr *crm.CreationFailedError
	)

	switch {
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, dto.OutcomeResponse{Status: dto.StatusNotFound, Message: notFoundErr.Message})

	case errors.As(err, &notVerified):
		c.JSON(http.StatusNotFound, dto.OutcomeResponse{Status: dto.StatusNotVerified, Message: notVerified.Message})

	case errors.As(err, &authErr):
		log.Error("crm authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(msgAuthentication))

	case errors.As(err, &platformErr):
		log.Error("crm platform error", zap.Int("code", platformErr.Code), zap.Any("content", platformErr.Content))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithDetails(msgPlatform, platformErr.Content))

	case errors.As(err, &creationErr):
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithDetails(
			"CRM rejected the "+creationErr.Object+" record", creationErr.Errors))

	default:
		log.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(msgUnexpected))
	}
}

// rejectInput writes the 400 body for a client-input error. Missing fields
// and picklist violations carry their own structured bodies.
func (h *BaseHandler) rejectInput(c *gin.Context, err error) {
	log := logger.GetGinLogger(c)

	var (
		missingErr *crm.MissingFieldsError
		invalidErr *crm.InvalidValueError
	)

	switch {
	case errors.As(err, &missingErr):
		log.Info("request rejected", zap.Strings("missing_fields", missingErr.Fields))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Status:        dto.StatusError,
			Message:       missingErr.Error(),
			MissingFields: missingErr.Fields,
		})

	case errors.As(err, &invalidErr):
		log.Info("request rejected", zap.String("field", invalidErr.Field))
		c.JSON(http.StatusBadRequest, dto.InvalidValueResponse{
			Status:        dto.StatusError,
			Message:       invalidErr.Error(),
			ProvidedValue: invalidErr.Provided,
			AllowedValues: invalidErr.Allowed,
		})

	default:
		log.Info("request rejected", zap.Error(err))
		var validationErr *crm.ValidationError
		if errors.As(err, &validationErr) {
			h.BadRequest(c, validationErr.Message)
			return
		}
		h.BadRequest(c, err.Error())
	}
}
