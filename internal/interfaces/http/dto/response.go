package dto

// Response statuses
const (
	StatusFound       = "found"
	StatusCreated     = "created"
	StatusVerified    = "verified"
	StatusNotFound    = "not_found"
	StatusNotVerified = "not_verified"
	StatusError       = "error"
)

// ErrorResponse is the body of every failed request. Only the fields that
// apply to the failure are set.
type ErrorResponse struct {
	Status        string             `json:"status"`
	Message       string             `json:"message"`
	Details       any                `json:"details,omitempty"`
	MissingFields []string           `json:"missing_fields,omitempty"`
	Fields        []ValidationDetail `json:"fields,omitempty"`
}

// InvalidValueResponse reports a picklist value outside its allow-list.
// ProvidedValue is echoed even when null.
type InvalidValueResponse struct {
	Status        string   `json:"status"`
	Message       string   `json:"message"`
	ProvidedValue any      `json:"provided_value"`
	AllowedValues []string `json:"allowed_values"`
}

// ValidationDetail describes one field that failed request binding
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: message}
}

// NewErrorResponseWithDetails creates an error response carrying a payload
// from the platform
func NewErrorResponseWithDetails(message string, details any) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: message, Details: details}
}

// NewValidationErrorResponse creates an error response listing invalid fields
func NewValidationErrorResponse(message string, fields []ValidationDetail) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: message, Fields: fields}
}

// OutcomeResponse is a lookup result that found nothing (not_found,
// not_verified)
type OutcomeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ContactResponse wraps a single contact
type ContactResponse struct {
	Status  string         `json:"status"`
	Contact map[string]any `json:"contact"`
}

// CreatedContactResponse is returned by contact creation. Reconciliation is
// one of linked, unlinked or link_failed; the contact carries AccountId
// only when linked.
type CreatedContactResponse struct {
	Status         string         `json:"status"`
	Contact        map[string]any `json:"contact"`
	Reconciliation string         `json:"reconciliation"`
}

// CustomerServiceResponse wraps a created Customer_Service__c record
type CustomerServiceResponse struct {
	Status          string         `json:"status"`
	CustomerService map[string]any `json:"customer_service"`
}

// CaseResponse wraps a created Script_Case__c record
type CaseResponse struct {
	Status string         `json:"status"`
	Case   map[string]any `json:"case"`
}

// FindContactRequest is the body of POST /contact/find
type FindContactRequest struct {
	FullName string `json:"full_name" binding:"required"`
}

// VerifyDOBRequest is the body of POST /contact/verify/dob
type VerifyDOBRequest struct {
	FullName string `json:"full_name" binding:"required"`
	DOB      string `json:"dob" binding:"required,datetime=2006-01-02"`
}

// VerifyDOBPhoneRequest is the body of POST /contact/verify/dob-phone
type VerifyDOBPhoneRequest struct {
	FullName string `json:"full_name" binding:"required"`
	DOB      string `json:"dob" binding:"required,datetime=2006-01-02"`
	Phone    string `json:"phone" binding:"required"`
}
