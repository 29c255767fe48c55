package crm

import (
	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
)

// FieldFullName is the convenience input split into FirstName and LastName
const FieldFullName = "full_name"

// MsgEmptyBody is returned for requests without any fields
const MsgEmptyBody = "request body must not be empty"

// FindContactRequest represents a request to look a contact up by name
type FindContactRequest struct {
	FullName string
}

// CreateContactRequest carries caller-supplied Contact fields, optionally
// including full_name
type CreateContactRequest struct {
	Fields crm.Record
}

// CreateContactResult is a created contact with its reconciliation outcome
type CreateContactResult struct {
	Contact        crm.Record
	Reconciliation ReconciliationResult
}

// VerifyDOBRequest represents a name and birth date check
type VerifyDOBRequest struct {
	FullName string
	DOB      string
}

// VerifyDOBPhoneRequest represents a name, birth date and phone check
type VerifyDOBPhoneRequest struct {
	FullName string
	DOB      string
	Phone    string
}

// CreateCustomerServiceRequest carries Customer_Service__c fields as sent by
// the caller, with the parent account as AccountId
type CreateCustomerServiceRequest struct {
	Fields crm.Record
}

// CreateScriptCaseRequest carries Script_Case__c fields plus the ContactId
// and/or AccountId it relates to
type CreateScriptCaseRequest struct {
	Fields crm.Record
}
