package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/soql"
)

// Object API names.
const (
	ObjectContact         = "Contact"
	ObjectAccount         = "Account"
	ObjectCustomerService = "Customer_Service__c"
	ObjectScriptCase      = "Script_Case__c"
)

// Field API names used by the gateway.
const (
	FieldID         soql.Field = "Id"
	FieldName       soql.Field = "Name"
	FieldFirstName  soql.Field = "FirstName"
	FieldLastName   soql.Field = "LastName"
	FieldEmail      soql.Field = "Email"
	FieldPhone      soql.Field = "Phone"
	FieldAccountID  soql.Field = "AccountId"
	FieldContactID  soql.Field = "ContactId"
	FieldDOB        soql.Field = "DOB__c"
	FieldEntityType soql.Field = "Entity_Type__c"
	FieldAccountRef soql.Field = "Account__c"
	FieldContactRef soql.Field = "Contact__c"
)

// Record is a field map as exchanged with the platform.
type Record map[string]any

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// ID returns the record Id.
func (r Record) ID() string {
	return r.String(string(FieldID))
}

// Has reports whether the key is present, even with a null value.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// SetDefault sets field only when it is absent.
func (r Record) SetDefault(field string, value any) {
	if !r.Has(field) {
		r[field] = value
	}
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ResultSet is the outcome of a query.
type ResultSet struct {
	TotalSize int
	Done      bool
	Records   []Record
}

// First returns the first record, if any.
func (rs *ResultSet) First() (Record, bool) {
	if rs == nil || len(rs.Records) == 0 {
		return nil, false
	}
	return rs.Records[0], true
}

// Empty reports whether the query matched nothing.
func (rs *ResultSet) Empty() bool {
	return rs == nil || rs.TotalSize == 0 || len(rs.Records) == 0
}

// CreateResult is the platform's answer to a create call.
type CreateResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Errors  []any  `json:"errors"`
}

// UpdateResult is the platform's answer to an update call.
type UpdateResult struct {
	Success bool
	Errors  []any
}

// RecordGateway is the port to the remote platform. All calls are
// synchronous; failures carry *PlatformError where the platform answered.
type RecordGateway interface {
	Query(ctx context.Context, soql string) (*ResultSet, error)
	Create(ctx context.Context, object string, fields Record) (*CreateResult, error)
	Update(ctx context.Context, object, id string, fields Record) (*UpdateResult, error)
}

// NormalizeFullName trims the name and collapses interior whitespace runs.
func NormalizeFullName(fullName string) string {
	return strings.Join(strings.Fields(fullName), " ")
}

// SplitFullName splits a name into first name and the remaining last name.
// A single word yields an empty last name.
func SplitFullName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// stringify renders a scalar field value for comparisons.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
