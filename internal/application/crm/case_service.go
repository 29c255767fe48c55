package crm

import (
	"context"

	"go.uber.org/zap"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/logger"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/telemetry"
)

// CaseService creates the service-desk records tied to accounts and contacts
type CaseService struct {
	gateway crm.RecordGateway
	logger  *zap.Logger
}

// NewCaseService creates a new CaseService
func NewCaseService(gateway crm.RecordGateway, log *zap.Logger) *CaseService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CaseService{gateway: gateway, logger: log}
}

// CreateCustomerService validates and inserts a Customer_Service__c record.
// The caller's AccountId becomes the Account__c lookup; the response echoes
// the fields as the caller sent them.
func (s *CaseService) CreateCustomerService(ctx context.Context, req CreateCustomerServiceRequest) (crm.Record, error) {
	if len(req.Fields) == 0 {
		return nil, crm.NewValidationError(MsgEmptyBody)
	}
	if err := crm.CustomerServiceSchema.Validate(req.Fields); err != nil {
		return nil, err
	}

	payload := req.Fields.Clone()
	payload[string(crm.FieldAccountRef)] = payload[string(crm.FieldAccountID)]
	delete(payload, string(crm.FieldAccountID))

	id, err := s.create(ctx, crm.ObjectCustomerService, payload)
	if err != nil {
		return nil, err
	}

	out := req.Fields.Clone()
	out[string(crm.FieldID)] = id
	return out, nil
}

// CreateScriptCase inserts a Script_Case__c related to a contact, an
// account, or both.
func (s *CaseService) CreateScriptCase(ctx context.Context, req CreateScriptCaseRequest) (crm.Record, error) {
	if len(req.Fields) == 0 {
		return nil, crm.NewValidationError(MsgEmptyBody)
	}

	payload := req.Fields.Clone()
	contactID := payload[string(crm.FieldContactID)]
	accountID := payload[string(crm.FieldAccountID)]
	delete(payload, string(crm.FieldContactID))
	delete(payload, string(crm.FieldAccountID))

	if !present(contactID) && !present(accountID) {
		return nil, crm.NewValidationError("'ContactId' or 'AccountId' is required to relate the case")
	}
	if present(contactID) {
		payload[string(crm.FieldContactRef)] = contactID
	}
	if present(accountID) {
		payload[string(crm.FieldAccountRef)] = accountID
	}

	id, err := s.create(ctx, crm.ObjectScriptCase, payload)
	if err != nil {
		return nil, err
	}

	out := req.Fields.Clone()
	delete(out, string(crm.FieldContactID))
	delete(out, string(crm.FieldAccountID))
	out[string(crm.FieldID)] = id
	if present(contactID) {
		out[string(crm.FieldContactID)] = contactID
	}
	if present(accountID) {
		out[string(crm.FieldAccountID)] = accountID
	}
	return out, nil
}

func (s *CaseService) create(ctx context.Context, object string, payload crm.Record) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "case.create", telemetry.WithAttribute(telemetry.SpanAttrObject, object))
	defer span.End()

	log := logger.WithLogger(ctx, s.logger).With(zap.String("object", object))

	created, err := s.gateway.Create(ctx, object, payload)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("creating record failed", zap.Error(err))
		return "", err
	}
	if !created.Success {
		err := &crm.CreationFailedError{Object: object, Errors: created.Errors}
		telemetry.RecordError(span, err)
		log.Error("platform rejected record", zap.Any("errors", created.Errors))
		return "", err
	}

	log.Info("record created", zap.String("id", created.ID))
	return created.ID, nil
}

// present mirrors the relation-id check: absent, null and empty string all
// count as missing.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	default:
		return true
	}
}
