package crm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/soql"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/logger"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/telemetry"
)

// Not-verified messages. The dob-phone check distinguishes "nobody with
// that name and birth date" from "found them, but the phone differs".
const (
	MsgNotVerified              = "no contact matches the provided data"
	MsgNotVerifiedNameDOB       = "no contact matches the provided name and date of birth"
	MsgNotVerifiedPhoneMismatch = "name and date of birth match, but the phone number does not"
)

const defaultEntityType = "Individual"

var (
	findSelect        = []soql.Field{crm.FieldID, crm.FieldFirstName, crm.FieldLastName, crm.FieldEmail, crm.FieldAccountID}
	verifySelect      = []soql.Field{crm.FieldID, crm.FieldFirstName, crm.FieldLastName, crm.FieldEmail, crm.FieldDOB}
	verifyPhoneSelect = append(append([]soql.Field{}, verifySelect...), crm.FieldPhone)
)

// ContactService handles contact lookup, creation and identity checks
type ContactService struct {
	gateway    crm.RecordGateway
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewContactService creates a new ContactService
func NewContactService(gateway crm.RecordGateway, reconciler *Reconciler, log *zap.Logger) *ContactService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactService{
		gateway:    gateway,
		reconciler: reconciler,
		logger:     log,
	}
}

// Find returns the first contact whose Name equals the normalized full name
func (s *ContactService) Find(ctx context.Context, req FindContactRequest) (crm.Record, error) {
	name := crm.NormalizeFullName(req.FullName)
	if name == "" {
		return nil, crm.NewValidationError("field 'full_name' is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "contact.find")
	defer span.End()

	query, err := soql.Select(findSelect...).
		From(crm.ObjectContact).
		Where(soql.Eq(crm.FieldName, name)).
		Limit(1).
		Build()
	if err != nil {
		return nil, &crm.UnexpectedError{Err: err}
	}

	rs, err := s.gateway.Query(ctx, query)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, s.logger).Error("contact search failed", zap.Error(err))
		return nil, err
	}

	contact, ok := rs.First()
	if !ok {
		logger.WithLogger(ctx, s.logger).Info("contact not found")
		return nil, &crm.NotFoundError{Message: fmt.Sprintf("contact named '%s' not found", name)}
	}

	logger.WithLogger(ctx, s.logger).Info("contact found",
		zap.String("contact_id", contact.ID()),
		zap.String("account_id", contact.String(string(crm.FieldAccountID))),
	)
	return contact, nil
}

// Create inserts a contact and then links it to the Account the platform
// Flow creates. Reconciliation problems never fail the call; they are
// reported in the result.
func (s *ContactService) Create(ctx context.Context, req CreateContactRequest) (*CreateContactResult, error) {
	if len(req.Fields) == 0 {
		return nil, crm.NewValidationError(MsgEmptyBody)
	}

	data := req.Fields.Clone()
	if raw, ok := data[FieldFullName]; ok {
		delete(data, FieldFullName)
		fullName, _ := raw.(string)
		first, last := crm.SplitFullName(fullName)
		data.SetDefault(string(crm.FieldFirstName), first)
		data.SetDefault(string(crm.FieldLastName), last)
	}

	if data.String(string(crm.FieldLastName)) == "" {
		return nil, crm.NewValidationError("field 'LastName' is required (or a valid 'full_name')")
	}
	data.SetDefault(string(crm.FieldEntityType), defaultEntityType)

	ctx, span := telemetry.StartSpan(ctx, "contact.create")
	defer span.End()

	log := logger.WithLogger(ctx, s.logger)

	created, err := s.gateway.Create(ctx, crm.ObjectContact, data)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("creating contact failed", zap.Error(err))
		return nil, err
	}
	if !created.Success {
		err := &crm.CreationFailedError{Object: crm.ObjectContact, Errors: created.Errors}
		telemetry.RecordError(span, err)
		log.Error("platform rejected contact", zap.Any("errors", created.Errors))
		return nil, err
	}

	log.Info("contact created; waiting for flow account", zap.String("contact_id", created.ID))
	telemetry.SetAttributes(span, telemetry.SpanAttrRecordID, created.ID)

	recon := s.reconciler.Reconcile(ctx, created.ID,
		data.String(string(crm.FieldFirstName)),
		data.String(string(crm.FieldLastName)),
	)

	contact := crm.Record{string(crm.FieldID): created.ID}
	for k, v := range data {
		contact[k] = v
	}
	if recon.Outcome == OutcomeLinked {
		contact[string(crm.FieldAccountID)] = recon.AccountID
	}

	return &CreateContactResult{Contact: contact, Reconciliation: recon}, nil
}

// VerifyDOB confirms a contact exists with the given name and birth date
func (s *ContactService) VerifyDOB(ctx context.Context, req VerifyDOBRequest) (crm.Record, error) {
	name, dob, err := parseIdentity(req.FullName, req.DOB, "'full_name' and 'dob'")
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "contact.verify_dob")
	defer span.End()

	query, err := soql.Select(verifySelect...).
		From(crm.ObjectContact).
		Where(soql.Eq(crm.FieldName, name), soql.Eq(crm.FieldDOB, dob)).
		Limit(1).
		Build()
	if err != nil {
		return nil, &crm.UnexpectedError{Err: err}
	}

	rs, err := s.gateway.Query(ctx, query)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, s.logger).Error("verification query failed", zap.Error(err))
		return nil, err
	}

	contact, ok := rs.First()
	if !ok {
		logger.WithLogger(ctx, s.logger).Info("verification failed: no name and dob match")
		return nil, &crm.NotVerifiedError{Message: MsgNotVerified}
	}

	logger.WithLogger(ctx, s.logger).Info("contact verified", zap.String("contact_id", contact.ID()))
	return contact, nil
}

// VerifyDOBPhone confirms a contact by name, birth date and phone. Phones
// are compared by digits only, since stored numbers carry arbitrary
// punctuation SOQL cannot normalize.
func (s *ContactService) VerifyDOBPhone(ctx context.Context, req VerifyDOBPhoneRequest) (crm.Record, error) {
	name, dob, err := parseIdentity(req.FullName, req.DOB, "'full_name', 'dob' and 'phone'")
	if err != nil {
		return nil, err
	}
	if req.Phone == "" {
		return nil, crm.NewValidationError("fields 'full_name', 'dob' and 'phone' are required")
	}

	ctx, span := telemetry.StartSpan(ctx, "contact.verify_dob_phone")
	defer span.End()

	query, err := soql.Select(verifyPhoneSelect...).
		From(crm.ObjectContact).
		Where(soql.Eq(crm.FieldName, name), soql.Eq(crm.FieldDOB, dob)).
		Build()
	if err != nil {
		return nil, &crm.UnexpectedError{Err: err}
	}

	rs, err := s.gateway.Query(ctx, query)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, s.logger).Error("verification query failed", zap.Error(err))
		return nil, err
	}

	log := logger.WithLogger(ctx, s.logger)
	if rs.Empty() {
		log.Info("verification failed: no name and dob match")
		return nil, &crm.NotVerifiedError{Message: MsgNotVerifiedNameDOB}
	}

	contact, ok := crm.ResolveMatch(rs.Records, string(crm.FieldPhone), req.Phone)
	if !ok {
		log.Warn("verification failed: name and dob matched but phone did not",
			zap.Int("candidates", len(rs.Records)),
		)
		return nil, &crm.NotVerifiedError{Message: MsgNotVerifiedPhoneMismatch}
	}

	log.Info("contact verified", zap.String("contact_id", contact.ID()))
	return contact, nil
}

// parseIdentity normalizes the name and validates the birth date before
// anything reaches the platform.
func parseIdentity(fullName, dob, required string) (string, soql.Date, error) {
	name := crm.NormalizeFullName(fullName)
	if name == "" || dob == "" {
		return "", soql.Date{}, crm.NewValidationError("fields %s are required", required)
	}
	date, err := soql.ParseDate(dob)
	if err != nil {
		return "", soql.Date{}, crm.NewValidationError("invalid 'dob' format, expected YYYY-MM-DD")
	}
	return name, date, nil
}
