package crm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
)

func newTestContactService(t *testing.T, gw *MockRecordGateway) *ContactService {
	t.Helper()
	return NewContactService(gw, newTestReconciler(t, gw, nil), nil)
}

func TestContactService_Find(t *testing.T) {
	t.Run("normalizes the name before querying", func(t *testing.T) {
		gw := new(MockRecordGateway)
		contact := crm.Record{"Id": "003A", "FirstName": "Jane", "LastName": "Doe", "AccountId": "001X"}
		gw.On("Query", mock.Anything,
			"SELECT Id, FirstName, LastName, Email, AccountId FROM Contact WHERE Name = 'Jane Doe' LIMIT 1").
			Return(rows(contact), nil).Once()

		got, err := newTestContactService(t, gw).Find(context.Background(), FindContactRequest{FullName: "  Jane   Doe "})

		require.NoError(t, err)
		assert.Equal(t, contact, got)
		gw.AssertExpectations(t)
	})

	t.Run("escapes quotes", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Query", mock.Anything,
			"SELECT Id, FirstName, LastName, Email, AccountId FROM Contact WHERE Name = 'Pat O\\'Neil' LIMIT 1").
			Return(rows(crm.Record{"Id": "003B"}), nil).Once()

		_, err := newTestContactService(t, gw).Find(context.Background(), FindContactRequest{FullName: "Pat O'Neil"})

		require.NoError(t, err)
		gw.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Query", mock.Anything, mock.Anything).Return(rows(), nil).Once()

		_, err := newTestContactService(t, gw).Find(context.Background(), FindContactRequest{FullName: "Nobody Here"})

		var notFound *crm.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "contact named 'Nobody Here' not found", notFound.Message)
	})

	t.Run("blank name is rejected without a query", func(t *testing.T) {
		gw := new(MockRecordGateway)

		_, err := newTestContactService(t, gw).Find(context.Background(), FindContactRequest{FullName: "   "})

		assert.True(t, crm.IsValidation(err))
		gw.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	})

	t.Run("platform errors pass through", func(t *testing.T) {
		gw := new(MockRecordGateway)
		platformErr := &crm.PlatformError{Code: 400, Content: []any{"MALFORMED_QUERY"}}
		gw.On("Query", mock.Anything, mock.Anything).Return(nil, platformErr).Once()

		_, err := newTestContactService(t, gw).Find(context.Background(), FindContactRequest{FullName: "Jane Doe"})

		assert.Same(t, platformErr, err)
	})
}

func TestContactService_Create(t *testing.T) {
	t.Run("splits full_name and links the account", func(t *testing.T) {
		gw := new(MockRecordGateway)
		want := crm.Record{
			"FirstName":      "Jane",
			"LastName":       "van der Berg",
			"Email":          "jane@example.com",
			"Entity_Type__c": "Individual",
		}
		gw.On("Create", mock.Anything, crm.ObjectContact, want).
			Return(&crm.CreateResult{ID: "003NEW", Success: true}, nil).Once()
		gw.On("Query", mock.Anything, "SELECT Id FROM Account WHERE Name = 'JANE VAN DER BERG' LIMIT 1").
			Return(rows(crm.Record{"Id": "001X"}), nil).Once()
		gw.On("Update", mock.Anything, crm.ObjectContact, "003NEW", crm.Record{"AccountId": "001X"}).
			Return(&crm.UpdateResult{Success: true}, nil).Once()

		input := crm.Record{"full_name": "Jane van der Berg", "Email": "jane@example.com"}
		result, err := newTestContactService(t, gw).Create(context.Background(), CreateContactRequest{Fields: input})

		require.NoError(t, err)
		assert.Equal(t, OutcomeLinked, result.Reconciliation.Outcome)
		assert.Equal(t, "003NEW", result.Contact["Id"])
		assert.Equal(t, "001X", result.Contact["AccountId"])
		assert.Equal(t, "van der Berg", result.Contact["LastName"])
		assert.NotContains(t, result.Contact, "full_name")
		assert.Contains(t, input, "full_name", "caller's record must not be modified")
		gw.AssertExpectations(t)
	})

	t.Run("explicit names win over full_name", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Create", mock.Anything, crm.ObjectContact, crm.Record{
			"FirstName":      "Janet",
			"LastName":       "Doe",
			"Entity_Type__c": "Business",
		}).Return(&crm.CreateResult{ID: "003NEW", Success: true}, nil).Once()
		gw.On("Query", mock.Anything, mock.Anything).Return(rows(), nil)

		result, err := newTestContactService(t, gw).Create(context.Background(), CreateContactRequest{Fields: crm.Record{
			"full_name":      "Jane Smith",
			"FirstName":      "Janet",
			"LastName":       "Doe",
			"Entity_Type__c": "Business",
		}})

		require.NoError(t, err)
		assert.Equal(t, OutcomeUnlinked, result.Reconciliation.Outcome)
		assert.NotContains(t, result.Contact, "AccountId")
		gw.AssertExpectations(t)
	})

	t.Run("link failure still returns the contact", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Create", mock.Anything, crm.ObjectContact, mock.Anything).
			Return(&crm.CreateResult{ID: "003NEW", Success: true}, nil).Once()
		gw.On("Query", mock.Anything, mock.Anything).Return(rows(crm.Record{"Id": "001X"}), nil).Once()
		gw.On("Update", mock.Anything, crm.ObjectContact, "003NEW", mock.Anything).
			Return(nil, &crm.PlatformError{Code: 500}).Once()

		result, err := newTestContactService(t, gw).Create(context.Background(), CreateContactRequest{Fields: crm.Record{"LastName": "Doe"}})

		require.NoError(t, err)
		assert.Equal(t, OutcomeLinkFailed, result.Reconciliation.Outcome)
		assert.NotContains(t, result.Contact, "AccountId")
	})

	t.Run("validation happens before any remote call", func(t *testing.T) {
		tests := []struct {
			name   string
			fields crm.Record
		}{
			{"empty body", crm.Record{}},
			{"single-word full_name", crm.Record{"full_name": "Cher"}},
			{"no last name", crm.Record{"FirstName": "Jane"}},
			{"non-string last name", crm.Record{"LastName": 42}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				gw := new(MockRecordGateway)

				_, err := newTestContactService(t, gw).Create(context.Background(), CreateContactRequest{Fields: tt.fields})

				assert.True(t, crm.IsValidation(err))
				gw.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("unsuccessful create", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Create", mock.Anything, crm.ObjectContact, mock.Anything).
			Return(&crm.CreateResult{Success: false, Errors: []any{"DUPLICATES_DETECTED"}}, nil).Once()

		_, err := newTestContactService(t, gw).Create(context.Background(), CreateContactRequest{Fields: crm.Record{"LastName": "Doe"}})

		var failed *crm.CreationFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, []any{"DUPLICATES_DETECTED"}, failed.Errors)
		gw.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	})
}

func TestContactService_VerifyDOB(t *testing.T) {
	t.Run("verified", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Query", mock.Anything,
			"SELECT Id, FirstName, LastName, Email, DOB__c FROM Contact WHERE Name = 'Jane Doe' AND DOB__c = 1990-04-01 LIMIT 1").
			Return(rows(crm.Record{"Id": "003A"}), nil).Once()

		got, err := newTestContactService(t, gw).VerifyDOB(context.Background(), VerifyDOBRequest{FullName: "Jane Doe", DOB: "1990-04-01"})

		require.NoError(t, err)
		assert.Equal(t, "003A", got.ID())
		gw.AssertExpectations(t)
	})

	t.Run("no match", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Query", mock.Anything, mock.Anything).Return(rows(), nil).Once()

		_, err := newTestContactService(t, gw).VerifyDOB(context.Background(), VerifyDOBRequest{FullName: "Jane Doe", DOB: "1990-04-01"})

		var notVerified *crm.NotVerifiedError
		require.ErrorAs(t, err, &notVerified)
		assert.Equal(t, MsgNotVerified, notVerified.Message)
	})

	t.Run("bad input never reaches the platform", func(t *testing.T) {
		for _, req := range []VerifyDOBRequest{
			{FullName: "Jane Doe", DOB: "13-31-2020"},
			{FullName: "Jane Doe", DOB: "2020-02-30"},
			{FullName: "Jane Doe", DOB: "1990-04-01' OR Name != '"},
			{FullName: "", DOB: "1990-04-01"},
			{FullName: "Jane Doe"},
		} {
			gw := new(MockRecordGateway)

			_, err := newTestContactService(t, gw).VerifyDOB(context.Background(), req)

			assert.True(t, crm.IsValidation(err), "%+v", req)
			gw.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
		}
	})
}

func TestContactService_VerifyDOBPhone(t *testing.T) {
	const query = "SELECT Id, FirstName, LastName, Email, DOB__c, Phone FROM Contact WHERE Name = 'Jane Doe' AND DOB__c = 1990-04-01"
	req := VerifyDOBPhoneRequest{FullName: "Jane Doe", DOB: "1990-04-01", Phone: "555-123-4567"}

	t.Run("matches by digits", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Query", mock.Anything, query).Return(rows(
			crm.Record{"Id": "003A", "Phone": nil},
			crm.Record{"Id": "003B", "Phone": "(555) 999-0000"},
			crm.Record{"Id": "003C", "Phone": "(555) 123 4567"},
		), nil).Once()

		got, err := newTestContactService(t, gw).VerifyDOBPhone(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "003C", got.ID())
		gw.AssertExpectations(t)
	})

	t.Run("no name and dob match", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Query", mock.Anything, query).Return(rows(), nil).Once()

		_, err := newTestContactService(t, gw).VerifyDOBPhone(context.Background(), req)

		var notVerified *crm.NotVerifiedError
		require.ErrorAs(t, err, &notVerified)
		assert.Equal(t, MsgNotVerifiedNameDOB, notVerified.Message)
	})

	t.Run("phone mismatch", func(t *testing.T) {
		gw := new(MockRecordGateway)
		gw.On("Query", mock.Anything, query).Return(rows(crm.Record{"Id": "003A", "Phone": "555-000-0000"}), nil).Once()

		_, err := newTestContactService(t, gw).VerifyDOBPhone(context.Background(), req)

		var notVerified *crm.NotVerifiedError
		require.ErrorAs(t, err, &notVerified)
		assert.Equal(t, MsgNotVerifiedPhoneMismatch, notVerified.Message)
	})

	t.Run("phone is required", func(t *testing.T) {
		gw := new(MockRecordGateway)

		_, err := newTestContactService(t, gw).VerifyDOBPhone(context.Background(), VerifyDOBPhoneRequest{FullName: "Jane Doe", DOB: "1990-04-01"})

		assert.True(t, crm.IsValidation(err))
		gw.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
	})
}
