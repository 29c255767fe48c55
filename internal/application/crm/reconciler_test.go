package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
)

const accountQuery = "SELECT Id FROM Account WHERE Name = 'JANE DOE' LIMIT 1"

func TestAccountLookupKey(t *testing.T) {
	tests := []struct {
		first, last string
		want        string
	}{
		{"Jane", "Doe", "JANE DOE"},
		{"", "Doe", "DOE"},
		{"  maría", "de la Cruz ", "MARÍA DE LA CRUZ"},
		{"o'brien", "smith", "O'BRIEN SMITH"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AccountLookupKey(tt.first, tt.last))
	}
}

func TestReconciler_Linked(t *testing.T) {
	gw := new(MockRecordGateway)
	log, logs := observedLogger()

	gw.On("Query", mock.Anything, accountQuery).Return(rows(), nil).Once()
	gw.On("Query", mock.Anything, accountQuery).Return(rows(crm.Record{"Id": "001X"}), nil).Once()
	gw.On("Update", mock.Anything, crm.ObjectContact, "003A", crm.Record{"AccountId": "001X"}).
		Return(&crm.UpdateResult{Success: true}, nil).Once()

	result := newTestReconciler(t, gw, log).Reconcile(context.Background(), "003A", "Jane", "Doe")

	assert.Equal(t, OutcomeLinked, result.Outcome)
	assert.Equal(t, "001X", result.AccountID)
	assert.NoError(t, result.Err)
	assert.Equal(t, 1, logs.FilterMessage("contact linked to account").Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	gw.AssertExpectations(t)
}

func TestReconciler_UnlinkedAfterMaxAttempts(t *testing.T) {
	gw := new(MockRecordGateway)
	log, logs := observedLogger()

	gw.On("Query", mock.Anything, accountQuery).Return(rows(), nil).Times(3)

	result := newTestReconciler(t, gw, log).Reconcile(context.Background(), "003A", "Jane", "Doe")

	assert.Equal(t, OutcomeUnlinked, result.Outcome)
	assert.Empty(t, result.AccountID)
	assert.NoError(t, result.Err)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	gw.AssertExpectations(t)
	gw.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_SearchErrorStopsWaiting(t *testing.T) {
	gw := new(MockRecordGateway)
	log, logs := observedLogger()

	searchErr := &crm.PlatformError{Code: 500, Content: "boom"}
	gw.On("Query", mock.Anything, accountQuery).Return(nil, searchErr).Once()

	result := newTestReconciler(t, gw, log).Reconcile(context.Background(), "003A", "Jane", "Doe")

	assert.Equal(t, OutcomeUnlinked, result.Outcome)
	var recErr *crm.ReconciliationError
	require.ErrorAs(t, result.Err, &recErr)
	assert.Equal(t, "search", recErr.Stage)
	assert.ErrorIs(t, result.Err, searchErr)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	gw.AssertNumberOfCalls(t, "Query", 1)
}

func TestReconciler_LinkFailedIsLoggedOnce(t *testing.T) {
	gw := new(MockRecordGateway)
	log, logs := observedLogger()

	linkErr := &crm.PlatformError{Code: 400, Content: []any{map[string]any{"errorCode": "FIELD_INTEGRITY_EXCEPTION"}}}
	gw.On("Query", mock.Anything, accountQuery).Return(rows(crm.Record{"Id": "001X"}), nil).Once()
	gw.On("Update", mock.Anything, crm.ObjectContact, "003A", crm.Record{"AccountId": "001X"}).
		Return(nil, linkErr).Once()

	result := newTestReconciler(t, gw, log).Reconcile(context.Background(), "003A", "Jane", "Doe")

	assert.Equal(t, OutcomeLinkFailed, result.Outcome)
	assert.Equal(t, "001X", result.AccountID)
	var recErr *crm.ReconciliationError
	require.ErrorAs(t, result.Err, &recErr)
	assert.Equal(t, "link", recErr.Stage)

	errorsLogged := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorsLogged, 1)
	assert.Equal(t, "linking contact to account failed", errorsLogged[0].Message)
	assert.Equal(t, "003A", errorsLogged[0].ContextMap()["contact_id"])
	gw.AssertExpectations(t)
}

func TestReconciler_RejectedLinkIsLinkFailed(t *testing.T) {
	gw := new(MockRecordGateway)
	log, logs := observedLogger()

	rejected := []any{map[string]any{"statusCode": "ENTITY_IS_DELETED", "message": "entity is deleted"}}
	gw.On("Query", mock.Anything, accountQuery).Return(rows(crm.Record{"Id": "001X"}), nil).Once()
	gw.On("Update", mock.Anything, crm.ObjectContact, "003A", crm.Record{"AccountId": "001X"}).
		Return(&crm.UpdateResult{Success: false, Errors: rejected}, nil).Once()

	result := newTestReconciler(t, gw, log).Reconcile(context.Background(), "003A", "Jane", "Doe")

	assert.Equal(t, OutcomeLinkFailed, result.Outcome)
	assert.Equal(t, "001X", result.AccountID)

	var recErr *crm.ReconciliationError
	require.ErrorAs(t, result.Err, &recErr)
	assert.Equal(t, "link", recErr.Stage)
	var updateErr *crm.UpdateFailedError
	require.ErrorAs(t, result.Err, &updateErr)
	assert.Equal(t, "003A", updateErr.ID)
	assert.Equal(t, rejected, updateErr.Errors)

	errorsLogged := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorsLogged, 1)
	assert.Equal(t, "linking contact to account failed", errorsLogged[0].Message)
	assert.Zero(t, logs.FilterMessage("contact linked to account").Len())
	gw.AssertExpectations(t)
}

func TestReconciler_IgnoresCallerCancellation(t *testing.T) {
	gw := new(MockRecordGateway)
	gw.On("Query", mock.Anything, accountQuery).Return(rows(crm.Record{"Id": "001X"}), nil).Once()
	gw.On("Update", mock.Anything, crm.ObjectContact, "003A", mock.Anything).
		Return(&crm.UpdateResult{Success: true}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newTestReconciler(t, gw, nil).Reconcile(ctx, "003A", "Jane", "Doe")

	assert.Equal(t, OutcomeLinked, result.Outcome)
	gw.AssertExpectations(t)
}

func TestReconciler_BudgetEndsTheWait(t *testing.T) {
	gw := new(MockRecordGateway)
	log, logs := observedLogger()

	r := NewReconciler(gw, ReconcilerConfig{
		InitialDelay: time.Minute,
		PollInterval: time.Minute,
		MaxAttempts:  3,
		Budget:       20 * time.Millisecond,
	}, log)

	start := time.Now()
	result := r.Reconcile(context.Background(), "003A", "Jane", "Doe")

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, OutcomeUnlinked, result.Outcome)
	assert.NoError(t, result.Err)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	gw.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestReconciler_WaitsBetweenSearches(t *testing.T) {
	gw := new(MockRecordGateway)
	gw.On("Query", mock.Anything, accountQuery).Return(rows(), nil).Times(3)

	r := NewReconciler(gw, ReconcilerConfig{
		InitialDelay: 5 * time.Second,
		PollInterval: 2 * time.Second,
		MaxAttempts:  3,
		Budget:       30 * time.Second,
	}, nil)

	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	r.Reconcile(context.Background(), "003A", "Jane", "Doe")

	assert.Equal(t, []time.Duration{5 * time.Second, 2 * time.Second, 2 * time.Second}, waits)
}

func TestReconciler_SleepErrorIsNotASearchFailure(t *testing.T) {
	gw := new(MockRecordGateway)
	r := newTestReconciler(t, gw, nil)
	r.sleep = func(context.Context, time.Duration) error { return errors.New("deadline") }

	result := r.Reconcile(context.Background(), "003A", "Jane", "Doe")

	assert.Equal(t, OutcomeUnlinked, result.Outcome)
	assert.NoError(t, result.Err)
}
