package crm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
)

// MockRecordGateway is a mock implementation of crm.RecordGateway
type MockRecordGateway struct {
	mock.Mock
}

func (m *MockRecordGateway) Query(ctx context.Context, soql string) (*crm.ResultSet, error) {
	args := m.Called(ctx, soql)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.ResultSet), args.Error(1)
}

func (m *MockRecordGateway) Create(ctx context.Context, object string, fields crm.Record) (*crm.CreateResult, error) {
	args := m.Called(ctx, object, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.CreateResult), args.Error(1)
}

func (m *MockRecordGateway) Update(ctx context.Context, object, id string, fields crm.Record) (*crm.UpdateResult, error) {
	args := m.Called(ctx, object, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.UpdateResult), args.Error(1)
}

func rows(records ...crm.Record) *crm.ResultSet {
	return &crm.ResultSet{TotalSize: len(records), Done: true, Records: records}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// newTestReconciler never sleeps
func newTestReconciler(t *testing.T, gw crm.RecordGateway, log *zap.Logger) *Reconciler {
	t.Helper()
	r := NewReconciler(gw, DefaultReconcilerConfig(), log)
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}
