package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appcrm "github.com/CSRAutomation/sofia-salesforce-api/internal/application/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/logger"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

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

// testServer wires the real services over a mocked gateway. Reconciliation
// runs one search without waiting.
type testServer struct {
	engine  *gin.Engine
	gateway *MockRecordGateway
	logs    *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	gw := new(MockRecordGateway)

	reconciler := appcrm.NewReconciler(gw, appcrm.ReconcilerConfig{MaxAttempts: 1, Budget: time.Second}, log)
	contacts := NewContactHandler(appcrm.NewContactService(gw, reconciler, log))
	cases := NewCaseworkHandler(appcrm.NewCaseService(gw, log))

	engine := gin.New()
	engine.Use(middleware.RequestID(), logger.GinMiddleware(log))
	engine.POST("/contact/find", contacts.Find)
	engine.POST("/contact/create", contacts.Create)
	engine.POST("/contact/verify/dob", contacts.VerifyDOB)
	engine.POST("/contact/verify/dob-phone", contacts.VerifyDOBPhone)
	engine.POST("/customer_service/create", cases.CreateCustomerService)
	engine.POST("/script_case", cases.CreateScriptCase)

	return &testServer{engine: engine, gateway: gw, logs: logs}
}

func (s *testServer) post(t *testing.T, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

// errorLogsFrom counts Error entries excluding the access log line
func (s *testServer) errorLogsFrom(msg string) int {
	return s.logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessage(msg).Len()
}
