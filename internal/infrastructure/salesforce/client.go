package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/soql"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/infrastructure/telemetry"
)

// Client implements crm.RecordGateway over the Salesforce REST API
type Client struct {
	sessions   SessionSource
	cfg        *Config
	httpClient *http.Client
	logger     *zap.Logger
}

var _ crm.RecordGateway = (*Client)(nil)

// NewClient creates a REST client that authenticates through sessions.
// A nil httpClient gets one with the configured request timeout.
func NewClient(sessions SessionSource, cfg *Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg == nil {
		cfg = NewConfig()
	}
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		sessions:   sessions,
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("salesforce"),
	}
}

// maxQueryPages bounds how many nextRecordsUrl hops one query may follow
const maxQueryPages = 100

// Query runs a SOQL statement and follows nextRecordsUrl until every page
// has been read.
func (c *Client) Query(ctx context.Context, statement string) (*crm.ResultSet, error) {
	ctx, span := telemetry.StartSpan(ctx, "salesforce.query", telemetry.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	path := c.cfg.dataPath() + "/query?q=" + url.QueryEscape(statement)
	rs := &crm.ResultSet{}
	for page := 0; ; page++ {
		var resp queryResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if page == 0 {
			rs.TotalSize = resp.TotalSize
		}
		rs.Records = append(rs.Records, resp.Records...)
		rs.Done = resp.Done
		if resp.Done || resp.NextRecordsURL == "" {
			break
		}
		if resp.NextRecordsURL == path || page+1 >= maxQueryPages {
			err := &crm.UnexpectedError{Err: fmt.Errorf("salesforce: query pagination did not finish after %d pages", page+1)}
			telemetry.RecordError(span, err)
			return nil, err
		}
		path = resp.NextRecordsURL
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrRowCount, len(rs.Records))
	c.logger.Debug("salesforce query completed",
		zap.Int("total_size", rs.TotalSize),
		zap.Int("records", len(rs.Records)),
	)
	return rs, nil
}

// Create inserts a record. A platform answer with success=false is returned
// as a result, not an error; the caller decides what it means.
func (c *Client) Create(ctx context.Context, object string, fields crm.Record) (*crm.CreateResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "salesforce.create",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrObject, object),
	)
	defer span.End()

	if err := validateObject(object); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result crm.CreateResult
	if err := c.do(ctx, http.MethodPost, c.cfg.dataPath()+"/sobjects/"+object+"/", fields, &result); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrRecordID, result.ID)
	c.logger.Debug("salesforce record created",
		zap.String("object", object),
		zap.String("id", result.ID),
		zap.Bool("success", result.Success),
	)
	return &result, nil
}

// Update patches a record. The platform answers 204 with no body on success.
func (c *Client) Update(ctx context.Context, object, id string, fields crm.Record) (*crm.UpdateResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "salesforce.update",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrObject, object),
		telemetry.WithAttribute(telemetry.SpanAttrRecordID, id),
	)
	defer span.End()

	if err := validateObject(object); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if id == "" {
		err := &crm.UnexpectedError{Err: fmt.Errorf("salesforce: update %s without record id", object)}
		telemetry.RecordError(span, err)
		return nil, err
	}

	path := c.cfg.dataPath() + "/sobjects/" + object + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, fields, nil); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	c.logger.Debug("salesforce record updated", zap.String("object", object), zap.String("id", id))
	return &crm.UpdateResult{Success: true}, nil
}

// do performs one authenticated request. path is relative to the instance
// URL. Non-2xx answers become *crm.PlatformError carrying the decoded body.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	session, err := c.sessions.Get(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &crm.UnexpectedError{Err: fmt.Errorf("salesforce: encoding request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, session.InstanceURL+path, reader)
	if err != nil {
		return &crm.UnexpectedError{Err: fmt.Errorf("salesforce: failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &crm.UnexpectedError{Err: fmt.Errorf("salesforce: %s %s: %w", method, stripQuery(path), err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &crm.UnexpectedError{Err: fmt.Errorf("salesforce: failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		content := decodeContent(data)
		if resp.StatusCode == http.StatusUnauthorized && hasErrorCode(content, errorCodeInvalidSession) {
			if c.cfg.ReauthOnExpiry {
				c.sessions.Invalidate(session)
			} else {
				c.logger.Warn("salesforce session rejected; reauthentication is disabled")
			}
		}
		return &crm.PlatformError{Code: resp.StatusCode, Content: content}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decodeJSON(data, out); err != nil {
		return &crm.UnexpectedError{Err: fmt.Errorf("salesforce: decoding response: %w", err)}
	}
	return nil
}

// validateObject rejects anything that is not a bare sObject API name, so
// object names can never alter the request path.
func validateObject(object string) error {
	if !soql.Field(object).Valid() || strings.Contains(object, ".") {
		return &crm.UnexpectedError{Err: fmt.Errorf("salesforce: invalid object name %q", object)}
	}
	return nil
}

// stripQuery keeps SOQL, which may carry caller data, out of error messages
func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
