package salesforce

import (
	"bytes"
	"encoding/json"

	"github.com/CSRAutomation/sofia-salesforce-api/internal/domain/crm"
)

// tokenResponse is the OAuth token endpoint's success payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	ID          string `json:"id"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
	Scope       string `json:"scope"`
}

// oauthErrorResponse is the OAuth token endpoint's error payload
type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e oauthErrorResponse) String() string {
	if e.ErrorDescription == "" {
		return e.Error
	}
	return e.Error + ": " + e.ErrorDescription
}

// queryResponse is one page of a SOQL query result
type queryResponse struct {
	TotalSize      int          `json:"totalSize"`
	Done           bool         `json:"done"`
	Records        []crm.Record `json:"records"`
	NextRecordsURL string       `json:"nextRecordsUrl"`
}

// errorCodeInvalidSession is reported when the access token expired or was revoked
const errorCodeInvalidSession = "INVALID_SESSION_ID"

// decodeJSON decodes data keeping numbers as json.Number so record values
// pass through unchanged.
func decodeJSON(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

// decodeContent decodes an error payload, falling back to the raw text
func decodeContent(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var content any
	if err := decodeJSON(data, &content); err != nil {
		return string(data)
	}
	return content
}

// hasErrorCode reports whether a REST error payload, a list of
// {message, errorCode, fields} objects, contains code.
func hasErrorCode(content any, code string) bool {
	items, ok := content.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if m, ok := item.(map[string]any); ok && m["errorCode"] == code {
			return true
		}
	}
	return false
}
