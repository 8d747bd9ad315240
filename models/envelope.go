package models

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Envelope is the uniform wrapper of every REST response.
type Envelope struct {
	Status bool            `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *EnvelopeError  `json:"error,omitempty"`
}

// Issue is one entry of a structured validation failure. Path elements are
// field names or array indexes, e.g. ["matches", 0, "score1"].
type Issue struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
	Code    string `json:"code,omitempty"`
}

// EnvelopeError holds the `error` field, which the API sends either as a
// plain string or as a list of validation issues.
type EnvelopeError struct {
	Text   string
	Issues []Issue
}

func (e *EnvelopeError) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		return json.Unmarshal(b, &e.Text)
	case '[':
		return json.Unmarshal(b, &e.Issues)
	case '{':
		var single struct {
			Message string  `json:"message"`
			Issues  []Issue `json:"issues"`
		}
		if err := json.Unmarshal(b, &single); err != nil {
			return err
		}
		e.Text = single.Message
		e.Issues = single.Issues
		return nil
	}
	// Unknown shape: keep it readable instead of failing the whole decode.
	e.Text = string(b)
	return nil
}

func (e EnvelopeError) MarshalJSON() ([]byte, error) {
	if len(e.Issues) > 0 {
		return json.Marshal(e.Issues)
	}
	return json.Marshal(e.Text)
}

// Message returns the text a user should see: the plain error, the first
// issue's message, or an empty string when there is nothing usable.
func (e *EnvelopeError) Message() string {
	if e == nil {
		return ""
	}
	if e.Text != "" {
		return e.Text
	}
	for _, issue := range e.Issues {
		if issue.Message != "" {
			return issue.Message
		}
	}
	return ""
}
