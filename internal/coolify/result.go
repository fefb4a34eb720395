package coolify

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
)

// Field is one key of a success envelope.
type Field struct {
	Key   string
	Value any
}

// Result is the outcome of one operation: {"success":true, ...fields} or
// {"success":false,"error":msg}. Keys are written in a fixed order so the
// same outcome always serializes to the same bytes.
type Result struct {
	Success bool
	Message string
	Fields  []Field

	// Err is the underlying failure, kept for logging and metrics.
	// It is never serialized.
	Err error
}

// Ok builds a success result.
func Ok(fields ...Field) Result {
	return Result{Success: true, Fields: fields}
}

// Fail builds a failure result whose message is safe to show the caller.
func Fail(err error) Result {
	return Result{Success: false, Message: safeMessage(err), Err: err}
}

// safeMessage picks the caller-facing text for err. Transport failures use
// their fixed messages and validation failures describe the violated rule.
// Anything else is reported generically.
func safeMessage(err error) string {
	var cerr *Error
	switch {
	case errors.As(err, &cerr):
		return cerr.Error()
	case errors.Is(err, sanitize.ErrValidation), errors.Is(err, ErrWebhooksGlobalScope):
		return err.Error()
	default:
		return "Internal error"
	}
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"success":`)
	if !r.Success {
		buf.WriteString(`false,"error":`)
		msg, err := json.Marshal(r.Message)
		if err != nil {
			return nil, err
		}
		buf.Write(msg)
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}

	buf.WriteString("true")
	for _, f := range r.Fields {
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Text renders the result as indented JSON, the form returned to callers.
func (r Result) Text() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
