package webpush

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrPayloadDecode = errors.New("push payload is not valid json")

type PayloadDecodeError struct {
	Err error
}

func (e *PayloadDecodeError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPayloadDecode, e.Err)
}

func (e *PayloadDecodeError) Unwrap() []error {
	return []error{ErrPayloadDecode, e.Err}
}

// Payload is a successfully decoded push payload.
// A nil field was absent, empty or not a string.
type Payload struct {
	Title *string
	Body  *string
}

// ParsePayload decodes data as the {title?, body?} object sent by application servers.
// Any valid JSON other than null is accepted; values that are not objects carry no fields.
func ParsePayload(data []byte) (Payload, error) {
	var p Payload

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return p, &PayloadDecodeError{Err: err}
	}
	if v == nil {
		return p, &PayloadDecodeError{Err: errors.New("payload is null")}
	}

	fields, ok := v.(map[string]any)
	if !ok {
		return p, nil
	}
	p.Title = stringField(fields, "title")
	p.Body = stringField(fields, "body")
	return p, nil
}

func stringField(fields map[string]any, key string) *string {
	s, ok := fields[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
