package messaging

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors for envelope decoding and validation.
var (
	ErrInvalidEnvelope = errors.New("invalid envelope")
	ErrUnknownKind     = errors.New("unknown envelope kind")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type kindProbe struct {
	Kind Kind `json:"kind"`
}

// PeekKind inspects raw envelope bytes and returns the kind
// discriminator without decoding the full envelope.
func PeekKind(data []byte) (Kind, error) {
	var probe kindProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	switch probe.Kind {
	case KindRequest, KindResponse:
		return probe.Kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, probe.Kind)
}

// EncodeMessage serializes a request envelope after validating its
// invariants.
func EncodeMessage(m *Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// DecodeMessage parses and validates a request envelope.
func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeResponse serializes a response envelope after validating its
// invariants.
func EncodeResponse(r *Response) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// DecodeResponse parses and validates a response envelope.
func DecodeResponse(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the request envelope invariants: kind discriminator,
// non-empty identifiers, known sender, and at least one known recipient.
func (m *Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return nil
}

// Validate checks the response envelope invariants. An error status
// must carry error text; a success status must not.
func (r *Response) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if r.Status == StatusError && r.Error == "" {
		return fmt.Errorf("%w: error status without error text", ErrInvalidEnvelope)
	}
	if r.Status == StatusSuccess && r.Error != "" {
		return fmt.Errorf("%w: success status with error text", ErrInvalidEnvelope)
	}
	return nil
}
