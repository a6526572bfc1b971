package apperr

import (
	"errors"
	"fmt"
)

// Payload is the flat, serializable form of an error. It is what crosses the
// worker boundary and what HTTP handlers render.
type Payload struct {
	Message      string `json:"message"`
	Kind         Kind   `json:"kind"`
	IsParseError bool   `json:"isParseError"`
	IsStoreError bool   `json:"isStoreError"`
	IsDuplicate  bool   `json:"isDuplicate,omitempty"`
	IsNotFound   bool   `json:"isNotFound,omitempty"`
	File         string `json:"file,omitempty"`
	Line         string `json:"line,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// ToPayload flattens err. A nil error yields a nil payload.
func ToPayload(err error) *Payload {
	if err == nil {
		return nil
	}

	kind := KindOf(err)
	p := &Payload{
		Message:      err.Error(),
		Kind:         kind,
		IsParseError: kind == KindParse,
		IsStoreError: kind == KindStore,
		IsDuplicate:  errors.Is(err, ErrAlreadyExists),
		IsNotFound:   errors.Is(err, ErrNotFound),
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		p.File = parseErr.File
		p.Line = parseErr.Line
		p.Reason = string(parseErr.Reason)
	}
	return p
}

// Error lets a payload be returned as an error on the receiving side.
func (p *Payload) Error() string {
	return fmt.Sprintf("%s: %s", p.Kind, p.Message)
}

// Is lets errors.Is match the sentinels a payload was flattened from.
func (p *Payload) Is(target error) bool {
	switch target {
	case ErrAlreadyExists:
		return p.IsDuplicate
	case ErrNotFound:
		return p.IsNotFound
	case ErrInvalid:
		return p.Kind == KindValidation
	case ErrHeaderNotFound:
		return p.Reason == string(ReasonHeaderNotFound)
	}
	return false
}
