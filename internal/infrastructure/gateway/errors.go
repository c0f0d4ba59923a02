package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind tags the shape of a failed gateway call.
type Kind int

const (
	// KindNetwork: no response was received.
	KindNetwork Kind = iota
	// KindHTTP: the server answered with a non-2xx status.
	KindHTTP
	// KindValidation: an HTTP error whose detail is a list of field errors.
	KindValidation
	// KindSessionExpired: the server rejected the bearer token.
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindValidation:
		return "validation"
	case KindSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

const networkPrefix = "network error: "

// Error is the single failure shape every gateway caller receives.
// Message is always non-empty. Status is zero for network failures.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Data    json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FieldError is one entry of a validation-style detail list.
type FieldError struct {
	Msg  string          `json:"msg"`
	Type string          `json:"type"`
	Loc  json.RawMessage `json:"loc,omitempty"`
}

// FieldErrors decodes Data as a validation detail list. It returns nil when
// the body has no such list.
func (e *Error) FieldErrors() []FieldError {
	if e == nil || len(e.Data) == 0 {
		return nil
	}
	var body struct {
		Detail []FieldError `json:"detail"`
	}
	if err := json.Unmarshal(e.Data, &body); err != nil {
		return nil
	}
	return body.Detail
}

// Normalize turns a non-2xx response into an *Error. The message is derived
// in this order: a string "detail", then the joined "msg" fields of a detail
// list, then the status text. A malformed body never fails normalisation.
func Normalize(status int, statusText string, body []byte) *Error {
	e := &Error{Kind: KindHTTP, Status: status}

	trimmed := bytes.TrimSpace(body)
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if len(trimmed) > 0 && json.Unmarshal(trimmed, &parsed) == nil {
		e.Data = json.RawMessage(trimmed)
		if msg, isList := detailMessage(parsed.Detail); msg != "" {
			e.Message = msg
			if isList {
				e.Kind = KindValidation
			}
		}
	}

	if e.Message == "" {
		e.Message = statusMessage(status, statusText)
	}
	if status == http.StatusUnauthorized {
		e.Kind = KindSessionExpired
	}
	e.Err = fmt.Errorf("http status %d", status)
	return e
}

// NetworkFailure wraps a transport error so callers can tell an unreachable
// server from one that answered with an error.
func NetworkFailure(err error) *Error {
	msg := "request failed"
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		msg = err.Error()
	}
	return &Error{
		Kind:    KindNetwork,
		Message: networkPrefix + msg,
		Err:     err,
	}
}

// ErrBodyTooLarge is wrapped by the error returned for a successful response
// whose body exceeds the client's limit.
var ErrBodyTooLarge = errors.New("response body too large")

// BodyTooLarge reports a 2xx response that could not be read in full. A
// truncated payload is never handed to callers as if it were complete.
func BodyTooLarge(limit int64) *Error {
	return &Error{
		Kind:    KindHTTP,
		Message: ErrBodyTooLarge.Error(),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, limit),
	}
}

func detailMessage(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, false
	}

	var items []FieldError
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, ", "), true
	}
	return "", false
}

func statusMessage(status int, statusText string) string {
	if t := strings.TrimSpace(statusText); t != "" {
		return t
	}
	if t := http.StatusText(status); t != "" {
		return t
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// IsSessionExpired reports whether err is a gateway authorization denial.
func IsSessionExpired(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == KindSessionExpired
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == KindNetwork
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Status
	}
	return 0
}
