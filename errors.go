package translatex

import (
	"errors"
	"fmt"
	"strconv"
)

// Failure kinds for remote-call errors that have no HTTP status.
const (
	KindTransport      = "ERROR"
	KindBatchMismatch  = "CHUNK_BATCH_MISMATCH"
	KindReassembly     = "CHUNK_REASSEMBLY_ERROR"
	KindInvalidPayload = "CHUNK_PAYLOAD_INVALID"
)

// TranslationError is the base error type for translation failures.
type TranslationError struct {
	Message string
	Cause   error
}

func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ClientError reports a failed remote translate/detect call. Every call
// returns a fresh value so concurrent requests never share failure state.
// Exactly one of Status (HTTP) or Kind (non-HTTP) is meaningful.
type ClientError struct {
	Status int    // HTTP status code, 0 for transport-level failures
	Kind   string // failure kind when Status is 0
	Body   string // response body snippet for diagnostics
	Cause  error
}

func (e *ClientError) Error() string {
	label := e.Kind
	if e.Status != 0 {
		label = strconv.Itoa(e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("client error (%s): %v", label, e.Cause)
	}
	if e.Body != "" {
		return fmt.Sprintf("client error (%s): %s", label, e.Body)
	}
	return fmt.Sprintf("client error (%s)", label)
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// FailureStatus returns the status label stored by the failure tracker.
func (e *ClientError) FailureStatus() string {
	if e.Status != 0 {
		return strconv.Itoa(e.Status)
	}
	if e.Kind != "" {
		return e.Kind
	}
	return KindTransport
}

// CountMismatchError indicates the API returned a different number of
// translations than requested.
type CountMismatchError struct {
	Expected int
	Got      int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("translation count mismatch: expected %d, got %d", e.Expected, e.Got)
}

// ReassemblyError indicates the tokenized HTML could not be rebuilt from a
// translated text list (length mismatch or missing index).
type ReassemblyError struct {
	Message string
}

func (e *ReassemblyError) Error() string {
	return "chunk reassembly failed: " + e.Message
}

// ChunkError indicates the chunker could not parse or serialize HTML.
type ChunkError struct {
	Message string
	Cause   error
}

func (e *ChunkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chunker: %s: %v", e.Message, e.Cause)
	}
	return "chunker: " + e.Message
}

func (e *ChunkError) Unwrap() error {
	return e.Cause
}

// StoreError indicates a persistent-store operation failed. Store errors
// are never masked: losing a cache write only causes re-translation, but a
// silently corrupted read would poison served pages.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// FailureLabel extracts the status label the failure tracker records for
// an error: the HTTP status or kind of a ClientError, KindReassembly for
// reassembly failures, KindTransport otherwise.
func FailureLabel(err error) (status, body string) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.FailureStatus(), ce.Body
	}
	var re *ReassemblyError
	if errors.As(err, &re) {
		return KindReassembly, re.Message
	}
	var cm *CountMismatchError
	if errors.As(err, &cm) {
		return KindBatchMismatch, cm.Error()
	}
	var che *ChunkError
	if errors.As(err, &che) {
		return KindInvalidPayload, che.Error()
	}
	if err != nil {
		return KindTransport, err.Error()
	}
	return KindTransport, ""
}
