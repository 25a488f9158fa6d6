package translatex

import (
	"errors"
	"fmt"
	"testing"
)

func TestClientError_FailureStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *ClientError
		want string
	}{
		{"http status", &ClientError{Status: 429}, "429"},
		{"kind", &ClientError{Kind: KindBatchMismatch}, KindBatchMismatch},
		{"neither", &ClientError{}, KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.FailureStatus(); got != tt.want {
				t.Errorf("FailureStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ClientError{Kind: KindTransport, Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("ClientError must unwrap to its cause")
	}
}

func TestFailureLabel(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
	}{
		{"client http", &ClientError{Status: 503, Body: "oops"}, "503"},
		{"client kind", &ClientError{Kind: KindBatchMismatch}, KindBatchMismatch},
		{"wrapped client", fmt.Errorf("calling api: %w", &ClientError{Status: 413}), "413"},
		{"reassembly", &ReassemblyError{Message: "length"}, KindReassembly},
		{"count mismatch", &CountMismatchError{Expected: 3, Got: 2}, KindBatchMismatch},
		{"chunk", &ChunkError{Message: "parse"}, KindInvalidPayload},
		{"plain", errors.New("boom"), KindTransport},
		{"nil", nil, KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := FailureLabel(tt.err)
			if status != tt.wantStatus {
				t.Errorf("FailureLabel status = %q, want %q", status, tt.wantStatus)
			}
		})
	}
}

func TestFailureLabel_CarriesBody(t *testing.T) {
	_, body := FailureLabel(&ClientError{Status: 500, Body: "internal"})
	if body != "internal" {
		t.Errorf("body = %q, want the response snippet", body)
	}
}
