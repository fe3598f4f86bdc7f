package protocol

import (
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "framing error",
			err:  &FramingError{Reason: "frame too short: 1 bytes"},
			want: []string{"invalid frame", "frame too short"},
		},
		{
			name: "checksum error",
			err:  &ChecksumError{Want: 0x8A, Got: 0x8B},
			want: []string{"checksum mismatch", "0x8A", "0x8B"},
		},
		{
			name: "protocol error with known status",
			err:  &ProtocolError{Operation: "flash chunk", Status: StatusBadChecksum},
			want: []string{"flash chunk failed", "checksum rejected", "0x1F"},
		},
		{
			name: "protocol error with write failure",
			err:  &ProtocolError{Operation: "flash chunk", Status: StatusWriteFailed},
			want: []string{"flash write failed", "0x21"},
		},
		{
			name: "protocol error with unknown status",
			err:  &ProtocolError{Operation: "sector-size query", Status: 0x99},
			want: []string{"sector-size query failed", "unknown status 0x99"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	framing := &FramingError{Reason: "x"}
	checksum := &ChecksumError{Want: 1, Got: 2}
	status := &ProtocolError{Operation: "x", Status: StatusOK}

	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{name: "framing direct", err: framing, pred: IsFramingError, want: true},
		{name: "framing wrapped", err: fmt.Errorf("decode: %w", framing), pred: IsFramingError, want: true},
		{name: "framing mismatch", err: checksum, pred: IsFramingError, want: false},
		{name: "checksum direct", err: checksum, pred: IsChecksumError, want: true},
		{name: "checksum wrapped", err: fmt.Errorf("reply: %w", checksum), pred: IsChecksumError, want: true},
		{name: "checksum mismatch", err: status, pred: IsChecksumError, want: false},
		{name: "protocol direct", err: status, pred: IsProtocolError, want: true},
		{name: "protocol wrapped twice", err: fmt.Errorf("update: %w", fmt.Errorf("chunk 3: %w", status)), pred: IsProtocolError, want: true},
		{name: "protocol mismatch", err: framing, pred: IsProtocolError, want: false},
		{name: "nil error", err: nil, pred: IsProtocolError, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusName(t *testing.T) {
	tests := []struct {
		code byte
		want string
	}{
		{code: StatusOK, want: "ok"},
		{code: StatusComplete, want: "flash complete"},
		{code: StatusBadChecksum, want: "checksum rejected"},
		{code: StatusWriteFailed, want: "flash write failed"},
		{code: 0x42, want: "unknown status 0x42"},
	}

	for _, tt := range tests {
		if got := StatusName(tt.code); got != tt.want {
			t.Errorf("StatusName(0x%02X) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
