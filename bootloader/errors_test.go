package bootloader

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Fiddl3/k1-mcu-flasher/protocol"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "handshake timeout",
			err:  &HandshakeTimeoutError{Window: 15 * time.Second},
			want: []string{"15s", "power-cycle"},
		},
		{
			name: "state error",
			err:  &StateError{Op: "firmware update", State: StateDisconnected},
			want: []string{"firmware update", `"disconnected"`},
		},
		{
			name: "update error in transfer",
			err:  &UpdateError{Stage: StageTransfer, Chunk: 7, Err: errors.New("no acknowledgment")},
			want: []string{"chunk 7", "no acknowledgment"},
		},
		{
			name: "update error before transfer",
			err:  &UpdateError{Stage: StageQuery, Err: errors.New("no reply")},
			want: []string{"during query", "no reply"},
		},
		{
			name: "app start error",
			err:  &AppStartError{Err: errors.New("no acknowledgment")},
			want: []string{"application start failed", "no acknowledgment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("message %q does not contain %q", msg, want)
				}
			}
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	cause := &protocol.ProtocolError{Operation: "chunk transfer", Status: protocol.StatusBadChecksum}

	var pe *protocol.ProtocolError
	ue := &UpdateError{Stage: StageTransfer, Chunk: 2, Err: cause}
	if !errors.As(ue, &pe) || pe.Status != protocol.StatusBadChecksum {
		t.Errorf("UpdateError does not expose its cause: %v", ue)
	}

	ase := &AppStartError{Err: cause}
	if !errors.As(ase, &pe) {
		t.Errorf("AppStartError does not expose its cause: %v", ase)
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"handshake timeout direct", &HandshakeTimeoutError{Window: time.Second}, IsHandshakeTimeout, true},
		{"handshake timeout wrapped", fmt.Errorf("request: %w", &HandshakeTimeoutError{Window: time.Second}), IsHandshakeTimeout, true},
		{"handshake timeout mismatch", &StateError{Op: "x", State: StateReady}, IsHandshakeTimeout, false},
		{"state error direct", &StateError{Op: "x", State: StateReady}, IsStateError, true},
		{"state error mismatch", errors.New("other"), IsStateError, false},
		{"update error direct", &UpdateError{Stage: StageQuery, Err: errors.New("x")}, IsUpdateError, true},
		{"update error mismatch", &AppStartError{Err: errors.New("x")}, IsUpdateError, false},
		{"app start error direct", &AppStartError{Err: errors.New("x")}, IsAppStartError, true},
		{"app start error nil", nil, IsAppStartError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateHandshaking, "handshaking"},
		{StateReady, "ready"},
		{StateQueryingVersion, "querying version"},
		{StateUpdating, "updating"},
		{StateStartingApp, "starting app"},
		{StateRequestingBootloader, "requesting bootloader"},
		{State(42), "state(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
