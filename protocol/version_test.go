package protocol

import (
	"strings"
	"testing"
)

func TestParseVersion(t *testing.T) {
	record := make([]byte, VersionLen)
	copy(record, "K1-HW1.0-FW2.3")

	v, err := ParseVersion(record)
	if err != nil {
		t.Fatalf("ParseVersion() error: %v", err)
	}
	if got := v.String(); got != "K1-HW1.0-FW2.3" {
		t.Errorf("String() = %q, want %q", got, "K1-HW1.0-FW2.3")
	}
}

func TestParseVersionLength(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "short record", size: VersionLen - 1},
		{name: "long record", size: VersionLen + 1},
		{name: "empty record", size: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVersion(make([]byte, tt.size))
			if !IsFramingError(err) {
				t.Errorf("ParseVersion(%d bytes) = %v, want FramingError", tt.size, err)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		name string
		fill func(raw []byte)
		want string
	}{
		{
			name: "NUL padded",
			fill: func(raw []byte) { copy(raw, "CR4CU220812S11") },
			want: "CR4CU220812S11",
		},
		{
			name: "space padded",
			fill: func(raw []byte) {
				copy(raw, "HW1 FW2")
				for i := 7; i < len(raw); i++ {
					raw[i] = ' '
				}
			},
			want: "HW1 FW2",
		},
		{
			name: "interior space survives trimming",
			fill: func(raw []byte) { copy(raw, "A B") },
			want: "A B",
		},
		{
			name: "non-printable bytes replaced",
			fill: func(raw []byte) { copy(raw, []byte{'V', 0x01, '2', 0xFE, '3'}) },
			want: "V.2.3",
		},
		{
			name: "all padding",
			fill: func(raw []byte) {},
			want: "",
		},
		{
			name: "full record",
			fill: func(raw []byte) { copy(raw, strings.Repeat("x", VersionLen)) },
			want: strings.Repeat("x", VersionLen),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Version
			tt.fill(v.Raw[:])
			if got := v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
