package util

import (
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line %q is longer than %d characters", line, Wrap)
		}
	}
	if WrapString("") != "" {
		t.Errorf("Expected empty string")
	}
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    *int32
		wantErr bool
	}{
		{"", nil, false},
		{"none", nil, false},
		{"NONE", nil, false},
		{"30", ptr(30), false},
		{"0", ptr(0), false},
		{"-1", ptr(-1), false},
		{"soon", nil, true},
		{"99999999999", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseExpiry(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExpiry(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("ParseExpiry(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func ptr(v int32) *int32 { return &v }
