package station

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func TestParseAngleClamps(t *testing.T) {
	for n := -200; n <= 200; n++ {
		got, err := ParseAngle(strconv.Itoa(n))
		if err != nil {
			t.Fatalf("ParseAngle(%d): %v", n, err)
		}
		want := n
		if want < 0 {
			want = 0
		}
		if want > 90 {
			want = 90
		}
		if got != want {
			t.Errorf("ParseAngle(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestParseAngle(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"45", 45, false},
		{" 30 \n", 30, false},
		{"+12", 12, false},
		{"-0", 0, false},
		{strconv.Itoa(math.MaxInt), 90, false},
		{strconv.Itoa(math.MinInt), 0, false},
		{"99999999999999999999999999", 90, false},
		{"-99999999999999999999999999", 0, false},
		{"", 0, true},
		{"abc", 0, true},
		{"4.5", 0, true},
		{"45deg", 0, true},
		{"0x10", 0, true},
		{"1_0", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAngle(tt.input)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("ParseAngle(%q) error = %v, want ValidationError", tt.input, err)
				}
				if ve.Input != tt.input {
					t.Errorf("ValidationError.Input = %q, want %q", ve.Input, tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAngle(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAngle(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatAngle(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0\n"},
		{45, "45\n"},
		{90, "90\n"},
		{91, "90\n"},
		{-1, "0\n"},
	}
	for _, tt := range tests {
		if got := string(FormatAngle(tt.in)); got != tt.want {
			t.Errorf("FormatAngle(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
