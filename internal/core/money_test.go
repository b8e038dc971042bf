package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "integer", input: "42", want: "42.00"},
		{name: "dot decimal", input: "12.50", want: "12.50"},
		{name: "comma decimal", input: "12,50", want: "12.50"},
		{name: "single decimal digit", input: "7.5", want: "7.50"},
		{name: "rounds half up", input: "1.005", want: "1.01"},
		{name: "rounds down", input: "1.004", want: "1.00"},
		{name: "with spaces", input: "  9.99  ", want: "9.99"},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "multiple separators", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) expected error, got %s", tt.input, got)
				}
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("ParseAmount(%q) error = %v, want ValidationError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if FormatAmount(got) != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, FormatAmount(got), tt.want)
			}
		})
	}
}

func TestParseSignedAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "negative dot", input: "-12.50", want: "-12.50"},
		{name: "negative comma", input: "-12,50", want: "-12.50"},
		{name: "zero allowed", input: "0", want: "0.00"},
		{name: "positive", input: "3.99", want: "3.99"},
		{name: "bare minus", input: "-", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignedAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSignedAmount(%q) expected error, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSignedAmount(%q) unexpected error: %v", tt.input, err)
			}
			if FormatAmount(got) != tt.want {
				t.Errorf("ParseSignedAmount(%q) = %s, want %s", tt.input, FormatAmount(got), tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	d := decimal.RequireFromString("10.005")
	if got := FormatAmount(Round2(d)); got != "10.01" {
		t.Errorf("Round2(10.005) = %s, want 10.01", got)
	}
	d = decimal.RequireFromString("-10.005")
	if got := FormatAmount(Round2(d)); got != "-10.01" {
		t.Errorf("Round2(-10.005) = %s, want -10.01", got)
	}
}
