package catalog

import (
	"strings"
	"testing"
)

func TestValidateLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		maxLen  int
		wantErr bool
	}{
		{"empty string", "", 10, false},
		{"under limit", "hello", 10, false},
		{"at limit", "hello", 5, false},
		{"over limit", "hello world", 5, true},
		{"unicode under limit", "日本語", 5, false},
		{"unicode over limit", "日本語日本語", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLength("field", tt.value, tt.maxLen)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLength() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCodename(t *testing.T) {
	tests := []struct {
		codename string
		wantErr  bool
	}{
		{"nabu", false},
		{"lemonades", false},
		{"", true},
		{"   ", true},
		{"a/b", true},
		{"..", true},
		{"my phone", false},
		{strings.Repeat("x", MaxCodenameLen+1), true},
	}
	for _, tt := range tests {
		if err := ValidateCodename(tt.codename); (err != nil) != tt.wantErr {
			t.Errorf("ValidateCodename(%q) error = %v, wantErr %v", tt.codename, err, tt.wantErr)
		}
	}
}

func TestValidateDevice_Duplicates(t *testing.T) {
	d := Device{
		Codename: "nabu",
		Name:     "Pad",
		Systems: []System{
			{Name: "AviumUI", Versions: []Version{{Version: "avium-16"}, {Version: "avium-16"}}},
			{Name: "AviumUI"},
		},
	}
	err := ValidateDevice(d)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, `"AviumUI" is duplicated`) {
		t.Errorf("missing duplicate system error: %s", msg)
	}
	if !strings.Contains(msg, `"avium-16" is duplicated`) {
		t.Errorf("missing duplicate version error: %s", msg)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "name", Message: "is required"}
	if got := err.Error(); got != "name: is required" {
		t.Errorf("Error() = %q", got)
	}
}
