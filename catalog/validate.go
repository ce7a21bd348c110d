package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field length limits
const (
	MaxCodenameLen = 64
	MaxNameLen     = 100
)

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateLength checks if a string exceeds the max length (in runes, not bytes)
func ValidateLength(field, value string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be %d characters or less", maxLen),
		}
	}
	return nil
}

// ValidateRequired checks if a string is non-empty after trimming
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateCodename rejects empty, overlong or slash-bearing codenames.
func ValidateCodename(codename string) error {
	if err := ValidateRequired("codename", codename); err != nil {
		return err
	}
	if strings.Contains(codename, "/") {
		return ValidationError{Field: "codename", Message: "must not contain '/'"}
	}
	if codename == "." || codename == ".." {
		return ValidationError{Field: "codename", Message: "must not be a dot segment"}
	}
	return ValidateLength("codename", codename, MaxCodenameLen)
}

// ValidateDevice checks the identifiers of a device record. System names must
// be unique within the device and version ids unique within their system.
func ValidateDevice(d Device) error {
	var errs []error
	if err := ValidateCodename(d.Codename); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateRequired("name", d.Name); err != nil {
		errs = append(errs, err)
	} else if err := ValidateLength("name", d.Name, MaxNameLen); err != nil {
		errs = append(errs, err)
	}

	systems := make(map[string]bool, len(d.Systems))
	for _, sys := range d.Systems {
		if err := ValidateRequired("systems.name", sys.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		if systems[sys.Name] {
			errs = append(errs, ValidationError{Field: "systems.name", Message: fmt.Sprintf("%q is duplicated", sys.Name)})
		}
		systems[sys.Name] = true

		versions := make(map[string]bool, len(sys.Versions))
		for _, v := range sys.Versions {
			field := sys.Name + ".versions.version"
			if err := ValidateRequired(field, v.Version); err != nil {
				errs = append(errs, err)
				continue
			}
			if versions[v.Version] {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("%q is duplicated", v.Version)})
			}
			versions[v.Version] = true
		}
	}
	return errors.Join(errs...)
}
