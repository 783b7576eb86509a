// Package params validates inbound request parameter sets before any business
// logic runs. Validation is fail-fast: the first violation is reported and the
// rest are not inspected.
package params

import (
	"fmt"
	"mime"
	"regexp"
	"strings"
)

// Set is a flat mapping of parameter name to scalar value, as decoded from a
// request's query string or form body.
type Set map[string]any

// MissingParamError names the first required parameter found empty.
type MissingParamError struct {
	Key string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Key)
}

// InvalidFormatError names a parameter whose value failed a format check.
type InvalidFormatError struct {
	Field string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %q", e.Field)
}

// Validate checks the required keys in order and fails on the first one whose
// value is empty. Empty means absent, nil, "", or an empty map/slice.
func Validate(set Set, required ...string) error {
	for _, key := range required {
		if isEmpty(set[key]) {
			return &MissingParamError{Key: key}
		}
	}
	return nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

// names must start with an ASCII letter followed by up to 127 characters from
// the letter/digit/underscore/dot/hyphen set.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]{0,127}$`)

// Check is a named domain validation over a parameter set.
type Check func(Set) error

var checks = map[string]Check{
	"domain_name":  nameCheck("domain"),
	"key_name":     nameCheck("key"),
	"content_type": contentTypeCheck("content_type"),
}

// ValidateCustom runs the named checks in order, stopping at the first failure.
// Asking for an unregistered check is a programming error.
func ValidateCustom(set Set, names ...string) error {
	for _, name := range names {
		check, ok := checks[name]
		if !ok {
			return fmt.Errorf("unknown validation %q", name)
		}
		if err := check(set); err != nil {
			return err
		}
	}
	return nil
}

// nameCheck validates the field against the name rule when it is present.
func nameCheck(field string) Check {
	return func(set Set) error {
		value, ok := asString(set[field])
		if !ok || value == "" {
			return nil
		}
		if !namePattern.MatchString(value) {
			return &InvalidFormatError{Field: field}
		}
		return nil
	}
}

// contentTypeCheck requires a registered MIME type when the field is present.
func contentTypeCheck(field string) Check {
	return func(set Set) error {
		value, ok := asString(set[field])
		if !ok || value == "" {
			return nil
		}
		mediaType, _, err := mime.ParseMediaType(value)
		if err != nil {
			return &InvalidFormatError{Field: field}
		}
		top, _, found := strings.Cut(mediaType, "/")
		if !found || !registeredTopLevel[top] {
			return &InvalidFormatError{Field: field}
		}
		return nil
	}
}

// IANA registered top-level media types.
var registeredTopLevel = map[string]bool{
	"application": true,
	"audio":       true,
	"example":     true,
	"font":        true,
	"image":       true,
	"message":     true,
	"model":       true,
	"multipart":   true,
	"text":        true,
	"video":       true,
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}
