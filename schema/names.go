// Package schema is the typed in-memory representation of a remcall
// schema: primitives, arrays, enums, records and interfaces with methods.
// A Schema is built once, validated, and thereafter immutable.
package schema

import (
	"fmt"
	"strings"
)

// InvalidNameError reports a schema identifier that fails the name grammar:
// non-empty, alphanumeric, first character a letter.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("illegal name %q: %s", e.Name, e.Reason)
}

// ValidateName checks name against the remcall identifier grammar used for
// every declared name (types, fields, methods, enum values) and re-checked
// on every name read off the wire.
func ValidateName(name string) error {
	if len(name) == 0 {
		return &InvalidNameError{name, "a name must contain at least one character"}
	}
	first := rune(name[0])
	if !isLetter(first) {
		return &InvalidNameError{name, "first character must be a letter"}
	}
	for _, r := range name {
		if !isLetter(r) && !isDigit(r) {
			return &InvalidNameError{name, "only alphanumeric characters are allowed"}
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// assertName panics on an invalid name; used only where the caller already
// guarantees validity (e.g. package-level primitive construction).
func assertName(name string) {
	if err := ValidateName(name); err != nil {
		panic(fmt.Sprintf("schema: %s", strings.TrimSpace(err.Error())))
	}
}
