// Package naming converts the identifiers in a schema (interface, method,
// parameter, enum, enum value, record and record field names) to the
// naming convention of a target language, for use by code generators and by
// the receiver when looking up a local implementation method by name.
package naming

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/luphord/remcall/schema"
)

// Converter renames every kind of schema identifier. Implementations are
// pure functions of the input name (and, for TypeName, the type itself);
// they never consult a schema or keep state.
type Converter interface {
	InterfaceName(name string) string
	MethodName(name string) string
	ParameterName(name string) string
	EnumName(name string) string
	EnumFieldName(name string) string
	RecordName(name string) string
	RecordFieldName(name string) string
	// TypeName names typ itself: for a Primitive it returns the target
	// language's built-in name, for a declared type its converted name.
	TypeName(typ schema.Type) (string, error)
}

// IdentityConverter returns every name unchanged except for TypeName, which
// dispatches a declared type to its corresponding *Name method. It is the
// base every other Converter in this package embeds.
type IdentityConverter struct{}

func (IdentityConverter) InterfaceName(name string) string   { return name }
func (IdentityConverter) MethodName(name string) string      { return name }
func (IdentityConverter) ParameterName(name string) string   { return name }
func (IdentityConverter) EnumName(name string) string        { return name }
func (IdentityConverter) EnumFieldName(name string) string   { return name }
func (IdentityConverter) RecordName(name string) string      { return name }
func (IdentityConverter) RecordFieldName(name string) string { return name }

func (c IdentityConverter) TypeName(typ schema.Type) (string, error) {
	return dispatchTypeName(c, typ)
}

// dispatchTypeName implements IdentityConverter.TypeName's fallback
// dispatch, shared by every Converter that embeds IdentityConverter and
// does not override TypeName for declared types.
func dispatchTypeName(c Converter, typ schema.Type) (string, error) {
	switch t := typ.(type) {
	case *schema.Interface:
		return c.InterfaceName(t.TypeName()), nil
	case *schema.Enum:
		return c.EnumName(t.TypeName()), nil
	case *schema.Record:
		return c.RecordName(t.TypeName()), nil
	default:
		return "", fmt.Errorf("naming: no converted name for %v", typ)
	}
}

// splitWords breaks a CamelCase or camelCase identifier into its
// constituent words, treating every uppercase letter after the first
// character as the start of a new word.
func splitWords(name string) []string {
	var words []string
	var cur []rune
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, string(cur))
	}
	return words
}

// PythonConverter renames identifiers the way the Python code generator
// does: snake_case methods, parameters and record fields, UPPER_SNAKE_CASE
// enum values, and the Python built-in spelling of every primitive type.
type PythonConverter struct {
	IdentityConverter
}

func (PythonConverter) toSnake(name string) string {
	words := splitWords(name)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

func (c PythonConverter) MethodName(name string) string      { return c.toSnake(name) }
func (c PythonConverter) ParameterName(name string) string    { return c.toSnake(name) }
func (c PythonConverter) RecordFieldName(name string) string  { return c.toSnake(name) }
func (c PythonConverter) EnumFieldName(name string) string {
	return strings.ToUpper(c.toSnake(name))
}

func (c PythonConverter) TypeName(typ schema.Type) (string, error) {
	if p, ok := typ.(*schema.Primitive); ok {
		switch p {
		case schema.String:
			return "str", nil
		case schema.Int8, schema.Int16, schema.Int32, schema.Int64,
			schema.Uint8, schema.Uint16, schema.Uint32, schema.Uint64:
			return "int", nil
		case schema.Float32, schema.Float64:
			return "float", nil
		case schema.Void:
			return "None", nil
		case schema.Boolean:
			return "bool", nil
		case schema.Date:
			return "datetime.date", nil
		case schema.Datetime:
			return "datetime.datetime", nil
		case schema.Time:
			return "datetime.time", nil
		default:
			return "", fmt.Errorf("naming: unknown primitive %v", p)
		}
	}
	return dispatchTypeName(c, typ)
}

// CSharpConverter renames identifiers the way the C# code generator does:
// an "I" prefix on interface names, and parameters lowercased in their
// first letter (PascalCase everywhere else, which is already how schema
// identifiers are validated to look).
type CSharpConverter struct {
	IdentityConverter
}

func (CSharpConverter) InterfaceName(name string) string {
	return "I" + name
}

func (CSharpConverter) ParameterName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// GoConverter renames identifiers the way idiomatic Go code does: exported
// PascalCase for everything that must be visible across a package boundary
// (methods, record fields, enum values), unexported camelCase for method
// parameters, and Go's own built-in type names for primitives. Unlike
// PythonConverter and CSharpConverter it is not a port of an existing code
// generator; it is this module's own addition for a Go target.
type GoConverter struct {
	IdentityConverter
}

func (GoConverter) toPascal(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func (c GoConverter) MethodName(name string) string      { return c.toPascal(name) }
func (c GoConverter) RecordFieldName(name string) string { return c.toPascal(name) }
func (c GoConverter) EnumFieldName(name string) string   { return c.toPascal(name) }
func (c GoConverter) RecordName(name string) string      { return c.toPascal(name) }
func (c GoConverter) EnumName(name string) string        { return c.toPascal(name) }
func (c GoConverter) InterfaceName(name string) string   { return c.toPascal(name) }

func (c GoConverter) ParameterName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func (c GoConverter) TypeName(typ schema.Type) (string, error) {
	if p, ok := typ.(*schema.Primitive); ok {
		switch p {
		case schema.String:
			return "string", nil
		case schema.Boolean:
			return "bool", nil
		case schema.Int8:
			return "int8", nil
		case schema.Uint8:
			return "uint8", nil
		case schema.Int16:
			return "int16", nil
		case schema.Uint16:
			return "uint16", nil
		case schema.Int32:
			return "int32", nil
		case schema.Uint32:
			return "uint32", nil
		case schema.Int64:
			return "int64", nil
		case schema.Uint64:
			return "uint64", nil
		case schema.Float32:
			return "float32", nil
		case schema.Float64:
			return "float64", nil
		case schema.Void:
			return "", nil
		case schema.Date, schema.Time, schema.Datetime:
			return "time.Time", nil
		default:
			return "", fmt.Errorf("naming: unknown primitive %v", p)
		}
	}
	return dispatchTypeName(c, typ)
}
