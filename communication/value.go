package communication

import "github.com/luphord/remcall/schema"

// EnumValue is the runtime representation of a decoded or to-be-encoded
// enum instance: the schema's Enum together with the name of the value it
// holds. Method implementations receive and return these rather than bare
// ordinals, so logging and equality checks stay readable.
type EnumValue struct {
	Enum *schema.Enum
	Name string
}

// RecordValue is the runtime representation of a decoded or to-be-encoded
// record instance: the schema's Record together with its field values,
// keyed by field name. A value for every field in Record.Fields must be
// present when encoding.
type RecordValue struct {
	Record *schema.Record
	Fields map[string]any
}
