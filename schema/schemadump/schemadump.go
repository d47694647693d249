// Package schemadump writes a schema's declared types as a CSV audit
// report: one row per enum, record and interface, naming its kind and wire
// type index. It is a debugging/documentation aid, not part of the wire
// protocol.
package schemadump

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/luphord/remcall/schema"
)

// Row is one line of the audit report.
type Row struct {
	Name  string `csv:"name"`
	Kind  string `csv:"kind"`
	Index int32  `csv:"index"`
}

// Rows builds the audit report rows for s, in the schema's own canonical
// declared-type order.
func Rows(s *schema.Schema) []*Row {
	var rows []*Row
	for _, t := range s.DeclaredTypes() {
		idx, _ := s.TypeIndex(t)
		rows = append(rows, &Row{
			Name:  t.TypeName(),
			Kind:  kindOf(t),
			Index: idx,
		})
	}
	return rows
}

func kindOf(t schema.Type) string {
	switch t.(type) {
	case *schema.Enum:
		return "enum"
	case *schema.Record:
		return "record"
	case *schema.Interface:
		return "interface"
	default:
		return "unknown"
	}
}

// Write renders s's audit report as CSV to w.
func Write(s *schema.Schema, w io.Writer) error {
	return gocsv.Marshal(Rows(s), w)
}
