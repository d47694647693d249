package schema

import "fmt"

// Schema is the agreed, immutable set of declared types (enums, records,
// interfaces) that two remcall peers exchange. It is built once, validated
// at construction, and never mutated afterwards.
type Schema struct {
	Label          string
	BytesMethodRef int
	BytesObjectRef int

	// SHA256Digest is the content hash captured at parse time, or nil for a
	// schema built in memory that has not yet been serialized.
	SHA256Digest []byte

	declared []Type // enums, records, interfaces, in declaration order as supplied
	mainType *Interface

	typeTable  map[Type]int32 // declared types + primitives -> wire index
	indexTable map[int32]Type // inverse of typeTable, arrays included
	arrays     map[Type]*Array

	methodLookup      map[int]*Method
	methodTable       map[*Method]int
	methodToInterface map[int]*Interface
}

// New validates and builds a Schema from its label, its declared types
// (enums, records and interfaces; primitives and arrays are implicit and
// must not be passed here), and its two reference widths.
//
// New requires exactly one declared Interface named "Main" with at least
// one method, and requires every declared Interface to have at least one
// method (the latter is already enforced by NewInterface, but is
// re-validated here since callers may construct Interfaces directly).
func New(label string, types []Type, bytesMethodRef, bytesObjectRef int, digest []byte) (*Schema, error) {
	if err := validWidth(bytesMethodRef); err != nil {
		return nil, fmt.Errorf("schema: bytes_method_ref: %w", err)
	}
	if err := validWidth(bytesObjectRef); err != nil {
		return nil, fmt.Errorf("schema: bytes_object_ref: %w", err)
	}
	if digest != nil && len(digest) != 32 {
		return nil, fmt.Errorf("schema: sha256 digest must be 32 bytes long, got %d", len(digest))
	}

	declared := make([]Type, 0, len(types))
	seen := map[string]bool{}
	for _, t := range types {
		if !t.declared() {
			return nil, fmt.Errorf("schema: %q is not a declarable type", t.TypeName())
		}
		if seen[t.TypeName()] {
			return nil, fmt.Errorf("schema: type %q declared more than once", t.TypeName())
		}
		seen[t.TypeName()] = true
		declared = append(declared, t)
	}
	sortTypes(declared)

	s := &Schema{
		Label:          label,
		BytesMethodRef: bytesMethodRef,
		BytesObjectRef: bytesObjectRef,
		SHA256Digest:   digest,
		declared:       declared,
		arrays:         map[Type]*Array{},
	}

	for _, t := range declared {
		if iface, ok := t.(*Interface); ok && iface.TypeName() == "Main" {
			s.mainType = iface
		}
	}
	if s.mainType == nil {
		names := []string{}
		for _, ifc := range s.Interfaces() {
			names = append(names, ifc.TypeName())
		}
		return nil, fmt.Errorf(`schema: every schema requires an interface called "Main", got only %v`, names)
	}
	for _, ifc := range s.Interfaces() {
		if len(ifc.Methods) == 0 {
			return nil, fmt.Errorf("schema: every interface requires at least one method, %q has none", ifc.TypeName())
		}
	}

	s.buildTypeTable()
	s.buildMethodTables()
	return s, nil
}

func validWidth(w int) error {
	switch w {
	case 1, 2, 4, 8:
		return nil
	default:
		return fmt.Errorf("references must be 1, 2, 4 or 8 bytes long, got %d", w)
	}
}

// sortTypes orders declared types by (order, name): all enums by name, then
// all records by name, then all interfaces by name.
func sortTypes(types []Type) {
	for i := 1; i < len(types); i++ {
		for j := i; j > 0 && lessType(types[j], types[j-1]); j-- {
			types[j-1], types[j] = types[j], types[j-1]
		}
	}
}

func lessType(a, b Type) bool {
	if a.order() != b.order() {
		return a.order() < b.order()
	}
	return a.TypeName() < b.TypeName()
}

// DeclaredTypes returns the schema's declared types (enums, records,
// interfaces) in canonical order.
func (s *Schema) DeclaredTypes() []Type {
	cp := make([]Type, len(s.declared))
	copy(cp, s.declared)
	return cp
}

// Enums returns the schema's declared enums in canonical (name-sorted) order.
func (s *Schema) Enums() []*Enum {
	var out []*Enum
	for _, t := range s.declared {
		if e, ok := t.(*Enum); ok {
			out = append(out, e)
		}
	}
	return out
}

// Records returns the schema's declared records in canonical order.
func (s *Schema) Records() []*Record {
	var out []*Record
	for _, t := range s.declared {
		if r, ok := t.(*Record); ok {
			out = append(out, r)
		}
	}
	return out
}

// Interfaces returns the schema's declared interfaces in canonical order.
func (s *Schema) Interfaces() []*Interface {
	var out []*Interface
	for _, t := range s.declared {
		if i, ok := t.(*Interface); ok {
			out = append(out, i)
		}
	}
	return out
}

// MainType returns the schema's required "Main" interface.
func (s *Schema) MainType() *Interface {
	return s.mainType
}

// buildTypeTable assigns wire indices: primitives first (fixed canonical
// order, void = 0), then declared types in canonical order, then every
// Array(T) at the negated index of T (Array(void) excluded).
func (s *Schema) buildTypeTable() {
	table := map[Type]int32{}
	index := map[int32]Type{}
	idx := int32(0)
	for _, p := range Primitives {
		table[p] = idx
		index[idx] = p
		idx++
	}
	for _, t := range s.declared {
		table[t] = idx
		index[idx] = t
		idx++
	}
	// Range over the fixed set of types assigned an index above, not table
	// itself: table gains a new *Array key per iteration below, and a Go
	// map range may visit entries inserted during the same range (the
	// language spec leaves this unspecified), which would build an
	// Array-of-just-inserted-Array and overwrite an unrelated positive
	// index in both table and index.
	baseTypes := make([]Type, 0, len(Primitives)+len(s.declared))
	for _, p := range Primitives {
		baseTypes = append(baseTypes, p)
	}
	baseTypes = append(baseTypes, s.declared...)
	for _, t := range baseTypes {
		if t == Void {
			continue
		}
		i := table[t]
		arr := &Array{Elem: t}
		s.arrays[t] = arr
		table[arr] = -i
		index[-i] = arr
	}
	s.typeTable = table
	s.indexTable = index
}

// TypeIndex returns the wire index for typ (a declared type, a primitive, or
// an Array of either), and false if typ is unknown to this schema.
//
// Arrays are resolved structurally by their element type rather than by
// pointer identity: a caller building a Method or Field signature ahead of
// the Schema that will eventually contain it has no way to obtain the
// schema's own canonical Array instance, so any *Array whose Elem this
// schema knows about resolves to the correct negated index.
func (s *Schema) TypeIndex(typ Type) (int32, bool) {
	if arr, ok := typ.(*Array); ok {
		elemIdx, ok := s.TypeIndex(arr.Elem)
		if !ok || elemIdx == 0 {
			return 0, false
		}
		return -elemIdx, true
	}
	i, ok := s.typeTable[typ]
	return i, ok
}

// TypeByIndex resolves a wire index (possibly negative, for arrays) back to
// a Type, looking it up in the table built at construction; it returns
// false for an index not in that table.
func (s *Schema) TypeByIndex(index int32) (Type, bool) {
	t, ok := s.indexTable[index]
	return t, ok
}

// ArrayOf returns the schema's canonical Array(elem) instance, synthesizing
// and caching it if elem has no array in the type table yet (this only
// happens for primitives/declared types that were never referenced by name
// during buildTypeTable, which cannot occur for any type reachable from
// TypeIndex; ArrayOf is provided for callers building values rather than
// decoding the wire).
func (s *Schema) ArrayOf(elem Type) *Array {
	if a, ok := s.arrays[elem]; ok {
		return a
	}
	a := &Array{Elem: elem}
	s.arrays[elem] = a
	return a
}

// buildMethodTables flattens interfaces in name order and, within each,
// methods in name order, assigning each the next method ordinal.
func (s *Schema) buildMethodTables() {
	lookup := map[int]*Method{}
	table := map[*Method]int{}
	toInterface := map[int]*Interface{}
	ordinal := 0
	for _, ifc := range s.Interfaces() {
		for _, m := range ifc.MethodsSorted() {
			lookup[ordinal] = m
			table[m] = ordinal
			toInterface[ordinal] = ifc
			ordinal++
		}
	}
	s.methodLookup = lookup
	s.methodTable = table
	s.methodToInterface = toInterface
}

// MethodLookup returns the method declared at wire ordinal idx, and false if
// none exists.
func (s *Schema) MethodLookup(idx int) (*Method, bool) {
	m, ok := s.methodLookup[idx]
	return m, ok
}

// MethodOrdinal returns the wire ordinal of m, and false if m does not
// belong to this schema.
func (s *Schema) MethodOrdinal(m *Method) (int, bool) {
	i, ok := s.methodTable[m]
	return i, ok
}

// MethodInterface returns the interface that declares the method at wire
// ordinal idx; used by the receiver to know the type of a CALL_METHOD
// frame's receiver-object reference before the implementation method name
// is even resolved.
func (s *Schema) MethodInterface(idx int) (*Interface, bool) {
	i, ok := s.methodToInterface[idx]
	return i, ok
}

// PrettyPrint renders the schema's declared types as a human-readable,
// C-like listing; used for schema audit/debug output, never for wire I/O.
func (s *Schema) PrettyPrint() string {
	out := ""
	for i, t := range s.declared {
		if i > 0 {
			out += "\n\n"
		}
		switch v := t.(type) {
		case *Enum:
			out += prettyEnum(v)
		case *Record:
			out += prettyRecord(v)
		case *Interface:
			out += prettyInterface(v)
		}
	}
	return out
}

func prettyEnum(e *Enum) string {
	out := "enum " + e.name + " {\n"
	for _, v := range e.Values {
		out += "  " + v + ",\n"
	}
	return out + "}"
}

func prettyRecord(r *Record) string {
	out := "record " + r.name + " {\n"
	for _, f := range r.FieldsSorted() {
		out += "  " + f.Type.TypeName() + " " + f.Name + ";\n"
	}
	return out + "}"
}

func prettyInterface(i *Interface) string {
	out := "interface " + i.name + " {\n"
	for _, m := range i.MethodsSorted() {
		out += "  " + m.String() + "\n"
	}
	return out + "}"
}
