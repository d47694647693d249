package schema

import "fmt"

// Type is implemented by every schema type: primitives, arrays, enums,
// records and interfaces. Equality between two non-array Type values is
// pointer identity (primitives are process-wide singletons, declared types
// are the instances passed to the Schema). Arrays are not canonical: any
// *Array may be built by a caller, and Schema.TypeIndex resolves it by its
// element type.
type Type interface {
	// TypeName returns the type's declared (or synthesized, for arrays) name.
	TypeName() string
	// declared reports whether the type occupies a slot in a schema's
	// declared-type list (enums, records, interfaces) as opposed to being
	// implicit (primitives, arrays).
	declared() bool
	// order is the type's position in the canonical declared-type ordering:
	// enums, then records, then interfaces.
	order() int
}

// Primitive is one of the sixteen built-in wire-level value types.
type Primitive struct {
	name string
}

func (p *Primitive) TypeName() string { return p.name }
func (p *Primitive) declared() bool   { return false }
func (p *Primitive) order() int       { return -1 }
func (p *Primitive) String() string   { return p.name }

func newPrimitive(name string) *Primitive {
	assertName(name)
	return &Primitive{name: name}
}

// The sixteen primitives, in the canonical order used to assign type
// indices on the wire (void is always index 0).
var (
	Void     = newPrimitive("void")
	Boolean  = newPrimitive("boolean")
	Int8     = newPrimitive("int8")
	Uint8    = newPrimitive("uint8")
	Int16    = newPrimitive("int16")
	Uint16   = newPrimitive("uint16")
	Int32    = newPrimitive("int32")
	Uint32   = newPrimitive("uint32")
	Int64    = newPrimitive("int64")
	Uint64   = newPrimitive("uint64")
	Float32  = newPrimitive("float32")
	Float64  = newPrimitive("float64")
	String   = newPrimitive("string")
	Date     = newPrimitive("date")
	Time     = newPrimitive("time")
	Datetime = newPrimitive("datetime")
)

// Primitives lists the sixteen primitives in canonical order.
var Primitives = []*Primitive{
	Void, Boolean, Int8, Uint8, Int16, Uint16, Int32, Uint32,
	Int64, Uint64, Float32, Float64, String, Date, Time, Datetime,
}

// PrimitiveByName looks up a primitive by its wire name, used by the codec
// and by naming converters; ok is false for an unknown name.
func PrimitiveByName(name string) (p *Primitive, ok bool) {
	for _, pr := range Primitives {
		if pr.name == name {
			return pr, true
		}
	}
	return nil, false
}

// Array is the implicit, homogeneous sequence type of T. Arrays are never
// declared in a schema; they occupy the negated type index of their
// element type and are synthesized on demand.
type Array struct {
	Elem Type
}

func (a *Array) TypeName() string { return "ArrayOf" + a.Elem.TypeName() }
func (a *Array) declared() bool   { return false }
func (a *Array) order() int       { return 3 }
func (a *Array) String() string   { return a.Elem.TypeName() + "[]" }

// Enum is a name plus an ordered list of up to 256 value names; a value's
// ordinal is its position in the list.
type Enum struct {
	name   string
	Values []string
}

// NewEnum builds an Enum, validating the type name and every value name and
// enforcing the schema model's 256-value ceiling (ordinals themselves are
// sent as uint32 on the wire).
func NewEnum(name string, values []string) (*Enum, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if len(values) > 256 {
		return nil, fmt.Errorf("schema: enum %q may contain at most 256 values, got %d", name, len(values))
	}
	for _, v := range values {
		if err := ValidateName(v); err != nil {
			return nil, err
		}
	}
	cp := make([]string, len(values))
	copy(cp, values)
	return &Enum{name: name, Values: cp}, nil
}

func (e *Enum) TypeName() string { return e.name }
func (e *Enum) declared() bool   { return true }
func (e *Enum) order() int       { return 0 }
func (e *Enum) String() string   { return e.name }

// Ordinal returns the wire ordinal (0-based position) of value, or -1 if the
// enum has no such value.
func (e *Enum) Ordinal(value string) int {
	for i, v := range e.Values {
		if v == value {
			return i
		}
	}
	return -1
}

// Field is a (Type, name) pair: a record field or a method argument.
type Field struct {
	Type Type
	Name string
}

// Record is a name plus an ordered list of fields; no field may be void.
// Fields are kept in declaration order on the wire; FieldsSorted is a
// display-only view used for pretty-printing.
type Record struct {
	name   string
	Fields []Field
}

// NewRecord builds a Record, validating the type name, every field name, and
// rejecting void-typed fields.
func NewRecord(name string, fields []Field) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	cp := make([]Field, len(fields))
	for i, f := range fields {
		if err := ValidateName(f.Name); err != nil {
			return nil, err
		}
		if f.Type == Void {
			return nil, fmt.Errorf("schema: field %q of record %q cannot be of type void", f.Name, name)
		}
		cp[i] = f
	}
	return &Record{name: name, Fields: cp}, nil
}

// NewRecordShell creates a named Record with no fields yet, for use by a
// decoder that must hand out a stable *Record identity before the types its
// fields reference have themselves been parsed (schemas may contain
// mutually referential declared types). The caller must set Fields before
// the schema is handed to New.
func NewRecordShell(name string) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Record{name: name}, nil
}

func (r *Record) TypeName() string { return r.name }
func (r *Record) declared() bool   { return true }
func (r *Record) order() int       { return 1 }
func (r *Record) String() string   { return r.name }

// FieldsSorted returns a copy of Fields sorted by field name, for
// deterministic pretty-printing; the wire encoding always uses declaration
// order (Fields), never this view.
func (r *Record) FieldsSorted() []Field {
	return sortedFields(r.Fields)
}

func sortedFields(fields []Field) []Field {
	cp := make([]Field, len(fields))
	copy(cp, fields)
	for i := 1; i < len(cp); i++ {
		for j := i; j > 0 && cp[j-1].Name > cp[j].Name; j-- {
			cp[j-1], cp[j] = cp[j], cp[j-1]
		}
	}
	return cp
}

// Method is a name, an ordered argument list (no void arguments) and a
// return type (which may be void).
type Method struct {
	Name       string
	Arguments  []Field
	ReturnType Type
}

// NewMethod builds a Method, validating the name, every argument name, and
// rejecting void-typed arguments.
func NewMethod(name string, arguments []Field, returnType Type) (*Method, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	cp := make([]Field, len(arguments))
	for i, a := range arguments {
		if err := ValidateName(a.Name); err != nil {
			return nil, err
		}
		if a.Type == Void {
			return nil, fmt.Errorf("schema: argument %q of method %q cannot be of type void", a.Name, name)
		}
		cp[i] = a
	}
	return &Method{Name: name, Arguments: cp, ReturnType: returnType}, nil
}

func (m *Method) String() string {
	s := m.ReturnType.TypeName() + " " + m.Name + "("
	for i, a := range m.Arguments {
		if i > 0 {
			s += ", "
		}
		s += a.Type.TypeName() + " " + a.Name
	}
	return s + ");"
}

// Interface is a name plus an ordered, non-empty list of methods. Instances
// are passed across the bridge as object references (proxies on the
// receiving side, implementation objects on the hosting side).
type Interface struct {
	name    string
	Methods []*Method
}

// NewInterface builds an Interface, validating the name and requiring at
// least one method (every interface, and the schema's Main interface in
// particular, must declare at least one method).
func NewInterface(name string, methods []*Method) (*Interface, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("schema: interface %q must declare at least one method", name)
	}
	cp := make([]*Method, len(methods))
	copy(cp, methods)
	return &Interface{name: name, Methods: cp}, nil
}

// NewInterfaceShell creates a named Interface with no methods yet, for the
// same deferred-resolution reason as NewRecordShell: interface methods may
// reference other interfaces not yet parsed, including themselves. The
// caller must set Methods before the schema is handed to New.
func NewInterfaceShell(name string) (*Interface, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Interface{name: name}, nil
}

func (i *Interface) TypeName() string { return i.name }
func (i *Interface) declared() bool   { return true }
func (i *Interface) order() int       { return 2 }
func (i *Interface) String() string   { return i.name }

// MethodsSorted returns a copy of Methods sorted by name; this is the order
// used to flatten methods into wire ordinals across all interfaces.
func (i *Interface) MethodsSorted() []*Method {
	cp := make([]*Method, len(i.Methods))
	copy(cp, i.Methods)
	for a := 1; a < len(cp); a++ {
		for b := a; b > 0 && cp[b-1].Name > cp[b].Name; b-- {
			cp[b-1], cp[b] = cp[b], cp[b-1]
		}
	}
	return cp
}
