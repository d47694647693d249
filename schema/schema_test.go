package schema

import (
	"testing"

	"github.com/go-test/deep"
)

func mustMethod(t *testing.T, name string, args []Field, ret Type) *Method {
	t.Helper()
	m, err := NewMethod(name, args, ret)
	if err != nil {
		t.Fatalf("NewMethod(%q): %v", name, err)
	}
	return m
}

func mustInterface(t *testing.T, name string, methods []*Method) *Interface {
	t.Helper()
	i, err := NewInterface(name, methods)
	if err != nil {
		t.Fatalf("NewInterface(%q): %v", name, err)
	}
	return i
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"User", false},
		{"getAge2", false},
		{"", true},
		{"2getAge", true},
		{"get-Age", true},
		{"get Age", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestSchemaRequiresMain(t *testing.T) {
	ifc := mustInterface(t, "User", []*Method{mustMethod(t, "GetAge", nil, Uint32)})
	if _, err := New("test", []Type{ifc}, 2, 4, nil); err == nil {
		t.Fatal("expected error for schema without Main interface")
	}
}

func TestSchemaRejectsEmptyInterface(t *testing.T) {
	ifc := &Interface{name: "Empty"}
	main := mustInterface(t, "Main", []*Method{mustMethod(t, "Noop", nil, Void)})
	if _, err := New("test", []Type{ifc, main}, 2, 4, nil); err == nil {
		t.Fatal("expected error for interface with no methods")
	}
}

func TestTypeIndexOrderingAndArrays(t *testing.T) {
	status, err := NewEnum("Status", []string{"Registered", "Activated", "Locked"})
	if err != nil {
		t.Fatal(err)
	}
	user := mustInterface(t, "User", []*Method{mustMethod(t, "GetAge", nil, Uint32)})
	main := mustInterface(t, "Main", []*Method{mustMethod(t, "GetFirstUser", nil, user)})

	s, err := New("test", []Type{status, user, main}, 2, 4, nil)
	if err != nil {
		t.Fatal(err)
	}

	if idx, ok := s.TypeIndex(Void); !ok || idx != 0 {
		t.Fatalf("void index = %v, %v; want 0, true", idx, ok)
	}
	// Declared types come after all 16 primitives, sorted by (order, name):
	// enums (0) < records (1) < interfaces (2); Main sorts before User.
	statusIdx, ok := s.TypeIndex(status)
	if !ok || statusIdx != 16 {
		t.Fatalf("Status index = %v, %v; want 16, true", statusIdx, ok)
	}
	userIdx, _ := s.TypeIndex(user)
	mainIdx, _ := s.TypeIndex(main)
	if mainIdx >= userIdx {
		t.Fatalf("Main (%d) should sort before User (%d)", mainIdx, userIdx)
	}

	arr := s.ArrayOf(Uint32)
	arrIdx, ok := s.TypeIndex(arr)
	uint32Idx, _ := s.TypeIndex(Uint32)
	if !ok || arrIdx != -uint32Idx {
		t.Fatalf("Array(uint32) index = %v, %v; want %v, true", arrIdx, ok, -uint32Idx)
	}
}

func TestMethodOrdinalsFlattenedAcrossInterfaces(t *testing.T) {
	alpha := mustInterface(t, "Alpha", []*Method{
		mustMethod(t, "Zeta", nil, Void),
		mustMethod(t, "Alef", nil, Void),
	})
	main := mustInterface(t, "Main", []*Method{mustMethod(t, "Noop", nil, Void)})
	s, err := New("test", []Type{alpha, main}, 2, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Interfaces sorted by name: Alpha before Main. Within Alpha, methods
	// sorted by name: Alef before Zeta.
	m0, ok := s.MethodLookup(0)
	if !ok || m0.Name != "Alef" {
		t.Fatalf("method 0 = %v, %v; want Alef", m0, ok)
	}
	m1, ok := s.MethodLookup(1)
	if !ok || m1.Name != "Zeta" {
		t.Fatalf("method 1 = %v, %v; want Zeta", m1, ok)
	}
	m2, ok := s.MethodLookup(2)
	if !ok || m2.Name != "Noop" {
		t.Fatalf("method 2 = %v, %v; want Noop", m2, ok)
	}
	ifc, ok := s.MethodInterface(0)
	if !ok || ifc.TypeName() != "Alpha" {
		t.Fatalf("interface for method 0 = %v, %v; want Alpha", ifc, ok)
	}
}

func TestRecordFieldsSortedIsDisplayOnly(t *testing.T) {
	r, err := NewRecord("Point", []Field{{Int32, "z"}, {Int32, "a"}, {Int32, "m"}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal([]string{"z", "a", "m"}, fieldNames(r.Fields)); diff != nil {
		t.Errorf("declaration order should be preserved: %v", diff)
	}
	if diff := deep.Equal([]string{"a", "m", "z"}, fieldNames(r.FieldsSorted())); diff != nil {
		t.Errorf("FieldsSorted should sort by name: %v", diff)
	}
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestNewRecordRejectsVoidField(t *testing.T) {
	if _, err := NewRecord("Bad", []Field{{Void, "x"}}); err == nil {
		t.Fatal("expected error for void field")
	}
}

func TestNewMethodRejectsVoidArgument(t *testing.T) {
	if _, err := NewMethod("Bad", []Field{{Void, "x"}}, Void); err == nil {
		t.Fatal("expected error for void argument")
	}
}

func TestNewEnumRejectsTooManyValues(t *testing.T) {
	values := make([]string, 257)
	for i := range values {
		values[i] = "V"
	}
	if _, err := NewEnum("TooBig", values); err == nil {
		t.Fatal("expected error for 257 enum values")
	}
}
