package naming

import (
	"testing"

	"github.com/luphord/remcall/schema"
)

func TestPythonConverterMethodName(t *testing.T) {
	c := PythonConverter{}
	tests := map[string]string{
		"GetAge":      "get_age",
		"GetHomeAddr": "get_home_addr",
		"ID":          "i_d",
		"get":         "get",
	}
	for in, want := range tests {
		if got := c.MethodName(in); got != want {
			t.Errorf("MethodName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPythonConverterEnumFieldName(t *testing.T) {
	c := PythonConverter{}
	if got := c.EnumFieldName("Activated"); got != "ACTIVATED" {
		t.Errorf("EnumFieldName(Activated) = %q, want ACTIVATED", got)
	}
	if got := c.EnumFieldName("InReview"); got != "IN_REVIEW" {
		t.Errorf("EnumFieldName(InReview) = %q, want IN_REVIEW", got)
	}
}

func TestPythonConverterTypeNames(t *testing.T) {
	c := PythonConverter{}
	tests := []struct {
		typ  schema.Type
		want string
	}{
		{schema.String, "str"},
		{schema.Int32, "int"},
		{schema.Uint64, "int"},
		{schema.Float64, "float"},
		{schema.Void, "None"},
		{schema.Boolean, "bool"},
		{schema.Datetime, "datetime.datetime"},
	}
	for _, tt := range tests {
		got, err := c.TypeName(tt.typ)
		if err != nil {
			t.Fatalf("TypeName(%v): %v", tt.typ, err)
		}
		if got != tt.want {
			t.Errorf("TypeName(%v) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestCSharpConverter(t *testing.T) {
	c := CSharpConverter{}
	if got := c.InterfaceName("User"); got != "IUser" {
		t.Errorf("InterfaceName(User) = %q, want IUser", got)
	}
	if got := c.ParameterName("FirstName"); got != "firstName" {
		t.Errorf("ParameterName(FirstName) = %q, want firstName", got)
	}
}

func TestGoConverter(t *testing.T) {
	c := GoConverter{}
	if got := c.MethodName("getAge"); got != "GetAge" {
		t.Errorf("MethodName(getAge) = %q, want GetAge", got)
	}
	if got := c.ParameterName("UserId"); got != "userId" {
		t.Errorf("ParameterName(UserId) = %q, want userId", got)
	}
	if got := c.RecordFieldName("x"); got != "X" {
		t.Errorf("RecordFieldName(x) = %q, want X", got)
	}
	typeName, err := c.TypeName(schema.Uint32)
	if err != nil || typeName != "uint32" {
		t.Errorf("TypeName(uint32) = %q, %v, want uint32", typeName, err)
	}
	dateName, err := c.TypeName(schema.Date)
	if err != nil || dateName != "time.Time" {
		t.Errorf("TypeName(date) = %q, %v, want time.Time", dateName, err)
	}
}

func TestIdentityConverterTypeNameDispatchesDeclaredTypes(t *testing.T) {
	ifc, err := schema.NewInterface("User", []*schema.Method{
		mustMethod(t, "GetAge", nil, schema.Uint32),
	})
	if err != nil {
		t.Fatal(err)
	}
	c := IdentityConverter{}
	name, err := c.TypeName(ifc)
	if err != nil || name != "User" {
		t.Errorf("TypeName(User interface) = %q, %v, want User", name, err)
	}
}

func mustMethod(t *testing.T, name string, args []schema.Field, ret schema.Type) *schema.Method {
	t.Helper()
	m, err := schema.NewMethod(name, args, ret)
	if err != nil {
		t.Fatalf("NewMethod(%q): %v", name, err)
	}
	return m
}
