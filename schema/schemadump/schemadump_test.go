package schemadump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/luphord/remcall/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	status, err := schema.NewEnum("Status", []string{"Active", "Retired"})
	if err != nil {
		t.Fatalf("NewEnum: %v", err)
	}
	point, err := schema.NewRecord("Point", []schema.Field{
		{Type: schema.Int32, Name: "x"},
		{Type: schema.Int32, Name: "y"},
	})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	ping, err := schema.NewMethod("ping", nil, schema.Void)
	if err != nil {
		t.Fatalf("NewMethod: %v", err)
	}
	main, err := schema.NewInterface("Main", []*schema.Method{ping})
	if err != nil {
		t.Fatalf("NewInterface: %v", err)
	}
	s, err := schema.New("auditable", []schema.Type{status, point, main}, 2, 4, nil)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

func TestRowsCoversEveryDeclaredType(t *testing.T) {
	s := testSchema(t)
	rows := Rows(s)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	kinds := map[string]string{}
	for _, r := range rows {
		kinds[r.Name] = r.Kind
	}
	want := map[string]string{"Status": "enum", "Point": "record", "Main": "interface"}
	for name, kind := range want {
		if kinds[name] != kind {
			t.Errorf("kind of %q = %q, want %q", name, kinds[name], kind)
		}
	}
}

func TestWriteProducesCSVHeader(t *testing.T) {
	s := testSchema(t)
	var buf bytes.Buffer
	if err := Write(s, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "name,kind,index") {
		t.Errorf("unexpected CSV header: %q", strings.SplitN(out, "\n", 2)[0])
	}
	if strings.Count(out, "\n") < 3 {
		t.Errorf("expected a header line plus 3 rows, got:\n%s", out)
	}
}
