package main

import (
	"bufio"
	"os"
	"strings"
	"testing"
)

func TestMainDumpSchemaCSV(t *testing.T) {
	defer func(args []string) { os.Args = args }(os.Args)
	os.Args = []string{"remcalldemo", "-dump-schema-csv"}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	realStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = realStdout }()

	main()
	w.Close()

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		t.Fatal("expected at least a header line on stdout")
	}
	if header := scanner.Text(); !strings.HasPrefix(header, "name,kind,index") {
		t.Errorf("unexpected CSV header: %q", header)
	}
}

func TestReferenceWidthRejectsInvalidValue(t *testing.T) {
	var w referenceWidth
	if err := w.Set("3"); err == nil {
		t.Error("expected an error for reference width 3")
	}
	if err := w.Set("4"); err != nil {
		t.Errorf("Set(4): %v", err)
	}
	if w.String() != "4" {
		t.Errorf("String() = %q, want %q", w.String(), "4")
	}
}
