package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRequiresCSVPath(t *testing.T) {
	if err := run("", false); err == nil {
		t.Fatal("expected error for empty csv path")
	}
}

func TestRunReportsMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.csv")
	err := run(missing, false)
	if err == nil {
		t.Fatal("expected error for missing csv file")
	}
	if !strings.Contains(err.Error(), "open csv") {
		t.Fatalf("error = %v, want an open csv failure", err)
	}
}

func TestRunRejectsMalformedCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte("name,qty\nCheese Pizza,1\n"), 0o644); err != nil {
		t.Fatalf("write csv fixture: %v", err)
	}

	if err := run(path, false); err == nil {
		t.Fatal("expected error for malformed header")
	}
}
