package storage

import (
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	csvData := `name,latitude,longitude,weight,region
Paris,48.85,2.35,3,EMEA
NYC,40.71,-74.00,5,AMER
Anywhere,,,2,
`
	rows, err := readCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("readCSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows; want 3", len(rows))
	}
	if rows[0]["name"] != "Paris" || rows[0]["latitude"] != "48.85" {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[1]["region"] != "AMER" {
		t.Errorf("second row region = %q; want AMER", rows[1]["region"])
	}
	// Empty cells still appear under their column name.
	if v, ok := rows[2]["latitude"]; !ok || v != "" {
		t.Errorf("third row latitude = %q, present=%v; want empty string present", v, ok)
	}
}

func TestReadCSVRaggedAndEmpty(t *testing.T) {
	rows, err := readCSV(strings.NewReader("a,b,c\n1,2\n"))
	if err != nil {
		t.Fatalf("ragged csv must not error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows; want 1", len(rows))
	}
	if _, ok := rows[0]["c"]; ok {
		t.Error("short record must not invent a value for trailing column")
	}

	rows, err = readCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty csv must not error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("empty file produced %d rows", len(rows))
	}
}

func TestRowsFromRecordsSkipsBlankHeaders(t *testing.T) {
	rows := rowsFromRecords([][]string{
		{"name", "", " weight "},
		{"x", "ignored", "4"},
	})
	if len(rows) != 1 {
		t.Fatalf("got %d rows; want 1", len(rows))
	}
	if _, ok := rows[0][""]; ok {
		t.Error("blank header column must be dropped")
	}
	if rows[0]["weight"] != "4" {
		t.Errorf("trimmed header lookup = %v", rows[0])
	}
}
