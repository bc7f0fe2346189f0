package repository

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"helpdesk-go/internal/config"
)

func TestJSONFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolutions.json")
	data := `[
		{"category": "Network", "issue": "cannot connect to wifi", "resolution": "restart router"},
		{"category": "Login", "issue": "password expired", "resolution": "reset password", "priority": "High"}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := NewRecordSource(config.CorpusSourceConfig{Type: "json", Path: path}, nil)
	if err != nil {
		t.Fatalf("NewRecordSource: %v", err)
	}
	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 || records[0].Issue != "cannot connect to wifi" || records[1].Priority != "High" {
		t.Errorf("records = %+v", records)
	}
}

func TestJSONFileSourceMissing(t *testing.T) {
	src := &JSONFileSource{Path: filepath.Join(t.TempDir(), "none.json")}
	if _, err := src.Load(context.Background()); err == nil {
		t.Error("Load succeeded for missing file")
	}
}

func TestCSVFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.csv")
	data := "Ticket Type,Ticket Subject,Ticket Description,Resolution,Ticket Priority\n" +
		"Technical issue,network problem,\"cannot connect, router blinking\",restart router,High\n" +
		"Billing inquiry,refund request,charged twice,issue refund,Low\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := NewRecordSource(config.CorpusSourceConfig{Type: "CSV", Path: path}, nil)
	if err != nil {
		t.Fatalf("NewRecordSource: %v", err)
	}
	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	r := records[0]
	if r.Category != "Technical issue" || r.Subject != "network problem" || r.Issue != "cannot connect, router blinking" || r.Priority != "High" {
		t.Errorf("record = %+v", r)
	}
}

func TestReadTicketCSVMissingColumns(t *testing.T) {
	_, err := ReadTicketCSV(strings.NewReader("Ticket Type,Resolution\nx,y\n"))
	var mc *MissingColumnsError
	if !errors.As(err, &mc) {
		t.Fatalf("err = %v, want MissingColumnsError", err)
	}
	if len(mc.Missing) != 3 {
		t.Errorf("missing = %v", mc.Missing)
	}
}

func TestWriteReadTicketCSV(t *testing.T) {
	rows := []TicketRow{{TicketType: "t", Subject: "s", Description: "d, with comma", Resolution: "r", Priority: "Low"}}
	var buf bytes.Buffer
	if err := WriteTicketCSV(&buf, rows); err != nil {
		t.Fatalf("WriteTicketCSV: %v", err)
	}
	got, err := ReadTicketCSV(&buf)
	if err != nil {
		t.Fatalf("ReadTicketCSV: %v", err)
	}
	if len(got) != 1 || got[0] != rows[0] {
		t.Errorf("read back %+v", got)
	}
}

func TestNewRecordSourceErrors(t *testing.T) {
	if _, err := NewRecordSource(config.CorpusSourceConfig{Type: "database"}, nil); err == nil {
		t.Error("database source without repository accepted")
	}
	if _, err := NewRecordSource(config.CorpusSourceConfig{Type: "xml"}, nil); err == nil {
		t.Error("unknown source type accepted")
	}
}
