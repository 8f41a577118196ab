package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
	if err.Error() != "missing spreadsheet ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "abc"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "abc", CredentialsFile: "/non/existent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestSheetRange(t *testing.T) {
	tests := map[string]string{
		"Rides":       "'Rides'",
		" Ride Log ":  "'Ride Log'",
		"Bob's Rides": "'Bob''s Rides'",
	}
	for in, want := range tests {
		if got := sheetRange(in); got != want {
			t.Errorf("sheetRange(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTableFromValues(t *testing.T) {
	values := [][]interface{}{
		{"Ride_Id", "MILES", "PURPOSE"},
		{"1", 5.1, " Meeting "},
		{},
		{"2"},
	}
	tbl := tableFromValues(values)
	if len(tbl.Header) != 3 || tbl.Header[1] != "MILES" {
		t.Fatalf("unexpected header: %v", tbl.Header)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("empty rows should be skipped, got %d rows", len(tbl.Rows))
	}
	if tbl.Rows[0][1] != "5.1" || tbl.Rows[0][2] != "Meeting" {
		t.Fatalf("unexpected first row: %q", tbl.Rows[0])
	}
	recs := tbl.Records()
	if recs[1]["PURPOSE"] != "" {
		t.Fatalf("missing trailing cells should read empty: %v", recs[1])
	}

	if empty := tableFromValues(nil); empty.Header != nil || empty.Rows != nil {
		t.Fatalf("nil values should give an empty table: %+v", empty)
	}
}

func TestClientLoadBatchGet(t *testing.T) {
	var gotRanges []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "values:batchGet"):
			gotRanges = r.URL.Query()["ranges"]
			json.NewEncoder(w).Encode(map[string]any{
				"spreadsheetId": "sheet-1",
				"valueRanges": []map[string]any{
					{"range": "Locations!A1:B2", "values": [][]string{{"Location_ID", "Location_Name"}, {"1", "Cary"}}},
					{"range": "Categories!A1:B2", "values": [][]string{{"Category_ID", "Category_Name"}, {"1", "Business"}}},
					{"range": "Rides!A1:C2", "values": [][]string{{"Ride_Id", "MILES", "Category_ID"}, {"r1", "5.1", "1"}}},
				},
			})
		case strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-1"):
			json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-1"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(context.Background(),
		Config{SpreadsheetID: "sheet-1", LocationsSheet: "Locations", CategoriesSheet: "Categories", RidesSheet: "Rides"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	snap, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(gotRanges) != 3 || gotRanges[2] != "'Rides'" {
		t.Fatalf("unexpected ranges requested: %v", gotRanges)
	}
	if !snap.Ready() {
		t.Fatalf("expected a full snapshot, got %+v", snap)
	}
	if snap.Rides[0].Miles != "5.1" || snap.Rides[0].CategoryID != "1" {
		t.Fatalf("unexpected ride: %+v", snap.Rides[0])
	}
	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
}

func TestClientLoadNotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if _, err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error for nil service")
	}
}
