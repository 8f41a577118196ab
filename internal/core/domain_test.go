package core

import (
	"testing"
	"time"
)

func TestTableRecords(t *testing.T) {
	tbl := Table{
		Header: []string{"\ufeffCategory_ID", " Category_Name ", ""},
		Rows: [][]string{
			{"1", "Business", "ignored"},
			{"2"},
		},
	}
	recs := tbl.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0][ColCategoryID] != "1" || recs[0][ColCategoryName] != "Business" {
		t.Fatalf("unexpected first record: %v", recs[0])
	}
	if _, ok := recs[0][""]; ok {
		t.Fatalf("blank header column should be skipped: %v", recs[0])
	}
	if v, ok := recs[1][ColCategoryName]; !ok || v != "" {
		t.Fatalf("short row should read missing column as empty, got %q ok=%v", v, ok)
	}
}

func TestSnapshotFromTables(t *testing.T) {
	locs := Table{Header: []string{"Location_ID", "Location_Name"}, Rows: [][]string{{"10", "Cary"}}}
	cats := Table{Header: []string{"Category_ID", "Category_Name"}, Rows: [][]string{{"1", "Business"}}}
	rides := Table{
		Header: []string{"Ride_Id", "Start_Location_ID", "Stop_Location_ID", "MILES", "START_DATE", "END_DATE", "PURPOSE", "Category_ID", "Extra"},
		Rows:   [][]string{{"r1", "10", "11", "5.1", "1/1/2016 21:11", "1/1/2016 21:17", "Meal/Entertain", "1", "x"}},
	}
	snap := SnapshotFromTables(locs, cats, rides)
	if !snap.Ready() {
		t.Fatalf("expected ready snapshot: %+v", snap)
	}
	want := Ride{
		ID: "r1", StartLocationID: "10", StopLocationID: "11", Miles: "5.1",
		StartDate: "1/1/2016 21:11", EndDate: "1/1/2016 21:17", Purpose: "Meal/Entertain", CategoryID: "1",
	}
	if snap.Rides[0] != want {
		t.Fatalf("ride mismatch:\n got %+v\nwant %+v", snap.Rides[0], want)
	}
	if snap.Locations[0] != (Location{ID: "10", Name: "Cary"}) {
		t.Fatalf("location mismatch: %+v", snap.Locations[0])
	}
}

func TestSnapshotFromEmptyTables(t *testing.T) {
	snap := SnapshotFromTables(Table{}, Table{}, Table{})
	if snap.Locations == nil || snap.Categories == nil || snap.Rides == nil {
		t.Fatalf("empty tables must produce non-nil slices: %+v", snap)
	}
	if snap.Ready() {
		t.Fatalf("empty snapshot must not be ready")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-02T08:30:00Z", time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC), true},
		{"2024-01-02 08:30", time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC), true},
		{"1/1/2016 21:11", time.Date(2016, 1, 1, 21, 11, 0, 0, time.UTC), true},
		{"12/31/2016", time.Date(2016, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{" 2024-01-02 ", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseTimestamp(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if ok && !got.Equal(tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseMiles(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5.2", "5.2"},
		{" 3.0 ", "3"},
		{"0", "0"},
		{"-1.5", "-1.5"},
		{".5", "0.5"},
		{"12.5 mi", "12.5"},
		{"N/A", "0"},
		{"", "0"},
		{"abc12", "0"},
		{"1e999", "0"},
		{"-1e999", "0"},
		{"1e999 mi", "0"},
		{"1e2", "100"},
	}
	for _, tc := range cases {
		got := ParseMiles(tc.in)
		if got.String() != tc.want {
			t.Fatalf("ParseMiles(%q) = %s, want %s", tc.in, got.String(), tc.want)
		}
	}
}

func TestSnapshotDigest(t *testing.T) {
	base := Snapshot{
		Locations:  []Location{{ID: "1", Name: "Cary"}},
		Categories: []Category{{ID: "1", Name: "Business"}},
		Rides:      []Ride{{ID: "1", Miles: "5.2", Purpose: "Meeting", CategoryID: "1"}},
	}
	same := Snapshot{
		Locations:  []Location{{ID: "1", Name: "Cary"}},
		Categories: []Category{{ID: "1", Name: "Business"}},
		Rides:      []Ride{{ID: "1", Miles: "5.2", Purpose: "Meeting", CategoryID: "1"}},
	}
	if base.Digest() != same.Digest() {
		t.Fatal("equal snapshots must share a digest")
	}

	changed := same
	changed.Rides = []Ride{{ID: "1", Miles: "5.3", Purpose: "Meeting", CategoryID: "1"}}
	if base.Digest() == changed.Digest() {
		t.Error("a changed ride must change the digest")
	}

	// Field boundaries are part of the digest.
	a := Snapshot{Locations: []Location{{ID: "12", Name: "3"}}}
	b := Snapshot{Locations: []Location{{ID: "1", Name: "23"}}}
	if a.Digest() == b.Digest() {
		t.Error("shifted field boundaries must not collide")
	}
}
