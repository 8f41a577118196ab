package core

import (
	"strings"
	"time"
)

// Column names as they appear in the source tables.
const (
	ColLocationID      = "Location_ID"
	ColLocationName    = "Location_Name"
	ColCategoryID      = "Category_ID"
	ColCategoryName    = "Category_Name"
	ColRideID          = "Ride_Id"
	ColStartLocationID = "Start_Location_ID"
	ColStopLocationID  = "Stop_Location_ID"
	ColMiles           = "MILES"
	ColStartDate       = "START_DATE"
	ColEndDate         = "END_DATE"
	ColPurpose         = "PURPOSE"
)

type (
	// Record is one row of a tabular dataset keyed by column name.
	Record map[string]string

	Location struct {
		ID   string `json:"Location_ID"`
		Name string `json:"Location_Name"`
	}

	Category struct {
		ID   string `json:"Category_ID"`
		Name string `json:"Category_Name"`
	}

	// Ride keeps every field as the raw source string. Parsing happens
	// during aggregation so that dirty values never fail a load.
	Ride struct {
		ID              string `json:"Ride_Id"`
		StartLocationID string `json:"Start_Location_ID"`
		StopLocationID  string `json:"Stop_Location_ID"`
		Miles           string `json:"MILES"`
		StartDate       string `json:"START_DATE"`
		EndDate         string `json:"END_DATE"`
		Purpose         string `json:"PURPOSE"`
		CategoryID      string `json:"Category_ID"`
	}

	// Snapshot is the immutable set of collections a single request works on.
	Snapshot struct {
		Locations  []Location `json:"locations"`
		Categories []Category `json:"categories"`
		Rides      []Ride     `json:"rides"`
	}

	// Import describes one copy of a snapshot into the local database.
	Import struct {
		ID         string    `json:"import_id"`
		Source     string    `json:"source"`
		At         time.Time `json:"timestamp"`
		Locations  int       `json:"locations"`
		Categories int       `json:"categories"`
		Rides      int       `json:"rides"`
	}

	// Table is a header plus raw rows, as read from CSV files, spreadsheets
	// or any other tabular source.
	Table struct {
		Header []string
		Rows   [][]string
	}
)

// Ready reports whether every collection holds at least one row.
func (s Snapshot) Ready() bool {
	return len(s.Locations) > 0 && len(s.Categories) > 0 && len(s.Rides) > 0
}

// Records maps every row to a Record keyed by the header. Short rows
// leave the missing columns empty, extra cells are ignored.
func (t Table) Records() []Record {
	header := make([]string, len(t.Header))
	for i, h := range t.Header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

func LocationFromRecord(r Record) Location {
	return Location{ID: r[ColLocationID], Name: r[ColLocationName]}
}

func CategoryFromRecord(r Record) Category {
	return Category{ID: r[ColCategoryID], Name: r[ColCategoryName]}
}

func RideFromRecord(r Record) Ride {
	return Ride{
		ID:              r[ColRideID],
		StartLocationID: r[ColStartLocationID],
		StopLocationID:  r[ColStopLocationID],
		Miles:           r[ColMiles],
		StartDate:       r[ColStartDate],
		EndDate:         r[ColEndDate],
		Purpose:         r[ColPurpose],
		CategoryID:      r[ColCategoryID],
	}
}

// SnapshotFromTables decodes the three tables into a Snapshot. Slices are
// never nil so that empty collections encode as [] rather than null.
func SnapshotFromTables(locations, categories, rides Table) Snapshot {
	snap := Snapshot{
		Locations:  make([]Location, 0, len(locations.Rows)),
		Categories: make([]Category, 0, len(categories.Rows)),
		Rides:      make([]Ride, 0, len(rides.Rows)),
	}
	for _, r := range locations.Records() {
		snap.Locations = append(snap.Locations, LocationFromRecord(r))
	}
	for _, r := range categories.Records() {
		snap.Categories = append(snap.Categories, CategoryFromRecord(r))
	}
	for _, r := range rides.Records() {
		snap.Rides = append(snap.Rides, RideFromRecord(r))
	}
	return snap
}
