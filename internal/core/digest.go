package core

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Digest fingerprints the snapshot contents. Equal snapshots always share a
// digest; it is used to key rendered charts.
func (s Snapshot) Digest() uint64 {
	d := xxhash.New()
	var n [8]byte
	writeLen := func(l int) {
		binary.LittleEndian.PutUint64(n[:], uint64(l))
		_, _ = d.Write(n[:])
	}
	fields := func(vals ...string) {
		for _, v := range vals {
			writeLen(len(v))
			_, _ = d.WriteString(v)
		}
	}

	writeLen(len(s.Locations))
	for _, l := range s.Locations {
		fields(l.ID, l.Name)
	}
	writeLen(len(s.Categories))
	for _, c := range s.Categories {
		fields(c.ID, c.Name)
	}
	writeLen(len(s.Rides))
	for _, r := range s.Rides {
		fields(r.ID, r.StartLocationID, r.StopLocationID, r.Miles, r.StartDate, r.EndDate, r.Purpose, r.CategoryID)
	}
	return d.Sum64()
}
